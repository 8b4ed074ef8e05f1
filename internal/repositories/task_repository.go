package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"taskeval/internal/models"
)

type TaskRepository interface {
	Store(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id string, userID int64) (*models.Task, error)
	FindAllByUser(ctx context.Context, userID int64) ([]models.Task, error)
	// SetEvaluation writes score, strengths and improvements in one
	// statement, guarded by ai_score IS NULL. Returns false when another
	// writer already evaluated the task.
	SetEvaluation(ctx context.Context, id string, userID int64, score int, strengths, improvements []string) (bool, error)
	MarkPaid(ctx context.Context, id string, userID int64) error
	Delete(ctx context.Context, id string, userID int64) (bool, error)
}

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, user_id, title, description, file_url, ai_score, strengths, improvements, is_paid, created_at, updated_at`

func (r *taskRepository) Store(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (
			id, user_id, title, description, file_url, is_paid, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.UserID, task.Title, task.Description, task.FileURL,
		task.IsPaid, task.CreatedAt, task.UpdatedAt,
	)
	return err
}

func (r *taskRepository) FindByID(ctx context.Context, id string, userID int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) FindAllByUser(ctx context.Context, userID int64) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) SetEvaluation(ctx context.Context, id string, userID int64, score int, strengths, improvements []string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET
			ai_score=$1, strengths=$2, improvements=$3, updated_at=NOW()
		WHERE id=$4 AND user_id=$5 AND ai_score IS NULL`,
		score, pq.Array(strengths), pq.Array(improvements), id, userID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *taskRepository) MarkPaid(ctx context.Context, id string, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET is_paid=TRUE, updated_at=NOW() WHERE id=$1 AND user_id=$2`, id, userID)
	return err
}

func (r *taskRepository) Delete(ctx context.Context, id string, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t         models.Task
		score     sql.NullInt64
		strengths pq.StringArray
		improves  pq.StringArray
	)
	if err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.FileURL,
		&score, &strengths, &improves, &t.IsPaid, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if score.Valid {
		v := int(score.Int64)
		t.AIScore = &v
	}
	t.Strengths = strengths
	t.Improvements = improves
	return &t, nil
}
