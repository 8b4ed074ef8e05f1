package repositories

import (
	"context"
	"database/sql"

	"taskeval/internal/models"
)

type PaymentRepository interface {
	Store(ctx context.Context, payment *models.Payment) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	// SetStatusBySession moves a pending payment to its terminal status.
	// Returns false when no pending row matched, which makes webhook
	// replays a no-op.
	SetStatusBySession(ctx context.Context, sessionID string, to models.PaymentStatus) (bool, error)
	FindAllByUser(ctx context.Context, userID int64) ([]models.Payment, error)
}

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, user_id, task_id, amount, status, provider_session_id, created_at`

func (r *paymentRepository) Store(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (
			id, user_id, task_id, amount, status, provider_session_id, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.UserID, payment.TaskID, payment.Amount,
		payment.Status, payment.ProviderSessionID, payment.CreatedAt,
	)
	return err
}

func (r *paymentRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_session_id = $1`
	var p models.Payment
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&p.ID, &p.UserID, &p.TaskID, &p.Amount, &p.Status, &p.ProviderSessionID, &p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) SetStatusBySession(ctx context.Context, sessionID string, to models.PaymentStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status=$1 WHERE provider_session_id=$2 AND status='pending'`,
		to, sessionID,
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

func (r *paymentRepository) FindAllByUser(ctx context.Context, userID int64) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.TaskID, &p.Amount, &p.Status, &p.ProviderSessionID, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
