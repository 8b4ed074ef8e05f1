package repositories

import (
	"database/sql"
	"time"

	"taskeval/internal/models"
)

type UserRepository interface {
	Create(user *models.User) error
	GetByID(id int64) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	SetConfirmation(id int64, code string, expiresAt time.Time) error
	MarkVerified(id int64) error
	UpdateRefresh(id int64, token string, expiresAt time.Time) error
	GetByRefreshToken(token string) (*models.User, error)
	RotateRefresh(oldToken, newToken string, expiresAt time.Time) (*models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, email_verified, confirm_code, confirm_expires_at, refresh_token, refresh_expires_at, created_at`

func (r *userRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, email_verified, confirm_code, confirm_expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`
	return r.db.QueryRow(query,
		user.Email, user.PasswordHash, user.EmailVerified,
		user.ConfirmCode, user.ConfirmExpiresAt, user.CreatedAt,
	).Scan(&user.ID)
}

func (r *userRepository) GetByID(id int64) (*models.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) SetConfirmation(id int64, code string, expiresAt time.Time) error {
	_, err := r.db.Exec(
		`UPDATE users SET confirm_code=$1, confirm_expires_at=$2 WHERE id=$3`,
		code, expiresAt, id,
	)
	return err
}

func (r *userRepository) MarkVerified(id int64) error {
	_, err := r.db.Exec(
		`UPDATE users SET email_verified=TRUE, confirm_code=NULL, confirm_expires_at=NULL WHERE id=$1`,
		id,
	)
	return err
}

func (r *userRepository) UpdateRefresh(id int64, token string, expiresAt time.Time) error {
	_, err := r.db.Exec(
		`UPDATE users SET refresh_token=$1, refresh_expires_at=$2 WHERE id=$3`,
		token, expiresAt, id,
	)
	return err
}

func (r *userRepository) GetByRefreshToken(token string) (*models.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE refresh_token = $1`, token)
}

func (r *userRepository) RotateRefresh(oldToken, newToken string, expiresAt time.Time) (*models.User, error) {
	query := `
		UPDATE users SET refresh_token=$1, refresh_expires_at=$2
		WHERE refresh_token=$3
		RETURNING ` + userColumns
	return r.scanOne(r.db.QueryRow(query, newToken, expiresAt, oldToken))
}

func (r *userRepository) getOne(query string, arg interface{}) (*models.User, error) {
	return r.scanOne(r.db.QueryRow(query, arg))
}

func (r *userRepository) scanOne(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.EmailVerified,
		&u.ConfirmCode, &u.ConfirmExpiresAt,
		&u.RefreshToken, &u.RefreshExpiresAt, &u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
