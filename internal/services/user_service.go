package services

import (
	"log"
	"strings"
	"time"

	"taskeval/internal/apperrors"
	"taskeval/internal/models"
	"taskeval/internal/repositories"
	"taskeval/internal/utils"
)

const confirmCodeTTL = 15 * time.Minute

type UserService interface {
	Register(email, password string) (*models.User, error)
	Confirm(userID int64, code string) error
	ResendCode(userID int64) error
	GetUserByID(id int64) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	UpdateRefresh(id int64, token string, expiresAt time.Time) error
	GetByRefreshToken(token string) (*models.User, error)
	RotateRefresh(oldToken, newToken string, expiresAt time.Time) (*models.User, error)
}

type userService struct {
	repo         repositories.UserRepository
	emailService EmailService
	authService  AuthService
}

func NewUserService(repo repositories.UserRepository, emailService EmailService, authService AuthService) UserService {
	return &userService{
		repo:         repo,
		emailService: emailService,
		authService:  authService,
	}
}

func (s *userService) Register(email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, apperrors.Validation("invalid email")
	}
	if len(password) < 8 {
		return nil, apperrors.Validation("password must be at least 8 characters")
	}

	existing, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("email already registered")
	}

	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, err
	}

	code, err := utils.NewConfirmationCode()
	if err != nil {
		return nil, err
	}
	expires := time.Now().Add(confirmCodeTTL)

	user := &models.User{
		Email:            email,
		PasswordHash:     hash,
		ConfirmCode:      &code,
		ConfirmExpiresAt: &expires,
		CreatedAt:        time.Now(),
	}
	if err := s.repo.Create(user); err != nil {
		return nil, err
	}

	if s.emailService != nil {
		if err := s.emailService.SendConfirmationEmail(user.Email, code); err != nil {
			// warn but do not fail registration; the code can be resent
			log.Printf("Register: warning: failed to send confirmation email to %s: %v", user.Email, err)
		}
	}

	return user, nil
}

func (s *userService) Confirm(userID int64, code string) error {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.NotFound("user not found")
	}
	if user.EmailVerified {
		return apperrors.Conflict("email already verified")
	}
	if user.ConfirmCode == nil || user.ConfirmExpiresAt == nil {
		return apperrors.Validation("no confirmation pending, please resend")
	}
	if time.Now().After(*user.ConfirmExpiresAt) {
		return apperrors.Validation("code expired, please resend")
	}
	if *user.ConfirmCode != strings.TrimSpace(code) {
		return apperrors.Validation("invalid code")
	}
	return s.repo.MarkVerified(userID)
}

func (s *userService) ResendCode(userID int64) error {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.NotFound("user not found")
	}
	if user.EmailVerified {
		return apperrors.Conflict("email already verified")
	}

	code, err := utils.NewConfirmationCode()
	if err != nil {
		return err
	}
	if err := s.repo.SetConfirmation(userID, code, time.Now().Add(confirmCodeTTL)); err != nil {
		return err
	}
	if s.emailService != nil {
		if err := s.emailService.SendConfirmationEmail(user.Email, code); err != nil {
			return apperrors.External("failed to send confirmation email", err)
		}
	}
	return nil
}

func (s *userService) GetUserByID(id int64) (*models.User, error) {
	return s.repo.GetByID(id)
}

func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	return s.repo.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
}

func (s *userService) UpdateRefresh(id int64, token string, expiresAt time.Time) error {
	return s.repo.UpdateRefresh(id, token, expiresAt)
}

func (s *userService) GetByRefreshToken(token string) (*models.User, error) {
	return s.repo.GetByRefreshToken(token)
}

func (s *userService) RotateRefresh(oldToken, newToken string, expiresAt time.Time) (*models.User, error) {
	return s.repo.RotateRefresh(oldToken, newToken, expiresAt)
}
