// internal/services/payment_service.go
package services

import (
	"context"
	"html"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"taskeval/internal/apperrors"
	"taskeval/internal/models"
	"taskeval/internal/payments"
	"taskeval/internal/repositories"
)

// CheckoutClient is the outbound half of the payment provider.
type CheckoutClient interface {
	CreateSession(ctx context.Context, taskID string, userID int64) (*payments.Session, error)
}

// PaymentService creates checkout sessions for evaluated tasks and applies
// provider webhook events to payment and task state.
type PaymentService interface {
	RequestUnlock(ctx context.Context, userID int64, taskID string) (*models.CheckoutResponse, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Payment, error)
	// HandleWebhook applies a verified provider event. It never returns an
	// error for persistence failures: the provider retries on non-2xx and
	// a retry could duplicate side effects, so failures are logged and the
	// event is acknowledged anyway.
	HandleWebhook(ctx context.Context, event *payments.Event)
}

type paymentService struct {
	tasks    repositories.TaskRepository
	payments repositories.PaymentRepository
	users    repositories.UserRepository
	checkout CheckoutClient
	email    EmailService
	telegram *TelegramService
	chatID   int64
}

// NewPaymentService creates a new instance of PaymentService. email and
// telegram are optional; nil disables the corresponding notification.
func NewPaymentService(
	tasks repositories.TaskRepository,
	paymentRepo repositories.PaymentRepository,
	users repositories.UserRepository,
	checkout CheckoutClient,
	email EmailService,
	telegram *TelegramService,
	adminChatID int64,
) PaymentService {
	return &paymentService{
		tasks:    tasks,
		payments: paymentRepo,
		users:    users,
		checkout: checkout,
		email:    email,
		telegram: telegram,
		chatID:   adminChatID,
	}
}

func (s *paymentService) RequestUnlock(ctx context.Context, userID int64, taskID string) (*models.CheckoutResponse, error) {
	task, err := s.tasks.FindByID(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperrors.NotFound("task not found")
	}
	if task.IsPaid {
		return nil, apperrors.Conflict("task already unlocked")
	}
	if !task.Evaluated() {
		return nil, apperrors.Conflict("task must be evaluated first")
	}

	session, err := s.checkout.CreateSession(ctx, taskID, userID)
	if err != nil {
		return nil, apperrors.External("failed to create checkout session", err)
	}

	sessionID := session.ID
	payment := &models.Payment{
		ID:                uuid.NewString(),
		UserID:            userID,
		TaskID:            taskID,
		Amount:            session.AmountTotal,
		Status:            models.PaymentPending,
		ProviderSessionID: &sessionID,
		CreatedAt:         time.Now(),
	}
	// Without this row the completion webhook has nothing to reconcile
	// against and the unlock would be lost, so the insert is not allowed
	// to fail silently. The orphaned session expires at the provider.
	if err := s.payments.Store(ctx, payment); err != nil {
		log.Printf("[payment][unlock][err] store pending payment session=%s: %v", session.ID, err)
		return nil, apperrors.External("failed to record payment", err)
	}

	return &models.CheckoutResponse{SessionID: session.ID, RedirectURL: session.URL}, nil
}

func (s *paymentService) ListByUser(ctx context.Context, userID int64) ([]models.Payment, error) {
	return s.payments.FindAllByUser(ctx, userID)
}

func (s *paymentService) HandleWebhook(ctx context.Context, event *payments.Event) {
	switch event.Type {
	case payments.EventCheckoutCompleted:
		s.handleCompleted(ctx, event)
	case payments.EventCheckoutExpired, payments.EventAsyncPaymentFailed:
		s.handleFailed(ctx, event)
	default:
		log.Printf("[webhook][skip] unhandled event type=%s", event.Type)
	}
}

func (s *paymentService) handleCompleted(ctx context.Context, event *payments.Event) {
	session := event.Data.Object

	taskID := session.Metadata["task_id"]
	userStr := session.Metadata["user_id"]
	if taskID == "" || userStr == "" {
		// never guess which task was paid for
		log.Printf("[webhook][completed][err] missing metadata session=%s", session.ID)
		return
	}
	userID, err := strconv.ParseInt(userStr, 10, 64)
	if err != nil {
		log.Printf("[webhook][completed][err] bad user_id metadata session=%s: %v", session.ID, err)
		return
	}

	// pending-only update keeps replays of the same session a no-op
	changed, err := s.payments.SetStatusBySession(ctx, session.ID, models.PaymentCompleted)
	if err != nil {
		log.Printf("[webhook][completed][err] update payment session=%s: %v", session.ID, err)
	}

	if err := s.tasks.MarkPaid(ctx, taskID, userID); err != nil {
		log.Printf("[webhook][completed][err] unlock task id=%s: %v", taskID, err)
		return
	}
	log.Printf("[webhook][completed][ok] task=%s session=%s", taskID, session.ID)

	if changed {
		s.notifyCompleted(ctx, taskID, userID)
	}
}

func (s *paymentService) handleFailed(ctx context.Context, event *payments.Event) {
	session := event.Data.Object
	if _, err := s.payments.SetStatusBySession(ctx, session.ID, models.PaymentFailed); err != nil {
		log.Printf("[webhook][failed][err] update payment session=%s: %v", session.ID, err)
		return
	}
	log.Printf("[webhook][failed][ok] session=%s", session.ID)
}

// notifyCompleted sends the receipt email and the admin Telegram ping.
// Both are best effort; the unlock already happened.
func (s *paymentService) notifyCompleted(ctx context.Context, taskID string, userID int64) {
	task, err := s.tasks.FindByID(ctx, taskID, userID)
	if err != nil || task == nil {
		log.Printf("[webhook][notify][warn] reload task id=%s: %v", taskID, err)
		return
	}

	if s.email != nil {
		user, err := s.users.GetByID(userID)
		if err != nil || user == nil {
			log.Printf("[webhook][notify][warn] load user id=%d: %v", userID, err)
		} else if err := s.email.SendReceiptEmail(user.Email, task.Title); err != nil {
			log.Printf("[webhook][notify][warn] receipt email to %s: %v", user.Email, err)
		}
	}

	if s.telegram != nil && s.chatID != 0 {
		_ = s.telegram.SendMessage(s.chatID,
			"💳 Report unlocked\n• <b>"+html.EscapeString(task.Title)+"</b>\n• task <code>"+taskID+"</code>")
	}
}
