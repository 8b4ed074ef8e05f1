package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskeval/internal/apperrors"
	"taskeval/internal/models"
	"taskeval/internal/payments"
)

type fakePaymentRepo struct {
	bySession map[string]*models.Payment
	storeErr  error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{bySession: map[string]*models.Payment{}}
}

func (r *fakePaymentRepo) Store(_ context.Context, payment *models.Payment) error {
	if r.storeErr != nil {
		return r.storeErr
	}
	cp := *payment
	if payment.ProviderSessionID != nil {
		r.bySession[*payment.ProviderSessionID] = &cp
	}
	return nil
}

func (r *fakePaymentRepo) FindBySessionID(_ context.Context, sessionID string) (*models.Payment, error) {
	p, ok := r.bySession[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaymentRepo) SetStatusBySession(_ context.Context, sessionID string, to models.PaymentStatus) (bool, error) {
	p, ok := r.bySession[sessionID]
	if !ok || p.Status != models.PaymentPending {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (r *fakePaymentRepo) FindAllByUser(_ context.Context, userID int64) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range r.bySession {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeCheckout struct {
	err   error
	calls int
}

func (c *fakeCheckout) CreateSession(_ context.Context, taskID string, userID int64) (*payments.Session, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &payments.Session{
		ID:          "cs_test_1",
		URL:         "https://checkout.example.com/c/cs_test_1",
		AmountTotal: 999,
	}, nil
}

type fakeUserRepo struct {
	users map[int64]*models.User
}

func (r *fakeUserRepo) Create(user *models.User) error { return nil }
func (r *fakeUserRepo) GetByID(id int64) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}
func (r *fakeUserRepo) GetByEmail(email string) (*models.User, error) { return nil, nil }
func (r *fakeUserRepo) SetConfirmation(id int64, code string, expiresAt time.Time) error {
	return nil
}
func (r *fakeUserRepo) MarkVerified(id int64) error                                    { return nil }
func (r *fakeUserRepo) UpdateRefresh(id int64, token string, expiresAt time.Time) error { return nil }
func (r *fakeUserRepo) GetByRefreshToken(token string) (*models.User, error)           { return nil, nil }
func (r *fakeUserRepo) RotateRefresh(oldToken, newToken string, expiresAt time.Time) (*models.User, error) {
	return nil, nil
}

type fakeEmail struct {
	receipts []string
}

func (e *fakeEmail) SendConfirmationEmail(email, code string) error { return nil }
func (e *fakeEmail) SendReceiptEmail(email, taskTitle string) error {
	e.receipts = append(e.receipts, email)
	return nil
}

type paymentFixture struct {
	tasks    *fakeTaskRepo
	payments *fakePaymentRepo
	checkout *fakeCheckout
	email    *fakeEmail
	svc      PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		tasks:    newFakeTaskRepo(),
		payments: newFakePaymentRepo(),
		checkout: &fakeCheckout{},
		email:    &fakeEmail{},
	}
	users := &fakeUserRepo{users: map[int64]*models.User{
		42: {ID: 42, Email: "user@example.com"},
	}}
	f.svc = NewPaymentService(f.tasks, f.payments, users, f.checkout, f.email, nil, 0)
	return f
}

func (f *paymentFixture) seedTask(t *testing.T, evaluated, paid bool) *models.Task {
	t.Helper()
	task := &models.Task{
		ID:          "task-123",
		UserID:      42,
		Title:       "Binary Search",
		Description: "Implemented binary search with edge case handling.",
		IsPaid:      paid,
		CreatedAt:   time.Now(),
	}
	if evaluated {
		score := 8
		task.AIScore = &score
		task.Strengths = []string{"a", "b"}
		task.Improvements = []string{"c", "d"}
	}
	require.NoError(t, f.tasks.Store(context.Background(), task))
	return task
}

func completedEvent(sessionID string) *payments.Event {
	evt := &payments.Event{ID: "evt_1", Type: payments.EventCheckoutCompleted}
	evt.Data.Object = payments.EventSession{
		ID:       sessionID,
		Metadata: map[string]string{"task_id": "task-123", "user_id": "42"},
	}
	return evt
}

func TestRequestUnlock(t *testing.T) {
	f := newPaymentFixture()
	f.seedTask(t, true, false)

	resp, err := f.svc.RequestUnlock(context.Background(), 42, "task-123")
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", resp.SessionID)
	assert.Equal(t, "https://checkout.example.com/c/cs_test_1", resp.RedirectURL)

	stored, err := f.payments.FindBySessionID(context.Background(), "cs_test_1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.PaymentPending, stored.Status)
	assert.Equal(t, "task-123", stored.TaskID)
	assert.EqualValues(t, 999, stored.Amount)
}

func TestRequestUnlockPreconditions(t *testing.T) {
	t.Run("task not found", func(t *testing.T) {
		f := newPaymentFixture()
		_, err := f.svc.RequestUnlock(context.Background(), 42, "missing")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
		assert.Zero(t, f.checkout.calls)
	})

	t.Run("not owned", func(t *testing.T) {
		f := newPaymentFixture()
		f.seedTask(t, true, false)
		_, err := f.svc.RequestUnlock(context.Background(), 7, "task-123")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})

	t.Run("not evaluated yet", func(t *testing.T) {
		f := newPaymentFixture()
		f.seedTask(t, false, false)
		_, err := f.svc.RequestUnlock(context.Background(), 42, "task-123")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
		assert.Zero(t, f.checkout.calls)
	})

	t.Run("already unlocked", func(t *testing.T) {
		f := newPaymentFixture()
		f.seedTask(t, true, true)
		_, err := f.svc.RequestUnlock(context.Background(), 42, "task-123")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
		assert.Zero(t, f.checkout.calls)
	})
}

func TestRequestUnlockCheckoutFailure(t *testing.T) {
	f := newPaymentFixture()
	f.seedTask(t, true, false)
	f.checkout.err = fmt.Errorf("stripe status 500")

	_, err := f.svc.RequestUnlock(context.Background(), 42, "task-123")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindExternal, apperrors.KindOf(err))
	assert.Empty(t, f.payments.bySession)
}

func TestRequestUnlockStoreFailureSurfaces(t *testing.T) {
	f := newPaymentFixture()
	f.seedTask(t, true, false)
	f.payments.storeErr = fmt.Errorf("connection reset")

	_, err := f.svc.RequestUnlock(context.Background(), 42, "task-123")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindExternal, apperrors.KindOf(err))
}

func TestWebhookCompletedUnlocksTask(t *testing.T) {
	f := newPaymentFixture()
	f.seedTask(t, true, false)
	_, err := f.svc.RequestUnlock(context.Background(), 42, "task-123")
	require.NoError(t, err)

	f.svc.HandleWebhook(context.Background(), completedEvent("cs_test_1"))

	task, err := f.tasks.FindByID(context.Background(), "task-123", 42)
	require.NoError(t, err)
	assert.True(t, task.IsPaid)

	payment, err := f.payments.FindBySessionID(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, payment.Status)

	assert.Equal(t, []string{"user@example.com"}, f.email.receipts)
}

func TestWebhookCompletedReplayIsNoop(t *testing.T) {
	f := newPaymentFixture()
	f.seedTask(t, true, false)
	_, err := f.svc.RequestUnlock(context.Background(), 42, "task-123")
	require.NoError(t, err)

	f.svc.HandleWebhook(context.Background(), completedEvent("cs_test_1"))
	f.svc.HandleWebhook(context.Background(), completedEvent("cs_test_1"))

	task, err := f.tasks.FindByID(context.Background(), "task-123", 42)
	require.NoError(t, err)
	assert.True(t, task.IsPaid)
	assert.Len(t, f.email.receipts, 1) // receipt sent once
}

func TestWebhookCompletedMissingMetadata(t *testing.T) {
	f := newPaymentFixture()
	f.seedTask(t, true, false)
	_, err := f.svc.RequestUnlock(context.Background(), 42, "task-123")
	require.NoError(t, err)

	evt := completedEvent("cs_test_1")
	evt.Data.Object.Metadata = map[string]string{}
	f.svc.HandleWebhook(context.Background(), evt)

	task, err := f.tasks.FindByID(context.Background(), "task-123", 42)
	require.NoError(t, err)
	assert.False(t, task.IsPaid)

	payment, err := f.payments.FindBySessionID(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
}

func TestWebhookExpiredMarksFailed(t *testing.T) {
	f := newPaymentFixture()
	f.seedTask(t, true, false)
	_, err := f.svc.RequestUnlock(context.Background(), 42, "task-123")
	require.NoError(t, err)

	evt := completedEvent("cs_test_1")
	evt.Type = payments.EventCheckoutExpired
	f.svc.HandleWebhook(context.Background(), evt)

	payment, err := f.payments.FindBySessionID(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, payment.Status)

	task, err := f.tasks.FindByID(context.Background(), "task-123", 42)
	require.NoError(t, err)
	assert.False(t, task.IsPaid)
}

func TestWebhookUnknownEventIgnored(t *testing.T) {
	f := newPaymentFixture()
	f.seedTask(t, true, false)
	_, err := f.svc.RequestUnlock(context.Background(), 42, "task-123")
	require.NoError(t, err)

	evt := completedEvent("cs_test_1")
	evt.Type = "invoice.created"
	f.svc.HandleWebhook(context.Background(), evt)

	payment, err := f.payments.FindBySessionID(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
}
