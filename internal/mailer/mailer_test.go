package mailer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/studyroom-service/internal/config"
	"github.com/SAP-F-2025/studyroom-service/internal/events"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/studyroom-service/internal/testutil"
)

type flakySender struct {
	failures int32
	calls    atomic.Int32
	last     atomic.Value
}

func (s *flakySender) Send(ctx context.Context, email Email) error {
	n := s.calls.Add(1)
	s.last.Store(email)
	if n <= s.failures {
		return errors.New("smtp unavailable")
	}
	return nil
}

func TestRenderPasswordReset(t *testing.T) {
	email := RenderPasswordReset("noreply@studyroom.local", "alice@example.com", "alice", "http://localhost/auth/reset_password/tok", time.Hour)

	assert.Equal(t, "Password Reset Request", email.Subject)
	assert.Equal(t, "alice@example.com", email.To)
	assert.True(t, strings.HasPrefix(email.Body, "Hello alice,"))
	assert.Contains(t, email.Body, "http://localhost/auth/reset_password/tok")
	assert.Contains(t, email.Body, "This link will expire in 1 hour.")
}

func TestHumanizeTTL(t *testing.T) {
	assert.Equal(t, "2 hours", humanizeTTL(2*time.Hour))
	assert.Equal(t, "30 minutes", humanizeTTL(30*time.Minute))
	assert.Equal(t, "1 minute", humanizeTTL(time.Minute))
}

func TestNewSenderFallsBackToLog(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, isLog := NewSender(config.MailConfig{}, logger).(*LogSender)
	assert.True(t, isLog)
	_, isSMTP := NewSender(config.MailConfig{Host: "smtp.example.com", Port: 587}, logger).(*SMTPSender)
	assert.True(t, isSMTP)
}

func startWorker(t *testing.T, sender Sender, maxRetries int) (repositories.EmailDeliveryRepository, events.EventPublisher) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testutil.NewTestDB(t)
	deliveries := postgres.NewEmailDeliveryPostgreSQL(db)

	ps, err := events.NewPubSub(config.QueueConfig{}, logger)
	require.NoError(t, err)

	worker, err := NewWorker(ps.Subscriber, ps.Logger, deliveries, sender, WorkerConfig{
		Topic:         "mail.test",
		From:          "noreply@studyroom.local",
		TokenTTL:      time.Hour,
		MaxRetries:    maxRetries,
		RetryInterval: time.Millisecond,
	}, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = worker.Run(ctx) }()
	<-worker.Running()

	t.Cleanup(func() {
		cancel()
		_ = worker.Close()
		_ = ps.Close()
	})

	return deliveries, events.NewWatermillEventPublisher(ps.Publisher, logger)
}

func enqueue(t *testing.T, deliveries repositories.EmailDeliveryRepository, publisher events.EventPublisher) uint {
	t.Helper()
	ctx := context.Background()

	delivery := &models.EmailDelivery{Recipient: "alice@example.com", Kind: models.EmailPasswordReset}
	require.NoError(t, deliveries.Create(ctx, nil, delivery))

	event, err := events.NewEvent(events.TypePasswordResetRequested, events.PasswordResetRequested{
		DeliveryID: delivery.ID,
		Email:      "alice@example.com",
		Username:   "alice",
		ResetURL:   "http://localhost/auth/reset_password/tok",
	})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, "mail.test", event))
	return delivery.ID
}

func waitForStatus(t *testing.T, deliveries repositories.EmailDeliveryRepository, id uint, status models.DeliveryStatus) *models.EmailDelivery {
	t.Helper()
	var got *models.EmailDelivery
	require.Eventually(t, func() bool {
		d, err := deliveries.GetByID(context.Background(), nil, id)
		if err != nil {
			return false
		}
		got = d
		return d.Status == status
	}, 5*time.Second, 10*time.Millisecond)
	return got
}

func TestWorker_SendsAndRecordsDelivery(t *testing.T) {
	sender := &flakySender{}
	deliveries, publisher := startWorker(t, sender, 3)

	id := enqueue(t, deliveries, publisher)
	got := waitForStatus(t, deliveries, id, models.DeliverySent)

	assert.Equal(t, 1, got.Attempts)
	assert.Nil(t, got.LastError)
	email := sender.last.Load().(Email)
	assert.Equal(t, "alice@example.com", email.To)
}

func TestWorker_RetriesTransientFailures(t *testing.T) {
	sender := &flakySender{failures: 2}
	deliveries, publisher := startWorker(t, sender, 3)

	id := enqueue(t, deliveries, publisher)
	got := waitForStatus(t, deliveries, id, models.DeliverySent)

	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, int32(3), sender.calls.Load())
}

func TestWorker_MarksFailedAfterRetries(t *testing.T) {
	sender := &flakySender{failures: 100}
	deliveries, publisher := startWorker(t, sender, 2)

	id := enqueue(t, deliveries, publisher)
	got := waitForStatus(t, deliveries, id, models.DeliveryFailed)

	assert.Equal(t, 3, got.Attempts)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "smtp unavailable")

	// the task is acknowledged, so no further attempts follow
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(3), sender.calls.Load())
}
