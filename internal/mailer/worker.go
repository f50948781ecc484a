package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/SAP-F-2025/studyroom-service/internal/config"
	"github.com/SAP-F-2025/studyroom-service/internal/events"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
)

const handlerName = "password_reset_mailer"

// errUndeliverable marks messages that can never be processed
var errUndeliverable = errors.New("undeliverable mail task")

// WorkerConfig configures the mail worker
type WorkerConfig struct {
	Topic         string
	From          string
	TokenTTL      time.Duration
	MaxRetries    int
	RetryInterval time.Duration
}

// Worker consumes mail tasks, sends them and records the outcome
type Worker struct {
	router     *message.Router
	subscriber message.Subscriber
	deliveries repositories.EmailDeliveryRepository
	sender     Sender
	cfg        WorkerConfig
	logger     *slog.Logger
}

// NewWorkerConfig derives the worker settings from the service configuration
func NewWorkerConfig(cfg *config.Config) WorkerConfig {
	return WorkerConfig{
		Topic:         cfg.Queue.MailTopic,
		From:          cfg.Mail.DefaultSender,
		TokenTTL:      cfg.ResetTokenTTL,
		MaxRetries:    cfg.Queue.MaxRetries,
		RetryInterval: cfg.Queue.RetryInterval,
	}
}

func NewWorker(subscriber message.Subscriber, wmLogger watermill.LoggerAdapter, deliveries repositories.EmailDeliveryRepository, sender Sender, cfg WorkerConfig, logger *slog.Logger) (*Worker, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create mail router: %w", err)
	}

	w := &Worker{
		router:     router,
		subscriber: subscriber,
		deliveries: deliveries,
		sender:     sender,
		cfg:        cfg,
		logger:     logger.With("component", "mailer"),
	}

	// first added runs outermost
	router.AddMiddleware(
		w.giveUp,
		middleware.Retry{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.RetryInterval,
			MaxInterval:     10 * cfg.RetryInterval,
			Multiplier:      2,
			Logger:          wmLogger,
			ShouldRetry: func(params middleware.RetryParams) bool {
				return !errors.Is(params.Err, errUndeliverable)
			},
		}.Middleware,
		middleware.Recoverer,
	)
	router.AddNoPublisherHandler(handlerName, cfg.Topic, subscriber, w.handle)

	return w, nil
}

// Run blocks until ctx is cancelled or the router is closed
func (w *Worker) Run(ctx context.Context) error {
	return w.router.Run(ctx)
}

// Running is closed once the worker consumes messages
func (w *Worker) Running() chan struct{} {
	return w.router.Running()
}

func (w *Worker) Close() error {
	return w.router.Close()
}

func (w *Worker) handle(msg *message.Message) error {
	task, err := decodeTask(msg)
	if err != nil {
		return err
	}

	ctx := msg.Context()
	email := RenderPasswordReset(w.cfg.From, task.Email, task.Username, task.ResetURL, w.cfg.TokenTTL)

	if sendErr := w.sender.Send(ctx, email); sendErr != nil {
		if err := w.deliveries.RecordAttempt(ctx, nil, task.DeliveryID, models.DeliveryQueued, sendErr); err != nil {
			w.logger.Error("Failed to record mail attempt", "delivery_id", task.DeliveryID, "error", err)
		}
		return sendErr
	}

	if err := w.deliveries.RecordAttempt(ctx, nil, task.DeliveryID, models.DeliverySent, nil); err != nil {
		w.logger.Error("Failed to record mail delivery", "delivery_id", task.DeliveryID, "error", err)
	}
	w.logger.Info("Password reset email sent", "delivery_id", task.DeliveryID)
	return nil
}

// giveUp acknowledges a task once retries are exhausted and marks its delivery failed
func (w *Worker) giveUp(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		produced, err := h(msg)
		if err == nil {
			return produced, nil
		}

		task, decodeErr := decodeTask(msg)
		if decodeErr != nil {
			w.logger.Error("Dropping malformed mail task", "message_id", msg.UUID, "error", decodeErr)
			return nil, nil
		}

		if markErr := w.deliveries.MarkFailed(msg.Context(), nil, task.DeliveryID, err); markErr != nil {
			w.logger.Error("Failed to mark mail delivery failed", "delivery_id", task.DeliveryID, "error", markErr)
		}
		w.logger.Error("Password reset email failed", "delivery_id", task.DeliveryID, "error", err)
		return nil, nil
	}
}

func decodeTask(msg *message.Message) (*events.PasswordResetRequested, error) {
	event, err := events.DecodeMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUndeliverable, err)
	}
	if event.Type != events.TypePasswordResetRequested {
		return nil, fmt.Errorf("%w: unexpected event type %q", errUndeliverable, event.Type)
	}

	var task events.PasswordResetRequested
	if err := event.Decode(&task); err != nil {
		return nil, fmt.Errorf("%w: %v", errUndeliverable, err)
	}
	if task.DeliveryID == 0 || task.Email == "" {
		return nil, fmt.Errorf("%w: missing delivery id or recipient", errUndeliverable)
	}
	return &task, nil
}
