package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/urna-api/internal/config"
	"github.com/gravadigital/urna-api/internal/logger"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

var (
	rtyAttempts = retry.Attempts(3)
	rtyDelay    = retry.Delay(100 * time.Millisecond)
	rtyErr      = retry.LastErrorOnly(true)
)

// New builds the broker selected by NOTIFY_BACKEND
func New(ctx context.Context, cfg *config.Config, db *gorm.DB) (Broker, error) {
	hub := NewHub(DefaultBuffer)

	switch cfg.Notify.Backend {
	case BackendMemory, "":
		return hub, nil
	case BackendPostgres:
		b, err := NewPostgresBroker(db, cfg.GetDatabaseURL(), cfg.Notify.Channel, hub)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendRedis:
		b, err := NewRedisBroker(ctx, RedisOptions{
			Addr:     cfg.Notify.RedisAddr,
			Password: cfg.Notify.RedisPassword,
			DB:       cfg.Notify.RedisDB,
		}, hub)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported notify backend: %s", cfg.Notify.Backend)
	}
}

// Recorder counts publish outcomes
type Recorder interface {
	IncNotificationPublished(backend string)
	IncNotificationFailed(backend string)
}

// Notifier publishes after a mutation has committed. Failures are retried,
// then logged and counted; they never reach the caller.
type Notifier struct {
	pub      Publisher
	backend  string
	recorder Recorder
	log      *log.Logger
}

func NewNotifier(pub Publisher, backend string, recorder Recorder) *Notifier {
	return &Notifier{
		pub:      pub,
		backend:  backend,
		recorder: recorder,
		log:      logger.Notify(backend),
	}
}

// Notify publishes e. The request context may already be cancelled once the
// response is written, so publishing detaches from its cancellation.
func (n *Notifier) Notify(ctx context.Context, e Event) {
	if n == nil || n.pub == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	err := retry.Do(func() error {
		return n.pub.Publish(ctx, e)
	}, retry.Context(ctx), rtyAttempts, rtyDelay, rtyErr,
		retry.OnRetry(func(attempt uint, err error) {
			n.log.Debug("Retrying publish", "attempt", attempt+1, "kind", e.Kind, "error", err)
		}))

	if err != nil {
		n.log.Error("Failed to publish event", "kind", e.Kind, "election_id", e.ElectionID, "error", err)
		if n.recorder != nil {
			n.recorder.IncNotificationFailed(n.backend)
		}
		return
	}
	if n.recorder != nil {
		n.recorder.IncNotificationPublished(n.backend)
	}
}
