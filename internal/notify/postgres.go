package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/gravadigital/urna-api/internal/logger"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// PostgresBroker publishes with pg_notify and re-broadcasts every notification
// received on the channel into the local hub, so all instances see all events.
type PostgresBroker struct {
	db       *gorm.DB
	channel  string
	listener *pq.Listener
	hub      *Hub
	log      *log.Logger
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewPostgresBroker starts listening on channel using its own connection to dsn
func NewPostgresBroker(db *gorm.DB, dsn, channel string, hub *Hub) (*PostgresBroker, error) {
	l := logger.Notify("postgres")

	listener := pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			l.Info("Listener connected", "channel", channel)
		case pq.ListenerEventDisconnected:
			l.Warn("Listener disconnected", "channel", channel, "error", err)
		case pq.ListenerEventReconnected:
			l.Info("Listener reconnected", "channel", channel)
		case pq.ListenerEventConnectionAttemptFailed:
			l.Error("Listener connection attempt failed", "channel", channel, "error", err)
		}
	})

	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	b := &PostgresBroker{
		db:       db,
		channel:  channel,
		listener: listener,
		hub:      hub,
		log:      l,
		done:     make(chan struct{}),
	}

	b.wg.Add(1)
	go b.run()

	l.Info("PostgreSQL notification broker started", "channel", channel)
	return b, nil
}

func (b *PostgresBroker) Name() string {
	return "postgres"
}

func (b *PostgresBroker) Publish(ctx context.Context, e Event) error {
	payload, err := e.encode()
	if err != nil {
		return err
	}
	if err := b.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", b.channel, string(payload)).Error; err != nil {
		return fmt.Errorf("pg_notify failed: %w", err)
	}
	return nil
}

func (b *PostgresBroker) Subscribe(electionID uuid.UUID) (<-chan Event, func()) {
	return b.hub.Subscribe(electionID)
}

func (b *PostgresBroker) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case n, ok := <-b.listener.Notify:
			if !ok {
				return
			}
			// nil after a reconnect; notifications sent meanwhile are lost
			if n == nil {
				continue
			}
			e, err := decodeEvent([]byte(n.Extra))
			if err != nil {
				b.log.Warn("Ignoring malformed notification", "error", err)
				continue
			}
			b.hub.Broadcast(e)
		case <-ticker.C:
			go func() {
				if err := b.listener.Ping(); err != nil {
					b.log.Warn("Listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (b *PostgresBroker) Close() error {
	close(b.done)
	err := b.listener.Close()
	b.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close listener: %w", err)
	}
	return b.hub.Close()
}
