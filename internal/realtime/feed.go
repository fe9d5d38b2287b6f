// Package realtime relays work-order row changes published by Postgres
// LISTEN/NOTIFY to in-process subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-admin-api/internal/models"
)

// OpResync is delivered after the listener reconnects, since notifications
// sent while disconnected are lost.
const OpResync = "resync"

type notificationSource interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

type feedMetrics interface {
	RecordFeedEvent(op string)
}

// Config tunes the feed.
type Config struct {
	Channel      string
	PingInterval time.Duration
}

// Feed fans work-order notifications out to subscribers.
type Feed struct {
	source  notificationSource
	cfg     Config
	metrics feedMetrics
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.RWMutex
	nextID int
	subs   map[int]func(models.WorkOrderChange)
}

func NewFeed(source notificationSource, cfg Config, metrics feedMetrics, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Channel == "" {
		cfg.Channel = "workorder_changes"
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 90 * time.Second
	}
	return &Feed{
		source:  source,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		subs:    make(map[int]func(models.WorkOrderChange)),
	}
}

// NewPQListener opens a reconnecting pq listener on dsn.
func NewPQListener(dsn string, minReconnect, maxReconnect time.Duration, logger *zap.Logger) *pq.Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return pq.NewListener(dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			logger.Info("feed listener connected")
		case pq.ListenerEventDisconnected:
			logger.Warn("feed listener disconnected", zap.Error(err))
		case pq.ListenerEventReconnected:
			logger.Info("feed listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			logger.Warn("feed listener connection attempt failed", zap.Error(err))
		}
	})
}

// Subscribe registers fn for every change. The returned func removes it.
func (f *Feed) Subscribe(fn func(models.WorkOrderChange)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// Subscribers reports the number of registered callbacks.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Run listens on the configured channel and dispatches notifications until
// ctx is cancelled. The source is closed on return.
func (f *Feed) Run(ctx context.Context) error {
	if err := f.source.Listen(f.cfg.Channel); err != nil {
		return err
	}
	defer func() {
		if err := f.source.Close(); err != nil {
			f.logger.Warn("feed listener close failed", zap.Error(err))
		}
	}()
	f.logger.Info("feed listening", zap.String("channel", f.cfg.Channel))

	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()

	notifications := f.source.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			f.handle(n)
		case <-ticker.C:
			go func() {
				if err := f.source.Ping(); err != nil {
					f.logger.Warn("feed ping failed", zap.Error(err))
				}
			}()
		}
	}
}

func (f *Feed) handle(n *pq.Notification) {
	// pq sends nil after re-establishing the connection
	if n == nil {
		f.Publish(models.WorkOrderChange{Op: OpResync})
		return
	}
	change, err := decodeChange(n.Extra)
	if err != nil {
		f.logger.Warn("feed payload rejected", zap.String("payload", n.Extra), zap.Error(err))
		return
	}
	f.logger.Debug("feed notification", zap.String("op", change.Op), zap.String("id", change.ID))
	f.Publish(change)
}

// Publish delivers change to every subscriber without waiting for them.
func (f *Feed) Publish(change models.WorkOrderChange) {
	if change.ReceivedAt.IsZero() {
		change.ReceivedAt = f.now().UTC()
	}
	if f.metrics != nil {
		f.metrics.RecordFeedEvent(change.Op)
	}

	f.mu.RLock()
	callbacks := make([]func(models.WorkOrderChange), 0, len(f.subs))
	for _, fn := range f.subs {
		callbacks = append(callbacks, fn)
	}
	f.mu.RUnlock()

	for _, fn := range callbacks {
		go fn(change)
	}
}

func decodeChange(payload string) (models.WorkOrderChange, error) {
	var change models.WorkOrderChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return models.WorkOrderChange{}, err
	}
	change.Op = strings.ToLower(strings.TrimSpace(change.Op))
	if change.Op == "" {
		change.Op = "update"
	}
	return change, nil
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// InvalidateOnChange drops cached dashboard aggregates on every change and
// returns the unsubscribe func.
func InvalidateOnChange(f *Feed, cache cacheInvalidator, timeout time.Duration) func() {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return f.Subscribe(func(models.WorkOrderChange) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		cache.Invalidate(ctx)
	})
}
