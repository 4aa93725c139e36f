package deps

import (
	"context"
	"time"

	"github.com/bwise1/bookgroups/config"
	"github.com/bwise1/bookgroups/internal/db"
	"github.com/bwise1/bookgroups/internal/http/backend"
	"github.com/bwise1/bookgroups/internal/query"
	"github.com/bwise1/bookgroups/internal/session"
	"github.com/bwise1/bookgroups/internal/view"
	"github.com/bwise1/bookgroups/pkg/logger"
	"github.com/bwise1/bookgroups/util/storage"
	"github.com/bwise1/bookgroups/util/websockets"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Dependencies struct {
	DB        *db.DB
	Backend   *backend.Client
	Cache     *query.Client
	Sessions  session.Store
	Locks     *session.Locks
	WebSocket *websockets.WebSocketManager
	Media     *storage.Media
	Views     *view.Renderer
}

// New wires every dependency from cfg. Sessions are kept in Postgres when a
// DSN is configured and in memory otherwise.
func New(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	client, err := backend.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	if err != nil {
		return nil, err
	}
	client.RequestSource = cfg.RequestSource
	if cfg.PageLimit > 0 {
		client.PageLimit = cfg.PageLimit
	}

	media, err := storage.NewMedia(cfg)
	if err != nil {
		return nil, err
	}
	views, err := view.New(media)
	if err != nil {
		return nil, errors.Wrap(err, "load templates")
	}

	d := &Dependencies{
		Backend:   client,
		Cache:     query.NewClient(cfg.QueryStaleTime),
		Locks:     session.NewLocks(),
		WebSocket: websockets.NewWebSocketManager(),
		Media:     media,
		Views:     views,
	}
	d.Cache.OnInvalidate(func(k query.Key) {
		d.WebSocket.NotifyInvalidated(k)
	})

	if cfg.Dsn == "" {
		logger.FromContext(ctx).Info("DSN not set, keeping sessions in memory")
		d.Sessions = session.NewMemoryStore()
		return d, nil
	}

	database, err := db.New(ctx, cfg.Dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	store, err := session.NewPgxStore(ctx, database)
	if err != nil {
		database.Close()
		return nil, err
	}
	d.DB = database
	d.Sessions = store
	return d, nil
}

// Run starts the background workers and blocks until ctx is done.
func (d *Dependencies) Run(ctx context.Context, gcTime time.Duration) {
	go d.WebSocket.Run(ctx)

	if gcTime <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(gcTime / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.Cache.RemoveOlderThan(gcTime); n > 0 {
				logger.FromContext(ctx).Debug("query cache collected", zap.Int("entries", n))
			}
		}
	}
}

func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
