// Package bootstrap opens the backends selected by configuration. Both the
// API and the activity worker start from here.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/activity"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/config"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/gcp"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/queue"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/store"
)

// Backends are the opened dependencies. Close releases all of them.
type Backends struct {
	Store   docstore.Store
	Queue   queue.Queue
	Archive activity.Archiver

	// Health checks, nil when the backend is not in use.
	DB    *store.DB
	Redis *store.Redis

	closers []func() error
}

// Open connects every backend named in cfg.
func Open(ctx context.Context, cfg config.App) (*Backends, error) {
	b := &Backends{}
	switch cfg.StoreBackend {
	case "firestore":
		client, err := gcp.NewFirestoreClient(ctx, gcp.FirestoreOptions{
			ProjectID:       cfg.ProjectID,
			DatabaseID:      cfg.FirestoreDatabase,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		b.Store = docstore.NewFirestore(client)
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		pg := docstore.NewPostgres(db.Client)
		if err := pg.Migrate(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("migrate documents table: %w", err)
		}
		b.DB, b.Store = db, pg
	default:
		slog.Warn("using in-memory document store; data is lost on restart")
		b.Store = docstore.NewMemory()
	}

	if cfg.QueueBackend == "redis" {
		b.Redis = store.NewRedis(cfg.RedisAddr)
		b.closers = append(b.closers, b.Redis.Close)
		b.Queue = queue.NewRedisQueue(b.Redis.Client, cfg.QueueKey)
	} else {
		b.Queue = queue.NewInMemory(1024)
	}

	if cfg.ArchiveBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		b.Archive = gcp.NewArchive(client, cfg.ArchiveBucket)
	}
	return b, nil
}

// Close releases backends in reverse order of opening.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			slog.Warn("closing backend failed", "error", err)
		}
	}
	b.closers = nil
}

// Healthy reports the reachability of each networked backend in use.
func (b *Backends) Healthy(ctx context.Context) map[string]bool {
	out := map[string]bool{}
	if b.DB != nil {
		out["db"] = b.DB.Healthy(ctx)
	}
	if b.Redis != nil {
		out["redis"] = b.Redis.Healthy(ctx)
	}
	return out
}

// QueueDepth reports the entries waiting in an in-process queue. Redis
// queues report false.
func (b *Backends) QueueDepth() (int, bool) {
	q, ok := b.Queue.(interface{ Len() int })
	if !ok {
		return 0, false
	}
	return q.Len(), true
}

// DrainErrors logs activity logging failures until ctx ends.
func DrainErrors(ctx context.Context, logger *activity.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-logger.Errors():
			slog.Debug("activity logging failed", "error", err)
		}
	}
}
