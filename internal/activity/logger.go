package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/metrics"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/queue"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/realtime"
)

// MessageType tags activity entries on the shared queue.
const MessageType = "activity"

const publishTimeout = 2 * time.Second

// Archiver stores purged entries before they are deleted.
type Archiver interface {
	Put(ctx context.Context, objectName string, content []byte) error
}

// Options are the optional collaborators of a Logger.
type Options struct {
	Hub         realtime.Publisher
	Metrics     *metrics.Metrics
	Archive     Archiver
	ErrorBuffer int
}

// Logger records audit entries without blocking or failing its callers.
type Logger struct {
	store   docstore.Store
	queue   queue.Queue
	hub     realtime.Publisher
	metrics *metrics.Metrics
	archive Archiver
	errs    chan error
	now     func() time.Time
}

// New creates a logger publishing to q and persisting into store.
func New(store docstore.Store, q queue.Queue, opts Options) *Logger {
	if opts.ErrorBuffer <= 0 {
		opts.ErrorBuffer = 64
	}
	if opts.Hub == nil {
		opts.Hub = realtime.Discard{}
	}
	return &Logger{
		store:   store,
		queue:   q,
		hub:     opts.Hub,
		metrics: opts.Metrics,
		archive: opts.Archive,
		errs:    make(chan error, opts.ErrorBuffer),
		now:     docstore.Now,
	}
}

// Errors exposes failures of the non-critical logging path. The channel is
// buffered and errors are dropped when nobody drains it.
func (l *Logger) Errors() <-chan error {
	return l.errs
}

// Log enriches e from ctx and queues it. It returns immediately and never
// reports failure to the caller.
func (l *Logger) Log(ctx context.Context, e Entry) {
	if l == nil {
		return
	}
	l.prepare(ctx, &e)

	body, err := json.Marshal(e)
	if err != nil {
		l.report("encode", fmt.Errorf("activity: encode %s: %w", e.Type, err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := l.queue.Publish(pubCtx, queue.Message{Type: MessageType, Body: body}); err != nil {
		l.report("publish", fmt.Errorf("activity: publish %s: %w", e.Type, err))
	}
}

func (l *Logger) prepare(ctx context.Context, e *Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	if e.Category == "" {
		e.Category = defaultCategory[e.Type]
		if e.Category == "" {
			e.Category = CategorySystem
		}
	}
	if e.Severity == "" {
		e.Severity = defaultSeverity[e.Type]
		if e.Severity == "" {
			e.Severity = SeverityInfo
		}
	}
	if s, ok := SessionFrom(ctx); ok {
		if e.Session.ID == "" {
			e.Session.ID = s.ID
		}
		if e.Session.UserAgent == "" {
			e.Session.UserAgent = s.UserAgent
		}
		if e.Session.URL == "" {
			e.Session.URL = s.URL
		}
		if e.Session.Referrer == "" {
			e.Session.Referrer = s.Referrer
		}
		if e.Session.IP == "" {
			e.Session.IP = s.IP
		}
	}
	if a, ok := ActorFrom(ctx); ok && e.UserID == "" {
		e.UserID = a.UserID
		if e.UserEmail == "" {
			e.UserEmail = a.Email
		}
		if e.Role == "" {
			e.Role = a.Role
		}
	}
}

// Run persists queued entries until ctx ends. Each entry is written once;
// failures are reported and not retried.
func (l *Logger) Run(ctx context.Context) error {
	msgs, err := l.queue.Consume(ctx)
	if err != nil {
		return fmt.Errorf("activity: consume: %w", err)
	}
	slog.Info("activity consumer started")
	for msg := range msgs {
		if msg.Type != MessageType {
			continue
		}
		var e Entry
		if err := json.Unmarshal(msg.Body, &e); err != nil {
			l.report("decode", fmt.Errorf("activity: decode queued entry: %w", err))
			continue
		}
		l.write(ctx, e)
	}
	slog.Info("activity consumer stopped")
	return nil
}

func (l *Logger) write(ctx context.Context, e Entry) {
	if e.UserID != "" && (e.Role == "" || e.UserName == "") {
		l.enrich(ctx, &e)
	}
	e.ID = ""
	doc, err := docstore.Encode(e)
	if err != nil {
		l.report("encode", fmt.Errorf("activity: encode %s: %w", e.Type, err))
		return
	}
	id, err := l.store.Create(ctx, docstore.ActivityLogs, "", doc)
	if err != nil {
		l.report("write", fmt.Errorf("activity: write %s: %w", e.Type, err))
		return
	}
	e.ID = id
	l.metrics.ActivityWrite()
	l.hub.Publish(realtime.Event{Type: "activity_logged", Collection: docstore.ActivityLogs, ID: id, Data: e})
}

// enrich fills role and name from the user profile. Lookup failures are ignored.
func (l *Logger) enrich(ctx context.Context, e *Entry) {
	profile, err := l.store.Get(ctx, docstore.Users, e.UserID)
	if err != nil {
		slog.Debug("activity user lookup failed", "userId", e.UserID, "error", err)
		return
	}
	if e.Role == "" {
		e.Role, _ = profile["role"].(string)
	}
	if e.UserEmail == "" {
		e.UserEmail, _ = profile["email"].(string)
	}
	if e.UserName == "" {
		e.UserName = profileName(profile)
	}
}

func profileName(profile docstore.Doc) string {
	for _, key := range []string{"name", "displayName", "fullName"} {
		if s, ok := profile[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	first, _ := profile["firstName"].(string)
	last, _ := profile["lastName"].(string)
	return strings.TrimSpace(first + " " + last)
}

func (l *Logger) report(stage string, err error) {
	slog.Warn("activity log failure", "stage", stage, "error", err)
	l.metrics.ActivityFailed(stage)
	select {
	case l.errs <- err:
	default:
	}
}
