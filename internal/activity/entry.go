// Package activity is the audit trail. Entries are queued by the request path
// and persisted by a consumer, so a failing store never reaches the caller.
package activity

import (
	"context"
	"time"
)

// Type is the kind of action recorded.
type Type string

const (
	TypeLogin                Type = "login"
	TypeLogout               Type = "logout"
	TypeLoginFailed          Type = "login_failed"
	TypeAccountDisabled      Type = "account_disabled"
	TypeRequestCreated       Type = "request_created"
	TypeRequestUpdated       Type = "request_updated"
	TypeRequestCancelled     Type = "request_cancelled"
	TypeRequestStatusChanged Type = "request_status_changed"
	TypeQRVerified           Type = "qr_verified"
	TypeQRVerificationFailed Type = "qr_verification_failed"
	TypeAttachmentUploaded   Type = "attachment_uploaded"
	TypeAnnouncementCreated  Type = "announcement_created"
	TypeLogsPurged           Type = "logs_purged"
)

// Category groups types for filtering.
type Category string

const (
	CategoryAuth         Category = "auth"
	CategoryRequest      Category = "request"
	CategoryVerification Category = "verification"
	CategoryAdmin        Category = "admin"
	CategorySystem       Category = "system"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

var defaultCategory = map[Type]Category{
	TypeLogin:                CategoryAuth,
	TypeLogout:               CategoryAuth,
	TypeLoginFailed:          CategoryAuth,
	TypeAccountDisabled:      CategoryAuth,
	TypeRequestCreated:       CategoryRequest,
	TypeRequestUpdated:       CategoryRequest,
	TypeRequestCancelled:     CategoryRequest,
	TypeRequestStatusChanged: CategoryAdmin,
	TypeQRVerified:           CategoryVerification,
	TypeQRVerificationFailed: CategoryVerification,
	TypeAttachmentUploaded:   CategoryRequest,
	TypeAnnouncementCreated:  CategoryAdmin,
	TypeLogsPurged:           CategorySystem,
}

var defaultSeverity = map[Type]Severity{
	TypeLoginFailed:          SeverityWarning,
	TypeAccountDisabled:      SeverityWarning,
	TypeQRVerificationFailed: SeverityWarning,
	TypeLogsPurged:           SeverityCritical,
}

// Session describes the client that caused an entry.
type Session struct {
	ID        string `json:"sessionId,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	URL       string `json:"url,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	IP        string `json:"ip,omitempty"`
}

// Entry is one append-only audit record.
type Entry struct {
	ID          string         `json:"id,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	UserID      string         `json:"userId,omitempty"`
	UserEmail   string         `json:"userEmail,omitempty"`
	UserName    string         `json:"userName,omitempty"`
	Role        string         `json:"role,omitempty"`
	Type        Type           `json:"type"`
	Description string         `json:"description"`
	Category    Category       `json:"category"`
	Severity    Severity       `json:"severity"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Session     Session        `json:"session"`
}

type sessionKey struct{}

// WithSession attaches client metadata to ctx for later entries.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored by WithSession.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// Actor identifies the user an entry is attributed to.
type Actor struct {
	UserID string
	Email  string
	Role   string
}

type actorKey struct{}

// WithActor attaches the authenticated user to ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the user stored by WithActor.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
