package ports

import (
	"context"
	"time"

	"handswers-backend/domain/events"
)

// ChatTurn is one turn sent to the tutoring model.
type ChatTurn struct {
	Role string // "user" or "model"
	Text string
}

// Tutor generates the model's reply to a conversation.
type Tutor interface {
	Reply(ctx context.Context, turns []ChatTurn) (string, error)
}

// EventPublisher announces domain events. Publishing is fire and
// forget from the caller's point of view.
type EventPublisher interface {
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}

// Lock is a held lease.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker grants short leases on named resources.
type Locker interface {
	// TryAcquire returns ErrLockHeld when another owner holds the lease.
	TryAcquire(ctx context.Context, resource, owner string, ttl time.Duration) (Lock, error)
}

// BusinessMetrics records counters and latencies for dashboards.
type BusinessMetrics interface {
	RecordBusinessMetric(ctx context.Context, name string, value float64, dims map[string]string)
	RecordLatency(ctx context.Context, operation string, d time.Duration)
}

// Identity is what a third-party login vouches for.
type Identity struct {
	Email   string
	Name    string
	Picture string
}

// IdentityProvider turns an OAuth authorization code into a verified
// identity.
type IdentityProvider interface {
	Exchange(ctx context.Context, code string) (Identity, error)
}

// Session is the claim set carried by access and refresh tokens.
type Session struct {
	UserID    string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name,omitempty"`
	Picture   string   `json:"picture,omitempty"`
	Roles     []string `json:"roles"`
	ExpiresAt int64    `json:"exp,omitempty"`
}

// TokenPair is the access and refresh token issued at login.
type TokenPair struct {
	Access  string
	Refresh string
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	// IssuePair signs both tokens and returns the session with the
	// access expiry filled in.
	IssuePair(s Session) (TokenPair, Session, error)
	IssueAccess(s Session) (string, Session, error)
	VerifyRefresh(token string) (Session, error)
}
