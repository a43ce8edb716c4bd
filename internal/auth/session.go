package auth

import (
	"context"
	"errors"
	"time"
)

// State is the authentication lifecycle position of one user's session.
// Transitions move forward only, except expired -> link_issued on re-auth.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateLinkIssued      State = "link_issued"
	StateAuthenticated   State = "authenticated"
	StateExpired         State = "expired"
)

// ErrAuthRequired gates every read path that needs an authenticated session.
var ErrAuthRequired = errors.New("authentication required")

// Session is per-user authentication state. Sessions are never deleted, only
// state-transitioned; logout and token revocation land on StateExpired.
type Session struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token,omitempty"`
	Expiry    time.Time `json:"expiry,omitempty"`
	State     State     `json:"state"`
	Email     string    `json:"email,omitempty"`
	LinkNonce string    `json:"link_nonce,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveState evaluates expiry lazily at read time. There is no background
// sweep; every access path must go through this.
func (s Session) EffectiveState(now time.Time) State {
	if s.State == StateAuthenticated && now.After(s.Expiry) {
		return StateExpired
	}
	if s.State == "" {
		return StateUnauthenticated
	}
	return s.State
}

// Store persists sessions keyed by user. Absence is not an error: Get returns
// a default unauthenticated session for unknown users.
type Store interface {
	Get(ctx context.Context, userID string) (Session, error)
	Put(ctx context.Context, s Session) error
}
