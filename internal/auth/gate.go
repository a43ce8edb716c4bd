package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IdentityClient mints one-time login URLs at the external identity service.
type IdentityClient interface {
	IssueLoginLink(ctx context.Context, userID, nonce string) (string, error)
}

// ErrAlreadyAuthenticated rejects link issuance for live sessions.
var ErrAlreadyAuthenticated = errors.New("session already authenticated")

// Gate is the only writer of session state. It validates and advances a
// user's authentication against the external identity service.
type Gate struct {
	store    Store
	identity IdentityClient
	tokenTTL time.Duration
	now      func() time.Time
}

func NewGate(store Store, identity IdentityClient, tokenTTL time.Duration) *Gate {
	return &Gate{
		store:    store,
		identity: identity,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Check returns the session's effective state, evaluating expiry lazily.
func (g *Gate) Check(ctx context.Context, userID string) (State, error) {
	s, err := g.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.EffectiveState(g.now()), nil
}

// IssueLink transitions unauthenticated or expired sessions to link_issued
// and returns a fresh one-time login URL bound to the user. Re-issuing while
// a link is already pending replaces the pending nonce.
func (g *Gate) IssueLink(ctx context.Context, userID string) (string, error) {
	s, err := g.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if s.EffectiveState(g.now()) == StateAuthenticated {
		return "", ErrAlreadyAuthenticated
	}

	nonce := uuid.NewString()
	url, err := g.identity.IssueLoginLink(ctx, userID, nonce)
	if err != nil {
		return "", fmt.Errorf("issue login link: %w", err)
	}

	s.UserID = userID
	s.State = StateLinkIssued
	s.LinkNonce = nonce
	s.Token = ""
	s.UpdatedAt = g.now()
	if err := g.store.Put(ctx, s); err != nil {
		return "", err
	}
	return url, nil
}

// Confirm is called by the identity-service callback once the user completed
// the web login. The callback is authoritative, so it is honored from any
// state, not only link_issued.
func (g *Gate) Confirm(ctx context.Context, userID, token, email string, expiry time.Time) (Session, error) {
	s, err := g.store.Get(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if expiry.IsZero() {
		expiry = g.now().Add(g.tokenTTL)
	}

	s.UserID = userID
	s.State = StateAuthenticated
	s.Token = token
	s.Email = email
	s.Expiry = expiry
	s.LinkNonce = ""
	s.UpdatedAt = g.now()
	if err := g.store.Put(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Revoke logs the user out. The session is state-transitioned, never deleted.
func (g *Gate) Revoke(ctx context.Context, userID string) error {
	s, err := g.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if s.EffectiveState(g.now()) != StateAuthenticated {
		return ErrAuthRequired
	}
	s.State = StateExpired
	s.Token = ""
	s.UpdatedAt = g.now()
	return g.store.Put(ctx, s)
}

// Session returns the stored session for inspection endpoints.
func (g *Gate) Session(ctx context.Context, userID string) (Session, error) {
	return g.store.Get(ctx, userID)
}
