package dialogue

import (
	"context"
	"time"

	"github.com/minervabot/minerva/internal/nlp"
)

// Role marks who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one stored message of a conversation.
type Turn struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
	Intent    nlp.Intent   `json:"intent,omitempty"`
	Entities  []nlp.Entity `json:"entities,omitempty"`
}

// ContextStore persists the bounded per-user conversation window. Append
// applies FIFO eviction atomically with the insert, so a reader never sees a
// half-evicted window. The orchestrator serializes access per user; stores
// only need to be safe across different users.
type ContextStore interface {
	Window(ctx context.Context, userID string) ([]Turn, error)
	Append(ctx context.Context, userID string, turns ...Turn) error
}
