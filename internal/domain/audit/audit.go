// Package audit describes the record kept of each agent tool call.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected" // business error returned to the agent
	OutcomeFailed   = "failed"
)

type ToolCall struct {
	ID        uuid.UUID
	Tool      string
	Args      json.RawMessage
	Outcome   string
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// Recorder stores tool calls.
type Recorder interface {
	Record(ctx context.Context, call ToolCall) error
}

// Lister reads back the most recent calls, newest first.
type Lister interface {
	Recent(ctx context.Context, limit int) ([]ToolCall, error)
}

// Pruner deletes calls recorded before a cutoff and reports how many.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Discard drops every call. It is used when no database is configured.
type Discard struct{}

func (Discard) Record(context.Context, ToolCall) error { return nil }
