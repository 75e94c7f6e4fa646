package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/example/fsmgate/internal/domain/audit"
	"github.com/example/fsmgate/internal/infrastructure/crypto"
)

var logger = loggo.GetLogger("fsmgate.postgres")

// AuditRepo stores tool calls in the tool_calls table. When a sealer is
// set the arguments are encrypted, bound to the row id.
type AuditRepo struct {
	pool   *pgxpool.Pool
	sealer *crypto.Sealer
	clock  clock.Clock
}

var (
	_ audit.Recorder = (*AuditRepo)(nil)
	_ audit.Lister   = (*AuditRepo)(nil)
	_ audit.Pruner   = (*AuditRepo)(nil)
)

func NewAuditRepo(pool *pgxpool.Pool, sealer *crypto.Sealer) *AuditRepo {
	return &AuditRepo{pool: pool, sealer: sealer, clock: clock.WallClock}
}

func (r *AuditRepo) Record(ctx context.Context, call audit.ToolCall) error {
	if call.ID == uuid.Nil {
		call.ID = uuid.New()
	}
	if call.CreatedAt.IsZero() {
		call.CreatedAt = r.clock.Now().UTC()
	}
	args, sealed := string(call.Args), false
	if r.sealer != nil && len(call.Args) > 0 {
		s, err := r.sealer.Seal(call.Args, call.ID.String())
		if err != nil {
			return errors.Annotate(err, "seal args")
		}
		args, sealed = s, true
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tool_calls (id, tool, args, args_sealed, outcome, error, duration_ms, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, call.ID, call.Tool, args, sealed, call.Outcome, call.Error, call.Duration.Milliseconds(), call.CreatedAt)
	return errors.Annotate(err, "insert tool call")
}

// Recent returns the newest calls first. Sealed arguments are opened when
// the repo holds the key and left out otherwise.
func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]audit.ToolCall, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, tool, args, args_sealed, outcome, error, duration_ms, created_at
		FROM tool_calls ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Annotate(err, "query tool calls")
	}
	defer rows.Close()

	var out []audit.ToolCall
	for rows.Next() {
		var (
			c      audit.ToolCall
			args   string
			sealed bool
			ms     int64
		)
		if err := rows.Scan(&c.ID, &c.Tool, &args, &sealed, &c.Outcome, &c.Error, &ms, &c.CreatedAt); err != nil {
			return nil, errors.Trace(err)
		}
		c.Duration = time.Duration(ms) * time.Millisecond
		switch {
		case !sealed:
			c.Args = json.RawMessage(args)
		case r.sealer != nil:
			pt, err := r.sealer.Open(args, c.ID.String())
			if err != nil {
				logger.Warningf("tool call %s: %v", c.ID, err)
				break
			}
			c.Args = pt
		}
		out = append(out, c)
	}
	return out, errors.Trace(rows.Err())
}

func (r *AuditRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tool_calls WHERE created_at < $1`, before.UTC())
	if err != nil {
		return 0, errors.Annotate(err, "prune tool calls")
	}
	return tag.RowsAffected(), nil
}
