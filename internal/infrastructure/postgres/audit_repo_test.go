package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/fsmgate/internal/domain/audit"
	"github.com/example/fsmgate/internal/infrastructure/crypto"
)

// openTestPool connects to TEST_DATABASE_URL and starts from an empty
// tool_calls table.
func openTestPool(c *qt.C) *pgxpool.Pool {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		c.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Open(ctx, url)
	c.Assert(err, qt.IsNil)
	c.Cleanup(pool.Close)
	c.Assert(Migrate(ctx, pool), qt.IsNil)
	// A second run is a no-op.
	c.Assert(Migrate(ctx, pool), qt.IsNil)
	_, err = pool.Exec(ctx, `TRUNCATE tool_calls`)
	c.Assert(err, qt.IsNil)
	return pool
}

func TestAuditRoundTrip(t *testing.T) {
	c := qt.New(t)
	pool := openTestPool(c)
	ctx := context.Background()
	repo := NewAuditRepo(pool, nil)

	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	c.Assert(repo.Record(ctx, audit.ToolCall{
		Tool: "check-address", Args: json.RawMessage(`{"city":"Salem"}`),
		Outcome: audit.OutcomeOK, Duration: 120 * time.Millisecond, CreatedAt: t0,
	}), qt.IsNil)
	c.Assert(repo.Record(ctx, audit.ToolCall{
		Tool: "create-job", Outcome: audit.OutcomeFailed, Error: "vendor down",
		CreatedAt: t0.Add(time.Minute),
	}), qt.IsNil)

	got, err := repo.Recent(ctx, 10)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.HasLen, 2)
	c.Assert(got[0].Tool, qt.Equals, "create-job")
	c.Assert(got[0].Error, qt.Equals, "vendor down")
	c.Assert(got[1].Tool, qt.Equals, "check-address")
	c.Assert(string(got[1].Args), qt.Equals, `{"city":"Salem"}`)
	c.Assert(got[1].Duration, qt.Equals, 120*time.Millisecond)
	c.Assert(got[1].ID, qt.Not(qt.Equals), uuid.Nil)

	got, err = repo.Recent(ctx, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.HasLen, 1)
}

func TestAuditSealedArgs(t *testing.T) {
	c := qt.New(t)
	pool := openTestPool(c)
	ctx := context.Background()
	sealer, err := crypto.NewSealer(bytes.Repeat([]byte{1}, 32))
	c.Assert(err, qt.IsNil)

	c.Assert(NewAuditRepo(pool, sealer).Record(ctx, audit.ToolCall{
		Tool: "find-customer", Args: json.RawMessage(`{"name":"Ada"}`), Outcome: audit.OutcomeOK,
	}), qt.IsNil)

	var stored string
	c.Assert(pool.QueryRow(ctx, `SELECT args FROM tool_calls`).Scan(&stored), qt.IsNil)
	c.Assert(stored, qt.Not(qt.Contains), "Ada")

	got, err := NewAuditRepo(pool, sealer).Recent(ctx, 5)
	c.Assert(err, qt.IsNil)
	c.Assert(string(got[0].Args), qt.Equals, `{"name":"Ada"}`)

	// Without the key the arguments are withheld.
	got, err = NewAuditRepo(pool, nil).Recent(ctx, 5)
	c.Assert(err, qt.IsNil)
	c.Assert(got[0].Args, qt.IsNil)
}

func TestAuditPrune(t *testing.T) {
	c := qt.New(t)
	pool := openTestPool(c)
	ctx := context.Background()
	repo := NewAuditRepo(pool, nil)

	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		c.Assert(repo.Record(ctx, audit.ToolCall{
			Tool: "job-types", Outcome: audit.OutcomeOK, CreatedAt: t0.Add(time.Duration(i) * 24 * time.Hour),
		}), qt.IsNil)
	}

	n, err := repo.Prune(ctx, t0.Add(36*time.Hour))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, int64(2))
	got, err := repo.Recent(ctx, 10)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.HasLen, 1)
	c.Assert(got[0].CreatedAt.Equal(t0.Add(48*time.Hour)), qt.IsTrue)
}
