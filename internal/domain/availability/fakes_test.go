package availability

import (
	"context"
	"time"

	"github.com/juju/clock/testclock"
)

type fakeGeocoder struct {
	result GeocodeResult
	err    error
	calls  []string
}

func (g *fakeGeocoder) Geocode(_ context.Context, address string) (GeocodeResult, error) {
	g.calls = append(g.calls, address)
	return g.result, g.err
}

type fakeCapacity struct {
	// responses are served in order; the last one repeats.
	responses [][]CapacitySlot
	err       error
	requests  []CapacityRequest
}

func (c *fakeCapacity) Capacity(_ context.Context, req CapacityRequest) ([]CapacitySlot, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return nil, nil
	}
	i := len(c.requests) - 1
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return c.responses[i], nil
}

type fakeCatalog []JobType

func (c fakeCatalog) JobTypes(context.Context) ([]JobType, error) { return c, nil }

type fakeUnits struct {
	units []BusinessUnit
	calls int
}

func (u *fakeUnits) BusinessUnits(context.Context) ([]BusinessUnit, error) {
	u.calls++
	return u.units, nil
}

var refTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestFilter(s Settings, d Deps) *Filter {
	if d.Clock == nil {
		d.Clock = testclock.NewClock(refTime)
	}
	if d.Capacity == nil {
		d.Capacity = &fakeCapacity{}
	}
	f, err := New(s, d)
	if err != nil {
		panic(err)
	}
	return f
}

func ptr(f float64) *float64 { return &f }

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
