package availability

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/example/fsmgate/internal/internaltypes"
)

// unpaddedDay matches the one malformation agents are known to send:
// a single-digit day such as 2025-03-5T09:00:00Z.
var unpaddedDay = regexp.MustCompile(`^(\d{4}-\d{2}-)(\d)([T ])`)

var startLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseStart parses a requested start time and returns it in UTC. Times
// without a zone are taken as UTC. An empty string means now.
func ParseStart(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC(), nil
	}
	fixed := unpaddedDay.ReplaceAllString(raw, "${1}0${2}${3}")
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, fixed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, internaltypes.New(internaltypes.KindValidation,
		"invalid start time %q: use ISO 8601, e.g. 2025-03-10T09:00:00Z", raw)
}

// FindSlots searches vendor capacity for open slots, moving the window a
// week at a time until something opens up or the attempts run out.
func (f *Filter) FindSlots(ctx context.Context, q SlotQuery) (SlotSearch, error) {
	search, raw, err := f.search(ctx, q, nil)
	if err != nil {
		return search, err
	}
	search.Slots = make([]Slot, 0, len(raw))
	for _, cs := range raw {
		search.Slots = append(search.Slots, Slot{Start: cs.Start, End: cs.End})
	}
	return search, nil
}

// Technicians runs the same search as FindSlots, but a week only counts
// when some open slot has a free technician. The result is flattened to
// one technician per slot.
func (f *Filter) Technicians(ctx context.Context, q SlotQuery) ([]TechnicianSlot, error) {
	_, raw, err := f.search(ctx, q, hasFreeTechnician)
	if err != nil {
		return nil, err
	}
	return TechnicianSlots(raw), nil
}

// search moves the window forward until a week has open slots. A non-nil
// usable narrows which open slots end the search.
func (f *Filter) search(ctx context.Context, q SlotQuery, usable func(CapacitySlot) bool) (SlotSearch, []CapacitySlot, error) {
	if q.JobTypeID <= 0 {
		return SlotSearch{}, nil, internaltypes.New(internaltypes.KindValidation, "jobTypeId is required")
	}
	start, err := ParseStart(q.Start, f.clock.Now())
	if err != nil {
		return SlotSearch{}, nil, err
	}

	units := []int64(q.BusinessUnitIDs)
	if len(units) == 0 {
		if units, err = f.ResolveBusinessUnits(ctx, q.JobTypeID); err != nil {
			return SlotSearch{}, nil, errors.Trace(err)
		}
		if len(units) == 0 {
			return SlotSearch{}, nil, internaltypes.New(internaltypes.KindNotFound,
				"job type %d cannot be scheduled: no eligible business units", q.JobTypeID)
		}
	}

	s := f.settings
	search := SlotSearch{BusinessUnitIDs: units, WindowStart: start}
	from := start
	for attempt := 1; attempt <= s.SearchAttempts; attempt++ {
		to := from.Add(s.SearchWindow)
		search.Attempts = attempt
		search.SearchedThrough = to

		got, err := f.capacity.Capacity(ctx, CapacityRequest{
			StartsOnOrAfter: from,
			EndsOnOrBefore:  to,
			BusinessUnitIDs: units,
			JobTypeID:       q.JobTypeID,
			SkillBased:      s.SkillBased,
		})
		if err != nil {
			return search, nil, errors.Annotatef(err, "capacity %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
		}
		open := f.openSlots(got)
		if usable != nil {
			open = keep(open, usable)
		}
		logger.Debugf("attempt %d: %d of %d slots open between %s and %s", attempt, len(open), len(got), from, to)
		if len(open) > 0 {
			return search, open, nil
		}
		from = from.Add(s.SearchStep)
	}
	return search, nil, internaltypes.New(internaltypes.KindNoAvailability,
		"no availability through %s", search.SearchedThrough.Format("2006-01-02"))
}

func (f *Filter) openSlots(in []CapacitySlot) []CapacitySlot {
	var out []CapacitySlot
	for _, cs := range in {
		if !cs.Available {
			continue
		}
		if h := f.settings.BusinessHours; h != nil && !h.Contains(Slot{Start: cs.Start, End: cs.End}) {
			continue
		}
		out = append(out, cs)
	}
	return out
}

func keep(in []CapacitySlot, ok func(CapacitySlot) bool) []CapacitySlot {
	var out []CapacitySlot
	for _, cs := range in {
		if ok(cs) {
			out = append(out, cs)
		}
	}
	return out
}

// OpenBetween returns the open capacity slots for one window without the
// weekly search. Business units come from the job type.
func (f *Filter) OpenBetween(ctx context.Context, jobTypeID int64, from, to time.Time) ([]CapacitySlot, error) {
	if !to.After(from) {
		return nil, internaltypes.New(internaltypes.KindValidation, "window end must be after its start")
	}
	units, err := f.ResolveBusinessUnits(ctx, jobTypeID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(units) == 0 {
		return nil, internaltypes.New(internaltypes.KindNotFound,
			"job type %d cannot be scheduled: no eligible business units", jobTypeID)
	}
	got, err := f.capacity.Capacity(ctx, CapacityRequest{
		StartsOnOrAfter: from.UTC(),
		EndsOnOrBefore:  to.UTC(),
		BusinessUnitIDs: units,
		JobTypeID:       jobTypeID,
		SkillBased:      f.settings.SkillBased,
	})
	if err != nil {
		return nil, errors.Annotatef(err, "capacity %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return f.openSlots(got), nil
}

// Now is the filter's clock reading, in UTC.
func (f *Filter) Now() time.Time { return f.clock.Now().UTC() }
