package fieldservice

import (
	"context"
	"strings"
	"time"

	"github.com/example/fsmgate/internal/domain/availability"
	"github.com/example/fsmgate/internal/internaltypes"
)

var (
	_ availability.CapacitySource = (*Client)(nil)
	_ availability.Catalog        = (*Client)(nil)
	_ availability.UnitDirectory  = (*Client)(nil)
)

// Capacity implements availability.CapacitySource.
func (c *Client) Capacity(ctx context.Context, req availability.CapacityRequest) ([]availability.CapacitySlot, error) {
	got, err := c.SearchCapacity(ctx, CapacityQuery{
		StartsOnOrAfter:        req.StartsOnOrAfter,
		EndsOnOrBefore:         req.EndsOnOrBefore,
		BusinessUnitIDs:        req.BusinessUnitIDs,
		JobTypeID:              req.JobTypeID,
		SkillBasedAvailability: req.SkillBased,
	})
	if err != nil {
		return nil, err
	}
	out := make([]availability.CapacitySlot, 0, len(got))
	for _, a := range got {
		cs, err := a.slot()
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, nil
}

func (a Availability) slot() (availability.CapacitySlot, error) {
	rawStart := firstNonEmpty(a.StartUTC, a.Start)
	start, err := parseVendorTime(rawStart)
	if err != nil {
		return availability.CapacitySlot{}, err
	}
	end, err := parseVendorTime(firstNonEmpty(a.EndUTC, a.End))
	if err != nil {
		return availability.CapacitySlot{}, err
	}
	cs := availability.CapacitySlot{
		Start:     start,
		End:       end,
		RawStart:  rawStart,
		Available: a.IsAvailable,
	}
	for _, t := range a.Technicians {
		cs.Technicians = append(cs.Technicians, availability.Technician{
			ID:        t.ID,
			Name:      t.Name,
			Available: strings.EqualFold(t.Status, "Available"),
		})
	}
	return cs, nil
}

// parseVendorTime reads capacity timestamps. Values without an offset
// are UTC.
func parseVendorTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, internaltypes.New(internaltypes.KindUpstream, "vendor capacity: bad timestamp %q", s)
}

// JobTypes implements availability.Catalog from the live job-type list.
func (c *Client) JobTypes(ctx context.Context) ([]availability.JobType, error) {
	got, err := c.ListJobTypes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]availability.JobType, 0, len(got))
	for _, jt := range got {
		out = append(out, availability.JobType{ID: jt.ID, Label: jt.Name, BusinessUnitIDs: jt.BusinessUnitIDs})
	}
	return out, nil
}

// BusinessUnits implements availability.UnitDirectory.
func (c *Client) BusinessUnits(ctx context.Context) ([]availability.BusinessUnit, error) {
	got, err := c.ListBusinessUnits(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]availability.BusinessUnit, 0, len(got))
	for _, bu := range got {
		out = append(out, availability.BusinessUnit{ID: bu.ID, Name: bu.Name})
	}
	return out, nil
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
