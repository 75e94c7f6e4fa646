package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/example/fsmgate/internal/domain/availability"
	"github.com/example/fsmgate/internal/internaltypes"
)

var logger = loggo.GetLogger("fsmgate.usecases")

type Defaults struct {
	CampaignID     int64
	CancelReasonID int64
	Priority       string
	Duration       time.Duration
}

// Booking runs the agent's tool calls against the vendor.
type Booking struct {
	Vendor   Vendor
	Filter   *availability.Filter
	Defaults Defaults
}

func (b Booking) Ping(ctx context.Context) error {
	if b.Vendor == nil {
		return errors.New("vendor is nil")
	}
	return b.Vendor.Ping(ctx)
}

func (b Booking) CheckAddress(ctx context.Context, loc availability.Location) (availability.AreaVerdict, error) {
	return b.Filter.CheckArea(ctx, loc)
}

func (b Booking) JobTypes(ctx context.Context) ([]availability.JobType, error) {
	return b.Filter.JobTypes(ctx)
}

func (b Booking) Technicians(ctx context.Context, q availability.SlotQuery) ([]availability.TechnicianSlot, error) {
	return b.Filter.Technicians(ctx, q)
}

type AvailabilityRequest struct {
	availability.SlotQuery
	Location   *availability.Location `json:"location,omitempty"`
	CustomerID int64                  `json:"customerId,omitempty"`
}

type AvailabilityResult struct {
	availability.SlotSearch
	Area *availability.AreaVerdict `json:"area,omitempty"`
}

// Availability checks the service area, when a location or customer is
// known, before searching for open slots.
func (b Booking) Availability(ctx context.Context, req AvailabilityRequest) (AvailabilityResult, error) {
	var res AvailabilityResult
	loc, err := b.serviceLocation(ctx, req.Location, req.CustomerID)
	if err != nil {
		return res, err
	}
	if loc != nil {
		v, err := b.Filter.CheckArea(ctx, *loc)
		if err != nil {
			return res, errors.Trace(err)
		}
		res.Area = &v
		if !v.InArea {
			return res, v.Err()
		}
	}
	search, err := b.Filter.FindSlots(ctx, req.SlotQuery)
	res.SlotSearch = search
	return res, errors.Trace(err)
}

// serviceLocation prefers the location in the request when it has
// coordinates or a street. Otherwise a known customer's first stored
// location is used, since it carries coordinates; a bare city or region
// is only checked for anonymous callers.
func (b Booking) serviceLocation(ctx context.Context, loc *availability.Location, customerID int64) (*availability.Location, error) {
	if loc != nil && (loc.HasCoordinates() || strings.TrimSpace(loc.Street) != "") {
		return loc, nil
	}
	if customerID <= 0 {
		if loc != nil && loc.Address() != "" {
			return loc, nil
		}
		return nil, nil
	}
	locs, err := b.Vendor.CustomerLocations(ctx, customerID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(locs) == 0 {
		return nil, internaltypes.New(internaltypes.KindNotFound, "customer %d has no service location", customerID)
	}
	l := toLocation(locs[0].Address)
	return &l, nil
}

type BookingCheck struct {
	JobTypeID int64                 `json:"jobType"`
	Location  availability.Location `json:"address"`
	Start     string                `json:"time"`
}

type BookingValidation struct {
	Status string                        `json:"status"`
	Area   availability.AreaVerdict      `json:"area"`
	Slots  []availability.TechnicianSlot `json:"technician_slots"`
}

// ValidateBooking checks that a job could be booked at the requested time
// without creating anything: the job type exists, the address is served
// and a technician is free in the job's window.
func (b Booking) ValidateBooking(ctx context.Context, req BookingCheck) (BookingValidation, error) {
	var out BookingValidation
	if req.JobTypeID <= 0 {
		return out, internaltypes.New(internaltypes.KindValidation, "jobType is required")
	}
	if req.Start == "" {
		return out, internaltypes.New(internaltypes.KindValidation, "time is required")
	}
	start, err := availability.ParseStart(req.Start, b.Filter.Now())
	if err != nil {
		return out, err
	}
	if _, err := b.Vendor.GetJobType(ctx, req.JobTypeID); err != nil {
		if internaltypes.Is(err, internaltypes.KindNotFound) {
			return out, internaltypes.New(internaltypes.KindValidation, "invalid job type %d", req.JobTypeID)
		}
		return out, errors.Trace(err)
	}

	v, err := b.Filter.CheckArea(ctx, req.Location)
	if err != nil {
		return out, errors.Trace(err)
	}
	out.Area = v
	if !v.InArea {
		return out, v.Err()
	}

	open, err := b.Filter.OpenBetween(ctx, req.JobTypeID, start, start.Add(b.duration()))
	if err != nil {
		return out, errors.Trace(err)
	}
	out.Slots = availability.TechnicianSlots(open)
	if len(out.Slots) == 0 {
		return out, internaltypes.New(internaltypes.KindNoAvailability, "no technicians available for the requested time")
	}
	out.Status = "booking request is valid"
	return out, nil
}

func (b Booking) duration() time.Duration {
	if b.Defaults.Duration > 0 {
		return b.Defaults.Duration
	}
	return 3 * time.Hour
}
