package web

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/fsmgate/internal/application/usecases"
	"github.com/example/fsmgate/internal/domain/availability"
	"github.com/example/fsmgate/internal/internaltypes"
)

type areaResponse struct {
	availability.AreaVerdict
	Error string `json:"error,omitempty"`
}

func (s *Server) checkAddress(ctx context.Context, args json.RawMessage) (any, error) {
	var loc availability.Location
	if err := decodeArgs(args, &loc); err != nil {
		return nil, err
	}
	v, err := s.booking.CheckAddress(ctx, loc)
	if err != nil {
		return nil, err
	}
	resp := areaResponse{AreaVerdict: v}
	if err := v.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp, nil
}

type slotsResponse struct {
	usecases.AvailabilityResult
	OfferToken string `json:"offer_token,omitempty"`
}

func (s *Server) availableSlots(ctx context.Context, args json.RawMessage) (any, error) {
	var req usecases.AvailabilityRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	res, err := s.booking.Availability(ctx, req)
	if err != nil {
		return nil, err
	}
	tok, err := s.offers.Sign(Offer{JobTypeID: req.JobTypeID, Slots: res.Slots})
	if err != nil {
		return nil, err
	}
	return slotsResponse{AvailabilityResult: res, OfferToken: tok}, nil
}

func (s *Server) technicianSlots(ctx context.Context, args json.RawMessage) (any, error) {
	var q availability.SlotQuery
	if err := decodeArgs(args, &q); err != nil {
		return nil, err
	}
	slots, err := s.booking.Technicians(ctx, q)
	if err != nil {
		return nil, err
	}
	return map[string]any{"technician_slots": slots}, nil
}

func (s *Server) jobTypes(ctx context.Context, _ json.RawMessage) (any, error) {
	jts, err := s.booking.JobTypes(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"job_types": jts}, nil
}

func (s *Server) findCustomer(ctx context.Context, args json.RawMessage) (any, error) {
	var q usecases.CustomerQuery
	if err := decodeArgs(args, &q); err != nil {
		return nil, err
	}
	got, err := s.booking.FindCustomer(ctx, q)
	if err != nil {
		return nil, err
	}
	return map[string]any{"customers": got}, nil
}

func (s *Server) createCustomer(ctx context.Context, args json.RawMessage) (any, error) {
	var nc usecases.NewCustomer
	if err := decodeArgs(args, &nc); err != nil {
		return nil, err
	}
	return s.booking.CreateCustomer(ctx, nc)
}

type createJobArgs struct {
	usecases.NewJob
	OfferToken string `json:"offer_token"`
}

func (s *Server) createJob(ctx context.Context, args json.RawMessage) (any, error) {
	var a createJobArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.OfferToken != "" {
		o, err := s.offers.Verify(a.OfferToken)
		if err != nil {
			return nil, err
		}
		if o.JobTypeID != a.JobTypeID {
			return nil, internaltypes.New(internaltypes.KindValidation, "offer_token was issued for job type %d", o.JobTypeID)
		}
		a.Offered = o.Slots
		if a.Offered == nil {
			a.Offered = []availability.Slot{}
		}
	}
	return s.booking.CreateJob(ctx, a.NewJob)
}

func (s *Server) reschedule(ctx context.Context, args json.RawMessage) (any, error) {
	var req usecases.RescheduleRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.booking.Reschedule(ctx, req)
}

func (s *Server) cancelJob(ctx context.Context, args json.RawMessage) (any, error) {
	var req usecases.CancelRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.booking.Cancel(ctx, req)
}

func (s *Server) bookSlot(ctx context.Context, args json.RawMessage) (any, error) {
	var req usecases.BookingCheck
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.booking.ValidateBooking(ctx, req)
}

// DefaultOfferTTL is how long a quoted set of slots stays bookable.
const DefaultOfferTTL = 24 * time.Hour
