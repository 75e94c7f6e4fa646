package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/example/fsmgate/internal/domain/availability"
	"github.com/example/fsmgate/internal/infrastructure/fieldservice"
	"github.com/example/fsmgate/internal/internaltypes"
)

const statusScheduled = "Scheduled"

type NewJob struct {
	CustomerID     int64  `json:"customerId"`
	LocationID     int64  `json:"locationId"`
	JobTypeID      int64  `json:"jobTypeId"`
	BusinessUnitID int64  `json:"businessUnitId"`
	Start          string `json:"start_time"`
	End            string `json:"end_time"`
	Summary        string `json:"summary"`

	// Offered, when non-nil, limits Start to one of these slots.
	Offered []availability.Slot `json:"-"`
}

type BookedJob struct {
	JobID         int64     `json:"job_id"`
	JobNumber     string    `json:"job_number"`
	AppointmentID int64     `json:"appointment_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Status        string    `json:"status"`
}

func (b Booking) CreateJob(ctx context.Context, nj NewJob) (BookedJob, error) {
	if nj.CustomerID <= 0 || nj.JobTypeID <= 0 {
		return BookedJob{}, internaltypes.New(internaltypes.KindValidation, "customerId and jobTypeId are required")
	}
	if strings.TrimSpace(nj.Start) == "" {
		return BookedJob{}, internaltypes.New(internaltypes.KindValidation, "start_time is required")
	}
	now := b.Filter.Now()
	start, err := availability.ParseStart(nj.Start, now)
	if err != nil {
		return BookedJob{}, err
	}
	end := start.Add(b.duration())
	if nj.End != "" {
		if end, err = availability.ParseStart(nj.End, now); err != nil {
			return BookedJob{}, err
		}
		if !end.After(start) {
			return BookedJob{}, internaltypes.New(internaltypes.KindValidation, "end_time must be after start_time")
		}
	}
	if nj.Offered != nil {
		slot, ok := offered(nj.Offered, start)
		if !ok {
			return BookedJob{}, internaltypes.New(internaltypes.KindValidation,
				"%s was not one of the offered slots", start.Format(time.RFC3339))
		}
		if nj.End == "" {
			end = slot.End
		}
	}

	unit := nj.BusinessUnitID
	if unit == 0 {
		units, err := b.Filter.ResolveBusinessUnits(ctx, nj.JobTypeID)
		if err != nil {
			return BookedJob{}, errors.Trace(err)
		}
		if len(units) == 0 {
			return BookedJob{}, internaltypes.New(internaltypes.KindNotFound,
				"job type %d cannot be scheduled: no eligible business units", nj.JobTypeID)
		}
		unit = units[0]
	}
	loc := nj.LocationID
	if loc == 0 {
		locs, err := b.Vendor.CustomerLocations(ctx, nj.CustomerID)
		if err != nil {
			return BookedJob{}, errors.Trace(err)
		}
		if len(locs) == 0 {
			return BookedJob{}, internaltypes.New(internaltypes.KindNotFound, "customer %d has no service location", nj.CustomerID)
		}
		loc = locs[0].ID
	}

	job, err := b.Vendor.CreateJob(ctx, fieldservice.CreateJobRequest{
		CustomerID:     nj.CustomerID,
		LocationID:     loc,
		BusinessUnitID: unit,
		JobTypeID:      nj.JobTypeID,
		Priority:       b.priority(),
		CampaignID:     b.Defaults.CampaignID,
		Summary:        strings.TrimSpace(nj.Summary),
		Appointments:   []fieldservice.NewAppointment{{Start: start, End: end}},
	})
	if err != nil {
		return BookedJob{}, errors.Trace(err)
	}
	logger.Infof("booked job %d for customer %d at %s", job.ID, nj.CustomerID, start.Format(time.RFC3339))
	return BookedJob{
		JobID:         job.ID,
		JobNumber:     job.JobNumber,
		AppointmentID: job.FirstAppointmentID,
		Start:         start,
		End:           end,
		Status:        job.JobStatus,
	}, nil
}

func offered(slots []availability.Slot, start time.Time) (availability.Slot, bool) {
	for _, s := range slots {
		if s.Start.Equal(start) {
			return s, true
		}
	}
	return availability.Slot{}, false
}

func (b Booking) priority() string {
	if b.Defaults.Priority != "" {
		return b.Defaults.Priority
	}
	return "Normal"
}

type RescheduleRequest struct {
	CustomerName string `json:"name"`
	Start        string `json:"new_start_time"`
}

type Rescheduled struct {
	JobID         int64     `json:"job_id"`
	AppointmentID int64     `json:"appointment_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
}

// Reschedule moves the first appointment of the customer's scheduled job,
// keeping its length.
func (b Booking) Reschedule(ctx context.Context, req RescheduleRequest) (Rescheduled, error) {
	if strings.TrimSpace(req.Start) == "" {
		return Rescheduled{}, internaltypes.New(internaltypes.KindValidation, "new_start_time is required")
	}
	start, err := availability.ParseStart(req.Start, b.Filter.Now())
	if err != nil {
		return Rescheduled{}, err
	}
	job, err := b.scheduledJob(ctx, req.CustomerName)
	if err != nil {
		return Rescheduled{}, err
	}
	appt, err := b.firstAppointment(ctx, job)
	if err != nil {
		return Rescheduled{}, err
	}
	length := appt.End.Sub(appt.Start)
	if length <= 0 {
		length = b.duration()
	}
	got, err := b.Vendor.Reschedule(ctx, appt.ID, start, start.Add(length))
	if err != nil {
		return Rescheduled{}, errors.Trace(err)
	}
	return Rescheduled{JobID: job.ID, AppointmentID: appt.ID, Start: got.Start.UTC(), End: got.End.UTC()}, nil
}

type CancelRequest struct {
	CustomerName string `json:"name"`
	Memo         string `json:"memo"`
	ReasonID     int64  `json:"reasonId"`
}

type Cancelled struct {
	JobID     int64  `json:"job_id"`
	JobNumber string `json:"job_number"`
}

func (b Booking) Cancel(ctx context.Context, req CancelRequest) (Cancelled, error) {
	reason := req.ReasonID
	if reason == 0 {
		reason = b.Defaults.CancelReasonID
	}
	if reason == 0 {
		return Cancelled{}, internaltypes.New(internaltypes.KindValidation, "reasonId is required")
	}
	memo := strings.TrimSpace(req.Memo)
	if memo == "" {
		memo = "Cancelled at the customer's request"
	}
	job, err := b.scheduledJob(ctx, req.CustomerName)
	if err != nil {
		return Cancelled{}, err
	}
	if err := b.Vendor.CancelJob(ctx, job.ID, reason, memo); err != nil {
		return Cancelled{}, errors.Trace(err)
	}
	logger.Infof("cancelled job %d", job.ID)
	return Cancelled{JobID: job.ID, JobNumber: job.JobNumber}, nil
}

func (b Booking) scheduledJob(ctx context.Context, customerName string) (fieldservice.Job, error) {
	c, err := b.customerByName(ctx, customerName)
	if err != nil {
		return fieldservice.Job{}, err
	}
	jobs, err := b.Vendor.Jobs(ctx, c.ID, statusScheduled)
	if err != nil {
		return fieldservice.Job{}, errors.Trace(err)
	}
	if len(jobs) == 0 {
		return fieldservice.Job{}, internaltypes.New(internaltypes.KindNotFound, "%s has no scheduled job", c.Name)
	}
	if len(jobs) > 1 {
		logger.Infof("customer %d has %d scheduled jobs, using %d", c.ID, len(jobs), jobs[0].ID)
	}
	return jobs[0], nil
}

func (b Booking) firstAppointment(ctx context.Context, job fieldservice.Job) (fieldservice.Appointment, error) {
	appts, err := b.Vendor.Appointments(ctx, job.ID)
	if err != nil {
		return fieldservice.Appointment{}, errors.Trace(err)
	}
	if len(appts) == 0 {
		return fieldservice.Appointment{}, internaltypes.New(internaltypes.KindNotFound, "job %d has no appointment", job.ID)
	}
	first := appts[0]
	for _, a := range appts {
		if job.FirstAppointmentID != 0 && a.ID == job.FirstAppointmentID {
			return a, nil
		}
		if a.Start.Before(first.Start) {
			first = a
		}
	}
	return first, nil
}
