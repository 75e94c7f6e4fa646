package usecases

import (
	"context"
	"fmt"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"

	"github.com/example/fsmgate/internal/domain/availability"
	"github.com/example/fsmgate/internal/infrastructure/fieldservice"
	"github.com/example/fsmgate/internal/internaltypes"
)

var refTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeVendor struct {
	customers    []fieldservice.Customer
	locations    map[int64][]fieldservice.Location
	jobTypes     map[int64]fieldservice.JobType
	jobs         map[int64][]fieldservice.Job
	appointments map[int64][]fieldservice.Appointment
	err          error

	created     []fieldservice.CreateCustomerRequest
	createdLocs []fieldservice.CreateLocationRequest
	createdJobs []fieldservice.CreateJobRequest
	cancelled   []string
	rescheduled []fieldservice.Appointment
	searches    []string
	jobQueries  []string
}

func (v *fakeVendor) Ping(context.Context) error { return v.err }

func (v *fakeVendor) SearchCustomers(_ context.Context, name, phone string) ([]fieldservice.Customer, error) {
	v.searches = append(v.searches, name+"|"+phone)
	return v.customers, v.err
}

func (v *fakeVendor) CreateCustomer(_ context.Context, req fieldservice.CreateCustomerRequest) (fieldservice.Customer, error) {
	if v.err != nil {
		return fieldservice.Customer{}, v.err
	}
	v.created = append(v.created, req)
	return fieldservice.Customer{ID: 500, Name: req.Name, Address: req.Address}, nil
}

func (v *fakeVendor) CustomerLocations(_ context.Context, id int64) ([]fieldservice.Location, error) {
	return v.locations[id], v.err
}

func (v *fakeVendor) CreateLocation(_ context.Context, req fieldservice.CreateLocationRequest) (fieldservice.Location, error) {
	if v.err != nil {
		return fieldservice.Location{}, v.err
	}
	v.createdLocs = append(v.createdLocs, req)
	return fieldservice.Location{ID: 502, CustomerID: req.CustomerID, Name: req.Name, Address: req.Address}, nil
}

func (v *fakeVendor) GetJobType(_ context.Context, id int64) (fieldservice.JobType, error) {
	jt, ok := v.jobTypes[id]
	if !ok {
		return jt, internaltypes.New(internaltypes.KindNotFound, "vendor GET job-types/%d: not found", id)
	}
	return jt, nil
}

func (v *fakeVendor) CreateJob(_ context.Context, req fieldservice.CreateJobRequest) (fieldservice.Job, error) {
	if v.err != nil {
		return fieldservice.Job{}, v.err
	}
	v.createdJobs = append(v.createdJobs, req)
	return fieldservice.Job{ID: 900, JobNumber: "900", CustomerID: req.CustomerID, JobStatus: "Scheduled", FirstAppointmentID: 901}, nil
}

func (v *fakeVendor) Jobs(_ context.Context, customerID int64, status string) ([]fieldservice.Job, error) {
	v.jobQueries = append(v.jobQueries, status)
	return v.jobs[customerID], v.err
}

func (v *fakeVendor) CancelJob(_ context.Context, jobID, reasonID int64, memo string) error {
	v.cancelled = append(v.cancelled, fmt.Sprintf("%d/%d/%s", jobID, reasonID, memo))
	return v.err
}

func (v *fakeVendor) Appointments(_ context.Context, jobID int64) ([]fieldservice.Appointment, error) {
	return v.appointments[jobID], v.err
}

func (v *fakeVendor) Reschedule(_ context.Context, id int64, start, end time.Time) (fieldservice.Appointment, error) {
	a := fieldservice.Appointment{ID: id, Start: start, End: end, Status: "Scheduled"}
	v.rescheduled = append(v.rescheduled, a)
	return a, v.err
}

type fakeGeocoder struct {
	result availability.GeocodeResult
	err    error
	calls  int
}

func (g *fakeGeocoder) Geocode(context.Context, string) (availability.GeocodeResult, error) {
	g.calls++
	return g.result, g.err
}

type fakeCapacity struct {
	slots    []availability.CapacitySlot
	requests []availability.CapacityRequest
}

func (f *fakeCapacity) Capacity(_ context.Context, req availability.CapacityRequest) ([]availability.CapacitySlot, error) {
	f.requests = append(f.requests, req)
	return f.slots, nil
}

type staticCatalog []availability.JobType

func (c staticCatalog) JobTypes(context.Context) ([]availability.JobType, error) { return c, nil }

type fixture struct {
	vendor   *fakeVendor
	geo      *fakeGeocoder
	capacity *fakeCapacity
	booking  Booking
}

func newFixture(c *qt.C) *fixture {
	f := &fixture{
		vendor: &fakeVendor{
			locations:    map[int64][]fieldservice.Location{},
			jobTypes:     map[int64]fieldservice.JobType{},
			jobs:         map[int64][]fieldservice.Job{},
			appointments: map[int64][]fieldservice.Appointment{},
		},
		geo:      &fakeGeocoder{},
		capacity: &fakeCapacity{},
	}
	filter, err := availability.New(availability.DefaultSettings(), availability.Deps{
		Geocoder: f.geo,
		Capacity: f.capacity,
		Catalog:  staticCatalog{{ID: 100, Label: "AC Repair", BusinessUnitIDs: []int64{1097, 1098}}},
		Clock:    testclock.NewClock(refTime),
	})
	c.Assert(err, qt.IsNil)
	f.booking = Booking{
		Vendor:   f.vendor,
		Filter:   filter,
		Defaults: Defaults{CampaignID: 77, CancelReasonID: 3, Priority: "High", Duration: 2 * time.Hour},
	}
	return f
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func ptr(f float64) *float64 { return &f }
