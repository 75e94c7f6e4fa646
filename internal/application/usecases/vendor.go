package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/example/fsmgate/internal/domain/availability"
	"github.com/example/fsmgate/internal/infrastructure/fieldservice"
)

// Vendor is the part of the field-service API the booking flows use.
type Vendor interface {
	Ping(ctx context.Context) error
	SearchCustomers(ctx context.Context, name, phone string) ([]fieldservice.Customer, error)
	CreateCustomer(ctx context.Context, req fieldservice.CreateCustomerRequest) (fieldservice.Customer, error)
	CustomerLocations(ctx context.Context, customerID int64) ([]fieldservice.Location, error)
	CreateLocation(ctx context.Context, req fieldservice.CreateLocationRequest) (fieldservice.Location, error)
	GetJobType(ctx context.Context, id int64) (fieldservice.JobType, error)
	CreateJob(ctx context.Context, req fieldservice.CreateJobRequest) (fieldservice.Job, error)
	Jobs(ctx context.Context, customerID int64, status string) ([]fieldservice.Job, error)
	CancelJob(ctx context.Context, jobID, reasonID int64, memo string) error
	Appointments(ctx context.Context, jobID int64) ([]fieldservice.Appointment, error)
	Reschedule(ctx context.Context, appointmentID int64, start, end time.Time) (fieldservice.Appointment, error)
}

var _ Vendor = (*fieldservice.Client)(nil)

func toLocation(a fieldservice.Address) availability.Location {
	return availability.Location{
		Street:  strings.TrimSpace(strings.Join([]string{a.Street, a.Unit}, " ")),
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.Country,
		Lat:     a.Latitude,
		Lon:     a.Longitude,
	}
}

func fromLocation(l availability.Location) fieldservice.Address {
	country := l.Country
	if country == "" {
		country = "USA"
	}
	return fieldservice.Address{
		Street:  strings.TrimSpace(l.Street),
		City:    strings.TrimSpace(l.City),
		State:   strings.TrimSpace(l.State),
		Zip:     strings.TrimSpace(l.Zip),
		Country: country,
	}
}
