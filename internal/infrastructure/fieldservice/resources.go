package fieldservice

import (
	"context"
	"net/http"
	"time"

	"github.com/juju/errors"
)

type customerQuery struct {
	Name   string `url:"name,omitempty"`
	Phone  string `url:"phone,omitempty"`
	Active string `url:"active,omitempty"`
}

type locationQuery struct {
	CustomerID int64 `url:"customerId,omitempty"`
}

type jobQuery struct {
	CustomerID int64  `url:"customerId,omitempty"`
	JobStatus  string `url:"jobStatus,omitempty"`
}

type appointmentQuery struct {
	JobID int64 `url:"jobId,omitempty"`
}

type activeQuery struct {
	Active string `url:"active,omitempty"`
}

func (c *Client) SearchCustomers(ctx context.Context, name, phone string) ([]Customer, error) {
	q, err := values(customerQuery{Name: name, Phone: phone, Active: "True"})
	if err != nil {
		return nil, err
	}
	out, err := listAll[Customer](ctx, c, c.path("crm", "customers"), q)
	return out, errors.Annotate(err, "search customers")
}

func (c *Client) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (Customer, error) {
	var out Customer
	err := c.do(ctx, http.MethodPost, c.path("crm", "customers"), nil, req, &out)
	return out, errors.Annotate(err, "create customer")
}

func (c *Client) CustomerLocations(ctx context.Context, customerID int64) ([]Location, error) {
	q, err := values(locationQuery{CustomerID: customerID})
	if err != nil {
		return nil, err
	}
	out, err := listAll[Location](ctx, c, c.path("crm", "locations"), q)
	return out, errors.Annotatef(err, "locations of customer %d", customerID)
}

func (c *Client) CreateLocation(ctx context.Context, req CreateLocationRequest) (Location, error) {
	var out Location
	err := c.do(ctx, http.MethodPost, c.path("crm", "locations"), nil, req, &out)
	return out, errors.Annotate(err, "create location")
}

func (c *Client) ListJobTypes(ctx context.Context) ([]JobType, error) {
	q, err := values(activeQuery{Active: "True"})
	if err != nil {
		return nil, err
	}
	out, err := listAll[JobType](ctx, c, c.path("jpm", "job-types"), q)
	return out, errors.Annotate(err, "list job types")
}

func (c *Client) GetJobType(ctx context.Context, id int64) (JobType, error) {
	var out JobType
	err := c.do(ctx, http.MethodGet, c.path("jpm", "job-types/%d", id), nil, nil, &out)
	return out, errors.Annotatef(err, "job type %d", id)
}

func (c *Client) ListBusinessUnits(ctx context.Context) ([]BusinessUnit, error) {
	q, err := values(activeQuery{Active: "True"})
	if err != nil {
		return nil, err
	}
	out, err := listAll[BusinessUnit](ctx, c, c.path("settings", "business-units"), q)
	return out, errors.Annotate(err, "list business units")
}

func (c *Client) CreateJob(ctx context.Context, req CreateJobRequest) (Job, error) {
	var out Job
	err := c.do(ctx, http.MethodPost, c.path("jpm", "jobs"), nil, req, &out)
	return out, errors.Annotate(err, "create job")
}

func (c *Client) Jobs(ctx context.Context, customerID int64, status string) ([]Job, error) {
	q, err := values(jobQuery{CustomerID: customerID, JobStatus: status})
	if err != nil {
		return nil, err
	}
	out, err := listAll[Job](ctx, c, c.path("jpm", "jobs"), q)
	return out, errors.Annotatef(err, "jobs of customer %d", customerID)
}

func (c *Client) CancelJob(ctx context.Context, jobID, reasonID int64, memo string) error {
	body := struct {
		ReasonID int64  `json:"reasonId"`
		Memo     string `json:"memo"`
	}{ReasonID: reasonID, Memo: memo}
	err := c.do(ctx, http.MethodPut, c.path("jpm", "jobs/%d/cancel", jobID), nil, body, nil)
	return errors.Annotatef(err, "cancel job %d", jobID)
}

func (c *Client) Appointments(ctx context.Context, jobID int64) ([]Appointment, error) {
	q, err := values(appointmentQuery{JobID: jobID})
	if err != nil {
		return nil, err
	}
	out, err := listAll[Appointment](ctx, c, c.path("jpm", "appointments"), q)
	return out, errors.Annotatef(err, "appointments of job %d", jobID)
}

func (c *Client) Reschedule(ctx context.Context, appointmentID int64, start, end time.Time) (Appointment, error) {
	body := struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}{Start: start.UTC(), End: end.UTC()}
	var out Appointment
	err := c.do(ctx, http.MethodPatch, c.path("jpm", "appointments/%d/reschedule", appointmentID), nil, body, &out)
	return out, errors.Annotatef(err, "reschedule appointment %d", appointmentID)
}

func (c *Client) SearchCapacity(ctx context.Context, q CapacityQuery) ([]Availability, error) {
	q.StartsOnOrAfter = q.StartsOnOrAfter.UTC()
	q.EndsOnOrBefore = q.EndsOnOrBefore.UTC()
	var out struct {
		Availabilities []Availability `json:"availabilities"`
	}
	err := c.do(ctx, http.MethodPost, c.path("dispatch", "capacity"), nil, q, &out)
	return out.Availabilities, errors.Annotate(err, "capacity")
}
