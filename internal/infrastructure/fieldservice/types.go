package fieldservice

import "time"

type Address struct {
	Street    string   `json:"street,omitempty"`
	Unit      string   `json:"unit,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Zip       string   `json:"zip,omitempty"`
	Country   string   `json:"country,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type Customer struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Active  bool    `json:"active"`
	Address Address `json:"address"`
}

type Contact struct {
	Type  string `json:"type"` // Phone, Email, MobilePhone
	Value string `json:"value"`
	Memo  string `json:"memo,omitempty"`
}

type NewLocation struct {
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

type CreateCustomerRequest struct {
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Address   Address       `json:"address"`
	Locations []NewLocation `json:"locations"`
	Contacts  []Contact     `json:"contacts,omitempty"`
}

type Location struct {
	ID         int64   `json:"id"`
	CustomerID int64   `json:"customerId"`
	Name       string  `json:"name"`
	Active     bool    `json:"active"`
	Address    Address `json:"address"`
}

type CreateLocationRequest struct {
	CustomerID int64   `json:"customerId"`
	Name       string  `json:"name"`
	Address    Address `json:"address"`
}

type JobType struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	BusinessUnitIDs []int64 `json:"businessUnitIds"`
	Duration        int64   `json:"duration"` // seconds
	Active          bool    `json:"active"`
}

type BusinessUnit struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Active  bool    `json:"active"`
	Address Address `json:"address"`
}

type NewAppointment struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type CreateJobRequest struct {
	CustomerID     int64            `json:"customerId"`
	LocationID     int64            `json:"locationId"`
	BusinessUnitID int64            `json:"businessUnitId"`
	JobTypeID      int64            `json:"jobTypeId"`
	Priority       string           `json:"priority"`
	CampaignID     int64            `json:"campaignId"`
	Summary        string           `json:"summary,omitempty"`
	Appointments   []NewAppointment `json:"appointments"`
}

type Job struct {
	ID                 int64  `json:"id"`
	JobNumber          string `json:"jobNumber"`
	CustomerID         int64  `json:"customerId"`
	LocationID         int64  `json:"locationId"`
	BusinessUnitID     int64  `json:"businessUnitId"`
	JobTypeID          int64  `json:"jobTypeId"`
	JobStatus          string `json:"jobStatus"`
	Priority           string `json:"priority"`
	Summary            string `json:"summary"`
	FirstAppointmentID int64  `json:"firstAppointmentId"`
}

type Appointment struct {
	ID     int64     `json:"id"`
	JobID  int64     `json:"jobId"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status"`
}

type CapacityQuery struct {
	StartsOnOrAfter        time.Time `json:"startsOnOrAfter"`
	EndsOnOrBefore         time.Time `json:"endsOnOrBefore"`
	BusinessUnitIDs        []int64   `json:"businessUnitIds"`
	JobTypeID              int64     `json:"jobTypeId"`
	SkillBasedAvailability bool      `json:"skillBasedAvailability"`
}

type TechnicianAvailability struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Status            string `json:"status"`
	HasRequiredSkills bool   `json:"hasRequiredSkills"`
}

type Availability struct {
	Start             string                   `json:"start"`
	End               string                   `json:"end"`
	StartUTC          string                   `json:"startUtc"`
	EndUTC            string                   `json:"endUtc"`
	BusinessUnitIDs   []int64                  `json:"businessUnitIds"`
	TotalAvailability float64                  `json:"totalAvailability"`
	OpenAvailability  float64                  `json:"openAvailability"`
	IsAvailable       bool                     `json:"isAvailable"`
	Technicians       []TechnicianAvailability `json:"technicians"`
}

type page[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasMore  bool `json:"hasMore"`
	Data     []T  `json:"data"`
}
