package availability

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
)

// Location is a service address. Lat/Lon are set when the coordinates are
// already known, e.g. from a customer's stored location.
type Location struct {
	Street  string   `json:"street,omitempty"`
	City    string   `json:"city,omitempty"`
	State   string   `json:"state,omitempty"`
	Zip     string   `json:"zip,omitempty"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"latitude,omitempty"`
	Lon     *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether both coordinates are present.
func (l Location) HasCoordinates() bool { return l.Lat != nil && l.Lon != nil }

// Address renders the location as a single line suitable for geocoding.
func (l Location) Address() string {
	var parts []string
	for _, p := range []string{l.Street, l.City, strings.TrimSpace(l.State + " " + l.Zip), l.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type GeoPoint struct {
	Lat float64
	Lon float64
}

// IsZero is true for the 0,0 pair geocoders return when they give up.
func (p GeoPoint) IsZero() bool { return p.Lat == 0 && p.Lon == 0 }

type GeocodeResult struct {
	Point  GeoPoint
	Postal string
}

// Geocoder resolves an address. A KindNotFound error means the address
// does not exist; any other error is an outage.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (GeocodeResult, error)
}

type JobType struct {
	ID                int64    `json:"id"`
	Label             string   `json:"label"`
	BusinessUnitIDs   []int64  `json:"businessUnitIds,omitempty"`
	BusinessUnitNames []string `json:"businessUnitNames,omitempty"`
}

type BusinessUnit struct {
	ID   int64
	Name string
}

// Catalog lists the job types the service knows about.
type Catalog interface {
	JobTypes(ctx context.Context) ([]JobType, error)
}

// UnitDirectory lists the live business units.
type UnitDirectory interface {
	BusinessUnits(ctx context.Context) ([]BusinessUnit, error)
}

type Technician struct {
	ID        int64
	Name      string
	Available bool
}

// CapacitySlot is one vendor capacity record. RawStart keeps the vendor's
// combined UTC timestamp untouched.
type CapacitySlot struct {
	Start       time.Time
	End         time.Time
	RawStart    string
	Available   bool
	Technicians []Technician
}

type CapacityRequest struct {
	StartsOnOrAfter time.Time
	EndsOnOrBefore  time.Time
	BusinessUnitIDs []int64
	JobTypeID       int64
	SkillBased      bool
}

// CapacitySource queries vendor capacity for one window.
type CapacitySource interface {
	Capacity(ctx context.Context, req CapacityRequest) ([]CapacitySlot, error)
}

// Slot is an open window returned to callers.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SlotQuery is an appointment request as received from the agent.
type SlotQuery struct {
	Start           string `json:"start_time"`
	BusinessUnitIDs IDList `json:"businessUnitIds,omitempty"`
	JobTypeID       int64  `json:"jobTypeId"`
}

type SlotSearch struct {
	Slots           []Slot    `json:"available_slots"`
	BusinessUnitIDs []int64   `json:"business_unit_ids"`
	WindowStart     time.Time `json:"window_start"`
	SearchedThrough time.Time `json:"searched_through"`
	Attempts        int       `json:"attempts"`
}

// IDList accepts a single integer, a numeric string or a list of either.
type IDList []int64

func (l *IDList) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return errors.Annotate(err, "business unit ids")
		}
		out := make(IDList, 0, len(raw))
		for _, r := range raw {
			id, err := parseID(r)
			if err != nil {
				return err
			}
			out = append(out, id)
		}
		*l = out
		return nil
	}
	id, err := parseID(b)
	if err != nil {
		return err
	}
	*l = IDList{id}
	return nil
}

func parseID(b []byte) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		return n.Int64()
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return 0, errors.Errorf("business unit id %s is not a number", string(b))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, errors.Errorf("business unit id %q is not a number", s)
	}
	return id, nil
}
