package availability

import (
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("fsmgate.availability")

// HoursWindow restricts slots to a local time-of-day range.
type HoursWindow struct {
	Open     time.Duration // offset from local midnight
	Close    time.Duration
	Location *time.Location
}

// Contains reports whether the slot lies entirely inside the window on the
// day it starts.
func (w HoursWindow) Contains(s Slot) bool {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	start := s.Start.In(loc)
	midnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	return !start.Before(midnight.Add(w.Open)) && !s.End.In(loc).After(midnight.Add(w.Close))
}

// Settings is the immutable configuration of a Filter.
type Settings struct {
	Depot       GeoPoint
	RadiusMiles float64

	// Cities and Regions form the allow-list that skips geocoding.
	Cities  []string
	Regions []string

	SearchWindow   time.Duration
	SearchStep     time.Duration
	SearchAttempts int
	SkillBased     bool

	// BusinessHours is nil when no time-of-day filter applies.
	BusinessHours *HoursWindow
}

// DefaultSettings returns the production search parameters and service
// radius around the Lowell depot.
func DefaultSettings() Settings {
	return Settings{
		Depot:          GeoPoint{Lat: 42.6334, Lon: -71.3162},
		RadiusMiles:    50,
		Cities:         []string{"Salem", "Windham", "Pelham", "Hudson", "Nashua", "Methuen", "Lowell", "Dracut", "Andover", "Haverhill"},
		Regions:        []string{"NH", "MA", "New Hampshire", "Massachusetts"},
		SearchWindow:   14 * 24 * time.Hour,
		SearchStep:     7 * 24 * time.Hour,
		SearchAttempts: 5,
		SkillBased:     true,
	}
}

// Deps are the collaborators of a Filter. Catalog and Units may be nil when
// callers always pass business units explicitly.
type Deps struct {
	Geocoder Geocoder
	Capacity CapacitySource
	Catalog  Catalog
	Units    UnitDirectory
	Clock    clock.Clock
}

// Filter decides whether a location is serviceable and which capacity
// slots are open for a job type.
type Filter struct {
	settings Settings
	cities   map[string]struct{}
	regions  map[string]struct{}

	geo      Geocoder
	capacity CapacitySource
	catalog  Catalog
	units    UnitDirectory
	clock    clock.Clock
}

func New(s Settings, d Deps) (*Filter, error) {
	if s.RadiusMiles <= 0 {
		return nil, errors.NotValidf("service radius %v", s.RadiusMiles)
	}
	if s.SearchAttempts < 1 || s.SearchWindow <= 0 || s.SearchStep <= 0 {
		return nil, errors.NotValidf("search parameters")
	}
	if d.Capacity == nil {
		return nil, errors.New("capacity source is required")
	}
	if d.Clock == nil {
		d.Clock = clock.WallClock
	}
	return &Filter{
		settings: s,
		cities:   lowerSet(s.Cities),
		regions:  lowerSet(s.Regions),
		geo:      d.Geocoder,
		capacity: d.Capacity,
		catalog:  d.Catalog,
		units:    d.Units,
		clock:    d.Clock,
	}, nil
}

// Settings returns a copy of the filter configuration.
func (f *Filter) Settings() Settings { return f.settings }

func lowerSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s = normalize(s); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
