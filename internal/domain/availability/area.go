package availability

import (
	"context"
	"strings"

	"github.com/juju/errors"

	"github.com/example/fsmgate/internal/internaltypes"
)

const (
	ReasonUnresolvable = "unresolvable address"
	ReasonBeyondRadius = "beyond service radius"
	ReasonZipMismatch  = "zip mismatch"
)

const (
	SourceAllowList   = "allow-list"
	SourceCoordinates = "coordinates"
	SourceGeocoder    = "geocoder"
)

// AreaVerdict is the outcome of a service-area check.
type AreaVerdict struct {
	InArea        bool    `json:"in_area"`
	Reason        string  `json:"reason,omitempty"`
	DistanceMiles float64 `json:"distance_miles,omitempty"`
	ExpectedZip   string  `json:"expected_zip,omitempty"`
	Source        string  `json:"source"`
}

// Err converts an out-of-area verdict into a KindOutOfArea error.
func (v AreaVerdict) Err() error {
	if v.InArea {
		return nil
	}
	switch v.Reason {
	case ReasonZipMismatch:
		return internaltypes.New(internaltypes.KindOutOfArea, "zip mismatch: the address is in zip %s", v.ExpectedZip)
	case ReasonBeyondRadius:
		return internaltypes.New(internaltypes.KindOutOfArea, "beyond service radius: %.2f miles from the depot", v.DistanceMiles)
	default:
		return internaltypes.New(internaltypes.KindOutOfArea, "%s", v.Reason)
	}
}

// CheckArea decides whether loc is inside the service area.
func (f *Filter) CheckArea(ctx context.Context, loc Location) (AreaVerdict, error) {
	if f.allowListed(loc) {
		logger.Debugf("%s, %s is allow-listed", loc.City, loc.State)
		return AreaVerdict{InArea: true, Source: SourceAllowList}, nil
	}

	var (
		point  GeoPoint
		postal string
		source string
	)
	switch {
	case loc.HasCoordinates():
		point = GeoPoint{Lat: *loc.Lat, Lon: *loc.Lon}
		source = SourceCoordinates
	default:
		addr := loc.Address()
		if addr == "" {
			return AreaVerdict{}, internaltypes.New(internaltypes.KindValidation, "an address or coordinates are required")
		}
		if f.geo == nil {
			return AreaVerdict{}, errors.New("no geocoder configured")
		}
		res, err := f.geo.Geocode(ctx, addr)
		if internaltypes.Is(err, internaltypes.KindNotFound) {
			return AreaVerdict{Reason: ReasonUnresolvable, Source: SourceGeocoder}, nil
		}
		if err != nil {
			return AreaVerdict{}, errors.Annotatef(err, "geocode %q", addr)
		}
		if res.Point.IsZero() {
			return AreaVerdict{Reason: ReasonUnresolvable, Source: SourceGeocoder}, nil
		}
		point, postal, source = res.Point, res.Postal, SourceGeocoder
	}

	v := AreaVerdict{
		DistanceMiles: DistanceMiles(f.settings.Depot, point),
		Source:        source,
	}
	if v.DistanceMiles > f.settings.RadiusMiles {
		v.Reason = ReasonBeyondRadius
		return v, nil
	}
	if postal != "" && strings.TrimSpace(loc.Zip) != "" {
		want, got := baseZip(postal), baseZip(loc.Zip)
		if want != got {
			v.Reason = ReasonZipMismatch
			v.ExpectedZip = want
			return v, nil
		}
	}
	v.InArea = true
	return v, nil
}

func (f *Filter) allowListed(loc Location) bool {
	_, city := f.cities[normalize(loc.City)]
	_, region := f.regions[normalize(loc.State)]
	return city && region
}

// baseZip drops a ZIP+4 suffix.
func baseZip(z string) string {
	z = strings.TrimSpace(z)
	if i := strings.IndexByte(z, '-'); i >= 0 {
		z = z[:i]
	}
	return z
}
