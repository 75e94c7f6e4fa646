// Package geocode resolves street addresses through a geocode.xyz style
// JSON endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/example/fsmgate/internal/domain/availability"
	"github.com/example/fsmgate/internal/internaltypes"
)

var logger = loggo.GetLogger("fsmgate.geocode")

// throttled is the error code the service returns when it rate limits.
const throttled = "006"

type Client struct {
	http *http.Client
	base string
	auth string
}

var _ availability.Geocoder = (*Client)(nil)

func New(base, auth string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		base: strings.TrimRight(base, "/"),
		auth: auth,
	}
}

type params struct {
	JSON int    `url:"json"`
	Auth string `url:"auth,omitempty"`
}

type response struct {
	Latt     json.RawMessage `json:"latt"`
	Longt    json.RawMessage `json:"longt"`
	Postal   json.RawMessage `json:"postal"`
	Standard struct {
		Postal json.RawMessage `json:"postal"`
	} `json:"standard"`
	Error *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Geocode implements availability.Geocoder.
func (c *Client) Geocode(ctx context.Context, address string) (availability.GeocodeResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return availability.GeocodeResult{}, internaltypes.New(internaltypes.KindValidation, "address is empty")
	}
	q, err := query.Values(params{JSON: 1, Auth: c.auth})
	if err != nil {
		return availability.GeocodeResult{}, errors.Trace(err)
	}
	u := c.base + "/" + url.PathEscape(address) + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return availability.GeocodeResult{}, errors.Trace(err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return availability.GeocodeResult{}, internaltypes.New(internaltypes.KindGeocoding, "geocoder unavailable: %v", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return availability.GeocodeResult{}, internaltypes.New(internaltypes.KindGeocoding, "geocoder: read body: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		return availability.GeocodeResult{}, internaltypes.New(internaltypes.KindGeocoding, "geocoder returned http %d", res.StatusCode)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return availability.GeocodeResult{}, internaltypes.New(internaltypes.KindGeocoding, "geocoder: malformed response: %v", err)
	}
	if r.Error != nil {
		if r.Error.Code == throttled {
			return availability.GeocodeResult{}, internaltypes.New(internaltypes.KindGeocoding, "geocoder throttled: %s", r.Error.Description)
		}
		logger.Debugf("%q: %s %s", address, r.Error.Code, r.Error.Description)
		return availability.GeocodeResult{}, internaltypes.New(internaltypes.KindNotFound, "address not found: %s", r.Error.Description)
	}

	lat, err := coordinate(r.Latt)
	if err != nil {
		return availability.GeocodeResult{}, internaltypes.New(internaltypes.KindGeocoding, "geocoder: bad latitude %s", r.Latt)
	}
	lon, err := coordinate(r.Longt)
	if err != nil {
		return availability.GeocodeResult{}, internaltypes.New(internaltypes.KindGeocoding, "geocoder: bad longitude %s", r.Longt)
	}
	postal := postalCode(r.Standard.Postal)
	if postal == "" {
		postal = postalCode(r.Postal)
	}
	return availability.GeocodeResult{
		Point:  availability.GeoPoint{Lat: lat, Lon: lon},
		Postal: postal,
	}, nil
}

// coordinate accepts both "42.1" and 42.1.
func coordinate(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// postalCode reads a postal field that is a string when known and an
// empty object when not.
func postalCode(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
