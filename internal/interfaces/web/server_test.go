package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/fsmgate/internal/application/usecases"
	"github.com/example/fsmgate/internal/domain/audit"
	"github.com/example/fsmgate/internal/domain/availability"
	"github.com/example/fsmgate/internal/infrastructure/catalog"
	"github.com/example/fsmgate/internal/infrastructure/fieldservice"
)

var refTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

const testCatalog = `
job_types:
  - code: 5879699
    label: AC Repair
    unit_ids: [1097]
`

const testAgentKey = "agent-key-0123456789"

// vendor is an httptest stand-in for the field-service API.
type vendor struct {
	mu             sync.Mutex
	capacityStatus int
	capacity       []fieldservice.CapacityQuery
	jobs           []fieldservice.CreateJobRequest
}

func (v *vendor) handler(c *qt.C) http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":900}`)
	})
	m.HandleFunc("/dispatch/v2/tenant/42/capacity", func(w http.ResponseWriter, r *http.Request) {
		var q fieldservice.CapacityQuery
		c.Check(json.NewDecoder(r.Body).Decode(&q), qt.IsNil)
		v.mu.Lock()
		v.capacity = append(v.capacity, q)
		status := v.capacityStatus
		v.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			fmt.Fprint(w, "capacity is down")
			return
		}
		fmt.Fprint(w, `{"availabilities":[
			{"startUtc":"2025-03-10T13:00:00Z","endUtc":"2025-03-10T16:00:00Z","isAvailable":true,
			 "technicians":[{"id":31,"name":"Sam","status":"Available"}]},
			{"startUtc":"2025-03-10T16:00:00Z","endUtc":"2025-03-10T19:00:00Z","isAvailable":false}
		]}`)
	})
	m.HandleFunc("/crm/v2/tenant/42/locations", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"page":1,"hasMore":false,"data":[{"id":13,"customerId":12,"address":{"city":"Salem","state":"NH"}}]}`)
	})
	m.HandleFunc("/jpm/v2/tenant/42/jobs", func(w http.ResponseWriter, r *http.Request) {
		var req fieldservice.CreateJobRequest
		c.Check(json.NewDecoder(r.Body).Decode(&req), qt.IsNil)
		v.mu.Lock()
		v.jobs = append(v.jobs, req)
		v.mu.Unlock()
		fmt.Fprint(w, `{"id":900,"jobNumber":"900","jobStatus":"Scheduled","firstAppointmentId":901}`)
	})
	return m
}

func (v *vendor) capacityQueries() []fieldservice.CapacityQuery {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]fieldservice.CapacityQuery(nil), v.capacity...)
}

func (v *vendor) createdJobs() []fieldservice.CreateJobRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]fieldservice.CreateJobRequest(nil), v.jobs...)
}

func (v *vendor) failCapacity(status int) {
	v.mu.Lock()
	v.capacityStatus = status
	v.mu.Unlock()
}

type nowhere struct{}

func (nowhere) Geocode(context.Context, string) (availability.GeocodeResult, error) {
	return availability.GeocodeResult{Point: availability.GeoPoint{Lat: 40.7128, Lon: -74.0060}, Postal: "10004"}, nil
}

type recorder struct {
	mu    sync.Mutex
	calls []audit.ToolCall
}

func (r *recorder) Record(_ context.Context, c audit.ToolCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return nil
}

func (r *recorder) all() []audit.ToolCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.ToolCall(nil), r.calls...)
}

type harness struct {
	vendor *vendor
	audit  *recorder
	srv    *httptest.Server
}

func newHarness(c *qt.C, keys *usecases.AgentKeys) *harness {
	h := &harness{vendor: &vendor{}, audit: &recorder{}}
	vs := httptest.NewServer(h.vendor.handler(c))
	c.Cleanup(vs.Close)

	client := fieldservice.New(fieldservice.Options{
		AuthURL: vs.URL + "/connect/token", APIURL: vs.URL,
		ClientID: "cid", ClientSecret: "secret", TenantID: "42", AppKey: "ak",
	})
	cat, err := catalog.Parse([]byte(testCatalog))
	c.Assert(err, qt.IsNil)
	clk := testclock.NewClock(refTime)
	filter, err := availability.New(availability.DefaultSettings(), availability.Deps{
		Geocoder: nowhere{},
		Capacity: client,
		Catalog:  cat,
		Units:    client,
		Clock:    clk,
	})
	c.Assert(err, qt.IsNil)

	s, err := New(Options{
		Booking: usecases.Booking{Vendor: client, Filter: filter, Defaults: usecases.Defaults{Duration: 3 * time.Hour}},
		Offers:  NewOfferSigner([]byte("0123456789abcdef0123456789abcdef"), []byte("0123456789abcdef"), DefaultOfferTTL),
		Keys:    keys,
		Audit:   h.audit,
		Clock:   clk,
	})
	c.Assert(err, qt.IsNil)
	h.srv = httptest.NewServer(s.Routes())
	c.Cleanup(h.srv.Close)
	return h
}

func (h *harness) post(c *qt.C, path, body string, header ...string) (int, map[string]any) {
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(body))
	c.Assert(err, qt.IsNil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	res, err := http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	c.Assert(err, qt.IsNil)
	var out map[string]any
	c.Assert(json.Unmarshal(b, &out), qt.IsNil, qt.Commentf("body: %s", b))
	return res.StatusCode, out
}

func TestRoot(t *testing.T) {
	c := qt.New(t)
	h := newHarness(c, nil)

	res, err := http.Get(h.srv.URL + "/")
	c.Assert(err, qt.IsNil)
	defer res.Body.Close()
	c.Assert(res.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(res.Header.Get("X-Request-Id"), qt.Not(qt.Equals), "")
	b, _ := io.ReadAll(res.Body)
	c.Assert(string(b), qt.Equals, "{\"status\":\"Service is up\"}\n")
}

func TestSalemEndToEnd(t *testing.T) {
	c := qt.New(t)
	h := newHarness(c, nil)

	status, out := h.post(c, "/get-available-slots",
		`{"event":"tool","args":{"start_time":"2025-03-10T09:00:00Z","jobTypeId":5879699,"location":{"city":"Salem","state":"NH"}}}`)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(out["available_slots"], qt.DeepEquals, []any{
		map[string]any{"start": "2025-03-10T13:00:00Z", "end": "2025-03-10T16:00:00Z"},
	})
	c.Assert(out["attempts"], qt.Equals, 1.0)
	tok, _ := out["offer_token"].(string)
	c.Assert(tok, qt.Not(qt.Equals), "")

	capacity := h.vendor.capacityQueries()
	c.Assert(capacity, qt.HasLen, 1)
	c.Assert(capacity[0].BusinessUnitIDs, qt.DeepEquals, []int64{1097})
	c.Assert(capacity[0].JobTypeID, qt.Equals, int64(5879699))

	status, out = h.post(c, "/create-job", fmt.Sprintf(
		`{"args":{"customerId":12,"jobTypeId":5879699,"start_time":"2025-03-10T13:00:00Z","offer_token":%q}}`, tok))
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(out["job_id"], qt.Equals, 900.0)
	c.Assert(out["end"], qt.Equals, "2025-03-10T16:00:00Z")
	jobs := h.vendor.createdJobs()
	c.Assert(jobs, qt.HasLen, 1)
	c.Assert(jobs[0].LocationID, qt.Equals, int64(13))
	c.Assert(jobs[0].BusinessUnitID, qt.Equals, int64(1097))

	calls := h.audit.all()
	c.Assert(calls, qt.HasLen, 2)
	c.Assert(calls[0].Tool, qt.Equals, "get-available-slots")
	c.Assert(calls[0].Outcome, qt.Equals, audit.OutcomeOK)
	c.Assert(string(calls[0].Args), qt.Contains, `"jobTypeId":5879699`)
}

func TestCreateJobRejectsUnofferedSlot(t *testing.T) {
	c := qt.New(t)
	h := newHarness(c, nil)

	_, out := h.post(c, "/get-available-slots", `{"args":{"start_time":"2025-03-10T09:00:00Z","jobTypeId":5879699}}`)
	tok := out["offer_token"].(string)

	status, out := h.post(c, "/create-job", fmt.Sprintf(
		`{"args":{"customerId":12,"jobTypeId":5879699,"start_time":"2025-03-10T16:00:00Z","offer_token":%q}}`, tok))
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(out["kind"], qt.Equals, "validation")
	c.Assert(out["error"], qt.Equals, "2025-03-10T16:00:00Z was not one of the offered slots")

	status, out = h.post(c, "/create-job", `{"args":{"customerId":12,"jobTypeId":5879699,"start_time":"2025-03-10T13:00:00Z","offer_token":"forged"}}`)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(out["error"], qt.Equals, "offer_token is invalid or expired")
	c.Assert(h.vendor.createdJobs(), qt.HasLen, 0)

	calls := h.audit.all()
	c.Assert(calls[len(calls)-1].Outcome, qt.Equals, audit.OutcomeRejected)
}

func TestOutOfAreaIsABusinessResult(t *testing.T) {
	c := qt.New(t)
	h := newHarness(c, nil)

	status, out := h.post(c, "/get-available-slots",
		`{"args":{"start_time":"2025-03-10T09:00:00Z","jobTypeId":5879699,"location":{"street":"1 Broadway","city":"New York","state":"NY","zip":"10004"}}}`)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(out["kind"], qt.Equals, "out_of_area")
	c.Assert(out["error"], qt.Matches, "beyond service radius: .*")
	c.Assert(h.vendor.capacityQueries(), qt.HasLen, 0)

	status, out = h.post(c, "/check-address", `{"args":{"street":"1 Broadway","city":"New York","state":"NY","zip":"10004"}}`)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(out["in_area"], qt.Equals, false)
	c.Assert(out["reason"], qt.Equals, "beyond service radius")

	status, out = h.post(c, "/check-address", `{"args":{"city":"salem","state":"nh"}}`)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(out["in_area"], qt.Equals, true)
	c.Assert(out["source"], qt.Equals, "allow-list")
}

func TestVendorFailureIsBadGateway(t *testing.T) {
	c := qt.New(t)
	h := newHarness(c, nil)
	h.vendor.failCapacity(http.StatusInternalServerError)

	status, out := h.post(c, "/get-technician-slots", `{"args":{"start_time":"2025-03-10T09:00:00Z","jobTypeId":5879699}}`)
	c.Assert(status, qt.Equals, http.StatusBadGateway)
	c.Assert(out["kind"], qt.Equals, "upstream")
	c.Assert(out["error"], qt.Matches, ".*capacity is down")
	c.Assert(h.audit.all()[0].Outcome, qt.Equals, audit.OutcomeFailed)
}

func TestTechnicianSlots(t *testing.T) {
	c := qt.New(t)
	h := newHarness(c, nil)

	status, out := h.post(c, "/get-technician-slots", `{"args":{"start_time":"2025-03-10T09:00:00Z","jobTypeId":"5879699"}}`)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(out["kind"], qt.Equals, "validation")

	status, out = h.post(c, "/get-technician-slots", `{"args":{"start_time":"2025-03-10T09:00:00Z","jobTypeId":5879699,"businessUnitIds":"1097"}}`)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(out["technician_slots"], qt.DeepEquals, []any{
		map[string]any{"time": "13:00:00Z", "technician_id": 31.0},
	})
}

func TestJobTypesAndBareArgs(t *testing.T) {
	c := qt.New(t)
	h := newHarness(c, nil)

	status, out := h.post(c, "/job-types", ``)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(out["job_types"], qt.HasLen, 1)

	status, out = h.post(c, "/check-address", `{"city":"Salem","state":"NH"}`)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(out["in_area"], qt.Equals, true)

	status, out = h.post(c, "/check-address", `[1,2]`)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(out["kind"], qt.Equals, "validation")
}

func TestAgentKey(t *testing.T) {
	c := qt.New(t)
	hash, err := bcrypt.GenerateFromPassword([]byte(testAgentKey), bcrypt.MinCost)
	c.Assert(err, qt.IsNil)
	h := newHarness(c, &usecases.AgentKeys{Hash: hash})

	status, out := h.post(c, "/job-types", `{}`)
	c.Assert(status, qt.Equals, http.StatusUnauthorized)
	c.Assert(out["kind"], qt.Equals, "unauthorized")

	status, _ = h.post(c, "/job-types", `{}`, "X-Agent-Key", "nope")
	c.Assert(status, qt.Equals, http.StatusUnauthorized)

	for i := 0; i < 2; i++ {
		status, _ = h.post(c, "/job-types", `{}`, "Authorization", "Bearer "+testAgentKey)
		c.Assert(status, qt.Equals, http.StatusOK)
	}
	c.Assert(h.audit.all(), qt.HasLen, 2)

	res, err := http.Get(h.srv.URL + "/healthz")
	c.Assert(err, qt.IsNil)
	res.Body.Close()
	c.Assert(res.StatusCode, qt.Equals, http.StatusOK)
}

func TestRouting(t *testing.T) {
	c := qt.New(t)
	h := newHarness(c, nil)

	res, err := http.Get(h.srv.URL + "/create-job")
	c.Assert(err, qt.IsNil)
	res.Body.Close()
	c.Assert(res.StatusCode, qt.Equals, http.StatusMethodNotAllowed)
	c.Assert(res.Header.Get("X-Request-Id"), qt.Not(qt.Equals), "")

	status, out := h.post(c, "/bookSlot", `{}`)
	c.Assert(status, qt.Equals, http.StatusNotFound)
	c.Assert(out["error"], qt.Equals, "no such route")

	res, err = http.Post(h.srv.URL+"/bookSlot", "application/json", strings.NewReader(`{}`))
	c.Assert(err, qt.IsNil)
	res.Body.Close()
	c.Assert(res.StatusCode, qt.Equals, http.StatusNotFound)
	c.Assert(res.Header.Get("X-Request-Id"), qt.Not(qt.Equals), "")
}
