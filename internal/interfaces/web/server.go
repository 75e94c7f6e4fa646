package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/example/fsmgate/internal/application/usecases"
	"github.com/example/fsmgate/internal/domain/audit"
)

var logger = loggo.GetLogger("fsmgate.web")

type Options struct {
	Addr    string
	Booking usecases.Booking
	Offers  *OfferSigner

	// Keys is nil in dev mode, which leaves the tool routes open.
	Keys  *usecases.AgentKeys
	Audit audit.Recorder
	Clock clock.Clock

	// RequestTimeout bounds one tool call including its vendor requests.
	RequestTimeout time.Duration
}

type Server struct {
	opts    Options
	booking usecases.Booking
	offers  *OfferSigner
	auth    *agentAuth
	audit   audit.Recorder
	clock   clock.Clock
}

func New(o Options) (*Server, error) {
	if o.Offers == nil {
		return nil, errors.New("offer signer is required")
	}
	if o.Booking.Filter == nil || o.Booking.Vendor == nil {
		return nil, errors.New("booking is not wired")
	}
	if o.Audit == nil {
		o.Audit = audit.Discard{}
	}
	if o.Clock == nil {
		o.Clock = clock.WallClock
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 2 * time.Minute
	}
	s := &Server{opts: o, booking: o.Booking, offers: o.Offers, audit: o.Audit, clock: o.Clock}
	if o.Keys != nil {
		s.auth = newAgentAuth(*o.Keys)
	}
	return s, nil
}

// Routes builds the HTTP handler. Request ids and the access log wrap the
// router so unmatched requests get them too.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	tools := r.NewRoute().Subrouter()
	if s.auth != nil {
		tools.Use(s.auth.middleware)
	}
	for path, h := range map[string]toolFunc{
		"/check-address":        s.checkAddress,
		"/get-available-slots":  s.availableSlots,
		"/get-technician-slots": s.technicianSlots,
		"/job-types":            s.jobTypes,
		"/find-customer":        s.findCustomer,
		"/create-customer":      s.createCustomer,
		"/create-job":           s.createJob,
		"/reschedule":           s.reschedule,
		"/cancel-job":           s.cancelJob,
		"/book-slot":            s.bookSlot,
	} {
		tools.Handle(path, s.tool(path[1:], h)).Methods(http.MethodPost)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no such route", Kind: "not_found"})
	})
	return requestID(s.logging(r))
}

// ListenAndServe serves until ctx is cancelled, then drains for up to ten
// seconds.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", s.opts.Addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return errors.Trace(err)
	case <-ctx.Done():
	}
	logger.Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return errors.Annotate(err, "shutdown")
	}
	if err := <-errc; err != nil && err != http.ErrServerClosed {
		return errors.Trace(err)
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Service is up"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("vendor") == "1" {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		if err := s.booking.Ping(ctx); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
