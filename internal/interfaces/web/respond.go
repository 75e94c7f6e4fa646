package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/example/fsmgate/internal/domain/audit"
	"github.com/example/fsmgate/internal/internaltypes"
)

const maxBody = 1 << 20

type ctxKeyRequestID struct{}

func requestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID{}).(string); ok {
		return v
	}
	return ""
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID{}, id)))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.clock.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Infof("%s %s %d %s [%s]", r.Method, r.URL.Path, sw.status, s.clock.Now().Sub(start), requestIDFrom(r.Context()))
	})
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusFor maps an error kind to an HTTP status. Business outcomes are
// 200 so the agent reads the message and relays it to the caller.
func statusFor(kind internaltypes.Kind) int {
	switch kind {
	case internaltypes.KindValidation, internaltypes.KindNotFound, internaltypes.KindOutOfArea,
		internaltypes.KindNoAvailability, internaltypes.KindGeocoding:
		return http.StatusOK
	case internaltypes.KindUnauthorized:
		return http.StatusUnauthorized
	case internaltypes.KindUpstreamAuth, internaltypes.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := internaltypes.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s [%s]: %s", r.Method, r.URL.Path, requestIDFrom(r.Context()), errors.ErrorStack(err))
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg, Kind: kind.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warningf("write response: %v", err)
	}
}

// toolFunc handles one agent tool call. args is the content of the
// request's "args" object.
type toolFunc func(ctx context.Context, args json.RawMessage) (any, error)

type envelope struct {
	Args json.RawMessage `json:"args"`
}

func (s *Server) tool(name string, fn toolFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.clock.Now()
		args, err := readArgs(r)
		var out any
		if err == nil {
			ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
			out, err = fn(ctx, args)
			cancel()
		}

		call := audit.ToolCall{Tool: name, Args: args, Outcome: audit.OutcomeOK}
		if err != nil {
			call.Error = err.Error()
			call.Outcome = audit.OutcomeRejected
			if statusFor(internaltypes.KindOf(err)) != http.StatusOK {
				call.Outcome = audit.OutcomeFailed
			}
		}
		call.Duration = s.clock.Now().Sub(start)
		if aerr := s.audit.Record(context.WithoutCancel(r.Context()), call); aerr != nil {
			logger.Warningf("audit %s: %v", name, aerr)
		}

		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})
}

// readArgs returns the "args" object of the envelope. Bodies without an
// envelope are taken as the arguments themselves.
func readArgs(r *http.Request) (json.RawMessage, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return nil, errors.Annotate(err, "read body")
	}
	if len(b) > maxBody {
		return nil, internaltypes.New(internaltypes.KindValidation, "request body too large")
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return json.RawMessage("{}"), nil
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, internaltypes.New(internaltypes.KindValidation, "request body is not a JSON object: %v", err)
	}
	if len(env.Args) == 0 || bytes.Equal(env.Args, []byte("null")) {
		return json.RawMessage(b), nil
	}
	return env.Args, nil
}

func decodeArgs(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return internaltypes.New(internaltypes.KindValidation, "invalid arguments: %v", err)
	}
	return nil
}
