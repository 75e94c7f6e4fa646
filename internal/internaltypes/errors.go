package internaltypes

import (
	stderrors "errors"
	"fmt"

	"github.com/juju/errors"
)

// Kind classifies a failure so that the transport layer can decide how to
// present it without inspecting messages.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindOutOfArea
	KindNoAvailability
	KindGeocoding
	KindUpstreamAuth
	KindUpstream
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindOutOfArea:
		return "out_of_area"
	case KindNoAvailability:
		return "no_availability"
	case KindGeocoding:
		return "geocoding"
	case KindUpstreamAuth:
		return "upstream_auth"
	case KindUpstream:
		return "upstream"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is the single error shape used across the service.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Msg: "unauthorized"}
	ErrNotFound     = &Error{Kind: KindNotFound, Msg: "not found"}
)

// KindOf reports the kind of err. Errors annotated with juju/errors keep
// their kind through errors.Cause.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if stderrors.As(errors.Cause(err), &e) {
		return e.Kind
	}
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
