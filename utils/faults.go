package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// FaultKind classifies a domain error so handlers can map it to a response
// without inspecting message text.
type FaultKind string

const (
	FaultNotFound      FaultKind = "notFound"
	FaultForbidden     FaultKind = "forbidden"
	FaultInvalidState  FaultKind = "invalidState"
	FaultInvalidAmount FaultKind = "invalidAmount"
	FaultTooEarly      FaultKind = "tooEarly"
	FaultConflict      FaultKind = "conflict"
	FaultImmutable     FaultKind = "immutable"
)

// Fault is a typed domain error. Infrastructure errors are wrapped with %w
// instead and surface as plain errors.
type Fault struct {
	Kind    FaultKind
	Message string
}

func (e *Fault) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewFault builds a Fault with a formatted message.
func NewFault(kind FaultKind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// FaultKindOf extracts the kind from err, if it is (or wraps) a Fault.
func FaultKindOf(err error) (FaultKind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}

// IsFault reports whether err carries the given kind.
func IsFault(err error, kind FaultKind) bool {
	k, ok := FaultKindOf(err)
	return ok && k == kind
}

// FaultStatus maps a fault kind to its HTTP status code.
func FaultStatus(kind FaultKind) int {
	switch kind {
	case FaultNotFound:
		return http.StatusNotFound
	case FaultForbidden:
		return http.StatusForbidden
	case FaultInvalidState, FaultConflict, FaultImmutable:
		return http.StatusConflict
	case FaultInvalidAmount, FaultTooEarly:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
