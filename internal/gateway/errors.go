package gateway

import (
	"fmt"
	"net/http"
)

// Kind classifies a request failure. The boundary layer maps kinds to
// HTTP status codes through a static table; nothing ever inspects
// error strings.
type Kind int

const (
	KindUnauthorized Kind = iota
	KindBadRequest
	KindPayloadTooLarge
	KindMisconfigured
	KindEmbedding
	KindIndexUnavailable
	KindSearch
)

var kindStatus = map[Kind]int{
	KindUnauthorized:     http.StatusUnauthorized,
	KindBadRequest:       http.StatusBadRequest,
	KindPayloadTooLarge:  http.StatusRequestEntityTooLarge,
	KindMisconfigured:    http.StatusInternalServerError,
	KindEmbedding:        http.StatusInternalServerError,
	KindIndexUnavailable: http.StatusInternalServerError,
	KindSearch:           http.StatusInternalServerError,
}

// Error carries a failure kind plus a human-readable detail string.
// The detail identifies the failing stage for operators but never
// exposes stack traces or internal identifiers.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

// Status returns the HTTP status for this error's kind.
func (e *Error) Status() int {
	if status, ok := kindStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// E builds an Error with a formatted detail.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
