package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSessionClosed is returned by Session operations after Close (logout).
var ErrSessionClosed = errors.New("session closed")

// ValidationError is a locally detected problem. No network call was made and
// no state was changed.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func newValidationError(op, reason string) *ValidationError {
	return &ValidationError{Op: op, Reason: reason}
}

// TransportErrorKind classifies gateway failures
type TransportErrorKind string

const (
	KindNetwork TransportErrorKind = "network"
	KindHTTP    TransportErrorKind = "http"
	KindTimeout TransportErrorKind = "timeout"
	KindDecode  TransportErrorKind = "decode"
)

// TransportError is any failure talking to the gateway: the request never got a
// response, the response was not 2xx, or the body could not be used.
type TransportError struct {
	Op      string
	Kind    TransportErrorKind
	Status  int    // HTTP status, 0 when no response was received
	Payload []byte // raw error body from the gateway, if any
	Err     error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if detail := e.Detail(); detail != "" {
		msg += ": " + detail
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Detail extracts a human readable message from the gateway payload.
// The gateway answers errors with {"detail": "..."}; validation failures carry a
// list of objects with a "msg" field instead.
func (e *TransportError) Detail() string {
	if len(e.Payload) == 0 {
		return ""
	}

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(e.Payload, &body); err != nil || len(body.Detail) == 0 {
		return string(e.Payload)
	}

	var text string
	if err := json.Unmarshal(body.Detail, &text); err == nil {
		return text
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil && len(items) > 0 {
		return items[0].Msg
	}

	return string(body.Detail)
}

// ErrorKind tags errors for the presentation layer
type ErrorKind int

const (
	ErrorKindNone ErrorKind = iota
	ErrorKindValidation
	ErrorKindTransport
	ErrorKindOther
)

// KindOf classifies err.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ErrorKindValidation
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return ErrorKindTransport
	}

	return ErrorKindOther
}
