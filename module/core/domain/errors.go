package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindPersistence        ErrorKind = "PERSISTENCE"
	KindBroadcastDelivery  ErrorKind = "BROADCAST_DELIVERY"
	KindGeofenceEvaluation ErrorKind = "GEOFENCE_EVALUATION"
)

// ErrVehicleNotFound is returned by vehicle registries for unknown ids.
var ErrVehicleNotFound = errors.New("vehicle not found")

// Error carries a machine-readable kind alongside a human message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the human message of err without wrapped causes.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
