package correlator

import (
	"errors"
	"fmt"
)

// ErrKind classifies why a correlated request failed.
type ErrKind string

const (
	// KindTransport - the underlying request failed before any notification.
	KindTransport ErrKind = "transport"
	// KindServerRejected - the request was acknowledged but a failure
	// notification arrived.
	KindServerRejected ErrKind = "server_rejected"
	// KindTimeout - no matching notification within the allotted window.
	KindTimeout ErrKind = "timeout"
	// KindLocalMedia - a local media or call-control operation failed.
	KindLocalMedia ErrKind = "local_media"
)

// ErrRequestPending is returned when a second request is issued for the same
// interaction id and action before the first one settles.
var ErrRequestPending = errors.New("request already pending for this interaction and action")

// OpError is the normalized error surfaced for every failed operation.
type OpError struct {
	Kind       ErrKind
	Op         string
	Reason     string
	TrackingID string
	Err        error
}

func (e *OpError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.TrackingID != "" {
		msg += " (trackingId " + e.TrackingID + ")"
	}
	return msg
}

func (e *OpError) Unwrap() error {
	return e.Err
}
