package mailer

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a delivery failure.
type ErrorKind string

const (
	// KindTransportUnavailable means the transport could not be built or
	// failed its reachability check. Nothing was sent.
	KindTransportUnavailable ErrorKind = "transport_unavailable"
	// KindSendFailed means the transport refused or failed the send.
	KindSendFailed ErrorKind = "send_failed"
)

// DeliveryError wraps the underlying transport error with its kind.
type DeliveryError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *DeliveryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("delivery: %s", e.Kind)
	if e.Provider != "" {
		base += fmt.Sprintf(" (provider=%s)", e.Provider)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *DeliveryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err is a DeliveryError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
