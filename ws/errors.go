package ws

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownEvent     = errors.New("there is no such event type")
	ErrRateLimited      = errors.New("too many events, slow down")
	ErrManagerStopped   = errors.New("session manager stopped")
)

// MalformedPayloadError carries the validation messages for a rejected
// payload. It matches ErrMalformedPayload with errors.Is.
type MalformedPayloadError struct {
	Event   string
	Details []string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %v payload", e.Event)
}

func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}
