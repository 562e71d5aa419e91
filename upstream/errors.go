package upstream

import (
	"errors"
	"fmt"
)

// Kind classifies failures from the event store so callers can pick a
// response without inspecting transport details.
type Kind string

const (
	// KindAuth means the token was rejected (401). The caller must discard
	// the stored token and re-authenticate.
	KindAuth Kind = "auth"
	// KindNetwork means no response was received at all.
	KindNetwork Kind = "network"
	// KindServer means the event store answered with a non-success status.
	KindServer Kind = "server"
	// KindDecode means the response body did not match the expected shape.
	KindDecode Kind = "decode"
)

// Error is the classified failure returned by every client call.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("upstream %s: %s (%d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("upstream %s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification of err, or the empty Kind when err did
// not originate from the client.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return ""
}

// IsAuth reports whether err is a rejected-token failure.
func IsAuth(err error) bool { return KindOf(err) == KindAuth }

// IsNetwork reports whether err is a no-response failure. Only these are
// safe to retry.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }
