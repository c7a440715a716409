package broker

import "errors"

// ValidationError marks a malformed order request. It is raised locally
// and never reaches the wire.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "order validation: " + e.Msg }

// ConnectionError marks an unreachable or unauthenticated broker. The
// execution core propagates it without retrying.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return "broker connection: " + e.Op + ": " + e.Err.Error()
	}
	return "broker connection: " + e.Op
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsValidation reports whether err is an order validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConnection reports whether err is a broker connectivity failure.
func IsConnection(err error) bool {
	var c *ConnectionError
	return errors.As(err, &c)
}
