package tool

import "errors"

// CancelRunError is a sentinel a tool returns to end the run early. The run
// loop cancels the remote run instead of submitting outputs and records Data
// on the run for the caller.
type CancelRunError struct {
	// Data is an arbitrary result the tool wants to surface as the run outcome.
	Data any
}

// Error implements the error interface.
func (e *CancelRunError) Error() string { return "run cancelled by tool" }

// CancelRun returns a CancelRunError carrying data.
func CancelRun(data any) error { return &CancelRunError{Data: data} }

// IsCancelRun reports whether err is (or wraps) a CancelRunError.
func IsCancelRun(err error) bool {
	var cre *CancelRunError
	return errors.As(err, &cre)
}
