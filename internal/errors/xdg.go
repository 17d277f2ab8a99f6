// ABOUTME: XDG path errors raised when a data directory cannot be created
// ABOUTME: Carries the variable, attempted path and cause for operators

package errors

import "fmt"

type XDGPathError struct {
	Variable      string
	AttemptedPath string
	UnderlyingErr error
}

func NewXDGPathError(variable, path string, err error) *XDGPathError {
	return &XDGPathError{
		Variable:      variable,
		AttemptedPath: path,
		UnderlyingErr: err,
	}
}

func (e *XDGPathError) Error() string {
	return fmt.Sprintf("cannot create %s directory at %s: %v (check permissions with: ls -ld %s)",
		e.Variable, e.AttemptedPath, e.UnderlyingErr, e.AttemptedPath)
}

func (e *XDGPathError) Unwrap() error {
	return e.UnderlyingErr
}
