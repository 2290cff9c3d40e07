package model

import (
	"github.com/pkg/errors"
)

var (
	ValidationError = errors.New("validation failed")
	maskAny         = errors.WithStack
)

// IsValidation returns true when the given error is (caused by) a
// ValidationError.
func IsValidation(err error) bool {
	return err == ValidationError || errors.Cause(err) == ValidationError
}
