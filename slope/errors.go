package slope

import (
	"github.com/cockroachdb/errors"
)

// ErrValidation marks errors caused by invalid input or configuration.
// Use errors.Is to test for it.
var ErrValidation = errors.New("validation failed")

// invalidf returns a new error marked with ErrValidation.
func invalidf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}

// invalid marks an existing error with ErrValidation.
func invalid(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrValidation)
}
