package report

import (
	"errors"

	"github.com/giantswarm/microerror"
)

var invalidInputError = &microerror.Error{
	Kind: "invalidInputError",
}

// IsInvalidInput asserts invalidInputError.
func IsInvalidInput(err error) bool {
	return errors.Is(err, invalidInputError)
}
