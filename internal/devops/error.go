package devops

import (
	"errors"

	"github.com/giantswarm/microerror"
)

var authError = &microerror.Error{
	Kind: "authError",
}

// IsAuth asserts authError.
func IsAuth(err error) bool {
	return errors.Is(err, authError)
}

var queryError = &microerror.Error{
	Kind: "queryError",
}

// IsQuery asserts queryError.
func IsQuery(err error) bool {
	return errors.Is(err, queryError)
}

var invalidConfigError = &microerror.Error{
	Kind: "invalidConfigError",
}

// IsInvalidConfig asserts invalidConfigError.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, invalidConfigError)
}
