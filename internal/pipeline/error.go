package pipeline

import (
	"errors"

	"github.com/giantswarm/microerror"
)

var validationError = &microerror.Error{
	Kind: "validationError",
}

// IsValidation asserts validationError.
func IsValidation(err error) bool {
	return errors.Is(err, validationError)
}

var gatewayError = &microerror.Error{
	Kind: "gatewayError",
}

// IsGateway asserts gatewayError, which wraps every failed tracker call.
// The tracker's own error kinds remain reachable through the chain.
func IsGateway(err error) bool {
	return errors.Is(err, gatewayError)
}

var invalidConfigError = &microerror.Error{
	Kind: "invalidConfigError",
}

// IsInvalidConfig asserts invalidConfigError.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, invalidConfigError)
}
