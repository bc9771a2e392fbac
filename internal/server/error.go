package server

import (
	"errors"
	"net/http"

	"github.com/giantswarm/microerror"

	"github.com/sir-timeline/timeline/internal/devops"
	"github.com/sir-timeline/timeline/internal/pipeline"
	"github.com/sir-timeline/timeline/internal/report"
)

var invalidConfigError = &microerror.Error{
	Kind: "invalidConfigError",
}

// IsInvalidConfig asserts invalidConfigError.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, invalidConfigError)
}

// statusFor maps error kinds to response codes. Storage and unknown
// failures are 500.
func statusFor(err error) int {
	switch {
	case pipeline.IsValidation(err), report.IsInvalidInput(err):
		return http.StatusBadRequest
	case devops.IsAuth(err), devops.IsQuery(err), pipeline.IsGateway(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
