package store

import (
	"errors"

	"github.com/giantswarm/microerror"
)

var storageError = &microerror.Error{
	Kind: "storageError",
}

// IsStorage asserts storageError.
func IsStorage(err error) bool {
	return errors.Is(err, storageError)
}
