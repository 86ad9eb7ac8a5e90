package storage

import (
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

var (
	// ErrNotFound indicates the entity does not exist or is owned by a
	// different user. Callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")
	// ErrExists indicates an insert collided with an existing entity.
	ErrExists = errors.New("already exists")
)

func translate(err error) error {
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 404:
			return ErrNotFound
		case 409:
			return ErrExists
		}
	}
	return err
}
