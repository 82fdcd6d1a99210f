package repository

import "errors"

var (
	// ErrInvalidReference indicates a reference that names neither a URL nor a blob
	ErrInvalidReference = errors.New("invalid image reference")

	// ErrBlobStorageDisabled indicates blob intake was requested without configured storage
	ErrBlobStorageDisabled = errors.New("blob storage is not configured")
)
