package filestore

import "errors"

// Sentinel kinds for file store errors.
var (
	ErrInvalidName = errors.New("invalid file name")
)
