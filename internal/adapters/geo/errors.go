package geo

import "errors"

// Sentinel kinds for lookup errors.
var (
	ErrLookupFailed = errors.New("geolocation lookup failed")
	ErrBadStatus    = errors.New("unexpected geolocation response status")
)
