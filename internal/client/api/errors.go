package api

import "errors"

// ErrUnavailable means the server could not be reached at all.
var ErrUnavailable = errors.New("server unavailable")
