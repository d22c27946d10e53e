package repositories

import "errors"

// ErrNotFound is returned when a candidate, job description or job id is unknown.
var ErrNotFound = errors.New("record not found")
