package cache

import "github.com/pkg/errors"

// ErrInvalidCapacity is wrapped and returned by constructors that accept an
// explicit capacity smaller than 1 when the strict (error-returning) form
// is used instead of the clamp-to-1 convenience constructors.
var ErrInvalidCapacity = errors.New("cache: capacity must be at least 1")

// ErrKeyNotFound backs the strict-mode accessors. The zero-value contract
// (get/remove returning a bare ok bool) remains the default surface per the
// error taxonomy; ErrKeyNotFound exists for callers that prefer an error
// return over a boolean, wrapped with the offending key's string form by
// the caller.
var ErrKeyNotFound = errors.New("cache: key not found")

// wrapf is a thin helper around errors.Wrapf kept in one place so every
// core reports invalid-capacity failures identically.
func wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
