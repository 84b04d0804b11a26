package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrNotFound is returned when a record, purchase or list does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a concurrent write won the race; callers may retry
	ErrConflict = errors.New("concurrent update conflict")

	// ErrStorageUnavailable is returned when the backing store cannot be reached
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrEstimatorFailure is returned when the price estimator request fails
	ErrEstimatorFailure = errors.New("price estimator request failed")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
