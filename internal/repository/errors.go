package repository

import "errors"

var (
	// ErrNotFound means the promotion does not exist.
	ErrNotFound = errors.New("promotion not found")
	// ErrUsageLimitReached means the conditional usage increment was refused
	// because usage_count already reached usage_limit.
	ErrUsageLimitReached = errors.New("promotion usage limit reached")
)
