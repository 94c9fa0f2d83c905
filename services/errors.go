package services

import "errors"

var (
	// ErrUnauthorized indicates the actor may not perform the operation
	ErrUnauthorized = errors.New("user not authorized")

	// ErrContention indicates compare-and-swap retries ran out
	ErrContention = errors.New("pan is busy, too many concurrent updates")
)
