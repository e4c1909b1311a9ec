package ai

import "github.com/pkg/errors"

// ErrInvalidRequest marks caller mistakes (empty query, non-positive
// top-k or final count). Requests failing this way are rejected before any
// vector computation.
var ErrInvalidRequest = errors.New("invalid request")

// ErrServiceUnavailable marks transient backend failures (embedding model
// timeout after retry). The process stays up; the caller may retry.
var ErrServiceUnavailable = errors.New("service unavailable")
