// Package apperr holds the error taxonomy shared by domain packages and the HTTP layer.
package apperr

import (
	"fmt"
	"time"
)

// ValidationError is bad, missing or out-of-range input. Fields maps input names to messages.
type ValidationError struct {
	Code    string
	Message string
	Fields  map[string]string
}

func (e ValidationError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type AuthError struct {
	Message string
}

func (e AuthError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	return e.Resource + " not found"
}

type ConflictError struct {
	Code    string
	Message string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type RateLimitError struct {
	RetryAfter time.Duration
	ResetAt    time.Time
}

func (e RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// RetryAfterSeconds rounds up to whole seconds, never below 1.
func (e RateLimitError) RetryAfterSeconds() int {
	s := int((e.RetryAfter + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

// DependencyError is a failure of storage, email or file storage.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Dependency, e.Err)
}

func (e DependencyError) Unwrap() error {
	return e.Err
}

func Dependency(name string, err error) error {
	if err == nil {
		return nil
	}
	return DependencyError{Dependency: name, Err: err}
}
