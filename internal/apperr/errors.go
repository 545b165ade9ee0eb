package apperr

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func NewValidationWrap(msg string, err error) *ValidationError {
	return &ValidationError{Message: msg, Err: err}
}

// NotFoundError signals a missing article or cluster on a read path.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func NewNotFound(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ProviderError records a single provider call failure. It is absorbed by the
// router and only reaches callers wrapped in a ChainExhaustedError.
type ProviderError struct {
	Provider string
	Purpose  string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (%s): %v", e.Provider, e.Purpose, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProvider(provider, purpose string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Purpose: purpose, Err: err}
}

// ChainExhaustedError means every provider in a purpose chain was either
// open-circuited, unconfigured or failed. It surfaces to the cache layer as a
// loader failure; only when no stale payload exists does it reach a reader.
type ChainExhaustedError struct {
	Purpose  string
	Attempts []error
}

func (e *ChainExhaustedError) Error() string {
	return fmt.Sprintf("no provider available for %s (%d attempts failed)", e.Purpose, len(e.Attempts))
}

func (e *ChainExhaustedError) Unwrap() error {
	return errors.Join(e.Attempts...)
}

func NewChainExhausted(purpose string, attempts []error) *ChainExhaustedError {
	return &ChainExhaustedError{Purpose: purpose, Attempts: attempts}
}

// IsChainExhausted reports whether err originated from an exhausted chain.
func IsChainExhausted(err error) bool {
	var ce *ChainExhaustedError
	return errors.As(err, &ce)
}
