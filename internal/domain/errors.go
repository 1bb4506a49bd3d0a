package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrShortlistFull      = errors.New("shortlist is full")
	ErrAlreadyShortlisted = errors.New("hotel already shortlisted")
)

// AuthenticationError means the provider refused the service credentials
// or answered without a usable token.
type AuthenticationError struct {
	Status int
	Reason string
}

func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("easygds auth failed: %d", e.Status)
	}
	return fmt.Sprintf("easygds auth failed: %d: %s", e.Status, e.Reason)
}

// UpstreamError is a non-2xx answer from a data endpoint after the permitted retry.
type UpstreamError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("easygds %s %s failed: %d", e.Method, e.Path, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// ValidationError rejects client input before any upstream traffic.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsUpstream(err error) bool {
	var u *UpstreamError
	var a *AuthenticationError
	return errors.As(err, &u) || errors.As(err, &a)
}
