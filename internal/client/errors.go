package client

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationRejected means the server declined the credentials.
	ErrAuthenticationRejected = errors.New("authentication rejected")
	// ErrNetworkFailure covers transport errors and non-2xx responses.
	ErrNetworkFailure = errors.New("network failure")
	// ErrNoSession means no valid session is stored locally.
	ErrNoSession = errors.New("no session")
)

// RejectionError carries the reason the server gave for refusing a login.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

func (e *RejectionError) Unwrap() error { return ErrAuthenticationRejected }

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrNetworkFailure }

func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrNetworkFailure, err)
}
