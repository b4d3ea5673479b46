package service

import (
	"github.com/pkg/errors"
)

var (
	// ErrExpired represents an error that the request validity window does not contain the current time even after applying the clock tolerance.
	ErrExpired = errors.New("request time window expired")

	// ErrInvalidSecurityHeader represents an error that the security header wiring of the request is malformed.
	ErrInvalidSecurityHeader = errors.New("invalid security header")

	// ErrContradictoryHoKConditions represents an error that the holder-of-key confirmation inputs contradict each other.
	ErrContradictoryHoKConditions = errors.New("contradictory holder-of-key conditions")

	// ErrInvalidRequest represents an error that the request violates delegation or act-as policy.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnsupportedSecurityToken represents an error that the operation does not support the presented token kind.
	ErrUnsupportedSecurityToken = errors.New("unsupported security token")

	// ErrUnableToRenew represents an error that the token authority declined the renewal on policy grounds.
	ErrUnableToRenew = errors.New("unable to renew token")

	// ErrInvalidTimeRange represents an error that the token authority declined the requested lifetime on policy grounds.
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrNoSuchIdP represents an error that the owning identity provider cannot be found.
	ErrNoSuchIdP = errors.New("no such identity provider")

	// ErrRequestFailed represents a system level failure while processing the request.
	ErrRequestFailed = errors.New("request failed")

	// ErrInvalidCredentials represents an error that the presented credentials or negotiation context cannot be accepted.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidSignature represents an error that a signature check failed.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrAuthenticationFailed represents an error that the authenticator rejected the request.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInternal represents a schema contract breach that the transport layer is required to have prevented.
	ErrInternal = errors.New("internal assertion failure")
)
