// Package common defines shared constants and sentinel errors used across
// the FileVault layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")

	// File lifecycle errors.
	ErrQuotaExceeded  = errors.New("storage quota exceeded")
	ErrAccessDenied   = errors.New("access denied")
	ErrIntegrityOrKey = errors.New("file unreadable: wrong key, wrong iv or corrupted ciphertext")
	ErrStorage        = errors.New("blob storage error")

	// Share-link errors.
	ErrShareLinkExpired = errors.New("share link expired")
	ErrWrongPassword    = errors.New("wrong share link password")
	ErrEmailNotAllowed  = errors.New("email is not allowed for this share link")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
