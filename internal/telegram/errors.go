package telegram

import "errors"

// Validation outcomes. The error text doubles as the reason string returned
// to clients, so it must never include signature material.
var (
	ErrNotConfigured     = errors.New("not configured")
	ErrEmpty             = errors.New("empty")
	ErrMissingHash       = errors.New("missing hash")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrExpired           = errors.New("expired")
	ErrMalformed         = errors.New("malformed")
)

// Reason maps err to the short label used in responses and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrEmpty):
		return "empty"
	case errors.Is(err, ErrMissingHash):
		return "missing_hash"
	case errors.Is(err, ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
