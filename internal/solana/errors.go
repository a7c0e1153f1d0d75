package solana

import "errors"

var (
	// ErrMalformedPayload is returned when a required JSON field is missing or has the wrong shape.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrIncompatibleScale is returned when arithmetic mixes two different scales.
	ErrIncompatibleScale = errors.New("incompatible scale")
	// ErrUnresolvedAccount is returned when an index or key is not in the transaction's registry.
	ErrUnresolvedAccount = errors.New("unresolved account reference")
	// ErrDuplicateAccount is returned when the same key appears twice in one registry.
	ErrDuplicateAccount = errors.New("duplicate account key")
)
