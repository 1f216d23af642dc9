package compliance

import "errors"

// Validation errors, checked before any network effect.
var (
	ErrEmptyDocument = errors.New("document text is required")
	ErrNoRegulations = errors.New("at least one regulation must be selected")
	ErrNoCredential  = errors.New("no scoring credential configured")
)

// ErrRequestFailed covers transport failures and non-success responses from
// the scoring backend. The backend's error body is not machine-parsed.
var ErrRequestFailed = errors.New("scoring request failed")

// ErrParse indicates the backend returned content that does not decode into
// the report shape. No partial reports are produced.
var ErrParse = errors.New("scoring response could not be parsed")
