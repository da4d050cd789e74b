package schema

import "errors"

var (
	// ErrEmptyText indicates a quick-entry submission with no text.
	ErrEmptyText = errors.New("empty text")
	// ErrInvalidPayload indicates a signal payload failed shape validation.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrUnknownRequest indicates a ready signal with no pending request,
	// typically because the matching submit expired.
	ErrUnknownRequest = errors.New("unknown or expired request")
	// ErrMismatchedRequest indicates a ready signal whose target tab differs
	// from the one recorded for its request id.
	ErrMismatchedRequest = errors.New("mismatched target tab")
	// ErrSupersededRequest indicates a ready signal for a request that is no
	// longer the most recent one issued for its target tab.
	ErrSupersededRequest = errors.New("request superseded")
	// ErrTabNotFound indicates a requested tab could not be found.
	ErrTabNotFound = errors.New("tab not found")
	// ErrFrameNotFound indicates no live frame matches a tab id.
	ErrFrameNotFound = errors.New("frame not found")
	// ErrDomainRejected indicates a frame's location failed the allowlist check.
	ErrDomainRejected = errors.New("frame domain not allowed")
	// ErrInvalidState indicates a tab-set candidate could not be normalized.
	ErrInvalidState = errors.New("invalid tab state")
)
