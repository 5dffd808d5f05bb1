package github

import (
	"encoding/json"
	"fmt"
)

// Distinguished errors raised by the client
var (
	ErrRateLimitExceeded = fmt.Errorf("API rate limit exceeded")
	ErrRequestTimeout    = fmt.Errorf("request timed out")
)

// DecodeError reports a record that could not be decoded into its
// target entity. It carries the raw record for diagnostics and is
// recovered inside the paginator, never surfaced past it.
type DecodeError struct {
	Target string
	Raw    json.RawMessage
	Reason error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s from %s: %v", e.Target, string(e.Raw), e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Reason
}
