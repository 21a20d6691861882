package errs

import (
	"github.com/bookops/bookshelf-service/pkg/httpretry"
	"github.com/pkg/errors"
)

// Fallback messages shown when the backend gave no usable error body.
const (
	MsgLoadFailed    = "Could not load books."
	MsgRequestFailed = "Request failed."
)

// Message extracts the backend's error message from err, falling back to
// fallback when the failure was transport-level and carries no message.
func Message(err error, fallback string) string {
	var statusErr *httpretry.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return fallback
}
