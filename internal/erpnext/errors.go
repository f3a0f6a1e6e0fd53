package erpnext

import (
	"fmt"

	"github.com/tillbridge/tillbridge/internal/shared"
)

// Remote failure classes. Unavailable covers transport errors and 5xx
// responses and is retryable; Rejected covers 4xx responses and is not.
var (
	ErrRemoteUnavailable = fmt.Errorf("%w: erpnext unavailable", shared.ErrRemote)
	ErrRemoteRejected    = fmt.Errorf("%w: erpnext rejected request", shared.ErrRemote)
)

func classifyStatus(status int, body string) error {
	switch {
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrRemoteUnavailable, status, body)
	case status >= 400:
		return fmt.Errorf("%w: status %d: %s", ErrRemoteRejected, status, body)
	default:
		return nil
	}
}
