package rediscache

import (
	"fmt"
	"strings"
)

// InvalidateError reports the failure of one invalidation batch. The whole
// batch shares a single round trip, so a transport failure leaves the
// result of individual deletes undefined; the error covers all tags.
type InvalidateError struct {
	Tags []string
	Err  error
}

func (e *InvalidateError) Error() string {
	return fmt.Sprintf("rediscache: invalidate [%s]: %v", strings.Join(e.Tags, ", "), e.Err)
}

func (e *InvalidateError) Unwrap() error { return e.Err }
