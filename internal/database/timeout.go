package database

import (
	"context"
	"time"
)

// OpContext bounds a single store operation. A non-positive timeout only adds cancellation.
func OpContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
