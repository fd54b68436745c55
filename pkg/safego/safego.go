package safego

import (
	"context"
	"fmt"
	"runtime/debug"

	"gitlab.com/timkado/api/daisi-conn-service/internal/domain"
)

// Execute runs the given function in a new goroutine. It recovers from any
// panic within the goroutine, logging it with the provided logger, a
// descriptive name, and a stack trace. Every long-lived goroutine in the
// service is started through this helper.
func Execute(ctx context.Context, logger domain.Logger, goroutineName string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				// Fall back to a background context so logging still works
				// after the original context is done.
				logCtx := ctx
				if ctx.Err() != nil {
					logCtx = context.Background()
				}
				logger.Error(logCtx, fmt.Sprintf("Panic recovered in goroutine: %s", goroutineName),
					"panic_info", fmt.Sprintf("%v", r),
					"stacktrace", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
