package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/coachdesk/coachdesk/pkg/observability"
)

// SafeGo runs fn in a goroutine with panic recovery and a bounded
// lifetime. Usage recording and alert evaluation run through this so a
// slow or broken store can never stall or crash the request path.
//
// The parent context controls cancellation; pass context.Background()
// for work that must outlive its originating request.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": fmt.Sprintf("%v", r),
					"stack": string(debug.Stack()),
				}).Error("Background task panicked")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("Background task failed")
		}
	}()
}

// SafeGoNoError is SafeGo for functions without an error return.
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, logger *observability.Logger, fn func(context.Context)) {
	SafeGo(parentCtx, timeout, taskName, logger, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
