// Package async provides panic-safe background execution for
// fire-and-forget work.
//
// Usage recording (counter increments, cost events, alert evaluation)
// must never block or fail the request that triggered it. SafeGo wraps
// that work in a goroutine with panic recovery and a bounded lifetime,
// logging failures through the shared observability logger instead of
// surfacing them to the caller.
//
//	async.SafeGo(context.Background(), 5*time.Second, "usage increment", logger,
//		func(ctx context.Context) error {
//			limiter.Increment(ctx, orgID, resource, amount, metadata)
//			return nil
//		})
package async
