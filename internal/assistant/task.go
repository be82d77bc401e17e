package assistant

import (
	"context"
	"time"
)

// Think waits d, simulating processing. It returns ctx.Err() if the context
// ends first, so a superseded turn can be dropped before it commits.
func Think(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
