// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/bogdan-kulynych/batchrun/internal/ctxlog"
)

// Watch cancels the context on the second signal of the same type.
// The first signal is left to the worker pool and the running jobs, which drain gracefully.
func Watch(ctx context.Context, sigCh chan os.Signal, cancel context.CancelFunc) {
	seen := make(map[os.Signal]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			if _, dup := seen[sig]; dup {
				ctxlog.Warn(ctx, "watchdog", "detail", "received second signal of type, cancelling run", "signal", sig.String())
				cancel()

				return
			}

			ctxlog.Warn(ctx, "watchdog", "detail", "received signal, finishing running jobs; repeat to abort", "signal", sig.String())

			seen[sig] = struct{}{}
		}
	}
}
