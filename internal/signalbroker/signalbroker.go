// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker fans OS termination signals into channels.
// By default it listens for os.Interrupt, syscall.SIGINT, syscall.SIGTERM, and syscall.SIGQUIT signals.
//
// Every channel created by New receives every signal, so the watchdog in main,
// the worker pool and each running job observe the same interrupt independently.
package signalbroker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bogdan-kulynych/batchrun/internal/ctxlog"
)

var termSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
	os.Interrupt,
}

// New creates a channel that receives the given signals, or the termination signals when none are given.
func New(ctx context.Context, sigs ...os.Signal) chan os.Signal {
	ch := make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "signalbroker", "detail", "creating signal broker", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch
}

// Stop detaches ch from signal delivery. The channel is not closed.
func Stop(ch chan os.Signal) {
	signal.Stop(ch)
}
