// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the batchrun command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bogdan-kulynych/batchrun"
	"github.com/bogdan-kulynych/batchrun/cmd/batchrun/launch"
	"github.com/bogdan-kulynych/batchrun/cmd/batchrun/status"
	"github.com/bogdan-kulynych/batchrun/cmd/batchrun/sweep"
	"github.com/bogdan-kulynych/batchrun/internal/ctxlog"
	"github.com/bogdan-kulynych/batchrun/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

const logJSONFlag = "log-json"

// newRootCmd is the root command for the CLI.
func newRootCmd() *cli.Command {
	return &cli.Command{
		Commands: []*cli.Command{
			launch.NewLaunchCmd(),
			sweep.NewSweepCmd(),
			status.NewStatusCmd(),
		},
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:     logJSONFlag,
				Usage:    "Write log records to stderr as JSON instead of the human readable format",
				Value:    false,
				OnlyOnce: true,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool(logJSONFlag) {
				ctx = ctxlog.New(ctx, ctxlog.JSONLogger)
			}

			return ctx, nil
		},
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Name:      "batchrun",
		Description: `batchrun launches every command of a runfile, one shell command per line,
with a bounded number of parallel jobs. Progress is recorded in a job store after every
change, so an interrupted or partly failed launch can be resumed: commands that already
succeeded are skipped, everything else runs again.

Grid specs (YAML or HCL) describe a parameter sweep and are expanded into a runfile with
"batchrun sweep".`,
		Usage:     "batchrun launch jobs.runfile",
		Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
		Version:   fmt.Sprintf("%s (commit: %s)", batchrun.Version, batchrun.Commit),
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, cancel)

	err := newRootCmd().Run(ctx, os.Args) // Err is handled by cli framework

	// Check if the context was cancelled (e.g., due to signals)
	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Error("command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}

	ctxlog.Logger(ctx).Debug("command completed successfully")
}
