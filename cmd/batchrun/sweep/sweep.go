// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package sweep implements the sweep subcommand, which expands a grid spec into a runfile.
package sweep

import (
	"context"
	"fmt"

	"github.com/bogdan-kulynych/batchrun/internal/ctxlog"
	"github.com/bogdan-kulynych/batchrun/internal/gridspec"
	"github.com/bogdan-kulynych/batchrun/internal/runfile"
	"github.com/bogdan-kulynych/batchrun/internal/source"
	"github.com/urfave/cli/v3"
)

const (
	gridSpecArg   = "gridspec"
	outFlag       = "out"
	cliExitStr    = ""
	runfileSuffix = ".runfile"
)

// NewSweepCmd returns the command that writes a runfile from a grid spec.
func NewSweepCmd() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Expand a YAML or HCL grid spec into a runfile",
		Description: `Expand a grid spec into a runfile with one command per parameter combination.

A grid spec names a program and an ordered list of parameters, each with a list of values,
a single value, or an integer range (min, max, step). Every combination is rendered as
"<program> --name=value ..." with the first parameter varying slowest.

The format is chosen by extension: .yml or .yaml for YAML and .hcl for HCL.
Grid spec locations use Hashicorp's go-getter syntax.`,
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: gridSpecArg,
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      outFlag,
				Aliases:   []string{"o"},
				Usage:     "Runfile to write, defaults to <grid spec name>.runfile in the current directory",
				TakesFile: true,
				Value:     "",
				OnlyOnce:  true,
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("Running sweep command")

	url := cmd.StringArg(gridSpecArg)
	if url == "" {
		logger.Error("Please specify the grid spec to expand.")
		return cli.Exit(cliExitStr, 1)
	}

	data, err := source.Fetch(ctx, url)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to read grid spec %s: %s", url, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	spec, err := gridspec.Parse(source.Name(url), data)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to parse grid spec %s: %s", url, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	out := cmd.String(outFlag)
	if out == "" {
		out = source.Stem(url) + runfileSuffix
	}

	commands := spec.Commands()

	if err := runfile.Write(runfile.FsFactory(), out, commands); err != nil {
		logger.Error(fmt.Sprintf("Failed to write runfile %s: %s", out, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	logger.Info("runfile written", "path", out, "commands", len(commands))

	if _, err := fmt.Fprintf(cmd.Root().Writer, "Runfile generated: %s\n", out); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return nil
}
