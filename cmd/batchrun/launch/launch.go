// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package launch implements the launch subcommand.
package launch

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bogdan-kulynych/batchrun/internal/ctxlog"
	"github.com/bogdan-kulynych/batchrun/internal/jobstore"
	"github.com/bogdan-kulynych/batchrun/internal/orchestrator"
	"github.com/bogdan-kulynych/batchrun/internal/progress"
	"github.com/bogdan-kulynych/batchrun/internal/reconcile"
	"github.com/bogdan-kulynych/batchrun/internal/runbatch"
	"github.com/bogdan-kulynych/batchrun/internal/runfile"
	"github.com/bogdan-kulynych/batchrun/internal/source"
	"github.com/bogdan-kulynych/batchrun/internal/tui"
	"github.com/urfave/cli/v3"
)

const (
	runfileArg          = "runfile"
	nJobsFlag           = "n_jobs"
	modeFlag            = "mode"
	accountingDirFlag   = "accounting_dir"
	stateFileFlag       = "state_db_filename"
	shellFlag           = "shell"
	tuiFlag             = "tui"
	showCommandsFlag    = "show-commands"
	cliExitStr          = ""
	nJobsEnvVar         = "BATCHRUN_N_JOBS"
	modeEnvVar          = "BATCHRUN_MODE"
	accountingDirEnvVar = "BATCHRUN_ACCOUNTING_DIR"
)

// NewLaunchCmd returns the command that runs the outstanding jobs of a runfile.
func NewLaunchCmd() *cli.Command {
	return &cli.Command{
		Name:  "launch",
		Usage: "Run every command of a runfile that has not succeeded yet",
		Description: `Run the commands of a runfile, one shell command per line, in parallel.

Progress is recorded in <accounting_dir>/<state_db_filename> after every status change and
each job's combined output is written to <accounting_dir>/logs/<identity>.log. Launching the
same runfile again skips the commands that already succeeded and runs the rest, including
commands appended since the last launch. Use --mode=overwrite to run everything again.

Runfile locations use Hashicorp's go-getter syntax, which allows for fetching files from various sources.
See https://github.com/hashicorp/go-getter.`,
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: runfileArg,
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    nJobsFlag,
				Aliases: []string{"j"},
				Usage:   "Set the maximum number of jobs to run in parallel",
				Value:   1,
				Sources: cli.EnvVars(nJobsEnvVar),
			},
			&cli.StringFlag{
				Name:    modeFlag,
				Usage:   "Either \"resume\" to skip jobs that already succeeded, or \"overwrite\" to run every job again",
				Value:   string(reconcile.ModeResume),
				Sources: cli.EnvVars(modeEnvVar),
			},
			AccountingDirFlag(),
			StateFileFlag(),
			&cli.StringFlag{
				Name:    shellFlag,
				Usage:   "Shell used to run each command with -c, defaults to $" + runbatch.ShellEnvVar + " or " + runbatch.DefaultShell,
				Value:   "",
				Sources: cli.EnvVars(runbatch.ShellEnvVar),
			},
			&cli.BoolFlag{
				Name:        tuiFlag,
				Aliases:     []string{"t", "interactive"},
				Usage:       "Run with interactive Terminal User Interface (TUI) showing real-time progress",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name:        showCommandsFlag,
				Usage:       "Print the command line of each failed job in the summary",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
		},
		Action: actionFunc,
	}
}

// AccountingDirFlag is the --accounting_dir flag, shared with the status command.
func AccountingDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:      accountingDirFlag,
		Usage:     "Directory holding the job store and job logs, defaults to runs/<runfile name>",
		TakesFile: true,
		Value:     "",
		Sources:   cli.EnvVars(accountingDirEnvVar),
	}
}

// StateFileFlag is the --state_db_filename flag, shared with the status command.
func StateFileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  stateFileFlag,
		Usage: "Name of the job store file inside the accounting directory",
		Value: orchestrator.DefaultStateFileName,
	}
}

// ResolveLayout resolves the accounting layout from the shared flags.
func ResolveLayout(cmd *cli.Command, url string) (orchestrator.Layout, error) {
	return orchestrator.ResolveLayout(source.Stem(url), cmd.String(accountingDirFlag), cmd.String(stateFileFlag))
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("Running launch command")

	url := cmd.StringArg(runfileArg)
	if url == "" {
		logger.Error("Please specify the runfile to launch.")
		return cli.Exit(cliExitStr, 1)
	}

	if err := runfile.CheckPath(url); err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	workers := cmd.Int(nJobsFlag)
	if workers < 1 {
		logger.Error(fmt.Sprintf("--%s must be at least 1, got %d", nJobsFlag, workers))
		return cli.Exit(cliExitStr, 1)
	}

	mode, err := reconcile.ParseMode(cmd.String(modeFlag))
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	layout, err := ResolveLayout(cmd, url)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	data, err := source.Fetch(ctx, url)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to read runfile %s: %s", url, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	commands := runfile.Parse(data)
	fs := jobstore.FsFactory()

	opts := orchestrator.Options{
		Name:          source.Stem(url),
		Commands:      commands,
		AccountingDir: layout.AccountingDir,
		StateFileName: cmd.String(stateFileFlag),
		Workers:       workers,
		Mode:          mode,
		Fs:            fs,
		Executor:      runbatch.NewOSCommand(cmd.String(shellFlag), fs),
	}

	var (
		summary   *orchestrator.Summary
		launchErr error
	)

	switch cmd.Bool(tuiFlag) {
	case true:
		logger.Info("Starting interactive TUI mode...")

		buf := new(bytes.Buffer)
		tuiCtx := ctxlog.NewForTUI(ctx, buf)

		runner := tui.NewRunner(tuiCtx, commands)

		summary, launchErr = runner.Run(tuiCtx, func(ctx context.Context, reporter progress.Reporter) (*orchestrator.Summary, error) {
			o := opts
			o.Reporter = reporter

			return orchestrator.Launch(ctx, o)
		})

		buf.WriteTo(cmd.Root().ErrWriter) //nolint:errcheck
	default:
		summary, launchErr = orchestrator.Launch(ctx, opts)
	}

	if summary != nil {
		if err := summary.WriteText(cmd.Root().Writer, orchestrator.TextOptions{
			ShowCommands: cmd.Bool(showCommandsFlag),
		}); err != nil {
			logger.Error(fmt.Sprintf("Failed to write summary: %s", err.Error()))
			return cli.Exit(cliExitStr, 1)
		}
	}

	if launchErr != nil {
		logger.Error(fmt.Sprintf("Launch failed: %s", launchErr.Error()), "state", layout.StatePath)
		return cli.Exit(cliExitStr, 1)
	}

	if !summary.OK() {
		logger.Warn("Some jobs did not succeed, launch again to resume them.", "error", summary.Err())
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}
