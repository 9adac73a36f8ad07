// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package status implements the status subcommand, which shows what the job store records
// for each command of a runfile.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/TylerBrock/colorjson"
	"github.com/bogdan-kulynych/batchrun/cmd/batchrun/launch"
	"github.com/bogdan-kulynych/batchrun/internal/color"
	"github.com/bogdan-kulynych/batchrun/internal/ctxlog"
	"github.com/bogdan-kulynych/batchrun/internal/identity"
	"github.com/bogdan-kulynych/batchrun/internal/jobstore"
	"github.com/bogdan-kulynych/batchrun/internal/runfile"
	"github.com/bogdan-kulynych/batchrun/internal/source"
	"github.com/urfave/cli/v3"
)

const (
	runfileArg = "runfile"
	jsonFlag   = "json"
	cliExitStr = ""
	jsonIndent = 2
	notRun     = "NOT RUN"
)

// NewStatusCmd returns the command that reports the state of each job of a runfile.
func NewStatusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the recorded state of each command of a runfile",
		Description: `Show the job store of a runfile: one line per command with its status and log file,
followed by jobs recorded in the store whose command is no longer in the runfile.

Use the same --accounting_dir and --state_db_filename as the launch.`,
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: runfileArg,
			},
		},
		Flags: []cli.Flag{
			launch.AccountingDirFlag(),
			launch.StateFileFlag(),
			&cli.BoolFlag{
				Name:        jsonFlag,
				Usage:       "Print the job store as JSON",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("Running status command")

	url := cmd.StringArg(runfileArg)
	if url == "" {
		logger.Error("Please specify the runfile.")
		return cli.Exit(cliExitStr, 1)
	}

	layout, err := launch.ResolveLayout(cmd, url)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	store, err := jobstore.Load(ctx, jobstore.FsFactory(), layout.StatePath)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load job store: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	if cmd.Bool(jsonFlag) {
		if err := writeJSON(cmd.Root().Writer, store.Jobs()); err != nil {
			logger.Error(err.Error())
			return cli.Exit(cliExitStr, 1)
		}

		return nil
	}

	data, err := source.Fetch(ctx, url)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to read runfile %s: %s", url, err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	if err := writeText(cmd.Root().Writer, store, runfile.Parse(data)); err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}

func statusColor(s jobstore.Status) color.Code {
	switch s {
	case jobstore.StatusSucceeded:
		return color.FgGreen
	case jobstore.StatusFailed:
		return color.FgRed
	case jobstore.StatusRunning:
		return color.FgYellow
	default:
		return color.FgHiBlack
	}
}

// writeText prints the runfile's commands in order, then the orphaned store entries.
func writeText(w io.Writer, store *jobstore.Store, commands []string) error {
	var b strings.Builder

	seen := make(map[string]struct{}, len(commands))
	counts := make(map[string]int)

	for _, c := range commands {
		id := identity.Of(c)
		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}

		job, ok := store.Get(id)
		if !ok {
			counts[notRun]++
			fmt.Fprintf(&b, "%s %s %s\n", identity.Short(id), color.Colorize(fmt.Sprintf("%-9s", notRun), color.FgHiBlack), c)

			continue
		}

		counts[string(job.Status)]++
		writeJob(&b, job)
	}

	var orphans []jobstore.Job

	for _, j := range store.Jobs() {
		if _, ok := seen[j.Identity]; !ok {
			orphans = append(orphans, j)
		}
	}

	if len(orphans) > 0 {
		fmt.Fprintf(&b, "\n%s\n", color.Colorize("Not in the runfile:", color.Bold))

		for _, j := range orphans {
			writeJob(&b, j)
		}
	}

	fmt.Fprintf(&b, "\n%d succeeded, %d failed, %d running, %d pending, %d not run\n",
		counts[string(jobstore.StatusSucceeded)],
		counts[string(jobstore.StatusFailed)],
		counts[string(jobstore.StatusRunning)],
		counts[string(jobstore.StatusPending)],
		counts[notRun])

	_, err := io.WriteString(w, b.String())

	return err
}

func writeJob(b *strings.Builder, j jobstore.Job) {
	status := fmt.Sprintf("%-9s", j.Status)
	fmt.Fprintf(b, "%s %s %s\n", identity.Short(j.Identity), color.Colorize(status, statusColor(j.Status)), j.Command)

	detail := "  ➜ log: " + j.LogPath
	if j.ExitCode != nil {
		detail += fmt.Sprintf(", exit code: %d", *j.ExitCode)
	}

	if d := j.Duration(); d > 0 {
		detail += ", took: " + d.Round(time.Millisecond).String()
	}

	if j.Error != "" {
		detail += ", error: " + j.Error
	}

	fmt.Fprintln(b, color.Colorize(detail, color.FgHiBlack))
}

// writeJSON prints the jobs in store order as a JSON array, each with its identity.
func writeJSON(w io.Writer, jobs []jobstore.Job) error {
	out := make([]any, 0, len(jobs))

	for _, j := range jobs {
		raw, err := json.Marshal(j)
		if err != nil {
			return fmt.Errorf("marshal job %s: %w", j.Identity, err)
		}

		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return fmt.Errorf("unmarshal job %s: %w", j.Identity, err)
		}

		m["identity"] = j.Identity
		out = append(out, m)
	}

	f := colorjson.NewFormatter()
	f.Indent = jsonIndent
	f.DisabledColor = !color.Enabled()

	b, err := f.Marshal(out)
	if err != nil {
		return fmt.Errorf("format jobs: %w", err)
	}

	if _, err := fmt.Fprintf(w, "%s\n", b); err != nil {
		return fmt.Errorf("write jobs: %w", err)
	}

	return nil
}
