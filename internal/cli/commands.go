package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Sternrassler/idp-reports/pkg/match"
	"github.com/Sternrassler/idp-reports/pkg/pagination"
	"github.com/Sternrassler/idp-reports/pkg/report"
	"github.com/Sternrassler/idp-reports/pkg/roster"
)

func newEnrichCommand(app *App) *Command {
	cmd := &Command{
		Name:        "enrich",
		Description: "Match a roster against the directory by email, then by name",
		Flags:       flag.NewFlagSet("enrich", flag.ContinueOnError),
	}
	input := cmd.Flags.String("input", "", "Roster CSV with Email, First and Last columns")
	output := cmd.Flags.String("output", "", "Output file name (without extension)")
	dir := cmd.Flags.String("dir", "", "Output directory")
	allowPartial := cmd.Flags.Bool("allow-partial", false, "Keep the users fetched so far when a page fails")

	cmd.Run = func(ctx context.Context, args []string) (err error) {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		started, rows := time.Now(), 0
		defer func() { err = app.finish(ctx, cmd.Name, started, rows, err) }()

		inputPath, err := app.inputFile(*input, "Drag input file here: ")
		if err != nil {
			return err
		}
		name, err := app.valueOrPrompt(*output, "Output file name (without extension): ", "output name")
		if err != nil {
			return err
		}

		local, err := roster.ReadFile(inputPath)
		if err != nil {
			return err
		}

		policy := pagination.FailFast
		if *allowPartial {
			policy = pagination.KeepPartial
		}
		dirSvc, closeFn, err := app.connect(ctx, policy)
		if err != nil {
			return err
		}
		defer closeQuietly(closeFn)

		results, err := report.Enrich(ctx, dirSvc, local, match.DefaultFields())
		if err != nil {
			return err
		}
		rows = len(results)
		return app.export(app.outputPath(*dir, name), match.Rows(results))
	}
	return cmd
}

func newPivotCommand(app *App) *Command {
	cmd := &Command{
		Name:        "pivot",
		Description: "Count users per department, optionally against directory groups",
		Flags:       flag.NewFlagSet("pivot", flag.ContinueOnError),
	}
	input := cmd.Flags.String("input", "", "CSV with Department and Okta Status columns")
	output := cmd.Flags.String("output", "", "Output file name; _pivot is appended")
	dir := cmd.Flags.String("dir", "", "Output directory")
	prefix := cmd.Flags.String("prefix", "", "Department group prefix, e.g. 'dept.'; empty skips group counts")

	cmd.Run = func(ctx context.Context, args []string) (err error) {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		started, rows := time.Now(), 0
		defer func() { err = app.finish(ctx, cmd.Name, started, rows, err) }()

		inputPath, err := app.inputFile(*input, "Drag input file here (Columns email and department required): ")
		if err != nil {
			return err
		}
		name, err := app.valueOrPrompt(*output, "Created file name: ", "output name")
		if err != nil {
			return err
		}

		local, err := roster.ReadFile(inputPath)
		if err != nil {
			return err
		}

		opts := report.DefaultPivotOptions()
		opts.ActiveStatus = app.Config.Reports.Pivot.ActiveStatus
		groups := report.Pivot(local, opts)

		withCounts := *prefix != ""
		if withCounts {
			dirSvc, closeFn, err := app.connect(ctx, pagination.FailFast)
			if err != nil {
				return err
			}
			defer closeQuietly(closeFn)

			if err := report.CountGroups(ctx, dirSvc, groups, *prefix); err != nil {
				return err
			}
		}

		out := report.PivotRows(groups, match.ColDepartment, withCounts)
		rows = len(out)
		return app.export(app.outputPath(*dir, name+"_pivot"), out)
	}
	return cmd
}

func newAssignmentsCommand(app *App) *Command {
	cmd := &Command{
		Name:        "assignments",
		Description: "Matrix of active users by active application",
		Flags:       flag.NewFlagSet("assignments", flag.ContinueOnError),
	}
	output := cmd.Flags.String("output", "Applications_report", "Output file name (without extension)")
	dir := cmd.Flags.String("dir", "", "Output directory")

	cmd.Run = func(ctx context.Context, args []string) (err error) {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		started, rows := time.Now(), 0
		defer func() { err = app.finish(ctx, cmd.Name, started, rows, err) }()

		dirSvc, closeFn, err := app.connect(ctx, pagination.FailFast)
		if err != nil {
			return err
		}
		defer closeQuietly(closeFn)

		out, err := report.Assignments(ctx, dirSvc, app.Config.Reports.Assignments.UserTypes)
		if err != nil {
			return err
		}
		rows = len(out)
		return app.export(app.outputPath(*dir, *output), out)
	}
	return cmd
}

func newFastPassCommand(app *App) *Command {
	cmd := &Command{
		Name:        "fastpass",
		Description: "FastPass enrollments per user, split into mobile and desktop",
		Flags:       flag.NewFlagSet("fastpass", flag.ContinueOnError),
	}
	output := cmd.Flags.String("output", "", "Output file name (without extension)")
	dir := cmd.Flags.String("dir", "", "Output directory")

	cmd.Run = func(ctx context.Context, args []string) (err error) {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		started, rows := time.Now(), 0
		defer func() { err = app.finish(ctx, cmd.Name, started, rows, err) }()

		name, err := app.valueOrPrompt(*output, "Output file name (without extension): ", "output name")
		if err != nil {
			return err
		}

		dirSvc, closeFn, err := app.connect(ctx, pagination.FailFast)
		if err != nil {
			return err
		}
		defer closeQuietly(closeFn)

		out, err := report.FastPass(ctx, dirSvc, app.Config.Reports.FastPass)
		if err != nil {
			return err
		}
		rows = len(out)
		return app.export(app.outputPath(*dir, name), out)
	}
	return cmd
}

// ConfirmPhrase must be typed to run a purge.
const ConfirmPhrase = "DELETE"

func newPurgeCommand(app *App) *Command {
	cmd := &Command{
		Name:        "purge",
		Description: "Delete users outside the keep department (dry run unless -execute)",
		Flags:       flag.NewFlagSet("purge", flag.ContinueOnError),
	}
	execute := cmd.Flags.Bool("execute", false, "Send the delete requests")
	permanent := cmd.Flags.Bool("permanent", false, "Send a second delete so deactivated users are removed")
	output := cmd.Flags.String("output", "purge_log", "Log file name (without extension)")
	dir := cmd.Flags.String("dir", "", "Output directory")

	cmd.Run = func(ctx context.Context, args []string) (err error) {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *permanent && !*execute {
			return errors.New("-permanent requires -execute")
		}
		started, rows := time.Now(), 0
		defer func() { err = app.finish(ctx, cmd.Name, started, rows, err) }()

		dirSvc, closeFn, err := app.connect(ctx, pagination.FailFast)
		if err != nil {
			return err
		}
		defer closeQuietly(closeFn)

		keep := app.Config.Reports.Purge.KeepDepartment
		candidates, err := report.PurgeCandidates(ctx, dirSvc, keep)
		if err != nil {
			return err
		}
		for _, u := range candidates {
			fmt.Fprintln(app.Out, u.Login())
		}
		fmt.Fprintf(app.Out, "%d users outside department %q\n", len(candidates), keep)

		if *execute && len(candidates) > 0 {
			answer, err := app.prompt(fmt.Sprintf("Type %s to delete %d users: ", ConfirmPhrase, len(candidates)))
			if err != nil {
				return err
			}
			if answer != ConfirmPhrase {
				return ErrAborted
			}
		}

		purgeLog, runErr := report.Purge(ctx, dirSvc, candidates, report.PurgeOptions{
			KeepDepartment: keep,
			Execute:        *execute,
			Permanent:      *permanent,
		})
		rows = len(purgeLog)
		if exportErr := app.export(app.outputPath(*dir, *output), purgeLog); exportErr != nil && runErr == nil {
			return exportErr
		}
		return runErr
	}
	return cmd
}

// inputFile returns the roster path from the flag or a prompt and checks
// that it exists.
func (a *App) inputFile(value, label string) (string, error) {
	raw, err := a.valueOrPrompt(value, label, "input file")
	if err != nil {
		return "", err
	}
	path := CleanPath(raw)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("input file does not exist: %s", path)
		}
		return "", fmt.Errorf("input file: %w", err)
	}
	return path, nil
}
