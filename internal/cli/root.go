// Package cli implements the idp-report command tree.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Sternrassler/idp-reports/pkg/config"
	"github.com/Sternrassler/idp-reports/pkg/metrics"
	"github.com/Sternrassler/idp-reports/pkg/pagination"
	"github.com/Sternrassler/idp-reports/pkg/report"
	"github.com/Sternrassler/idp-reports/pkg/roster"
	"github.com/rs/zerolog/log"
)

// ErrAborted is returned when a confirmation prompt is declined.
var ErrAborted = errors.New("aborted by user")

// Command represents a CLI command.
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// ConnectFunc opens the remote directory. The returned close function
// releases anything the connection holds.
type ConnectFunc func(ctx context.Context, cfg *config.Config, policy pagination.ErrorPolicy) (report.Directory, func() error, error)

// App carries what every subcommand shares.
type App struct {
	Config  *config.Config
	In      *bufio.Reader
	Out     io.Writer
	Connect ConnectFunc
	Pusher  *metrics.Pusher
}

// NewApp creates an App reading prompts from in and printing to out.
func NewApp(cfg *config.Config, in io.Reader, out io.Writer) *App {
	return &App{
		Config:  cfg,
		In:      bufio.NewReader(in),
		Out:     out,
		Connect: Connect,
		Pusher:  metrics.NewPusher(cfg.PushgatewayURL, "idp-report"),
	}
}

// NewRootCommand creates the root command.
func NewRootCommand(app *App) *Command {
	root := &Command{
		Name:        "idp-report",
		Description: "Identity provider batch reports",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("idp-report", flag.ContinueOnError),
	}

	root.Subcommands["enrich"] = newEnrichCommand(app)
	root.Subcommands["pivot"] = newPivotCommand(app)
	root.Subcommands["assignments"] = newAssignmentsCommand(app)
	root.Subcommands["fastpass"] = newFastPassCommand(app)
	root.Subcommands["purge"] = newPurgeCommand(app)

	root.Flags.SetOutput(app.Out)
	for _, cmd := range root.Subcommands {
		cmd.Flags.SetOutput(app.Out)
	}
	return root
}

// Execute runs the subcommand named by args[0].
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		c.usage(c.Flags.Output())
		return nil
	}

	subcmd, ok := c.Subcommands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}

	err := subcmd.Run(ctx, args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func (c *Command) usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s <command> [flags]\n\n", c.Name)
	fmt.Fprintf(w, "Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
}

// prompt prints label and returns the trimmed answer. A closed input
// yields whatever was typed before EOF.
func (a *App) prompt(label string) (string, error) {
	fmt.Fprint(a.Out, label)
	line, err := a.In.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// valueOrPrompt returns value, or asks for it when empty. An empty answer
// is an error.
func (a *App) valueOrPrompt(value, label, name string) (string, error) {
	if value != "" {
		return value, nil
	}
	answer, err := a.prompt(label)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return answer, nil
}

// CleanPath turns a path dragged into a terminal into a usable one:
// surrounding quotes are dropped, shell escapes for space and comma are
// removed and the result is made absolute.
func CleanPath(raw string) string {
	p := strings.TrimSpace(raw)
	if len(p) >= 2 && (p[0] == '\'' || p[0] == '"') && p[len(p)-1] == p[0] {
		p = p[1 : len(p)-1]
	}
	p = strings.NewReplacer(`\ `, " ", `\,`, ",").Replace(p)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// outputPath resolves the output file for name inside dir, or inside the
// configured output directory when dir is empty.
func (a *App) outputPath(dir, name string) string {
	cfg := *a.Config
	if dir != "" {
		cfg.OutputDir = CleanPath(dir)
	}
	return cfg.OutputPath(name)
}

// export writes rows and reports the outcome. Nothing to export is not
// an error.
func (a *App) export(path string, rows []roster.Row) error {
	err := roster.WriteFile(path, rows)
	if errors.Is(err, roster.ErrNoData) {
		fmt.Fprintln(a.Out, "No data to export!")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Successfully exported to %s\n", path)
	return nil
}

// connect opens the directory after validating the configuration.
func (a *App) connect(ctx context.Context, policy pagination.ErrorPolicy) (report.Directory, func() error, error) {
	if err := a.Config.Validate(); err != nil {
		return nil, nil, err
	}
	return a.Connect(ctx, a.Config, policy)
}

// finish records the run and pushes metrics when a Pushgateway is set.
func (a *App) finish(ctx context.Context, name string, started time.Time, rows int, err error) error {
	metrics.RecordRun(name, rows, time.Since(started), err)
	if a.Pusher.Enabled() {
		if pushErr := a.Pusher.Push(ctx, name); pushErr != nil {
			log.Warn().Err(pushErr).Str("report", name).Msg("Failed to push metrics")
		}
	}
	return err
}

func closeQuietly(closeFn func() error) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		log.Debug().Err(err).Msg("Close failed")
	}
}
