// Command rowgrid shows JSON rows through the client-side row model: grouped,
// filtered, sorted and aggregated per a recipe, in a terminal viewer or as
// plain text.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/rowgrid/pkg/config"
	"github.com/Dicklesworthstone/rowgrid/pkg/feed"
	"github.com/Dicklesworthstone/rowgrid/pkg/loader"
	"github.com/Dicklesworthstone/rowgrid/pkg/recipe"
	"github.com/Dicklesworthstone/rowgrid/pkg/rowmodel"
	"github.com/Dicklesworthstone/rowgrid/pkg/ui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// noState disables group state persistence when passed to -state.
const noState = "-"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "rowgrid: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	rows       string
	configPath string
	recipe     string
	watch      string
	state      string
	plain      bool
	width      int
	verbose    bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("rowgrid", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.rows, "rows", "", "Rows to show: a JSON array or a .jsonl file (required)")
	fs.StringVar(&o.configPath, "config", "", "Config file (default: nearest .rowgrid/config.yaml)")
	fs.StringVar(&o.recipe, "recipe", "", "Built-in recipe name or recipe file (overrides the config)")
	fs.StringVar(&o.watch, "watch", "", "JSONL transaction file to apply and follow")
	fs.StringVar(&o.state, "state", "", "Group state file (default: group-state.json next to the config, '-' disables)")
	fs.BoolVar(&o.plain, "plain", false, "Print rows as text instead of starting the viewer")
	fs.IntVar(&o.width, "width", 0, "Line width for plain output (default: terminal width, unlimited otherwise)")
	fs.BoolVar(&o.verbose, "v", false, "Log debug output to stderr")
	fs.BoolVar(&o.version, "version", false, "Show version")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintf(stdout, "rowgrid %s\n", version)
		return nil
	}
	if opts.rows == "" {
		return errors.New("-rows is required")
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(logrus.WarnLevel)
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, cfgPath, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	logger.WithField("config", cfgPath).Debug("configuration loaded")

	recipeName := cfg.Recipe
	if opts.recipe != "" {
		recipeName = opts.recipe
	}
	rec, err := recipe.Resolve(recipeName)
	if err != nil {
		return fmt.Errorf("resolve recipe: %w", err)
	}
	stages, err := recipe.Compile(rec, recipe.CompileOptions{
		GroupDefaultExpanded: cfg.GroupDefaultExpanded,
		PivotMode:            cfg.PivotMode,
	})
	if err != nil {
		return err
	}

	rows, err := loader.LoadRows(opts.rows)
	if err != nil {
		return err
	}

	statePath, defaultState := resolveStatePath(opts.state, cfgPath)
	out, isTTY := terminal(stdout)
	interactive := !opts.plain && isTTY

	var (
		notifier  *ui.ProgramNotifier
		scheduler *ui.ProgramScheduler
	)
	modelOpts := rowmodel.Options{
		Grid:   cfg.GridOptions(),
		Stages: stages,
		Logger: logger,
	}
	if interactive {
		notifier = ui.NewProgramNotifier(nil)
		modelOpts.Notifier = notifier
		// Batched transactions from the feed are applied inside the
		// program's Update, next to the rendering that reads the rows.
		scheduler = ui.NewProgramScheduler(nil)
		modelOpts.Scheduler = scheduler
	}
	m := rowmodel.New(modelOpts)

	if statePath != "" {
		if err := m.LoadGroupState(statePath); err != nil {
			logger.WithError(err).Warn("ignoring group state")
		}
	}
	m.SetRowData(rows)

	if !interactive {
		if opts.watch != "" {
			if err := applyTransactions(m, opts.watch, cfg.RowIDField); err != nil {
				return err
			}
		}
		width := opts.width
		if width == 0 && isTTY {
			if w, _, err := term.GetSize(int(out.Fd())); err == nil {
				width = w
			}
		}
		return ui.RenderPlain(stdout, m, rec.View.Columns, width)
	}

	if err := runViewer(ctx, m, notifier, scheduler, rec.View.Columns, opts.watch, cfg.RowIDField, stdout, logger); err != nil {
		return err
	}

	if statePath == "" {
		return nil
	}
	if err := m.SaveGroupState(statePath); err != nil {
		return err
	}
	if defaultState {
		projectDir := filepath.Dir(filepath.Dir(statePath))
		if err := loader.EnsureStateIgnored(projectDir); err != nil {
			logger.WithError(err).Warn("could not update .gitignore")
		}
	}
	return nil
}

// loadConfig reads path, or discovers the nearest config when path is empty.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		cfg, found, err := config.Discover("")
		if err != nil {
			return nil, "", fmt.Errorf("discover config: %w", err)
		}
		return cfg, found, nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, path, nil
}

// resolveStatePath picks the group state file. The second result reports
// whether it is the default location inside the settings directory.
func resolveStatePath(flagValue, cfgPath string) (string, bool) {
	switch flagValue {
	case noState:
		return "", false
	case "":
		if cfgPath != "" && filepath.Base(filepath.Dir(cfgPath)) == config.Dir {
			return config.GroupStatePath(filepath.Dir(cfgPath)), true
		}
		return config.GroupStatePath(""), true
	default:
		return flagValue, false
	}
}

// terminal reports whether w is a terminal, returning the file if so.
func terminal(w io.Writer) (*os.File, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return nil, false
	}
	return f, term.IsTerminal(int(f.Fd()))
}

// applyTransactions applies a transaction file synchronously, for plain
// output.
func applyTransactions(m *rowmodel.ClientSideRowModel, path, idField string) error {
	txs, err := loader.LoadTransactions(path, idField)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		m.UpdateRowData(tx)
	}
	return nil
}

// runViewer runs the program and, when watching, the transaction feed until
// the user quits or ctx ends.
func runViewer(ctx context.Context, m *rowmodel.ClientSideRowModel, notifier *ui.ProgramNotifier,
	scheduler *ui.ProgramScheduler, columns []string, watch, idField string, stdout io.Writer, logger *logrus.Logger) error {
	grid := ui.NewGridModel(m, ui.Options{
		Columns:  columns,
		Notifier: notifier,
		Logger:   logger,
	})
	p := tea.NewProgram(grid, tea.WithAltScreen(), tea.WithOutput(stdout))
	notifier.Attach(p)
	scheduler.Attach(p)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if watch != "" {
		f, err := feed.New(feed.Config{
			Path:      watch,
			IDField:   idField,
			Applier:   m,
			FromStart: true,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return f.Run(gctx)
		})
	}

	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		p.Quit()
		return nil
	})
	return g.Wait()
}
