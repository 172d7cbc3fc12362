package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"datatables/examples/inventory"
	"datatables/examples/showcase"
	"datatables/internal/config"
	"datatables/registry"
	"datatables/storage"
	"datatables/table"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"schemas", "schemas", runSchemas},
	{"new", "new -schema T path", runNew},
	{"check", "check path", runCheck},
	{"fmt", "fmt [-n] path", runFmt},
	{"dump", "dump path", runDump},
	{"lint", "lint patterns...", runLint},
	{"watch", "watch [-metrics addr] path", runWatch},
}

// app carries what every command needs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   storage.Store
	svc     *table.Service
	metrics *prometheus.Registry
	stdout  io.Writer
	stderr  io.Writer
}

// newRegistry registers the row types this binary knows.
func newRegistry(logger *zap.Logger) *registry.Registry {
	reg := registry.New(registry.WithLogger(logger))
	showcase.Register(reg)
	inventory.Register(reg)

	return reg
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdout, stderr io.Writer) (*app, error) {
	store, err := storage.Open(ctx, cfg.StorageConfig(), storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	metrics := prometheus.NewRegistry()
	svc := table.NewService(newRegistry(logger), store,
		table.WithLogger(logger),
		table.WithMetrics(table.NewMetrics(metrics)),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		svc:     svc,
		metrics: metrics,
		stdout:  stdout,
		stderr:  stderr,
	}, nil
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("datatable", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	dev := fs.Bool("dev", false, "development logging; contract violations panic")
	verbose := fs.Bool("v", false, "log at debug level")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		usage(fs)
		return exitUsage
	}

	cmd, ok := lookup(fs.Arg(0))
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", fs.Arg(0))
		usage(fs)
		return exitUsage
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitFail
		}
		cfg = loaded
	}
	if *dev {
		cfg.Log.Development = true
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}

	err = cmd.run(ctx, a, fs.Args()[1:])
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, "usage: datatable "+cmd.usage)
		return exitUsage
	default:
		fmt.Fprintln(stderr, err)
		return exitFail
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}

	return command{}, false
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "usage: datatable [flags] <command> [args]")
	fmt.Fprintln(out, "\ncommands:")
	for _, c := range commands {
		fmt.Fprintln(out, "  "+c.usage)
	}
	fmt.Fprintln(out, "\nflags:")
	fs.PrintDefaults()
}
