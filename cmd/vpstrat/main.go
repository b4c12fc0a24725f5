package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/vpstrat/internal/config"
	"github.com/lox/vpstrat/internal/sqlstore"
	"github.com/lox/vpstrat/internal/store"
	"github.com/lox/vpstrat/internal/strategy"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	Config    string `short:"c" default:"vpstrat.hcl" help:"Path to HCL config file"`
	LogLevel  string `help:"Log level (debug, info, warn, error); overrides config"`
	BundleDir string `help:"Directory of bundled strategy tables; overrides config"`
	CacheDir  string `help:"Cache directory holding downloaded tables; overrides config"`
	SQLite    string `name:"sqlite" help:"SQLite strategy database consulted after binary tables; overrides config"`

	out io.Writer
}

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Lookup  LookupCmd        `cmd:"" help:"Show the best hold for a dealt hand"`
	List    ListCmd          `cmd:"" help:"List paytables with strategy data"`
	Info    InfoCmd          `cmd:"" help:"Describe a paytable's strategy table"`
	Verify  VerifyCmd        `cmd:"" help:"Check strategy tables for consistency and coverage"`
	Bench   BenchCmd         `cmd:"" help:"Measure lookup latency over random hands"`
	Drill   DrillCmd         `cmd:"" help:"Grade a simple hold policy over random hands"`
	Convert ConvertCmd       `cmd:"" help:"Convert a JSON strategy export into a binary table"`
	Export  ExportCmd        `cmd:"" help:"Copy a binary table into a SQLite strategy database"`
	Install InstallCmd       `cmd:"" help:"Validate a downloaded table and place it in the cache directory"`
}

func main() {
	var cli CLI
	cli.out = os.Stdout
	ctx := kong.Parse(&cli,
		kong.Name("vpstrat"),
		kong.Description("Video poker strategy table lookups and tooling"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// app is the wired engine a command runs against.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	store   *store.Store
	sqlite  *sqlstore.Store
	service *strategy.Service
	out     io.Writer
}

func (g *Globals) writer() io.Writer {
	if g.out == nil {
		return os.Stdout
	}
	return g.out
}

// loadConfig reads the config file and applies flag overrides.
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if g.BundleDir != "" {
		cfg.Strategy.BundleDir = g.BundleDir
	}
	if g.CacheDir != "" {
		cfg.Strategy.CacheDir = g.CacheDir
	}
	if g.SQLite != "" {
		cfg.Strategy.SQLitePath = g.SQLite
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (g *Globals) open() (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	level, _ := cfg.Level()
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: level == log.DebugLevel,
	})

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store.New(cfg.Resolver(), logger),
		out:    g.writer(),
	}

	opts := []strategy.ServiceOption{strategy.WithCacheSize(cfg.Strategy.ResultCacheSize)}
	if cfg.Strategy.SQLitePath != "" {
		a.sqlite, err = sqlstore.Open(cfg.Strategy.SQLitePath, logger)
		if err != nil {
			a.store.Close()
			return nil, err
		}
		opts = append(opts, strategy.WithFallback(a.sqlite))
	}
	a.service = strategy.NewService(a.store, logger, opts...)

	for _, id := range cfg.Preload {
		if !a.service.Preload(id) {
			logger.Warn("Preload failed", "paytable", id)
		}
	}
	return a, nil
}

func (a *app) Close() error {
	a.store.Close()
	if a.sqlite != nil {
		return a.sqlite.Close()
	}
	return nil
}
