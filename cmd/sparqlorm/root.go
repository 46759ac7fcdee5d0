package main

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/CaliLuke/go-sparqlorm/config"
	"github.com/CaliLuke/go-sparqlorm/driver"
	"github.com/CaliLuke/go-sparqlorm/rdfmodel"
	"github.com/CaliLuke/go-sparqlorm/rowcache"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // "json" | "text"

	cfg    *config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sparqlorm CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "sparqlorm",
		Short:         "Query a SPARQL repository through entity schemas",
		Long:          "Plans and runs object queries against a Sesame-protocol SPARQL store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (yaml, json, or toml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level, overrides log.level")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewReposCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewObjectsCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}

func (o *RootOptions) load(stderr io.Writer) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if o.LogLevel != "" {
		if _, err := config.ParseLevel(o.LogLevel); err != nil {
			return WrapExitError(ExitCommandError, "invalid --log-level", err)
		}
		cfg.Log.Level = o.LogLevel
	}
	o.cfg = cfg
	o.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	return nil
}

// openStore connects to the configured store. repoFallback stands in for an
// unset store.repository.
func (o *RootOptions) openStore(repoFallback string) (*driver.Store, error) {
	dc := o.cfg.DriverConfig(o.logger)
	if dc.Repository == "" {
		dc.Repository = repoFallback
	}
	store, err := driver.Open(dc)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	return store, nil
}

// querier opens the store, behind the row cache when cache.path is set.
// The returned func releases both.
func (o *RootOptions) querier() (rdfmodel.Querier, func(), error) {
	store, err := o.openStore("")
	if err != nil {
		return nil, nil, err
	}
	if o.cfg.Cache.Path == "" {
		return store, store.Close, nil
	}
	cache, err := rowcache.Open(o.cfg.Cache.Path, store,
		rowcache.WithScope(store.RepositoryURL()),
		rowcache.WithTTL(o.cfg.Cache.TTL), rowcache.WithLogger(o.logger))
	if err != nil {
		store.Close()
		return nil, nil, WrapExitError(ExitCommandError, "open cache", err)
	}
	o.logger.Debug("row cache enabled", "path", o.cfg.Cache.Path, "ttl", o.cfg.Cache.TTL)
	return cache, func() {
		if err := cache.Close(); err != nil {
			o.logger.Warn("closing row cache", "error", err)
		}
		store.Close()
	}, nil
}

func (o *RootOptions) database(q rdfmodel.Querier) *rdfmodel.Database {
	dbOpts := []rdfmodel.DatabaseOption{
		rdfmodel.WithLogger(o.logger),
		rdfmodel.WithParallelQueries(o.cfg.Planner.ParallelQueries),
	}
	if o.cfg.Planner.Pretty {
		dbOpts = append(dbOpts, rdfmodel.WithPrettyQueries())
	}
	return rdfmodel.NewDatabase(q, dbOpts...)
}
