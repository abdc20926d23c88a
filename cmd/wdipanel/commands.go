package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wdipanel/internal/app"
	"wdipanel/internal/config"
	"wdipanel/internal/dataprocessing"
	"wdipanel/internal/infrastructure"
	"wdipanel/internal/operations"
	"wdipanel/internal/services"
	"wdipanel/internal/worldbank"
	"wdipanel/pkg/contracts"
)

type rootOptions struct {
	configFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "Build a country-year panel of World Development Indicators",
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (overrides "+config.ConfigFileEnv+")")

	cmd.AddCommand(
		newRunCommand(opts),
		newDeriveCommand(opts),
		newLocationsCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	if o.configFile != "" {
		if err := os.Setenv(config.ConfigFileEnv, o.configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// logger sets up the configured logger for commands that do not build the
// whole application
func logger(cfg *config.Config) (*slog.Logger, *config.Paths, error) {
	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, nil, err
	}
	l, err := infrastructure.InitializeLogger(cfg.Logging, paths.LogFile)
	if err != nil {
		return nil, nil, err
	}
	return l, paths, nil
}

type runOptions struct {
	start     string
	end       string
	locations string
	workbook  bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch every indicator, build the panel and write the artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, root, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.start, "start", "", "start date (YYYY-MM-DD)")
	flags.StringVar(&opts.end, "end", "", "end date (YYYY-MM-DD)")
	flags.StringVar(&opts.locations, "locations", "", `"all", one ISO3 code or a comma separated list`)
	flags.BoolVar(&opts.workbook, "workbook", false, "also write the xlsx workbook")
	return cmd
}

func runRun(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := root.load()
	if err != nil {
		return err
	}
	a, err := app.NewApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	overrides := services.RunOverrides{
		Locations: opts.locations,
		StartDate: opts.start,
		EndDate:   opts.end,
	}
	if cmd.Flags().Changed("workbook") {
		overrides.Workbook = &opts.workbook
	}

	result, runErr := a.RunOnce(ctx, overrides)
	if result != nil {
		if err := writeJSON(cmd.OutOrStdout(), result.RunSummary); err != nil {
			return err
		}
	}
	return runErr
}

type deriveOptions struct {
	in  string
	out string
}

func newDeriveCommand(root *rootOptions) *cobra.Command {
	opts := &deriveOptions{}
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive year-over-year change from a raw panel CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDerive(cmd, root, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.in, "in", "", "raw panel CSV (default: the run's raw panel)")
	flags.StringVar(&opts.out, "out", "", "processed panel CSV (default: the run's processed panel)")
	return cmd
}

func runDerive(cmd *cobra.Command, root *rootOptions, opts *deriveOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	log, paths, err := logger(cfg)
	if err != nil {
		return err
	}
	registry, err := cfg.Registry()
	if err != nil {
		return err
	}

	in, out := opts.in, opts.out
	if in == "" {
		in = paths.RawPanelCSV
	}
	if out == "" {
		out = paths.ProcessedPanelCSV
	}

	result, err := operations.DeriveFile(cmd.Context(), registry, in, out, log)
	if result != nil {
		if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil {
			return werr
		}
	}
	if errors.Is(err, dataprocessing.ErrPeriodKeyMissing) {
		return fmt.Errorf("%s has no %s column; nothing derived: %w", in, dataprocessing.PeriodKey, err)
	}
	return err
}

type locationsOptions struct {
	aggregates bool
	json       bool
}

func newLocationsCommand(root *rootOptions) *cobra.Command {
	opts := &locationsOptions{}
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "List the countries and aggregates the source knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocations(cmd, root, opts)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&opts.aggregates, "aggregates", true, "include regional and income aggregates")
	flags.BoolVar(&opts.json, "json", false, "print JSON instead of a table")
	return cmd
}

func runLocations(cmd *cobra.Command, root *rootOptions, opts *locationsOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	log, _, err := logger(cfg)
	if err != nil {
		return err
	}

	locations := worldbank.NewClient(cfg.Source, worldbank.WithLogger(log)).ListLocations(cmd.Context())
	if len(locations) == 0 {
		return errors.New("no location metadata available")
	}

	if !opts.aggregates {
		countries := locations[:0]
		for _, l := range locations {
			if !l.IsAggregate() {
				countries = append(countries, l)
			}
		}
		locations = countries
	}

	if opts.json {
		return writeJSON(cmd.OutOrStdout(), locations)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tREGION\tINCOME")
	for _, l := range locations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.Code, l.Name, l.RegionName, l.IncomeLevel)
	}
	return w.Flush()
}

type serveOptions struct {
	addr string
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default :<server.port>)")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	if opts.addr != "" {
		_, port, err := net.SplitHostPort(opts.addr)
		if err != nil {
			return fmt.Errorf("invalid --addr: %w", err)
		}
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid --addr port %q", port)
		}
	}

	a, err := app.NewApplication(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		a.Server.Addr = opts.addr
	}
	return a.Run()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
