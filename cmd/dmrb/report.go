package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/dmrb/internal/app"
	"github.com/stwalsh4118/dmrb/internal/config"
	"github.com/stwalsh4118/dmrb/internal/logger"
	"github.com/stwalsh4118/dmrb/internal/models"
	"github.com/stwalsh4118/dmrb/internal/services"
	"gopkg.in/yaml.v3"
)

type reportOptions struct {
	view    string
	unit    string
	today   string
	date    string
	file    string
	format  string
	verbose bool
}

func newReportCmd() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a dashboard report",
		Long: "Loads the workbook once and prints one report.\n\n" +
			"Views: phases, units, kpis, moves, tasks, or a unit view " +
			"(active, notice, vacant, moving, ready, not-ready, all).",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.view, "view", "kpis", "report to print")
	cmd.Flags().StringVar(&opts.unit, "unit", "", "with --view units, print only this unit")
	cmd.Flags().StringVar(&opts.today, "today", "", "reference date YYYY-MM-DD (default: today in TIMEZONE)")
	cmd.Flags().StringVar(&opts.date, "date", "", "with --view tasks, the task day YYYY-MM-DD (default: yesterday)")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read the workbook from this .xlsx file instead of SOURCE_URL/SOURCE_FILE")
	cmd.Flags().StringVarP(&opts.format, "format", "o", "json", "output format: json or yaml")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	return cmd
}

func runReport(cmd *cobra.Command, opts reportOptions) error {
	format := strings.ToLower(opts.format)
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format %q: want json or yaml", opts.format)
	}
	today, err := parseDateFlag("today", opts.today)
	if err != nil {
		return err
	}
	day, err := parseDateFlag("date", opts.date)
	if err != nil {
		return err
	}

	// One-shot runs never schedule refreshes.
	overrides := map[string]interface{}{"REFRESH_SCHEDULE": ""}
	if opts.file != "" {
		overrides["SOURCE_FILE"] = opts.file
		overrides["SOURCE_URL"] = ""
	}
	cfg, err := config.LoadWithOverrides(overrides)
	if err != nil {
		return err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log := logger.NewWithOptions(logger.Options{
		Env:     cfg.Server.Env,
		Level:   level,
		Output:  cmd.ErrOrStderr(),
		Service: "dmrb",
	})

	dashboard, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer dashboard.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := buildReport(ctx, dashboard.Service, opts.view, opts.unit, day, today)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), format, result)
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(models.EventDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD", name, value)
	}
	return t, nil
}

func buildReport(ctx context.Context, svc services.DashboardService, view, unit string, day, today time.Time) (interface{}, error) {
	switch strings.ToLower(strings.TrimSpace(view)) {
	case "phases":
		return svc.PhaseOverview(ctx, today)
	case "units":
		if unit != "" {
			return svc.Unit(ctx, unit, today)
		}
		return svc.AllUnits(ctx, today)
	case "kpis":
		return svc.KPIs(ctx, today)
	case "moves":
		return svc.MoveActivity(ctx, today)
	case "tasks":
		return svc.Tasks(ctx, day, today)
	default:
		return svc.UnitsView(ctx, view, today)
	}
}

func writeReport(w io.Writer, format string, v interface{}) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
