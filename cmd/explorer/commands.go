package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pathways-lab/scenario-explorer/internal/core/storage/postgres"
	"github.com/pathways-lab/scenario-explorer/internal/export"
	"github.com/pathways-lab/scenario-explorer/internal/migrations"
	"github.com/pathways-lab/scenario-explorer/internal/projection"
)

var (
	arrangeSelect []string
	arrangeJSON   bool

	exportDir      string
	exportPostgres bool

	netzeroVariable  string
	netzeroBaseYear  string
	netzeroThreshold float64
)

var arrangeCmd = &cobra.Command{
	Use:   "arrange CHART",
	Short: "Render one chart and print its table",
	Long: `Render one chart against the configured results and print the wide table
as CSV (missing cells are left empty), or as JSON with --json.

Examples:
  explorer arrange capacity_by_technology
  explorer arrange capacity_by_technology --select RUN:S1 --select REGION:UK`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if _, err := a.load(cmd.Context()); err != nil {
			return err
		}

		resp, err := a.service.RenderChart(cmd.Context(), args[0], arrangeSelect)
		if err != nil {
			return err
		}
		if arrangeJSON {
			return writeJSON(cmd.OutOrStdout(), resp)
		}
		if resp.Empty {
			slog.Warn("[Explorer] Chart has no data", "chart", resp.Chart, "reason", resp.Reason)
			return nil
		}
		return writeWideCSV(cmd.OutOrStdout(), resp)
	},
}

var variablesCmd = &cobra.Command{
	Use:   "variables",
	Short: "List the variables of the merged result set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if _, err := a.load(cmd.Context()); err != nil {
			return err
		}

		resp, err := a.service.Variables(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "VARIABLE\tROWS\tDIMENSIONS\n")
		for _, v := range resp.Variables {
			fmt.Fprintf(w, "%s\t%d\t%s\n", v.Name, v.Rows, strings.Join(v.Dimensions, ", "))
		}
		return w.Flush()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render every chart and write the tables",
	Long: `Render every configured chart with its default parameters and write one
long-form CSV per chart to the export directory and, with --postgres, to the
export tables of the configured database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		dir := a.cfg.Export.Dir
		if cmd.Flags().Changed("dir") {
			dir = exportDir
		}
		toPostgres := a.cfg.Export.Postgres || exportPostgres

		var sinks []export.Sink
		if dir != "" {
			sinks = append(sinks, export.CSVSink{Dir: dir})
		}
		if toPostgres {
			if a.cfg.Database.DSN == "" {
				return fmt.Errorf("--postgres requires database.dsn")
			}
			dbAdapter, err := postgres.NewAdapter(a.cfg.Database.DSN, a.cfg.Database.MaxOpenConns, a.cfg.Database.MaxIdleConns)
			if err != nil {
				return err
			}
			defer dbAdapter.Close()
			if err := migrations.RunMigrations(dbAdapter.DB(), a.cfg.Database.AutoMigrate); err != nil {
				return err
			}
			if err := dbAdapter.ValidateSchema(ctx); err != nil {
				return err
			}
			sinks = append(sinks, export.StoreSink{Store: postgres.NewExportAdapter(dbAdapter.DB())})
		}
		if len(sinks) == 0 {
			return fmt.Errorf("nothing to export to: set export.dir or --postgres")
		}

		snap, err := a.load(ctx)
		if err != nil {
			return err
		}
		list, err := a.cfg.ChartLoading.Repository.List(ctx, "")
		if err != nil {
			return err
		}

		sum, err := export.Run(ctx, snap.Set, list, a.chartOptions(), sinks...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "written=%d skipped=%d empty=%d\n", sum.Written, sum.Skipped, sum.Empty)
		return nil
	},
}

var netzeroCmd = &cobra.Command{
	Use:   "netzero",
	Short: "Print the first year each series reaches net zero",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if _, err := a.load(cmd.Context()); err != nil {
			return err
		}

		resp, err := a.service.NetZero(cmd.Context(), projection.NetZeroQuery{
			Variable:  netzeroVariable,
			BaseYear:  netzeroBaseYear,
			Threshold: netzeroThreshold,
		})
		if err != nil {
			return err
		}
		if resp.Empty {
			slog.Warn("[Explorer] No net-zero years", "variable", resp.Variable, "reason", resp.Reason)
			return nil
		}

		w := csv.NewWriter(cmd.OutOrStdout())
		if err := w.Write(append(append([]string(nil), resp.Dimensions...), "YEAR")); err != nil {
			return err
		}
		for _, r := range resp.Rows {
			rec := append(append([]string(nil), r.Group...), formatCell(float64(r.Year)))
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	},
}

func init() {
	arrangeCmd.Flags().StringArrayVarP(&arrangeSelect, "select", "s", nil, "Select one label of a dimension (DIM:label), repeatable")
	arrangeCmd.Flags().BoolVar(&arrangeJSON, "json", false, "Print the API response instead of CSV")

	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "", "CSV output directory (overrides export.dir)")
	exportCmd.Flags().BoolVar(&exportPostgres, "postgres", false, "Also persist the tables to the export database")

	netzeroCmd.Flags().StringVar(&netzeroVariable, "variable", "", "Emissions variable (default netzero.variable)")
	netzeroCmd.Flags().StringVar(&netzeroBaseYear, "base-year", "", "Base year (default netzero.base_year)")
	netzeroCmd.Flags().Float64Var(&netzeroThreshold, "threshold", 0, "Share of base-year emissions counted as net zero (default netzero.threshold)")
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeWideCSV prints the row key columns followed by one column per chart
// column.
func writeWideCSV(out io.Writer, resp *projection.ChartResponse) error {
	w := csv.NewWriter(out)
	header := append(append([]string(nil), resp.Index...), resp.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range resp.Rows {
		rec := append([]string(nil), r.Key...)
		for _, v := range r.Values {
			rec = append(rec, formatCell(float64(v)))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// formatCell leaves NaN and infinite cells empty.
func formatCell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
