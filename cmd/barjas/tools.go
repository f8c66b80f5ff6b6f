package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"barjas/internal/amqp"
	"barjas/internal/cli"
	"barjas/internal/core"
	"barjas/internal/export"
	applog "barjas/internal/log"
	"barjas/internal/session"
	"barjas/internal/worker"
)

// cliSession is the workspace used by one-shot commands.
const cliSession = "cli"

func newHeadersCmd() *cobra.Command {
	var analysis bool
	cmd := &cobra.Command{
		Use:   "headers [sheet...]",
		Short: "Print the reconciled column names and roles of worksheets",
		Long: `headers reads each worksheet, merges its header rows into column names
and prints the name, detected role and display hint of every column.

Without arguments every allowed tracking sheet is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return printHeaders(cmd.Context(), cmd.OutOrStdout(), a, sheetArgs(args), analysis)
		},
	}
	cmd.Flags().BoolVar(&analysis, "analysis", false, "Also print the procurement sheet located by HEADER_MARKER")
	return cmd
}

func printHeaders(ctx context.Context, out io.Writer, a *app, sheets []string, withAnalysis bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dashboard := a.dashboard(nil, nil)
	if len(sheets) == 0 {
		var err error
		if sheets, err = dashboard.Sheets(ctx); err != nil {
			return err
		}
	}

	ws := session.NewManager(1, a.cfg.SessionTTL, false).Workspace(cliSession)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, name := range sheets {
		entry, err := dashboard.Open(ctx, ws, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		writeColumns(tw, entry.Sheet, entry.Table, entry.Anchor.Col)
	}
	if withAnalysis {
		table, err := a.analysis().Table(ctx)
		if err != nil {
			return fmt.Errorf("read %s: %w", a.cfg.AnalysisSheet, err)
		}
		writeColumns(tw, a.cfg.AnalysisSheet, table, 1)
	}
	return tw.Flush()
}

func writeColumns(w io.Writer, sheet string, t *core.Table, firstCol int) {
	fmt.Fprintf(w, "%s\t(%d rows)\t\t\n", sheet, len(t.Rows))
	for i, c := range t.Columns {
		letter, err := excelize.ColumnNumberToName(firstCol + i)
		if err != nil {
			letter = "?"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", letter, c.Name, c.Role, c.Role.Hint().Kind)
	}
	fmt.Fprintln(w, "\t\t\t")
}

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export SHEET",
		Short: "Write a tracking sheet to an .xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			path, err := exportSheet(cmd.Context(), a, args[0], output)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: SHEET.xlsx)")
	return cmd
}

func exportSheet(ctx context.Context, a *app, sheet, output string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ws := session.NewManager(1, a.cfg.SessionTTL, false).Workspace(cliSession)
	entry, err := a.dashboard(nil, nil).Open(ctx, ws, sheet)
	if err != nil {
		return "", err
	}
	if output == "" {
		output = export.Filename(entry.Sheet)
	}

	f, err := os.Create(output)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", output, err)
	}
	if err := export.Write(f, entry.Sheet, entry.Table); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", output, err)
	}
	a.logger.Info("Sheet exported",
		applog.FieldSheet, entry.Sheet,
		applog.FieldRows, len(entry.Table.Rows),
		applog.FieldOperation, applog.OpExport,
		"path", output)
	return output, nil
}

func newEventsCmd() *cobra.Command {
	var lookback int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Consume sheet saved events and check them against the save log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return runEvents(a, lookback)
		},
	}
	cmd.Flags().IntVar(&lookback, "lookback", 50, "Saves of the same sheet searched for each event")
	return cmd
}

func runEvents(a *app, lookback int) error {
	if a.cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the events consumer")
	}
	logger := a.logger.WithComponent(applog.ComponentAMQP)

	repo, err := cli.InitSQLite(a.logger, a.cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	var history worker.SaveHistory
	if repo != nil {
		defer repo.Close()
		history = repo
	}

	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	auditor := worker.NewSaveAuditor(history, lookback)
	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	logger.Info("Consuming save events", "queue", a.cfg.AMQPQueue, "history", repo != nil)
	err = client.ConsumeSheetSaved(ctx, auditor.HandleSheetSaved)
	stats := auditor.Stats()
	logger.Info("Events consumer stopped",
		"processed", stats.Processed,
		"matched", stats.Matched,
		"unmatched", stats.Unmatched)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	<-done
	return nil
}

// sheetArgs splits comma-joined sheet arguments.
func sheetArgs(args []string) []string {
	var out []string
	for _, a := range args {
		for _, p := range strings.Split(a, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
