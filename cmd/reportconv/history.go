package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/reportconv/internal/config"
	"github.com/nao1215/reportconv/internal/database"
	"github.com/nao1215/reportconv/internal/model"
)

// NewHistoryCmd creates the history command.
// This command browses runs stored with 'reportconv convert --db'.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Browse conversion runs saved in the report store",
		Long: `History lists the conversion runs saved with 'reportconv convert --db'
and renders the reports of a single run again.

Examples:
  # List the most recent runs
  reportconv history

  # Render the reports of a stored run as Markdown
  reportconv history --format markdown 0b5c3f0e-1a2b-4c3d-9e8f-123456789abc

  # Delete a stored run
  reportconv history --delete 0b5c3f0e-1a2b-4c3d-9e8f-123456789abc`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().StringP("format", "f", "text",
		"Format used to render a run: json, markdown or text")
	cmd.Flags().Bool("delete", false,
		"Delete the given run instead of rendering it")
	cmd.Flags().String("db-dir", "",
		"Report store directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	outputFormat, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	deleteRun, err := cmd.Flags().GetBool("delete")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// Validate arguments before opening the database
	if deleteRun && len(args) == 0 {
		return errors.New("run ID is required with --delete (run 'reportconv history' to list runs)")
	}

	out := cmd.OutOrStdout()
	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); os.IsNotExist(err) {
		fmt.Fprintln(out, "No runs stored yet.")
		fmt.Fprintln(out, "\nUse 'reportconv convert --db <files>' to save a conversion run.")
		return nil
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	switch {
	case len(args) == 0:
		return listRuns(ctx, db, limit, out)
	case deleteRun:
		if err := db.DeleteRun(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %s\n", args[0])
		return nil
	default:
		return showRun(ctx, db, args[0], outputFormat, out)
	}
}

// listRuns prints stored runs, newest first.
func listRuns(ctx context.Context, db *database.ReportDB, limit int, out io.Writer) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs stored yet.")
		return nil
	}

	fmt.Fprintf(out, "Stored runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-20s  %-8s  %-8s  %s\n", "ID", "Date", "Inputs", "Reports", "Source Root")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 96))
	for _, run := range runs {
		fmt.Fprintf(out, "  %-36s  %-20s  %-8d  %-8d  %s\n",
			run.ID,
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			run.InputCount,
			run.ReportCount,
			run.SourceRoot,
		)
	}
	fmt.Fprintln(out, "\nUse 'reportconv history <id>' to render the reports of a run.")

	return nil
}

// showRun renders the reports of a stored run with the requested writer.
func showRun(ctx context.Context, db *database.ReportDB, id, outputFormat string, out io.Writer) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	reports, err := db.ListReports(ctx, id)
	if err != nil {
		return err
	}

	result := &model.ConversionResult{
		SourceRoot: run.SourceRoot,
		StartedAt:  run.CreatedAt,
		Reports:    reports,
	}

	cfg := &config.Config{OutputFormat: outputFormat, NoColor: true}
	w, err := newWriter(cfg, out)
	if err != nil {
		return err
	}
	return w.Write(result)
}
