package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/reportconv/internal/config"
	"github.com/nao1215/reportconv/internal/database"
	"github.com/nao1215/reportconv/internal/dedup"
	"github.com/nao1215/reportconv/internal/input"
	"github.com/nao1215/reportconv/internal/log"
	"github.com/nao1215/reportconv/internal/model"
	"github.com/nao1215/reportconv/internal/pipeline"
	"github.com/nao1215/reportconv/internal/report"
	"github.com/nao1215/reportconv/internal/resolve"
)

// ErrNothingConverted is returned when no input produced a report and no
// file could be parsed. The CLI exits with status 1 in that case.
var ErrNothingConverted = errors.New("nothing converted")

// NewConvertCmd creates the convert command.
func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [file-or-directory...]",
		Short: "Convert analyzer output files into one unified report",
		Long: `Convert reads analyzer output files, detects their format, resolves
report paths against a source root and merges duplicate reports.

Directories are expanded to the regular files they contain. Files that
cannot be read or parsed are skipped with a diagnostic; the command only
fails when nothing at all could be converted.

Examples:
  # Convert every file in a results directory, relative to ./src
  reportconv convert -r ./src build/results/

  # Rewrite CI paths to the local checkout
  reportconv convert -r . --map /builds/project=. results.sarif

  # Force the clang-tidy parser and write Markdown
  reportconv convert --type clang-tidy-yaml --format markdown -o report.md fixes.yaml

  # Prefer clang-tidy reports for duplicated bugprone-* findings
  reportconv convert --authority 'bugprone-*=clang-tidy' a.plist b.yaml

  # Store the run for 'reportconv history'
  reportconv convert --db results/`,
		Args: cobra.ArbitraryArgs,
		RunE: runConvertCmd,
	}

	// Resolution flags
	cmd.Flags().StringP("source-root", "r", "",
		"Directory report paths are made relative to (default: current directory)")
	cmd.Flags().StringArrayP("map", "m", nil,
		"Path prefix mapping FROM=TO applied before resolution (repeatable)")
	cmd.Flags().Bool("check-exists", false,
		"Mark report files missing under the source root as unresolved")

	// Parsing flags
	cmd.Flags().StringP("type", "t", "",
		"Force an input format instead of detecting it (see 'reportconv formats')")
	cmd.Flags().IntP("concurrency", "j", config.DefaultConcurrency(),
		"Number of files converted in parallel")
	cmd.Flags().Duration("file-timeout", config.DefaultFileTimeout,
		"Time limit for converting a single file")
	cmd.Flags().Int64("max-size", config.DefaultMaxFileSize,
		"Maximum size of a single input in bytes, before and after decompression")
	cmd.Flags().StringArrayP("authority", "a", nil,
		"CHECKER=ANALYZER: prefer ANALYZER's report for duplicates of matching checkers (repeatable)")

	// Output flags
	cmd.Flags().StringP("format", "f", config.DefaultOutputFormat,
		"Report format: json, markdown or text")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-color", false,
		"Disable colors in text output")

	// Store flags
	cmd.Flags().Bool("db", false,
		"Save the run to the report store")
	cmd.Flags().String("db-dir", "",
		"Report store directory (implies --db, default: XDG data directory)")

	return cmd
}

// runConvertCmd executes the convert command.
func runConvertCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runConvert(ctx, cfg, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config file flag from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// buildConfig creates a Config from defaults, the configuration file and
// cobra command flags, in that order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Inputs = args
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.ConfigFilePath = getConfigFlag(cmd)

	// If the user explicitly specified a config file path, error if not found.
	// If no path was specified, silently continue when no file is found.
	if configPath := config.FindConfigFile(cfg.ConfigFilePath); configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply config file %s: %w", configPath, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies every flag the user set onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("source-root") {
		if cfg.SourceRoot, err = flags.GetString("source-root"); err != nil {
			return err
		}
	}
	if flags.Changed("check-exists") {
		if cfg.CheckExists, err = flags.GetBool("check-exists"); err != nil {
			return err
		}
	}
	if flags.Changed("type") {
		if cfg.Format, err = flags.GetString("type"); err != nil {
			return err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return err
		}
	}
	if flags.Changed("file-timeout") {
		if cfg.FileTimeout, err = flags.GetDuration("file-timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("max-size") {
		if cfg.MaxFileSize, err = flags.GetInt64("max-size"); err != nil {
			return err
		}
	}
	if flags.Changed("format") {
		if cfg.OutputFormat, err = flags.GetString("format"); err != nil {
			return err
		}
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return err
	}
	if cfg.NoColor, err = flags.GetBool("no-color"); err != nil {
		return err
	}

	maps, err := flags.GetStringArray("map")
	if err != nil {
		return err
	}
	for _, s := range maps {
		m, err := resolve.ParseMapping(s)
		if err != nil {
			return fmt.Errorf("invalid --map %q: %w", s, err)
		}
		cfg.Mappings = append(cfg.Mappings, m)
	}

	authorities, err := flags.GetStringArray("authority")
	if err != nil {
		return err
	}
	for _, s := range authorities {
		checker, analyzer, ok := strings.Cut(s, "=")
		if !ok || checker == "" || analyzer == "" {
			return fmt.Errorf("invalid --authority %q: expected CHECKER=ANALYZER", s)
		}
		cfg.Authorities = append(cfg.Authorities, config.Authority{Checker: checker, Analyzer: analyzer})
	}

	saveToDB, err := flags.GetBool("db")
	if err != nil {
		return err
	}
	if saveToDB {
		cfg.SaveToDB = true
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return err
		}
		cfg.SaveToDB = true
	}
	return nil
}

// newConverter wires the engine components described by cfg.
func newConverter(cfg *config.Config, logger *slog.Logger) (*pipeline.Converter, error) {
	resolver, err := resolve.New(cfg.SourceRoot,
		resolve.WithMappings(cfg.Mappings...),
		resolve.WithCheckExists(cfg.CheckExists),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid source root: %w", err)
	}

	mergeOpts := make([]dedup.Option, 0, len(cfg.Authorities))
	for _, a := range cfg.Authorities {
		mergeOpts = append(mergeOpts, dedup.WithAuthority(a.Checker, a.Analyzer))
	}

	return pipeline.NewConverter(
		pipeline.WithResolver(resolver),
		pipeline.WithMerger(dedup.NewMerger(mergeOpts...)),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithFileTimeout(cfg.FileTimeout),
		pipeline.WithMaxFileSize(cfg.MaxFileSize),
		pipeline.WithFormat(cfg.Format),
		pipeline.WithConverterLogger(logger),
	)
}

// runConvert executes the conversion and writes the report.
func runConvert(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	inputs, err := input.Expand(cfg.Inputs)
	if err != nil {
		return err
	}

	conv, err := newConverter(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("starting conversion",
		"inputs", len(inputs),
		"sourceRoot", cfg.SourceRoot,
		"concurrency", cfg.Concurrency,
		"saveToDB", cfg.SaveToDB,
	)

	result := conv.Convert(ctx, inputs)

	if err := outputReport(cfg, result, stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.SaveToDB {
		if err := saveRun(ctx, cfg.DBDir, result, logger); err != nil {
			logger.Error("failed to save run", "error", err)
		}
	}

	if result.Failed() {
		return fmt.Errorf("%w: %s", ErrNothingConverted, strings.Join(result.Messages(), "; "))
	}
	return nil
}

// newWriter returns the report writer for the configured output format.
func newWriter(cfg *config.Config, output io.Writer) (report.Writer, error) {
	switch cfg.OutputFormat {
	case "json":
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithToolVersion(getVersion())), nil
	case "markdown":
		return report.NewMarkdownWriter(output), nil
	case "text":
		opts := []report.TextWriterOption{}
		if cfg.NoColor || cfg.OutputFile != "" {
			opts = append(opts, report.WithColor(false))
		}
		return report.NewTextWriter(output, opts...), nil
	default:
		return nil, config.ErrUnknownOutputFormat
	}
}

// outputReport writes the result to the output file or stdout.
func outputReport(cfg *config.Config, result *model.ConversionResult, stdout io.Writer) error {
	output := stdout
	if cfg.OutputFile != "" {
		dir := filepath.Dir(cfg.OutputFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	w, err := newWriter(cfg, output)
	if err != nil {
		return err
	}
	return w.Write(result)
}

// saveRun stores the result in the report store.
func saveRun(ctx context.Context, dbDir string, result *model.ConversionResult, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, database.NewRunRecord(result), result.Reports)
	if err != nil {
		return err
	}

	logger.Info("run saved to database", "run", id, "reports", len(result.Reports), "path", db.Path())
	return nil
}
