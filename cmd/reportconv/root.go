package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for reportconv.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reportconv",
		Short: "Convert static analyzer output into unified reports",
		Long: `reportconv converts the output of C/C++ static analyzers and sanitizers
into one unified, deduplicated report collection.

Supported inputs are Clang Static Analyzer and Cppcheck plists, SARIF 2.1.0,
Infer JSON, clang-tidy export YAML, GCC/Clang diagnostics and
ASan/MSan/TSan/UBSan logs. Run 'reportconv formats' for the full list.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .reportconv.yaml in current or home directory)")

	cmd.AddCommand(NewConvertCmd())
	cmd.AddCommand(NewFormatsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
