package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nao1215/reportconv/internal/formats"
)

// NewFormatsCmd creates the formats command.
func NewFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported input formats",
		Long: `List the input formats reportconv can convert, in detection order.

The first column is the name accepted by 'reportconv convert --type'. The
second is the analyzer name stamped on reports when the input itself does
not name one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FORMAT\tANALYZER")
			for _, p := range formats.Default().Parsers() {
				fmt.Fprintf(tw, "%s\t%s\n", p.Name(), p.Analyzer())
			}
			return tw.Flush()
		},
	}
}
