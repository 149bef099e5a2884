package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/richinsley/comfymeta/samplers"
)

func (a *app) newSamplersCmd() *cobra.Command {
	var table bool

	cmd := &cobra.Command{
		Use:   "samplers",
		Short: "List the sampler name translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := samplers.Default.Entries()
			if !table {
				return writeValue(cmd.OutOrStdout(), a.cfg.Output, entries)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCOMFYUI")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\n", e.Name, strings.Join(e.Aliases, ", "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&table, "table", false, "print a plain text table")
	return cmd
}
