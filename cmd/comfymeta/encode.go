package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/richinsley/comfymeta/metadata"
)

func (a *app) newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode [FILE|-]",
		Short: "Recover the workflow document from a parsed record",
		Long: `Encode reads a record as printed by "comfymeta parse --output json" and
prints the ComfyUI workflow document it carries.  Nothing is printed when the
record has no workflow.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runEncode,
	}
}

func (a *app) runEncode(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	data, err := readLimited(in, a.cfg.MaxInputBytes)
	if err != nil {
		return err
	}

	workflow, err := metadata.EncodeJSON(data)
	if err != nil {
		return err
	}
	if workflow == "" {
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), workflow)
	return err
}
