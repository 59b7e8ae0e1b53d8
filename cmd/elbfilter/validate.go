package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and compile every pipeline filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := prepare(cmd, opts)
			if err != nil {
				return err
			}
			for _, c := range a.compiled {
				fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", c.Name, c.Output.Type, c.Predicate)
			}
			fmt.Fprintf(a.stdout, "%d pipelines OK\n", len(a.compiled))
			return nil
		},
	}
}
