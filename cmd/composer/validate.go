package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every container in the manifest assembles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.manifest()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for i := range m.Containers {
				c := &m.Containers[i]
				p, err := resolve(cmd.Context(), opts, m, c)
				if err != nil {
					failed++
					fmt.Fprintf(out, "container/%s: %v\n", c.Name, err)
					continue
				}
				fmt.Fprintf(out, "container/%s: assembled, %d models, %d bindings", c.Name, len(p.Models), len(p.Bindings))
				if n := len(p.Diagnostics.UnresolvedOptional); n > 0 {
					fmt.Fprintf(out, ", %d optional dependencies unresolved", n)
				}
				fmt.Fprintln(out)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d containers failed to assemble", failed, len(m.Containers))
			}
			return nil
		},
	}
}
