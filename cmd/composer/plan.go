package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	composerv1alpha1 "github.com/anvil-platform/composer/api/v1alpha1"
	"github.com/anvil-platform/composer/internal/descriptor"
	"github.com/anvil-platform/composer/internal/plan"
)

func newPlanCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "plan [container]",
		Short: "Assemble a container and print its plan",
		Long: `Assemble a container from the manifest and print the models, slot
bindings, diagnostics and commission order. The container may be omitted
when the manifest holds exactly one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.manifest()
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			c, err := m.Container(name)
			if err != nil {
				return err
			}
			p, resolveErr := resolve(cmd.Context(), opts, m, c)
			if p.Root == nil {
				return resolveErr
			}
			if err := printPlan(cmd.OutOrStdout(), p, output); err != nil {
				return err
			}
			return resolveErr
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format: yaml or table")
	return cmd
}

// resolve assembles c against the manifest's types in its namespace. The
// scope is disposed before returning; the plan is a snapshot.
func resolve(ctx context.Context, opts *options, m *descriptor.Manifest, c *composerv1alpha1.Container) (plan.Plan, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var types []composerv1alpha1.ComponentType
	for _, t := range m.Types {
		if t.Namespace == c.Namespace {
			types = append(types, t)
		}
	}
	p, err := plan.NewDefault(opts.log).Resolve(ctx, plan.Input{Container: *c, Types: types})
	if p.Root != nil {
		p.Root.Dispose()
	}
	return p, err
}

func printPlan(w io.Writer, p plan.Plan, output string) error {
	switch output {
	case "yaml":
		b, err := yaml.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal plan: %w", err)
		}
		_, err = w.Write(b)
		return err
	case "table":
		return printTable(w, p)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func printTable(w io.Writer, p plan.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tPATH\tKIND\tMODE\tTYPE")
	position := map[string]int{}
	for i, path := range p.Order {
		position[path] = i + 1
	}
	for _, m := range p.Models {
		order := "-"
		if n, ok := position[m.Path]; ok {
			order = fmt.Sprint(n)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", order, m.Path, m.Kind, m.Mode, m.Type)
	}
	if len(p.Bindings) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "CONSUMER\tSLOT\tPROVIDER")
		for _, b := range p.Bindings {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Consumer, b.Slot, b.Provider)
		}
	}
	unresolved := append(append([]plan.Unresolved{}, p.Diagnostics.UnresolvedRequired...), p.Diagnostics.UnresolvedOptional...)
	if len(unresolved) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "UNRESOLVED\tSLOT\tSERVICE\tREASON")
		for _, u := range unresolved {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Consumer, u.Slot, u.Service, u.Reason)
		}
	}
	return tw.Flush()
}
