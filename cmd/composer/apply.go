package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	composerv1alpha1 "github.com/anvil-platform/composer/api/v1alpha1"
	"github.com/anvil-platform/composer/internal/descriptor"
)

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(composerv1alpha1.AddToScheme(scheme))
}

func newApplyCmd(opts *options) *cobra.Command {
	var skipValidation bool
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the manifest's objects in the cluster",
		Long: `Create or update every ComponentType and Container in the manifest.
Containers are validated first unless --skip-validation is set; the
operator assembles and commissions them once they are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.manifest()
			if err != nil {
				return err
			}
			if !skipValidation {
				for i := range m.Containers {
					if _, err := resolve(cmd.Context(), opts, m, &m.Containers[i]); err != nil {
						return fmt.Errorf("container %s: %w", m.Containers[i].Name, err)
					}
				}
			}

			config, err := clientcmd.BuildConfigFromFlags("", opts.kubeconfig)
			if err != nil {
				return fmt.Errorf("build kubeconfig: %w", err)
			}
			c, err := client.New(config, client.Options{Scheme: scheme})
			if err != nil {
				return fmt.Errorf("create client: %w", err)
			}
			return apply(cmd.Context(), c, m, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "apply containers that do not assemble")
	return cmd
}

// apply writes types before containers so the operator never sees a
// container ahead of the types it names.
func apply(ctx context.Context, c client.Client, m *descriptor.Manifest, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for i := range m.Types {
		desired := m.Types[i]
		obj := &composerv1alpha1.ComponentType{}
		obj.Name, obj.Namespace = desired.Name, desired.Namespace
		result, err := controllerutil.CreateOrUpdate(ctx, c, obj, func() error {
			obj.Labels = mergeLabels(obj.Labels, desired.Labels)
			obj.Spec = desired.Spec
			return nil
		})
		if err != nil {
			return fmt.Errorf("componenttype %s/%s: %w", desired.Namespace, desired.Name, err)
		}
		fmt.Fprintf(out, "componenttype/%s %s\n", desired.Name, result)
	}
	for i := range m.Containers {
		desired := m.Containers[i]
		obj := &composerv1alpha1.Container{}
		obj.Name, obj.Namespace = desired.Name, desired.Namespace
		result, err := controllerutil.CreateOrUpdate(ctx, c, obj, func() error {
			obj.Labels = mergeLabels(obj.Labels, desired.Labels)
			obj.Spec = desired.Spec
			return nil
		})
		if err != nil {
			return fmt.Errorf("container %s/%s: %w", desired.Namespace, desired.Name, err)
		}
		fmt.Fprintf(out, "container/%s %s\n", desired.Name, result)
	}
	return nil
}

func mergeLabels(current, desired map[string]string) map[string]string {
	if len(desired) == 0 {
		return current
	}
	if current == nil {
		current = map[string]string{}
	}
	for k, v := range desired {
		current[k] = v
	}
	return current
}
