package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"k8s.io/client-go/util/homedir"

	"github.com/anvil-platform/composer/internal/descriptor"
)

type options struct {
	files      []string
	verbose    bool
	kubeconfig string
	namespace  string

	log logr.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{log: logr.Discard()}

	cmd := &cobra.Command{
		Use:   "composer",
		Short: "Assemble and commission component containers",
		Long: `composer works on manifests of ComponentType and Container objects.

Examples:
  # Show how a container wires up
  composer plan -f types.yaml -f shop.yaml shop

  # Check that every container in a manifest assembles
  composer validate -f manifests/

  # Create or update the objects in the cluster
  composer apply -f manifests/ -n composer-demo`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.verbose {
				return nil
			}
			zl, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			opts.log = zapr.NewLogger(zl)
			return nil
		},
	}

	var kubeconfig string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	} else {
		kubeconfig = os.Getenv("KUBECONFIG")
	}

	flags := cmd.PersistentFlags()
	flags.StringArrayVarP(&opts.files, "file", "f", nil, "manifest file or directory (repeatable)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log assembly details to stderr")
	flags.StringVar(&opts.kubeconfig, "kubeconfig", kubeconfig, "absolute path to the kubeconfig file")
	flags.StringVarP(&opts.namespace, "namespace", "n", "default", "namespace for objects that do not set one")

	cmd.AddCommand(newPlanCmd(opts), newValidateCmd(opts), newApplyCmd(opts))
	return cmd
}

// manifest loads every file named by --file. Directories contribute their
// .yaml, .yml and .json files.
func (o *options) manifest() (*descriptor.Manifest, error) {
	if len(o.files) == 0 {
		return nil, fmt.Errorf("no manifest given, use --file")
	}
	var paths []string
	for _, f := range o.files {
		info, err := os.Stat(f)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, f)
			continue
		}
		for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
			matches, err := filepath.Glob(filepath.Join(f, pattern))
			if err != nil {
				return nil, err
			}
			paths = append(paths, matches...)
		}
	}
	m, err := descriptor.Load(paths...)
	if err != nil {
		return nil, err
	}
	for i := range m.Types {
		if m.Types[i].Namespace == "" {
			m.Types[i].Namespace = o.namespace
		}
	}
	for i := range m.Containers {
		if m.Containers[i].Namespace == "" {
			m.Containers[i].Namespace = o.namespace
		}
	}
	return m, nil
}
