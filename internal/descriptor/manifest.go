package descriptor

import (
	"errors"
	"fmt"
	"io"
	"os"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/yaml"

	composerv1alpha1 "github.com/anvil-platform/composer/api/v1alpha1"
)

// Manifest is the set of composer objects read from YAML or JSON documents.
type Manifest struct {
	Types      []composerv1alpha1.ComponentType
	Containers []composerv1alpha1.Container
}

// Decode reads every document in r. Objects of other groups or kinds are
// rejected.
func Decode(r io.Reader) (*Manifest, error) {
	const bufferSize = 4096
	decoder := yaml.NewYAMLOrJSONDecoder(r, bufferSize)
	m := &Manifest{}
	for {
		var obj unstructured.Unstructured
		err := decoder.Decode(&obj.Object)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		if len(obj.Object) == 0 {
			continue
		}
		if err := m.add(&obj); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Load decodes and merges the files at paths.
func Load(paths ...string) (*Manifest, error) {
	m := &Manifest{}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open manifest: %w", err)
		}
		part, err := Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		m.Types = append(m.Types, part.Types...)
		m.Containers = append(m.Containers, part.Containers...)
	}
	return m, nil
}

func (m *Manifest) add(obj *unstructured.Unstructured) error {
	gvk := obj.GroupVersionKind()
	if gvk.GroupVersion() != composerv1alpha1.GroupVersion {
		return fmt.Errorf("%w: unsupported apiVersion %q", ErrInvalid, obj.GetAPIVersion())
	}
	switch gvk.Kind {
	case "ComponentType":
		var ct composerv1alpha1.ComponentType
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, &ct); err != nil {
			return fmt.Errorf("componenttype %s: %w", obj.GetName(), err)
		}
		m.Types = append(m.Types, ct)
	case "Container":
		var c composerv1alpha1.Container
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, &c); err != nil {
			return fmt.Errorf("container %s: %w", obj.GetName(), err)
		}
		m.Containers = append(m.Containers, c)
	default:
		return fmt.Errorf("%w: unsupported kind %q", ErrInvalid, gvk.Kind)
	}
	return nil
}

// Container returns the container with the given name, or the only one when
// name is empty.
func (m *Manifest) Container(name string) (*composerv1alpha1.Container, error) {
	if name == "" {
		if len(m.Containers) != 1 {
			return nil, fmt.Errorf("%w: manifest holds %d containers, name one", ErrInvalid, len(m.Containers))
		}
		return &m.Containers[0], nil
	}
	for i := range m.Containers {
		if m.Containers[i].Name == name {
			return &m.Containers[i], nil
		}
	}
	return nil, fmt.Errorf("%w: container %s not found", ErrInvalid, name)
}
