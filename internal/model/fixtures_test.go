package model

import (
	"testing"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/composer/internal/meta"
)

func services(names ...string) []meta.ServiceDescriptor {
	out := make([]meta.ServiceDescriptor, 0, len(names))
	for _, n := range names {
		out = append(out, meta.ServiceDescriptor{Classname: n})
	}
	return out
}

func requires(key, service string) meta.DependencyDescriptor {
	return meta.DependencyDescriptor{Key: key, Reference: meta.ReferenceDescriptor{Classname: service}}
}

func optional(key, service string) meta.DependencyDescriptor {
	d := requires(key, service)
	d.Optional = true
	return d
}

func explicit(name, classname string) meta.Profile {
	return meta.Profile{Name: name, Classname: classname, Mode: meta.ModeExplicit}
}

func newScope(t *testing.T, profile meta.ContainmentProfile, opts ...Option) *ContainmentModel {
	t.Helper()
	if profile.Name == "" {
		profile.Name = "root"
	}
	root, err := NewRoot(logr.Discard(), profile, nil, opts...)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	t.Cleanup(root.Dispose)
	return root
}

func component(t *testing.T, scope *ContainmentModel, path string) *ComponentModel {
	t.Helper()
	m, err := scope.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", path, err)
	}
	cm, ok := m.(*ComponentModel)
	if !ok {
		t.Fatalf("%q is a %s, not a component", path, m.Kind())
	}
	return cm
}

func qualifiedNames(models []DeploymentModel) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		out = append(out, m.QualifiedName())
	}
	return out
}
