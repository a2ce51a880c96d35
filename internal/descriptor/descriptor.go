// Package descriptor converts the composer API objects into the immutable
// descriptors the assembly engine works on.
package descriptor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	composerv1alpha1 "github.com/anvil-platform/composer/api/v1alpha1"
	"github.com/anvil-platform/composer/internal/meta"
	"github.com/anvil-platform/composer/internal/semver"
)

var (
	ErrInvalid     = errors.New("invalid descriptor")
	ErrUnknownType = errors.New("unknown component type")
)

// Type converts a ComponentType. The object name becomes the type name and
// packaged profiles keep their declared order.
func Type(ct *composerv1alpha1.ComponentType) (*meta.Type, error) {
	spec := ct.Spec
	classname := strings.TrimSpace(spec.Classname)
	if classname == "" {
		return nil, fmt.Errorf("%w: componenttype %s: classname is required", ErrInvalid, ct.Name)
	}
	version, err := semver.ParseVersion(spec.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: componenttype %s: %v", ErrInvalid, ct.Name, err)
	}

	t := &meta.Type{
		Name:       ct.Name,
		Classname:  classname,
		Version:    version,
		Lifestyle:  meta.Lifestyle(spec.Lifestyle),
		Collection: meta.ParseCollectionPolicy(spec.Collection),
		Attributes: spec.Attributes,
	}
	if t.Lifestyle == "" {
		t.Lifestyle = meta.LifestyleSingleton
	}

	for _, s := range spec.Services {
		svc, err := service(s)
		if err != nil {
			return nil, fmt.Errorf("%w: componenttype %s: %v", ErrInvalid, ct.Name, err)
		}
		t.Services = append(t.Services, svc)
	}
	for _, d := range spec.Dependencies {
		if d.Key == "" || d.Service == "" {
			return nil, fmt.Errorf("%w: componenttype %s: dependency needs key and service", ErrInvalid, ct.Name)
		}
		c, err := semver.ParseConstraint(d.Constraint)
		if err != nil {
			return nil, fmt.Errorf("%w: componenttype %s: dependency %s: %v", ErrInvalid, ct.Name, d.Key, err)
		}
		t.Dependencies = append(t.Dependencies, meta.DependencyDescriptor{
			Key:       d.Key,
			Reference: meta.ReferenceDescriptor{Classname: d.Service, Constraint: c},
			Optional:  d.Optional,
		})
	}
	for _, s := range spec.Stages {
		if s.Key == "" || s.Interface == "" {
			return nil, fmt.Errorf("%w: componenttype %s: stage needs key and interface", ErrInvalid, ct.Name)
		}
		t.Stages = append(t.Stages, meta.StageDescriptor{Key: s.Key, Interface: s.Interface})
	}
	for _, e := range spec.Extensions {
		t.Extensions = append(t.Extensions, meta.ExtensionDescriptor{Interface: e})
	}

	t.Context, err = contextDescriptor(spec.Context)
	if err != nil {
		return nil, fmt.Errorf("%w: componenttype %s: %v", ErrInvalid, ct.Name, err)
	}
	for _, c := range spec.Capabilities {
		t.Capabilities = append(t.Capabilities, meta.Capability(c))
	}

	for _, ps := range spec.Profiles {
		if ps.Type != "" && ps.Type != classname {
			return nil, fmt.Errorf("%w: componenttype %s: packaged profile %s names type %s", ErrInvalid, ct.Name, ps.Name, ps.Type)
		}
		ps.Type = classname
		p, err := Profile(ps, meta.ModePackaged)
		if err != nil {
			return nil, fmt.Errorf("componenttype %s: %w", ct.Name, err)
		}
		t.Profiles = append(t.Profiles, p)
	}
	return t, nil
}

func service(s composerv1alpha1.ServiceRef) (meta.ServiceDescriptor, error) {
	if s.Classname == "" {
		return meta.ServiceDescriptor{}, errors.New("service needs a classname")
	}
	v, err := semver.ParseVersion(s.Version)
	if err != nil {
		return meta.ServiceDescriptor{}, err
	}
	return meta.ServiceDescriptor{Classname: s.Classname, Version: v}, nil
}

func contextDescriptor(spec composerv1alpha1.ContextSpec) (meta.ContextDescriptor, error) {
	var d meta.ContextDescriptor
	switch spec.Delivery {
	case "":
		d.Delivery.Kind = meta.DeliveryNone
	case "standard":
		d.Delivery.Kind = meta.DeliveryStandard
	case "staged":
		if spec.Interface == "" {
			return d, errors.New("staged context delivery needs an interface")
		}
		d.Delivery = meta.Delivery{Kind: meta.DeliveryStaged, Interface: spec.Interface}
	default:
		return d, fmt.Errorf("unknown context delivery %q", spec.Delivery)
	}
	for _, e := range spec.Entries {
		d.Entries = append(d.Entries, meta.EntryDescriptor{Key: e.Key, Optional: e.Optional})
	}
	return d, nil
}

// Profile converts a profile spec deployed with the given mode.
func Profile(spec composerv1alpha1.ProfileSpec, mode meta.Mode) (meta.Profile, error) {
	if spec.Name == "" {
		return meta.Profile{}, fmt.Errorf("%w: profile needs a name", ErrInvalid)
	}
	if spec.Type == "" {
		return meta.Profile{}, fmt.Errorf("%w: profile %s needs a type", ErrInvalid, spec.Name)
	}
	switch spec.Activation {
	case "", composerv1alpha1.ActivationEnabled, composerv1alpha1.ActivationDisabled:
	default:
		return meta.Profile{}, fmt.Errorf("%w: profile %s: activation %q", ErrInvalid, spec.Name, spec.Activation)
	}
	return meta.Profile{
		Name:         spec.Name,
		Classname:    spec.Type,
		Mode:         mode,
		Template:     spec.Template,
		Activation:   meta.Activation(spec.Activation),
		Collection:   meta.ParseCollectionPolicy(spec.Collection),
		Parameters:   spec.Parameters,
		Context:      spec.Context,
		ContextPath:  spec.ContextPath,
		Dependencies: directives(spec.Dependencies),
		Stages:       directives(spec.Stages),
	}, nil
}

func directives(specs []composerv1alpha1.DirectiveSpec) []meta.Directive {
	if len(specs) == 0 {
		return nil
	}
	out := make([]meta.Directive, 0, len(specs))
	for _, d := range specs {
		out = append(out, meta.Directive{Key: d.Key, Path: d.Path})
	}
	return out
}

// Types converts every ComponentType, sorted by object name so that catalog
// order does not depend on list order.
func Types(items []composerv1alpha1.ComponentType) ([]*meta.Type, error) {
	sorted := make([]composerv1alpha1.ComponentType, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	out := make([]*meta.Type, 0, len(sorted))
	for i := range sorted {
		t, err := Type(&sorted[i])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Containment builds the root scope profile of a container. Nested scopes
// catalog the types they list; the root catalogs the rest.
func Containment(spec composerv1alpha1.ScopeSpec, types []*meta.Type) (meta.ContainmentProfile, error) {
	byName := make(map[string]*meta.Type, len(types))
	for _, t := range types {
		byName[t.Name] = t
	}
	claimed := map[string]bool{}
	if err := claim(spec.Containers, byName, claimed); err != nil {
		return meta.ContainmentProfile{}, err
	}

	var rootTypes []*meta.Type
	for _, t := range types {
		if !claimed[t.Name] {
			rootTypes = append(rootTypes, t)
		}
	}
	return scope(spec, rootTypes, byName, meta.ModeExplicit)
}

func claim(scopes []composerv1alpha1.ScopeSpec, byName map[string]*meta.Type, claimed map[string]bool) error {
	for _, s := range scopes {
		for _, name := range s.Types {
			if _, ok := byName[name]; !ok {
				return fmt.Errorf("%w: %s (scope %s)", ErrUnknownType, name, s.Name)
			}
			if claimed[name] {
				return fmt.Errorf("%w: type %s is listed by more than one scope", ErrInvalid, name)
			}
			claimed[name] = true
		}
		if err := claim(s.Containers, byName, claimed); err != nil {
			return err
		}
	}
	return nil
}

func scope(spec composerv1alpha1.ScopeSpec, types []*meta.Type, byName map[string]*meta.Type, mode meta.Mode) (meta.ContainmentProfile, error) {
	cp := meta.ContainmentProfile{
		Name:  spec.Name,
		Mode:  mode,
		Types: types,
	}
	for _, ps := range spec.Components {
		p, err := Profile(ps, meta.ModeExplicit)
		if err != nil {
			return cp, err
		}
		cp.Components = append(cp.Components, p)
	}
	for _, child := range spec.Containers {
		if child.Name == "" {
			return cp, fmt.Errorf("%w: nested scope needs a name", ErrInvalid)
		}
		local := make([]*meta.Type, 0, len(child.Types))
		for _, name := range child.Types {
			local = append(local, byName[name])
		}
		nested, err := scope(child, local, byName, meta.ModeExplicit)
		if err != nil {
			return cp, fmt.Errorf("scope %s: %w", child.Name, err)
		}
		cp.Containers = append(cp.Containers, nested)
	}
	for _, e := range spec.Exports {
		svc, err := service(e.Service)
		if err != nil {
			return cp, fmt.Errorf("%w: export: %v", ErrInvalid, err)
		}
		if e.Path == "" {
			return cp, fmt.Errorf("%w: export of %s needs a path", ErrInvalid, svc)
		}
		cp.Exports = append(cp.Exports, meta.ExportDirective{Service: svc, Path: e.Path})
	}
	return cp, nil
}
