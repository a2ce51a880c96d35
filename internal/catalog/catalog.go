// Package catalog is the type repository: the set of component types known
// to one containment scope, with misses delegated to the enclosing scope.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/composer/internal/meta"
)

var (
	ErrTypeUnknown    = errors.New("type unknown")
	ErrProfileUnknown = errors.New("profile unknown")
	ErrDuplicateType  = errors.New("duplicate type")
)

// Repository catalogs types by classname. It is immutable after New and safe
// to share between scopes.
type Repository struct {
	log    logr.Logger
	parent *Repository
	types  []*meta.Type
	index  map[string]*meta.Type
}

// New catalogs types in the given order. A nil parent makes this a root
// repository whose misses are terminal.
func New(log logr.Logger, parent *Repository, types []*meta.Type) (*Repository, error) {
	r := &Repository{
		log:    log,
		parent: parent,
		types:  make([]*meta.Type, 0, len(types)),
		index:  make(map[string]*meta.Type, len(types)),
	}
	for _, t := range types {
		if t == nil {
			continue
		}
		if _, exists := r.index[t.Classname]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, t.Classname)
		}
		r.index[t.Classname] = t
		r.types = append(r.types, t)
		log.V(1).Info("cataloged type", "type", t.Classname, "profiles", len(t.Profiles))
	}
	log.V(1).Info("type repository ready", "types", len(r.types), "root", parent == nil)
	return r, nil
}

func (r *Repository) Parent() *Repository { return r.parent }

// Type returns the type with the given classname, searching ancestors on a
// local miss.
func (r *Repository) Type(classname string) (*meta.Type, error) {
	for repo := r; repo != nil; repo = repo.parent {
		if t, ok := repo.index[classname]; ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTypeUnknown, classname)
}

// Types returns the local types, followed by the ancestors' when search is set.
func (r *Repository) Types(search bool) []*meta.Type {
	return r.collect(search, func(*meta.Type) bool { return true })
}

// TypesForReference returns types producing a service that satisfies ref.
// Local matches come first; ancestor matches are appended without removing
// duplicates.
func (r *Repository) TypesForReference(ref meta.ReferenceDescriptor, search bool) []*meta.Type {
	return r.collect(search, func(t *meta.Type) bool {
		_, ok := t.Service(ref)
		return ok
	})
}

func (r *Repository) TypesForDependency(dep meta.DependencyDescriptor, search bool) []*meta.Type {
	return r.TypesForReference(dep.Reference, search)
}

// TypesForStage returns types declaring an extension for stage.
func (r *Repository) TypesForStage(stage meta.StageDescriptor, search bool) []*meta.Type {
	return r.collect(search, func(t *meta.Type) bool { return t.Extension(stage) })
}

func (r *Repository) collect(search bool, match func(*meta.Type) bool) []*meta.Type {
	var out []*meta.Type
	for _, t := range r.types {
		if match(t) {
			out = append(out, t)
		}
	}
	if search && r.parent != nil {
		out = append(out, r.parent.collect(true, match)...)
	}
	return out
}

// Profiles returns the packaged profiles of t. A type that packages none
// yields a single implicit profile.
func (r *Repository) Profiles(t *meta.Type) ([]meta.Profile, error) {
	if _, err := r.known(t); err != nil {
		return nil, err
	}
	if len(t.Profiles) == 0 {
		return []meta.Profile{Implicit(t)}, nil
	}
	out := make([]meta.Profile, 0, len(t.Profiles))
	for _, p := range t.Profiles {
		p.Mode = meta.ModePackaged
		if p.Classname == "" {
			p.Classname = t.Classname
		}
		out = append(out, p)
	}
	return out, nil
}

// Profile returns the profile of t named key.
func (r *Repository) Profile(t *meta.Type, key string) (meta.Profile, error) {
	profiles, err := r.Profiles(t)
	if err != nil {
		return meta.Profile{}, err
	}
	for _, p := range profiles {
		if p.Name == key {
			return p, nil
		}
	}
	return meta.Profile{}, fmt.Errorf("%w: %s in %s", ErrProfileUnknown, key, t.Classname)
}

// Expand resolves a profile's template. A profile without a template is
// returned unchanged. Otherwise the packaged profile named by the template
// supplies every field the profile leaves empty; parameters and context
// entries are merged with the profile's own values winning.
func (r *Repository) Expand(p meta.Profile) (meta.Profile, error) {
	if p.Template == "" {
		return p, nil
	}
	t, err := r.Type(p.Classname)
	if err != nil {
		return meta.Profile{}, err
	}
	base, err := r.Profile(t, p.Template)
	if err != nil {
		return meta.Profile{}, err
	}

	out := base
	out.Name = p.Name
	out.Mode = p.Mode
	out.Template = ""
	if p.Activation != meta.ActivationDefault {
		out.Activation = p.Activation
	}
	if p.Collection != meta.CollectionUndefined {
		out.Collection = p.Collection
	}
	out.Parameters = overlay(base.Parameters, p.Parameters)
	out.Context = overlay(base.Context, p.Context)
	if p.ContextPath != "" {
		out.ContextPath = p.ContextPath
	}
	out.Dependencies = overlayDirectives(base.Dependencies, p.Dependencies)
	out.Stages = overlayDirectives(base.Stages, p.Stages)
	return out, nil
}

func (r *Repository) known(t *meta.Type) (*meta.Type, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: <nil>", ErrTypeUnknown)
	}
	return r.Type(t.Classname)
}

// Implicit synthesizes the profile used for a type that bundles none.
func Implicit(t *meta.Type) meta.Profile {
	return meta.Profile{
		Name:      shortName(t),
		Classname: t.Classname,
		Mode:      meta.ModeImplicit,
	}
}

func shortName(t *meta.Type) string {
	if t.Name != "" {
		return t.Name
	}
	name := t.Classname
	if i := strings.LastIndexAny(name, "./"); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

func overlay(base, top map[string]string) map[string]string {
	if len(base) == 0 && len(top) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}

func overlayDirectives(base, top []meta.Directive) []meta.Directive {
	out := append([]meta.Directive(nil), base...)
	for _, d := range top {
		replaced := false
		for i := range out {
			if out[i].Key == d.Key {
				out[i] = d
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, d)
		}
	}
	return out
}
