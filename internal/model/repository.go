package model

import (
	"fmt"

	"github.com/anvil-platform/composer/internal/meta"
)

// Repository holds the live models of one scope, in registration order, and
// delegates misses to the enclosing scope's repository.
type Repository struct {
	parent *Repository
	names  []string
	models map[string]DeploymentModel
}

func NewRepository(parent *Repository) *Repository {
	return &Repository{parent: parent, models: map[string]DeploymentModel{}}
}

func (r *Repository) Parent() *Repository { return r.parent }

// Model returns the local model registered under name.
func (r *Repository) Model(name string) (DeploymentModel, bool) {
	m, ok := r.models[name]
	return m, ok
}

// ModelForReference returns the first local model providing ref, else the
// parent's.
func (r *Repository) ModelForReference(ref meta.ReferenceDescriptor) (DeploymentModel, bool) {
	return r.first(func(m DeploymentModel) bool { return m.ProvidesReference(ref) })
}

func (r *Repository) ModelForStage(stage meta.StageDescriptor) (DeploymentModel, bool) {
	return r.first(func(m DeploymentModel) bool { return m.ProvidesStage(stage) })
}

func (r *Repository) first(match func(DeploymentModel) bool) (DeploymentModel, bool) {
	for repo := r; repo != nil; repo = repo.parent {
		for _, name := range repo.names {
			if m := repo.models[name]; match(m) {
				return m, true
			}
		}
	}
	return nil, false
}

// CandidatesForReference returns local providers of ref followed by the
// parent's. Duplicates are kept.
func (r *Repository) CandidatesForReference(ref meta.ReferenceDescriptor) []DeploymentModel {
	return r.collect(func(m DeploymentModel) bool { return m.ProvidesReference(ref) })
}

func (r *Repository) CandidatesForDependency(dep meta.DependencyDescriptor) []DeploymentModel {
	return r.CandidatesForReference(dep.Reference)
}

func (r *Repository) CandidatesForStage(stage meta.StageDescriptor) []DeploymentModel {
	return r.collect(func(m DeploymentModel) bool { return m.ProvidesStage(stage) })
}

func (r *Repository) collect(match func(DeploymentModel) bool) []DeploymentModel {
	var out []DeploymentModel
	for repo := r; repo != nil; repo = repo.parent {
		for _, name := range repo.names {
			if m := repo.models[name]; match(m) {
				out = append(out, m)
			}
		}
	}
	return out
}

// Add registers m under name. An existing registration is kept and
// ErrDuplicateName returned.
func (r *Repository) Add(name string, m DeploymentModel) error {
	if _, exists := r.models[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	r.models[name] = m
	r.names = append(r.names, name)
	return nil
}

// Remove unregisters name. It reports whether anything was removed.
func (r *Repository) Remove(name string) bool {
	if _, ok := r.models[name]; !ok {
		return false
	}
	delete(r.models, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
	return true
}

// RemoveModel unregisters m under whatever name it was added with.
func (r *Repository) RemoveModel(m DeploymentModel) bool {
	for _, name := range r.names {
		if r.models[name] == m {
			return r.Remove(name)
		}
	}
	return false
}

// Models returns the local models in registration order.
func (r *Repository) Models() []DeploymentModel {
	out := make([]DeploymentModel, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.models[name])
	}
	return out
}
