package model

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/composer/internal/catalog"
	"github.com/anvil-platform/composer/internal/graph"
	"github.com/anvil-platform/composer/internal/meta"
	"github.com/anvil-platform/composer/internal/selector"
)

// Assembler wires the provider slots of the models in one scope. Models it
// materializes from packaged profiles are registered in that scope.
type Assembler struct {
	log   logr.Logger
	scope *ContainmentModel
}

// criterion describes what a slot needs.
type criterion struct {
	label string
	match func(DeploymentModel) bool
	live  func(*Repository) []DeploymentModel
	types func(*catalog.Repository) []*meta.Type
}

func referenceCriterion(ref meta.ReferenceDescriptor) criterion {
	return criterion{
		label: ref.String(),
		match: func(m DeploymentModel) bool { return m.ProvidesReference(ref) },
		live:  func(r *Repository) []DeploymentModel { return r.CandidatesForReference(ref) },
		types: func(r *catalog.Repository) []*meta.Type { return r.TypesForReference(ref, true) },
	}
}

func stageCriterion(stage meta.StageDescriptor) criterion {
	return criterion{
		label: stage.String(),
		match: func(m DeploymentModel) bool { return m.ProvidesStage(stage) },
		live:  func(r *Repository) []DeploymentModel { return r.CandidatesForStage(stage) },
		types: func(r *catalog.Repository) []*meta.Type { return r.TypesForStage(stage, true) },
	}
}

// Assemble fills every unresolved slot of m, recursively. It is a no-op for
// a model that is already assembled or already being assembled further up
// the call tree.
func (a *Assembler) Assemble(m DeploymentModel, subjects *Subjects) error {
	if subjects == nil {
		subjects = NewSubjects()
	}
	if subjects.Contains(m) || m.IsAssembled() {
		return nil
	}
	switch model := m.(type) {
	case *ContainmentModel:
		return model.Assemble(subjects)
	case *ComponentModel:
		if err := a.assembleComponent(model, subjects); err != nil {
			return err
		}
		a.log.V(1).Info("assembled", "model", model.QualifiedName())
	}
	return nil
}

func (a *Assembler) assembleComponent(m *ComponentModel, subjects *Subjects) error {
	if slot := m.context; slot != nil && slot.provider == nil {
		provider, err := a.within(m, subjects, func() (DeploymentModel, error) {
			return a.find(m, slot.Path, stageCriterion(slot.Descriptor), subjects)
		})
		if err != nil {
			return &AssemblyError{Model: m.QualifiedName(), Slot: "context " + slot.Descriptor.Interface, Err: err}
		}
		slot.provider = provider
	}

	for _, slot := range m.stages {
		if slot.provider != nil {
			continue
		}
		provider, err := a.within(m, subjects, func() (DeploymentModel, error) {
			return a.find(m, slot.Path, stageCriterion(slot.Descriptor), subjects)
		})
		if err != nil {
			return &AssemblyError{Model: m.QualifiedName(), Slot: slot.Descriptor.String(), Err: err}
		}
		slot.provider = provider
	}

	for _, slot := range m.deps {
		if slot.provider != nil {
			continue
		}
		provider, err := a.within(m, subjects, func() (DeploymentModel, error) {
			return a.find(m, slot.Path, referenceCriterion(slot.Descriptor.Reference), subjects)
		})
		if err != nil {
			var cycle *graph.CycleError
			if slot.Descriptor.Optional && !errors.As(err, &cycle) {
				a.log.V(1).Info("optional dependency left unresolved",
					"model", m.QualifiedName(), "key", slot.Descriptor.Key, "reason", err.Error())
				continue
			}
			return &AssemblyError{Model: m.QualifiedName(), Slot: slot.Descriptor.String(), Err: err}
		}
		slot.provider = provider
	}
	return nil
}

// within runs fn with m pushed onto subjects.
func (a *Assembler) within(m DeploymentModel, subjects *Subjects, fn func() (DeploymentModel, error)) (DeploymentModel, error) {
	subjects.Push(m)
	defer subjects.Pop()
	return fn()
}

// find locates a provider for c: an explicit path first, then a live model
// of the scope chain, then a new model built from a packaged profile.
func (a *Assembler) find(m *ComponentModel, path string, c criterion, subjects *Subjects) (DeploymentModel, error) {
	if path != "" {
		target, err := m.Parent().Resolve(path)
		if err != nil {
			return nil, err
		}
		if !c.match(target) {
			return nil, fmt.Errorf("%w: %s does not provide %s", ErrIllegalAddress, target.QualifiedName(), c.label)
		}
		if subjects.Contains(target) {
			return nil, &graph.CycleError{Cycle: append(subjects.Trail(target), target.QualifiedName())}
		}
		if err := assembleInOwner(a, target, subjects); err != nil {
			return nil, err
		}
		return target, nil
	}

	if chosen, ok := selector.Models(c.live(a.scope.models), c.match); ok {
		if subjects.Contains(chosen) {
			return nil, &graph.CycleError{Cycle: append(subjects.Trail(chosen), chosen.QualifiedName())}
		}
		if err := assembleInOwner(a, chosen, subjects); err != nil {
			return nil, err
		}
		return chosen, nil
	}

	var profiles []meta.Profile
	for _, t := range c.types(a.scope.types) {
		ps, err := a.scope.types.Profiles(t)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, ps...)
	}
	if p, ok := selector.Profiles(profiles, nil); ok {
		return a.materialize(p, c, subjects)
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, c.label)
}

func assembleInOwner(fallback *Assembler, m DeploymentModel, subjects *Subjects) error {
	if owner := m.Parent(); owner != nil {
		return owner.assembler.Assemble(m, subjects)
	}
	return fallback.Assemble(m, subjects)
}

// materialize deploys p into the scope: the model is created, assembled and
// only then registered.
func (a *Assembler) materialize(p meta.Profile, c criterion, subjects *Subjects) (DeploymentModel, error) {
	for _, s := range subjects.stack {
		if pending, ok := s.(*ComponentModel); ok && pending.parent == a.scope &&
			pending.profile.Name == p.Name && pending.typ.Classname == p.Classname {
			return nil, &graph.CycleError{Cycle: append(subjects.Trail(pending), pending.QualifiedName())}
		}
	}
	typ, err := a.scope.types.Type(p.Classname)
	if err != nil {
		return nil, err
	}
	m := newComponent(a.scope, typ, p)
	if err := a.Assemble(m, subjects); err != nil {
		return nil, fmt.Errorf("profile %s for %s: %w", p.Name, c.label, err)
	}
	if err := a.scope.models.Add(m.Name(), m); err != nil {
		return nil, fmt.Errorf("profile %s for %s: %w", p.Name, c.label, err)
	}
	a.log.V(1).Info("materialized model", "model", m.QualifiedName(), "profile", p.String())
	return m, nil
}
