package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anvil-platform/composer/internal/classes"
	"github.com/anvil-platform/composer/internal/meta"
)

// ComponentModel is a leaf deployment of one type under one profile.
type ComponentModel struct {
	node

	typ        *meta.Type
	profile    meta.Profile
	collection meta.CollectionPolicy
	activation bool

	context *ContextSlot
	stages  []*StageSlot
	deps    []*DependencySlot

	instance any
}

func newComponent(parent *ContainmentModel, typ *meta.Type, profile meta.Profile) *ComponentModel {
	log := parent.log.WithName(profile.Name)
	m := &ComponentModel{
		node: node{
			name:   profile.Name,
			parent: parent,
			mode:   profile.Mode,
			log:    log,
		},
		typ:     typ,
		profile: profile,
	}
	m.collection = collectionPolicy(m, typ, profile)
	m.activation = activationPolicy(typ, profile)

	if typ.Context.Staged() {
		m.context = &ContextSlot{
			Descriptor: typ.Context.Delivery.Stage(),
			Path:       profile.ContextPath,
		}
	}
	for _, s := range typ.Stages {
		m.stages = append(m.stages, &StageSlot{Descriptor: s, Path: profile.StagePath(s.Key)})
	}
	for _, d := range typ.Dependencies {
		m.deps = append(m.deps, &DependencySlot{Descriptor: d, Path: profile.DependencyPath(d.Key)})
	}
	return m
}

// collectionPolicy applies the profile override unless it would lower the
// type's minimum.
func collectionPolicy(m *ComponentModel, typ *meta.Type, profile meta.Profile) meta.CollectionPolicy {
	switch {
	case profile.Collection == meta.CollectionUndefined:
		return typ.Collection
	case typ.Collection != meta.CollectionUndefined && profile.Collection < typ.Collection:
		m.log.Info("ignoring collection policy below type minimum",
			"requested", profile.Collection.String(), "minimum", typ.Collection.String())
		return typ.Collection
	default:
		return profile.Collection
	}
}

func activationPolicy(typ *meta.Type, profile meta.Profile) bool {
	switch profile.Activation {
	case meta.ActivationEnabled:
		return true
	case meta.ActivationDisabled:
		return false
	}
	return profile.Mode == meta.ModeExplicit && typ.Lifestyle != meta.LifestyleTransient
}

func (m *ComponentModel) Kind() Kind { return KindComponent }

func (m *ComponentModel) Type() *meta.Type { return m.typ }

func (m *ComponentModel) Profile() meta.Profile { return m.profile }

func (m *ComponentModel) CollectionPolicy() meta.CollectionPolicy { return m.collection }

func (m *ComponentModel) ActivationPolicy() bool { return m.activation }

// DeploymentTimeout is the commission deadline declared by the type.
func (m *ComponentModel) DeploymentTimeout() time.Duration { return m.typ.DeploymentTimeout() }

// ContextSlot returns nil unless the type uses staged context delivery.
func (m *ComponentModel) ContextSlot() *ContextSlot { return m.context }

func (m *ComponentModel) StageSlots() []*StageSlot { return m.stages }

func (m *ComponentModel) DependencySlots() []*DependencySlot { return m.deps }

func (m *ComponentModel) IsAssembled() bool {
	if m.context != nil && m.context.provider == nil {
		return false
	}
	for _, s := range m.stages {
		if s.provider == nil {
			return false
		}
	}
	for _, d := range m.deps {
		if d.Descriptor.IsRequired() && d.provider == nil {
			return false
		}
	}
	return true
}

func (m *ComponentModel) State() State { return m.lifecycle(m.IsAssembled) }

func (m *ComponentModel) Providers() ([]DeploymentModel, error) {
	if !m.IsAssembled() {
		return nil, fmt.Errorf("%w: %s", ErrNotAssembled, m.QualifiedName())
	}
	var out []DeploymentModel
	if m.context != nil {
		out = appendUnique(out, m.context.provider)
	}
	for _, s := range m.stages {
		out = appendUnique(out, s.provider)
	}
	for _, d := range m.deps {
		out = appendUnique(out, d.provider)
	}
	return out, nil
}

func (m *ComponentModel) ProvidesReference(ref meta.ReferenceDescriptor) bool {
	_, ok := m.typ.Service(ref)
	return ok
}

func (m *ComponentModel) ProvidesStage(stage meta.StageDescriptor) bool {
	return m.typ.Extension(stage)
}

// Commission marks the model live. Models with a startup activation policy
// are instantiated now when the scope has a class loader.
func (m *ComponentModel) Commission(ctx context.Context) error {
	if !m.IsAssembled() {
		return fmt.Errorf("%w: %s", ErrNotAssembled, m.QualifiedName())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commissioned {
		return nil
	}
	m.commissioned = true
	m.decommissioned = false
	if m.activation && m.parent.env.loader != nil {
		if _, err := m.instantiate(ctx); err != nil {
			m.commissioned = false
			return err
		}
	}
	m.log.V(1).Info("commissioned", "instantiated", m.instance != nil)
	return nil
}

// Decommission releases the instance, if any, and marks the model
// decommissioned.
func (m *ComponentModel) Decommission(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.commissioned {
		return nil
	}
	var errs []error
	if inst := m.instance; inst != nil {
		if m.typ.Has(meta.CapabilityStoppable) {
			if s, ok := inst.(classes.Stopper); ok {
				if err := s.Stop(ctx); err != nil {
					errs = append(errs, fmt.Errorf("stop %s: %w", m.QualifiedName(), err))
				}
			}
		}
		errs = append(errs, m.destroyStages(ctx, inst, len(m.stages)))
		m.instance = nil
	}
	m.commissioned = false
	m.decommissioned = true
	m.log.V(1).Info("decommissioned")
	return errors.Join(errs...)
}

// Instance returns the live instance, creating it on first use for models
// that activate on demand.
func (m *ComponentModel) Instance(ctx context.Context) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.instance != nil {
		return m.instance, nil
	}
	if !m.commissioned {
		return nil, fmt.Errorf("%w: %s", ErrNotCommissioned, m.QualifiedName())
	}
	return m.instantiate(ctx)
}

// instantiate must be called with m.mu held.
func (m *ComponentModel) instantiate(ctx context.Context) (any, error) {
	loader := m.parent.env.loader
	if loader == nil {
		return nil, fmt.Errorf("%w: %s: no class loader", classes.ErrClassNotFound, m.typ.Classname)
	}
	handle, err := loader.Resolve(m.typ.Classname, m.Partition())
	if err != nil {
		return nil, err
	}

	var params map[string]string
	if m.typ.Has(meta.CapabilityParameterizable) {
		params = m.profile.Parameters
		if params == nil {
			params = map[string]string{}
		}
	}
	inst, err := handle.New(classes.NewContext(classes.ContextOptions{
		Name:       m.name,
		Partition:  m.Partition(),
		Logger:     m.log,
		Parameters: params,
		Entries:    m.profile.Context,
		Lookup:     func(key string) (any, error) { return m.lookup(ctx, key) },
	}))
	if err != nil {
		return nil, err
	}

	if err := m.deliverContext(ctx, inst); err != nil {
		return nil, err
	}
	for i, s := range m.stages {
		handler, err := stageHandler(ctx, s.provider)
		if err == nil {
			err = handler.Create(ctx, s.Descriptor.Key, inst)
		}
		if err != nil {
			_ = m.destroyStages(ctx, inst, i)
			return nil, fmt.Errorf("%s of %s: %w", s.Descriptor, m.QualifiedName(), err)
		}
	}
	if m.typ.Has(meta.CapabilityStartable) {
		if s, ok := inst.(classes.Starter); ok {
			if err := s.Start(ctx); err != nil {
				_ = m.destroyStages(ctx, inst, len(m.stages))
				return nil, fmt.Errorf("start %s: %w", m.QualifiedName(), err)
			}
		}
	}
	m.instance = inst
	m.log.V(1).Info("instantiated", "class", handle.Name())
	return inst, nil
}

func (m *ComponentModel) deliverContext(ctx context.Context, inst any) error {
	entries := m.profile.Context
	switch m.typ.Context.Delivery.Kind {
	case meta.DeliveryStandard:
		if c, ok := inst.(classes.Contextualizable); ok {
			return c.Contextualize(entries)
		}
		if m.typ.Has(meta.CapabilityContextualizable) {
			return fmt.Errorf("%s declares contextualizable but does not implement it", m.typ.Classname)
		}
	case meta.DeliveryStaged:
		provider, err := instanceOf(ctx, m.context.provider, nil)
		if err != nil {
			return err
		}
		handler, ok := provider.(classes.ContextHandler)
		if !ok {
			return fmt.Errorf("context provider %s cannot deliver context", m.context.provider.QualifiedName())
		}
		return handler.Deliver(ctx, inst, entries)
	}
	return nil
}

// destroyStages reverses the first n stages.
func (m *ComponentModel) destroyStages(ctx context.Context, inst any, n int) error {
	var errs []error
	for i := n - 1; i >= 0; i-- {
		s := m.stages[i]
		handler, err := stageHandler(ctx, s.provider)
		if err == nil {
			err = handler.Destroy(ctx, s.Descriptor.Key, inst)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *ComponentModel) lookup(ctx context.Context, key string) (any, error) {
	for _, d := range m.deps {
		if d.Descriptor.Key != key {
			continue
		}
		if d.provider == nil {
			if d.Descriptor.Optional {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %s has no provider for %q", ErrNotAssembled, m.QualifiedName(), key)
		}
		ref := d.Descriptor.Reference
		return instanceOf(ctx, d.provider, &ref)
	}
	return nil, fmt.Errorf("%w: %s", classes.ErrNoSuchEntry, key)
}

func stageHandler(ctx context.Context, provider DeploymentModel) (classes.StageHandler, error) {
	inst, err := instanceOf(ctx, provider, nil)
	if err != nil {
		return nil, err
	}
	handler, ok := inst.(classes.StageHandler)
	if !ok {
		return nil, fmt.Errorf("extension provider %s cannot handle stages", provider.QualifiedName())
	}
	return handler, nil
}

// instanceOf returns the instance behind a provider. Containments serve
// references through their exports.
func instanceOf(ctx context.Context, provider DeploymentModel, ref *meta.ReferenceDescriptor) (any, error) {
	switch p := provider.(type) {
	case *ComponentModel:
		return p.Instance(ctx)
	case *ContainmentModel:
		if ref == nil {
			return nil, fmt.Errorf("%w: containment %s serves only exported services", ErrIllegalAddress, p.QualifiedName())
		}
		inner, err := p.Exported(*ref)
		if err != nil {
			return nil, err
		}
		return instanceOf(ctx, inner, ref)
	}
	return nil, fmt.Errorf("%w: no provider", ErrProviderNotFound)
}
