package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/composer/internal/catalog"
	"github.com/anvil-platform/composer/internal/classes"
	"github.com/anvil-platform/composer/internal/commission"
	"github.com/anvil-platform/composer/internal/graph"
	"github.com/anvil-platform/composer/internal/meta"
)

// environment is shared by every scope under one root.
type environment struct {
	loader  classes.Loader
	factory *commission.Factory
}

type Option func(*environment)

// WithLoader lets components be instantiated when commissioned.
func WithLoader(loader classes.Loader) Option {
	return func(e *environment) { e.loader = loader }
}

// WithCommissioners sets the factory every scope takes its Commissioners
// from.
func WithCommissioners(f *commission.Factory) Option {
	return func(e *environment) { e.factory = f }
}

// ContainmentModel is a scope: it owns child models, a model repository and
// a type repository, and assembles and commissions its children.
type ContainmentModel struct {
	node

	profile   meta.ContainmentProfile
	env       *environment
	types     *catalog.Repository
	models    *Repository
	assembler *Assembler

	commissioner   *commission.Commissioner
	decommissioner *commission.Commissioner
	live           []DeploymentModel
}

// NewRoot builds the root scope described by profile. types, when not nil,
// is the enclosing catalog the root's own types delegate to.
func NewRoot(log logr.Logger, profile meta.ContainmentProfile, types *catalog.Repository, opts ...Option) (*ContainmentModel, error) {
	env := &environment{}
	for _, opt := range opts {
		opt(env)
	}
	if env.factory == nil {
		env.factory = commission.NewFactory(log)
	}
	return newContainment(log, nil, profile, env, types, nil)
}

func newContainment(log logr.Logger, parent *ContainmentModel, profile meta.ContainmentProfile, env *environment, parentTypes *catalog.Repository, parentModels *Repository) (*ContainmentModel, error) {
	mode := profile.Mode
	if mode == "" {
		mode = meta.ModeExplicit
	}
	c := &ContainmentModel{
		node: node{
			name:   profile.Name,
			parent: parent,
			mode:   mode,
			log:    log,
		},
		profile: profile,
		env:     env,
		models:  NewRepository(parentModels),
	}

	types, err := catalog.New(log.WithName("types"), parentTypes, profile.Types)
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", c.QualifiedName(), err)
	}
	c.types = types
	c.assembler = &Assembler{log: log.WithName("assembly"), scope: c}

	for _, p := range profile.Components {
		if _, err := c.AddProfile(p); err != nil {
			return nil, err
		}
	}
	for _, cp := range profile.Containers {
		child, err := newContainment(log.WithName(cp.Name), c, cp, env, c.types, c.models)
		if err != nil {
			return nil, err
		}
		if err := c.models.Add(child.Name(), child); err != nil {
			return nil, fmt.Errorf("scope %s: %w", c.QualifiedName(), err)
		}
	}
	log.V(1).Info("scope created", "scope", c.QualifiedName(), "models", len(c.models.names))
	return c, nil
}

// AddProfile deploys p into this scope as an unassembled component.
func (c *ContainmentModel) AddProfile(p meta.Profile) (*ComponentModel, error) {
	expanded, err := c.types.Expand(p)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	typ, err := c.types.Type(expanded.Classname)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	if expanded.Mode == "" {
		expanded.Mode = meta.ModeExplicit
	}
	m := newComponent(c, typ, expanded)
	if err := c.models.Add(m.Name(), m); err != nil {
		return nil, fmt.Errorf("scope %s: %w", c.QualifiedName(), err)
	}
	return m, nil
}

// RemoveModel removes a child that is not commissioned.
func (c *ContainmentModel) RemoveModel(name string) error {
	m, ok := c.models.Model(name)
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrNoSuchModel, name, c.QualifiedName())
	}
	if m.State() == StateCommissioned {
		return fmt.Errorf("%w: %s", ErrCommissioned, m.QualifiedName())
	}
	c.models.Remove(name)
	return nil
}

func (c *ContainmentModel) Kind() Kind { return KindContainment }

func (c *ContainmentModel) Profile() meta.ContainmentProfile { return c.profile }

func (c *ContainmentModel) CollectionPolicy() meta.CollectionPolicy { return meta.CollectionHard }

func (c *ContainmentModel) ActivationPolicy() bool { return true }

func (c *ContainmentModel) Types() *catalog.Repository { return c.types }

func (c *ContainmentModel) Repository() *Repository { return c.models }

func (c *ContainmentModel) Assembler() *Assembler { return c.assembler }

// Models returns the children in registration order.
func (c *ContainmentModel) Models() []DeploymentModel { return c.models.Models() }

func (c *ContainmentModel) Model(name string) (DeploymentModel, bool) { return c.models.Model(name) }

// Resolve navigates an address relative to this scope.
//
//	""        this scope
//	"/a/b"    from the root
//	"../a"    from the parent
//	"./a"     from this scope
//	"a/b"     b inside the child containment a
func (c *ContainmentModel) Resolve(path string) (DeploymentModel, error) {
	switch {
	case path == "":
		return c, nil
	case strings.HasPrefix(path, "/"):
		if c.parent != nil {
			return c.parent.Resolve(path)
		}
		return c.Resolve(path[1:])
	case path == ".." || strings.HasPrefix(path, "../"):
		if c.parent == nil {
			return nil, fmt.Errorf("%w: %s from %s", ErrNoParent, path, c.QualifiedName())
		}
		return c.parent.Resolve(strings.TrimPrefix(path[2:], "/"))
	case path == "." || strings.HasPrefix(path, "./"):
		return c.Resolve(strings.TrimPrefix(path[1:], "/"))
	}

	head, rest, _ := strings.Cut(path, "/")
	m, ok := c.models.Model(head)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoSuchModel, head, c.QualifiedName())
	}
	if rest == "" {
		return m, nil
	}
	child, ok := m.(*ContainmentModel)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a containment", ErrIllegalAddress, m.QualifiedName())
	}
	return child.Resolve(rest)
}

func (c *ContainmentModel) ProvidesReference(ref meta.ReferenceDescriptor) bool {
	for _, e := range c.profile.Exports {
		if ref.Matches(e.Service) {
			return true
		}
	}
	return false
}

func (c *ContainmentModel) ProvidesStage(meta.StageDescriptor) bool { return false }

// Exported returns the inner model serving ref.
func (c *ContainmentModel) Exported(ref meta.ReferenceDescriptor) (DeploymentModel, error) {
	for _, e := range c.profile.Exports {
		if ref.Matches(e.Service) {
			return c.Resolve(e.Path)
		}
	}
	return nil, fmt.Errorf("%w: %s does not export %s", ErrProviderNotFound, c.QualifiedName(), ref)
}

func (c *ContainmentModel) IsAssembled() bool {
	for _, m := range c.models.Models() {
		if !m.IsAssembled() {
			return false
		}
	}
	return true
}

func (c *ContainmentModel) State() State { return c.lifecycle(c.IsAssembled) }

// Assemble assembles every child in registration order.
func (c *ContainmentModel) Assemble(subjects *Subjects) error {
	if subjects == nil {
		subjects = NewSubjects()
	}
	for _, m := range c.models.Models() {
		if err := c.assembler.Assemble(m, subjects); err != nil {
			return err
		}
	}
	c.log.V(1).Info("scope assembled", "scope", c.QualifiedName())
	return nil
}

// Providers returns the models outside this scope that its descendants are
// wired to.
func (c *ContainmentModel) Providers() ([]DeploymentModel, error) {
	if !c.IsAssembled() {
		return nil, fmt.Errorf("%w: %s", ErrNotAssembled, c.QualifiedName())
	}
	var out []DeploymentModel
	for _, m := range c.models.Models() {
		providers, err := m.Providers()
		if err != nil {
			return nil, err
		}
		for _, p := range providers {
			if !c.encloses(p) {
				out = appendUnique(out, p)
			}
		}
	}
	return out, nil
}

func (c *ContainmentModel) encloses(m DeploymentModel) bool {
	return c.child(m) != nil
}

// child returns the direct child of c that m is, or is nested in.
func (c *ContainmentModel) child(m DeploymentModel) DeploymentModel {
	for x := m; x != nil; {
		parent := x.Parent()
		if parent == nil {
			return nil
		}
		if parent == c {
			return x
		}
		x = parent
	}
	return nil
}

// CommissionOrder returns the children with every provider ahead of its
// consumers.
func (c *ContainmentModel) CommissionOrder() ([]DeploymentModel, error) {
	g := graph.New()
	children := c.models.Models()
	for _, m := range children {
		g.AddNode(m.Name())
	}
	for _, m := range children {
		providers, err := m.Providers()
		if err != nil {
			return nil, err
		}
		for _, p := range providers {
			if local := c.child(p); local != nil && local != m {
				g.AddEdge(m.Name(), local.Name())
			}
		}
	}
	names, err := g.Order()
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", c.QualifiedName(), err)
	}
	out := make([]DeploymentModel, 0, len(names))
	for _, n := range names {
		m, _ := c.models.Model(n)
		out = append(out, m)
	}
	return out, nil
}

func (c *ContainmentModel) workers() (*commission.Commissioner, *commission.Commissioner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commissioner == nil {
		c.commissioner = c.env.factory.New(c.QualifiedName(), commission.Commissioning)
		c.decommissioner = c.env.factory.New(c.QualifiedName(), commission.Decommissioning)
	}
	return c.commissioner, c.decommissioner
}

// Commission commissions every child, providers first, each through this
// scope's Commissioner and bounded by the child's deployment timeout. On
// failure the children already commissioned are decommissioned again.
func (c *ContainmentModel) Commission(ctx context.Context) error {
	if !c.IsAssembled() {
		return fmt.Errorf("%w: %s", ErrNotAssembled, c.QualifiedName())
	}
	c.mu.Lock()
	already := c.node.commissioned
	c.mu.Unlock()
	if already {
		return nil
	}

	order, err := c.CommissionOrder()
	if err != nil {
		return err
	}
	up, down := c.workers()

	var done []DeploymentModel
	for _, m := range order {
		err := commissionWithin(ctx, up, m)
		if err != nil {
			// m may still be in flight after its deadline; the worker takes
			// it down again before the flush returns.
			if ferr := up.Flush(context.WithoutCancel(ctx)); ferr != nil {
				c.log.Error(ferr, "waiting for in-flight commission", "model", m.QualifiedName())
			}
			for i := len(done) - 1; i >= 0; i-- {
				if _, rerr := down.Commission(context.WithoutCancel(ctx), done[i]); rerr != nil {
					c.log.Error(rerr, "rollback failed", "model", done[i].QualifiedName())
				}
			}
			return fmt.Errorf("commission %s: %w", m.QualifiedName(), err)
		}
		done = append(done, m)
	}

	c.mu.Lock()
	c.live = done
	c.node.commissioned = true
	c.node.decommissioned = false
	c.mu.Unlock()
	c.log.V(1).Info("scope commissioned", "scope", c.QualifiedName(), "models", len(done))
	return nil
}

func commissionWithin(ctx context.Context, up *commission.Commissioner, m DeploymentModel) error {
	if cm, ok := m.(*ComponentModel); ok {
		if timeout := cm.DeploymentTimeout(); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
	}
	_, err := up.Commission(ctx, m)
	return err
}

// Decommission decommissions the children in reverse commission order. Every
// child is attempted; failures are joined.
func (c *ContainmentModel) Decommission(ctx context.Context) error {
	c.mu.Lock()
	if !c.node.commissioned {
		c.mu.Unlock()
		return nil
	}
	done := c.live
	c.mu.Unlock()

	_, down := c.workers()
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		if _, err := down.Commission(ctx, done[i]); err != nil {
			errs = append(errs, fmt.Errorf("decommission %s: %w", done[i].QualifiedName(), err))
		}
	}

	c.mu.Lock()
	c.live = nil
	c.node.commissioned = false
	c.node.decommissioned = true
	c.mu.Unlock()
	c.log.V(1).Info("scope decommissioned", "scope", c.QualifiedName(), "errors", len(errs))
	return errors.Join(errs...)
}

// Dispose stops the Commissioners of this scope and every nested scope.
func (c *ContainmentModel) Dispose() {
	for _, m := range c.models.Models() {
		if child, ok := m.(*ContainmentModel); ok {
			child.Dispose()
		}
	}
	c.mu.Lock()
	up, down := c.commissioner, c.decommissioner
	c.mu.Unlock()
	if up != nil {
		up.Dispose()
		down.Dispose()
	}
}

// Walk visits m and, for containments, every descendant depth first.
func Walk(m DeploymentModel, fn func(DeploymentModel) error) error {
	if err := fn(m); err != nil {
		return err
	}
	if c, ok := m.(*ContainmentModel); ok {
		for _, child := range c.models.Models() {
			if err := Walk(child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
