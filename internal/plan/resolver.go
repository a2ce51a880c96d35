// Package plan assembles a container's provider graph and reports the result
// as a plan: deployed models, slot bindings, diagnostics and commission
// order.
package plan

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/composer/internal/descriptor"
	"github.com/anvil-platform/composer/internal/model"
)

// Resolver computes a Plan for a given Input.
type Resolver interface {
	Resolve(ctx context.Context, in Input) (Plan, error)
}

// DefaultResolver builds the root scope from the descriptors and assembles
// it. The options are passed to every root it builds.
type DefaultResolver struct {
	log  logr.Logger
	opts []model.Option
}

func NewDefault(log logr.Logger, opts ...model.Option) *DefaultResolver {
	return &DefaultResolver{log: log, opts: opts}
}

// Resolve returns a plan even when assembly fails, so that callers can
// report what was wired and what was not. The returned error is then the
// assembly error.
func (r *DefaultResolver) Resolve(ctx context.Context, in Input) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}
	p := Plan{Container: in.Container.Name}

	types, err := descriptor.Types(in.Types)
	if err != nil {
		return p, err
	}
	profile, err := descriptor.Containment(in.Container.Spec.ScopeSpec, types)
	if err != nil {
		return p, fmt.Errorf("container %s: %w", in.Container.Name, err)
	}
	root, err := model.NewRoot(r.log.WithName(in.Container.Name), profile, nil, r.opts...)
	if err != nil {
		return p, fmt.Errorf("container %s: %w", in.Container.Name, err)
	}
	p.Root = root

	assembleErr := root.Assemble(model.NewSubjects())
	p.collect(assembleErr)
	if assembleErr != nil {
		return p, assembleErr
	}

	p.Order, err = Order(root)
	if err != nil {
		return p, err
	}
	r.log.V(1).Info("container assembled", "container", in.Container.Name,
		"models", len(p.Models), "bindings", len(p.Bindings),
		"unresolvedOptional", len(p.Diagnostics.UnresolvedOptional))
	return p, nil
}

// Order flattens the commission order of root: each scope's children in
// provider order, a nested scope's own children ahead of the scope itself.
func Order(root *model.ContainmentModel) ([]string, error) {
	var out []string
	var visit func(c *model.ContainmentModel) error
	visit = func(c *model.ContainmentModel) error {
		order, err := c.CommissionOrder()
		if err != nil {
			return err
		}
		for _, m := range order {
			if nested, ok := m.(*model.ContainmentModel); ok {
				if err := visit(nested); err != nil {
					return err
				}
			}
			out = append(out, m.QualifiedName())
		}
		return nil
	}
	if err := visit(root); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot lists every model below root with its current state.
func Snapshot(root *model.ContainmentModel) []Model {
	var out []Model
	_ = model.Walk(root, func(m model.DeploymentModel) error {
		if m == model.DeploymentModel(root) {
			return nil
		}
		entry := Model{
			Path:  m.QualifiedName(),
			Kind:  m.Kind().String(),
			Mode:  string(m.Mode()),
			State: m.State().String(),
		}
		if c, ok := m.(*model.ComponentModel); ok {
			entry.Type = c.Type().Classname
		}
		out = append(out, entry)
		return nil
	})
	return out
}

func (p *Plan) collect(assembleErr error) {
	reasons := failures(assembleErr)
	p.Models = Snapshot(p.Root)

	_ = model.Walk(p.Root, func(m model.DeploymentModel) error {
		c, ok := m.(*model.ComponentModel)
		if !ok {
			return nil
		}
		consumer := c.QualifiedName()
		if slot := c.ContextSlot(); slot != nil {
			p.bind(consumer, "context", slot.Provider(), true, slot.Descriptor.Interface, "", reasons)
		}
		for _, slot := range c.StageSlots() {
			p.bind(consumer, "stage/"+slot.Descriptor.Key, slot.Provider(), true, slot.Descriptor.Interface, "", reasons)
		}
		for _, slot := range c.DependencySlots() {
			p.bind(consumer, "dependency/"+slot.Descriptor.Key, slot.Provider(), slot.Descriptor.IsRequired(),
				slot.Descriptor.Reference.String(), served(slot), reasons)
		}
		return nil
	})

	sort.SliceStable(p.Bindings, func(i, j int) bool {
		if p.Bindings[i].Consumer != p.Bindings[j].Consumer {
			return p.Bindings[i].Consumer < p.Bindings[j].Consumer
		}
		return p.Bindings[i].Slot < p.Bindings[j].Slot
	})
}

func (p *Plan) bind(consumer, slot string, provider model.DeploymentModel, required bool, service, served string, reasons map[string]string) {
	if provider != nil {
		p.Bindings = append(p.Bindings, Binding{Consumer: consumer, Slot: slot, Provider: provider.QualifiedName(), Service: served})
		return
	}
	u := Unresolved{Consumer: consumer, Slot: slot, Service: service, Reason: "no compatible provider found"}
	if !required {
		p.Diagnostics.UnresolvedOptional = append(p.Diagnostics.UnresolvedOptional, u)
		return
	}
	if reason, ok := reasons[consumer]; ok {
		u.Reason = reason
	} else {
		u.Reason = "not assembled"
	}
	p.Diagnostics.UnresolvedRequired = append(p.Diagnostics.UnresolvedRequired, u)
}

// served names the service a component provider fills slot with.
func served(slot *model.DependencySlot) string {
	provider, ok := slot.Provider().(*model.ComponentModel)
	if !ok {
		return ""
	}
	svc, ok := provider.Type().Service(slot.Descriptor.Reference)
	if !ok {
		return ""
	}
	return svc.String()
}

// failures maps each model named by an AssemblyError in the chain to the
// cause reported for it.
func failures(err error) map[string]string {
	out := map[string]string{}
	for err != nil {
		var ae *model.AssemblyError
		if !errors.As(err, &ae) {
			break
		}
		if _, seen := out[ae.Model]; !seen {
			out[ae.Model] = ae.Err.Error()
		}
		err = ae.Err
	}
	return out
}
