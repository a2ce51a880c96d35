// Package model holds the provider graph: component and containment models,
// their provider slots, the per-scope model repository and the assembler that
// wires every slot to a provider.
//
// Nothing in this package is safe for concurrent assembly. A scope is
// assembled from one goroutine and mutated afterwards only through its
// Commissioners.
package model

import (
	"context"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/composer/internal/meta"
)

// Kind distinguishes the two model variants.
type Kind int

const (
	KindComponent Kind = iota
	KindContainment
)

func (k Kind) String() string {
	if k == KindContainment {
		return "containment"
	}
	return "component"
}

type State int

const (
	StateUnassembled State = iota
	StateAssembled
	StateCommissioned
	StateDecommissioned
)

func (s State) String() string {
	switch s {
	case StateAssembled:
		return "assembled"
	case StateCommissioned:
		return "commissioned"
	case StateDecommissioned:
		return "decommissioned"
	default:
		return "unassembled"
	}
}

// DeploymentModel is a node of the provider graph. It is implemented only by
// *ComponentModel and *ContainmentModel.
type DeploymentModel interface {
	Name() string
	// QualifiedName is the path from the root scope, e.g. /app/cache.
	QualifiedName() string
	// Partition is the qualified name of the enclosing scope with a trailing
	// slash.
	Partition() string
	Parent() *ContainmentModel
	Kind() Kind
	Mode() meta.Mode
	CollectionPolicy() meta.CollectionPolicy
	// ActivationPolicy reports whether the model is instantiated when it is
	// commissioned rather than on first lookup.
	ActivationPolicy() bool

	// IsAssembled is computed from the provider slots on every call.
	IsAssembled() bool
	State() State
	// Providers returns the distinct models wired into this one, in
	// discovery order. It fails with ErrNotAssembled before assembly.
	Providers() ([]DeploymentModel, error)
	ProvidesReference(ref meta.ReferenceDescriptor) bool
	ProvidesStage(stage meta.StageDescriptor) bool

	Commission(ctx context.Context) error
	Decommission(ctx context.Context) error

	sealed()
}

// node carries what both model kinds share.
type node struct {
	name   string
	parent *ContainmentModel
	mode   meta.Mode
	log    logr.Logger

	mu             sync.Mutex
	commissioned   bool
	decommissioned bool
}

func (n *node) sealed() {}

func (n *node) Name() string { return n.name }

func (n *node) Parent() *ContainmentModel { return n.parent }

func (n *node) Mode() meta.Mode { return n.mode }

func (n *node) Partition() string {
	if n.parent == nil {
		return ""
	}
	p := n.parent.QualifiedName()
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (n *node) QualifiedName() string {
	if n.parent == nil {
		return "/"
	}
	return n.Partition() + n.name
}

func (n *node) lifecycle(assembled func() bool) State {
	n.mu.Lock()
	commissioned, decommissioned := n.commissioned, n.decommissioned
	n.mu.Unlock()
	switch {
	case commissioned:
		return StateCommissioned
	case decommissioned:
		return StateDecommissioned
	case assembled():
		return StateAssembled
	default:
		return StateUnassembled
	}
}

// appendUnique appends m unless it is already present.
func appendUnique(list []DeploymentModel, m DeploymentModel) []DeploymentModel {
	if m == nil {
		return list
	}
	for _, have := range list {
		if have == m {
			return list
		}
	}
	return append(list, m)
}
