package plan

import (
	composerv1alpha1 "github.com/anvil-platform/composer/api/v1alpha1"
	"github.com/anvil-platform/composer/internal/model"
)

// Input is the controller-normalized view of one container: the container
// itself and every component type in its namespace.
type Input struct {
	Container composerv1alpha1.Container
	Types     []composerv1alpha1.ComponentType
}

// Plan is the outcome of assembling a container: the models that were
// deployed, how their slots were wired, and the order they commission in.
type Plan struct {
	Container   string      `json:"container"`
	Models      []Model     `json:"models"`
	Bindings    []Binding   `json:"bindings,omitempty"`
	Order       []string    `json:"order,omitempty"`
	Diagnostics Diagnostics `json:"diagnostics"`

	// Root is the assembled scope. It is nil when the descriptors could not
	// be converted.
	Root *model.ContainmentModel `json:"-"`
}

type Model struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Mode  string `json:"mode"`
	Type  string `json:"type,omitempty"`
	State string `json:"state"`
}

// Binding records the provider wired into one consumer slot. Slot is one of
// "context", "stage/<key>" or "dependency/<key>". Service is the versioned
// service a component provider serves a dependency with.
type Binding struct {
	Consumer string `json:"consumer"`
	Slot     string `json:"slot"`
	Provider string `json:"provider"`
	Service  string `json:"service,omitempty"`
}

// Diagnostics captures human-readable information about assembly.
//
// This is useful for status/messages/events, and for logging.
type Diagnostics struct {
	UnresolvedRequired []Unresolved `json:"unresolvedRequired,omitempty"`
	UnresolvedOptional []Unresolved `json:"unresolvedOptional,omitempty"`
}

type Unresolved struct {
	Consumer string `json:"consumer"`
	Slot     string `json:"slot"`
	Service  string `json:"service"`
	Reason   string `json:"reason"`
}

// Assembled reports whether every required slot found a provider.
func (p Plan) Assembled() bool {
	return p.Root != nil && len(p.Diagnostics.UnresolvedRequired) == 0 && p.Root.IsAssembled()
}
