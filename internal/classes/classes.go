// Package classes resolves implementation names to constructors within a
// scope, and defines the contracts instances may implement to take part in
// the component lifecycle.
package classes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrClassNotFound = errors.New("class not found")

// Factory builds one instance. The context carries dependencies, parameters
// and context entries.
type Factory func(ctx *Context) (any, error)

// Handle is a resolved implementation.
type Handle interface {
	Name() string
	New(ctx *Context) (any, error)
}

// Loader resolves an implementation name within a scope.
type Loader interface {
	Resolve(name, scope string) (Handle, error)
}

// GlobalScope is consulted when a scope does not register a name itself.
const GlobalScope = ""

// Registry is an in-process Loader keyed by scope then name.
type Registry struct {
	mu     sync.RWMutex
	scopes map[string]map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{scopes: map[string]map[string]Factory{}}
}

// Register binds name to f in scope, replacing any earlier binding.
func (r *Registry) Register(scope, name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names, ok := r.scopes[scope]
	if !ok {
		names = map[string]Factory{}
		r.scopes[scope] = names
	}
	names[name] = f
}

func (r *Registry) Resolve(name, scope string) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.scopes[scope][name]; ok {
		return handle{name: name, factory: f}, nil
	}
	if f, ok := r.scopes[GlobalScope][name]; ok {
		return handle{name: name, factory: f}, nil
	}
	return nil, fmt.Errorf("%w: %s in scope %q", ErrClassNotFound, name, scope)
}

// Names lists the names visible from scope, sorted.
func (r *Registry) Names(scope string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	for _, s := range []string{scope, GlobalScope} {
		for n := range r.scopes[s] {
			seen[n] = true
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type handle struct {
	name    string
	factory Factory
}

func (h handle) Name() string { return h.name }

func (h handle) New(ctx *Context) (any, error) {
	inst, err := h.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", h.name, err)
	}
	return inst, nil
}

// Starter is implemented by instances of startable types.
type Starter interface {
	Start(ctx context.Context) error
}

// Stopper is implemented by instances of stoppable types.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Contextualizable receives its context entries directly.
type Contextualizable interface {
	Contextualize(entries map[string]string) error
}

// StageHandler is implemented by extension providers. Create runs after the
// consumer is instantiated, Destroy before it is released.
type StageHandler interface {
	Create(ctx context.Context, stage string, instance any) error
	Destroy(ctx context.Context, stage string, instance any) error
}

// ContextHandler delivers context entries on behalf of a consumer with
// staged delivery.
type ContextHandler interface {
	Deliver(ctx context.Context, instance any, entries map[string]string) error
}
