package classes

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
)

var ErrNoSuchEntry = errors.New("no such entry")

// LookupFunc returns the provider instance bound to a dependency key.
type LookupFunc func(key string) (any, error)

// Context is handed to a Factory.
type Context struct {
	Name      string
	Partition string
	Logger    logr.Logger

	parameters map[string]string
	entries    map[string]string
	lookup     LookupFunc
}

// ContextOptions configures NewContext. Parameters should be nil for types
// that are not parameterizable.
type ContextOptions struct {
	Name       string
	Partition  string
	Logger     logr.Logger
	Parameters map[string]string
	Entries    map[string]string
	Lookup     LookupFunc
}

func NewContext(opts ContextOptions) *Context {
	return &Context{
		Name:       opts.Name,
		Partition:  opts.Partition,
		Logger:     opts.Logger,
		parameters: opts.Parameters,
		entries:    opts.Entries,
		lookup:     opts.Lookup,
	}
}

// Lookup returns the provider instance for a dependency key. Optional
// dependencies without a provider yield (nil, nil).
func (c *Context) Lookup(key string) (any, error) {
	if c.lookup == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchEntry, key)
	}
	return c.lookup(key)
}

// Parameters returns a copy of the parameters, or nil if the type does not
// accept any.
func (c *Context) Parameters() map[string]string {
	if c.parameters == nil {
		return nil
	}
	out := make(map[string]string, len(c.parameters))
	for k, v := range c.parameters {
		out[k] = v
	}
	return out
}

func (c *Context) Parameter(key string) (string, bool) {
	v, ok := c.parameters[key]
	return v, ok
}

func (c *Context) Entry(key string) (string, bool) {
	v, ok := c.entries[key]
	return v, ok
}

// Entries returns a copy of the context entries.
func (c *Context) Entries() map[string]string {
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
