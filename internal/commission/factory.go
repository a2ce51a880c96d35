package commission

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"
)

// Factory creates Commissioners that share a logger and listeners, and
// names them from its own counter.
type Factory struct {
	log       logr.Logger
	listeners []Listener

	mu      sync.Mutex
	counter int
}

func NewFactory(log logr.Logger, listeners ...Listener) *Factory {
	return &Factory{log: log, listeners: listeners}
}

// AddListener registers l for Commissioners created afterwards.
func (f *Factory) AddListener(l Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, l)
}

// New starts a Commissioner named <scope>-commissioner-<n>.
func (f *Factory) New(scope string, direction Direction) *Commissioner {
	f.mu.Lock()
	f.counter++
	name := fmt.Sprintf("%s-commissioner-%d", scope, f.counter)
	listeners := append([]Listener(nil), f.listeners...)
	f.mu.Unlock()

	return New(name, direction,
		WithLogger(f.log.WithName("commissioner")),
		WithListeners(listeners...),
	)
}
