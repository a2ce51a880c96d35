// Package graph orders deployment models so that every provider comes before
// the models that consume it.
//
// Nodes are identified by qualified model name. Insertion order is kept so
// that independent models commission in declaration order.
package graph

import (
	"fmt"
	"strings"
)

// CycleError reports a provider cycle. Cycle lists the names along the loop,
// with the first name repeated at the end.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("provider cycle: %s", strings.Join(e.Cycle, " -> "))
}

// DependencyGraph records which models consume which providers.
type DependencyGraph struct {
	order     []string
	providers map[string][]string
}

func New() *DependencyGraph {
	return &DependencyGraph{providers: map[string][]string{}}
}

// AddNode adds name if it is not already present.
func (g *DependencyGraph) AddNode(name string) {
	if _, ok := g.providers[name]; ok {
		return
	}
	g.order = append(g.order, name)
	g.providers[name] = nil
}

// AddEdge records that consumer depends on provider. Missing nodes are
// added. Duplicate edges are ignored.
func (g *DependencyGraph) AddEdge(consumer, provider string) {
	g.AddNode(consumer)
	g.AddNode(provider)
	for _, p := range g.providers[consumer] {
		if p == provider {
			return
		}
	}
	g.providers[consumer] = append(g.providers[consumer], provider)
}

// Order returns every node with providers ahead of their consumers. Ties keep
// insertion order. A cycle yields a *CycleError.
func (g *DependencyGraph) Order() ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.order))
	out := make([]string, 0, len(g.order))
	var stack []string

	var visit func(n string) error
	visit = func(n string) error {
		switch state[n] {
		case done:
			return nil
		case visiting:
			return &CycleError{Cycle: cycleFrom(stack, n)}
		}
		state[n] = visiting
		stack = append(stack, n)
		for _, p := range g.providers[n] {
			if err := visit(p); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
		out = append(out, n)
		return nil
	}

	for _, n := range g.order {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func cycleFrom(stack []string, n string) []string {
	for i, s := range stack {
		if s == n {
			cycle := append([]string(nil), stack[i:]...)
			return append(cycle, n)
		}
	}
	return []string{n, n}
}
