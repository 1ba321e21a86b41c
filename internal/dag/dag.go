// Package dag provides a small, concurrency-safe dependency graph keyed by
// string IDs. The config package uses it to reject cyclic needs references
// and the executor uses it to order job instances.
package dag

import (
	"fmt"
	"sort"
	"sync"
)

// Graph is a collection of nodes and directed dependency edges.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

// node is a single vertex. It is un-exported to force interaction through
// the string-ID API rather than direct struct manipulation.
type node struct {
	id         string
	deps       map[string]*node
	dependents map[string]*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddNode adds a node with the given ID. Adding an existing ID is a no-op.
func (g *Graph) AddNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// AddEdge records that toID depends on fromID. It errors on unknown nodes
// and self-references.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s", fromID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	to.deps[fromID] = from
	from.dependents[toID] = to
	return nil
}

// Dependencies returns the sorted IDs the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.deps), nil
}

// Dependents returns the sorted IDs that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(n.dependents), nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// DetectCycles returns a non-nil error if the graph contains a cycle,
// naming the first node found inside one.
func (g *Graph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Classic depth-first search with a recursion-stack set (visiting) and
	// a permanent set (visited).
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		visiting[n.id] = true
		for _, dep := range n.deps {
			if visiting[dep.id] {
				return fmt.Errorf("cycle detected involving %q", dep.id)
			}
			if !visited[dep.id] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, n.id)
		visited[n.id] = true
		return nil
	}

	for _, n := range g.nodes {
		if !visited[n.id] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// sortedKeys keeps the traversal order of the graph deterministic; map
// iteration order would leak into scheduling otherwise.
func sortedKeys(m map[string]*node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
