// Package scenegraph provides an in-memory scene host used by the simulator and tests.
package scenegraph

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coachpo/spawnpool/pkg/scene"
)

// ErrNodeNotFound is returned for operations on unknown handles.
var ErrNodeNotFound = errors.New("scenegraph: node not found")

// Node is a copy of one object in the graph.
type Node struct {
	ID        scene.ID
	Name      string
	Template  scene.ID
	Parent    scene.ID
	Transform scene.Transform
	Active    bool
	Prototype bool
}

// Stats summarises graph activity.
type Stats struct {
	Nodes     int    `json:"nodes"`
	Active    int    `json:"active"`
	Created   uint64 `json:"created"`
	Destroyed uint64 `json:"destroyed"`
}

// Graph is a goroutine-safe scene.Host and scene.Prober backed by a map.
type Graph struct {
	mu        sync.RWMutex
	nodes     map[scene.ID]*Node
	templates map[string]scene.ID
	groups    map[string]scene.ID
	created   uint64
	destroyed uint64
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		mu:        sync.RWMutex{},
		nodes:     make(map[scene.ID]*Node),
		templates: make(map[string]scene.ID),
		groups:    make(map[string]scene.ID),
		created:   0,
		destroyed: 0,
	}
}

// AddTemplate registers a named prototype. Registering the same name twice returns the first id.
func (g *Graph) AddTemplate(name string) scene.ID {
	return g.addNamed(name, true)
}

// AddNode registers a named, inactive grouping node such as a holding area. Node names are
// separate from template names, so a node never resolves to a template of the same name.
func (g *Graph) AddNode(name string) scene.ID {
	return g.addNamed(name, false)
}

func (g *Graph) addNamed(name string, prototype bool) scene.ID {
	name = strings.TrimSpace(name)
	names := g.groups
	if prototype {
		names = g.templates
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := names[name]; ok && name != "" {
		return id
	}
	id := scene.NewID()
	g.nodes[id] = &Node{
		ID:        id,
		Name:      name,
		Template:  scene.NilID,
		Parent:    scene.NilID,
		Transform: scene.Origin(),
		Active:    false,
		Prototype: prototype,
	}
	if name != "" {
		names[name] = id
	}
	return id
}

// Lookup resolves a named template.
func (g *Graph) Lookup(name string) (scene.ID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.templates[strings.TrimSpace(name)]
	return id, ok
}

// Name returns the name of id, or of its template for instances.
func (g *Graph) Name(id scene.ID) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[id]
	if !ok {
		return ""
	}
	return node.Name
}

// Create instantiates template. Instances inherit the template name.
func (g *Graph) Create(template scene.ID, at scene.Transform, parent scene.ID) (scene.ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	proto, ok := g.nodes[template]
	if !ok || !proto.Prototype {
		return scene.NilID, fmt.Errorf("create from template %s: %w", template, ErrNodeNotFound)
	}
	if !parent.IsNil() {
		if _, ok := g.nodes[parent]; !ok {
			return scene.NilID, fmt.Errorf("create under parent %s: %w", parent, ErrNodeNotFound)
		}
	}
	id := scene.NewID()
	g.nodes[id] = &Node{
		ID:        id,
		Name:      proto.Name,
		Template:  template,
		Parent:    parent,
		Transform: at.Normalized(),
		Active:    true,
		Prototype: false,
	}
	g.created++
	return id, nil
}

// Destroy removes id. Children of id are reparented to the scene root.
func (g *Graph) Destroy(id scene.ID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("destroy %s: %w", id, ErrNodeNotFound)
	}
	delete(g.nodes, id)
	for _, node := range g.nodes {
		if node.Parent == id {
			node.Parent = scene.NilID
		}
	}
	g.destroyed++
	return nil
}

// SetActive toggles the activation flag of id.
func (g *Graph) SetActive(id scene.ID, active bool) {
	g.mutate(id, func(n *Node) { n.Active = active })
}

// SetParent reparents id.
func (g *Graph) SetParent(id scene.ID, parent scene.ID) {
	g.mutate(id, func(n *Node) { n.Parent = parent })
}

// SetTransform moves id.
func (g *Graph) SetTransform(id scene.ID, at scene.Transform) {
	g.mutate(id, func(n *Node) { n.Transform = at.Normalized() })
}

func (g *Graph) mutate(id scene.ID, fn func(*Node)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if node, ok := g.nodes[id]; ok {
		fn(node)
	}
}

// Exists reports whether id is still in the graph.
func (g *Graph) Exists(id scene.ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Node returns a copy of the node for id.
func (g *Graph) Node(id scene.ID) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *node, true
}

// Stats returns node and lifecycle counters.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	stats := Stats{
		Nodes:     len(g.nodes),
		Active:    0,
		Created:   g.created,
		Destroyed: g.destroyed,
	}
	for _, node := range g.nodes {
		if node.Active {
			stats.Active++
		}
	}
	return stats
}

var (
	_ scene.Host   = (*Graph)(nil)
	_ scene.Prober = (*Graph)(nil)
)
