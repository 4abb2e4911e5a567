package world

import (
	"github.com/ImPhilipGlover/EntropicGarden-sub007/internal/value"
)

// World is the in-memory graph of addressable nodes. It is explicitly
// owned and passed by reference - never a package-level singleton - and
// has a defined lifecycle: New, mutate via Set, Reset, discard.
//
// Node and attribute insertion order is preserved so snapshot output is
// reproducible without sorting.
type World struct {
	order []string
	nodes map[string]*Node
}

// Node is one addressable object with named attributes.
type Node struct {
	ID    string
	order []string
	attrs map[string]value.Value
}

// New creates an empty world.
func New() *World {
	return &World{nodes: make(map[string]*Node)}
}

// Reset discards all nodes, returning the world to its freshly created
// state. The world value itself stays valid.
func (w *World) Reset() {
	w.order = w.order[:0]
	w.nodes = make(map[string]*Node)
}

// Set applies a total overwrite of node/attr to v, creating the node on
// demand. Last write wins; setting the same attribute twice keeps its
// original position in the attribute order. This is the single mutation
// primitive the replay/apply path uses, and overwriting semantics are
// what make replay idempotent.
func (w *World) Set(node, attr string, v value.Value) {
	n, ok := w.nodes[node]
	if !ok {
		n = &Node{ID: node, attrs: make(map[string]value.Value)}
		w.nodes[node] = n
		w.order = append(w.order, node)
	}
	if _, exists := n.attrs[attr]; !exists {
		n.order = append(n.order, attr)
	}
	n.attrs[attr] = v
}

// Get returns the value of node/attr, or (nil, false) if either the
// node or the attribute does not exist.
func (w *World) Get(node, attr string) (value.Value, bool) {
	n, ok := w.nodes[node]
	if !ok {
		return nil, false
	}
	v, ok := n.attrs[attr]
	return v, ok
}

// Node returns the named node, or nil if it does not exist.
func (w *World) Node(id string) *Node {
	return w.nodes[id]
}

// Nodes returns all nodes in insertion order.
func (w *World) Nodes() []*Node {
	out := make([]*Node, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.nodes[id])
	}
	return out
}

// Len returns the number of nodes.
func (w *World) Len() int {
	return len(w.order)
}

// Attributes returns the node's attribute names in insertion order.
func (n *Node) Attributes() []string {
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// Get returns the node attribute value, or (nil, false) if absent.
func (n *Node) Get(attr string) (value.Value, bool) {
	v, ok := n.attrs[attr]
	return v, ok
}

// Equal reports structural equality: same nodes with same attribute
// values. Insertion order is NOT part of equality - two worlds that
// reached the same state by different orders are equal.
func Equal(a, b *World) bool {
	if a.Len() != b.Len() {
		return false
	}
	for id, an := range a.nodes {
		bn, ok := b.nodes[id]
		if !ok || len(an.attrs) != len(bn.attrs) {
			return false
		}
		for attr, av := range an.attrs {
			bv, ok := bn.attrs[attr]
			if !ok || !value.Equal(av, bv) {
				return false
			}
		}
	}
	return true
}
