package graph

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DefaultMaterial is the material key every document gains once a part is added.
const DefaultMaterial = "default"

// MaterialDef describes how a root is shaded. Advisory only.
type MaterialDef struct {
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Metalness float64 `json:"metalness"`
	Roughness float64 `json:"roughness"`
	Opacity   float64 `json:"opacity"`
}

// DefaultMaterialDef is installed under DefaultMaterial.
var DefaultMaterialDef = MaterialDef{
	Name:      "Default",
	Color:     "#b0b7c3",
	Metalness: 0.1,
	Roughness: 0.6,
	Opacity:   1,
}

// Root marks a node as a top-level visible part.
type Root struct {
	Root     NodeID `json:"root"`
	Material string `json:"material"`
}

// Document is the graph plus its scene roots and materials. Mutators edit a
// document in place; history keeps independent clones.
type Document struct {
	Nodes     map[NodeID]*Node       `json:"nodes"`
	Roots     []Root                 `json:"roots"`
	Materials map[string]MaterialDef `json:"materials"`
	Assembly  *Assembly              `json:"assembly,omitempty"`

	// Extra holds top-level fields this version does not understand so the
	// verbose form can round-trip them.
	Extra map[string]json.RawMessage `json:"-"`
}

// New creates an empty document.
func New() *Document {
	return &Document{
		Nodes:     make(map[NodeID]*Node),
		Materials: make(map[string]MaterialDef),
	}
}

// AddNode inserts n. It does not check for duplicates.
func (d *Document) AddNode(n *Node) {
	d.Nodes[n.ID] = n
}

// Get returns the node with the given id, or nil.
func (d *Document) Get(id NodeID) *Node {
	return d.Nodes[id]
}

// MustGet returns the node with the given id, or panics.
func (d *Document) MustGet(id NodeID) *Node {
	n := d.Nodes[id]
	if n == nil {
		panic(fmt.Sprintf("graph: no node %s", id))
	}
	return n
}

// Has reports whether id is present.
func (d *Document) Has(id NodeID) bool {
	_, ok := d.Nodes[id]
	return ok
}

// DeleteNodes removes the given ids. Missing ids are ignored.
func (d *Document) DeleteNodes(ids ...NodeID) {
	for _, id := range ids {
		delete(d.Nodes, id)
	}
}

// AddRoot appends a root entry.
func (d *Document) AddRoot(id NodeID, material string) {
	d.Roots = append(d.Roots, Root{Root: id, Material: material})
}

// RootIndex returns the position of id in Roots, or -1.
func (d *Document) RootIndex(id NodeID) int {
	for i, r := range d.Roots {
		if r.Root == id {
			return i
		}
	}
	return -1
}

// RemoveRoot drops the root entry for id. It reports whether one was found.
func (d *Document) RemoveRoot(id NodeID) bool {
	i := d.RootIndex(id)
	if i < 0 {
		return false
	}
	d.Roots = append(d.Roots[:i], d.Roots[i+1:]...)
	return true
}

// RootIDs returns the root node ids in order.
func (d *Document) RootIDs() []NodeID {
	ids := make([]NodeID, len(d.Roots))
	for i, r := range d.Roots {
		ids[i] = r.Root
	}
	return ids
}

// EnsureDefaultMaterial installs DefaultMaterialDef if missing.
func (d *Document) EnsureDefaultMaterial() {
	if d.Materials == nil {
		d.Materials = make(map[string]MaterialDef)
	}
	if _, ok := d.Materials[DefaultMaterial]; !ok {
		d.Materials[DefaultMaterial] = DefaultMaterialDef
	}
}

// Children returns the child nodes of n that are present.
func (d *Document) Children(n *Node) []*Node {
	refs := n.Op.Children()
	children := make([]*Node, 0, len(refs))
	for _, cid := range refs {
		if c := d.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// SortedIDs returns all node ids in ascending order.
func (d *Document) SortedIDs() []NodeID {
	ids := make([]NodeID, 0, len(d.Nodes))
	for id := range d.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MaxID returns the largest node id, or ZeroID for an empty document.
func (d *Document) MaxID() NodeID {
	var max NodeID
	for id := range d.Nodes {
		if id > max {
			max = id
		}
	}
	return max
}

// NodeCount returns the total number of nodes.
func (d *Document) NodeCount() int {
	return len(d.Nodes)
}

// Reachable returns every node id reachable from the roots, roots included.
func (d *Document) Reachable() map[NodeID]bool {
	seen := make(map[NodeID]bool)
	queue := make([]NodeID, 0, len(d.Roots))
	for _, r := range d.Roots {
		if !seen[r.Root] {
			seen[r.Root] = true
			queue = append(queue, r.Root)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := d.Nodes[id]
		if n == nil {
			continue
		}
		for _, c := range n.Op.Children() {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}
	return seen
}

// Parents returns the reverse child relation: for each node, the nodes that
// reference it.
func (d *Document) Parents() map[NodeID][]NodeID {
	parents := make(map[NodeID][]NodeID)
	for _, id := range d.SortedIDs() {
		for _, c := range d.Nodes[id].Op.Children() {
			parents[c] = append(parents[c], id)
		}
	}
	return parents
}

// Clone returns a fully independent deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := &Document{
		Nodes:     make(map[NodeID]*Node, len(d.Nodes)),
		Roots:     append([]Root(nil), d.Roots...),
		Materials: make(map[string]MaterialDef, len(d.Materials)),
		Assembly:  d.Assembly.Clone(),
	}
	for id, n := range d.Nodes {
		c.Nodes[id] = n.Clone()
	}
	for k, m := range d.Materials {
		c.Materials[k] = m
	}
	if d.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(d.Extra))
		for k, v := range d.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}
