// Package part describes how each user-facing part is laid out in the
// document graph, and recovers that description from a bare graph.
package part

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/lignin/pkg/graph"
)

// ID identifies a part: "part-<n>" with n starting at 1 and never reused.
type ID string

// UnknownPartID stands in for source part ids that cannot be recovered from
// graph shape alone, such as the inputs of a boolean loaded from the compact
// form.
const UnknownPartID ID = "unknown"

const idPrefix = "part-"

// FormatID returns the id of part number n.
func FormatID(n int) ID {
	return ID(idPrefix + strconv.Itoa(n))
}

// Num parses the numeric suffix of a part id.
func (id ID) Num() (int, bool) {
	s, ok := strings.CutPrefix(string(id), idPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Type is the variant tag of an Info.
type Type string

const (
	TypePrimitive Type = "primitive"
	TypeBoolean   Type = "boolean"
	TypeExtrude   Type = "extrude"
	TypeRevolve   Type = "revolve"
	TypeSweep     Type = "sweep"
	TypeLoft      Type = "loft"
	TypeModifier  Type = "modifier"
)

// Shape names the primitive behind a primitive part.
type Shape string

const (
	ShapeCube     Shape = "cube"
	ShapeCylinder Shape = "cylinder"
	ShapeSphere   Shape = "sphere"
	ShapeCone     Shape = "cone"
)

// ShapeOf maps a primitive op type to its shape name.
func ShapeOf(t graph.OpType) (Shape, bool) {
	switch t {
	case graph.OpBox:
		return ShapeCube, true
	case graph.OpCylinder:
		return ShapeCylinder, true
	case graph.OpSphere:
		return ShapeSphere, true
	case graph.OpCone:
		return ShapeCone, true
	}
	return "", false
}

// DefaultOp returns the op a freshly added primitive of this shape starts with.
func (s Shape) DefaultOp() (graph.Op, bool) {
	switch s {
	case ShapeCube:
		return graph.Box{Width: 20, Height: 20, Depth: 20}, true
	case ShapeCylinder:
		return graph.Cylinder{Radius: 10, Height: 20}, true
	case ShapeSphere:
		return graph.Sphere{Radius: 10}, true
	case ShapeCone:
		return graph.Cone{RadiusBottom: 10, RadiusTop: 0, Height: 20}, true
	}
	return nil, false
}

// Chain holds the transform nodes wrapping a part's core. TranslateID is
// always the part's entry in the document roots. For derived parts a
// missing layer aliases another node of the chain.
type Chain struct {
	ScaleID     graph.NodeID `json:"scaleNodeId"`
	RotateID    graph.NodeID `json:"rotateNodeId"`
	TranslateID graph.NodeID `json:"translateNodeId"`
}

func (c Chain) remap(fn func(graph.NodeID) graph.NodeID) Chain {
	return Chain{ScaleID: fn(c.ScaleID), RotateID: fn(c.RotateID), TranslateID: fn(c.TranslateID)}
}

// Base carries the fields shared by every variant.
type Base struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Chain
}

// PartID returns the part identifier.
func (b Base) PartID() ID { return b.ID }

// DisplayName returns the human-readable name.
func (b Base) DisplayName() string { return b.Name }

// Transforms returns the transform chain.
func (b Base) Transforms() Chain { return b.Chain }

// Info describes the shape of one part's subgraph. It is a closed set of
// variants; OwnedNodes is the authority on which nodes a part deletes and
// duplicates.
type Info interface {
	PartID() ID
	DisplayName() string
	Transforms() Chain
	Type() Type
	// Kind is the primitive shape, boolean or modifier op, or feature name.
	Kind() string
	// Core is the node the transform chain wraps.
	Core() graph.NodeID
	// OwnedNodes lists core node(s) and chain, without duplicates. Inputs
	// shared with other parts are never included.
	OwnedNodes() []graph.NodeID
	// Remap returns a copy with every owned node id passed through fn.
	Remap(fn func(graph.NodeID) graph.NodeID) Info
	// Rename returns a copy with a new id and display name.
	Rename(id ID, name string) Info
	// WithChain returns a copy with the transform chain replaced.
	WithChain(c Chain) Info
	Clone() Info

	sealed()
}

// owned appends the chain to core ids and removes duplicates, keeping order.
func owned(c Chain, core ...graph.NodeID) []graph.NodeID {
	all := append(core, c.ScaleID, c.RotateID, c.TranslateID)
	seen := make(map[graph.NodeID]bool, len(all))
	out := make([]graph.NodeID, 0, len(all))
	for _, id := range all {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ---------------------------------------------------------------------------
// Variants
// ---------------------------------------------------------------------------

// Primitive is a box, cylinder, sphere or cone part.
type Primitive struct {
	Base
	Shape       Shape        `json:"kind"`
	PrimitiveID graph.NodeID `json:"primitiveNodeId"`
}

func (Primitive) Type() Type                   { return TypePrimitive }
func (p Primitive) Kind() string               { return string(p.Shape) }
func (p Primitive) Core() graph.NodeID         { return p.PrimitiveID }
func (p Primitive) OwnedNodes() []graph.NodeID { return owned(p.Chain, p.PrimitiveID) }
func (p Primitive) Remap(fn func(graph.NodeID) graph.NodeID) Info {
	p.PrimitiveID = fn(p.PrimitiveID)
	p.Chain = p.Chain.remap(fn)
	return p
}
func (p Primitive) Rename(id ID, name string) Info { p.ID, p.Name = id, name; return p }
func (p Primitive) Clone() Info                    { return p }
func (p Primitive) WithChain(c Chain) Info         { p.Chain = c; return p }
func (Primitive) sealed()                          {}

// Boolean is the result of combining two parts. SourcePartIDs is for
// display only; the inputs are reached through the combinator node.
type Boolean struct {
	Base
	Op            graph.OpType `json:"kind"`
	BooleanID     graph.NodeID `json:"booleanNodeId"`
	SourcePartIDs [2]ID        `json:"sourcePartIds"`
}

func (Boolean) Type() Type                   { return TypeBoolean }
func (p Boolean) Kind() string               { return string(p.Op) }
func (p Boolean) Core() graph.NodeID         { return p.BooleanID }
func (p Boolean) OwnedNodes() []graph.NodeID { return owned(p.Chain, p.BooleanID) }
func (p Boolean) Remap(fn func(graph.NodeID) graph.NodeID) Info {
	p.BooleanID = fn(p.BooleanID)
	p.Chain = p.Chain.remap(fn)
	return p
}
func (p Boolean) Rename(id ID, name string) Info { p.ID, p.Name = id, name; return p }
func (p Boolean) Clone() Info                    { return p }
func (p Boolean) WithChain(c Chain) Info         { p.Chain = c; return p }
func (Boolean) sealed()                          {}

// Extrude is a sketch pushed along its normal.
type Extrude struct {
	Base
	SketchID  graph.NodeID `json:"sketchNodeId"`
	FeatureID graph.NodeID `json:"featureNodeId"`
}

func (Extrude) Type() Type                   { return TypeExtrude }
func (Extrude) Kind() string                 { return string(graph.OpExtrude) }
func (p Extrude) Core() graph.NodeID         { return p.FeatureID }
func (p Extrude) OwnedNodes() []graph.NodeID { return owned(p.Chain, p.SketchID, p.FeatureID) }
func (p Extrude) Remap(fn func(graph.NodeID) graph.NodeID) Info {
	p.SketchID, p.FeatureID = fn(p.SketchID), fn(p.FeatureID)
	p.Chain = p.Chain.remap(fn)
	return p
}
func (p Extrude) Rename(id ID, name string) Info { p.ID, p.Name = id, name; return p }
func (p Extrude) Clone() Info                    { return p }
func (p Extrude) WithChain(c Chain) Info         { p.Chain = c; return p }
func (Extrude) sealed()                          {}

// Revolve is a sketch spun about an axis.
type Revolve struct {
	Base
	SketchID  graph.NodeID `json:"sketchNodeId"`
	FeatureID graph.NodeID `json:"featureNodeId"`
}

func (Revolve) Type() Type                   { return TypeRevolve }
func (Revolve) Kind() string                 { return string(graph.OpRevolve) }
func (p Revolve) Core() graph.NodeID         { return p.FeatureID }
func (p Revolve) OwnedNodes() []graph.NodeID { return owned(p.Chain, p.SketchID, p.FeatureID) }
func (p Revolve) Remap(fn func(graph.NodeID) graph.NodeID) Info {
	p.SketchID, p.FeatureID = fn(p.SketchID), fn(p.FeatureID)
	p.Chain = p.Chain.remap(fn)
	return p
}
func (p Revolve) Rename(id ID, name string) Info { p.ID, p.Name = id, name; return p }
func (p Revolve) Clone() Info                    { return p }
func (p Revolve) WithChain(c Chain) Info         { p.Chain = c; return p }
func (Revolve) sealed()                          {}

// Sweep is a sketch dragged along a path.
type Sweep struct {
	Base
	SketchID  graph.NodeID `json:"sketchNodeId"`
	FeatureID graph.NodeID `json:"featureNodeId"`
}

func (Sweep) Type() Type                   { return TypeSweep }
func (Sweep) Kind() string                 { return string(graph.OpSweep) }
func (p Sweep) Core() graph.NodeID         { return p.FeatureID }
func (p Sweep) OwnedNodes() []graph.NodeID { return owned(p.Chain, p.SketchID, p.FeatureID) }
func (p Sweep) Remap(fn func(graph.NodeID) graph.NodeID) Info {
	p.SketchID, p.FeatureID = fn(p.SketchID), fn(p.FeatureID)
	p.Chain = p.Chain.remap(fn)
	return p
}
func (p Sweep) Rename(id ID, name string) Info { p.ID, p.Name = id, name; return p }
func (p Sweep) Clone() Info                    { return p }
func (p Sweep) WithChain(c Chain) Info         { p.Chain = c; return p }
func (Sweep) sealed()                          {}

// Loft blends two or more sketches.
type Loft struct {
	Base
	SketchIDs []graph.NodeID `json:"sketchNodeIds"`
	FeatureID graph.NodeID   `json:"featureNodeId"`
}

func (Loft) Type() Type           { return TypeLoft }
func (Loft) Kind() string         { return string(graph.OpLoft) }
func (p Loft) Core() graph.NodeID { return p.FeatureID }
func (p Loft) OwnedNodes() []graph.NodeID {
	return owned(p.Chain, append(append([]graph.NodeID(nil), p.SketchIDs...), p.FeatureID)...)
}
func (p Loft) Remap(fn func(graph.NodeID) graph.NodeID) Info {
	ids := make([]graph.NodeID, len(p.SketchIDs))
	for i, id := range p.SketchIDs {
		ids[i] = fn(id)
	}
	p.SketchIDs = ids
	p.FeatureID = fn(p.FeatureID)
	p.Chain = p.Chain.remap(fn)
	return p
}
func (p Loft) Rename(id ID, name string) Info {
	p.SketchIDs = append([]graph.NodeID(nil), p.SketchIDs...)
	p.ID, p.Name = id, name
	return p
}
func (p Loft) Clone() Info {
	p.SketchIDs = append([]graph.NodeID(nil), p.SketchIDs...)
	return p
}
func (p Loft) WithChain(c Chain) Info { p.Chain = c; return p }
func (Loft) sealed()                  {}

// Modifier wraps another part with a fillet, chamfer, shell or pattern.
type Modifier struct {
	Base
	Op           graph.OpType `json:"kind"`
	ModifierID   graph.NodeID `json:"modifierNodeId"`
	SourcePartID ID           `json:"sourcePartId"`
}

func (Modifier) Type() Type                   { return TypeModifier }
func (p Modifier) Kind() string               { return string(p.Op) }
func (p Modifier) Core() graph.NodeID         { return p.ModifierID }
func (p Modifier) OwnedNodes() []graph.NodeID { return owned(p.Chain, p.ModifierID) }
func (p Modifier) Remap(fn func(graph.NodeID) graph.NodeID) Info {
	p.ModifierID = fn(p.ModifierID)
	p.Chain = p.Chain.remap(fn)
	return p
}
func (p Modifier) Rename(id ID, name string) Info { p.ID, p.Name = id, name; return p }
func (p Modifier) Clone() Info                    { return p }
func (p Modifier) WithChain(c Chain) Info         { p.Chain = c; return p }
func (Modifier) sealed()                          {}

// ---------------------------------------------------------------------------
// Names
// ---------------------------------------------------------------------------

var kindLabels = map[string]string{
	string(ShapeCube):               "Cube",
	string(ShapeCylinder):           "Cylinder",
	string(ShapeSphere):             "Sphere",
	string(ShapeCone):               "Cone",
	string(graph.OpUnion):           "Union",
	string(graph.OpDifference):      "Difference",
	string(graph.OpIntersection):    "Intersection",
	string(graph.OpExtrude):         "Extrude",
	string(graph.OpRevolve):         "Revolve",
	string(graph.OpSweep):           "Sweep",
	string(graph.OpLoft):            "Loft",
	string(graph.OpFillet):          "Fillet",
	string(graph.OpChamfer):         "Chamfer",
	string(graph.OpShell):           "Shell",
	string(graph.OpLinearPattern):   "Linear Pattern",
	string(graph.OpCircularPattern): "Circular Pattern",
}

// DefaultName returns the name a new part of the given kind gets, such as
// "Cube 3".
func DefaultName(kind string, n int) string {
	label, ok := kindLabels[kind]
	if !ok {
		label = "Part"
	}
	return fmt.Sprintf("%s %d", label, n)
}

// nameNum returns the trailing number of a name like "Cube 12" or "part-12".
func nameNum(name string) (int, bool) {
	if n, ok := ID(name).Num(); ok {
		return n, true
	}
	i := strings.LastIndexByte(name, ' ')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Find returns the index of the part with the given id, or -1.
func Find(parts []Info, id ID) int {
	for i, p := range parts {
		if p.PartID() == id {
			return i
		}
	}
	return -1
}
