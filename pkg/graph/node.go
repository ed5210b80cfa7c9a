package graph

import "fmt"

// NodeID identifies a node within one document. Ids are positive, allocated
// monotonically from the document counter, and never reused.
type NodeID int64

// ZeroID is the invalid node id.
const ZeroID NodeID = 0

// IsZero reports whether the id is unset.
func (id NodeID) IsZero() bool {
	return id == ZeroID
}

func (id NodeID) String() string {
	return fmt.Sprintf("#%d", int64(id))
}

// Node is one entry in the document graph.
type Node struct {
	ID   NodeID `json:"id"`
	Name string `json:"name,omitempty"`
	Op   Op     `json:"op"`
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	return &Node{ID: n.ID, Name: n.Name, Op: CloneOp(n.Op)}
}

// OpType is the tag of an operation.
type OpType string

const (
	OpBox             OpType = "box"
	OpCylinder        OpType = "cylinder"
	OpSphere          OpType = "sphere"
	OpCone            OpType = "cone"
	OpTranslate       OpType = "translate"
	OpRotate          OpType = "rotate"
	OpScale           OpType = "scale"
	OpUnion           OpType = "union"
	OpDifference      OpType = "difference"
	OpIntersection    OpType = "intersection"
	OpSketch2D        OpType = "sketch"
	OpExtrude         OpType = "extrude"
	OpRevolve         OpType = "revolve"
	OpSweep           OpType = "sweep"
	OpLoft            OpType = "loft"
	OpFillet          OpType = "fillet"
	OpChamfer         OpType = "chamfer"
	OpShell           OpType = "shell"
	OpLinearPattern   OpType = "linear-pattern"
	OpCircularPattern OpType = "circular-pattern"
)

// Op is the closed set of operations a node can carry. The unexported
// methods restrict implementations to this package, so every operation has
// to say how its child references are listed, rewritten and copied.
type Op interface {
	Type() OpType
	// Children lists referenced node ids in a stable order.
	Children() []NodeID

	rewrite(fn func(NodeID) NodeID) Op
	clone() Op
}

// CloneOp returns a deep copy of op.
func CloneOp(op Op) Op {
	if op == nil {
		return nil
	}
	return op.clone()
}

// RewriteRefs returns a copy of op with every child reference passed
// through fn. The receiver is not modified.
func RewriteRefs(op Op, fn func(NodeID) NodeID) Op {
	if op == nil {
		return nil
	}
	return op.rewrite(fn)
}

// IsPrimitive reports whether t is a leaf solid.
func (t OpType) IsPrimitive() bool {
	switch t {
	case OpBox, OpCylinder, OpSphere, OpCone:
		return true
	}
	return false
}

// IsTransform reports whether t is one of the chain transforms.
func (t OpType) IsTransform() bool {
	switch t {
	case OpTranslate, OpRotate, OpScale:
		return true
	}
	return false
}

// IsBoolean reports whether t is a boolean combinator.
func (t OpType) IsBoolean() bool {
	switch t {
	case OpUnion, OpDifference, OpIntersection:
		return true
	}
	return false
}

// IsFeature reports whether t is a sketch-based feature.
func (t OpType) IsFeature() bool {
	switch t {
	case OpExtrude, OpRevolve, OpSweep, OpLoft:
		return true
	}
	return false
}

// IsModifier reports whether t wraps a single solid child.
func (t OpType) IsModifier() bool {
	switch t {
	case OpFillet, OpChamfer, OpShell, OpLinearPattern, OpCircularPattern:
		return true
	}
	return false
}
