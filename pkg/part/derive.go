package part

import (
	"github.com/chazu/lignin/pkg/graph"
)

// Result is the part index recovered from a graph.
type Result struct {
	Parts       []Info
	NextNodeID  graph.NodeID
	NextPartNum int
	// Skipped lists roots whose core op has no part variant.
	Skipped []graph.NodeID
}

// Derive reconstructs the part list of a document that arrived without one.
//
// Each root is peeled as Translate, Rotate, Scale, core. The translate slot
// is always the root itself; a missing rotate or scale layer aliases the
// core. The core's op picks the variant. Inputs of booleans and modifiers
// cannot be recovered from graph shape and are recorded as UnknownPartID.
// Roots with an unknown core, or a core that does not resolve, are skipped.
func Derive(d *graph.Document) Result {
	res := Result{NextNodeID: d.MaxID() + 1}

	highest := 0
	for _, r := range d.Roots {
		chain, core, ok := peel(d, r.Root)
		if !ok {
			res.Skipped = append(res.Skipped, r.Root)
			continue
		}
		n := len(res.Parts) + 1
		base := Base{ID: FormatID(n), Chain: chain}

		info, ok := fromCore(base, core)
		if !ok {
			res.Skipped = append(res.Skipped, r.Root)
			continue
		}
		name := d.Get(r.Root).Name
		if name == "" {
			name = core.Name
		}
		if name == "" {
			name = DefaultName(info.Kind(), n)
		}
		info = info.Rename(base.ID, name)
		res.Parts = append(res.Parts, info)

		highest = max(highest, n)
		if num, ok := nameNum(name); ok {
			highest = max(highest, num)
		}
	}

	// Named nodes that are not part roots can still carry a part number,
	// for example consumed inputs saved under their old names.
	for _, n := range d.Nodes {
		if num, ok := ID(n.Name).Num(); ok {
			highest = max(highest, num)
		}
	}
	res.NextPartNum = highest + 1
	return res
}

// peel walks the canonical chain below root and returns it with the core.
func peel(d *graph.Document, root graph.NodeID) (Chain, *graph.Node, bool) {
	cur := d.Get(root)
	if cur == nil {
		return Chain{}, nil, false
	}
	chain := Chain{TranslateID: root}

	if t, ok := cur.Op.(graph.Translate); ok {
		if cur = d.Get(t.Child); cur == nil {
			return Chain{}, nil, false
		}
	}
	var rotate, scale graph.NodeID
	if r, ok := cur.Op.(graph.Rotate); ok {
		rotate = cur.ID
		if cur = d.Get(r.Child); cur == nil {
			return Chain{}, nil, false
		}
	}
	if s, ok := cur.Op.(graph.Scale); ok {
		scale = cur.ID
		if cur = d.Get(s.Child); cur == nil {
			return Chain{}, nil, false
		}
	}

	if rotate.IsZero() {
		rotate = cur.ID
	}
	if scale.IsZero() {
		scale = cur.ID
	}
	chain.RotateID, chain.ScaleID = rotate, scale
	return chain, cur, true
}

// fromCore maps a core node to its part variant.
func fromCore(base Base, core *graph.Node) (Info, bool) {
	switch op := core.Op.(type) {
	case graph.Box, graph.Cylinder, graph.Sphere, graph.Cone:
		shape, _ := ShapeOf(op.Type())
		return Primitive{Base: base, Shape: shape, PrimitiveID: core.ID}, true
	case graph.Boolean:
		return Boolean{
			Base:          base,
			Op:            op.Kind,
			BooleanID:     core.ID,
			SourcePartIDs: [2]ID{UnknownPartID, UnknownPartID},
		}, true
	case graph.Extrude:
		return Extrude{Base: base, SketchID: op.Sketch, FeatureID: core.ID}, true
	case graph.Revolve:
		return Revolve{Base: base, SketchID: op.Sketch, FeatureID: core.ID}, true
	case graph.Sweep:
		return Sweep{Base: base, SketchID: op.Sketch, FeatureID: core.ID}, true
	case graph.Loft:
		return Loft{Base: base, SketchIDs: append([]graph.NodeID(nil), op.Sketches...), FeatureID: core.ID}, true
	case graph.Fillet, graph.Chamfer, graph.Shell, graph.LinearPattern, graph.CircularPattern:
		return Modifier{Base: base, Op: op.Type(), ModifierID: core.ID, SourcePartID: UnknownPartID}, true
	}
	return nil, false
}
