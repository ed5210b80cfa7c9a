package store

import (
	"fmt"

	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/part"
)

// SetTranslate sets the offset of a part's translate node. During a drag the
// caller passes skipUndo=false for the first update and true afterwards, so
// the whole gesture is one undo step.
func (s *Store) SetTranslate(id part.ID, offset graph.Vec3, skipUndo bool) bool {
	return s.apply("translate", "Move "+string(id), skipUndo, func(st *State) bool {
		_, i := st.Part(id)
		if i < 0 {
			return false
		}
		n := st.Doc.MustGet(st.ensureChain(i).Transforms().TranslateID)
		tr := n.Op.(graph.Translate)
		tr.Offset = offset
		n.Op = tr
		return true
	})
}

// SetRotate sets the Euler angles, in degrees, of a part's rotate node.
func (s *Store) SetRotate(id part.ID, angles graph.Vec3, skipUndo bool) bool {
	return s.apply("rotate", "Rotate "+string(id), skipUndo, func(st *State) bool {
		_, i := st.Part(id)
		if i < 0 {
			return false
		}
		n := st.Doc.MustGet(st.ensureChain(i).Transforms().RotateID)
		r := n.Op.(graph.Rotate)
		r.Angles = angles
		n.Op = r
		return true
	})
}

// SetScale sets the per-axis factors of a part's scale node.
func (s *Store) SetScale(id part.ID, factors graph.Vec3, skipUndo bool) bool {
	return s.apply("scale", "Scale "+string(id), skipUndo, func(st *State) bool {
		_, i := st.Part(id)
		if i < 0 {
			return false
		}
		n := st.Doc.MustGet(st.ensureChain(i).Transforms().ScaleID)
		sc := n.Op.(graph.Scale)
		sc.Factors = factors
		n.Op = sc
		return true
	})
}

// SetPrimitive replaces the dimensions of a primitive part. op may change
// the shape, for example turning a cube into a sphere.
func (s *Store) SetPrimitive(id part.ID, op graph.Op, skipUndo bool) bool {
	if op == nil || !op.Type().IsPrimitive() {
		s.metrics.RecordNoop("edit_primitive")
		return false
	}
	return s.apply("edit_primitive", "Edit "+string(id), skipUndo, func(st *State) bool {
		p, i := st.Part(id)
		if i < 0 {
			return false
		}
		prim, ok := p.(part.Primitive)
		if !ok {
			return false
		}
		st.Doc.MustGet(prim.PrimitiveID).Op = graph.CloneOp(op)
		prim.Shape, _ = part.ShapeOf(op.Type())
		st.Parts[i] = prim
		return true
	})
}

// SetMaterial assigns a defined material to a part's root.
func (s *Store) SetMaterial(id part.ID, key string) bool {
	return s.apply("material", fmt.Sprintf("Material %s", id), false, func(st *State) bool {
		if _, ok := st.Doc.Materials[key]; !ok {
			return false
		}
		p, i := st.Part(id)
		if i < 0 {
			return false
		}
		ri := st.Doc.RootIndex(p.Transforms().TranslateID)
		if ri < 0 || st.Doc.Roots[ri].Material == key {
			return false
		}
		st.Doc.Roots[ri].Material = key
		return true
	})
}

// DefineMaterial adds or replaces a material.
func (s *Store) DefineMaterial(key string, def graph.MaterialDef) bool {
	if key == "" {
		s.metrics.RecordNoop("define_material")
		return false
	}
	return s.apply("define_material", "Define material "+key, false, func(st *State) bool {
		if st.Doc.Materials == nil {
			st.Doc.Materials = make(map[string]graph.MaterialDef)
		}
		st.Doc.Materials[key] = def
		return true
	})
}

// RenamePart changes a part's display name. The name is also stored on the
// translate node so it survives the compact form.
func (s *Store) RenamePart(id part.ID, name string) bool {
	if name == "" {
		s.metrics.RecordNoop("rename")
		return false
	}
	return s.apply("rename", "Rename "+string(id), false, func(st *State) bool {
		p, i := st.Part(id)
		if i < 0 || p.DisplayName() == name {
			return false
		}
		st.Parts[i] = p.Rename(id, name)
		st.Doc.MustGet(p.Transforms().TranslateID).Name = name
		return true
	})
}
