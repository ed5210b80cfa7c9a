package store

import (
	"fmt"

	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/part"
)

// AddPrimitive adds a cube, cylinder, sphere or cone with default dimensions
// wrapped in an identity transform chain. Unknown shapes are ignored.
func (s *Store) AddPrimitive(shape part.Shape) (part.ID, bool) {
	op, ok := shape.DefaultOp()
	if !ok {
		s.metrics.RecordNoop("add_primitive")
		return "", false
	}
	var id part.ID
	ok = s.apply("add_primitive", "Add "+string(shape), false, func(st *State) bool {
		var name string
		id, name = st.newPartID(string(shape))
		core := st.addNode("", op)
		chain := st.addChain(core, name, s.newPartMaterial(st))
		st.Parts = append(st.Parts, part.Primitive{
			Base:        part.Base{ID: id, Name: name, Chain: chain},
			Shape:       shape,
			PrimitiveID: core,
		})
		return true
	})
	return id, ok
}

// RemovePart deletes the nodes the part owns and its root entry. Inputs of
// booleans and modifiers are left in place. Assembly definitions rooted at a
// deleted node are removed with their instances and joints.
func (s *Store) RemovePart(id part.ID) bool {
	return s.apply("remove", "Delete "+string(id), false, func(st *State) bool {
		p, i := st.Part(id)
		if i < 0 {
			return false
		}
		owned := p.OwnedNodes()
		deleted := make(map[graph.NodeID]bool, len(owned))
		for _, nid := range owned {
			deleted[nid] = true
		}
		// A node still referenced from outside the part stays.
		parents := st.Doc.Parents()
		for _, nid := range owned {
			for _, parent := range parents[nid] {
				if !deleted[parent] {
					delete(deleted, nid)
					break
				}
			}
		}
		for nid := range deleted {
			st.Doc.DeleteNodes(nid)
		}
		st.Doc.RemoveRoot(p.Transforms().TranslateID)
		st.Parts = append(st.Parts[:i], st.Parts[i+1:]...)

		if a := st.Doc.Assembly; a != nil {
			for _, defID := range a.PartDefIDs() {
				if deleted[a.PartDefs[defID].Root] {
					a.RemovePartDef(defID)
				}
			}
		}
		return true
	})
}

// ApplyBoolean combines parts a and b. The combinator references the
// existing translate nodes, left a and right b; both parts move to the
// consumed table and the new part inherits a's material.
func (s *Store) ApplyBoolean(kind graph.OpType, a, b part.ID) (part.ID, bool) {
	if !kind.IsBoolean() || a == b {
		s.metrics.RecordNoop("boolean")
		return "", false
	}
	var id part.ID
	ok := s.apply("boolean", fmt.Sprintf("%s %s, %s", kind, a, b), false, func(st *State) bool {
		pa, ia := st.Part(a)
		pb, ib := st.Part(b)
		if ia < 0 || ib < 0 {
			return false
		}
		material, _ := st.Material(a)
		if material == "" {
			material = graph.DefaultMaterial
		}

		var name string
		id, name = st.newPartID(string(kind))
		core := st.addNode("", graph.Boolean{
			Kind:  kind,
			Left:  pa.Transforms().TranslateID,
			Right: pb.Transforms().TranslateID,
		})
		chain := st.addChain(core, name, material)

		// Consume the later index first so the earlier one stays valid.
		if ia > ib {
			st.consume(ia)
			st.consume(ib)
		} else {
			st.consume(ib)
			st.consume(ia)
		}
		st.Parts = append(st.Parts, part.Boolean{
			Base:          part.Base{ID: id, Name: name, Chain: chain},
			Op:            kind,
			BooleanID:     core,
			SourcePartIDs: [2]part.ID{a, b},
		})
		return true
	})
	return id, ok
}

// ApplyModifier wraps a part in a fillet, chamfer, shell or pattern. The
// child reference of op is replaced by the part's translate node; the part
// is consumed as with booleans.
func (s *Store) ApplyModifier(id part.ID, op graph.Op) (part.ID, bool) {
	if op == nil || !op.Type().IsModifier() {
		s.metrics.RecordNoop("modifier")
		return "", false
	}
	var newID part.ID
	ok := s.apply("modifier", fmt.Sprintf("%s %s", op.Type(), id), false, func(st *State) bool {
		src, i := st.Part(id)
		if i < 0 {
			return false
		}
		material, _ := st.Material(id)
		if material == "" {
			material = graph.DefaultMaterial
		}
		input := src.Transforms().TranslateID

		var name string
		newID, name = st.newPartID(string(op.Type()))
		core := st.addNode("", graph.RewriteRefs(op, func(graph.NodeID) graph.NodeID { return input }))
		chain := st.addChain(core, name, material)

		st.consume(i)
		st.Parts = append(st.Parts, part.Modifier{
			Base:         part.Base{ID: newID, Name: name, Chain: chain},
			Op:           op.Type(),
			ModifierID:   core,
			SourcePartID: id,
		})
		return true
	})
	return newID, ok
}

// DuplicateParts clones each listed part. Only the nodes a part owns are
// copied; references to anything else, such as boolean inputs, stay shared.
// Each copy is shifted along X. Unknown ids are skipped.
func (s *Store) DuplicateParts(ids []part.ID) []part.ID {
	var out []part.ID
	label := fmt.Sprintf("Duplicate %d part(s)", len(ids))
	s.apply("duplicate", label, false, func(st *State) bool {
		done := make(map[part.ID]bool, len(ids))
		for _, id := range ids {
			if done[id] {
				continue
			}
			done[id] = true
			if newID, ok := s.duplicate(st, id); ok {
				out = append(out, newID)
			}
		}
		return len(out) > 0
	})
	return out
}

func (s *Store) duplicate(st *State, id part.ID) (part.ID, bool) {
	src, i := st.Part(id)
	if i < 0 {
		return "", false
	}
	material, ok := st.Material(id)
	if !ok {
		material = graph.DefaultMaterial
	}

	owned := src.OwnedNodes()
	remap := make(map[graph.NodeID]graph.NodeID, len(owned))
	for _, nid := range owned {
		remap[nid] = st.NextNodeID
		st.NextNodeID++
	}
	through := func(nid graph.NodeID) graph.NodeID {
		if mapped, ok := remap[nid]; ok {
			return mapped
		}
		return nid
	}
	for _, nid := range owned {
		n := st.Doc.MustGet(nid)
		st.Doc.AddNode(&graph.Node{
			ID:   remap[nid],
			Name: n.Name,
			Op:   graph.RewriteRefs(n.Op, through),
		})
	}

	newID, name := st.newPartID(src.Kind())
	dup := src.Remap(through).Rename(newID, name)
	st.Doc.AddRoot(dup.Transforms().TranslateID, material)
	st.Parts = append(st.Parts, dup)

	dup = st.ensureChain(len(st.Parts) - 1)
	t := st.Doc.MustGet(dup.Transforms().TranslateID)
	tr := t.Op.(graph.Translate)
	tr.Offset.X += s.duplicateOffset
	t.Op = tr
	t.Name = name
	return newID, true
}

// AddExtrude adds a sketch pushed along its normal by depth.
func (s *Store) AddExtrude(sketch graph.Sketch2D, depth float64) (part.ID, bool) {
	if len(sketch.Segments) == 0 {
		s.metrics.RecordNoop("extrude")
		return "", false
	}
	return s.addFeature("extrude", func(st *State) (part.Info, graph.NodeID) {
		sk := st.addNode("", graph.CloneOp(sketch))
		f := st.addNode("", graph.Extrude{Sketch: sk, Depth: depth})
		return part.Extrude{SketchID: sk, FeatureID: f}, f
	})
}

// AddRevolve adds a sketch spun about its V axis by angle degrees.
func (s *Store) AddRevolve(sketch graph.Sketch2D, angle float64) (part.ID, bool) {
	if len(sketch.Segments) == 0 {
		s.metrics.RecordNoop("revolve")
		return "", false
	}
	return s.addFeature("revolve", func(st *State) (part.Info, graph.NodeID) {
		sk := st.addNode("", graph.CloneOp(sketch))
		f := st.addNode("", graph.Revolve{Sketch: sk, Angle: angle})
		return part.Revolve{SketchID: sk, FeatureID: f}, f
	})
}

// AddSweep adds a sketch dragged along a polyline of at least two points.
func (s *Store) AddSweep(sketch graph.Sketch2D, path []graph.Vec3) (part.ID, bool) {
	if len(sketch.Segments) == 0 || len(path) < 2 {
		s.metrics.RecordNoop("sweep")
		return "", false
	}
	return s.addFeature("sweep", func(st *State) (part.Info, graph.NodeID) {
		sk := st.addNode("", graph.CloneOp(sketch))
		f := st.addNode("", graph.Sweep{Sketch: sk, Path: append([]graph.Vec3(nil), path...)})
		return part.Sweep{SketchID: sk, FeatureID: f}, f
	})
}

// AddLoft blends the sketches in order. Fewer than two sketches is a no-op
// and allocates nothing.
func (s *Store) AddLoft(sketches []graph.Sketch2D) (part.ID, bool) {
	if len(sketches) < 2 {
		s.metrics.RecordNoop("loft")
		return "", false
	}
	return s.addFeature("loft", func(st *State) (part.Info, graph.NodeID) {
		ids := make([]graph.NodeID, len(sketches))
		for i, sk := range sketches {
			ids[i] = st.addNode("", graph.CloneOp(sk))
		}
		f := st.addNode("", graph.Loft{Sketches: ids})
		return part.Loft{SketchIDs: append([]graph.NodeID(nil), ids...), FeatureID: f}, f
	})
}

// addFeature allocates the part id, lets build add the sketch and feature
// nodes, then wraps the feature in a chain.
func (s *Store) addFeature(kind string, build func(st *State) (part.Info, graph.NodeID)) (part.ID, bool) {
	var id part.ID
	ok := s.apply(kind, "Add "+kind, false, func(st *State) bool {
		var name string
		id, name = st.newPartID(kind)
		p, core := build(st)
		chain := st.addChain(core, name, s.newPartMaterial(st))
		st.Parts = append(st.Parts, p.WithChain(chain).Rename(id, name))
		return true
	})
	return id, ok
}
