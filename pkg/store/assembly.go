package store

import (
	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/part"
)

// DefinePart registers a live part as a reusable assembly definition and
// returns the definition id. An empty name uses the part's name.
func (s *Store) DefinePart(id part.ID, name string) (string, bool) {
	var defID string
	ok := s.apply("define_part", "Define part "+string(id), false, func(st *State) bool {
		p, i := st.Part(id)
		if i < 0 {
			return false
		}
		if name == "" {
			name = p.DisplayName()
		}
		a := st.assembly()
		defID = a.NewDefID()
		a.PartDefs[defID] = &graph.PartDef{ID: defID, Name: name, Root: p.Transforms().TranslateID}
		return true
	})
	return defID, ok
}

// AddInstance places a definition at pos and returns the instance id.
func (s *Store) AddInstance(defID string, pos graph.Vec3) (string, bool) {
	var instID string
	ok := s.apply("add_instance", "Add instance of "+defID, false, func(st *State) bool {
		a := st.Doc.Assembly
		if a == nil || a.PartDefs[defID] == nil {
			return false
		}
		instID = a.NewInstanceID()
		a.Instances[instID] = &graph.Instance{ID: instID, PartDef: defID, Position: pos}
		return true
	})
	return instID, ok
}

// RemoveInstance deletes an instance and the joints attached to it.
func (s *Store) RemoveInstance(id string) bool {
	return s.apply("remove_instance", "Remove "+id, false, func(st *State) bool {
		a := st.Doc.Assembly
		return a != nil && a.RemoveInstance(id)
	})
}

// AddJoint connects two distinct instances and returns the joint id.
func (s *Store) AddJoint(kind graph.JointKind, a, b string, axis graph.Vec3) (string, bool) {
	if !kind.Valid() || a == b {
		s.metrics.RecordNoop("add_joint")
		return "", false
	}
	var jointID string
	ok := s.apply("add_joint", "Add "+string(kind)+" joint", false, func(st *State) bool {
		asm := st.Doc.Assembly
		if asm == nil || asm.Instances[a] == nil || asm.Instances[b] == nil {
			return false
		}
		jointID = asm.NewJointID()
		asm.Joints[jointID] = &graph.Joint{ID: jointID, Kind: kind, InstanceA: a, InstanceB: b, Axis: axis}
		return true
	})
	return jointID, ok
}

// RemoveJoint deletes a joint.
func (s *Store) RemoveJoint(id string) bool {
	return s.apply("remove_joint", "Remove "+id, false, func(st *State) bool {
		a := st.Doc.Assembly
		if a == nil || a.Joints[id] == nil {
			return false
		}
		delete(a.Joints, id)
		return true
	})
}

// SetGround fixes an instance in place. An empty id clears the ground.
func (s *Store) SetGround(id string) bool {
	return s.apply("set_ground", "Ground "+id, false, func(st *State) bool {
		a := st.Doc.Assembly
		if a == nil || a.GroundInstanceID == id {
			return false
		}
		if id != "" && a.Instances[id] == nil {
			return false
		}
		a.GroundInstanceID = id
		return true
	})
}

func (st *State) assembly() *graph.Assembly {
	if st.Doc.Assembly == nil {
		st.Doc.Assembly = graph.NewAssembly()
	}
	return st.Doc.Assembly
}
