package graph

import (
	"fmt"
	"sort"
)

// JointKind enumerates assembly joint types.
type JointKind string

const (
	JointFixed    JointKind = "fixed"
	JointRevolute JointKind = "revolute"
	JointSlider   JointKind = "slider"
)

// Valid reports whether k is a known joint kind.
func (k JointKind) Valid() bool {
	switch k {
	case JointFixed, JointRevolute, JointSlider:
		return true
	}
	return false
}

// PartDef is a reusable part definition rooted at a node in the graph.
type PartDef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Root NodeID `json:"root"`
}

// Instance places a PartDef in the assembly.
type Instance struct {
	ID       string `json:"id"`
	PartDef  string `json:"part_def"`
	Position Vec3   `json:"position"`
	Rotation Vec3   `json:"rotation"`
}

// Joint connects two instances.
type Joint struct {
	ID        string    `json:"id"`
	Kind      JointKind `json:"kind"`
	InstanceA string    `json:"instance_a"`
	InstanceB string    `json:"instance_b"`
	Axis      Vec3      `json:"axis"`
}

// Assembly is the optional multi-body extension of a document.
type Assembly struct {
	PartDefs         map[string]*PartDef  `json:"part_defs"`
	Instances        map[string]*Instance `json:"instances"`
	Joints           map[string]*Joint    `json:"joints"`
	GroundInstanceID string               `json:"ground_instance_id,omitempty"`

	NextDefNum      int `json:"next_def_num"`
	NextInstanceNum int `json:"next_instance_num"`
	NextJointNum    int `json:"next_joint_num"`
}

// NewAssembly creates an empty assembly.
func NewAssembly() *Assembly {
	return &Assembly{
		PartDefs:        make(map[string]*PartDef),
		Instances:       make(map[string]*Instance),
		Joints:          make(map[string]*Joint),
		NextDefNum:      1,
		NextInstanceNum: 1,
		NextJointNum:    1,
	}
}

// Clone returns a deep copy. A nil assembly clones to nil.
func (a *Assembly) Clone() *Assembly {
	if a == nil {
		return nil
	}
	c := &Assembly{
		PartDefs:         make(map[string]*PartDef, len(a.PartDefs)),
		Instances:        make(map[string]*Instance, len(a.Instances)),
		Joints:           make(map[string]*Joint, len(a.Joints)),
		GroundInstanceID: a.GroundInstanceID,
		NextDefNum:       a.NextDefNum,
		NextInstanceNum:  a.NextInstanceNum,
		NextJointNum:     a.NextJointNum,
	}
	for k, v := range a.PartDefs {
		pd := *v
		c.PartDefs[k] = &pd
	}
	for k, v := range a.Instances {
		in := *v
		c.Instances[k] = &in
	}
	for k, v := range a.Joints {
		j := *v
		c.Joints[k] = &j
	}
	return c
}

// NewDefID allocates the next part definition id.
func (a *Assembly) NewDefID() string {
	id := fmt.Sprintf("def-%d", a.NextDefNum)
	a.NextDefNum++
	return id
}

// NewInstanceID allocates the next instance id.
func (a *Assembly) NewInstanceID() string {
	id := fmt.Sprintf("inst-%d", a.NextInstanceNum)
	a.NextInstanceNum++
	return id
}

// NewJointID allocates the next joint id.
func (a *Assembly) NewJointID() string {
	id := fmt.Sprintf("joint-%d", a.NextJointNum)
	a.NextJointNum++
	return id
}

// RemoveInstance deletes an instance together with every joint that
// references it, and clears the ground if it pointed at the instance.
func (a *Assembly) RemoveInstance(id string) bool {
	if _, ok := a.Instances[id]; !ok {
		return false
	}
	delete(a.Instances, id)
	for jid, j := range a.Joints {
		if j.InstanceA == id || j.InstanceB == id {
			delete(a.Joints, jid)
		}
	}
	if a.GroundInstanceID == id {
		a.GroundInstanceID = ""
	}
	return true
}

// RemovePartDef deletes a definition and cascades to its instances.
func (a *Assembly) RemovePartDef(id string) bool {
	if _, ok := a.PartDefs[id]; !ok {
		return false
	}
	delete(a.PartDefs, id)
	for _, iid := range a.InstanceIDs() {
		if a.Instances[iid].PartDef == id {
			a.RemoveInstance(iid)
		}
	}
	return true
}

// InstanceIDs returns instance ids in sorted order.
func (a *Assembly) InstanceIDs() []string {
	ids := make([]string, 0, len(a.Instances))
	for id := range a.Instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PartDefIDs returns part definition ids in sorted order.
func (a *Assembly) PartDefIDs() []string {
	ids := make([]string, 0, len(a.PartDefs))
	for id := range a.PartDefs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
