package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrMalformed marks a persisted document that cannot be loaded: a missing
// required field, an unknown operation, or a broken reference.
var ErrMalformed = errors.New("malformed document")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// MarshalOp encodes op as a JSON object tagged with its "type".
func MarshalOp(op Op) ([]byte, error) {
	if op == nil {
		return nil, errors.New("graph: nil op")
	}
	body, err := json.Marshal(op)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(op.Type())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeAs[T Op](data []byte) (Op, error) {
	var o T
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	return o, nil
}

// UnmarshalOp decodes a tagged operation object.
func UnmarshalOp(data []byte) (Op, error) {
	var head struct {
		Type *OpType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, malformed("op: %v", err)
	}
	if head.Type == nil {
		return nil, malformed("op: missing type")
	}

	var (
		op  Op
		err error
	)
	switch t := *head.Type; t {
	case OpBox:
		op, err = decodeAs[Box](data)
	case OpCylinder:
		op, err = decodeAs[Cylinder](data)
	case OpSphere:
		op, err = decodeAs[Sphere](data)
	case OpCone:
		op, err = decodeAs[Cone](data)
	case OpTranslate:
		op, err = decodeAs[Translate](data)
	case OpRotate:
		op, err = decodeAs[Rotate](data)
	case OpScale:
		op, err = decodeAs[Scale](data)
	case OpUnion, OpDifference, OpIntersection:
		var b Boolean
		err = json.Unmarshal(data, &b)
		b.Kind = t
		op = b
	case OpSketch2D:
		op, err = decodeAs[Sketch2D](data)
	case OpExtrude:
		op, err = decodeAs[Extrude](data)
	case OpRevolve:
		op, err = decodeAs[Revolve](data)
	case OpSweep:
		op, err = decodeAs[Sweep](data)
	case OpLoft:
		op, err = decodeAs[Loft](data)
	case OpFillet:
		op, err = decodeAs[Fillet](data)
	case OpChamfer:
		op, err = decodeAs[Chamfer](data)
	case OpShell:
		op, err = decodeAs[Shell](data)
	case OpLinearPattern:
		op, err = decodeAs[LinearPattern](data)
	case OpCircularPattern:
		op, err = decodeAs[CircularPattern](data)
	default:
		return nil, malformed("op: unknown type %q", t)
	}
	if err != nil {
		return nil, malformed("op %q: %v", *head.Type, err)
	}
	return op, nil
}

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

type nodeJSON struct {
	ID   *NodeID         `json:"id"`
	Name string          `json:"name,omitempty"`
	Op   json.RawMessage `json:"op"`
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	op, err := MarshalOp(n.Op)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.ID, err)
	}
	id := n.ID
	return json.Marshal(nodeJSON{ID: &id, Name: n.Name, Op: op})
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return malformed("node: %v", err)
	}
	if raw.ID == nil {
		return malformed("node: missing id")
	}
	if *raw.ID <= 0 {
		return malformed("node: id %d is not positive", int64(*raw.ID))
	}
	if len(raw.Op) == 0 {
		return malformed("node %s: missing op", *raw.ID)
	}
	op, err := UnmarshalOp(raw.Op)
	if err != nil {
		return fmt.Errorf("node %s: %w", *raw.ID, err)
	}
	n.ID = *raw.ID
	n.Name = raw.Name
	n.Op = op
	return nil
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

var documentFields = map[string]bool{
	"nodes": true, "roots": true, "materials": true, "assembly": true,
}

// MarshalJSON writes nodes as an id-sorted array so output is deterministic.
// Unknown fields captured on load are written back.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Extra)+4)
	for k, v := range d.Extra {
		if !documentFields[k] {
			out[k] = v
		}
	}

	nodes := make([]*Node, 0, len(d.Nodes))
	for _, id := range d.SortedIDs() {
		nodes = append(nodes, d.Nodes[id])
	}
	roots := d.Roots
	if roots == nil {
		roots = []Root{}
	}
	materials := d.Materials
	if materials == nil {
		materials = map[string]MaterialDef{}
	}

	var err error
	if out["nodes"], err = json.Marshal(nodes); err != nil {
		return nil, err
	}
	if out["roots"], err = json.Marshal(roots); err != nil {
		return nil, err
	}
	if out["materials"], err = json.Marshal(materials); err != nil {
		return nil, err
	}
	if d.Assembly != nil {
		if out["assembly"], err = json.Marshal(d.Assembly); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON requires "nodes" and "roots". Node ids must be unique.
// Reference integrity is checked separately by Validate.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return malformed("document: %v", err)
	}
	for _, field := range []string{"nodes", "roots"} {
		if _, ok := raw[field]; !ok {
			return malformed("document: missing %q", field)
		}
	}

	var nodes []*Node
	if err := json.Unmarshal(raw["nodes"], &nodes); err != nil {
		return wrapMalformed("document nodes", err)
	}
	var roots []Root
	if err := json.Unmarshal(raw["roots"], &roots); err != nil {
		return wrapMalformed("document roots", err)
	}
	materials := make(map[string]MaterialDef)
	if m, ok := raw["materials"]; ok {
		if err := json.Unmarshal(m, &materials); err != nil {
			return wrapMalformed("document materials", err)
		}
		if materials == nil {
			materials = make(map[string]MaterialDef)
		}
	}
	var asm *Assembly
	if a, ok := raw["assembly"]; ok && string(a) != "null" {
		asm = NewAssembly()
		if err := json.Unmarshal(a, asm); err != nil {
			return wrapMalformed("document assembly", err)
		}
	}

	byID := make(map[NodeID]*Node, len(nodes))
	for _, n := range nodes {
		if n == nil {
			return malformed("document: null node")
		}
		if _, dup := byID[n.ID]; dup {
			return malformed("document: duplicate node id %s", n.ID)
		}
		byID[n.ID] = n
	}

	var extra map[string]json.RawMessage
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if documentFields[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = raw[k]
	}

	d.Nodes = byID
	d.Roots = roots
	d.Materials = materials
	d.Assembly = asm
	d.Extra = extra
	return nil
}

func wrapMalformed(what string, err error) error {
	if errors.Is(err, ErrMalformed) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return malformed("%s: %v", what, err)
}
