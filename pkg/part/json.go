package part

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/chazu/lignin/pkg/graph"
)

// MarshalInfo encodes a part with a "type" tag followed by its fields.
func MarshalInfo(p Info) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(p.Type())
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(tag)+8)
	out = append(out, `{"type":`...)
	out = append(out, tag...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

// UnmarshalInfo decodes a part written by MarshalInfo. Errors wrap
// graph.ErrMalformed.
func UnmarshalInfo(data []byte) (Info, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: part: %v", graph.ErrMalformed, err)
	}
	var (
		p   Info
		err error
	)
	switch head.Type {
	case TypePrimitive:
		p, err = decodeAs[Primitive](data)
	case TypeBoolean:
		p, err = decodeAs[Boolean](data)
	case TypeExtrude:
		p, err = decodeAs[Extrude](data)
	case TypeRevolve:
		p, err = decodeAs[Revolve](data)
	case TypeSweep:
		p, err = decodeAs[Sweep](data)
	case TypeLoft:
		p, err = decodeAs[Loft](data)
	case TypeModifier:
		p, err = decodeAs[Modifier](data)
	case "":
		return nil, fmt.Errorf("%w: part: missing type", graph.ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: part: unknown type %q", graph.ErrMalformed, head.Type)
	}
	if err != nil {
		return nil, err
	}
	if p.PartID() == "" {
		return nil, fmt.Errorf("%w: part: missing id", graph.ErrMalformed)
	}
	if p.Transforms().TranslateID.IsZero() {
		return nil, fmt.Errorf("%w: part %s: missing translateNodeId", graph.ErrMalformed, p.PartID())
	}
	return p, nil
}

func decodeAs[T Info](data []byte) (Info, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: part: %v", graph.ErrMalformed, err)
	}
	return v, nil
}

// List is an ordered part list with a tagged JSON encoding.
type List []Info

// MarshalJSON implements json.Marshaler.
func (l List) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(l))
	for _, p := range l {
		b, err := MarshalInfo(p)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parts: %v", graph.ErrMalformed, err)
	}
	out := make(List, 0, len(raw))
	for _, r := range raw {
		p, err := UnmarshalInfo(r)
		if err != nil {
			return err
		}
		out = append(out, p)
	}
	*l = out
	return nil
}

// Table maps part ids to parts, as used for consumed parts.
type Table map[ID]Info

// MarshalJSON implements json.Marshaler.
func (t Table) MarshalJSON() ([]byte, error) {
	raw := make(map[ID]json.RawMessage, len(t))
	for id, p := range t {
		b, err := MarshalInfo(p)
		if err != nil {
			return nil, err
		}
		raw[id] = b
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw map[ID]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: consumed parts: %v", graph.ErrMalformed, err)
	}
	out := make(Table, len(raw))
	for id, r := range raw {
		p, err := UnmarshalInfo(r)
		if err != nil {
			return err
		}
		if p.PartID() != id {
			return fmt.Errorf("%w: consumed part %s stored under %s", graph.ErrMalformed, p.PartID(), id)
		}
		out[id] = p
	}
	*t = out
	return nil
}

// SortedIDs returns the table's keys in part-number order.
func (t Table) SortedIDs() []ID {
	ids := make([]ID, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aok := ids[i].Num()
		b, bok := ids[j].Num()
		if aok && bok {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}
