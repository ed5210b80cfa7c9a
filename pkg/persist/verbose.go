package persist

import (
	"encoding/json"
	"fmt"

	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/part"
	"github.com/chazu/lignin/pkg/store"
	"github.com/google/uuid"
)

const (
	containerFormat  = "lignin-document"
	containerVersion = 1
)

// containerKeys are the fields the container owns; anything else is kept in
// File.extra.
var containerKeys = map[string]bool{
	"format":        true,
	"version":       true,
	"id":            true,
	"document":      true,
	"parts":         true,
	"consumedParts": true,
	"nextNodeId":    true,
	"nextPartNum":   true,
}

type container struct {
	Format        string          `json:"format"`
	Version       int             `json:"version"`
	ID            string          `json:"id"`
	Document      *graph.Document `json:"document"`
	Parts         part.List       `json:"parts"`
	ConsumedParts part.Table      `json:"consumedParts"`
	NextNodeID    graph.NodeID    `json:"nextNodeId"`
	NextPartNum   int             `json:"nextPartNum"`
}

// decodeVerbose parses the verbose form. With strict unset, structural
// errors in the graph are left for the caller to report.
func decodeVerbose(data []byte, strict bool) (*File, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, ok := raw["document"]; !ok {
		return decodeBareDocument(data, strict)
	}

	var c container
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, wrap(err)
	}
	if c.Format != "" && c.Format != containerFormat {
		return nil, fmt.Errorf("%w: unknown container format %q", ErrMalformed, c.Format)
	}
	if c.Version > containerVersion {
		return nil, fmt.Errorf("%w: container version %d is newer than %d", ErrMalformed, c.Version, containerVersion)
	}
	if c.Document == nil {
		return nil, fmt.Errorf("%w: document is null", ErrMalformed)
	}

	f := &File{ID: c.ID, extra: make(map[string]json.RawMessage)}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	for k, v := range raw {
		if !containerKeys[k] {
			f.extra[k] = v
		}
	}

	if _, ok := raw["parts"]; !ok {
		if err := checkGraph(c.Document, strict); err != nil {
			return nil, err
		}
		res := part.Derive(c.Document)
		f.State = store.FromDerived(c.Document, res)
		f.Derived = true
		f.Skipped = res.Skipped
		return f, nil
	}

	st := &store.State{
		Doc:           c.Document,
		Parts:         []part.Info(c.Parts),
		ConsumedParts: map[part.ID]part.Info(c.ConsumedParts),
		NextNodeID:    c.NextNodeID,
		NextPartNum:   c.NextPartNum,
	}
	if st.ConsumedParts == nil {
		st.ConsumedParts = make(map[part.ID]part.Info)
	}
	fillCounters(st)
	f.State = st
	return f, nil
}

// decodeBareDocument accepts a verbose document written without the
// container and derives its parts.
func decodeBareDocument(data []byte, strict bool) (*File, error) {
	var doc graph.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, wrap(err)
	}
	if err := checkGraph(&doc, strict); err != nil {
		return nil, err
	}
	res := part.Derive(&doc)
	return &File{
		ID:      uuid.NewString(),
		State:   store.FromDerived(&doc, res),
		Derived: true,
		Skipped: res.Skipped,
	}, nil
}

// fillCounters raises counters that are missing or would collide with ids
// already in use.
func fillCounters(st *store.State) {
	if floor := st.Doc.MaxID() + 1; st.NextNodeID < floor {
		st.NextNodeID = floor
	}
	highest := 0
	for _, p := range st.Parts {
		if n, ok := p.PartID().Num(); ok {
			highest = max(highest, n)
		}
	}
	for id := range st.ConsumedParts {
		if n, ok := id.Num(); ok {
			highest = max(highest, n)
		}
	}
	if st.NextPartNum <= highest {
		st.NextPartNum = highest + 1
	}
}

func encodeVerbose(f *File) ([]byte, error) {
	id := f.ID
	if id == "" {
		id = uuid.NewString()
	}
	consumed := part.Table(f.State.ConsumedParts)
	if consumed == nil {
		consumed = part.Table{}
	}
	parts := part.List(f.State.Parts)
	if parts == nil {
		parts = part.List{}
	}
	c := container{
		Format:        containerFormat,
		Version:       containerVersion,
		ID:            id,
		Document:      f.State.Doc,
		Parts:         parts,
		ConsumedParts: consumed,
		NextNodeID:    f.State.NextNodeID,
		NextPartNum:   f.State.NextPartNum,
	}
	if len(f.extra) == 0 {
		return json.MarshalIndent(c, "", "  ")
	}

	// Merge unknown fields back in. encoding/json sorts map keys, which
	// keeps the output deterministic.
	known, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range f.extra {
		merged[k] = v
	}
	return json.MarshalIndent(merged, "", "  ")
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if isMalformed(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
