package store

import (
	"fmt"

	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/part"
)

// State is everything an edit can change. History keeps whole clones of it.
type State struct {
	Doc           *graph.Document
	Parts         []part.Info
	ConsumedParts map[part.ID]part.Info
	NextNodeID    graph.NodeID
	NextPartNum   int
}

// NewState returns an empty document with counters at 1.
func NewState() *State {
	return &State{
		Doc:           graph.New(),
		ConsumedParts: make(map[part.ID]part.Info),
		NextNodeID:    1,
		NextPartNum:   1,
	}
}

// FromDerived wraps a document and the part index recovered from it.
func FromDerived(d *graph.Document, res part.Result) *State {
	return &State{
		Doc:           d,
		Parts:         res.Parts,
		ConsumedParts: make(map[part.ID]part.Info),
		NextNodeID:    res.NextNodeID,
		NextPartNum:   res.NextPartNum,
	}
}

// Clone returns a fully independent copy.
func (st *State) Clone() *State {
	c := &State{
		Doc:           st.Doc.Clone(),
		Parts:         make([]part.Info, len(st.Parts)),
		ConsumedParts: make(map[part.ID]part.Info, len(st.ConsumedParts)),
		NextNodeID:    st.NextNodeID,
		NextPartNum:   st.NextPartNum,
	}
	for i, p := range st.Parts {
		c.Parts[i] = p.Clone()
	}
	for id, p := range st.ConsumedParts {
		c.ConsumedParts[id] = p.Clone()
	}
	return c
}

// Part returns the live part with the given id and its index.
func (st *State) Part(id part.ID) (part.Info, int) {
	i := part.Find(st.Parts, id)
	if i < 0 {
		return nil, -1
	}
	return st.Parts[i], i
}

// Material returns the material key of a live part's root.
func (st *State) Material(id part.ID) (string, bool) {
	p, i := st.Part(id)
	if i < 0 {
		return "", false
	}
	ri := st.Doc.RootIndex(p.Transforms().TranslateID)
	if ri < 0 {
		return "", false
	}
	return st.Doc.Roots[ri].Material, true
}

// Validate checks the document and that the part index agrees with it.
func (st *State) Validate() []graph.ValidationError {
	findings := graph.Validate(st.Doc)

	seen := make(map[part.ID]bool, len(st.Parts))
	for _, p := range st.Parts {
		if seen[p.PartID()] {
			findings = append(findings, partError(p, "duplicate part id"))
		}
		seen[p.PartID()] = true

		if _, consumed := st.ConsumedParts[p.PartID()]; consumed {
			findings = append(findings, partError(p, "part is both live and consumed"))
		}
		c := p.Transforms()
		if st.Doc.RootIndex(c.TranslateID) < 0 {
			findings = append(findings, partError(p, fmt.Sprintf("translate %s is not a root", c.TranslateID)))
		}
		for _, id := range p.OwnedNodes() {
			if !st.Doc.Has(id) {
				findings = append(findings, partError(p, fmt.Sprintf("owned node %s does not exist", id)))
			}
		}
		if n, ok := p.PartID().Num(); ok && n >= st.NextPartNum {
			findings = append(findings, partError(p, fmt.Sprintf("part number %d not below counter %d", n, st.NextPartNum)))
		}
	}
	if max := st.Doc.MaxID(); max >= st.NextNodeID {
		findings = append(findings, graph.ValidationError{
			NodeID:   max,
			Message:  fmt.Sprintf("node id not below counter %s", st.NextNodeID),
			Severity: graph.SeverityError,
		})
	}
	return findings
}

func partError(p part.Info, msg string) graph.ValidationError {
	return graph.ValidationError{
		NodeID:   p.Transforms().TranslateID,
		Message:  fmt.Sprintf("part %s: %s", p.PartID(), msg),
		Severity: graph.SeverityError,
	}
}

// ---------------------------------------------------------------------------
// Allocation helpers. These only run on a working copy inside Store.apply.
// ---------------------------------------------------------------------------

func (st *State) addNode(name string, op graph.Op) graph.NodeID {
	id := st.NextNodeID
	st.NextNodeID++
	st.Doc.AddNode(&graph.Node{ID: id, Name: name, Op: op})
	return id
}

func (st *State) newPartID(kind string) (part.ID, string) {
	n := st.NextPartNum
	st.NextPartNum++
	return part.FormatID(n), part.DefaultName(kind, n)
}

// addChain wraps core in identity scale, rotate and translate nodes and makes
// the translate a root.
func (st *State) addChain(core graph.NodeID, name, material string) part.Chain {
	s := st.addNode("", graph.Scale{Child: core, Factors: graph.OneVec3})
	r := st.addNode("", graph.Rotate{Child: s})
	t := st.addNode(name, graph.Translate{Child: r})
	st.Doc.AddRoot(t, material)
	st.Doc.EnsureDefaultMaterial()
	return part.Chain{ScaleID: s, RotateID: r, TranslateID: t}
}

// consume moves a live part to ConsumedParts and drops its root entry.
func (st *State) consume(i int) {
	p := st.Parts[i]
	st.Doc.RemoveRoot(p.Transforms().TranslateID)
	st.ConsumedParts[p.PartID()] = p
	st.Parts = append(st.Parts[:i], st.Parts[i+1:]...)
}

// ensureChain gives the part at index i a real scale, rotate and translate
// node. Parts derived from bare roots alias missing layers to the core; the
// missing nodes are inserted and the root entry follows the new translate.
func (st *State) ensureChain(i int) part.Info {
	p := st.Parts[i]
	c := p.Transforms()
	core := p.Core()

	s := c.ScaleID
	if _, ok := st.Doc.MustGet(s).Op.(graph.Scale); !ok {
		s = st.addNode("", graph.Scale{Child: core, Factors: graph.OneVec3})
	}
	r := c.RotateID
	if n := st.Doc.MustGet(r); isOp[graph.Rotate](n) {
		n.Op = graph.Rotate{Child: s, Angles: n.Op.(graph.Rotate).Angles}
	} else {
		r = st.addNode("", graph.Rotate{Child: s})
	}
	t := c.TranslateID
	if n := st.Doc.MustGet(t); isOp[graph.Translate](n) {
		n.Op = graph.Translate{Child: r, Offset: n.Op.(graph.Translate).Offset}
	} else {
		t = st.addNode(p.DisplayName(), graph.Translate{Child: r})
		if ri := st.Doc.RootIndex(c.TranslateID); ri >= 0 {
			st.Doc.Roots[ri].Root = t
		}
	}

	next := part.Chain{ScaleID: s, RotateID: r, TranslateID: t}
	if next == c {
		return p
	}
	p = p.WithChain(next)
	st.Parts[i] = p
	return p
}

func isOp[T graph.Op](n *graph.Node) bool {
	_, ok := n.Op.(T)
	return ok
}
