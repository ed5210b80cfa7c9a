package graph

import "fmt"

// ValidationSeverity indicates whether a validation finding blocks loading
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks loading
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if document-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID, e.Message)
}

// Validate runs the structural checks on a document and returns every
// finding. Error-severity findings mean an invariant is broken. This
// function is read-only.
func Validate(d *Document) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateIDs(d)...)
	errs = append(errs, validateDAG(d)...)
	errs = append(errs, validateReferences(d)...)
	errs = append(errs, validateRoots(d)...)
	errs = append(errs, validateLoft(d)...)
	errs = append(errs, validateAssembly(d)...)
	return errs
}

// Errors filters findings down to error severity.
func Errors(findings []ValidationError) []ValidationError {
	var out []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

// validateIDs checks that every map key matches its node's id.
func validateIDs(d *Document) []ValidationError {
	var errs []ValidationError
	for _, id := range d.SortedIDs() {
		n := d.Nodes[id]
		switch {
		case n == nil:
			errs = append(errs, ValidationError{NodeID: id, Message: "nil node", Severity: SeverityError})
		case n.ID != id:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("stored under %s but carries id %s", id, n.ID),
				Severity: SeverityError,
			})
		case n.Op == nil:
			errs = append(errs, ValidationError{NodeID: id, Message: "missing op", Severity: SeverityError})
		case id <= 0:
			errs = append(errs, ValidationError{NodeID: id, Message: "id is not positive", Severity: SeverityError})
		}
	}
	return errs
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
// If we encounter a gray node during traversal, we have found a cycle.
func validateDAG(d *Document) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool // returns true if cycle found
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray

		node := d.Nodes[id]
		if node == nil || node.Op == nil {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}

		for _, childID := range node.Op.Children() {
			if visit(childID) {
				return true
			}
		}

		color[id] = black
		return false
	}

	// Start from every node to catch disconnected components. Sorted order
	// keeps the reported node stable.
	for _, id := range d.SortedIDs() {
		if color[id] == white {
			if visit(id) {
				break
			}
		}
	}

	return errs
}

// validateReferences checks that every child reference resolves.
func validateReferences(d *Document) []ValidationError {
	var errs []ValidationError
	for _, id := range d.SortedIDs() {
		node := d.Nodes[id]
		if node == nil || node.Op == nil {
			continue
		}
		for _, childID := range node.Op.Children() {
			if _, ok := d.Nodes[childID]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("%s reference %s does not exist", node.Op.Type(), childID),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateRoots checks that every root exists, is not referenced by another
// node, and is not listed twice. Unknown material keys and nodes unreachable
// from any root are reported as warnings; the inputs of booleans that were
// later removed are expected to show up here.
func validateRoots(d *Document) []ValidationError {
	var errs []ValidationError

	parents := d.Parents()
	seen := make(map[NodeID]bool, len(d.Roots))
	for _, r := range d.Roots {
		if _, ok := d.Nodes[r.Root]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("root reference %s does not exist", r.Root),
				Severity: SeverityError,
			})
			continue
		}
		if seen[r.Root] {
			errs = append(errs, ValidationError{
				NodeID:   r.Root,
				Message:  "root listed more than once",
				Severity: SeverityError,
			})
		}
		seen[r.Root] = true
		if ps := parents[r.Root]; len(ps) > 0 {
			errs = append(errs, ValidationError{
				NodeID:   r.Root,
				Message:  fmt.Sprintf("root is shared: referenced by %s", ps[0]),
				Severity: SeverityError,
			})
		}
		if _, ok := d.Materials[r.Material]; !ok {
			errs = append(errs, ValidationError{
				NodeID:   r.Root,
				Message:  fmt.Sprintf("material %q is not defined", r.Material),
				Severity: SeverityWarning,
			})
		}
	}

	if len(d.Nodes) == 0 {
		return errs
	}

	reachable := d.Reachable()
	for _, id := range d.SortedIDs() {
		if !reachable[id] {
			name := d.Nodes[id].Name
			if name == "" {
				name = id.String()
			}
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("node %q is not reachable from any root (orphan)", name),
				Severity: SeverityWarning,
			})
		}
	}

	return errs
}

// validateLoft checks the minimum sketch count and that feature inputs are
// sketches.
func validateLoft(d *Document) []ValidationError {
	var errs []ValidationError
	for _, id := range d.SortedIDs() {
		n := d.Nodes[id]
		if n == nil || n.Op == nil || !n.Op.Type().IsFeature() {
			continue
		}
		if l, ok := n.Op.(Loft); ok && len(l.Sketches) < 2 {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("loft needs at least 2 sketches, has %d", len(l.Sketches)),
				Severity: SeverityError,
			})
		}
		for _, sid := range n.Op.Children() {
			if s := d.Nodes[sid]; s != nil && s.Op != nil && s.Op.Type() != OpSketch2D {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("%s input %s is %s, not sketch", n.Op.Type(), sid, s.Op.Type()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateAssembly checks assembly cross references.
func validateAssembly(d *Document) []ValidationError {
	a := d.Assembly
	if a == nil {
		return nil
	}
	var errs []ValidationError
	for _, id := range a.PartDefIDs() {
		pd := a.PartDefs[id]
		if _, ok := d.Nodes[pd.Root]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("part def %s root %s does not exist", id, pd.Root),
				Severity: SeverityError,
			})
		}
	}
	for _, id := range a.InstanceIDs() {
		in := a.Instances[id]
		if _, ok := a.PartDefs[in.PartDef]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("instance %s references unknown part def %s", id, in.PartDef),
				Severity: SeverityError,
			})
		}
	}
	for jid, j := range a.Joints {
		for _, ref := range []string{j.InstanceA, j.InstanceB} {
			if _, ok := a.Instances[ref]; !ok {
				errs = append(errs, ValidationError{
					Message:  fmt.Sprintf("joint %s references unknown instance %s", jid, ref),
					Severity: SeverityError,
				})
			}
		}
		if j.InstanceA == j.InstanceB {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("joint %s connects instance %s to itself", jid, j.InstanceA),
				Severity: SeverityError,
			})
		}
	}
	if g := a.GroundInstanceID; g != "" {
		if _, ok := a.Instances[g]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("ground instance %s does not exist", g),
				Severity: SeverityError,
			})
		}
	}
	return errs
}
