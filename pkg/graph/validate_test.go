package graph

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// buildValidPart creates a box wrapped in the standard scale/rotate/translate
// chain with the translate node as the only root.
func buildValidPart() *Document {
	d := New()
	d.EnsureDefaultMaterial()
	d.AddNode(&Node{ID: 1, Op: Box{Width: 10, Height: 10, Depth: 10}})
	d.AddNode(&Node{ID: 2, Op: Scale{Child: 1, Factors: OneVec3}})
	d.AddNode(&Node{ID: 3, Op: Rotate{Child: 2}})
	d.AddNode(&Node{ID: 4, Name: "Cube 1", Op: Translate{Child: 3}})
	d.AddRoot(4, DefaultMaterial)
	return d
}

// hasError returns true if errs contains at least one error-severity finding
// whose message contains substr.
func hasError(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityError && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// hasWarning returns true if errs contains at least one warning-severity
// finding whose message contains substr.
func hasWarning(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityWarning && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// errorCount returns the number of error-severity findings.
func errorCount(errs []ValidationError) int {
	return len(Errors(errs))
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestValidateValidPart(t *testing.T) {
	errs := Validate(buildValidPart())
	if len(errs) != 0 {
		t.Fatalf("expected no findings, got %v", errs)
	}
}

func TestValidateEmptyDocument(t *testing.T) {
	if errs := Validate(New()); len(errs) != 0 {
		t.Fatalf("empty document: %v", errs)
	}
}

func TestValidateCycle(t *testing.T) {
	d := buildValidPart()
	// Point the scale back at the translate: 4 -> 3 -> 2 -> 4.
	d.Nodes[2].Op = Scale{Child: 4, Factors: OneVec3}

	errs := Validate(d)
	if !hasError(errs, "cycle detected") {
		t.Errorf("expected cycle error, got %v", errs)
	}
}

func TestValidateSelfReference(t *testing.T) {
	d := New()
	d.AddNode(&Node{ID: 1, Op: Translate{Child: 1}})
	if !hasError(Validate(d), "cycle detected") {
		t.Error("self-referencing node should be a cycle")
	}
}

func TestValidateDanglingReference(t *testing.T) {
	d := buildValidPart()
	d.Nodes[3].Op = Rotate{Child: 99}

	errs := Validate(d)
	if !hasError(errs, "rotate reference #99 does not exist") {
		t.Errorf("expected dangling reference error, got %v", errs)
	}
}

func TestValidateMissingRoot(t *testing.T) {
	d := buildValidPart()
	d.AddRoot(42, DefaultMaterial)
	if !hasError(Validate(d), "root reference #42 does not exist") {
		t.Error("expected missing root error")
	}
}

func TestValidateSharedRoot(t *testing.T) {
	d := buildValidPart()
	d.AddNode(&Node{ID: 5, Op: Box{Width: 1, Height: 1, Depth: 1}})
	d.AddNode(&Node{ID: 6, Op: Boolean{Kind: OpUnion, Left: 4, Right: 5}})
	d.AddRoot(6, DefaultMaterial)

	errs := Validate(d)
	if !hasError(errs, "root is shared") {
		t.Errorf("expected shared root error, got %v", errs)
	}
}

func TestValidateDuplicateRoot(t *testing.T) {
	d := buildValidPart()
	d.AddRoot(4, DefaultMaterial)
	if !hasError(Validate(d), "more than once") {
		t.Error("expected duplicate root error")
	}
}

func TestValidateOrphanIsWarning(t *testing.T) {
	d := buildValidPart()
	d.AddNode(&Node{ID: 7, Name: "stray", Op: Sphere{Radius: 3}})

	errs := Validate(d)
	if errorCount(errs) != 0 {
		t.Errorf("orphans must not be errors: %v", errs)
	}
	if !hasWarning(errs, `"stray" is not reachable`) {
		t.Errorf("expected orphan warning, got %v", errs)
	}
}

func TestValidateUnknownMaterialIsWarning(t *testing.T) {
	d := buildValidPart()
	d.Roots[0].Material = "walnut"
	errs := Validate(d)
	if errorCount(errs) != 0 || !hasWarning(errs, `material "walnut"`) {
		t.Errorf("unexpected findings: %v", errs)
	}
}

func TestValidateMismatchedKey(t *testing.T) {
	d := buildValidPart()
	d.Nodes[10] = &Node{ID: 11, Op: Sphere{Radius: 1}}
	if !hasError(Validate(d), "carries id #11") {
		t.Error("expected id mismatch error")
	}
}

func TestValidateLoft(t *testing.T) {
	d := New()
	d.AddNode(&Node{ID: 1, Op: RectSketch(10, 10)})
	d.AddNode(&Node{ID: 2, Op: Loft{Sketches: []NodeID{1}}})
	d.AddRoot(2, DefaultMaterial)
	if !hasError(Validate(d), "at least 2 sketches") {
		t.Error("single-sketch loft should be rejected")
	}

	d.AddNode(&Node{ID: 3, Op: Box{Width: 1, Height: 1, Depth: 1}})
	d.Nodes[2].Op = Loft{Sketches: []NodeID{1, 3}}
	if !hasError(Validate(d), "is box, not sketch") {
		t.Error("loft over a box should be rejected")
	}
}

func TestValidateAssembly(t *testing.T) {
	d := buildValidPart()
	a := NewAssembly()
	a.PartDefs["def-1"] = &PartDef{ID: "def-1", Root: 4}
	a.Instances["inst-1"] = &Instance{ID: "inst-1", PartDef: "def-1"}
	a.Instances["inst-2"] = &Instance{ID: "inst-2", PartDef: "def-9"}
	a.Joints["joint-1"] = &Joint{ID: "joint-1", Kind: JointFixed, InstanceA: "inst-1", InstanceB: "inst-3"}
	a.GroundInstanceID = "inst-7"
	d.Assembly = a

	errs := Validate(d)
	for _, want := range []string{
		"unknown part def def-9",
		"unknown instance inst-3",
		"ground instance inst-7",
	} {
		if !hasError(errs, want) {
			t.Errorf("missing error %q in %v", want, errs)
		}
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{NodeID: 3, Message: "boom", Severity: SeverityError}
	if got := e.Error(); got != "[error] node #3: boom" {
		t.Errorf("Error() = %q", got)
	}
	e = ValidationError{Message: "doc", Severity: SeverityWarning}
	if got := e.Error(); got != "[warning] doc" {
		t.Errorf("Error() = %q", got)
	}
}
