package eval_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/chazu/lignin/pkg/eval"
	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/kernel"
	"github.com/chazu/lignin/pkg/kernel/sdfx"
	"github.com/chazu/lignin/pkg/metrics"
	"github.com/chazu/lignin/pkg/part"
	"github.com/chazu/lignin/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// countingKernel wraps the sdfx kernel and counts expensive calls.
type countingKernel struct {
	kernel.Kernel
	boxes  atomic.Int32
	meshes atomic.Int32
}

func (k *countingKernel) Box(x, y, z float64) (kernel.Solid, error) {
	k.boxes.Add(1)
	return k.Kernel.Box(x, y, z)
}

func (k *countingKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	k.meshes.Add(1)
	return k.Kernel.ToMesh(s)
}

func newKernel() *countingKernel {
	return &countingKernel{Kernel: sdfx.New(sdfx.WithMeshCells(24))}
}

func evaluate(t *testing.T, e *eval.Evaluator, d *graph.Document, opts eval.Options) *eval.Scene {
	t.Helper()
	scene, err := e.Evaluate(context.Background(), d, opts)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	return scene
}

func assertBounds(t *testing.T, p eval.Part, wantMin, wantMax [3]float64) {
	t.Helper()
	if p.Err != nil {
		t.Fatalf("part %s failed: %v", p.Name, p.Err)
	}
	const tol = 0.01
	for i := 0; i < 3; i++ {
		if math.Abs(p.Min[i]-wantMin[i]) > tol {
			t.Errorf("%s: min[%d] = %f, expected ~%f", p.Name, i, p.Min[i], wantMin[i])
		}
		if math.Abs(p.Max[i]-wantMax[i]) > tol {
			t.Errorf("%s: max[%d] = %f, expected ~%f", p.Name, i, p.Max[i], wantMax[i])
		}
	}
}

// docOf builds a document from nodes and roots, all with the default
// material.
func docOf(nodes []*graph.Node, roots ...graph.NodeID) *graph.Document {
	d := graph.New()
	for _, n := range nodes {
		d.AddNode(n)
	}
	for _, r := range roots {
		d.AddRoot(r, graph.DefaultMaterial)
	}
	d.EnsureDefaultMaterial()
	return d
}

func TestSingleCube(t *testing.T) {
	s := store.New()
	s.AddPrimitive(part.ShapeCube)

	scene := evaluate(t, eval.New(newKernel()), s.Doc(), eval.Options{})
	if len(scene.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(scene.Parts))
	}
	p := scene.Parts[0]
	if p.Name != "Cube 1" {
		t.Errorf("Name = %q, want %q", p.Name, "Cube 1")
	}
	if p.Material != graph.DefaultMaterial {
		t.Errorf("Material = %q, want %q", p.Material, graph.DefaultMaterial)
	}
	if p.Mesh != nil {
		t.Error("mesh should only be produced when tessellating")
	}
	// Documents centre boxes on the origin.
	assertBounds(t, p, [3]float64{-10, -10, -10}, [3]float64{10, 10, 10})
}

func TestEmptyDocuments(t *testing.T) {
	e := eval.New(newKernel())
	if scene := evaluate(t, e, nil, eval.Options{}); len(scene.Parts) != 0 {
		t.Errorf("nil document produced %d parts", len(scene.Parts))
	}
	if scene := evaluate(t, e, graph.New(), eval.Options{}); len(scene.Parts) != 0 {
		t.Errorf("empty document produced %d parts", len(scene.Parts))
	}
}

func TestTransformsMoveBounds(t *testing.T) {
	s := store.New()
	id, _ := s.AddPrimitive(part.ShapeCube)
	s.SetScale(id, graph.Vec3{X: 2, Y: 1, Z: 1}, false)
	s.SetTranslate(id, graph.Vec3{X: 100}, false)

	scene := evaluate(t, eval.New(newKernel()), s.Doc(), eval.Options{})
	assertBounds(t, scene.Parts[0], [3]float64{80, -10, -10}, [3]float64{120, 10, 10})
}

func TestTessellateNamesMeshes(t *testing.T) {
	s := store.New()
	id, _ := s.AddPrimitive(part.ShapeCube)
	s.RenamePart(id, "Leg")

	k := newKernel()
	e := eval.New(k)
	scene := evaluate(t, e, s.Doc(), eval.Options{Tessellate: true})
	m := scene.Parts[0].Mesh
	if m == nil || m.IsEmpty() {
		t.Fatal("expected a non-empty mesh")
	}
	if m.Name != "Leg" || m.Material != graph.DefaultMaterial {
		t.Errorf("mesh labelled %q/%q, want Leg/default", m.Name, m.Material)
	}

	// Unchanged roots reuse their mesh.
	evaluate(t, e, s.Doc(), eval.Options{Tessellate: true})
	if got := k.meshes.Load(); got != 1 {
		t.Errorf("ToMesh called %d times, want 1", got)
	}
}

func TestCacheReusesUnchangedNodes(t *testing.T) {
	s := store.New()
	a, _ := s.AddPrimitive(part.ShapeCube)
	s.AddPrimitive(part.ShapeCube)

	k := newKernel()
	e := eval.New(k)

	first := evaluate(t, e, s.Doc(), eval.Options{})
	if first.Hits != 0 || first.Misses != 8 {
		t.Errorf("first evaluation hits/misses = %d/%d, want 0/8", first.Hits, first.Misses)
	}

	second := evaluate(t, e, s.Doc(), eval.Options{})
	if second.Hits != 8 || second.Misses != 0 {
		t.Errorf("second evaluation hits/misses = %d/%d, want 8/0", second.Hits, second.Misses)
	}

	// Moving one part only rebuilds its translate node.
	s.SetTranslate(a, graph.Vec3{X: 5}, false)
	third := evaluate(t, e, s.Doc(), eval.Options{})
	if third.Misses != 1 {
		t.Errorf("after move misses = %d, want 1", third.Misses)
	}
	if got := k.boxes.Load(); got != 2 {
		t.Errorf("Box called %d times, want 2", got)
	}
	assertBounds(t, third.Parts[0], [3]float64{-5, -10, -10}, [3]float64{15, 10, 10})

	// Changing the primitive rebuilds the whole chain above it.
	s.SetPrimitive(a, graph.Box{Width: 4, Height: 4, Depth: 4}, false)
	fourth := evaluate(t, e, s.Doc(), eval.Options{})
	if fourth.Misses != 4 {
		t.Errorf("after resize misses = %d, want 4", fourth.Misses)
	}
	assertBounds(t, fourth.Parts[0], [3]float64{3, -2, -2}, [3]float64{7, 2, 2})
}

func TestInvalidateNodesDropsDependents(t *testing.T) {
	s := store.New()
	a, _ := s.AddPrimitive(part.ShapeCube)
	s.AddPrimitive(part.ShapeCube)

	k := newKernel()
	e := eval.New(k)
	evaluate(t, e, s.Doc(), eval.Options{})
	if got := e.CacheLen(); got != 8 {
		t.Fatalf("CacheLen() = %d, want 8", got)
	}

	info, _ := s.Part(a)
	e.InvalidateNodes([]graph.NodeID{info.Core()})
	if got := e.CacheLen(); got != 4 {
		t.Errorf("CacheLen() after invalidate = %d, want 4", got)
	}

	scene := evaluate(t, e, s.Doc(), eval.Options{})
	if scene.Misses != 4 {
		t.Errorf("misses = %d, want 4", scene.Misses)
	}
	if got := k.boxes.Load(); got != 3 {
		t.Errorf("Box called %d times, want 3", got)
	}
}

func TestBooleanParts(t *testing.T) {
	s := store.New()
	a, _ := s.AddPrimitive(part.ShapeCube)
	b, _ := s.AddPrimitive(part.ShapeCylinder)
	s.ApplyBoolean(graph.OpDifference, a, b)

	scene := evaluate(t, eval.New(newKernel()), s.Doc(), eval.Options{Tessellate: true})
	if len(scene.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(scene.Parts))
	}
	p := scene.Parts[0]
	// A difference keeps the extent of its left input.
	assertBounds(t, p, [3]float64{-10, -10, -10}, [3]float64{10, 10, 10})
	if p.Mesh == nil || p.Mesh.IsEmpty() {
		t.Error("expected a non-empty mesh")
	}
}

func TestSweepIsUnsupported(t *testing.T) {
	s := store.New()
	s.AddPrimitive(part.ShapeSphere)
	s.AddSweep(graph.RectSketch(4, 4), []graph.Vec3{{}, {Z: 10}})

	scene := evaluate(t, eval.New(newKernel()), s.Doc(), eval.Options{})
	if len(scene.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(scene.Parts))
	}
	if scene.Parts[0].Err != nil {
		t.Errorf("sphere failed: %v", scene.Parts[0].Err)
	}
	err := scene.Parts[1].Err
	if !errors.Is(err, eval.ErrUnsupported) {
		t.Fatalf("sweep err = %v, want ErrUnsupported", err)
	}
	var ne *eval.NodeError
	if !errors.As(err, &ne) {
		t.Fatalf("sweep err %T is not a NodeError", err)
	}
	if failed := scene.Failed(); len(failed) != 1 {
		t.Errorf("Failed() = %d parts, want 1", len(failed))
	}
}

func TestFilletWarnsAndPassesThrough(t *testing.T) {
	s := store.New()
	a, _ := s.AddPrimitive(part.ShapeCube)
	s.ApplyModifier(a, graph.Fillet{Radius: 2})

	e := eval.New(newKernel())
	for i := 0; i < 2; i++ {
		scene := evaluate(t, e, s.Doc(), eval.Options{})
		if len(scene.Warnings) != 1 {
			t.Fatalf("run %d: warnings = %v, want one", i, scene.Warnings)
		}
		if !strings.Contains(scene.Warnings[0].Message, "fillet") {
			t.Errorf("warning %q does not mention fillet", scene.Warnings[0].Message)
		}
		assertBounds(t, scene.Parts[0], [3]float64{-10, -10, -10}, [3]float64{10, 10, 10})
	}
}

func TestExtrudeOnSketchPlane(t *testing.T) {
	// An XZ sketch has normal X x Z = -Y, so the extrusion runs toward -Y.
	sk := graph.RectSketch(10, 10)
	sk.V = graph.UnitZ
	d := docOf([]*graph.Node{
		{ID: 1, Op: sk},
		{ID: 2, Name: "Wall", Op: graph.Extrude{Sketch: 1, Depth: 5}},
	}, 2)

	scene := evaluate(t, eval.New(newKernel()), d, eval.Options{})
	p := scene.Parts[0]
	if p.Name != "Wall" {
		t.Errorf("Name = %q, want Wall", p.Name)
	}
	assertBounds(t, p, [3]float64{0, -5, 0}, [3]float64{10, 0, 10})
}

func TestRevolveAboutSketchV(t *testing.T) {
	sk := graph.Sketch2D{
		U: graph.UnitX,
		V: graph.UnitY,
		Segments: []graph.Segment{
			graph.Line(5, 0, 10, 0),
			graph.Line(10, 0, 10, 4),
			graph.Line(10, 4, 5, 4),
			graph.Line(5, 4, 5, 0),
		},
	}
	d := docOf([]*graph.Node{
		{ID: 1, Op: sk},
		{ID: 2, Op: graph.Revolve{Sketch: 1, Angle: 360}},
	}, 2)

	scene := evaluate(t, eval.New(newKernel()), d, eval.Options{})
	assertBounds(t, scene.Parts[0], [3]float64{-10, 0, -10}, [3]float64{10, 4, 10})
	if scene.Parts[0].Name != "#2" {
		t.Errorf("unnamed root Name = %q, want #2", scene.Parts[0].Name)
	}
}

func TestLoft(t *testing.T) {
	low := graph.RectSketch(10, 10)
	high := graph.RectSketch(10, 10)
	high.Origin = graph.Vec3{Z: 10}
	d := docOf([]*graph.Node{
		{ID: 1, Op: low},
		{ID: 2, Op: high},
		{ID: 3, Op: graph.Loft{Sketches: []graph.NodeID{1, 2}}},
		{ID: 4, Op: graph.Loft{Sketches: []graph.NodeID{2, 1}}},
	}, 3, 4)

	scene := evaluate(t, eval.New(newKernel()), d, eval.Options{})
	p := scene.Parts[0]
	if p.Err != nil {
		t.Fatalf("loft failed: %v", p.Err)
	}
	if math.Abs(p.Min[2]) > 0.5 || math.Abs(p.Max[2]-10) > 0.5 {
		t.Errorf("loft Z extent = [%f, %f], want ~[0, 10]", p.Min[2], p.Max[2])
	}
	if !errors.Is(scene.Parts[1].Err, kernel.ErrInvalidGeometry) {
		t.Errorf("downward loft err = %v, want ErrInvalidGeometry", scene.Parts[1].Err)
	}
}

func TestPatterns(t *testing.T) {
	d := docOf([]*graph.Node{
		{ID: 1, Op: graph.Box{Width: 20, Height: 20, Depth: 20}},
		{ID: 2, Op: graph.LinearPattern{Child: 1, Direction: graph.Vec3{X: 2}, Count: 3, Spacing: 30}},
		{ID: 3, Op: graph.Box{Width: 10, Height: 10, Depth: 10}},
		{ID: 4, Op: graph.Translate{Child: 3, Offset: graph.Vec3{X: 20}}},
		{ID: 5, Op: graph.CircularPattern{Child: 4, Axis: graph.UnitZ, Count: 4, Angle: 360}},
	}, 2, 5)

	scene := evaluate(t, eval.New(newKernel()), d, eval.Options{})
	assertBounds(t, scene.Parts[0], [3]float64{-10, -10, -10}, [3]float64{70, 10, 10})
	assertBounds(t, scene.Parts[1], [3]float64{-25, -25, -5}, [3]float64{25, 25, 5})
}

func TestGeometryErrorsStayOnTheirPart(t *testing.T) {
	d := docOf([]*graph.Node{
		{ID: 1, Op: graph.Sphere{Radius: -1}},
		{ID: 2, Op: graph.Sphere{Radius: 3}},
		{ID: 3, Op: graph.Scale{Child: 2, Factors: graph.Vec3{X: 1, Y: 0, Z: 1}}},
		{ID: 4, Op: graph.RectSketch(1, 1)},
		{ID: 5, Op: graph.Sphere{Radius: 3}},
	}, 1, 3, 4, 5)

	scene := evaluate(t, eval.New(newKernel()), d, eval.Options{})
	for i, want := range []bool{true, true, true, false} {
		if got := scene.Parts[i].Err != nil; got != want {
			t.Errorf("part %d failed = %v (%v), want %v", i, got, scene.Parts[i].Err, want)
		}
	}
	if !errors.Is(scene.Parts[0].Err, kernel.ErrInvalidGeometry) {
		t.Errorf("negative sphere err = %v, want ErrInvalidGeometry", scene.Parts[0].Err)
	}
	if !strings.Contains(scene.Parts[2].Err.Error(), "sketch") {
		t.Errorf("sketch root err = %v", scene.Parts[2].Err)
	}
}

func TestValidationAndSkippedChecks(t *testing.T) {
	dangling := graph.New()
	dangling.AddNode(&graph.Node{ID: 1, Op: graph.Translate{Child: 9}})
	dangling.AddRoot(1, graph.DefaultMaterial)
	dangling.EnsureDefaultMaterial()

	e := eval.New(newKernel())
	if _, err := e.Evaluate(context.Background(), dangling, eval.Options{}); !errors.Is(err, eval.ErrInvalidDocument) {
		t.Fatalf("err = %v, want ErrInvalidDocument", err)
	}

	scene := evaluate(t, e, dangling, eval.Options{SkipExpensiveChecks: true})
	if err := scene.Parts[0].Err; err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("dangling err = %v", err)
	}

	cyclic := docOf([]*graph.Node{
		{ID: 1, Op: graph.Translate{Child: 2}},
		{ID: 2, Op: graph.Translate{Child: 1}},
	}, 1)
	scene = evaluate(t, e, cyclic, eval.Options{SkipExpensiveChecks: true})
	if err := scene.Parts[0].Err; err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Errorf("cycle err = %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	s := store.New()
	s.AddPrimitive(part.ShapeCube)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eval.New(newKernel()).Evaluate(ctx, s.Doc(), eval.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRootOrderWithParallelism(t *testing.T) {
	s := store.New()
	shapes := []part.Shape{part.ShapeCube, part.ShapeSphere, part.ShapeCone, part.ShapeCylinder, part.ShapeCube}
	for _, sh := range shapes {
		s.AddPrimitive(sh)
	}
	for _, n := range []int{1, 4} {
		scene := evaluate(t, eval.New(newKernel(), eval.WithParallelism(n)), s.Doc(), eval.Options{})
		for i, p := range scene.Parts {
			if p.Root != s.Doc().Roots[i].Root {
				t.Errorf("parallelism %d: part %d root = %s, want %s", n, i, p.Root, s.Doc().Roots[i].Root)
			}
			if p.Err != nil {
				t.Errorf("parallelism %d: part %d failed: %v", n, i, p.Err)
			}
		}
	}
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := eval.New(newKernel(), eval.WithMetrics(metrics.New(reg)))

	s := store.New()
	s.AddPrimitive(part.ShapeCube)
	evaluate(t, e, s.Doc(), eval.Options{})
	evaluate(t, e, s.Doc(), eval.Options{})

	n, err := testutil.GatherAndCount(reg, "lignin_eval_cache_lookups_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 2 {
		t.Errorf("cache lookup series = %d, want 2 (hit and miss)", n)
	}
	n, err = testutil.GatherAndCount(reg, "lignin_eval_duration_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}
