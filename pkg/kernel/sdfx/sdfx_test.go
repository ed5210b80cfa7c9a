package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/lignin/pkg/kernel"
)

// testCells keeps marching cubes fast; the tests check shape, not fidelity.
const testCells = 32

func newTestKernel() *SdfxKernel {
	return New(WithMeshCells(testCells))
}

func mustSolid(t *testing.T, s kernel.Solid, err error) kernel.Solid {
	t.Helper()
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}
	return s
}

func assertBounds(t *testing.T, s kernel.Solid, wantMin, wantMax [3]float64, tol float64) {
	t.Helper()
	min, max := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-wantMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], wantMin[i])
		}
		if math.Abs(max[i]-wantMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], wantMax[i])
		}
	}
}

func square(side float64) kernel.Profile {
	return kernel.Profile{{0, 0}, {side, 0}, {side, side}, {0, side}}
}

func TestNewDefaults(t *testing.T) {
	if got := New().MeshCells(); got != DefaultMeshCells {
		t.Errorf("MeshCells() = %d, want %d", got, DefaultMeshCells)
	}
	if got := New(WithMeshCells(0)).MeshCells(); got != DefaultMeshCells {
		t.Errorf("WithMeshCells(0) should keep the default, got %d", got)
	}
	if got := New(WithMeshCells(64)).MeshCells(); got != 64 {
		t.Errorf("MeshCells() = %d, want 64", got)
	}
}

func TestBox(t *testing.T) {
	k := newTestKernel()
	box := mustSolid(t, k.Box(100, 50, 25))
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}

	// The mesh hugs the box to within a cell or so.
	min, max := mesh.Bounds()
	for i, want := range []float64{100, 50, 25} {
		if math.Abs(min[i]) > 5 || math.Abs(max[i]-want) > 5 {
			t.Errorf("mesh axis %d spans [%f, %f], want ~[0, %f]", i, min[i], max[i], want)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	k := newTestKernel()
	box := mustSolid(t, k.Box(100, 50, 25))
	// Boxes sit on their minimum corner.
	assertBounds(t, box, [3]float64{0, 0, 0}, [3]float64{100, 50, 25}, 0.01)
}

func TestRoundPrimitives(t *testing.T) {
	k := newTestKernel()

	sphere := mustSolid(t, k.Sphere(5))
	assertBounds(t, sphere, [3]float64{-5, -5, -5}, [3]float64{5, 5, 5}, 0.01)

	cyl := mustSolid(t, k.Cylinder(50, 10))
	assertBounds(t, cyl, [3]float64{-10, -10, -25}, [3]float64{10, 10, 25}, 0.01)

	cone := mustSolid(t, k.Cone(20, 10, 0))
	min, max := cone.BoundingBox()
	if math.Abs(max[2]-min[2]-20) > 0.01 {
		t.Errorf("cone height = %f, want 20", max[2]-min[2])
	}
	if math.Abs(max[0]-10) > 0.01 {
		t.Errorf("cone radius = %f, want 10", max[0])
	}
}

func TestInvalidParameters(t *testing.T) {
	k := newTestKernel()
	tests := []struct {
		name string
		fn   func() (kernel.Solid, error)
	}{
		{"negative box", func() (kernel.Solid, error) { return k.Box(-1, 1, 1) }},
		{"zero sphere", func() (kernel.Solid, error) { return k.Sphere(0) }},
		{"nan cylinder", func() (kernel.Solid, error) { return k.Cylinder(math.NaN(), 1) }},
		{"cone without radii", func() (kernel.Solid, error) { return k.Cone(10, 0, 0) }},
		{"two point profile", func() (kernel.Solid, error) { return k.Extrude(kernel.Profile{{0, 0}, {1, 0}}, 5) }},
		{"zero depth", func() (kernel.Solid, error) { return k.Extrude(square(10), 0) }},
		{"zero revolve", func() (kernel.Solid, error) { return k.Revolve(square(10), 0) }},
		{"flat loft", func() (kernel.Solid, error) { return k.Loft(square(10), square(5), 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tt.fn()
			if !errors.Is(err, kernel.ErrInvalidGeometry) {
				t.Fatalf("err = %v, want ErrInvalidGeometry", err)
			}
			if s != nil {
				t.Error("expected nil solid on error")
			}
		})
	}

	box := mustSolid(t, k.Box(10, 10, 10))
	if _, err := k.Shell(box, -1); !errors.Is(err, kernel.ErrInvalidGeometry) {
		t.Errorf("Shell(-1) err = %v, want ErrInvalidGeometry", err)
	}
}

func TestExtrude(t *testing.T) {
	k := newTestKernel()

	up := mustSolid(t, k.Extrude(square(10), 5))
	assertBounds(t, up, [3]float64{0, 0, 0}, [3]float64{10, 10, 5}, 0.01)

	down := mustSolid(t, k.Extrude(square(10), -5))
	assertBounds(t, down, [3]float64{0, 0, -5}, [3]float64{10, 10, 0}, 0.01)

	mesh, err := k.ToMesh(up)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("extrude mesh is empty")
	}
}

func TestRevolve(t *testing.T) {
	k := newTestKernel()
	ring := kernel.Profile{{5, 0}, {10, 0}, {10, 4}, {5, 4}}
	s := mustSolid(t, k.Revolve(ring, 360))
	min, max := s.BoundingBox()
	if math.Abs(max[0]-10) > 0.01 || math.Abs(min[0]+10) > 0.01 {
		t.Errorf("revolved X extent = [%f, %f], want [-10, 10]", min[0], max[0])
	}
	if math.Abs(max[2]-min[2]-4) > 0.01 {
		t.Errorf("revolved height = %f, want 4", max[2]-min[2])
	}

	half := mustSolid(t, k.Revolve(ring, 180))
	mesh, err := k.ToMesh(half)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("partial revolve mesh is empty")
	}
}

func TestLoft(t *testing.T) {
	k := newTestKernel()
	s := mustSolid(t, k.Loft(square(10), square(6), 10))
	min, max := s.BoundingBox()
	if math.Abs(min[2]) > 0.5 || math.Abs(max[2]-10) > 0.5 {
		t.Errorf("loft Z extent = [%f, %f], want ~[0, 10]", min[2], max[2])
	}
}

func TestDifference(t *testing.T) {
	k := newTestKernel()

	box := mustSolid(t, k.Box(100, 100, 100))
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}

	cyl := k.Translate(mustSolid(t, k.Cylinder(120, 20)), 50, 50, 50)
	diff := k.Difference(box, cyl)
	diffMesh, err := k.ToMesh(diff)
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	if diffMesh.IsEmpty() {
		t.Fatal("difference mesh is empty")
	}
	// A box with a hole should have more triangles than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
}

func TestUnion(t *testing.T) {
	k := newTestKernel()
	box1 := mustSolid(t, k.Box(50, 50, 50))
	box2 := k.Translate(mustSolid(t, k.Box(50, 50, 50)), 30, 0, 0)
	u := k.Union(box1, box2)
	assertBounds(t, u, [3]float64{0, 0, 0}, [3]float64{80, 50, 50}, 0.01)
	mesh, err := k.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
}

func TestIntersection(t *testing.T) {
	k := newTestKernel()
	box1 := mustSolid(t, k.Box(100, 100, 100))
	box2 := k.Translate(mustSolid(t, k.Box(100, 100, 100)), 50, 0, 0)
	inter := k.Intersection(box1, box2)
	mesh, err := k.ToMesh(inter)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("intersection mesh is empty")
	}
}

func TestTranslate(t *testing.T) {
	k := newTestKernel()
	box := mustSolid(t, k.Box(10, 10, 10))
	translated := k.Translate(box, 100, 200, 300)
	assertBounds(t, translated, [3]float64{100, 200, 300}, [3]float64{110, 210, 310}, 0.01)
}

func TestRotate(t *testing.T) {
	k := newTestKernel()
	box := mustSolid(t, k.Box(100, 10, 10))

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	rotated := k.Rotate(box, 0, 0, 90)
	min, max := rotated.BoundingBox()

	xExtent := max[0] - min[0]
	yExtent := max[1] - min[1]

	const tol = 1.0
	if math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
}

func TestScale(t *testing.T) {
	k := newTestKernel()
	box := mustSolid(t, k.Box(10, 10, 10))
	scaled := k.Scale(box, 2, 1, 0.5)
	assertBounds(t, scaled, [3]float64{0, 0, 0}, [3]float64{20, 10, 5}, 0.01)
}

func TestShell(t *testing.T) {
	k := newTestKernel()
	box := mustSolid(t, k.Box(40, 40, 40))
	shell := mustSolid(t, k.Shell(box, 2))
	mesh, err := k.ToMesh(shell)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("shell mesh is empty")
	}
}
