// Package kernel defines the abstract geometry kernel interface.
// Implementations provide solid modeling and boolean operations behind
// this interface so the evaluator can swap backends without changing the
// rest of the system.
package kernel

import "errors"

// ErrInvalidGeometry is returned when a constructor rejects its parameters,
// e.g. a negative radius or a self-intersecting profile.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Profile is a closed polygon in sketch plane coordinates. The last point
// connects back to the first.
type Profile [][2]float64

// Kernel is the abstract geometry kernel interface.
//
// Constructors return an error wrapping ErrInvalidGeometry for parameters
// the backend cannot build. Solids are placed in a local frame: boxes and
// profiles start at the origin, round primitives are centred on it with
// their axis along Z.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)
	Sphere(radius float64) (Solid, error)
	Cone(height, rBottom, rTop float64) (Solid, error)

	// Profile features. Extrude runs from z=0 to z=depth; Revolve turns the
	// profile about its Y axis, which becomes Z; Loft blends bottom at z=0
	// into top at z=height.
	Extrude(p Profile, depth float64) (Solid, error)
	Revolve(p Profile, angle float64) (Solid, error)
	Loft(bottom, top Profile, height float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees, X then Y then Z
	Scale(s Solid, x, y, z float64) Solid

	// Modifiers
	Shell(s Solid, thickness float64) (Solid, error)

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
