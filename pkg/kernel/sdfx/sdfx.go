// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/lignin/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along
// the longest bounding box axis.
const DefaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution. Non-positive values
// keep the default.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.meshCells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{meshCells: DefaultMeshCells}
	for _, o := range opts {
		o(k)
	}
	return k
}

// MeshCells reports the configured tessellation resolution.
func (k *SdfxKernel) MeshCells() int { return k.meshCells }

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", kernel.ErrInvalidGeometry, fmt.Sprintf(format, args...))
}

func positive(name string, vals ...float64) error {
	for _, v := range vals {
		if !(v > 0) || math.IsInf(v, 0) {
			return invalid("%s requires positive finite dimensions, got %v", name, vals)
		}
	}
	return nil
}

func backend(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", kernel.ErrInvalidGeometry, name, err)
}

// Box creates a box with the given dimensions. The resulting solid has its
// minimum corner at the origin so that a translate places the corner.
// sdf.Box3D centers the box at the origin, so we translate by half-dimensions.
func (k *SdfxKernel) Box(x, y, z float64) (kernel.Solid, error) {
	if err := positive("box", x, y, z); err != nil {
		return nil, err
	}
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, backend("box", err)
	}
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return wrap(sdf.Transform3D(s, m)), nil
}

// Cylinder creates a cylinder centred on the origin along Z.
func (k *SdfxKernel) Cylinder(height, radius float64) (kernel.Solid, error) {
	if err := positive("cylinder", height, radius); err != nil {
		return nil, err
	}
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, backend("cylinder", err)
	}
	return wrap(s), nil
}

// Sphere creates a sphere centred on the origin.
func (k *SdfxKernel) Sphere(radius float64) (kernel.Solid, error) {
	if err := positive("sphere", radius); err != nil {
		return nil, err
	}
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, backend("sphere", err)
	}
	return wrap(s), nil
}

// Cone creates a truncated cone centred on the origin along Z. One of the
// radii may be zero.
func (k *SdfxKernel) Cone(height, rBottom, rTop float64) (kernel.Solid, error) {
	if err := positive("cone", height); err != nil {
		return nil, err
	}
	if rBottom < 0 || rTop < 0 || (rBottom == 0 && rTop == 0) {
		return nil, invalid("cone requires non-negative radii, not both zero; got %v, %v", rBottom, rTop)
	}
	s, err := sdf.Cone3D(height, rBottom, rTop, 0)
	if err != nil {
		return nil, backend("cone", err)
	}
	return wrap(s), nil
}

func polygon(p kernel.Profile) (sdf.SDF2, error) {
	if len(p) < 3 {
		return nil, invalid("profile needs at least 3 points, got %d", len(p))
	}
	pts := make([]v2.Vec, len(p))
	for i, pt := range p {
		pts[i] = v2.Vec{X: pt[0], Y: pt[1]}
	}
	s, err := sdf.Polygon2D(pts)
	if err != nil {
		return nil, backend("profile", err)
	}
	return s, nil
}

// Extrude pushes the profile from z=0 to z=depth. A negative depth
// extrudes below the sketch plane.
func (k *SdfxKernel) Extrude(p kernel.Profile, depth float64) (kernel.Solid, error) {
	if depth == 0 || math.IsNaN(depth) || math.IsInf(depth, 0) {
		return nil, invalid("extrude requires a non-zero finite depth, got %v", depth)
	}
	s2, err := polygon(p)
	if err != nil {
		return nil, err
	}
	s := sdf.Extrude3D(s2, math.Abs(depth))
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: depth / 2}))), nil
}

// Revolve turns the profile about its Y axis by angle degrees. The axis
// becomes Z in the result. 360 degrees or more is a full revolution.
func (k *SdfxKernel) Revolve(p kernel.Profile, angle float64) (kernel.Solid, error) {
	if err := positive("revolve", angle); err != nil {
		return nil, err
	}
	s2, err := polygon(p)
	if err != nil {
		return nil, err
	}
	var s sdf.SDF3
	if angle >= 360 {
		s, err = sdf.Revolve3D(s2)
	} else {
		s, err = sdf.RevolveTheta3D(s2, angle*math.Pi/180)
	}
	if err != nil {
		return nil, backend("revolve", err)
	}
	return wrap(s), nil
}

// Loft blends bottom at z=0 into top at z=height.
func (k *SdfxKernel) Loft(bottom, top kernel.Profile, height float64) (kernel.Solid, error) {
	if err := positive("loft", height); err != nil {
		return nil, err
	}
	a, err := polygon(bottom)
	if err != nil {
		return nil, err
	}
	b, err := polygon(top)
	if err != nil {
		return nil, err
	}
	s, err := sdf.Loft3D(a, b, height, 0)
	if err != nil {
		return nil, backend("loft", err)
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: height / 2}))), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Scale stretches a solid about the origin. Non-uniform factors distort the
// distance field, which marching cubes tolerates.
func (k *SdfxKernel) Scale(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Scale3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Shell hollows a solid to the given wall thickness.
func (k *SdfxKernel) Shell(s kernel.Solid, thickness float64) (kernel.Solid, error) {
	if err := positive("shell", thickness); err != nil {
		return nil, err
	}
	out, err := sdf.Shell3D(unwrap(s), thickness)
	if err != nil {
		return nil, backend("shell", err)
	}
	return wrap(out), nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Flat shading: every corner carries the face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
