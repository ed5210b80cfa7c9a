package eval

import (
	"errors"
	"math"

	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/kernel"
)

// arcStepDegrees bounds the angle between consecutive arc samples.
const arcStepDegrees = 10.0

// eps is the tolerance used when comparing plane coordinates.
const eps = 1e-9

// gimbalEps is the cos(pitch) below which X and Z rotations are merged.
const gimbalEps = 1e-7

var errDegenerateFrame = errors.New("sketch plane vectors are zero or parallel")

// frame is an orthonormal placement: local X, Y and Z map to the columns.
type frame struct {
	origin  graph.Vec3
	x, y, z graph.Vec3
}

// sketchFrame orthonormalises the sketch plane. U keeps its direction, V is
// made perpendicular to it and Z is the normal U x V.
func sketchFrame(sk graph.Sketch2D) (frame, error) {
	u := sk.U.Normalize()
	if u.IsZero() {
		return frame{}, errDegenerateFrame
	}
	v := sk.V.Sub(u.Scale(sk.V.Dot(u))).Normalize()
	if v.Len() < 0.5 {
		return frame{}, errDegenerateFrame
	}
	return frame{origin: sk.Origin, x: u, y: v, z: u.Cross(v)}, nil
}

// toLocal expresses a world point in the frame's X/Y plane coordinates.
func (f frame) toLocal(p graph.Vec3) [2]float64 {
	d := p.Sub(f.origin)
	return [2]float64{d.Dot(f.x), d.Dot(f.y)}
}

// toWorld maps plane coordinates back to world space.
func (f frame) toWorld(x, y float64) graph.Vec3 {
	return f.origin.Add(f.x.Scale(x)).Add(f.y.Scale(y))
}

// place moves a solid built in the local frame to world space.
func place(k kernel.Kernel, s kernel.Solid, f frame) kernel.Solid {
	ax, ay, az := eulerFromBasis(f.x, f.y, f.z)
	if ax != 0 || ay != 0 || az != 0 {
		s = k.Rotate(s, ax, ay, az)
	}
	if !f.origin.IsZero() {
		s = k.Translate(s, f.origin.X, f.origin.Y, f.origin.Z)
	}
	return s
}

// eulerFromBasis returns X, Y, Z Euler angles in degrees for the rotation
// whose columns are c0, c1 and c2, composed as Rz * Ry * Rx.
func eulerFromBasis(c0, c1, c2 graph.Vec3) (x, y, z float64) {
	sy := math.Max(-1, math.Min(1, -c0.Z))
	beta := math.Asin(sy)
	var alpha, gamma float64
	if math.Abs(math.Cos(beta)) < gimbalEps {
		// Gimbal lock: X and Z rotate about the same axis; fold it into Z.
		gamma = math.Atan2(-c1.X, c1.Y)
	} else {
		alpha = math.Atan2(c1.Z, c2.Z)
		gamma = math.Atan2(c0.Y, c0.X)
	}
	return degrees(alpha), degrees(beta), degrees(gamma)
}

// rotateAbout rotates v about the unit axis k by theta degrees.
func rotateAbout(v, k graph.Vec3, theta float64) graph.Vec3 {
	t := radians(theta)
	cos, sin := math.Cos(t), math.Sin(t)
	return v.Scale(cos).Add(k.Cross(v).Scale(sin)).Add(k.Scale(k.Dot(v) * (1 - cos)))
}

// profile flattens sketch segments into a closed polygon. Arcs are sampled
// every arcStepDegrees at most; a segment's end point is dropped when it
// matches the next segment's start.
func profile(sk graph.Sketch2D) kernel.Profile {
	var out kernel.Profile
	add := func(x, y float64) {
		if n := len(out); n > 0 && near(out[n-1], x, y) {
			return
		}
		out = append(out, [2]float64{x, y})
	}
	for _, seg := range sk.Segments {
		switch seg.Kind {
		case graph.SegmentArc:
			sweep := seg.EndAngle - seg.StartAngle
			steps := int(math.Ceil(math.Abs(sweep) / arcStepDegrees))
			if steps < 1 {
				steps = 1
			}
			for i := 0; i <= steps; i++ {
				a := radians(seg.StartAngle + sweep*float64(i)/float64(steps))
				add(seg.Center.X+seg.Radius*math.Cos(a), seg.Center.Y+seg.Radius*math.Sin(a))
			}
		default:
			add(seg.From.X, seg.From.Y)
			add(seg.To.X, seg.To.Y)
		}
	}
	if n := len(out); n > 1 && near(out[0], out[n-1][0], out[n-1][1]) {
		out = out[:n-1]
	}
	return out
}

func near(p [2]float64, x, y float64) bool {
	return math.Abs(p[0]-x) < 1e-7 && math.Abs(p[1]-y) < 1e-7
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
