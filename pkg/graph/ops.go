package graph

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// Box is an axis-aligned box centred on the origin.
type Box struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

func (Box) Type() OpType                     { return OpBox }
func (Box) Children() []NodeID               { return nil }
func (o Box) rewrite(func(NodeID) NodeID) Op { return o }
func (o Box) clone() Op                      { return o }

// Cylinder is a Z-aligned cylinder centred on the origin.
type Cylinder struct {
	Radius float64 `json:"radius"`
	Height float64 `json:"height"`
}

func (Cylinder) Type() OpType                     { return OpCylinder }
func (Cylinder) Children() []NodeID               { return nil }
func (o Cylinder) rewrite(func(NodeID) NodeID) Op { return o }
func (o Cylinder) clone() Op                      { return o }

// Sphere is a sphere centred on the origin.
type Sphere struct {
	Radius float64 `json:"radius"`
}

func (Sphere) Type() OpType                     { return OpSphere }
func (Sphere) Children() []NodeID               { return nil }
func (o Sphere) rewrite(func(NodeID) NodeID) Op { return o }
func (o Sphere) clone() Op                      { return o }

// Cone is a Z-aligned truncated cone centred on the origin.
type Cone struct {
	RadiusBottom float64 `json:"radius_bottom"`
	RadiusTop    float64 `json:"radius_top"`
	Height       float64 `json:"height"`
}

func (Cone) Type() OpType                     { return OpCone }
func (Cone) Children() []NodeID               { return nil }
func (o Cone) rewrite(func(NodeID) NodeID) Op { return o }
func (o Cone) clone() Op                      { return o }

// ---------------------------------------------------------------------------
// Transforms
// ---------------------------------------------------------------------------

// Translate moves its child by Offset.
type Translate struct {
	Child  NodeID `json:"child"`
	Offset Vec3   `json:"offset"`
}

func (Translate) Type() OpType         { return OpTranslate }
func (o Translate) Children() []NodeID { return []NodeID{o.Child} }
func (o Translate) rewrite(fn func(NodeID) NodeID) Op {
	o.Child = fn(o.Child)
	return o
}
func (o Translate) clone() Op { return o }

// Rotate rotates its child by Euler angles in degrees (X, then Y, then Z).
type Rotate struct {
	Child  NodeID `json:"child"`
	Angles Vec3   `json:"angles"`
}

func (Rotate) Type() OpType         { return OpRotate }
func (o Rotate) Children() []NodeID { return []NodeID{o.Child} }
func (o Rotate) rewrite(fn func(NodeID) NodeID) Op {
	o.Child = fn(o.Child)
	return o
}
func (o Rotate) clone() Op { return o }

// Scale scales its child per axis.
type Scale struct {
	Child   NodeID `json:"child"`
	Factors Vec3   `json:"factors"`
}

func (Scale) Type() OpType         { return OpScale }
func (o Scale) Children() []NodeID { return []NodeID{o.Child} }
func (o Scale) rewrite(fn func(NodeID) NodeID) Op {
	o.Child = fn(o.Child)
	return o
}
func (o Scale) clone() Op { return o }

// ---------------------------------------------------------------------------
// Booleans
// ---------------------------------------------------------------------------

// Boolean combines two solids. Kind is one of OpUnion, OpDifference or
// OpIntersection. For a difference the result is Left minus Right.
type Boolean struct {
	Kind  OpType `json:"-"`
	Left  NodeID `json:"left"`
	Right NodeID `json:"right"`
}

func (o Boolean) Type() OpType       { return o.Kind }
func (o Boolean) Children() []NodeID { return []NodeID{o.Left, o.Right} }
func (o Boolean) rewrite(fn func(NodeID) NodeID) Op {
	o.Left = fn(o.Left)
	o.Right = fn(o.Right)
	return o
}
func (o Boolean) clone() Op { return o }

// ---------------------------------------------------------------------------
// Sketches and sketch features
// ---------------------------------------------------------------------------

// SegmentKind distinguishes sketch profile segments.
type SegmentKind string

const (
	SegmentLine SegmentKind = "line"
	SegmentArc  SegmentKind = "arc"
)

// Segment is one piece of a sketch profile in plane coordinates. Lines use
// From and To; arcs use Center, Radius and the angles in degrees.
type Segment struct {
	Kind       SegmentKind `json:"kind"`
	From       Point2      `json:"from,omitempty"`
	To         Point2      `json:"to,omitempty"`
	Center     Point2      `json:"center,omitempty"`
	Radius     float64     `json:"radius,omitempty"`
	StartAngle float64     `json:"start_angle,omitempty"`
	EndAngle   float64     `json:"end_angle,omitempty"`
}

// Line returns a line segment.
func Line(x0, y0, x1, y1 float64) Segment {
	return Segment{Kind: SegmentLine, From: Point2{x0, y0}, To: Point2{x1, y1}}
}

// Arc returns an arc segment.
func Arc(cx, cy, r, start, end float64) Segment {
	return Segment{Kind: SegmentArc, Center: Point2{cx, cy}, Radius: r, StartAngle: start, EndAngle: end}
}

// Sketch2D is a planar profile. The plane is spanned by U and V through
// Origin; the profile normal is U x V.
type Sketch2D struct {
	Origin   Vec3      `json:"origin"`
	U        Vec3      `json:"u"`
	V        Vec3      `json:"v"`
	Segments []Segment `json:"segments"`
}

func (Sketch2D) Type() OpType                     { return OpSketch2D }
func (Sketch2D) Children() []NodeID               { return nil }
func (o Sketch2D) rewrite(func(NodeID) NodeID) Op { return o.clone() }
func (o Sketch2D) clone() Op {
	o.Segments = append([]Segment(nil), o.Segments...)
	return o
}

// RectSketch returns a w x h rectangle sketch on the XY plane.
func RectSketch(w, h float64) Sketch2D {
	return Sketch2D{
		U: UnitX,
		V: UnitY,
		Segments: []Segment{
			Line(0, 0, w, 0),
			Line(w, 0, w, h),
			Line(w, h, 0, h),
			Line(0, h, 0, 0),
		},
	}
}

// Extrude pushes a sketch along its normal.
type Extrude struct {
	Sketch NodeID  `json:"sketch"`
	Depth  float64 `json:"depth"`
}

func (Extrude) Type() OpType         { return OpExtrude }
func (o Extrude) Children() []NodeID { return []NodeID{o.Sketch} }
func (o Extrude) rewrite(fn func(NodeID) NodeID) Op {
	o.Sketch = fn(o.Sketch)
	return o
}
func (o Extrude) clone() Op { return o }

// Revolve spins a sketch about its V axis by Angle degrees.
type Revolve struct {
	Sketch NodeID  `json:"sketch"`
	Angle  float64 `json:"angle"`
}

func (Revolve) Type() OpType         { return OpRevolve }
func (o Revolve) Children() []NodeID { return []NodeID{o.Sketch} }
func (o Revolve) rewrite(fn func(NodeID) NodeID) Op {
	o.Sketch = fn(o.Sketch)
	return o
}
func (o Revolve) clone() Op { return o }

// Sweep drags a sketch along a polyline path.
type Sweep struct {
	Sketch NodeID `json:"sketch"`
	Path   []Vec3 `json:"path"`
}

func (Sweep) Type() OpType         { return OpSweep }
func (o Sweep) Children() []NodeID { return []NodeID{o.Sketch} }
func (o Sweep) rewrite(fn func(NodeID) NodeID) Op {
	o.Sketch = fn(o.Sketch)
	o.Path = append([]Vec3(nil), o.Path...)
	return o
}
func (o Sweep) clone() Op {
	o.Path = append([]Vec3(nil), o.Path...)
	return o
}

// Loft blends an ordered list of at least two sketches.
type Loft struct {
	Sketches []NodeID `json:"sketches"`
}

func (Loft) Type() OpType { return OpLoft }
func (o Loft) Children() []NodeID {
	return append([]NodeID(nil), o.Sketches...)
}
func (o Loft) rewrite(fn func(NodeID) NodeID) Op {
	out := make([]NodeID, len(o.Sketches))
	for i, id := range o.Sketches {
		out[i] = fn(id)
	}
	o.Sketches = out
	return o
}
func (o Loft) clone() Op {
	o.Sketches = append([]NodeID(nil), o.Sketches...)
	return o
}

// ---------------------------------------------------------------------------
// Modifiers
// ---------------------------------------------------------------------------

// Fillet rounds the edges of its child.
type Fillet struct {
	Child  NodeID  `json:"child"`
	Radius float64 `json:"radius"`
}

func (Fillet) Type() OpType         { return OpFillet }
func (o Fillet) Children() []NodeID { return []NodeID{o.Child} }
func (o Fillet) rewrite(fn func(NodeID) NodeID) Op {
	o.Child = fn(o.Child)
	return o
}
func (o Fillet) clone() Op { return o }

// Chamfer bevels the edges of its child.
type Chamfer struct {
	Child    NodeID  `json:"child"`
	Distance float64 `json:"distance"`
}

func (Chamfer) Type() OpType         { return OpChamfer }
func (o Chamfer) Children() []NodeID { return []NodeID{o.Child} }
func (o Chamfer) rewrite(fn func(NodeID) NodeID) Op {
	o.Child = fn(o.Child)
	return o
}
func (o Chamfer) clone() Op { return o }

// Shell hollows its child to the given wall thickness.
type Shell struct {
	Child     NodeID  `json:"child"`
	Thickness float64 `json:"thickness"`
}

func (Shell) Type() OpType         { return OpShell }
func (o Shell) Children() []NodeID { return []NodeID{o.Child} }
func (o Shell) rewrite(fn func(NodeID) NodeID) Op {
	o.Child = fn(o.Child)
	return o
}
func (o Shell) clone() Op { return o }

// LinearPattern repeats its child Count times along Direction.
type LinearPattern struct {
	Child     NodeID  `json:"child"`
	Direction Vec3    `json:"direction"`
	Count     int     `json:"count"`
	Spacing   float64 `json:"spacing"`
}

func (LinearPattern) Type() OpType         { return OpLinearPattern }
func (o LinearPattern) Children() []NodeID { return []NodeID{o.Child} }
func (o LinearPattern) rewrite(fn func(NodeID) NodeID) Op {
	o.Child = fn(o.Child)
	return o
}
func (o LinearPattern) clone() Op { return o }

// CircularPattern repeats its child Count times about Axis, spread over
// Angle degrees.
type CircularPattern struct {
	Child NodeID  `json:"child"`
	Axis  Vec3    `json:"axis"`
	Count int     `json:"count"`
	Angle float64 `json:"angle"`
}

func (CircularPattern) Type() OpType         { return OpCircularPattern }
func (o CircularPattern) Children() []NodeID { return []NodeID{o.Child} }
func (o CircularPattern) rewrite(fn func(NodeID) NodeID) Op {
	o.Child = fn(o.Child)
	return o
}
func (o CircularPattern) clone() Op { return o }
