package eval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/kernel"
)

// result is a node's solid and the cache generation it came from. Sketch
// nodes have a nil solid.
type result struct {
	solid kernel.Solid
	gen   uint64
}

// walker evaluates the nodes under one root. It is used by one goroutine.
type walker struct {
	ev     *Evaluator
	ctx    context.Context
	doc    *graph.Document
	done   map[graph.NodeID]result
	active map[graph.NodeID]bool

	warnings []Warning
	hits     int
	misses   int
}

// root builds one document root. Only context errors are returned; build
// failures land in Part.Err.
func (w *walker) root(id graph.NodeID, material string, tessellate bool) (Part, error) {
	p := Part{Root: id, Name: id.String(), Material: material}
	if n := w.doc.Get(id); n != nil && n.Name != "" {
		p.Name = n.Name
	}

	r, err := w.eval(id)
	if err == nil && r.solid == nil {
		err = &NodeError{NodeID: id, Err: errors.New("root is a sketch, not a solid")}
	}
	if err != nil {
		if isContextErr(err) {
			return Part{}, err
		}
		p.Err = err
		return p, nil
	}
	p.Solid = r.solid
	p.Min, p.Max = r.solid.BoundingBox()

	if !tessellate {
		return p, nil
	}
	if err := w.ctx.Err(); err != nil {
		return Part{}, err
	}
	m := w.ev.cachedMesh(id, r.gen)
	if m == nil {
		m, err = w.ev.kernel.ToMesh(r.solid)
		if err != nil {
			p.Err = &NodeError{NodeID: id, Err: fmt.Errorf("tessellate: %w", err)}
			return p, nil
		}
		w.ev.storeMesh(id, r.gen, m)
	}
	named := *m
	named.Name = p.Name
	named.Material = material
	p.Mesh = &named
	return p, nil
}

// eval returns the solid for id, building it and its inputs as needed.
func (w *walker) eval(id graph.NodeID) (result, error) {
	if r, ok := w.done[id]; ok {
		return r, nil
	}
	if err := w.ctx.Err(); err != nil {
		return result{}, err
	}
	n := w.doc.Get(id)
	if n == nil {
		return result{}, &NodeError{NodeID: id, Err: errors.New("node does not exist")}
	}
	if w.active[id] {
		return result{}, &NodeError{NodeID: id, Err: errors.New("cycle detected")}
	}
	w.active[id] = true
	defer delete(w.active, id)

	children := n.Op.Children()
	deps := make([]uint64, len(children))
	inputs := make([]kernel.Solid, len(children))
	for i, c := range children {
		r, err := w.eval(c)
		if err != nil {
			return result{}, err
		}
		deps[i] = r.gen
		inputs[i] = r.solid
	}

	if ent, ok := w.ev.lookup(id, n.Op, deps); ok {
		w.hits++
		w.warnings = append(w.warnings, ent.warnings...)
		r := result{solid: ent.solid, gen: ent.gen}
		w.done[id] = r
		return r, nil
	}
	w.misses++

	b := &builder{k: w.ev.kernel, doc: w.doc, id: id, inputs: inputs, children: children}
	solid, err := b.build(n.Op)
	if err != nil {
		var ne *NodeError
		if errors.As(err, &ne) {
			return result{}, err
		}
		return result{}, &NodeError{NodeID: id, Err: err}
	}
	w.warnings = append(w.warnings, b.warnings...)
	r := result{solid: solid, gen: w.ev.store(id, n.Op, deps, solid, b.warnings)}
	w.done[id] = r
	return r, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func opEqual(a, b graph.Op) bool {
	return reflect.DeepEqual(a, b)
}

// builder turns one operation into a solid given its evaluated inputs.
type builder struct {
	k        kernel.Kernel
	doc      *graph.Document
	id       graph.NodeID
	inputs   []kernel.Solid
	children []graph.NodeID
	warnings []Warning
}

func (b *builder) warn(format string, args ...any) {
	b.warnings = append(b.warnings, Warning{NodeID: b.id, Message: fmt.Sprintf(format, args...)})
}

// solid returns input i, rejecting sketches where a solid is needed.
func (b *builder) solid(i int) (kernel.Solid, error) {
	if b.inputs[i] == nil {
		return nil, fmt.Errorf("input %s is a sketch, not a solid", b.children[i])
	}
	return b.inputs[i], nil
}

// sketch returns input i as a sketch and its plane.
func (b *builder) sketch(i int) (graph.Sketch2D, frame, error) {
	n := b.doc.Get(b.children[i])
	sk, ok := n.Op.(graph.Sketch2D)
	if !ok {
		return graph.Sketch2D{}, frame{}, fmt.Errorf("input %s is %s, not a sketch", n.ID, n.Op.Type())
	}
	f, err := sketchFrame(sk)
	if err != nil {
		return graph.Sketch2D{}, frame{}, fmt.Errorf("sketch %s: %w", n.ID, err)
	}
	return sk, f, nil
}

func (b *builder) build(op graph.Op) (kernel.Solid, error) {
	k := b.k
	switch op := op.(type) {
	case graph.Box:
		s, err := k.Box(op.Width, op.Height, op.Depth)
		if err != nil {
			return nil, err
		}
		// The kernel builds boxes on their corner; documents centre them.
		return k.Translate(s, -op.Width/2, -op.Height/2, -op.Depth/2), nil
	case graph.Cylinder:
		return k.Cylinder(op.Height, op.Radius)
	case graph.Sphere:
		return k.Sphere(op.Radius)
	case graph.Cone:
		return k.Cone(op.Height, op.RadiusBottom, op.RadiusTop)

	case graph.Translate:
		s, err := b.solid(0)
		if err != nil {
			return nil, err
		}
		if op.Offset.IsZero() {
			return s, nil
		}
		return k.Translate(s, op.Offset.X, op.Offset.Y, op.Offset.Z), nil
	case graph.Rotate:
		s, err := b.solid(0)
		if err != nil {
			return nil, err
		}
		if op.Angles.IsZero() {
			return s, nil
		}
		return k.Rotate(s, op.Angles.X, op.Angles.Y, op.Angles.Z), nil
	case graph.Scale:
		s, err := b.solid(0)
		if err != nil {
			return nil, err
		}
		f := op.Factors
		if f.X == 0 || f.Y == 0 || f.Z == 0 {
			return nil, fmt.Errorf("%w: scale factors must be non-zero, got %s", kernel.ErrInvalidGeometry, f)
		}
		if f == graph.OneVec3 {
			return s, nil
		}
		return k.Scale(s, f.X, f.Y, f.Z), nil

	case graph.Boolean:
		l, err := b.solid(0)
		if err != nil {
			return nil, err
		}
		r, err := b.solid(1)
		if err != nil {
			return nil, err
		}
		switch op.Kind {
		case graph.OpUnion:
			return k.Union(l, r), nil
		case graph.OpDifference:
			return k.Difference(l, r), nil
		default:
			return k.Intersection(l, r), nil
		}

	case graph.Sketch2D:
		return nil, nil

	case graph.Extrude:
		sk, f, err := b.sketch(0)
		if err != nil {
			return nil, err
		}
		s, err := k.Extrude(profile(sk), op.Depth)
		if err != nil {
			return nil, err
		}
		return place(k, s, f), nil
	case graph.Revolve:
		sk, f, err := b.sketch(0)
		if err != nil {
			return nil, err
		}
		s, err := k.Revolve(profile(sk), op.Angle)
		if err != nil {
			return nil, err
		}
		// The kernel's revolve axis is local Z and the profile's Y; map that
		// onto the sketch's V axis.
		axis := frame{origin: f.origin, x: f.x, y: f.z.Scale(-1), z: f.y}
		return place(k, s, axis), nil
	case graph.Sweep:
		return nil, fmt.Errorf("%w: sweep", ErrUnsupported)
	case graph.Loft:
		return b.loft()

	case graph.Fillet:
		s, err := b.solid(0)
		if err != nil {
			return nil, err
		}
		b.warn("fillet radius %g not applied; edges left sharp", op.Radius)
		return s, nil
	case graph.Chamfer:
		s, err := b.solid(0)
		if err != nil {
			return nil, err
		}
		b.warn("chamfer distance %g not applied; edges left sharp", op.Distance)
		return s, nil
	case graph.Shell:
		s, err := b.solid(0)
		if err != nil {
			return nil, err
		}
		return k.Shell(s, op.Thickness)
	case graph.LinearPattern:
		return b.linearPattern(op)
	case graph.CircularPattern:
		return b.circularPattern(op)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, op.Type())
}

// loft blends consecutive sketch pairs and unions the pieces. Each pair is
// built in the lower sketch's plane; the upper sketch must lie above it.
func (b *builder) loft() (kernel.Solid, error) {
	if len(b.children) < 2 {
		return nil, fmt.Errorf("%w: loft needs at least two sketches", kernel.ErrInvalidGeometry)
	}
	var out kernel.Solid
	for i := 0; i+1 < len(b.children); i++ {
		lowSk, low, err := b.sketch(i)
		if err != nil {
			return nil, err
		}
		highSk, high, err := b.sketch(i + 1)
		if err != nil {
			return nil, err
		}
		height := high.origin.Sub(low.origin).Dot(low.z)
		if height <= eps {
			return nil, fmt.Errorf("%w: loft sketch %s does not lie above %s", kernel.ErrInvalidGeometry, b.children[i+1], b.children[i])
		}
		top := profile(highSk)
		for j, pt := range top {
			top[j] = low.toLocal(high.toWorld(pt[0], pt[1]))
		}
		s, err := b.k.Loft(profile(lowSk), top, height)
		if err != nil {
			return nil, err
		}
		s = place(b.k, s, low)
		if out == nil {
			out = s
		} else {
			out = b.k.Union(out, s)
		}
	}
	return out, nil
}

func (b *builder) linearPattern(op graph.LinearPattern) (kernel.Solid, error) {
	s, err := b.solid(0)
	if err != nil {
		return nil, err
	}
	if op.Count < 1 {
		return nil, fmt.Errorf("%w: pattern count must be at least 1, got %d", kernel.ErrInvalidGeometry, op.Count)
	}
	dir := op.Direction.Normalize()
	if dir.IsZero() {
		return nil, fmt.Errorf("%w: pattern direction is zero", kernel.ErrInvalidGeometry)
	}
	out := s
	for i := 1; i < op.Count; i++ {
		d := dir.Scale(op.Spacing * float64(i))
		out = b.k.Union(out, b.k.Translate(s, d.X, d.Y, d.Z))
	}
	return out, nil
}

// circularPattern spreads copies about an axis through the origin. A full
// turn divides the angle by Count; a partial one puts the last copy at
// Angle.
func (b *builder) circularPattern(op graph.CircularPattern) (kernel.Solid, error) {
	s, err := b.solid(0)
	if err != nil {
		return nil, err
	}
	if op.Count < 1 {
		return nil, fmt.Errorf("%w: pattern count must be at least 1, got %d", kernel.ErrInvalidGeometry, op.Count)
	}
	axis := op.Axis.Normalize()
	if axis.IsZero() {
		return nil, fmt.Errorf("%w: pattern axis is zero", kernel.ErrInvalidGeometry)
	}
	if op.Count == 1 {
		return s, nil
	}
	step := op.Angle / float64(op.Count)
	if math.Abs(op.Angle) < 360 {
		step = op.Angle / float64(op.Count-1)
	}
	out := s
	for i := 1; i < op.Count; i++ {
		theta := step * float64(i)
		ax, ay, az := eulerFromBasis(
			rotateAbout(graph.UnitX, axis, theta),
			rotateAbout(graph.UnitY, axis, theta),
			rotateAbout(graph.UnitZ, axis, theta),
		)
		out = b.k.Union(out, b.k.Rotate(s, ax, ay, az))
	}
	return out, nil
}
