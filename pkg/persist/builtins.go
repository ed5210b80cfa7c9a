package persist

import (
	"fmt"
	"strings"

	"github.com/chazu/lignin/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types passed between builtins
// ---------------------------------------------------------------------------

// sexpOp wraps an operation built by an op form such as (box 1 2 3).
type sexpOp struct {
	op graph.Op
}

func (s *sexpOp) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s ...)", s.op.Type())
}
func (s *sexpOp) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a graph.Vec3.
type sexpVec3 struct {
	vec graph.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSegment wraps one sketch segment.
type sexpSegment struct {
	seg graph.Segment
}

func (s *sexpSegment) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s ...)", s.seg.Kind)
}
func (s *sexpSegment) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

func isKW(s zygo.Sexp) (string, bool) {
	sym, ok := s.(*zygo.SexpSymbol)
	if !ok {
		return "", false
	}
	return strings.CutPrefix(sym.Name(), kwPrefix)
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		if name, ok := isKW(args[i]); ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i++
			} else {
				result.kw[name] = zygo.SexpNull
			}
			continue
		}
		result.positional = append(result.positional, args[i])
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int64, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toNodeID(s zygo.Sexp) (graph.NodeID, error) {
	n, err := toInt(s)
	if err != nil {
		return graph.ZeroID, err
	}
	if n <= 0 {
		return graph.ZeroID, fmt.Errorf("node id must be positive, got %d", n)
	}
	return graph.NodeID(n), nil
}

func toVec3(s zygo.Sexp) (graph.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return graph.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// floats converts every arg to a number, requiring exactly n of them.
func floats(form string, args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires %d arguments, got %d", form, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", form, i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// childAndVec parses (form child <vec3>) argument lists.
func childAndVec(form string, args []zygo.Sexp) (graph.NodeID, graph.Vec3, error) {
	if len(args) != 2 {
		return 0, graph.Vec3{}, fmt.Errorf("%s requires a child id and a vec3", form)
	}
	child, err := toNodeID(args[0])
	if err != nil {
		return 0, graph.Vec3{}, fmt.Errorf("%s: child: %w", form, err)
	}
	v, err := toVec3(args[1])
	if err != nil {
		return 0, graph.Vec3{}, fmt.Errorf("%s: %w", form, err)
	}
	return child, v, nil
}

// childAndNum parses (form child <number>) argument lists.
func childAndNum(form string, args []zygo.Sexp) (graph.NodeID, float64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("%s requires a child id and a number", form)
	}
	child, err := toNodeID(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%s: child: %w", form, err)
	}
	f, err := toFloat64(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", form, err)
	}
	return child, f, nil
}

// pattern parses (form child <vec3> count number).
func pattern(form string, args []zygo.Sexp) (graph.NodeID, graph.Vec3, int, float64, error) {
	if len(args) != 4 {
		return 0, graph.Vec3{}, 0, 0, fmt.Errorf("%s requires child, vec3, count and a number", form)
	}
	child, v, err := childAndVec(form, args[:2])
	if err != nil {
		return 0, graph.Vec3{}, 0, 0, err
	}
	count, err := toInt(args[2])
	if err != nil || count < 1 {
		return 0, graph.Vec3{}, 0, 0, fmt.Errorf("%s: count must be a positive integer", form)
	}
	f, err := toFloat64(args[3])
	if err != nil {
		return 0, graph.Vec3{}, 0, 0, fmt.Errorf("%s: %w", form, err)
	}
	return child, v, int(count), f, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// compactBuilder collects the document while the program runs.
type compactBuilder struct {
	doc *graph.Document
	// err is the first error a builtin returned. The interpreter reports it
	// wrapped in its own text; this keeps the original message.
	err error
}

type builtin func(args []zygo.Sexp) (zygo.Sexp, error)

// add registers fn under name and records its first failure.
func (b *compactBuilder) add(env *zygo.Zlisp, name string, fn builtin) {
	env.AddFunction(name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		out, err := fn(args)
		if err != nil && b.err == nil {
			b.err = err
		}
		return out, err
	})
}

type opBuilder func(args []zygo.Sexp) (graph.Op, error)

// opBuilders maps form names, after kebab-case rewriting, to constructors.
var opBuilders = map[string]opBuilder{
	"box": func(args []zygo.Sexp) (graph.Op, error) {
		f, err := floats("box", args, 3)
		if err != nil {
			return nil, err
		}
		return graph.Box{Width: f[0], Height: f[1], Depth: f[2]}, nil
	},
	"cylinder": func(args []zygo.Sexp) (graph.Op, error) {
		f, err := floats("cylinder", args, 2)
		if err != nil {
			return nil, err
		}
		return graph.Cylinder{Radius: f[0], Height: f[1]}, nil
	},
	"sphere": func(args []zygo.Sexp) (graph.Op, error) {
		f, err := floats("sphere", args, 1)
		if err != nil {
			return nil, err
		}
		return graph.Sphere{Radius: f[0]}, nil
	},
	"cone": func(args []zygo.Sexp) (graph.Op, error) {
		f, err := floats("cone", args, 3)
		if err != nil {
			return nil, err
		}
		return graph.Cone{RadiusBottom: f[0], RadiusTop: f[1], Height: f[2]}, nil
	},
	"translate": func(args []zygo.Sexp) (graph.Op, error) {
		c, v, err := childAndVec("translate", args)
		return graph.Translate{Child: c, Offset: v}, err
	},
	"rotate": func(args []zygo.Sexp) (graph.Op, error) {
		c, v, err := childAndVec("rotate", args)
		return graph.Rotate{Child: c, Angles: v}, err
	},
	"scale": func(args []zygo.Sexp) (graph.Op, error) {
		c, v, err := childAndVec("scale", args)
		return graph.Scale{Child: c, Factors: v}, err
	},
	"union":        booleanBuilder(graph.OpUnion),
	"difference":   booleanBuilder(graph.OpDifference),
	"intersection": booleanBuilder(graph.OpIntersection),
	"sketch": func(args []zygo.Sexp) (graph.Op, error) {
		if len(args) < 3 {
			return nil, fmt.Errorf("sketch requires origin, u and v vectors")
		}
		var sk graph.Sketch2D
		var err error
		if sk.Origin, err = toVec3(args[0]); err != nil {
			return nil, fmt.Errorf("sketch: origin: %w", err)
		}
		if sk.U, err = toVec3(args[1]); err != nil {
			return nil, fmt.Errorf("sketch: u: %w", err)
		}
		if sk.V, err = toVec3(args[2]); err != nil {
			return nil, fmt.Errorf("sketch: v: %w", err)
		}
		for i, a := range args[3:] {
			seg, ok := a.(*sexpSegment)
			if !ok {
				return nil, fmt.Errorf("sketch: segment %d: expected line or arc, got %T", i+1, a)
			}
			sk.Segments = append(sk.Segments, seg.seg)
		}
		return sk, nil
	},
	"extrude": func(args []zygo.Sexp) (graph.Op, error) {
		c, f, err := childAndNum("extrude", args)
		return graph.Extrude{Sketch: c, Depth: f}, err
	},
	"revolve": func(args []zygo.Sexp) (graph.Op, error) {
		c, f, err := childAndNum("revolve", args)
		return graph.Revolve{Sketch: c, Angle: f}, err
	},
	"sweep": func(args []zygo.Sexp) (graph.Op, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("sweep requires a sketch id")
		}
		sk, err := toNodeID(args[0])
		if err != nil {
			return nil, fmt.Errorf("sweep: sketch: %w", err)
		}
		op := graph.Sweep{Sketch: sk}
		for i, a := range args[1:] {
			v, err := toVec3(a)
			if err != nil {
				return nil, fmt.Errorf("sweep: point %d: %w", i+1, err)
			}
			op.Path = append(op.Path, v)
		}
		return op, nil
	},
	"loft": func(args []zygo.Sexp) (graph.Op, error) {
		var op graph.Loft
		for i, a := range args {
			id, err := toNodeID(a)
			if err != nil {
				return nil, fmt.Errorf("loft: sketch %d: %w", i+1, err)
			}
			op.Sketches = append(op.Sketches, id)
		}
		return op, nil
	},
	"fillet": func(args []zygo.Sexp) (graph.Op, error) {
		c, f, err := childAndNum("fillet", args)
		return graph.Fillet{Child: c, Radius: f}, err
	},
	"chamfer": func(args []zygo.Sexp) (graph.Op, error) {
		c, f, err := childAndNum("chamfer", args)
		return graph.Chamfer{Child: c, Distance: f}, err
	},
	"shell": func(args []zygo.Sexp) (graph.Op, error) {
		c, f, err := childAndNum("shell", args)
		return graph.Shell{Child: c, Thickness: f}, err
	},
	"linear_pattern": func(args []zygo.Sexp) (graph.Op, error) {
		c, v, n, f, err := pattern("linear-pattern", args)
		return graph.LinearPattern{Child: c, Direction: v, Count: n, Spacing: f}, err
	},
	"circular_pattern": func(args []zygo.Sexp) (graph.Op, error) {
		c, v, n, f, err := pattern("circular-pattern", args)
		return graph.CircularPattern{Child: c, Axis: v, Count: n, Angle: f}, err
	},
}

func booleanBuilder(kind graph.OpType) opBuilder {
	return func(args []zygo.Sexp) (graph.Op, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s requires left and right ids", kind)
		}
		l, err := toNodeID(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: left: %w", kind, err)
		}
		r, err := toNodeID(args[1])
		if err != nil {
			return nil, fmt.Errorf("%s: right: %w", kind, err)
		}
		return graph.Boolean{Kind: kind, Left: l, Right: r}, nil
	}
}

// register installs the compact-form builtins. Source must go through
// preprocessSource first so keywords and kebab-case names resolve.
func (b *compactBuilder) register(env *zygo.Zlisp) {
	for name, build := range opBuilders {
		build := build
		b.add(env, name, func(args []zygo.Sexp) (zygo.Sexp, error) {
			op, err := build(args)
			if err != nil {
				return zygo.SexpNull, err
			}
			return &sexpOp{op: op}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	b.add(env, "vec3", func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats("vec3", args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{vec: graph.Vec3{X: f[0], Y: f[1], Z: f[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (line x0 y0 x1 y1) and (arc cx cy r start end)
	// -----------------------------------------------------------------------
	b.add(env, "line", func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats("line", args, 4)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSegment{seg: graph.Line(f[0], f[1], f[2], f[3])}, nil
	})
	b.add(env, "arc", func(args []zygo.Sexp) (zygo.Sexp, error) {
		f, err := floats("arc", args, 5)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSegment{seg: graph.Arc(f[0], f[1], f[2], f[3], f[4])}, nil
	})

	// -----------------------------------------------------------------------
	// (material "key" :name "Oak" :color "#a0522d" :metalness 0 :roughness 0.8 :opacity 1)
	// -----------------------------------------------------------------------
	b.add(env, "material", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("material requires a key")
		}
		key, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("material: key: %w", err)
		}
		var m graph.MaterialDef
		for kw, dst := range map[string]*string{"name": &m.Name, "color": &m.Color} {
			if v, ok := pa.kw[kw]; ok {
				if *dst, err = toString(v); err != nil {
					return zygo.SexpNull, fmt.Errorf("material %s: %s: %w", key, kw, err)
				}
			}
		}
		for kw, dst := range map[string]*float64{"metalness": &m.Metalness, "roughness": &m.Roughness, "opacity": &m.Opacity} {
			if v, ok := pa.kw[kw]; ok {
				if *dst, err = toFloat64(v); err != nil {
					return zygo.SexpNull, fmt.Errorf("material %s: %s: %w", key, kw, err)
				}
			}
		}
		b.doc.Materials[key] = m
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (node 4 (translate 3 (vec3 0 0 0)) :name "Cube 1")
	// -----------------------------------------------------------------------
	b.add(env, "node", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("node requires an id and an operation")
		}
		id, err := toNodeID(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: id: %w", err)
		}
		op, ok := pa.positional[1].(*sexpOp)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("node %d: expected an operation, got %T", id, pa.positional[1])
		}
		if b.doc.Has(id) {
			return zygo.SexpNull, fmt.Errorf("node %d: duplicate id", id)
		}
		n := &graph.Node{ID: id, Op: op.op}
		if v, ok := pa.kw["name"]; ok {
			if n.Name, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("node %d: name: %w", id, err)
			}
		}
		b.doc.AddNode(n)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (root 4 "default")
	// -----------------------------------------------------------------------
	b.add(env, "root", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 || len(args) > 2 {
			return zygo.SexpNull, fmt.Errorf("root requires an id and an optional material")
		}
		id, err := toNodeID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("root: id: %w", err)
		}
		material := graph.DefaultMaterial
		if len(args) == 2 {
			if material, err = toString(args[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("root %d: material: %w", id, err)
			}
		}
		b.doc.AddRoot(id, material)
		return zygo.SexpNull, nil
	})
}
