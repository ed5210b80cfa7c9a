package persist

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/chazu/lignin/pkg/graph"
)

const compactHeader = "; lignin compact v1\n"

// compactWriter buffers compact text and keeps the first value the reader
// could not take back.
type compactWriter struct {
	bytes.Buffer
	err error
}

func (b *compactWriter) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
}

// EncodeCompact writes the graph, roots and materials as one Lisp form per
// line: materials by key, nodes by id, then roots in order. Part index,
// assembly and unknown fields are not carried. Non-finite numbers and
// strings that are not valid UTF-8 are errors.
func EncodeCompact(d *graph.Document) ([]byte, error) {
	var b compactWriter
	b.WriteString(compactHeader)

	keys := make([]string, 0, len(d.Materials))
	for k := range d.Materials {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m := d.Materials[k]
		b.WriteString("(material ")
		b.str(k)
		b.WriteString(" :name ")
		b.str(m.Name)
		b.WriteString(" :color ")
		b.str(m.Color)
		b.WriteString(" :metalness ")
		b.num(m.Metalness)
		b.WriteString(" :roughness ")
		b.num(m.Roughness)
		b.WriteString(" :opacity ")
		b.num(m.Opacity)
		b.WriteString(")\n")
	}

	for _, id := range d.SortedIDs() {
		n := d.Nodes[id]
		b.WriteString("(node ")
		b.WriteString(ref(id))
		b.WriteByte(' ')
		b.op(n.Op)
		if n.Name != "" {
			b.WriteString(" :name ")
			b.str(n.Name)
		}
		b.WriteString(")\n")
	}

	for _, r := range d.Roots {
		b.WriteString("(root ")
		b.WriteString(ref(r.Root))
		b.WriteByte(' ')
		b.str(r.Material)
		b.WriteString(")\n")
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.Bytes(), nil
}

func (b *compactWriter) op(op graph.Op) {
	b.WriteByte('(')
	switch o := op.(type) {
	case graph.Box:
		b.WriteString("box")
		b.nums(o.Width, o.Height, o.Depth)
	case graph.Cylinder:
		b.WriteString("cylinder")
		b.nums(o.Radius, o.Height)
	case graph.Sphere:
		b.WriteString("sphere")
		b.nums(o.Radius)
	case graph.Cone:
		b.WriteString("cone")
		b.nums(o.RadiusBottom, o.RadiusTop, o.Height)
	case graph.Translate:
		b.WriteString("translate ")
		b.WriteString(ref(o.Child))
		b.vec(o.Offset)
	case graph.Rotate:
		b.WriteString("rotate ")
		b.WriteString(ref(o.Child))
		b.vec(o.Angles)
	case graph.Scale:
		b.WriteString("scale ")
		b.WriteString(ref(o.Child))
		b.vec(o.Factors)
	case graph.Boolean:
		b.WriteString(string(o.Kind))
		b.WriteByte(' ')
		b.WriteString(ref(o.Left))
		b.WriteByte(' ')
		b.WriteString(ref(o.Right))
	case graph.Sketch2D:
		b.WriteString("sketch")
		b.vec(o.Origin)
		b.vec(o.U)
		b.vec(o.V)
		for _, s := range o.Segments {
			b.WriteString(" (")
			switch s.Kind {
			case graph.SegmentArc:
				b.WriteString("arc")
				b.nums(s.Center.X, s.Center.Y, s.Radius, s.StartAngle, s.EndAngle)
			default:
				b.WriteString("line")
				b.nums(s.From.X, s.From.Y, s.To.X, s.To.Y)
			}
			b.WriteByte(')')
		}
	case graph.Extrude:
		b.WriteString("extrude ")
		b.WriteString(ref(o.Sketch))
		b.nums(o.Depth)
	case graph.Revolve:
		b.WriteString("revolve ")
		b.WriteString(ref(o.Sketch))
		b.nums(o.Angle)
	case graph.Sweep:
		b.WriteString("sweep ")
		b.WriteString(ref(o.Sketch))
		for _, p := range o.Path {
			b.vec(p)
		}
	case graph.Loft:
		b.WriteString("loft")
		for _, id := range o.Sketches {
			b.WriteByte(' ')
			b.WriteString(ref(id))
		}
	case graph.Fillet:
		b.WriteString("fillet ")
		b.WriteString(ref(o.Child))
		b.nums(o.Radius)
	case graph.Chamfer:
		b.WriteString("chamfer ")
		b.WriteString(ref(o.Child))
		b.nums(o.Distance)
	case graph.Shell:
		b.WriteString("shell ")
		b.WriteString(ref(o.Child))
		b.nums(o.Thickness)
	case graph.LinearPattern:
		b.WriteString("linear-pattern ")
		b.WriteString(ref(o.Child))
		b.vec(o.Direction)
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(o.Count))
		b.nums(o.Spacing)
	case graph.CircularPattern:
		b.WriteString("circular-pattern ")
		b.WriteString(ref(o.Child))
		b.vec(o.Axis)
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(o.Count))
		b.nums(o.Angle)
	}
	b.WriteByte(')')
}

func ref(id graph.NodeID) string {
	return strconv.FormatInt(int64(id), 10)
}

// intLimit is the magnitude from which an integral value is written in
// exponent form; the reader parses bare digits as int64.
const intLimit = 1e18

// num formats v so the reader takes it back unchanged: plain decimals in the
// usual range, exponent form for large integral values, and "-0.0" for
// negative zero.
func num(v float64) (string, bool) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return "", false
	case v == 0 && math.Signbit(v):
		return "-0.0", true
	case math.Abs(v) >= intLimit:
		return strconv.FormatFloat(v, 'e', -1, 64), true
	}
	return strconv.FormatFloat(v, 'f', -1, 64), true
}

func (b *compactWriter) num(v float64) {
	s, ok := num(v)
	if !ok {
		b.fail("number %v has no compact form", v)
		s = "0"
	}
	b.WriteString(s)
}

func (b *compactWriter) nums(vs ...float64) {
	for _, v := range vs {
		b.WriteByte(' ')
		b.num(v)
	}
}

// str writes a string literal using only the escapes the reader knows.
// Other control characters are written as they are.
func (b *compactWriter) str(s string) {
	if !utf8.ValidString(s) {
		b.fail("string %q is not valid UTF-8", s)
	}
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

func (b *compactWriter) vec(v graph.Vec3) {
	b.WriteString(" (vec3")
	b.nums(v.X, v.Y, v.Z)
	b.WriteByte(')')
}
