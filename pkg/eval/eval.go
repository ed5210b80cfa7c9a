// Package eval turns a document graph into solids through a geometry kernel.
// One Part is produced per document root.
//
// The Evaluator keeps a per-node solid cache between calls. An entry is
// reused while the node's operation and the generations of its inputs are
// unchanged, so editing one transform only rebuilds that node and the nodes
// above it. Roots are evaluated in parallel.
package eval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/kernel"
	"github.com/chazu/lignin/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidDocument is returned when structural validation fails.
var ErrInvalidDocument = errors.New("invalid document")

// ErrUnsupported marks operations the kernel cannot build.
var ErrUnsupported = errors.New("unsupported operation")

// Engine evaluates documents. Implementations may cache between calls;
// InvalidateNodes drops cached results for the given nodes and everything
// built on them.
type Engine interface {
	Evaluate(ctx context.Context, doc *graph.Document, opts Options) (*Scene, error)
	InvalidateNodes(ids []graph.NodeID)
}

// Options controls one evaluation.
type Options struct {
	// SkipExpensiveChecks skips the structural validation pass. Cycles and
	// dangling references are still caught during the walk.
	SkipExpensiveChecks bool
	// Tessellate also produces a mesh for every root.
	Tessellate bool
}

// Part is the evaluated geometry of one root.
type Part struct {
	Root     graph.NodeID
	Name     string
	Material string
	Solid    kernel.Solid
	// Mesh is set when Options.Tessellate was given. Meshes may be shared
	// with the cache and must not be modified.
	Mesh     *kernel.Mesh
	Min, Max [3]float64
	// Err is set when the root could not be built. Other roots are
	// unaffected.
	Err error
}

// Warning reports an approximation made while building a node.
type Warning struct {
	NodeID  graph.NodeID
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.NodeID, w.Message)
}

// Scene is the result of one evaluation.
type Scene struct {
	Parts    []Part
	Warnings []Warning
	Hits     int
	Misses   int
}

// Failed returns the parts that could not be built.
func (s *Scene) Failed() []Part {
	var out []Part
	for _, p := range s.Parts {
		if p.Err != nil {
			out = append(out, p)
		}
	}
	return out
}

// NodeError attributes a build failure to the node that caused it.
type NodeError struct {
	NodeID graph.NodeID
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// Compile-time interface check.
var _ Engine = (*Evaluator)(nil)

// entry is one cached node result.
type entry struct {
	op       graph.Op
	deps     []uint64
	gen      uint64
	solid    kernel.Solid
	mesh     *kernel.Mesh
	warnings []Warning
}

// Evaluator is the reference Engine over a kernel.Kernel. It is safe for
// concurrent use.
type Evaluator struct {
	kernel      kernel.Kernel
	logger      *slog.Logger
	metrics     *metrics.Metrics
	parallelism int

	mu      sync.Mutex
	cache   map[graph.NodeID]*entry
	parents map[graph.NodeID][]graph.NodeID
	nextGen uint64
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// WithMetrics records evaluation latency and cache lookups.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

// WithParallelism bounds how many roots are built at once. Non-positive
// values select GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(e *Evaluator) { e.parallelism = n }
}

// New returns an Evaluator building solids with k.
func New(k kernel.Kernel, opts ...Option) *Evaluator {
	e := &Evaluator{
		kernel: k,
		logger: slog.Default(),
		cache:  make(map[graph.NodeID]*entry),
	}
	for _, o := range opts {
		o(e)
	}
	if e.parallelism <= 0 {
		e.parallelism = runtime.GOMAXPROCS(0)
	}
	return e
}

// CacheLen reports the number of cached node results.
func (e *Evaluator) CacheLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

// InvalidateNodes drops the cached results of ids and of every node that
// depends on them, as of the last evaluated document.
func (e *Evaluator) InvalidateNodes(ids []graph.NodeID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := make(map[graph.NodeID]bool)
	queue := append([]graph.NodeID(nil), ids...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		delete(e.cache, id)
		queue = append(queue, e.parents[id]...)
	}
	e.logger.Debug("invalidated nodes", "requested", len(ids), "dropped", len(seen))
}

// Evaluate builds every root of doc. Geometry failures are reported per
// part; the returned error is reserved for invalid documents and context
// cancellation.
func (e *Evaluator) Evaluate(ctx context.Context, doc *graph.Document, opts Options) (*Scene, error) {
	start := time.Now()
	scene, err := e.evaluate(ctx, doc, opts)
	status := "ok"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "canceled"
	case err != nil:
		status = "error"
	}
	elapsed := time.Since(start)
	e.metrics.RecordEval(status, elapsed.Seconds())
	if err != nil {
		e.logger.Warn("evaluation failed", "error", err, "duration", elapsed)
		return nil, err
	}
	e.logger.Debug("evaluated document",
		"roots", len(scene.Parts),
		"failed", len(scene.Failed()),
		"hits", scene.Hits,
		"misses", scene.Misses,
		"duration", elapsed,
	)
	return scene, nil
}

func (e *Evaluator) evaluate(ctx context.Context, doc *graph.Document, opts Options) (*Scene, error) {
	if doc == nil {
		return &Scene{}, nil
	}
	if !opts.SkipExpensiveChecks {
		if errs := graph.Errors(graph.Validate(doc)); len(errs) > 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, errs[0])
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.parents = doc.Parents()
	e.mu.Unlock()

	roots := doc.Roots
	parts := make([]Part, len(roots))
	walkers := make([]*walker, len(roots))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, root := range roots {
		g.Go(func() error {
			w := &walker{
				ev:     e,
				ctx:    gCtx,
				doc:    doc,
				done:   make(map[graph.NodeID]result),
				active: make(map[graph.NodeID]bool),
			}
			walkers[i] = w
			p, err := w.root(root.Root, root.Material, opts.Tessellate)
			if err != nil {
				return err
			}
			parts[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scene := &Scene{Parts: parts}
	seen := make(map[Warning]bool)
	for _, w := range walkers {
		scene.Hits += w.hits
		scene.Misses += w.misses
		for _, warn := range w.warnings {
			if !seen[warn] {
				seen[warn] = true
				scene.Warnings = append(scene.Warnings, warn)
			}
		}
	}
	return scene, nil
}

// lookup returns the cached entry for id when it was built from the same
// operation and input generations.
func (e *Evaluator) lookup(id graph.NodeID, op graph.Op, deps []uint64) (*entry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.cache[id]
	hit := ok && sameDeps(ent.deps, deps) && opEqual(ent.op, op)
	e.metrics.RecordCache(hit)
	if !hit {
		return nil, false
	}
	return ent, true
}

// store caches a freshly built node and returns its generation.
func (e *Evaluator) store(id graph.NodeID, op graph.Op, deps []uint64, solid kernel.Solid, warnings []Warning) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextGen++
	e.cache[id] = &entry{
		op:       graph.CloneOp(op),
		deps:     deps,
		gen:      e.nextGen,
		solid:    solid,
		warnings: warnings,
	}
	return e.nextGen
}

// cachedMesh returns the mesh stored for generation gen of id.
func (e *Evaluator) cachedMesh(id graph.NodeID, gen uint64) *kernel.Mesh {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ent, ok := e.cache[id]; ok && ent.gen == gen {
		return ent.mesh
	}
	return nil
}

func (e *Evaluator) storeMesh(id graph.NodeID, gen uint64, m *kernel.Mesh) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ent, ok := e.cache[id]; ok && ent.gen == gen {
		ent.mesh = m
	}
}

func sameDeps(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
