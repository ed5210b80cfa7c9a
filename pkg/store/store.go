// Package store owns the editable document state and every operation that
// changes it.
//
// A Store is not safe for concurrent use. The owning process serialises all
// calls, typically on its UI thread. Every mutator either applies fully or
// does nothing; stale part ids are silent no-ops, never errors.
package store

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/history"
	"github.com/chazu/lignin/pkg/metrics"
	"github.com/chazu/lignin/pkg/part"
)

// DuplicateOffset is the default X shift applied to duplicated parts, in mm.
const DuplicateOffset = 10.0

// Action classifies a Change.
type Action string

const (
	ActionMutate Action = "mutate"
	ActionUndo   Action = "undo"
	ActionRedo   Action = "redo"
	ActionLoad   Action = "load"
)

// Change is delivered to subscribers after the state changed.
type Change struct {
	Action Action
	Label  string
}

// Store is the live editor state plus its undo history.
type Store struct {
	state *State
	hist  *history.History[*State]

	logger          *slog.Logger
	metrics         *metrics.Metrics
	checks          bool
	duplicateOffset float64
	historyDepth    int
	defaultMaterial string

	subs    map[int]func(Change)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics records store activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithInvariantChecks validates the state after every mutation and panics
// on the first error-severity finding.
func WithInvariantChecks() Option {
	return func(s *Store) { s.checks = true }
}

// WithHistoryDepth bounds the undo stack.
func WithHistoryDepth(n int) Option {
	return func(s *Store) { s.historyDepth = n }
}

// WithDuplicateOffset overrides DuplicateOffset.
func WithDuplicateOffset(mm float64) Option {
	return func(s *Store) { s.duplicateOffset = mm }
}

// WithDefaultMaterial sets the material key given to new parts. Until the
// key is defined in the document, new parts fall back to
// graph.DefaultMaterial.
func WithDefaultMaterial(key string) Option {
	return func(s *Store) { s.defaultMaterial = key }
}

// New returns a store holding an empty document.
func New(opts ...Option) *Store {
	s := &Store{
		state:           NewState(),
		logger:          slog.Default(),
		duplicateOffset: DuplicateOffset,
		historyDepth:    history.DefaultMaxDepth,
		defaultMaterial: graph.DefaultMaterial,
		subs:            make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hist = history.New[*State](s.historyDepth)
	return s
}

// State returns the live state. Callers must treat it as read-only and must
// not keep it past the next mutation; use Snapshot for a private copy.
func (s *Store) State() *State { return s.state }

// Snapshot returns an independent copy of the live state.
func (s *Store) Snapshot() *State { return s.state.Clone() }

// Doc returns the live document. The same rules as State apply.
func (s *Store) Doc() *graph.Document { return s.state.Doc }

// Parts returns the live part list.
func (s *Store) Parts() []part.Info {
	return append([]part.Info(nil), s.state.Parts...)
}

// ConsumedParts returns the ids of parts consumed by booleans and modifiers
// in part-number order.
func (s *Store) ConsumedParts() []part.ID {
	return part.Table(s.state.ConsumedParts).SortedIDs()
}

// Part returns a live part.
func (s *Store) Part(id part.ID) (part.Info, bool) {
	p, i := s.state.Part(id)
	return p, i >= 0
}

// Load replaces the whole state and clears history.
func (s *Store) Load(st *State) {
	s.state = st
	s.hist.Clear()
	s.metrics.SetSize(st.Doc.NodeCount(), len(st.Parts))
	s.logger.Info("document loaded", "nodes", st.Doc.NodeCount(), "parts", len(st.Parts))
	s.check("load")
	s.notify(Change{Action: ActionLoad})
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// Undo restores the state from before the latest action.
func (s *Store) Undo() bool {
	e, ok := s.hist.Undo(s.state)
	if !ok {
		return false
	}
	s.state = e.State
	s.metrics.RecordHistory("undo")
	s.logger.Debug("undo", "label", e.Label)
	s.notify(Change{Action: ActionUndo, Label: e.Label})
	return true
}

// Redo reapplies the latest undone action.
func (s *Store) Redo() bool {
	e, ok := s.hist.Redo(s.state)
	if !ok {
		return false
	}
	s.state = e.State
	s.metrics.RecordHistory("redo")
	s.logger.Debug("redo", "label", e.Label)
	s.notify(Change{Action: ActionRedo, Label: e.Label})
	return true
}

func (s *Store) CanUndo() bool     { return s.hist.CanUndo() }
func (s *Store) CanRedo() bool     { return s.hist.CanRedo() }
func (s *Store) UndoLabel() string { return s.hist.UndoLabel() }
func (s *Store) RedoLabel() string { return s.hist.RedoLabel() }

// ---------------------------------------------------------------------------
// Observers
// ---------------------------------------------------------------------------

// Subscribe registers fn to run after every change and returns a function
// that removes it. Callbacks run synchronously in subscription order.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

func (s *Store) notify(c Change) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := s.subs[id]; ok {
			fn(c)
		}
	}
}

// ---------------------------------------------------------------------------
// Mutation plumbing
// ---------------------------------------------------------------------------

// apply runs fn on a working copy of the state. If fn reports false the copy
// is dropped and nothing changes. Otherwise the previous state becomes the
// undo snapshot, unless skipUndo is set, and the copy goes live.
func (s *Store) apply(action, label string, skipUndo bool, fn func(st *State) bool) bool {
	next := s.state.Clone()
	if !fn(next) {
		s.metrics.RecordNoop(action)
		s.logger.Debug("mutation ignored", "action", action)
		return false
	}
	if !skipUndo {
		s.hist.Push(label, s.state)
	}
	s.state = next
	s.metrics.RecordMutation(action, next.Doc.NodeCount(), len(next.Parts))
	s.logger.Debug("mutation applied",
		"action", action,
		"label", label,
		"nodes", next.Doc.NodeCount(),
		"parts", len(next.Parts),
		"skip_undo", skipUndo)
	s.check(action)
	s.notify(Change{Action: ActionMutate, Label: label})
	return true
}

func (s *Store) check(action string) {
	if !s.checks {
		return
	}
	if errs := graph.Errors(s.state.Validate()); len(errs) > 0 {
		panic(fmt.Sprintf("store: invariant violated after %s: %v", action, errs))
	}
}

// newPartMaterial picks the material for a freshly created part.
func (s *Store) newPartMaterial(st *State) string {
	if _, ok := st.Doc.Materials[s.defaultMaterial]; ok {
		return s.defaultMaterial
	}
	return graph.DefaultMaterial
}
