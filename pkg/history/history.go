// Package history implements a bounded undo/redo stack of labelled
// snapshots.
//
// History never copies: callers push values they will not mutate again,
// and receive back values they now own.
package history

// DefaultMaxDepth bounds the undo stack when no depth is configured.
const DefaultMaxDepth = 50

// Entry is one labelled snapshot.
type Entry[T any] struct {
	Label string
	State T
}

// History holds an undo stack and a redo stack of snapshots.
type History[T any] struct {
	maxDepth int
	undo     []Entry[T]
	redo     []Entry[T]
}

// New returns an empty history keeping at most maxDepth undo entries. A
// non-positive depth selects DefaultMaxDepth.
func New[T any](maxDepth int) *History[T] {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &History[T]{maxDepth: maxDepth}
}

// MaxDepth returns the undo stack bound.
func (h *History[T]) MaxDepth() int { return h.maxDepth }

// Push records the state from before an action. The redo stack is
// cleared; when the undo stack is full the oldest entry is evicted.
func (h *History[T]) Push(label string, before T) {
	h.undo = append(h.undo, Entry[T]{Label: label, State: before})
	if over := len(h.undo) - h.maxDepth; over > 0 {
		clear(h.undo[:over])
		h.undo = h.undo[over:]
	}
	clear(h.redo)
	h.redo = h.redo[:0]
}

// Undo pops the latest entry and returns it. current is pushed onto the
// redo stack under the undone action's label. With nothing to undo it
// returns false and leaves both stacks untouched.
func (h *History[T]) Undo(current T) (Entry[T], bool) {
	if len(h.undo) == 0 {
		var zero Entry[T]
		return zero, false
	}
	e := h.undo[len(h.undo)-1]
	h.undo[len(h.undo)-1] = Entry[T]{}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, Entry[T]{Label: e.Label, State: current})
	return e, true
}

// Redo mirrors Undo.
func (h *History[T]) Redo(current T) (Entry[T], bool) {
	if len(h.redo) == 0 {
		var zero Entry[T]
		return zero, false
	}
	e := h.redo[len(h.redo)-1]
	h.redo[len(h.redo)-1] = Entry[T]{}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, Entry[T]{Label: e.Label, State: current})
	return e, true
}

func (h *History[T]) CanUndo() bool { return len(h.undo) > 0 }
func (h *History[T]) CanRedo() bool { return len(h.redo) > 0 }

// UndoLabel returns the label of the action Undo would revert, or "".
func (h *History[T]) UndoLabel() string {
	if len(h.undo) == 0 {
		return ""
	}
	return h.undo[len(h.undo)-1].Label
}

// RedoLabel returns the label of the action Redo would reapply, or "".
func (h *History[T]) RedoLabel() string {
	if len(h.redo) == 0 {
		return ""
	}
	return h.redo[len(h.redo)-1].Label
}

// Len returns the sizes of the undo and redo stacks.
func (h *History[T]) Len() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

// Clear drops every entry.
func (h *History[T]) Clear() {
	h.undo = nil
	h.redo = nil
}
