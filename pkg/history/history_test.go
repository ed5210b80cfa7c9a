package history

import "testing"

func TestUndoRedoRoundTrip(t *testing.T) {
	h := New[int](0)
	state := 0

	// Three actions: each pushes the state from before it.
	for i, label := range []string{"a", "b", "c"} {
		h.Push(label, state)
		state = i + 1
	}
	if u, r := h.Len(); u != 3 || r != 0 {
		t.Fatalf("Len() = %d, %d, want 3, 0", u, r)
	}
	if h.UndoLabel() != "c" {
		t.Errorf("UndoLabel() = %q, want c", h.UndoLabel())
	}

	e, ok := h.Undo(state)
	if !ok || e.State != 2 || e.Label != "c" {
		t.Fatalf("Undo = %+v, %v, want {c 2}, true", e, ok)
	}
	state = e.State
	if h.RedoLabel() != "c" {
		t.Errorf("RedoLabel() = %q, want c", h.RedoLabel())
	}

	e, ok = h.Redo(state)
	if !ok || e.State != 3 || e.Label != "c" {
		t.Fatalf("Redo = %+v, %v, want {c 3}, true", e, ok)
	}
	if !h.CanUndo() || h.CanRedo() {
		t.Errorf("CanUndo/CanRedo = %v/%v, want true/false", h.CanUndo(), h.CanRedo())
	}
}

func TestPushClearsRedo(t *testing.T) {
	h := New[string](0)
	h.Push("first", "s0")
	h.Undo("s1")
	if !h.CanRedo() {
		t.Fatal("expected redo after undo")
	}
	h.Push("second", "s0")
	if h.CanRedo() {
		t.Error("Push should clear the redo stack")
	}
}

func TestEmptyStacksAreNoOps(t *testing.T) {
	h := New[int](0)
	if _, ok := h.Undo(7); ok {
		t.Error("Undo on empty history returned ok")
	}
	if _, ok := h.Redo(7); ok {
		t.Error("Redo on empty history returned ok")
	}
	if u, r := h.Len(); u != 0 || r != 0 {
		t.Errorf("Len() = %d, %d, want 0, 0", u, r)
	}
	if h.UndoLabel() != "" || h.RedoLabel() != "" {
		t.Error("labels should be empty")
	}
}

func TestMaxDepthEvictsOldest(t *testing.T) {
	h := New[int](3)
	for i := 0; i < 5; i++ {
		h.Push("step", i)
	}
	if u, _ := h.Len(); u != 3 {
		t.Fatalf("undo depth = %d, want 3", u)
	}
	var got []int
	for h.CanUndo() {
		e, _ := h.Undo(-1)
		got = append(got, e.State)
	}
	want := []int{4, 3, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("undo order = %v, want %v", got, want)
		}
	}
}

func TestDefaultDepth(t *testing.T) {
	if got := New[int](-1).MaxDepth(); got != DefaultMaxDepth {
		t.Errorf("MaxDepth() = %d, want %d", got, DefaultMaxDepth)
	}
}

func TestClear(t *testing.T) {
	h := New[int](0)
	h.Push("a", 1)
	h.Push("b", 2)
	h.Undo(3)
	h.Clear()
	if h.CanUndo() || h.CanRedo() {
		t.Error("Clear left entries behind")
	}
}
