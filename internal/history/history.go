// Package history keeps the undo/redo stack of whole-board snapshots.
package history

import "CollabBoard/internal/state"

// History is a linear stack of snapshots and a cursor into it. It is not
// safe for concurrent use; the engine serialises access.
type History struct {
	states  []state.Elements
	current int
	max     int
}

// New starts a history holding initial. max <= 0 means unbounded.
func New(initial state.Elements, max int) *History {
	return &History{states: []state.Elements{initial}, max: max}
}

// Current returns the snapshot under the cursor.
func (h *History) Current() state.Elements {
	return h.states[h.current]
}

// Checkpoint drops any redo tail and pushes els as a new undo step. A
// snapshot equal to the current one is ignored.
func (h *History) Checkpoint(els state.Elements) bool {
	if state.Equal(h.states[h.current], els) {
		return false
	}
	h.states = append(h.states[:h.current+1], els)
	h.current++
	if h.max > 0 && len(h.states) > h.max {
		drop := len(h.states) - h.max
		h.states = append([]state.Elements(nil), h.states[drop:]...)
		h.current -= drop
	}
	return true
}

// Replace overwrites the snapshot under the cursor without adding a step.
func (h *History) Replace(els state.Elements) {
	h.states[h.current] = els
}

// Finalize ends an in-place edit that started from base: the slot under
// the cursor goes back to base and the edited state becomes a new step.
// Nothing is recorded when the edit ended where it started.
func (h *History) Finalize(base state.Elements) bool {
	edited := h.states[h.current]
	h.states[h.current] = base
	return h.Checkpoint(edited)
}

// Undo moves the cursor back one step.
func (h *History) Undo() (state.Elements, bool) {
	if !h.CanUndo() {
		return h.Current(), false
	}
	h.current--
	return h.Current(), true
}

// Redo moves the cursor forward one step.
func (h *History) Redo() (state.Elements, bool) {
	if !h.CanRedo() {
		return h.Current(), false
	}
	h.current++
	return h.Current(), true
}

func (h *History) CanUndo() bool {
	return h.current > 0
}

func (h *History) CanRedo() bool {
	return h.current < len(h.states)-1
}

// Len returns the number of snapshots held.
func (h *History) Len() int {
	return len(h.states)
}

// Index returns the cursor position.
func (h *History) Index() int {
	return h.current
}

// Reset discards everything and starts over from els.
func (h *History) Reset(els state.Elements) {
	h.states = []state.Elements{els}
	h.current = 0
}
