package collab

import (
	"context"
	"log"
	"sync"
	"time"

	"CollabBoard/internal/state"
)

const DefaultAutosaveDelay = 500 * time.Millisecond

// SaveStatus is shown next to the document name.
type SaveStatus string

const (
	StatusSaved  SaveStatus = "saved"
	StatusSaving SaveStatus = "saving"
	StatusError  SaveStatus = "error"
)

// Autosaver writes the board to Persistence once edits pause. Saving runs
// in the background and never blocks the caller.
type Autosaver struct {
	store    Persistence
	id       string
	clock    Clock
	debounce *Debounce[state.Elements]

	mu     sync.Mutex
	meta   Metadata
	status SaveStatus

	OnStatus func(SaveStatus)
}

func NewAutosaver(store Persistence, id string, meta Metadata, delay time.Duration, clock Clock) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	if clock == nil {
		clock = RealClock{}
	}
	a := &Autosaver{store: store, id: id, clock: clock, meta: meta, status: StatusSaved}
	a.debounce = NewDebounce(delay, clock, a.save)
	return a
}

// Changed schedules a save of els.
func (a *Autosaver) Changed(els state.Elements) {
	a.setStatus(StatusSaving)
	a.debounce.Push(els)
}

// Rename changes the document name used by later saves and returns the
// name as stored. Names are cut to MaxNameLength characters.
func (a *Autosaver) Rename(name string) string {
	name = DocumentName(name)
	a.mu.Lock()
	a.meta.Name = name
	a.mu.Unlock()
	return name
}

// Flush saves a pending change immediately.
func (a *Autosaver) Flush() {
	a.debounce.Flush()
}

func (a *Autosaver) Status() SaveStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *Autosaver) save(els state.Elements) {
	a.mu.Lock()
	a.meta.UpdatedAt = a.clock.Now().UnixMilli()
	doc := Document{Elements: els, Metadata: a.meta}
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.store.Save(ctx, a.id, doc); err != nil {
		log.Printf("[AUTOSAVE] Saving %s failed: %v", a.id, err)
		a.setStatus(StatusError)
		return
	}
	if !a.debounce.Pending() {
		a.setStatus(StatusSaved)
	}
}

func (a *Autosaver) setStatus(s SaveStatus) {
	a.mu.Lock()
	changed := a.status != s
	a.status = s
	fn := a.OnStatus
	a.mu.Unlock()
	if changed && fn != nil {
		fn(s)
	}
}
