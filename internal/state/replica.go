package state

import (
	"log"
	"sync"
)

// Stamp identifies who wrote a snapshot and when, in Lamport time.
type Stamp struct {
	Lamport uint64 `json:"lamport"`
	Site    string `json:"site"`
}

// Snapshot is a complete board state as exchanged between peers.
type Snapshot struct {
	Elements Elements `json:"elements"`
	Stamp    Stamp    `json:"stamp"`
}

// Replica is this site's copy of the shared board. Replication is
// last-writer-wins on the whole element array: whichever snapshot arrives
// last replaces everything, with no per-element merge.
type Replica struct {
	mu      sync.RWMutex
	site    string
	clock   LamportClock
	current Snapshot
}

// NewReplica creates an empty replica. An empty site gets a fresh id.
func NewReplica(site string) *Replica {
	if site == "" {
		site = NewID()
	}
	return &Replica{site: site, current: Snapshot{Stamp: Stamp{Site: site}}}
}

func (r *Replica) Site() string {
	return r.site
}

// CommitLocal records a local edit and returns the stamped snapshot to
// publish.
func (r *Replica) CommitLocal(els Elements) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = Snapshot{Elements: els, Stamp: Stamp{Lamport: r.clock.Tick(), Site: r.site}}
	return r.current
}

// ApplyRemote replaces the board with a peer's snapshot. Echoes of this
// site's own snapshots are ignored and reported as not applied.
func (r *Replica) ApplyRemote(s Snapshot) bool {
	if s.Stamp.Site == r.site {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock.Observe(s.Stamp.Lamport)
	r.current = s
	log.Printf("[REPLICA] Remote snapshot applied: %d elements from site %s at %d", len(s.Elements), s.Stamp.Site, s.Stamp.Lamport)
	return true
}

// Current returns the latest snapshot, local or remote.
func (r *Replica) Current() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Clock returns the current Lamport time.
func (r *Replica) Clock() uint64 {
	return r.clock.Now()
}
