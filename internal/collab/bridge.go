package collab

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

const (
	DefaultPublishInterval = 50 * time.Millisecond
	DefaultCursorInterval  = 16 * time.Millisecond
)

// Board is the local side of a Bridge.
type Board interface {
	ApplyRemote(els state.Elements)
}

// BridgeOptions configures a Bridge. Zero values fall back to defaults.
type BridgeOptions struct {
	Site            string
	Name            string
	Color           string
	PublishInterval time.Duration
	CursorInterval  time.Duration
	Clock           Clock
}

// Bridge keeps a board and a room in step. Local edits are published as
// whole snapshots through a throttle; remote snapshots replace the board.
type Bridge struct {
	board    Board
	rt       Realtime
	replica  *state.Replica
	clock    Clock
	name     string
	color    string
	elements *Throttle[state.Elements]
	cursor   *Throttle[geom.Point]

	// applying is set while a remote snapshot is handed to the board so
	// that any change it reports is not published back.
	applying atomic.Bool

	mu    sync.RWMutex
	peers map[string]Cursor
	unsub []func()
	ctx   context.Context

	// OnPeers is called with the known peers whenever a cursor arrives.
	OnPeers func([]Cursor)
	// OnRemote is called with every remote board after the board took it.
	OnRemote func(state.Elements)
}

func NewBridge(board Board, rt Realtime, opts BridgeOptions) *Bridge {
	if opts.PublishInterval <= 0 {
		opts.PublishInterval = DefaultPublishInterval
	}
	if opts.CursorInterval <= 0 {
		opts.CursorInterval = DefaultCursorInterval
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	b := &Bridge{
		board:   board,
		rt:      rt,
		replica: state.NewReplica(opts.Site),
		clock:   opts.Clock,
		name:    opts.Name,
		color:   opts.Color,
		peers:   make(map[string]Cursor),
		ctx:     context.Background(),
	}
	if b.name == "" {
		b.name = GuestName(b.replica.Site())
	}
	if b.color == "" {
		b.color = SiteColor(b.replica.Site())
	}
	b.elements = NewThrottle(opts.PublishInterval, opts.Clock, b.publish)
	b.cursor = NewThrottle(opts.CursorInterval, opts.Clock, b.publishCursor)
	return b
}

// Site returns this peer's id.
func (b *Bridge) Site() string {
	return b.replica.Site()
}

// Start subscribes to the room. Publishing uses ctx until Close.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.unsub = append(b.unsub,
		b.rt.SubscribeElements(b.remote),
		b.rt.SubscribeCursors(b.remoteCursor),
	)
	b.mu.Unlock()
	log.Printf("[BRIDGE] Started as %s (%s)", b.name, b.Site())
}

// Close flushes the last edit and unsubscribes.
func (b *Bridge) Close() {
	b.elements.Flush()
	b.cursor.Stop()
	b.mu.Lock()
	unsub := b.unsub
	b.unsub = nil
	b.mu.Unlock()
	for _, fn := range unsub {
		fn()
	}
}

// LocalChange queues a local board state for publishing.
func (b *Bridge) LocalChange(els state.Elements) {
	if b.applying.Load() {
		return
	}
	b.elements.Push(els)
}

// LocalCursor queues the local pointer position for publishing.
func (b *Bridge) LocalCursor(p geom.Point) {
	b.cursor.Push(p)
}

func (b *Bridge) publishCtx() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

func (b *Bridge) publish(els state.Elements) {
	snap := b.replica.CommitLocal(els)
	if err := b.rt.PublishElements(b.publishCtx(), snap); err != nil {
		// the next publish carries the latest state anyway
		log.Printf("[BRIDGE] Publish failed at %d: %v", snap.Stamp.Lamport, err)
	}
}

func (b *Bridge) publishCursor(p geom.Point) {
	c := Cursor{
		Site:       b.Site(),
		Name:       b.name,
		Color:      b.color,
		Position:   p,
		LastActive: b.clock.Now().UnixMilli(),
	}
	if err := b.rt.PublishCursor(b.publishCtx(), c); err != nil {
		log.Printf("[BRIDGE] Cursor publish failed: %v", err)
	}
}

func (b *Bridge) remote(s state.Snapshot) {
	if !b.replica.ApplyRemote(s) {
		return
	}
	b.applying.Store(true)
	b.board.ApplyRemote(s.Elements)
	b.applying.Store(false)
	b.mu.RLock()
	fn := b.OnRemote
	b.mu.RUnlock()
	if fn != nil {
		fn(s.Elements)
	}
}

func (b *Bridge) remoteCursor(c Cursor) {
	if c.Site == b.Site() {
		return
	}
	b.mu.Lock()
	b.peers[c.Site] = c
	fn := b.OnPeers
	b.mu.Unlock()
	if fn != nil {
		fn(b.Peers())
	}
}

// Peers returns the last known cursor of every other peer, by name.
func (b *Bridge) Peers() []Cursor {
	b.mu.RLock()
	out := make([]Cursor, 0, len(b.peers))
	for _, c := range b.peers {
		out = append(out, c)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Site < out[j].Site
	})
	return out
}

// Prune forgets peers that have been idle for longer than maxIdle.
func (b *Bridge) Prune(maxIdle time.Duration) {
	cutoff := b.clock.Now().Add(-maxIdle).UnixMilli()
	b.mu.Lock()
	defer b.mu.Unlock()
	for site, c := range b.peers {
		if c.LastActive < cutoff {
			delete(b.peers, site)
		}
	}
}

// GuestName is the display name of a peer without one.
func GuestName(site string) string {
	if len(site) > 4 {
		site = site[:4]
	}
	return "Guest " + site
}

var cursorPalette = []string{
	"#e11d48", "#d97706", "#16a34a", "#0891b2",
	"#2563eb", "#7c3aed", "#db2777", "#65a30d",
}

// SiteColor picks a stable cursor colour for a site.
func SiteColor(site string) string {
	h := fnv.New32a()
	fmt.Fprint(h, site)
	return cursorPalette[h.Sum32()%uint32(len(cursorPalette))]
}
