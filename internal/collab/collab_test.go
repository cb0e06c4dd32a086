package collab

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

// manualClock fires timers only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Time
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1700000000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	keep := c.timers[:0]
	for _, t := range c.timers {
		if t.stopped {
			continue
		}
		if !t.at.After(c.now) {
			due = append(due, t)
		} else {
			keep = append(keep, t)
		}
	}
	c.timers = keep
	c.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.stopped = true
		t.fn()
	}
}

func TestThrottleLeadingAndTrailing(t *testing.T) {
	clock := newManualClock()
	var got []int
	th := NewThrottle(50*time.Millisecond, clock, func(v int) { got = append(got, v) })

	th.Push(1)
	th.Push(2)
	th.Push(3)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected leading value only, got %v", got)
	}
	clock.Advance(50 * time.Millisecond)
	if len(got) != 2 || got[1] != 3 {
		t.Fatalf("expected latest value at window end, got %v", got)
	}
	clock.Advance(10 * time.Millisecond)
	th.Push(4)
	if len(got) != 2 {
		t.Errorf("expected push inside the window to wait, got %v", got)
	}
	clock.Advance(40 * time.Millisecond)
	if len(got) != 3 || got[2] != 4 {
		t.Errorf("expected 4 delivered, got %v", got)
	}
	clock.Advance(time.Second)
	th.Push(5)
	if got[len(got)-1] != 5 {
		t.Errorf("expected push after quiet period to go out at once, got %v", got)
	}
}

func TestThrottleFlushAndStop(t *testing.T) {
	clock := newManualClock()
	var got []string
	th := NewThrottle(time.Second, clock, func(v string) { got = append(got, v) })
	th.Push("a")
	th.Push("b")
	th.Flush()
	if len(got) != 2 || got[1] != "b" {
		t.Fatalf("expected flush to deliver b, got %v", got)
	}
	th.Push("c")
	th.Stop()
	clock.Advance(2 * time.Second)
	if len(got) != 2 {
		t.Errorf("expected stop to drop c, got %v", got)
	}
}

func TestDebounce(t *testing.T) {
	clock := newManualClock()
	var got []int
	d := NewDebounce(500*time.Millisecond, clock, func(v int) { got = append(got, v) })
	d.Push(1)
	clock.Advance(300 * time.Millisecond)
	d.Push(2)
	clock.Advance(300 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("expected nothing before the quiet period ends, got %v", got)
	}
	clock.Advance(200 * time.Millisecond)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("expected [2], got %v", got)
	}
	if d.Pending() {
		t.Error("expected nothing pending")
	}
}

func TestDecodeElementsDropsBadRecords(t *testing.T) {
	recs := []Record{
		{"type": "shape", "id": "a", "x1": 0.0, "y1": 0.0, "x2": 10.0, "y2": 10.0, "tool": "rectangle", "color": "#000", "strokeWidth": 2.0},
		{"type": "triangle", "id": "b"},
		{"type": "shape", "id": "a", "x1": 1.0},
		{"type": "pen", "id": "c", "points": []any{}},
		{"type": "shape", "id": "d", "x1": math.NaN()},
		{"type": "text", "x": 1.0},
		{"type": "line", "id": "e", "x1": 0.0, "y1": 0.0, "x2": 50.0, "y2": 0.0, "tool": "line",
			"startBinding": map[string]any{"elementId": "a", "side": "middle", "sideOffset": 3.0}},
	}
	els, err := DecodeElements(recs)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("expected ErrInvalidPayload, got %v", err)
	}
	if ids := els.IDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "e" {
		t.Fatalf("expected [a e], got %v", ids)
	}
	l := els[1].(state.Line)
	if len(l.Points) != 2 || l.End() != geom.Pt(50, 0) {
		t.Errorf("expected points rebuilt from endpoints, got %v", l.Points)
	}
	if l.StartBinding != nil {
		t.Errorf("expected binding with unknown side dropped, got %+v", l.StartBinding)
	}
}

func TestCodecsCarrySnapshot(t *testing.T) {
	snap := state.Snapshot{
		Elements: state.Elements{
			state.Pen{Common: state.Common{ID: "p"}, Points: []geom.Point{{X: 1.5, Y: 2}}, Color: "#000", StrokeWidth: 2},
			state.Text{Common: state.Common{ID: "t", Angle: 30}, X: 3, Y: 4, Text: "hi", FontSize: 16, FontFamily: "Inter", Color: "#111", Align: state.AlignCenter},
		},
		Stamp: state.Stamp{Lamport: 7, Site: "site-1"},
	}
	for _, format := range []string{"json", "cbor"} {
		t.Run(format, func(t *testing.T) {
			codec, err := NewCodec(format)
			if err != nil {
				t.Fatalf("NewCodec: %v", err)
			}
			env, err := ElementsEnvelope("room", snap)
			if err != nil {
				t.Fatalf("ElementsEnvelope: %v", err)
			}
			data, err := codec.Marshal(env)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var back Envelope
			if err := codec.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			got, err := back.Snapshot()
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			if got.Stamp != snap.Stamp {
				t.Errorf("expected stamp %+v, got %+v", snap.Stamp, got.Stamp)
			}
			if !state.Equal(got.Elements, snap.Elements) {
				t.Errorf("expected %v, got %v", snap.Elements, got.Elements)
			}
		})
	}
	if _, err := NewCodec("xml"); err == nil {
		t.Error("expected unknown format to fail")
	}
}

type fakeRealtime struct {
	mu        sync.Mutex
	published []state.Snapshot
	cursors   []Cursor
	onElems   func(state.Snapshot)
	onCursor  func(Cursor)
	fail      bool
}

func (f *fakeRealtime) PublishElements(_ context.Context, s state.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("offline")
	}
	f.published = append(f.published, s)
	return nil
}

func (f *fakeRealtime) PublishCursor(_ context.Context, c Cursor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, c)
	return nil
}

func (f *fakeRealtime) SubscribeElements(fn func(state.Snapshot)) func() {
	f.onElems = fn
	return func() { f.onElems = nil }
}

func (f *fakeRealtime) SubscribeCursors(fn func(Cursor)) func() {
	f.onCursor = fn
	return func() { f.onCursor = nil }
}

// echoBoard reports every remote board straight back as a local change,
// the way a careless UI might.
type echoBoard struct {
	bridge *Bridge
	got    []state.Elements
}

func (b *echoBoard) ApplyRemote(els state.Elements) {
	b.got = append(b.got, els)
	b.bridge.LocalChange(els)
}

func TestBridgeLoopGuardAndEcho(t *testing.T) {
	clock := newManualClock()
	rt := &fakeRealtime{}
	board := &echoBoard{}
	b := NewBridge(board, rt, BridgeOptions{Site: "me", Clock: clock})
	board.bridge = b
	b.Start(context.Background())

	remote := state.Snapshot{Elements: state.Elements{state.Shape{Common: state.Common{ID: "x"}}}, Stamp: state.Stamp{Lamport: 5, Site: "peer"}}
	rt.onElems(remote)
	clock.Advance(time.Second)
	if len(board.got) != 1 {
		t.Fatalf("expected remote board applied once, got %d", len(board.got))
	}
	if len(rt.published) != 0 {
		t.Errorf("expected no re-broadcast of a remote board, got %d publishes", len(rt.published))
	}

	rt.onElems(state.Snapshot{Stamp: state.Stamp{Lamport: 9, Site: "me"}})
	if len(board.got) != 1 {
		t.Error("expected own echo to be ignored")
	}

	b.LocalChange(state.Elements{})
	if len(rt.published) != 1 {
		t.Fatalf("expected local change published, got %d", len(rt.published))
	}
	if s := rt.published[0].Stamp; s.Site != "me" || s.Lamport <= 5 {
		t.Errorf("expected stamp after the remote clock, got %+v", s)
	}
}

func TestBridgeCursors(t *testing.T) {
	clock := newManualClock()
	rt := &fakeRealtime{}
	b := NewBridge(nil, rt, BridgeOptions{Site: "me", Clock: clock})
	b.Start(context.Background())
	var seen []Cursor
	b.OnPeers = func(cs []Cursor) { seen = cs }

	rt.onCursor(Cursor{Site: "me", Name: "self"})
	rt.onCursor(Cursor{Site: "p2", Name: "Bea", LastActive: clock.Now().UnixMilli()})
	rt.onCursor(Cursor{Site: "p1", Name: "Ann", LastActive: clock.Now().Add(-time.Minute).UnixMilli()})
	if len(seen) != 2 || seen[0].Name != "Ann" {
		t.Fatalf("expected [Ann Bea], got %+v", seen)
	}
	b.Prune(30 * time.Second)
	if peers := b.Peers(); len(peers) != 1 || peers[0].Site != "p2" {
		t.Errorf("expected idle peer pruned, got %+v", peers)
	}

	b.LocalCursor(geom.Pt(1, 1))
	b.LocalCursor(geom.Pt(2, 2))
	clock.Advance(DefaultCursorInterval)
	if len(rt.cursors) != 2 || rt.cursors[1].Position != geom.Pt(2, 2) {
		t.Errorf("expected leading and trailing cursor, got %+v", rt.cursors)
	}
	if rt.cursors[0].Name != "Guest me" || rt.cursors[0].Color == "" {
		t.Errorf("expected generated name and colour, got %+v", rt.cursors[0])
	}
}

func TestBridgePublishFailureKeepsState(t *testing.T) {
	clock := newManualClock()
	rt := &fakeRealtime{fail: true}
	b := NewBridge(nil, rt, BridgeOptions{Site: "me", Clock: clock})
	b.LocalChange(state.Elements{})
	rt.fail = false
	clock.Advance(time.Second)
	b.LocalChange(state.Elements{state.Shape{Common: state.Common{ID: "a"}}})
	if len(rt.published) != 1 || len(rt.published[0].Elements) != 1 {
		t.Errorf("expected next publish to carry the latest state, got %+v", rt.published)
	}
}

type memStore struct {
	mu   sync.Mutex
	docs map[string]Document
	err  error
}

func (m *memStore) Load(_ context.Context, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id], nil
}

func (m *memStore) Save(_ context.Context, id string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs[id] = doc
	return nil
}

func TestAutosave(t *testing.T) {
	clock := newManualClock()
	store := &memStore{docs: map[string]Document{}}
	a := NewAutosaver(store, "doc", Metadata{Name: "Plan"}, 0, clock)
	var statuses []SaveStatus
	a.OnStatus = func(s SaveStatus) { statuses = append(statuses, s) }

	a.Changed(state.Elements{state.Shape{Common: state.Common{ID: "a"}}})
	if a.Status() != StatusSaving {
		t.Errorf("expected saving, got %s", a.Status())
	}
	clock.Advance(DefaultAutosaveDelay)
	doc, ok := store.docs["doc"]
	if !ok || len(doc.Elements) != 1 || doc.Metadata.Name != "Plan" || doc.Metadata.UpdatedAt == 0 {
		t.Fatalf("expected document saved, got %+v", doc)
	}
	if a.Status() != StatusSaved {
		t.Errorf("expected saved, got %s", a.Status())
	}

	store.err = errors.New("disk full")
	a.Changed(state.Elements{})
	a.Flush()
	if a.Status() != StatusError {
		t.Errorf("expected error status, got %s", a.Status())
	}
	want := []SaveStatus{StatusSaving, StatusSaved, StatusSaving, StatusError}
	if len(statuses) != len(want) {
		t.Fatalf("expected %v, got %v", want, statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("expected %v, got %v", want, statuses)
			break
		}
	}
}

func TestHTTPGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Notes == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(generateResponse{Error: "Failed to generate diagram"})
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Code: "```mermaid\ngraph TD\n  A-->B\n```"})
	}))
	defer srv.Close()

	g := &HTTPGenerator{URL: srv.URL}
	code, err := g.Generate(context.Background(), "a to b", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if code != "graph TD\n  A-->B" {
		t.Errorf("expected fences stripped, got %q", code)
	}
	if _, err := g.Generate(context.Background(), "fail", ""); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
	if _, err := g.Generate(context.Background(), "  ", ""); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected empty notes to fail, got %v", err)
	}
}

type fakeDiagramBoard struct {
	added   []string
	resized map[string][2]float64
}

func (b *fakeDiagramBoard) AddDiagram(code string) string {
	b.added = append(b.added, code)
	return "m1"
}

func (b *fakeDiagramBoard) SetMermaidCode(id, code string) {}

func (b *fakeDiagramBoard) ResizeMermaid(id string, w, h float64) {
	b.resized[id] = [2]float64{w, h}
}

type stubGenerator struct {
	code string
	err  error
}

func (g stubGenerator) Generate(context.Context, string, string) (string, error) {
	return g.code, g.err
}

func TestDiagramService(t *testing.T) {
	board := &fakeDiagramBoard{resized: map[string][2]float64{}}
	svc := &DiagramService{
		Board:     board,
		Generator: stubGenerator{code: "graph LR\n  A-->B"},
		Renderer:  SourceRenderer{Measurer: geom.MonoMeasurer{}},
	}
	id, err := svc.Create(context.Background(), "notes")
	if err != nil || id != "m1" {
		t.Fatalf("expected m1, got %q, %v", id, err)
	}
	if size, ok := board.resized["m1"]; !ok || size[0] <= 0 || size[1] <= 0 {
		t.Errorf("expected intrinsic size fed back, got %v", size)
	}

	svc.Generator = stubGenerator{err: errors.New("quota")}
	if _, err := svc.Create(context.Background(), "notes"); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
	if len(board.added) != 1 {
		t.Errorf("expected nothing placed on failure, got %d diagrams", len(board.added))
	}

	out := svc.Render(context.Background(), "m2", "not a diagram")
	if !out.Failed || out.Markup == "" {
		t.Errorf("expected placeholder for bad source, got %+v", out)
	}
	if _, ok := board.resized["m2"]; ok {
		t.Error("expected failed render to keep the element size")
	}
}

func TestDiagramKind(t *testing.T) {
	tests := []struct {
		src  string
		kind string
		ok   bool
	}{
		{"graph TD\nA-->B", "graph", true},
		{"%% comment\n\nsequenceDiagram\n", "sequenceDiagram", true},
		{"stateDiagram-v2", "stateDiagram-v2", true},
		{"hello world", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		kind, ok := DiagramKind(tt.src)
		if kind != tt.kind || ok != tt.ok {
			t.Errorf("DiagramKind(%q): expected %q/%v, got %q/%v", tt.src, tt.kind, tt.ok, kind, ok)
		}
	}
}

type recordBoard struct {
	got []state.Elements
}

func (b *recordBoard) ApplyRemote(els state.Elements) { b.got = append(b.got, els) }

func TestRemoteBoardIsSaved(t *testing.T) {
	clock := newManualClock()
	rt := &fakeRealtime{}
	board := &recordBoard{}
	b := NewBridge(board, rt, BridgeOptions{Site: "host", Clock: clock})
	store := &memStore{docs: map[string]Document{}}
	saver := NewAutosaver(store, "doc", Metadata{Name: "Shared"}, 0, clock)
	b.OnRemote = saver.Changed
	b.Start(context.Background())

	rt.onElems(state.Snapshot{
		Elements: state.Elements{state.Shape{Common: state.Common{ID: "from-peer"}}},
		Stamp:    state.Stamp{Lamport: 3, Site: "peer"},
	})
	clock.Advance(DefaultAutosaveDelay)

	doc, ok := store.docs["doc"]
	if !ok || len(doc.Elements) != 1 || doc.Elements[0].Meta().ID != "from-peer" {
		t.Fatalf("expected the remote board saved, got %+v", doc)
	}
	if len(rt.published) != 0 {
		t.Errorf("expected no re-broadcast of a remote board, got %d publishes", len(rt.published))
	}

	rt.onElems(state.Snapshot{Stamp: state.Stamp{Lamport: 9, Site: "host"}})
	if len(board.got) != 1 {
		t.Errorf("expected own echo to be ignored, got %d boards", len(board.got))
	}
}

func TestDocumentName(t *testing.T) {
	long := strings.Repeat("é", MaxNameLength+5)
	tests := []struct {
		in, want string
	}{
		{"  Plan  ", "Plan"},
		{long, strings.Repeat("é", MaxNameLength)},
		{"   ", ""},
	}
	for _, tt := range tests {
		got := DocumentName(tt.in)
		if got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
		if !utf8.ValidString(got) {
			t.Errorf("expected valid UTF-8, got %q", got)
		}
	}

	clock := newManualClock()
	store := &memStore{docs: map[string]Document{}}
	a := NewAutosaver(store, "doc", Metadata{Name: "Plan"}, 0, clock)
	if got := a.Rename(long); got != strings.Repeat("é", MaxNameLength) {
		t.Errorf("expected name cut to %d runes, got %d", MaxNameLength, utf8.RuneCountInString(got))
	}
	a.Changed(state.Elements{})
	a.Flush()
	if name := store.docs["doc"].Metadata.Name; utf8.RuneCountInString(name) != MaxNameLength {
		t.Errorf("expected saved name of %d runes, got %q", MaxNameLength, name)
	}
}
