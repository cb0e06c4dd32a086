package net

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"CollabBoard/internal/collab"
)

const (
	writeWait   = 10 * time.Second
	sendBuffer  = 64
	maxMessage  = 8 << 20
	defaultRoom = "main"
)

// Hub relays envelopes between the peers of each room. It keeps the last
// elements envelope and every cursor of a room so that late joiners start
// from the current board.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]*room
}

type room struct {
	peers   map[*peer]bool
	last    *collab.Envelope
	cursors map[string]collab.Envelope
}

// peer is one websocket connection. Writes go through send so that a slow
// reader never blocks the hub.
type peer struct {
	ws    *websocket.Conn
	codec collab.Codec
	room  string
	site  string
	send  chan []byte

	mu     sync.Mutex
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		rooms: make(map[string]*room),
	}
}

// Handler serves rooms at /ws/{room}. The wire format is picked per
// connection with ?format=json|cbor.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{room}", h.serveRoom)
	return mux
}

// ListenAndServe runs the hub on addr until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h.Handler()}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	log.Printf("[HUB] Listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("hub: %w", err)
	}
	return nil
}

// Count returns the number of connected peers in roomID.
func (h *Hub) Count(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[roomID]; ok {
		return len(r.peers)
	}
	return 0
}

func (h *Hub) serveRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room")
	if roomID == "" {
		roomID = defaultRoom
	}
	codec, err := collab.NewCodec(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[HUB] Upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	ws.SetReadLimit(maxMessage)

	p := &peer{ws: ws, codec: codec, room: roomID, send: make(chan []byte, sendBuffer)}
	go p.writeLoop()
	h.add(p)
	defer h.remove(p)
	h.readLoop(p)
}

func (h *Hub) add(p *peer) {
	h.mu.Lock()
	r, ok := h.rooms[p.room]
	if !ok {
		r = &room{peers: make(map[*peer]bool), cursors: make(map[string]collab.Envelope)}
		h.rooms[p.room] = r
	}
	r.peers[p] = true
	// replay happens under the lock so nothing published meanwhile is lost
	var replay []collab.Envelope
	if r.last != nil {
		replay = append(replay, *r.last)
	}
	for _, c := range r.cursors {
		replay = append(replay, c)
	}
	for _, env := range replay {
		if data, err := p.codec.Marshal(env); err == nil {
			p.enqueue(data)
		}
	}
	n := len(r.peers)
	h.mu.Unlock()
	log.Printf("[HUB] Added connection %s to room %s (%d peers)", p.ws.RemoteAddr(), p.room, n)
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	r := h.rooms[p.room]
	delete(r.peers, p)
	if p.site != "" {
		delete(r.cursors, p.site)
	}
	// the last board stays after everyone leaves so a rejoining peer finds it
	h.mu.Unlock()
	p.close()
	log.Printf("[HUB] Removed connection %s from room %s", p.ws.RemoteAddr(), p.room)
}

func (h *Hub) readLoop(p *peer) {
	for {
		kind, data, err := p.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[HUB] Client %s disconnected: %v", p.ws.RemoteAddr(), err)
			}
			return
		}
		if (kind == websocket.BinaryMessage) != p.codec.Binary() {
			log.Printf("[HUB] Ignoring %s frame from %s", frameName(kind), p.ws.RemoteAddr())
			continue
		}
		var env collab.Envelope
		if err := p.codec.Unmarshal(data, &env); err != nil {
			log.Printf("[HUB] Dropped message from %s: %v", p.ws.RemoteAddr(), err)
			continue
		}
		if env.Site == "" {
			log.Printf("[HUB] Dropped %q message without site from %s", env.Type, p.ws.RemoteAddr())
			continue
		}
		// the room is the one bound at connect time
		env.Room = p.room
		h.handle(p, env)
	}
}

func (h *Hub) handle(from *peer, env collab.Envelope) {
	h.mu.Lock()
	r := h.rooms[from.room]
	switch env.Type {
	case collab.MsgHello:
		from.site = env.Site
		h.mu.Unlock()
		log.Printf("[HUB] %s is site %s", from.ws.RemoteAddr(), env.Site)
		return
	case collab.MsgElements:
		last := env
		r.last = &last
	case collab.MsgCursor:
		if env.Cursor == nil {
			h.mu.Unlock()
			return
		}
		r.cursors[env.Site] = env
	default:
		h.mu.Unlock()
		log.Printf("[HUB] Unknown message type %q from %s", env.Type, from.ws.RemoteAddr())
		return
	}
	targets := make([]*peer, 0, len(r.peers))
	for p := range r.peers {
		if p != from {
			targets = append(targets, p)
		}
	}
	h.mu.Unlock()
	h.broadcast(env, targets)
}

// broadcast encodes env once per wire format in use.
func (h *Hub) broadcast(env collab.Envelope, targets []*peer) {
	encoded := make(map[string][]byte, 2)
	for _, p := range targets {
		data, ok := encoded[p.codec.Name()]
		if !ok {
			var err error
			data, err = p.codec.Marshal(env)
			if err != nil {
				log.Printf("[HUB] Encoding %s for %s failed: %v", env.Type, p.codec.Name(), err)
				continue
			}
			encoded[p.codec.Name()] = data
		}
		p.enqueue(data)
	}
}

func (p *peer) enqueue(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.send <- data:
	default:
		log.Printf("[HUB] Error sending to %s: send buffer full, closing", p.ws.RemoteAddr())
		p.closed = true
		close(p.send)
	}
}

func (p *peer) writeLoop() {
	kind := websocket.TextMessage
	if p.codec.Binary() {
		kind = websocket.BinaryMessage
	}
	for data := range p.send {
		p.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := p.ws.WriteMessage(kind, data); err != nil {
			log.Printf("[HUB] Error sending to %s: %v", p.ws.RemoteAddr(), err)
			p.ws.Close()
			return
		}
	}
	p.ws.SetWriteDeadline(time.Now().Add(writeWait))
	p.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	p.ws.Close()
}

func (p *peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.send)
	}
}

func frameName(kind int) string {
	if kind == websocket.BinaryMessage {
		return "binary"
	}
	return "text"
}
