package net

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"CollabBoard/internal/collab"
	"CollabBoard/internal/state"
)

// ErrClosed is returned by publishes after the connection is gone.
var ErrClosed = errors.New("connection closed")

// Client is a peer's connection to a hub room. It implements
// collab.Realtime.
type Client struct {
	ws    *websocket.Conn
	codec collab.Codec
	room  string
	site  string

	writeMu sync.Mutex

	mu         sync.RWMutex
	next       int
	elemSubs   map[int]func(state.Snapshot)
	cursorSubs map[int]func(collab.Cursor)
	last       *state.Snapshot
	cursors    map[string]collab.Cursor

	done chan struct{}
	err  error
}

var _ collab.Realtime = (*Client)(nil)

// Dial joins room on the hub at base (ws://host:port) as site.
func Dial(ctx context.Context, base, room, site string, codec collab.Codec) (*Client, error) {
	if codec == nil {
		codec = collab.JSONCodec{}
	}
	if room == "" {
		room = defaultRoom
	}
	u, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", base, err)
	}
	u = u.JoinPath("ws", room)
	u.RawQuery = url.Values{"format": {codec.Name()}}.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	ws.SetReadLimit(maxMessage)
	c := &Client{
		ws:         ws,
		codec:      codec,
		room:       room,
		site:       site,
		elemSubs:   make(map[int]func(state.Snapshot)),
		cursorSubs: make(map[int]func(collab.Cursor)),
		cursors:    make(map[string]collab.Cursor),
		done:       make(chan struct{}),
	}
	if err := c.send(ctx, collab.Envelope{Type: collab.MsgHello, Room: room, Site: site}); err != nil {
		ws.Close()
		return nil, err
	}
	go c.readLoop()
	log.Printf("[CLIENT] Connected to %s as %s", u.Redacted(), site)
	return c, nil
}

// Room returns the room joined at connect time.
func (c *Client) Room() string {
	return c.room
}

// Done is closed when the connection ends. Err reports why.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Client) PublishElements(ctx context.Context, s state.Snapshot) error {
	env, err := collab.ElementsEnvelope(c.room, s)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

func (c *Client) PublishCursor(ctx context.Context, cur collab.Cursor) error {
	return c.send(ctx, collab.Envelope{Type: collab.MsgCursor, Room: c.room, Site: cur.Site, Cursor: &cur})
}

// SubscribeElements registers fn and hands it the last snapshot seen, so
// subscribing after the hub replayed the board loses nothing.
func (c *Client) SubscribeElements(fn func(state.Snapshot)) func() {
	c.mu.Lock()
	id := c.next
	c.next++
	c.elemSubs[id] = fn
	last := c.last
	c.mu.Unlock()
	if last != nil {
		fn(*last)
	}
	return func() {
		c.mu.Lock()
		delete(c.elemSubs, id)
		c.mu.Unlock()
	}
}

func (c *Client) SubscribeCursors(fn func(collab.Cursor)) func() {
	c.mu.Lock()
	id := c.next
	c.next++
	c.cursorSubs[id] = fn
	known := make([]collab.Cursor, 0, len(c.cursors))
	for _, cur := range c.cursors {
		known = append(known, cur)
	}
	c.mu.Unlock()
	for _, cur := range known {
		fn(cur)
	}
	return func() {
		c.mu.Lock()
		delete(c.cursorSubs, id)
		c.mu.Unlock()
	}
}

// Close leaves the room.
func (c *Client) Close() error {
	c.writeMu.Lock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	select {
	case <-c.done:
	case <-time.After(time.Second):
		c.ws.Close()
		<-c.done
	}
	return err
}

func (c *Client) send(ctx context.Context, env collab.Envelope) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	data, err := c.codec.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Type, err)
	}
	kind := websocket.TextMessage
	if c.codec.Binary() {
		kind = websocket.BinaryMessage
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteMessage(kind, data); err != nil {
		return fmt.Errorf("send %s: %w", env.Type, err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer c.ws.Close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("[CLIENT] Disconnected from hub: %v", err)
				c.err = err
			}
			return
		}
		var env collab.Envelope
		if err := c.codec.Unmarshal(data, &env); err != nil {
			log.Printf("[CLIENT] Dropped message: %v", err)
			continue
		}
		switch env.Type {
		case collab.MsgElements:
			c.elements(env)
		case collab.MsgCursor:
			if env.Cursor != nil {
				c.cursor(*env.Cursor)
			}
		}
	}
}

func (c *Client) elements(env collab.Envelope) {
	snap, err := env.Snapshot()
	if err != nil {
		log.Printf("[CLIENT] Invalid records from %s: %v", env.Site, err)
		if env.Site == "" {
			return
		}
	}
	c.mu.Lock()
	c.last = &snap
	subs := make([]func(state.Snapshot), 0, len(c.elemSubs))
	for _, fn := range c.elemSubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Client) cursor(cur collab.Cursor) {
	c.mu.Lock()
	c.cursors[cur.Site] = cur
	subs := make([]func(collab.Cursor), 0, len(c.cursorSubs))
	for _, fn := range c.cursorSubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(cur)
	}
}
