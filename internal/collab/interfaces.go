// Package collab connects a board to the outside world: peers editing the
// same room, the document store, and the diagram generator and renderer.
package collab

import (
	"context"
	"strings"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

// Metadata describes a saved document.
type Metadata struct {
	Name      string `json:"name"`
	AuthorID  string `json:"authorId,omitempty"`
	UpdatedAt int64  `json:"updatedAt"`
}

// MaxNameLength is the longest document name accepted.
const MaxNameLength = 60

// DocumentName trims name and cuts it to MaxNameLength characters.
func DocumentName(name string) string {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > MaxNameLength {
		name = strings.TrimSpace(string(r[:MaxNameLength]))
	}
	return name
}

// Document is what the Persistence layer stores per id.
type Document struct {
	Elements state.Elements `json:"elements"`
	Metadata Metadata       `json:"metadata"`
}

// Persistence loads and saves documents.
type Persistence interface {
	Load(ctx context.Context, id string) (Document, error)
	Save(ctx context.Context, id string, doc Document) error
}

// Cursor is a peer's pointer. LastActive is in unix milliseconds.
type Cursor struct {
	Site       string     `json:"id"`
	Name       string     `json:"name"`
	Color      string     `json:"color"`
	Position   geom.Point `json:"position"`
	LastActive int64      `json:"lastActive"`
}

// Realtime shares board snapshots and cursors with the other members of a
// room. The room is chosen when the transport connects. Subscribers get the
// latest snapshot straight away if one exists.
type Realtime interface {
	PublishElements(ctx context.Context, s state.Snapshot) error
	PublishCursor(ctx context.Context, c Cursor) error
	SubscribeElements(fn func(state.Snapshot)) (cancel func())
	SubscribeCursors(fn func(Cursor)) (cancel func())
}

// Generator turns free-form notes into diagram source, given the source
// currently on the board (which may be empty).
type Generator interface {
	Generate(ctx context.Context, notes, current string) (string, error)
}

// Rendered is a rendered diagram and its intrinsic size.
type Rendered struct {
	Markup string
	Width  float64
	Height float64
	// Failed marks a placeholder shown in place of source that did not
	// parse. The source itself is kept.
	Failed bool
}

// Renderer renders diagram source.
type Renderer interface {
	Render(ctx context.Context, source string) (Rendered, error)
}
