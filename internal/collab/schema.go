package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"CollabBoard/internal/geom"
	"CollabBoard/internal/state"
)

// ErrInvalidPayload marks data from a peer that failed validation.
var ErrInvalidPayload = errors.New("invalid payload")

// MessageType tags an Envelope.
type MessageType string

const (
	MsgElements MessageType = "elements"
	MsgCursor   MessageType = "cursor"
	MsgHello    MessageType = "hello"
)

// Record is one element as it travels on the wire, before validation.
type Record map[string]any

// Envelope is the unit exchanged between a client and the hub.
type Envelope struct {
	Type     MessageType `json:"type"`
	Room     string      `json:"room"`
	Site     string      `json:"site"`
	Lamport  uint64      `json:"lamport"`
	Elements []Record    `json:"elements,omitempty"`
	Cursor   *Cursor     `json:"cursor,omitempty"`
}

// ElementsEnvelope wraps a stamped snapshot for room.
func ElementsEnvelope(room string, s state.Snapshot) (Envelope, error) {
	recs, err := EncodeElements(s.Elements)
	if err != nil {
		return Envelope{}, err
	}
	if recs == nil {
		recs = []Record{}
	}
	return Envelope{Type: MsgElements, Room: room, Site: s.Stamp.Site, Lamport: s.Stamp.Lamport, Elements: recs}, nil
}

// EncodeElements turns elements into wire records.
func EncodeElements(els state.Elements) ([]Record, error) {
	data, err := json.Marshal(els)
	if err != nil {
		return nil, fmt.Errorf("encode elements: %w", err)
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("encode elements: %w", err)
	}
	return recs, nil
}

// Snapshot validates the elements carried by env. Bad records are dropped
// and reported in the returned error, which wraps ErrInvalidPayload; the
// snapshot holds everything that passed.
func (env Envelope) Snapshot() (state.Snapshot, error) {
	if env.Type != MsgElements {
		return state.Snapshot{}, fmt.Errorf("%w: %q is not an elements message", ErrInvalidPayload, env.Type)
	}
	if env.Site == "" {
		return state.Snapshot{}, fmt.Errorf("%w: elements message without site", ErrInvalidPayload)
	}
	els, err := DecodeElements(env.Elements)
	return state.Snapshot{Elements: els, Stamp: state.Stamp{Lamport: env.Lamport, Site: env.Site}}, err
}

// DecodeElements validates records one by one. Records with an unknown
// type, a missing or duplicate id, non-finite numbers or a pen without
// points are dropped. Lines with fewer than two points are rebuilt from
// their endpoints and bindings to an unknown side are removed.
func DecodeElements(recs []Record) (state.Elements, error) {
	out := make(state.Elements, 0, len(recs))
	seen := make(map[string]bool, len(recs))
	var errs []error
	for i, r := range recs {
		el, err := decodeRecord(r, seen)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		seen[el.Meta().ID] = true
		out = append(out, el)
	}
	return out, errors.Join(errs...)
}

func decodeRecord(r Record, seen map[string]bool) (state.Element, error) {
	id, _ := r["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidPayload)
	}
	if seen[id] {
		return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidPayload, id)
	}
	if !finite(r) {
		return nil, fmt.Errorf("%w: non-finite number in %s", ErrInvalidPayload, id)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	el, err := state.UnmarshalElement(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	switch e := el.(type) {
	case state.Pen:
		if len(e.Points) == 0 {
			return nil, fmt.Errorf("%w: pen %s has no points", ErrInvalidPayload, id)
		}
	case state.Line:
		if len(e.Points) < 2 {
			e = e.WithPoints([]geom.Point{geom.Pt(e.X1, e.Y1), geom.Pt(e.X2, e.Y2)})
		}
		if e.StartBinding != nil && !e.StartBinding.Side.Valid() {
			e.StartBinding = nil
		}
		if e.EndBinding != nil && !e.EndBinding.Side.Valid() {
			e.EndBinding = nil
		}
		el = e
	}
	return el, nil
}

// finite walks a decoded record looking for NaN or infinities.
func finite(v any) bool {
	switch x := v.(type) {
	case float64:
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		return finite(float64(x))
	case Record:
		return finite(map[string]any(x))
	case map[string]any:
		for _, item := range x {
			if !finite(item) {
				return false
			}
		}
	case []any:
		for _, item := range x {
			if !finite(item) {
				return false
			}
		}
	}
	return true
}
