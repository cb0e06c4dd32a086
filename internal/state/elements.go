package state

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Elements is the board in paint order, bottom first. Methods never modify
// the receiver; every change returns a new slice.
type Elements []Element

// Find returns the element with id.
func (els Elements) Find(id string) (Element, bool) {
	if i := els.Index(id); i >= 0 {
		return els[i], true
	}
	return nil, false
}

// Index returns the position of id or -1.
func (els Elements) Index(id string) int {
	for i, el := range els {
		if el.Meta().ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (els Elements) Clone() Elements {
	if els == nil {
		return nil
	}
	out := make(Elements, len(els))
	for i, el := range els {
		out[i] = Clone(el)
	}
	return out
}

// Map applies fn to every element.
func (els Elements) Map(fn func(Element) Element) Elements {
	out := make(Elements, len(els))
	for i, el := range els {
		out[i] = fn(el)
	}
	return out
}

// Update replaces the element with id by fn(el). A missing id is a no-op.
func (els Elements) Update(id string, fn func(Element) Element) Elements {
	i := els.Index(id)
	if i < 0 {
		return els
	}
	out := append(Elements(nil), els...)
	out[i] = fn(out[i])
	return out
}

// Replace swaps in el by its id.
func (els Elements) Replace(el Element) Elements {
	return els.Update(el.Meta().ID, func(Element) Element { return el })
}

// Filter keeps the elements for which keep returns true.
func (els Elements) Filter(keep func(Element) bool) Elements {
	out := make(Elements, 0, len(els))
	for _, el := range els {
		if keep(el) {
			out = append(out, el)
		}
	}
	return out
}

// Append adds el on top.
func (els Elements) Append(el Element) Elements {
	out := make(Elements, len(els), len(els)+1)
	copy(out, els)
	return append(out, el)
}

// Without drops the elements whose ids are in ids.
func (els Elements) Without(ids map[string]bool) Elements {
	return els.Filter(func(el Element) bool { return !ids[el.Meta().ID] })
}

// IDs lists element ids in paint order.
func (els Elements) IDs() []string {
	ids := make([]string, len(els))
	for i, el := range els {
		ids[i] = el.Meta().ID
	}
	return ids
}

// Group returns the ids of every element sharing groupID.
func (els Elements) Group(groupID string) []string {
	if groupID == "" {
		return nil
	}
	var ids []string
	for _, el := range els {
		if el.Meta().GroupID == groupID {
			ids = append(ids, el.Meta().ID)
		}
	}
	return ids
}

// Equal reports structural equality. Nil and empty are equal.
func Equal(a, b Elements) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// MarshalElement encodes el with its "type" tag.
func MarshalElement(el Element) ([]byte, error) {
	return json.Marshal(Match(el, Cases[any]{
		Pen: func(e Pen) any {
			return struct {
				Type Kind `json:"type"`
				Pen
			}{KindPen, e}
		},
		Shape: func(e Shape) any {
			return struct {
				Type Kind `json:"type"`
				Shape
			}{KindShape, e}
		},
		Line: func(e Line) any {
			return struct {
				Type Kind `json:"type"`
				Line
			}{KindLine, e}
		},
		Text: func(e Text) any {
			return struct {
				Type Kind `json:"type"`
				Text
			}{KindText, e}
		},
		Mermaid: func(e Mermaid) any {
			return struct {
				Type Kind `json:"type"`
				Mermaid
			}{KindMermaid, e}
		},
	}))
}

// UnmarshalElement decodes one tagged element.
func UnmarshalElement(data []byte) (Element, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case KindPen:
		var e Pen
		err := json.Unmarshal(data, &e)
		return e, err
	case KindShape:
		var e Shape
		err := json.Unmarshal(data, &e)
		return e, err
	case KindLine:
		var e Line
		err := json.Unmarshal(data, &e)
		return e, err
	case KindText:
		var e Text
		err := json.Unmarshal(data, &e)
		return e, err
	case KindMermaid:
		var e Mermaid
		err := json.Unmarshal(data, &e)
		return e, err
	}
	return nil, fmt.Errorf("unknown element type %q", head.Type)
}

func (els Elements) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, len(els))
	for i, el := range els {
		b, err := MarshalElement(el)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		raw[i] = b
	}
	return json.Marshal(raw)
}

// UnmarshalJSON is strict: any bad record fails the whole decode. Use
// collab.DecodeElements for untrusted input.
func (els *Elements) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Elements, 0, len(raw))
	for i, r := range raw {
		el, err := UnmarshalElement(r)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, el)
	}
	*els = out
	return nil
}
