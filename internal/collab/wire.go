package collab

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Codec encodes envelopes for the transport.
type Codec interface {
	Name() string
	// Binary reports whether frames should be sent as binary messages.
	Binary() bool
	Marshal(env Envelope) ([]byte, error)
	Unmarshal(data []byte, env *Envelope) error
}

// NewCodec returns the codec registered under format: "json" or "cbor".
func NewCodec(format string) (Codec, error) {
	switch format {
	case "", "json":
		return JSONCodec{}, nil
	case "cbor":
		return NewCBORCodec()
	}
	return nil, fmt.Errorf("unsupported wire format: %s", format)
}

// JSONCodec is the default, human-readable wire format.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Marshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func (JSONCodec) Unmarshal(data []byte, env *Envelope) error {
	if err := json.Unmarshal(data, env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// CBORCodec is a compact binary wire format. Field names follow the JSON
// tags so both codecs carry the same records.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewCBORCodec() (*CBORCodec, error) {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor decoder: %w", err)
	}
	return &CBORCodec{enc: enc, dec: dec}, nil
}

func (*CBORCodec) Name() string { return "cbor" }
func (*CBORCodec) Binary() bool { return true }

func (c *CBORCodec) Marshal(env Envelope) ([]byte, error) {
	return c.enc.Marshal(env)
}

func (c *CBORCodec) Unmarshal(data []byte, env *Envelope) error {
	if err := c.dec.Unmarshal(data, env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
