package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrBadFrame = errors.New("bad frame")
	// ErrUnknownKind is a bad frame whose type names no message.
	ErrUnknownKind = fmt.Errorf("%w: unknown message kind", ErrBadFrame)
)

const (
	SubprotocolJSON    = "meet.v1.json"
	SubprotocolMsgpack = "meet.v1.msgpack"
)

// Codec puts envelopes on the wire. Implementations live in this package.
type Codec interface {
	// Name is the websocket subprotocol that selects this codec.
	Name() string
	// Binary reports whether frames must be sent as binary messages.
	Binary() bool

	encode(k Kind, data any) ([]byte, error)
	decodeEnvelope(b []byte) (Kind, []byte, error)
	decodeData(raw []byte, v any) error
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// Subprotocols lists supported subprotocols in server preference order.
func Subprotocols() []string { return []string{SubprotocolJSON, SubprotocolMsgpack} }

// CodecFor returns the codec negotiated for a websocket subprotocol.
// An empty or unknown name falls back to JSON.
func CodecFor(subprotocol string) Codec {
	if subprotocol == SubprotocolMsgpack {
		return Msgpack
	}
	return JSON
}

func EncodeOutbound(c Codec, m Outbound) ([]byte, error) { return c.encode(m.Kind(), m.payload()) }

func EncodeInbound(c Codec, m Inbound) ([]byte, error) { return c.encode(m.Kind(), m.payload()) }

// DecodeInbound parses a client frame into its typed message.
func DecodeInbound(c Codec, b []byte) (Inbound, error) {
	k, raw, err := c.decodeEnvelope(b)
	if err != nil {
		return nil, err
	}
	m, err := newInbound(k)
	if err != nil {
		return nil, err
	}
	if err := decodePayload(c, raw, m.payload()); err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	return m, nil
}

// DecodeOutbound parses a server frame into its typed message.
func DecodeOutbound(c Codec, b []byte) (Outbound, error) {
	k, raw, err := c.decodeEnvelope(b)
	if err != nil {
		return nil, err
	}
	m, err := newOutbound(k)
	if err != nil {
		return nil, err
	}
	if err := decodePayload(c, raw, m.payload()); err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	return m, nil
}

func decodePayload(c Codec, raw []byte, target any) error {
	if target == nil || len(raw) == 0 {
		return nil
	}
	if err := c.decodeData(raw, target); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return nil
}

type jsonCodec struct{}

type jsonEnvelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (jsonCodec) Name() string { return SubprotocolJSON }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) encode(k Kind, data any) ([]byte, error) {
	env := jsonEnvelope{Type: k}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

func (jsonCodec) decodeEnvelope(b []byte) (Kind, []byte, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if env.Type == "" {
		return "", nil, fmt.Errorf("%w: missing type", ErrBadFrame)
	}
	return env.Type, env.Data, nil
}

func (jsonCodec) decodeData(raw []byte, v any) error { return json.Unmarshal(raw, v) }

// msgpackCodec reuses the json struct tags so both codecs agree on field names.
type msgpackCodec struct{}

type msgpackEnvelope struct {
	Type Kind               `json:"type"`
	Data msgpack.RawMessage `json:"data,omitempty"`
}

func (msgpackCodec) Name() string { return SubprotocolMsgpack }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c msgpackCodec) encode(k Kind, data any) ([]byte, error) {
	env := msgpackEnvelope{Type: k}
	if data != nil {
		raw, err := c.marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return c.marshal(env)
}

func (c msgpackCodec) decodeEnvelope(b []byte) (Kind, []byte, error) {
	var env msgpackEnvelope
	if err := c.decodeData(b, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if env.Type == "" {
		return "", nil, fmt.Errorf("%w: missing type", ErrBadFrame)
	}
	return env.Type, env.Data, nil
}

func (msgpackCodec) decodeData(raw []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
