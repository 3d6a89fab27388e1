package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgType is the first byte of every datagram
type MsgType uint8

const (
	MsgHostSnapshot MsgType = 0x01 // host -> clients
	MsgClientInput  MsgType = 0x02 // client -> host
)

func (t MsgType) String() string {
	switch t {
	case MsgHostSnapshot:
		return "host_snapshot"
	case MsgClientInput:
		return "client_input"
	}
	return fmt.Sprintf("msg(0x%02x)", uint8(t))
}

// Datagram layout: [type:1][flags:1][payload]
const (
	headerSize        = 2
	flagCompressed    = 0x01
	compressThreshold = 512
	MaxDatagramSize   = 65507
	maxPayloadSize    = 1 << 20
)

var (
	ErrShortDatagram   = errors.New("datagram shorter than header")
	ErrUnknownMessage  = errors.New("unknown message type")
	ErrMessageTooLarge = errors.New("message exceeds datagram size")
)

// Message is one of HostSnapshot or ClientInput
type Message interface {
	Type() MsgType
}

// AsteroidState is the wire form of an asteroid
type AsteroidState struct {
	ID    int          `msgpack:"id"`
	Pos   Vec2         `msgpack:"p"`
	Vel   Vec2         `msgpack:"v"`
	Size  AsteroidSize `msgpack:"s"`
	Grace int          `msgpack:"g,omitempty"`
}

// BulletState is the wire form of a bullet
type BulletState struct {
	ID        int  `msgpack:"id"`
	Pos       Vec2 `msgpack:"p"`
	Vel       Vec2 `msgpack:"v"`
	TicksLeft int  `msgpack:"t"`
	Grace     int  `msgpack:"g,omitempty"`
}

// ShipState is the wire form of a ship
type ShipState struct {
	ID        int       `msgpack:"id"`
	Pos       Vec2      `msgpack:"p"`
	Vel       Vec2      `msgpack:"v"`
	Direction float64   `msgpack:"r"`
	Health    float64   `msgpack:"hp"`
	Score     int       `msgpack:"sc"`
	CoopScore int       `msgpack:"cs"`
	Username  string    `msgpack:"n"`
	Color     ShipColor `msgpack:"c"`
	Spectator bool      `msgpack:"sp,omitempty"`
	Mode      GameMode  `msgpack:"m"`
	Destroyed bool      `msgpack:"d,omitempty"`
	Grace     int       `msgpack:"g,omitempty"`
}

// HostSnapshot is broadcast by the host to every known peer
type HostSnapshot struct {
	Mode      GameMode        `msgpack:"m"`
	Tick      uint64          `msgpack:"tick"`
	Asteroids []AsteroidState `msgpack:"a,omitempty"`
	Bullets   []BulletState   `msgpack:"b"`
	Ships     []ShipState     `msgpack:"s"`
	Host      ShipState       `msgpack:"h"`
}

func (HostSnapshot) Type() MsgType { return MsgHostSnapshot }

// ClientInput is sent by a client to the host. Bullets holds only the
// bullets spawned since the previous send.
type ClientInput struct {
	Ship    ShipState     `msgpack:"ship"`
	Bullets []BulletState `msgpack:"b,omitempty"`
}

func (ClientInput) Type() MsgType { return MsgClientInput }

// Encode serializes a message into a single datagram
func Encode(m Message) ([]byte, error) {
	payload, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}

	var flags byte
	if len(payload) > compressThreshold {
		if c, err := compress(payload); err == nil && len(c) < len(payload) {
			payload = c
			flags |= flagCompressed
		}
	}

	if headerSize+len(payload) > MaxDatagramSize {
		return nil, fmt.Errorf("encode %s (%d bytes): %w", m.Type(), headerSize+len(payload), ErrMessageTooLarge)
	}
	out := make([]byte, headerSize+len(payload))
	out[0] = byte(m.Type())
	out[1] = flags
	copy(out[headerSize:], payload)
	return out, nil
}

// Decode parses a datagram into a HostSnapshot or ClientInput value
func Decode(b []byte) (Message, error) {
	if len(b) < headerSize {
		return nil, ErrShortDatagram
	}
	t := MsgType(b[0])
	payload := b[headerSize:]
	if b[1]&flagCompressed != 0 {
		var err error
		if payload, err = decompress(payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", t, err)
		}
	}

	switch t {
	case MsgHostSnapshot:
		var s HostSnapshot
		if err := msgpack.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("decode %s: %w", t, err)
		}
		return s, nil
	case MsgClientInput:
		var in ClientInput
		if err := msgpack.Unmarshal(payload, &in); err != nil {
			return nil, fmt.Errorf("decode %s: %w", t, err)
		}
		return in, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, t)
}

func compress(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(p); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(p []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(p))
	out, err := io.ReadAll(io.LimitReader(zr, maxPayloadSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxPayloadSize {
		return nil, ErrMessageTooLarge
	}
	return out, nil
}
