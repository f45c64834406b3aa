// Package protocol defines the collaboration wire format exchanged between
// sessions and the relay: a JSON envelope with a typed discriminator and a
// type-specific payload.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Type discriminates collaboration messages.
type Type string

const (
	TypeJoin        Type = "join"
	TypeLeave       Type = "leave"
	TypeCursor      Type = "cursor"
	TypeSelect      Type = "select"
	TypeBlockMove   Type = "block-move"
	TypeBlockResize Type = "block-resize"
	TypeBlockUpdate Type = "block-update"
	TypePing        Type = "ping"
	TypePong        Type = "pong"

	// TypeSyncRequest and TypeSyncResponse are reserved protocol members.
	// Neither the relay nor the session produces or handles them.
	TypeSyncRequest  Type = "sync-request"
	TypeSyncResponse Type = "sync-response"
)

// Message is the collaboration envelope. Every message except ping/pong
// carries the full set of sender fields; ping and pong are control frames
// that guarantee only Type.
type Message struct {
	Type      Type            `json:"type"`
	UserID    string          `json:"userId,omitempty"`
	UserName  string          `json:"userName,omitempty"`
	UserColor string          `json:"userColor,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// CursorPayload is the payload of a cursor message.
type CursorPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SelectPayload is the payload of a select message. A nil BlockID clears
// the sender's selection.
type SelectPayload struct {
	BlockID *string `json:"blockId"`
}

// ErrEmptyMessage is returned when a frame decodes to a message without a type.
var ErrEmptyMessage = errors.New("protocol: message has no type")

// New builds an envelope with the sender fields and payload attached.
// Timestamp is set to the current epoch milliseconds.
func New(t Type, userID, userName, userColor string, payload any) (Message, error) {
	m := Message{
		Type:      t,
		UserID:    userID,
		UserName:  userName,
		UserColor: userColor,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("protocol: marshal %s payload: %w", t, err)
		}
		m.Payload = raw
	}
	return m, nil
}

// Ping returns the bare heartbeat frame. It deliberately bypasses the
// envelope: no sender fields, no timestamp.
func Ping() Message {
	return Message{Type: TypePing}
}

// Pong returns the bare heartbeat reply frame.
func Pong() Message {
	return Message{Type: TypePong}
}

// Decode parses a wire frame into a Message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("protocol: decode frame: %w", err)
	}
	if m.Type == "" {
		return Message{}, ErrEmptyMessage
	}
	return m, nil
}

// Encode serializes the message for the wire.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", m.Type, err)
	}
	return data, nil
}

// Cursor decodes the payload of a cursor message.
func (m Message) Cursor() (CursorPayload, error) {
	var p CursorPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return CursorPayload{}, fmt.Errorf("protocol: cursor payload: %w", err)
	}
	return p, nil
}

// Selection decodes the payload of a select message.
func (m Message) Selection() (SelectPayload, error) {
	var p SelectPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return SelectPayload{}, fmt.Errorf("protocol: select payload: %w", err)
	}
	return p, nil
}

// DecodePayload unmarshals the payload into v. Used for block mutation
// messages whose payload is a full Block object.
func (m Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("protocol: %s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("protocol: %s payload: %w", m.Type, err)
	}
	return nil
}

// IsControl reports whether the message is an envelope-exempt control frame.
func (m Message) IsControl() bool {
	return m.Type == TypePing || m.Type == TypePong
}

// IsBlockMutation reports whether the message carries a full Block payload
// that replaces the receiver's copy of that block.
func (m Message) IsBlockMutation() bool {
	switch m.Type {
	case TypeBlockMove, TypeBlockResize, TypeBlockUpdate:
		return true
	}
	return false
}
