package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNew_AttachesEnvelopeFields(t *testing.T) {
	before := time.Now().UnixMilli()
	m, err := New(TypeCursor, "u1", "Ada", "#ff0000", CursorPayload{X: 10, Y: 20})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	after := time.Now().UnixMilli()

	if m.Type != TypeCursor {
		t.Fatalf("Type=%q, want %q", m.Type, TypeCursor)
	}
	if m.UserID != "u1" || m.UserName != "Ada" || m.UserColor != "#ff0000" {
		t.Fatalf("sender fields=%q/%q/%q", m.UserID, m.UserName, m.UserColor)
	}
	if m.Timestamp < before || m.Timestamp > after {
		t.Fatalf("Timestamp=%d, want within [%d, %d]", m.Timestamp, before, after)
	}

	p, err := m.Cursor()
	if err != nil {
		t.Fatalf("Cursor() error: %v", err)
	}
	if p.X != 10 || p.Y != 20 {
		t.Fatalf("cursor payload=%+v, want {10 20}", p)
	}
}

func TestPing_IsBareFrame(t *testing.T) {
	data, err := Ping().Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if string(data) != `{"type":"ping"}` {
		t.Fatalf("ping frame=%s, want bare type-only frame", data)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	orig, err := New(TypeSelect, "u2", "Grace", "#00ff00", SelectPayload{BlockID: strPtr("b1")})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	data, err := orig.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if m.Type != TypeSelect || m.UserID != "u2" {
		t.Fatalf("decoded=%+v", m)
	}
	sel, err := m.Selection()
	if err != nil {
		t.Fatalf("Selection() error: %v", err)
	}
	if sel.BlockID == nil || *sel.BlockID != "b1" {
		t.Fatalf("BlockID=%v, want b1", sel.BlockID)
	}
}

func TestDecode_NullSelection(t *testing.T) {
	m, err := Decode([]byte(`{"type":"select","userId":"u1","payload":{"blockId":null},"timestamp":1}`))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	sel, err := m.Selection()
	if err != nil {
		t.Fatalf("Selection() error: %v", err)
	}
	if sel.BlockID != nil {
		t.Fatalf("BlockID=%v, want nil", sel.BlockID)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"truncated", `{"type":"cursor"`},
		{"missing type", `{"userId":"u1"}`},
		{"empty object", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); err == nil {
				t.Fatalf("Decode(%q) error=nil, want non-nil", tt.data)
			}
		})
	}
}

func TestMessage_Predicates(t *testing.T) {
	if !Ping().IsControl() || !Pong().IsControl() {
		t.Fatal("ping/pong should be control frames")
	}
	if (Message{Type: TypeJoin}).IsControl() {
		t.Fatal("join is not a control frame")
	}

	for _, typ := range []Type{TypeBlockMove, TypeBlockResize, TypeBlockUpdate} {
		if !(Message{Type: typ}).IsBlockMutation() {
			t.Fatalf("%s should be a block mutation", typ)
		}
	}
	if (Message{Type: TypeCursor}).IsBlockMutation() {
		t.Fatal("cursor is not a block mutation")
	}
}

func TestDecodePayload_FullObject(t *testing.T) {
	m := Message{
		Type:    TypeBlockUpdate,
		Payload: json.RawMessage(`{"id":"b1","label":"Revenue"}`),
	}
	var got struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	if err := m.DecodePayload(&got); err != nil {
		t.Fatalf("DecodePayload() error: %v", err)
	}
	if got.ID != "b1" || got.Label != "Revenue" {
		t.Fatalf("payload=%+v", got)
	}

	empty := Message{Type: TypeBlockUpdate}
	if err := empty.DecodePayload(&got); err == nil {
		t.Fatal("DecodePayload() on empty payload error=nil, want non-nil")
	} else if !strings.Contains(err.Error(), "no payload") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func strPtr(s string) *string { return &s }
