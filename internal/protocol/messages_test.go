package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageChat(t *testing.T) {
	raw := []byte(`{"type":"chat_message","user_id":"u1","text":"What is IS621 about?","ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	chat, ok := msg.(ChatMessage)
	if !ok {
		t.Fatalf("message type = %T, want ChatMessage", msg)
	}
	if chat.UserID != "u1" || chat.Text != "What is IS621 about?" {
		t.Fatalf("unexpected chat message: %+v", chat)
	}
	if chat.TSMs != 123 {
		t.Fatalf("TSMs = %d, want %d", chat.TSMs, 123)
	}
}

func TestParseClientMessageControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","user_id":"u1","action":"ping"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.UserID != "u1" || control.Action != "ping" {
		t.Fatalf("unexpected client control: %+v", control)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsBlankText(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"chat_message","user_id":"u1","text":"   "}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseClientMessageRejectsMissingUser(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"chat_message","user_id":"","text":"hello"}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}
