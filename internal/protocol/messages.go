package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChatMessage    MessageType = "chat_message"
	TypeClientControl  MessageType = "client_control"
	TypeAssistantReply MessageType = "assistant_reply"
	TypeTypingEvent    MessageType = "typing_event"
	TypeSystemEvent    MessageType = "system_event"
	TypeErrorEvent     MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ChatMessage is an inbound user utterance.
type ChatMessage struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Text   string      `json:"text"`
	TSMs   int64       `json:"ts_ms"`
}

// ClientControl carries connection-level actions such as "ping" or "close".
type ClientControl struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Action string      `json:"action"`
}

// AssistantReply is the aggregated answer to one inbound ChatMessage.
type AssistantReply struct {
	Type      MessageType `json:"type"`
	UserID    string      `json:"user_id"`
	MessageID string      `json:"message_id"`
	Text      string      `json:"text"`
	Degraded  bool        `json:"degraded,omitempty"`
	TSMs      int64       `json:"ts_ms"`
}

// TypingEvent tells the client a reply is being prepared.
type TypingEvent struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
}

type SystemEvent struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"user_id"`
	Code   string      `json:"code"`
	Detail string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	UserID    string      `json:"user_id"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChatMessage:
		var msg ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.UserID == "" || strings.TrimSpace(msg.Text) == "" {
			return nil, errors.New("invalid chat_message")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.UserID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
