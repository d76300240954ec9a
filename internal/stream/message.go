package stream

import (
	"time"

	"github.com/Durgaprasad40/mira-nearby/internal/nearby"
)

const (
	MessageTypeViewport = "viewport"
	MessageTypeNearby   = "nearby"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
	MessageTypeError    = "error"
)

type Message struct {
	Type      string        `json:"type"`
	Users     []nearby.User `json:"users,omitempty"`
	Count     int           `json:"count,omitempty"`
	Content   string        `json:"content,omitempty"`
	ErrorCode string        `json:"code,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

type IncomingMessage struct {
	Type      string  `json:"type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Span      float64 `json:"span"`
}

func NewNearbyMessage(users []nearby.User) *Message {
	return &Message{
		Type:      MessageTypeNearby,
		Users:     users,
		Count:     len(users),
		Timestamp: time.Now().Unix(),
	}
}

func NewErrorMessage(errMsg, code string) *Message {
	return &Message{
		Type:      MessageTypeError,
		Content:   errMsg,
		ErrorCode: code,
		Timestamp: time.Now().Unix(),
	}
}
