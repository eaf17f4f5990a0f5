// Package protocol defines the wire format shared by the inspector, the
// message bridge and the host gateway. This package is importable by other
// clients that consume inspector events.
package protocol

import (
	"encoding/json"
	"strings"
	"time"
)

// Namespace prefixes every message type so receivers can cheaply skip foreign traffic.
const Namespace = "vibetorch:"

// ResponseSuffix is appended to a request type to name its response.
const ResponseSuffix = "-response"

// Message is the envelope posted between a page and its embedding parent.
type Message struct {
	Type      string          `json:"type"`           // always namespaced
	Data      json.RawMessage `json:"data,omitempty"` // event payload
	Timestamp int64           `json:"timestamp"`      // unix millis
}

// RawFrame is used for initial parsing to check the namespace before decoding the payload.
type RawFrame struct {
	Type string `json:"type"`
}

// Qualify adds the namespace to a bare message name.
func Qualify(name string) string {
	if strings.HasPrefix(name, Namespace) {
		return name
	}
	return Namespace + name
}

// Unqualify strips the namespace. ok is false for foreign types.
func Unqualify(t string) (string, bool) {
	if !strings.HasPrefix(t, Namespace) {
		return "", false
	}
	return strings.TrimPrefix(t, Namespace), true
}

// NewMessage builds an envelope for name with data encoded as JSON.
func NewMessage(name string, data any, now time.Time) (*Message, error) {
	m := &Message{Type: Qualify(name), Timestamp: now.UnixMilli()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		m.Data = raw
	}
	return m, nil
}

// ParseFrameType extracts the message type from raw JSON bytes.
func ParseFrameType(data []byte) (string, error) {
	var raw RawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", err
	}
	return raw.Type, nil
}

// ResponseEnvelope is the data of a "<type>-response" message.
type ResponseEnvelope struct {
	RequestID string          `json:"requestId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *ErrorShape     `json:"error,omitempty"`
}

// ErrorShape describes a protocol error.
type ErrorShape struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// NewErrorShape creates an error shape.
func NewErrorShape(code, message string) *ErrorShape {
	return &ErrorShape{Code: code, Message: message}
}
