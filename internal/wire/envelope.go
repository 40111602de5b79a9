// Package wire implements the canonical JSON envelope: encode, decode, and
// strict schema validation for the UDP message family shared by every node.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/rumormesh/rumornode/internal/domain"
)

// Version is the only envelope version this codec accepts.
const Version = 1

// MaxDatagramBytes is the soft UDP-friendly size guidance from spec.md §4.1.
// Encode does not hard-fail on overage; callers that mint payload content
// (gossip origination) truncate before encoding to stay under it.
const MaxDatagramBytes = 1200

// Envelope is the decoded, validated form of a wire message.
type Envelope struct {
	Version     int
	MsgID       string
	MsgType     domain.MsgType
	SenderID    string
	SenderAddr  string
	TimestampMs int64
	TTL         int  // meaningful only when HasTTL is true
	HasTTL      bool // true only for GOSSIP envelopes carrying a ttl
	Payload     map[string]any
}

// wireForm is the literal JSON shape, used only for Encode.
type wireForm struct {
	Version     int             `json:"version"`
	MsgID       string          `json:"msg_id"`
	MsgType     domain.MsgType  `json:"msg_type"`
	SenderID    string          `json:"sender_id"`
	SenderAddr  string          `json:"sender_addr"`
	TimestampMs int64           `json:"timestamp_ms"`
	TTL         *int            `json:"ttl,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

// Encode serializes env to its canonical JSON form.
func Encode(env Envelope) ([]byte, error) {
	payload := env.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	w := wireForm{
		Version:     Version,
		MsgID:       env.MsgID,
		MsgType:     env.MsgType,
		SenderID:    env.SenderID,
		SenderAddr:  env.SenderAddr,
		TimestampMs: env.TimestampMs,
		Payload:     rawPayload,
	}
	if env.HasTTL {
		ttl := env.TTL
		w.TTL = &ttl
	}
	return json.Marshal(w)
}

// Decode parses and strictly validates a raw datagram. Decode never panics
// and never returns a reason that isn't one of the taxonomy in spec.md §7:
// ErrInvalidJSON, ErrInvalidSchema, ErrUnsupportedVersion, or ErrUnknownType.
// Per-payload-field validation (ErrPayloadInvalid) is left to handlers,
// which see the already-typed Envelope.Payload map.
func Decode(data []byte) (Envelope, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, domain.ErrInvalidJSON
	}
	// A JSON document that isn't an object (e.g. a bare array or number)
	// unmarshals into a nil map without error.
	if raw == nil {
		return Envelope{}, domain.ErrInvalidJSON
	}

	version, ok := asInt(raw["version"])
	if !ok {
		return Envelope{}, domain.ErrInvalidSchema
	}
	if version != Version {
		return Envelope{}, domain.ErrUnsupportedVersion
	}

	msgID, ok := raw["msg_id"].(string)
	if !ok || msgID == "" {
		return Envelope{}, domain.ErrInvalidSchema
	}

	msgTypeStr, ok := raw["msg_type"].(string)
	if !ok || msgTypeStr == "" {
		return Envelope{}, domain.ErrInvalidSchema
	}
	msgType := domain.MsgType(msgTypeStr)
	if !msgType.Known() {
		return Envelope{}, domain.ErrUnknownType
	}

	senderID, ok := raw["sender_id"].(string)
	if !ok {
		return Envelope{}, domain.ErrInvalidSchema
	}

	senderAddr, ok := raw["sender_addr"].(string)
	if !ok {
		return Envelope{}, domain.ErrInvalidSchema
	}

	timestampMs, ok := asInt64(raw["timestamp_ms"])
	if !ok {
		return Envelope{}, domain.ErrInvalidSchema
	}

	env := Envelope{
		Version:     version,
		MsgID:       msgID,
		MsgType:     msgType,
		SenderID:    senderID,
		SenderAddr:  senderAddr,
		TimestampMs: timestampMs,
	}

	if msgType == domain.MsgGossip {
		ttlRaw, present := raw["ttl"]
		ttl, ok := asInt(ttlRaw)
		if !present || !ok || ttl < 0 {
			return Envelope{}, domain.ErrInvalidSchema
		}
		env.TTL = ttl
		env.HasTTL = true
	}
	// For every other msg_type, ttl (if present at all) is ignored per spec.

	payload, ok := raw["payload"].(map[string]any)
	if !ok {
		return Envelope{}, domain.ErrInvalidSchema
	}
	env.Payload = payload

	return env, nil
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int(f), true
}

func asInt64(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}
