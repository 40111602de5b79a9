package wire

import (
	"testing"

	"github.com/rumormesh/rumornode/internal/domain"
)

func TestDecodeValidGossip(t *testing.T) {
	data := []byte(`{
		"version":1,"msg_id":"m1","msg_type":"GOSSIP",
		"sender_id":"n1","sender_addr":"127.0.0.1:5001",
		"timestamp_ms":1000,"ttl":8,
		"payload":{"topic":"t","data":"hi","origin_id":"n1","origin_timestamp_ms":1000}
	}`)
	env, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.MsgType != domain.MsgGossip || !env.HasTTL || env.TTL != 8 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if v, _ := String(env.Payload, "topic"); v != "t" {
		t.Fatalf("payload topic = %q", v)
	}
}

func TestDecodeNonGossipIgnoresTTL(t *testing.T) {
	data := []byte(`{
		"version":1,"msg_id":"m1","msg_type":"PING",
		"sender_id":"n1","sender_addr":"127.0.0.1:5001",
		"timestamp_ms":1000,"ttl":99,
		"payload":{"ping_id":"p1","seq":1}
	}`)
	env, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.HasTTL {
		t.Fatalf("non-GOSSIP envelope must ignore ttl, got HasTTL=true")
	}
}

func TestDecodeRobustness(t *testing.T) {
	cases := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"not json", []byte("not json at all"), domain.ErrInvalidJSON},
		{"truncated json", []byte(`{"version":1,"msg_id":`), domain.ErrInvalidJSON},
		{"bare array", []byte(`[1,2,3]`), domain.ErrInvalidJSON},
		{"missing msg_id", []byte(`{"version":1,"msg_type":"PING","sender_id":"a","sender_addr":"x","timestamp_ms":1,"payload":{}}`), domain.ErrInvalidSchema},
		{"wrong type version", []byte(`{"version":"1","msg_id":"a","msg_type":"PING","sender_id":"a","sender_addr":"x","timestamp_ms":1,"payload":{}}`), domain.ErrInvalidSchema},
		{"unsupported version", []byte(`{"version":2,"msg_id":"a","msg_type":"PING","sender_id":"a","sender_addr":"x","timestamp_ms":1,"payload":{}}`), domain.ErrUnsupportedVersion},
		{"unknown type", []byte(`{"version":1,"msg_id":"a","msg_type":"RANDOM","sender_id":"a","sender_addr":"x","timestamp_ms":1,"payload":{}}`), domain.ErrUnknownType},
		{"payload not object", []byte(`{"version":1,"msg_id":"a","msg_type":"PING","sender_id":"a","sender_addr":"x","timestamp_ms":1,"payload":"oops"}`), domain.ErrInvalidSchema},
		{"gossip missing ttl", []byte(`{"version":1,"msg_id":"a","msg_type":"GOSSIP","sender_id":"a","sender_addr":"x","timestamp_ms":1,"payload":{}}`), domain.ErrInvalidSchema},
		{"gossip negative ttl", []byte(`{"version":1,"msg_id":"a","msg_type":"GOSSIP","sender_id":"a","sender_addr":"x","timestamp_ms":1,"ttl":-1,"payload":{}}`), domain.ErrInvalidSchema},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			if err != tc.wantErr {
				t.Fatalf("Decode(%s) err = %v, want %v", tc.name, err, tc.wantErr)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	env := Envelope{
		Version:     Version,
		MsgID:       "abc",
		MsgType:     domain.MsgPing,
		SenderID:    "n1",
		SenderAddr:  "127.0.0.1:5000",
		TimestampMs: 42,
		Payload:     map[string]any{"ping_id": "p1", "seq": float64(1)},
	}
	data, err := Encode(env)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.MsgID != env.MsgID || got.SenderAddr != env.SenderAddr {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
