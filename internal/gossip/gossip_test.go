package gossip

import (
	"fmt"
	"testing"
	"time"

	"github.com/rumormesh/rumornode/internal/archive"
	"github.com/rumormesh/rumornode/internal/clock"
	"github.com/rumormesh/rumornode/internal/domain"
	"github.com/rumormesh/rumornode/internal/events"
	"github.com/rumormesh/rumornode/internal/peertable"
	"github.com/rumormesh/rumornode/internal/sample"
	"github.com/rumormesh/rumornode/internal/wire"
)

func sequentialID() IDGen {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("msg-%d", n)
	}
}

func newTestEngine(t *testing.T, selfAddr string, fanout, ttl int, seed int64) *Engine {
	t.Helper()
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tbl := peertable.New(selfAddr, 30, 6000, fc, sample.New(seed), events.Nop{})
	identity := domain.NodeIdentity{NodeID: "node-self", SelfAddr: selfAddr}
	return New(identity, tbl, sample.New(seed), events.Nop{}, archive.Noop{}, fanout, ttl, sequentialID())
}

func addPeers(tbl *peertable.Table, addrs ...string) {
	for _, a := range addrs {
		tbl.InsertNew(a, domain.PeerRecord{Source: domain.SourceHello, RTTMs: -1})
	}
}

func TestOriginateFansOutToUpToFanoutPeers(t *testing.T) {
	e := newTestEngine(t, "127.0.0.1:9000", 2, 8, 1)
	addPeers(e.table, "10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1")

	out := e.Originate("hello gossip", 1000)
	if len(out) != 2 {
		t.Fatalf("want 2 forwards (fanout=2), got %d", len(out))
	}
	seen := map[string]bool{}
	for _, ob := range out {
		if ob.Addr == "127.0.0.1:9000" {
			t.Fatal("originated to self")
		}
		if seen[ob.Addr] {
			t.Fatalf("duplicate target: %v", out)
		}
		seen[ob.Addr] = true
		if ob.Env.TTL != 8 || !ob.Env.HasTTL {
			t.Fatalf("want ttl=8, got %+v", ob.Env)
		}
	}
}

func TestHandleReceiveDedupIgnoresSecondCopy(t *testing.T) {
	e := newTestEngine(t, "127.0.0.1:9000", 2, 8, 1)
	addPeers(e.table, "10.0.0.1:1", "10.0.0.2:1")

	env := makeGossipEnvelope("msg-A", "data here", "origin-1", 5, 1000)
	first := e.HandleReceive(env, "10.0.0.9:1", 2000)
	if len(first) == 0 {
		t.Fatal("want forwards on first receipt")
	}

	second := e.HandleReceive(env, "10.0.0.9:1", 2100)
	if second != nil {
		t.Fatalf("want no forwards on duplicate, got %v", second)
	}
}

func TestHandleReceiveStopsAtTTLExhaustion(t *testing.T) {
	e := newTestEngine(t, "127.0.0.1:9000", 2, 8, 1)
	addPeers(e.table, "10.0.0.1:1", "10.0.0.2:1")

	env := makeGossipEnvelope("msg-B", "data", "origin-1", 1, 1000)
	out := e.HandleReceive(env, "10.0.0.9:1", 2000)
	if out != nil {
		t.Fatalf("ttl_in=1 decrements to 0, should not forward, got %v", out)
	}
}

func TestHandleReceiveForwardsWithDecrementedTTLAndSameMsgID(t *testing.T) {
	e := newTestEngine(t, "127.0.0.1:9000", 2, 8, 1)
	addPeers(e.table, "10.0.0.1:1", "10.0.0.2:1")

	env := makeGossipEnvelope("msg-C", "payload-data", "origin-1", 3, 1000)
	out := e.HandleReceive(env, "10.0.0.9:1", 2000)
	if len(out) == 0 {
		t.Fatal("want at least one forward")
	}
	for _, ob := range out {
		if ob.Env.MsgID != "msg-C" {
			t.Fatalf("forwarded envelope must keep the original msg_id, got %q", ob.Env.MsgID)
		}
		if ob.Env.TTL != 2 {
			t.Fatalf("want ttl decremented to 2, got %d", ob.Env.TTL)
		}
		if ob.Addr == "10.0.0.9:1" {
			t.Fatal("forwarded back to immediate source")
		}
	}
}

func TestHandleReceiveRejectsMalformedPayload(t *testing.T) {
	e := newTestEngine(t, "127.0.0.1:9000", 2, 8, 1)
	env := makeGossipEnvelope("msg-D", "", "", 3, 1000)
	env.Payload = map[string]any{"topic": "chat"} // missing data/origin_id/origin_timestamp_ms

	out := e.HandleReceive(env, "10.0.0.9:1", 2000)
	if out != nil {
		t.Fatalf("malformed payload should produce no forwards, got %v", out)
	}
	if e.Seen("msg-D") {
		t.Fatal("malformed gossip should not be marked seen")
	}
}

func TestKnownIDsByRecencyOrdersNewestFirst(t *testing.T) {
	e := newTestEngine(t, "127.0.0.1:9000", 2, 8, 1)
	e.Originate("first", 1000)
	e.Originate("second", 2000)
	e.Originate("third", 3000)

	ids := e.KnownIDsByRecency(10)
	want := []string{"msg-3", "msg-2", "msg-1"}
	if len(ids) != len(want) {
		t.Fatalf("want %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("want order %v, got %v", want, ids)
		}
	}
}

func TestKnownIDsByRecencyCapsAtLimit(t *testing.T) {
	e := newTestEngine(t, "127.0.0.1:9000", 2, 8, 1)
	e.Originate("a", 1000)
	e.Originate("b", 2000)
	ids := e.KnownIDsByRecency(1)
	if len(ids) != 1 {
		t.Fatalf("want 1 id, got %d", len(ids))
	}
}

func makeGossipEnvelope(msgID, data, originID string, ttl int, nowMs int64) wire.Envelope {
	return wire.Envelope{
		Version:     wire.Version,
		MsgID:       msgID,
		MsgType:     domain.MsgGossip,
		SenderID:    "origin-node",
		SenderAddr:  "10.0.0.9:1",
		TimestampMs: nowMs,
		TTL:         ttl,
		HasTTL:      true,
		Payload: map[string]any{
			"topic":               "chat",
			"data":                data,
			"origin_id":           originID,
			"origin_timestamp_ms": nowMs,
		},
	}
}
