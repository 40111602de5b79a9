package liveness

import (
	"fmt"
	"testing"
	"time"

	"github.com/rumormesh/rumornode/internal/clock"
	"github.com/rumormesh/rumornode/internal/domain"
	"github.com/rumormesh/rumornode/internal/events"
	"github.com/rumormesh/rumornode/internal/peertable"
	"github.com/rumormesh/rumornode/internal/sample"
	"github.com/rumormesh/rumornode/internal/wire"
)

func sequentialPingID() IDGen {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("ping-%d", n)
	}
}

func newFixture(t *testing.T, pingIntervalMs, peerTimeoutMs int64) (*Scheduler, *peertable.Table, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tbl := peertable.New("127.0.0.1:9000", 30, peerTimeoutMs, fc, sample.New(1), events.Nop{})
	identity := domain.NodeIdentity{NodeID: "node-self", SelfAddr: "127.0.0.1:9000"}
	s := New(identity, tbl, events.Nop{}, pingIntervalMs, peerTimeoutMs, sequentialPingID())
	return s, tbl, fc
}

func TestProbePassSendsToEveryPeerWithoutPending(t *testing.T) {
	s, tbl, fc := newFixture(t, 1000, 6000)
	tbl.InsertNew("10.0.0.1:1", domain.PeerRecord{Source: domain.SourceHello, LastSeenMs: fc.NowMs(), RTTMs: -1})
	tbl.InsertNew("10.0.0.2:1", domain.PeerRecord{Source: domain.SourceHello, LastSeenMs: fc.NowMs(), RTTMs: -1})

	out := s.Tick(fc.NowMs())
	if len(out) != 2 {
		t.Fatalf("want 2 PINGs, got %d", len(out))
	}
	for _, ob := range out {
		if ob.Env.MsgType != domain.MsgPing {
			t.Fatalf("want PING, got %s", ob.Env.MsgType)
		}
		p, _ := tbl.Get(ob.Addr)
		if !p.HasPendingPing() {
			t.Fatalf("peer %s should now have a pending ping", ob.Addr)
		}
	}
}

func TestProbePassSkipsPeerWithPendingProbe(t *testing.T) {
	s, tbl, fc := newFixture(t, 1000, 6000)
	tbl.InsertNew("10.0.0.1:1", domain.PeerRecord{Source: domain.SourceHello, LastSeenMs: fc.NowMs(), RTTMs: -1})

	first := s.Tick(fc.NowMs())
	if len(first) != 1 {
		t.Fatalf("want 1 PING on first tick, got %d", len(first))
	}

	fc.Advance(100 * time.Millisecond) // well under ping_interval, still pending
	second := s.Tick(fc.NowMs())
	if len(second) != 0 {
		t.Fatalf("want no re-probe while one is outstanding, got %v", second)
	}
}

func TestTimeoutPassIncrementsFailuresAndClearsPending(t *testing.T) {
	s, tbl, fc := newFixture(t, 1000, 60_000) // long peer_timeout so only failures matter here
	tbl.InsertNew("10.0.0.1:1", domain.PeerRecord{Source: domain.SourceHello, LastSeenMs: fc.NowMs(), RTTMs: -1})

	s.Tick(fc.NowMs()) // sends the first probe
	fc.Advance(1100 * time.Millisecond)
	s.Tick(fc.NowMs()) // probe now overdue: timeout pass fires, then re-probes

	p, ok := tbl.Get("10.0.0.1:1")
	if !ok {
		t.Fatal("peer should still be present (1 failure < 3)")
	}
	if p.ConsecutivePingFailures != 1 {
		t.Fatalf("want 1 failure recorded, got %d", p.ConsecutivePingFailures)
	}
}

func TestEvictionPassRemovesPeerAfterThreeFailures(t *testing.T) {
	s, tbl, fc := newFixture(t, 1000, 60_000)
	tbl.InsertNew("10.0.0.1:1", domain.PeerRecord{Source: domain.SourceHello, LastSeenMs: fc.NowMs(), RTTMs: -1})

	for i := 0; i < 3; i++ {
		s.Tick(fc.NowMs())
		fc.Advance(1100 * time.Millisecond)
	}
	// one more tick to run the eviction pass against the third recorded failure
	s.Tick(fc.NowMs())

	if tbl.Has("10.0.0.1:1") {
		p, _ := tbl.Get("10.0.0.1:1")
		t.Fatalf("peer should be evicted after 3 failures, still present: %+v", p)
	}
}

func TestEvictionPassRemovesStalePeerByAgeAlone(t *testing.T) {
	s, tbl, fc := newFixture(t, 1000, 4000)
	tbl.InsertNew("10.0.0.1:1", domain.PeerRecord{Source: domain.SourceHello, LastSeenMs: fc.NowMs(), RTTMs: -1})

	fc.Advance(5 * time.Second) // past peer_timeout_s=4
	s.Tick(fc.NowMs())

	if tbl.Has("10.0.0.1:1") {
		t.Fatal("peer should be evicted once its last_seen age exceeds peer_timeout")
	}
}

func TestMatchedPongResetsFailuresSoNoEviction(t *testing.T) {
	s, tbl, fc := newFixture(t, 1000, 60_000)
	tbl.InsertNew("10.0.0.1:1", domain.PeerRecord{Source: domain.SourceHello, LastSeenMs: fc.NowMs(), RTTMs: -1})

	out := s.Tick(fc.NowMs())
	pingID := mustPingID(t, out)

	fc.Advance(50 * time.Millisecond)
	if _, ok := tbl.MatchPendingPing("10.0.0.1:1", pingID, fc.NowMs()); !ok {
		t.Fatal("expected match")
	}

	fc.Advance(1100 * time.Millisecond)
	s.Tick(fc.NowMs())

	p, ok := tbl.Get("10.0.0.1:1")
	if !ok {
		t.Fatal("peer should still be present")
	}
	if p.ConsecutivePingFailures != 0 {
		t.Fatalf("want failures reset by the matched PONG, got %d", p.ConsecutivePingFailures)
	}
}

func mustPingID(t *testing.T, out []wire.Outbound) string {
	t.Helper()
	if len(out) != 1 {
		t.Fatalf("want exactly one outbound PING, got %d", len(out))
	}
	pingID, ok := wire.String(out[0].Env.Payload, "ping_id")
	if !ok {
		t.Fatal("PING payload missing ping_id")
	}
	return pingID
}
