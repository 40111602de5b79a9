// Package liveness implements the three-pass tick described in spec.md
// §4.7: timeout accounting for outstanding probes, dead-peer eviction, and
// issuing fresh probes to every peer that doesn't already have one
// outstanding.
package liveness

import (
	"github.com/rumormesh/rumornode/internal/domain"
	"github.com/rumormesh/rumornode/internal/events"
	"github.com/rumormesh/rumornode/internal/peertable"
	"github.com/rumormesh/rumornode/internal/wire"
)

// IDGen mints a fresh ping_id; production wiring uses google/uuid.
type IDGen func() string

// Scheduler drives one node's liveness tick.
type Scheduler struct {
	identity      domain.NodeIdentity
	table         *peertable.Table
	events        events.Observer
	pingIntervalMs int64
	peerTimeoutMs  int64
	newPingID     IDGen
}

// New constructs a Scheduler.
func New(identity domain.NodeIdentity, table *peertable.Table, obs events.Observer, pingIntervalMs, peerTimeoutMs int64, newPingID IDGen) *Scheduler {
	if obs == nil {
		obs = events.Nop{}
	}
	return &Scheduler{
		identity:       identity,
		table:          table,
		events:         obs,
		pingIntervalMs: pingIntervalMs,
		peerTimeoutMs:  peerTimeoutMs,
		newPingID:      newPingID,
	}
}

// Tick runs the timeout, eviction, and probe passes in order and returns
// every PING that should now be sent.
func (s *Scheduler) Tick(nowMs int64) []wire.Outbound {
	s.timeoutPass(nowMs)
	s.evictionPass(nowMs)
	return s.probePass(nowMs)
}

func (s *Scheduler) timeoutPass(nowMs int64) {
	for _, addr := range s.table.Addrs() {
		p, ok := s.table.Get(addr)
		if !ok || !p.HasPendingPing() {
			continue
		}
		if nowMs-p.LastPingSentMs < s.pingIntervalMs {
			continue
		}
		s.table.ClearPendingPingForTimeout(addr)
		s.table.UpsertExisting(addr, func(pr *domain.PeerRecord) {
			pr.ConsecutivePingFailures++
		})
		if pr, ok := s.table.Get(addr); ok {
			s.events.PingTimeout(addr, pr.ConsecutivePingFailures)
		}
	}
}

func (s *Scheduler) evictionPass(nowMs int64) {
	for _, addr := range s.table.Addrs() {
		p, ok := s.table.Get(addr)
		if !ok {
			continue
		}
		age := nowMs - p.LastSeenMs
		switch {
		case age > s.peerTimeoutMs:
			s.table.Evict(addr, peertable.ReasonPeerTimeout)
		case p.ConsecutivePingFailures >= peertable.MaxConsecutivePingFailure:
			s.table.Evict(addr, peertable.ReasonPingFailures)
		}
	}
}

func (s *Scheduler) probePass(nowMs int64) []wire.Outbound {
	var out []wire.Outbound
	for _, addr := range s.table.Addrs() {
		p, ok := s.table.Get(addr)
		if !ok || p.HasPendingPing() {
			continue
		}
		seq, ok := s.table.NextPingSeq(addr)
		if !ok {
			continue
		}
		pingID := s.newPingID()
		s.table.SetPendingPing(addr, pingID, seq, nowMs)
		out = append(out, wire.Outbound{
			Addr: addr,
			Env: wire.Envelope{
				Version:     wire.Version,
				MsgID:       pingID,
				MsgType:     domain.MsgPing,
				SenderID:    s.identity.NodeID,
				SenderAddr:  s.identity.SelfAddr,
				TimestampMs: nowMs,
				Payload:     map[string]any{"ping_id": pingID, "seq": seq},
			},
		})
		s.events.PingSent(addr, pingID, seq)
	}
	return out
}
