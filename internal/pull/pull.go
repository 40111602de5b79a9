// Package pull implements the optional hybrid push-pull supplement:
// periodic IHAVE advertisement, IWANT requesting for missing ids, and
// IWANT fulfillment from the local known-message store (spec.md §4.10).
package pull

import (
	"github.com/rumormesh/rumornode/internal/domain"
	"github.com/rumormesh/rumornode/internal/events"
	"github.com/rumormesh/rumornode/internal/gossip"
	"github.com/rumormesh/rumornode/internal/peertable"
	"github.com/rumormesh/rumornode/internal/wire"
)

// Engine coordinates IHAVE/IWANT against a shared gossip.Engine's
// known-message store and seen-set.
type Engine struct {
	identity    domain.NodeIdentity
	table       *peertable.Table
	gossip      *gossip.Engine
	events      events.Observer
	fanout      int
	idsMaxIHave int
}

// New constructs a pull Engine.
func New(identity domain.NodeIdentity, table *peertable.Table, g *gossip.Engine, obs events.Observer, fanout, idsMaxIHave int) *Engine {
	if obs == nil {
		obs = events.Nop{}
	}
	return &Engine{
		identity:    identity,
		table:       table,
		gossip:      g,
		events:      obs,
		fanout:      fanout,
		idsMaxIHave: idsMaxIHave,
	}
}

// Tick advertises known message ids to up to fanout random peers.
func (e *Engine) Tick(nowMs int64) []wire.Outbound {
	targets := e.table.Sample(nil, e.fanout)
	if len(targets) == 0 {
		return nil
	}
	ids := e.gossip.KnownIDsByRecency(e.idsMaxIHave)

	out := make([]wire.Outbound, 0, len(targets))
	for _, addr := range targets {
		out = append(out, wire.Outbound{
			Addr: addr,
			Env: wire.Envelope{
				Version:     wire.Version,
				MsgID:       addr + "-ihave", // local-only correlation, never matched against anything
				MsgType:     domain.MsgIHave,
				SenderID:    e.identity.NodeID,
				SenderAddr:  e.identity.SelfAddr,
				TimestampMs: nowMs,
				Payload: map[string]any{
					"ids":     ids,
					"max_ids": e.idsMaxIHave,
				},
			},
		})
		e.events.IHaveSent(addr, len(ids))
	}
	return out
}

// HandleIHave computes the ids the sender advertised that this node hasn't
// seen yet and, if any, requests them with an IWANT.
func (e *Engine) HandleIHave(env wire.Envelope, fromAddr string, nowMs int64) []wire.Outbound {
	ids, ok := wire.StringSlice(env.Payload, "ids")
	if !ok {
		return nil
	}
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if !e.gossip.Seen(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	e.events.IWantSent(fromAddr, len(missing))
	return []wire.Outbound{{
		Addr: fromAddr,
		Env: wire.Envelope{
			Version:     wire.Version,
			MsgID:       fromAddr + "-iwant",
			MsgType:     domain.MsgIWant,
			SenderID:    e.identity.NodeID,
			SenderAddr:  e.identity.SelfAddr,
			TimestampMs: nowMs,
			Payload:     map[string]any{"ids": missing},
		},
	}}
}

// HandleIWant fulfills every requested id this node actually has, as a
// ttl=1 GOSSIP that reaches only the requester without re-flooding.
func (e *Engine) HandleIWant(env wire.Envelope, fromAddr string, nowMs int64) []wire.Outbound {
	ids, ok := wire.StringSlice(env.Payload, "ids")
	if !ok {
		return nil
	}
	var out []wire.Outbound
	for _, id := range ids {
		km, found := e.gossip.Lookup(id)
		if !found {
			continue
		}
		out = append(out, wire.Outbound{
			Addr: fromAddr,
			Env: wire.Envelope{
				Version:     wire.Version,
				MsgID:       km.MsgID,
				MsgType:     domain.MsgGossip,
				SenderID:    e.identity.NodeID,
				SenderAddr:  e.identity.SelfAddr,
				TimestampMs: nowMs,
				TTL:         1,
				HasTTL:      true,
				Payload: map[string]any{
					"topic":               km.Topic,
					"data":                km.Data,
					"origin_id":           km.OriginID,
					"origin_timestamp_ms": km.OriginTimestampMs,
				},
			},
		})
		e.events.GossipFulfilled(fromAddr, id)
	}
	return out
}
