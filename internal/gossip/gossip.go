// Package gossip implements store-and-forward dissemination: dedup via a
// seen-set, TTL-bounded fanout forwarding, and message origination from
// locally-produced text. It is the receive-side and origination-side
// counterpart to internal/pull's advertise/request cycle, and both share
// the same known-message store through this package's exported read
// accessors.
package gossip

import (
	"sort"

	"github.com/rumormesh/rumornode/internal/archive"
	"github.com/rumormesh/rumornode/internal/domain"
	"github.com/rumormesh/rumornode/internal/events"
	"github.com/rumormesh/rumornode/internal/peertable"
	"github.com/rumormesh/rumornode/internal/sample"
	"github.com/rumormesh/rumornode/internal/wire"
)

// IDGen mints a fresh identifier for an envelope or a gossip message.
// Production wiring uses google/uuid; tests supply a deterministic stub.
type IDGen func() string

// Engine owns the seen-set and known-message store for one node.
type Engine struct {
	identity domain.NodeIdentity
	table    *peertable.Table
	sampler  *sample.Sampler
	events   events.Observer
	archive  archive.Store // nil-safe: archive.Noop{} when disabled
	fanout   int
	ttl      int
	newID    IDGen

	seen  map[string]bool
	known map[string]domain.KnownMessage
}

// New constructs an Engine. archiveStore may be archive.Noop{} to disable
// the optional SQLite mirror without branching at every call site.
func New(identity domain.NodeIdentity, table *peertable.Table, sampler *sample.Sampler, obs events.Observer, archiveStore archive.Store, fanout, ttl int, newID IDGen) *Engine {
	if obs == nil {
		obs = events.Nop{}
	}
	if archiveStore == nil {
		archiveStore = archive.Noop{}
	}
	return &Engine{
		identity: identity,
		table:    table,
		sampler:  sampler,
		events:   obs,
		archive:  archiveStore,
		fanout:   fanout,
		ttl:      ttl,
		newID:    newID,
		seen:     make(map[string]bool),
		known:    make(map[string]domain.KnownMessage),
	}
}

// maxTextBytes bounds data length so the encoded envelope stays near
// wire.MaxDatagramBytes even after the JSON envelope and payload overhead
// are added; a generous fixed margin avoids an encode-measure-retry loop.
const maxTextBytes = wire.MaxDatagramBytes - 300

// Originate mints a new gossip message from locally-produced text (one
// stdin line) and returns the fanout sends for it. Oversized text is
// truncated to fit the datagram-size guidance (spec.md §4.1).
func (e *Engine) Originate(text string, nowMs int64) []wire.Outbound {
	if len(text) > maxTextBytes {
		text = text[:maxTextBytes]
	}

	msgID := e.newID()
	payload := map[string]any{
		"topic":               "chat",
		"data":                text,
		"origin_id":           e.identity.NodeID,
		"origin_timestamp_ms": nowMs,
	}

	e.seen[msgID] = true
	km := domain.KnownMessage{
		MsgID:             msgID,
		Topic:             "chat",
		Data:              text,
		OriginID:          e.identity.NodeID,
		OriginTimestampMs: nowMs,
		FirstSeenMs:       nowMs,
	}
	e.known[msgID] = km
	e.archive.Store(km)

	e.events.GossipOriginated(msgID, nowMs, e.ttl, len(text))

	targets := e.table.Sample([]string{e.identity.SelfAddr}, e.fanout)
	out := make([]wire.Outbound, 0, len(targets))
	for _, addr := range targets {
		out = append(out, wire.Outbound{
			Addr: addr,
			Env: wire.Envelope{
				Version:     wire.Version,
				MsgID:       msgID,
				MsgType:     domain.MsgGossip,
				SenderID:    e.identity.NodeID,
				SenderAddr:  e.identity.SelfAddr,
				TimestampMs: nowMs,
				TTL:         e.ttl,
				HasTTL:      true,
				Payload:     payload,
			},
		})
	}
	return out
}

// HandleReceive implements spec.md §4.9's five-step GOSSIP receive
// algorithm: validate, dedup, store, decrement-then-forward.
func (e *Engine) HandleReceive(env wire.Envelope, fromAddr string, nowMs int64) []wire.Outbound {
	data, okData := wire.String(env.Payload, "data")
	originID, okOrigin := wire.String(env.Payload, "origin_id")
	originTs, okTs := wire.Int64(env.Payload, "origin_timestamp_ms")
	if !okData || !okOrigin || !okTs {
		return nil
	}
	topic, _ := wire.String(env.Payload, "topic")

	msgID := env.MsgID
	if e.seen[msgID] {
		e.events.GossipDuplicateIgnored(msgID, fromAddr)
		return nil
	}

	e.seen[msgID] = true
	km := domain.KnownMessage{
		MsgID:             msgID,
		Topic:             topic,
		Data:              data,
		OriginID:          originID,
		OriginTimestampMs: originTs,
		FirstSeenMs:       nowMs,
	}
	e.known[msgID] = km
	e.archive.Store(km)
	e.events.GossipFirstSeen(msgID, nowMs, fromAddr, env.TTL)

	ttlOut := env.TTL - 1
	if ttlOut <= 0 {
		e.events.GossipForwardDecision(msgID, "ttl_exhausted")
		return nil
	}

	targets := e.table.Sample([]string{e.identity.SelfAddr, fromAddr}, e.fanout)
	if len(targets) == 0 {
		e.events.GossipForwardDecision(msgID, "no_eligible_peers")
		return nil
	}

	out := make([]wire.Outbound, 0, len(targets))
	for _, addr := range targets {
		out = append(out, wire.Outbound{
			Addr: addr,
			Env: wire.Envelope{
				Version:     wire.Version,
				MsgID:       msgID,
				MsgType:     domain.MsgGossip,
				SenderID:    e.identity.NodeID,
				SenderAddr:  e.identity.SelfAddr,
				TimestampMs: nowMs,
				TTL:         ttlOut,
				HasTTL:      true,
				Payload:     env.Payload,
			},
		})
		e.events.GossipForwarded(msgID, addr, ttlOut)
	}
	return out
}

// Seen reports whether msgID has already been processed — the dedup test
// pull.Engine applies against an inbound IHAVE's advertised ids.
func (e *Engine) Seen(msgID string) bool {
	return e.seen[msgID]
}

// Lookup returns the stored message for msgID, used to fulfill IWANT.
func (e *Engine) Lookup(msgID string) (domain.KnownMessage, bool) {
	km, ok := e.known[msgID]
	return km, ok
}

// KnownIDsByRecency returns up to limit message IDs, most-recently-seen
// first, for building an IHAVE advertisement (spec.md §4.10).
func (e *Engine) KnownIDsByRecency(limit int) []string {
	ids := make([]string, 0, len(e.known))
	for id := range e.known {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := e.known[ids[i]], e.known[ids[j]]
		if a.FirstSeenMs != b.FirstSeenMs {
			return a.FirstSeenMs > b.FirstSeenMs
		}
		return ids[i] < ids[j]
	})
	if limit >= 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}
