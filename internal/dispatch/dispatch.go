// Package dispatch routes a decoded envelope to its handler by msg_type
// (spec.md §4.4) and implements the peer-table-centric handlers directly:
// HELLO admission, GET_PEERS/PEERS_LIST exchange, and PING/PONG liveness
// replies. GOSSIP, IHAVE, and IWANT are delegated to internal/gossip and
// internal/pull, which own their own state.
package dispatch

import (
	"sort"

	"github.com/rumormesh/rumornode/internal/domain"
	"github.com/rumormesh/rumornode/internal/events"
	"github.com/rumormesh/rumornode/internal/gossip"
	"github.com/rumormesh/rumornode/internal/peertable"
	"github.com/rumormesh/rumornode/internal/pow"
	"github.com/rumormesh/rumornode/internal/pull"
	"github.com/rumormesh/rumornode/internal/wire"
)

// Handlers holds every dependency the wire-level handlers need. It carries
// no behavior of its own beyond routing and the HELLO/peers/ping/pong
// logic; GOSSIP/IHAVE/IWANT are one-line delegations.
type Handlers struct {
	Identity  domain.NodeIdentity
	Table     *peertable.Table
	Events    events.Observer
	PeerLimit int
	KPow      int
	Gossip    *gossip.Engine
	Pull      *pull.Engine
}

// Dispatch routes env to its handler and returns whatever outbound sends
// the handler produced.
func (h *Handlers) Dispatch(env wire.Envelope, fromAddr string, nowMs int64) []wire.Outbound {
	switch env.MsgType {
	case domain.MsgHello:
		return h.handleHello(env, fromAddr, nowMs)
	case domain.MsgGetPeers:
		return h.handleGetPeers(env, fromAddr, nowMs)
	case domain.MsgPeersList:
		return h.handlePeersList(env, fromAddr, nowMs)
	case domain.MsgPing:
		return h.handlePing(env, fromAddr, nowMs)
	case domain.MsgPong:
		return h.handlePong(env, fromAddr, nowMs)
	case domain.MsgGossip:
		return h.Gossip.HandleReceive(env, fromAddr, nowMs)
	case domain.MsgIHave:
		return h.Pull.HandleIHave(env, fromAddr, nowMs)
	case domain.MsgIWant:
		return h.Pull.HandleIWant(env, fromAddr, nowMs)
	default:
		// Unreachable in practice: wire.Decode already rejects any msg_type
		// that fails MsgType.Known() before an Envelope ever reaches here.
		h.Events.RecvUnknownType(fromAddr, string(env.MsgType))
		return nil
	}
}

func (h *Handlers) handleHello(env wire.Envelope, fromAddr string, nowMs int64) []wire.Outbound {
	caps, ok := wire.StringSlice(env.Payload, "capabilities")
	if !ok || !hasAll(caps, "udp", "json") {
		h.Events.HelloRejected(fromAddr, "capabilities_invalid")
		return nil
	}

	if h.KPow > 0 {
		proofObj, ok := wire.Object(env.Payload, "pow")
		if !ok {
			h.Events.HelloRejected(fromAddr, "pow_missing")
			return nil
		}
		proof, ok := decodeProof(proofObj)
		if !ok || !pow.Verify(proof, env.SenderID, h.KPow) {
			h.Events.HelloRejected(fromAddr, "pow_invalid")
			return nil
		}
	}

	if _, exists := h.Table.Get(fromAddr); exists {
		h.Table.UpsertExisting(fromAddr, func(p *domain.PeerRecord) {
			p.IsVerifiedHello = true
			p.LastSeenMs = nowMs
			if env.SenderID != "" {
				p.NodeID = env.SenderID
			}
		})
	} else {
		h.Table.InsertNew(fromAddr, domain.PeerRecord{
			NodeID:          env.SenderID,
			LastSeenMs:      nowMs,
			IsVerifiedHello: true,
			Source:          domain.SourceHello,
			RTTMs:           -1,
		})
	}
	h.Events.HelloAccepted(fromAddr, env.SenderID)
	return nil
}

func hasAll(caps []string, want ...string) bool {
	set := make(map[string]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func decodeProof(obj map[string]any) (pow.Proof, bool) {
	hashAlg, ok1 := wire.String(obj, "hash_alg")
	difficulty, ok2 := wire.Int(obj, "difficulty_k")
	nonce, ok3 := wire.Int64(obj, "nonce")
	digest, ok4 := wire.String(obj, "digest_hex")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return pow.Proof{}, false
	}
	return pow.Proof{HashAlg: hashAlg, DifficultyK: difficulty, Nonce: nonce, DigestHex: digest}, true
}

func (h *Handlers) handleGetPeers(env wire.Envelope, fromAddr string, nowMs int64) []wire.Outbound {
	maxPeers, ok := wire.Int(env.Payload, "max_peers")
	if !ok || maxPeers < 1 {
		maxPeers = h.PeerLimit
	}

	all := h.Table.All()
	entries := make([]map[string]any, 0, len(all))
	for _, p := range all {
		if p.Addr == fromAddr {
			continue
		}
		entries = append(entries, map[string]any{"node_id": p.NodeID, "addr": p.Addr})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i]["addr"].(string) < entries[j]["addr"].(string)
	})

	limit := maxPeers
	if h.PeerLimit < limit {
		limit = h.PeerLimit
	}
	if len(entries) < limit {
		limit = len(entries)
	}
	entries = entries[:limit]

	h.Events.PeersListSent(fromAddr, len(entries))
	return []wire.Outbound{{
		Addr: fromAddr,
		Env: wire.Envelope{
			Version:     wire.Version,
			MsgID:       "peers-list-" + fromAddr,
			MsgType:     domain.MsgPeersList,
			SenderID:    h.Identity.NodeID,
			SenderAddr:  h.Identity.SelfAddr,
			TimestampMs: nowMs,
			Payload:     map[string]any{"peers": entries},
		},
	}}
}

func (h *Handlers) handlePeersList(env wire.Envelope, fromAddr string, nowMs int64) []wire.Outbound {
	entries, ok := wire.ObjectSlice(env.Payload, "peers")
	if !ok {
		entries = nil
	}

	var added, updated, ignored, evicted int
	for _, entry := range entries {
		addr, ok := wire.String(entry, "addr")
		if !ok || addr == "" || addr == h.Identity.SelfAddr {
			ignored++
			continue
		}
		nodeID, _ := wire.String(entry, "node_id")

		if _, exists := h.Table.Get(addr); exists {
			h.Table.UpsertExisting(addr, func(p *domain.PeerRecord) {
				if nodeID != "" {
					p.NodeID = nodeID
				}
			})
			updated++
			continue
		}

		before := h.Table.Len()
		if h.Table.InsertNew(addr, domain.PeerRecord{
			NodeID:     nodeID,
			LastSeenMs: nowMs,
			Source:     domain.SourcePeersList,
			RTTMs:      -1,
		}) {
			added++
			if h.Table.Len() == before {
				evicted++
			}
		} else {
			ignored++
		}
	}

	h.Events.PeersListReceived(fromAddr, added, updated, ignored, evicted)
	return nil
}

func (h *Handlers) handlePing(env wire.Envelope, fromAddr string, nowMs int64) []wire.Outbound {
	pingID, ok1 := wire.String(env.Payload, "ping_id")
	seq, ok2 := wire.Int64(env.Payload, "seq")
	if !ok1 || pingID == "" || !ok2 {
		return nil
	}

	h.Table.UpsertExisting(fromAddr, func(p *domain.PeerRecord) {
		p.LastSeenMs = nowMs
	})
	h.Events.PingReceived(fromAddr, pingID, seq)
	h.Events.PongSent(fromAddr, pingID, seq)

	return []wire.Outbound{{
		Addr: fromAddr,
		Env: wire.Envelope{
			Version:     wire.Version,
			MsgID:       pingID,
			MsgType:     domain.MsgPong,
			SenderID:    h.Identity.NodeID,
			SenderAddr:  h.Identity.SelfAddr,
			TimestampMs: nowMs,
			Payload:     map[string]any{"ping_id": pingID, "seq": seq},
		},
	}}
}

func (h *Handlers) handlePong(env wire.Envelope, fromAddr string, nowMs int64) []wire.Outbound {
	pingID, ok := wire.String(env.Payload, "ping_id")
	if !ok || pingID == "" {
		return nil
	}
	rtt, matched := h.Table.MatchPendingPing(fromAddr, pingID, nowMs)
	if matched {
		h.Events.PongReceived(fromAddr, "matched", rtt)
	} else {
		h.Events.PongReceived(fromAddr, "unmatched", -1)
	}
	return nil
}
