// Package bootstrap implements the initial HELLO + GET_PEERS handshake
// against the configured entry peer (spec.md §4.11). The bootstrap node
// gains no privileged role after this handshake; the regular dispatcher
// handles its PEERS_LIST reply exactly like any other peer's.
package bootstrap

import (
	"github.com/rumormesh/rumornode/internal/domain"
	"github.com/rumormesh/rumornode/internal/events"
	"github.com/rumormesh/rumornode/internal/pow"
	"github.com/rumormesh/rumornode/internal/wire"
)

// IDGen mints a fresh msg_id; production wiring uses google/uuid.
type IDGen func() string

// Start builds the HELLO and GET_PEERS sends for entry into the network.
// It returns nil if bootstrapAddr is empty or equals the node's own
// address — spec.md §4.11's "no bootstrap" case.
func Start(identity domain.NodeIdentity, bootstrapAddr string, peerLimit, kPow int, nowMs int64, newID IDGen, obs events.Observer) []wire.Outbound {
	if obs == nil {
		obs = events.Nop{}
	}
	if bootstrapAddr == "" || bootstrapAddr == identity.SelfAddr {
		return nil
	}

	helloPayload := map[string]any{"capabilities": []string{"udp", "json"}}
	if kPow > 0 {
		proof := pow.Produce(identity.NodeID, kPow)
		helloPayload["pow"] = map[string]any{
			"hash_alg":     proof.HashAlg,
			"difficulty_k": proof.DifficultyK,
			"nonce":        proof.Nonce,
			"digest_hex":   proof.DigestHex,
		}
	}

	helloEnv := wire.Envelope{
		Version:     wire.Version,
		MsgID:       newID(),
		MsgType:     domain.MsgHello,
		SenderID:    identity.NodeID,
		SenderAddr:  identity.SelfAddr,
		TimestampMs: nowMs,
		Payload:     helloPayload,
	}
	obs.BootstrapHelloSent(bootstrapAddr)

	getPeersEnv := wire.Envelope{
		Version:     wire.Version,
		MsgID:       newID(),
		MsgType:     domain.MsgGetPeers,
		SenderID:    identity.NodeID,
		SenderAddr:  identity.SelfAddr,
		TimestampMs: nowMs,
		Payload:     map[string]any{"max_peers": peerLimit},
	}
	obs.BootstrapGetPeersSent(bootstrapAddr)

	return []wire.Outbound{
		{Addr: bootstrapAddr, Env: helloEnv},
		{Addr: bootstrapAddr, Env: getPeersEnv},
	}
}
