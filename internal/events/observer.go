// Package events defines the node's observation boundary: every mandatory
// event name in spec.md §6 is a method on Observer, so every component that
// produces lifecycle events (peer table, dispatcher, liveness, gossip,
// pull, bootstrap) depends on this interface rather than writing to a log
// or a metrics registry directly. internal/eventlog and internal/metrics
// each implement Observer; internal/node fans out to both via Multi.
package events

// Observer receives every lifecycle event a node runtime produces. Argument
// names mirror the event-specific keys named in spec.md §6.
type Observer interface {
	RecvOK(msgType, from string)
	RecvInvalidJSON(from string)
	RecvInvalidSchema(from, reason string)
	RecvUnknownType(from, msgType string)
	SendOK(to, msgType string)
	SendError(to, msgType string, err error)

	PeerAdd(addr, source string)
	PeerUpdate(addr string)
	PeerEvict(addr, reason string)
	PeerEvictDead(addr, reason string, lastSeenAgeMs int64, failures int)
	PeerLimitReject(addr string)

	HelloAccepted(addr, nodeID string)
	HelloRejected(addr, reason string)

	BootstrapHelloSent(addr string)
	BootstrapGetPeersSent(addr string)
	PeersListSent(addr string, count int)
	PeersListReceived(addr string, added, updated, ignored, evicted int)

	PingSent(addr, pingID string, seq int64)
	PingReceived(addr, pingID string, seq int64)
	PongSent(addr, pingID string, seq int64)
	PongReceived(addr, status string, rttMs int64)
	PingTimeout(addr string, failures int)

	GossipOriginated(msgID string, originTsMs int64, ttlInitial, textLen int)
	GossipFirstSeen(msgID string, recvTsMs int64, fromPeer string, ttlIn int)
	GossipDuplicateIgnored(msgID, fromPeer string)
	GossipForwardDecision(msgID, reason string)
	GossipForwarded(msgID, to string, ttlOut int)

	IHaveSent(to string, count int)
	IWantSent(to string, count int)
	GossipFulfilled(to, msgID string)
}

// Nop implements Observer with no-op methods, embedded by partial
// implementations (e.g. metrics.Recorder) that only care about a subset of
// events.
type Nop struct{}

func (Nop) RecvOK(string, string)                         {}
func (Nop) RecvInvalidJSON(string)                        {}
func (Nop) RecvInvalidSchema(string, string)              {}
func (Nop) RecvUnknownType(string, string)                {}
func (Nop) SendOK(string, string)                         {}
func (Nop) SendError(string, string, error)               {}
func (Nop) PeerAdd(string, string)                        {}
func (Nop) PeerUpdate(string)                             {}
func (Nop) PeerEvict(string, string)                      {}
func (Nop) PeerEvictDead(string, string, int64, int)      {}
func (Nop) PeerLimitReject(string)                        {}
func (Nop) HelloAccepted(string, string)                  {}
func (Nop) HelloRejected(string, string)                  {}
func (Nop) BootstrapHelloSent(string)                     {}
func (Nop) BootstrapGetPeersSent(string)                  {}
func (Nop) PeersListSent(string, int)                     {}
func (Nop) PeersListReceived(string, int, int, int, int)  {}
func (Nop) PingSent(string, string, int64)                {}
func (Nop) PingReceived(string, string, int64)            {}
func (Nop) PongSent(string, string, int64)                {}
func (Nop) PongReceived(string, string, int64)            {}
func (Nop) PingTimeout(string, int)                       {}
func (Nop) GossipOriginated(string, int64, int, int)      {}
func (Nop) GossipFirstSeen(string, int64, string, int)    {}
func (Nop) GossipDuplicateIgnored(string, string)         {}
func (Nop) GossipForwardDecision(string, string)          {}
func (Nop) GossipForwarded(string, string, int)           {}
func (Nop) IHaveSent(string, int)                         {}
func (Nop) IWantSent(string, int)                         {}
func (Nop) GossipFulfilled(string, string)                {}

// Multi fans every call out to each observer in order.
type Multi []Observer

func (m Multi) RecvOK(msgType, from string) {
	for _, o := range m {
		o.RecvOK(msgType, from)
	}
}
func (m Multi) RecvInvalidJSON(from string) {
	for _, o := range m {
		o.RecvInvalidJSON(from)
	}
}
func (m Multi) RecvInvalidSchema(from, reason string) {
	for _, o := range m {
		o.RecvInvalidSchema(from, reason)
	}
}
func (m Multi) RecvUnknownType(from, msgType string) {
	for _, o := range m {
		o.RecvUnknownType(from, msgType)
	}
}
func (m Multi) SendOK(to, msgType string) {
	for _, o := range m {
		o.SendOK(to, msgType)
	}
}
func (m Multi) SendError(to, msgType string, err error) {
	for _, o := range m {
		o.SendError(to, msgType, err)
	}
}
func (m Multi) PeerAdd(addr, source string) {
	for _, o := range m {
		o.PeerAdd(addr, source)
	}
}
func (m Multi) PeerUpdate(addr string) {
	for _, o := range m {
		o.PeerUpdate(addr)
	}
}
func (m Multi) PeerEvict(addr, reason string) {
	for _, o := range m {
		o.PeerEvict(addr, reason)
	}
}
func (m Multi) PeerEvictDead(addr, reason string, lastSeenAgeMs int64, failures int) {
	for _, o := range m {
		o.PeerEvictDead(addr, reason, lastSeenAgeMs, failures)
	}
}
func (m Multi) PeerLimitReject(addr string) {
	for _, o := range m {
		o.PeerLimitReject(addr)
	}
}
func (m Multi) HelloAccepted(addr, nodeID string) {
	for _, o := range m {
		o.HelloAccepted(addr, nodeID)
	}
}
func (m Multi) HelloRejected(addr, reason string) {
	for _, o := range m {
		o.HelloRejected(addr, reason)
	}
}
func (m Multi) BootstrapHelloSent(addr string) {
	for _, o := range m {
		o.BootstrapHelloSent(addr)
	}
}
func (m Multi) BootstrapGetPeersSent(addr string) {
	for _, o := range m {
		o.BootstrapGetPeersSent(addr)
	}
}
func (m Multi) PeersListSent(addr string, count int) {
	for _, o := range m {
		o.PeersListSent(addr, count)
	}
}
func (m Multi) PeersListReceived(addr string, added, updated, ignored, evicted int) {
	for _, o := range m {
		o.PeersListReceived(addr, added, updated, ignored, evicted)
	}
}
func (m Multi) PingSent(addr, pingID string, seq int64) {
	for _, o := range m {
		o.PingSent(addr, pingID, seq)
	}
}
func (m Multi) PingReceived(addr, pingID string, seq int64) {
	for _, o := range m {
		o.PingReceived(addr, pingID, seq)
	}
}
func (m Multi) PongSent(addr, pingID string, seq int64) {
	for _, o := range m {
		o.PongSent(addr, pingID, seq)
	}
}
func (m Multi) PongReceived(addr, status string, rttMs int64) {
	for _, o := range m {
		o.PongReceived(addr, status, rttMs)
	}
}
func (m Multi) PingTimeout(addr string, failures int) {
	for _, o := range m {
		o.PingTimeout(addr, failures)
	}
}
func (m Multi) GossipOriginated(msgID string, originTsMs int64, ttlInitial, textLen int) {
	for _, o := range m {
		o.GossipOriginated(msgID, originTsMs, ttlInitial, textLen)
	}
}
func (m Multi) GossipFirstSeen(msgID string, recvTsMs int64, fromPeer string, ttlIn int) {
	for _, o := range m {
		o.GossipFirstSeen(msgID, recvTsMs, fromPeer, ttlIn)
	}
}
func (m Multi) GossipDuplicateIgnored(msgID, fromPeer string) {
	for _, o := range m {
		o.GossipDuplicateIgnored(msgID, fromPeer)
	}
}
func (m Multi) GossipForwardDecision(msgID, reason string) {
	for _, o := range m {
		o.GossipForwardDecision(msgID, reason)
	}
}
func (m Multi) GossipForwarded(msgID, to string, ttlOut int) {
	for _, o := range m {
		o.GossipForwarded(msgID, to, ttlOut)
	}
}
func (m Multi) IHaveSent(to string, count int) {
	for _, o := range m {
		o.IHaveSent(to, count)
	}
}
func (m Multi) IWantSent(to string, count int) {
	for _, o := range m {
		o.IWantSent(to, count)
	}
}
func (m Multi) GossipFulfilled(to, msgID string) {
	for _, o := range m {
		o.GossipFulfilled(to, msgID)
	}
}
