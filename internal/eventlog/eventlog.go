// Package eventlog implements the append-only JSONL event sink described in
// spec.md §6: one file per node, one JSON object per line, every mandatory
// event name wired through as a typed events.Observer method rather than a
// generic "log(name, fields)" call, so a missing or misspelled field is a
// compile error instead of a silent gap in the experiment record.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rumormesh/rumornode/internal/clock"
	"github.com/rumormesh/rumornode/internal/domain"
)

// Sink writes one JSON line per event to a node-<port>-<ts>-<nodeid>.jsonl
// file. It implements events.Observer. Writes are unbuffered-flushed per
// line (append-ordered, per spec.md §5's "shared, write-only" log sink) so
// a killed-mid-run node still leaves a readable partial log for the
// experiment harness.
type Sink struct {
	f      *os.File
	w      *bufio.Writer
	clock  clock.Clock
	nodeID string
}

// Open creates (or truncates) the JSONL file for this node under dir,
// named node-<port>-<tsMs>-<nodeID>.jsonl per spec.md §6.
func Open(dir string, port int, tsMs int64, nodeID string, clk clock.Clock) (*Sink, error) {
	if dir == "" {
		dir = "."
	}
	name := fmt.Sprintf("node-%d-%d-%s.jsonl", port, tsMs, nodeID)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log %s: %w", path, err)
	}
	return &Sink{f: f, w: bufio.NewWriter(f), clock: clk, nodeID: nodeID}, nil
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() error {
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

func (s *Sink) write(event string, fields map[string]any) {
	rec := domain.NewEventRecord(s.clock.NowMs(), s.nodeID, event, fields)
	line := map[string]any{"ts_ms": rec.TsMs, "event": rec.Event, "node_id": rec.NodeID}
	for k, v := range rec.Fields {
		line[k] = v
	}
	b, err := json.Marshal(line)
	if err != nil {
		return // a field that cannot marshal must never crash the node
	}
	s.w.Write(b)
	s.w.WriteByte('\n')
	s.w.Flush()
}

func (s *Sink) RecvOK(msgType, from string) {
	s.write("recv_ok", map[string]any{"msg_type": msgType, "from": from})
}
func (s *Sink) RecvInvalidJSON(from string) {
	s.write("recv_invalid_json", map[string]any{"from": from})
}
func (s *Sink) RecvInvalidSchema(from, reason string) {
	s.write("recv_invalid_schema", map[string]any{"from": from, "reason": reason})
}
func (s *Sink) RecvUnknownType(from, msgType string) {
	s.write("recv_unknown_type", map[string]any{"from": from, "msg_type": msgType})
}
func (s *Sink) SendOK(to, msgType string) {
	s.write("send_ok", map[string]any{"to": to, "msg_type": msgType})
}
func (s *Sink) SendError(to, msgType string, err error) {
	s.write("send_error", map[string]any{"to": to, "msg_type": msgType, "error": err.Error()})
}
func (s *Sink) PeerAdd(addr, source string) {
	s.write("peer_add", map[string]any{"addr": addr, "source": source})
}
func (s *Sink) PeerUpdate(addr string) {
	s.write("peer_update", map[string]any{"addr": addr})
}
func (s *Sink) PeerEvict(addr, reason string) {
	s.write("peer_evict", map[string]any{"addr": addr, "reason": reason})
}
func (s *Sink) PeerEvictDead(addr, reason string, lastSeenAgeMs int64, failures int) {
	s.write("peer_evict_dead", map[string]any{
		"addr": addr, "reason": reason, "last_seen_age_ms": lastSeenAgeMs, "failures": failures,
	})
}
func (s *Sink) PeerLimitReject(addr string) {
	s.write("peer_limit_reject", map[string]any{"addr": addr})
}
func (s *Sink) HelloAccepted(addr, nodeID string) {
	s.write("hello_accepted", map[string]any{"addr": addr, "peer_node_id": nodeID})
}
func (s *Sink) HelloRejected(addr, reason string) {
	s.write("hello_rejected", map[string]any{"addr": addr, "reason": reason})
}
func (s *Sink) BootstrapHelloSent(addr string) {
	s.write("bootstrap_hello_sent", map[string]any{"addr": addr})
}
func (s *Sink) BootstrapGetPeersSent(addr string) {
	s.write("bootstrap_get_peers_sent", map[string]any{"addr": addr})
}
func (s *Sink) PeersListSent(addr string, count int) {
	s.write("peers_list_sent", map[string]any{"addr": addr, "count": count})
}
func (s *Sink) PeersListReceived(addr string, added, updated, ignored, evicted int) {
	s.write("peers_list_received", map[string]any{
		"addr": addr, "added": added, "updated": updated, "ignored": ignored, "evicted": evicted,
	})
}
func (s *Sink) PingSent(addr, pingID string, seq int64) {
	s.write("ping_sent", map[string]any{"addr": addr, "ping_id": pingID, "seq": seq})
}
func (s *Sink) PingReceived(addr, pingID string, seq int64) {
	s.write("ping_received", map[string]any{"addr": addr, "ping_id": pingID, "seq": seq})
}
func (s *Sink) PongSent(addr, pingID string, seq int64) {
	s.write("pong_sent", map[string]any{"addr": addr, "ping_id": pingID, "seq": seq})
}
func (s *Sink) PongReceived(addr, status string, rttMs int64) {
	s.write("pong_received", map[string]any{"addr": addr, "status": status, "rtt_ms": rttMs})
}
func (s *Sink) PingTimeout(addr string, failures int) {
	s.write("ping_timeout", map[string]any{"addr": addr, "failures": failures})
}
func (s *Sink) GossipOriginated(msgID string, originTsMs int64, ttlInitial, textLen int) {
	s.write("gossip_originated", map[string]any{
		"msg_id": msgID, "origin_ts_ms": originTsMs, "ttl_initial": ttlInitial, "text_len": textLen,
	})
}
func (s *Sink) GossipFirstSeen(msgID string, recvTsMs int64, fromPeer string, ttlIn int) {
	s.write("gossip_first_seen", map[string]any{
		"msg_id": msgID, "recv_ts_ms": recvTsMs, "from_peer": fromPeer, "ttl_in": ttlIn,
	})
}
func (s *Sink) GossipDuplicateIgnored(msgID, fromPeer string) {
	s.write("gossip_duplicate_ignored", map[string]any{"msg_id": msgID, "from_peer": fromPeer})
}
func (s *Sink) GossipForwardDecision(msgID, reason string) {
	s.write("gossip_forward_decision", map[string]any{"msg_id": msgID, "reason": reason})
}
func (s *Sink) GossipForwarded(msgID, to string, ttlOut int) {
	s.write("gossip_forwarded", map[string]any{"msg_id": msgID, "to": to, "ttl_out": ttlOut})
}
func (s *Sink) IHaveSent(to string, count int) {
	s.write("ihave_sent", map[string]any{"to": to, "count": count})
}
func (s *Sink) IWantSent(to string, count int) {
	s.write("iwant_sent", map[string]any{"to": to, "count": count})
}
func (s *Sink) GossipFulfilled(to, msgID string) {
	s.write("gossip_fulfilled", map[string]any{"to": to, "msg_id": msgID})
}
