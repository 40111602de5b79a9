// Package peertable implements the bounded, deterministic peer table
// described in spec.md §3–§4.3. It is owned exclusively by the node
// runtime's single scheduler goroutine (spec.md §5) and therefore carries
// no internal locking — every exported method assumes single-threaded,
// whole-call-duration-serialized access, the same discipline the teacher's
// SWIM implementation enforced with a mutex, made unnecessary here by the
// cooperative scheduling model.
package peertable

import (
	"sort"

	"github.com/rumormesh/rumornode/internal/clock"
	"github.com/rumormesh/rumornode/internal/domain"
	"github.com/rumormesh/rumornode/internal/events"
	"github.com/rumormesh/rumornode/internal/sample"
)

// Eviction reasons. peer_timeout and ping_failures are "dead" reasons that
// emit peer_evict_dead; anything else emits the generic peer_evict.
const (
	ReasonPeerTimeout         = "peer_timeout"
	ReasonPingFailures        = "ping_failures"
	ReasonPeerLimitReplaced   = "peer_limit_replaced"
	MaxConsecutivePingFailure = 3
)

type pendingKey struct {
	addr   string
	pingID string
}

// Table is the bounded addr -> PeerRecord map with deterministic
// replacement, implementing invariants I1-I4 from spec.md §3.
type Table struct {
	selfAddr      string
	limit         int
	peerTimeoutMs int64

	clock   clock.Clock
	sampler *sample.Sampler
	events  events.Observer

	peers   map[string]*domain.PeerRecord
	pending map[pendingKey]int64 // sent_ts_ms, keyed by (addr, ping_id)
}

// New constructs an empty table.
func New(selfAddr string, limit int, peerTimeoutMs int64, clk clock.Clock, sampler *sample.Sampler, obs events.Observer) *Table {
	if obs == nil {
		obs = events.Nop{}
	}
	return &Table{
		selfAddr:      selfAddr,
		limit:         limit,
		peerTimeoutMs: peerTimeoutMs,
		clock:         clk,
		sampler:       sampler,
		events:        obs,
		peers:         make(map[string]*domain.PeerRecord),
		pending:       make(map[pendingKey]int64),
	}
}

// Len returns the current peer count (invariant I1: always <= limit).
func (t *Table) Len() int { return len(t.peers) }

// Get returns the record for addr, if present.
func (t *Table) Get(addr string) (*domain.PeerRecord, bool) {
	p, ok := t.peers[addr]
	return p, ok
}

// Has reports whether addr is currently in the table.
func (t *Table) Has(addr string) bool {
	_, ok := t.peers[addr]
	return ok
}

// Addrs returns every peer address, sorted for deterministic iteration
// (Go map order is randomized per-process; every caller that needs
// reproducible behavior under a fixed seed must start from a sorted base).
func (t *Table) Addrs() []string {
	out := make([]string, 0, len(t.peers))
	for a := range t.peers {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// All returns every peer record, in sorted-addr order.
func (t *Table) All() []*domain.PeerRecord {
	addrs := t.Addrs()
	out := make([]*domain.PeerRecord, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, t.peers[a])
	}
	return out
}

// UpsertExisting patches an already-present record in place and emits
// peer_update. It is a no-op if addr is not present.
func (t *Table) UpsertExisting(addr string, patch func(*domain.PeerRecord)) bool {
	p, ok := t.peers[addr]
	if !ok {
		return false
	}
	patch(p)
	t.events.PeerUpdate(addr)
	return true
}

// InsertNew adds a brand-new peer, applying the replacement policy
// (spec.md §4.3) if the table is already at capacity. initial.Addr is set
// to addr regardless of what the caller populated. Returns true if the
// newcomer ended up in the table (admitted directly or via replacement).
func (t *Table) InsertNew(addr string, initial domain.PeerRecord) bool {
	if addr == t.selfAddr {
		return false
	}
	if _, exists := t.peers[addr]; exists {
		return false
	}
	initial.Addr = addr
	if initial.RTTMs == 0 {
		initial.RTTMs = -1
	}

	if len(t.peers) < t.limit {
		t.peers[addr] = &initial
		t.events.PeerAdd(addr, string(initial.Source))
		return true
	}
	return t.replace(addr, initial)
}

type candidateScore struct {
	failures int
	ageMs    int64
	addr     string
}

func (s candidateScore) greater(o candidateScore) bool {
	if s.failures != o.failures {
		return s.failures > o.failures
	}
	if s.ageMs != o.ageMs {
		return s.ageMs > o.ageMs
	}
	return s.addr > o.addr
}

// replace implements spec.md §4.3's replacement() operation: pick the
// lexicographically maximum (failures, age, addr) tuple; evict it only if
// it clears the eviction bar, otherwise reject the newcomer.
func (t *Table) replace(newAddr string, initial domain.PeerRecord) bool {
	now := t.clock.NowMs()

	var best candidateScore
	var bestAddr string
	first := true
	for _, addr := range t.Addrs() {
		p := t.peers[addr]
		s := candidateScore{
			failures: p.ConsecutivePingFailures,
			ageMs:    now - p.LastSeenMs,
			addr:     addr,
		}
		if first || s.greater(best) {
			best = s
			bestAddr = addr
			first = false
		}
	}
	if first {
		// limit == 0: nothing to evict, nothing to admit.
		t.events.PeerLimitReject(newAddr)
		return false
	}

	evictable := best.failures >= MaxConsecutivePingFailure || best.ageMs > t.peerTimeoutMs
	if !evictable {
		t.events.PeerLimitReject(newAddr)
		return false
	}

	t.Evict(bestAddr, ReasonPeerLimitReplaced)
	initial.Addr = newAddr
	t.peers[newAddr] = &initial
	t.events.PeerAdd(newAddr, string(initial.Source))
	return true
}

// Evict removes addr, clears any pending ping, and emits peer_evict or
// peer_evict_dead depending on reason.
func (t *Table) Evict(addr, reason string) {
	p, ok := t.peers[addr]
	if !ok {
		return
	}
	delete(t.peers, addr)
	if p.PendingPingID != "" {
		delete(t.pending, pendingKey{addr, p.PendingPingID})
	}

	switch reason {
	case ReasonPeerTimeout, ReasonPingFailures:
		ageMs := t.clock.NowMs() - p.LastSeenMs
		t.events.PeerEvictDead(addr, reason, ageMs, p.ConsecutivePingFailures)
	default:
		t.events.PeerEvict(addr, reason)
	}
}

// Sample draws up to k distinct peer addresses, excluding any address in
// exclude, via the table's seeded sampler (spec.md §4.3, §8 sample
// uniqueness + seed determinism).
func (t *Table) Sample(exclude []string, k int) []string {
	excl := make(map[string]bool, len(exclude))
	for _, a := range exclude {
		excl[a] = true
	}
	candidates := make([]string, 0, len(t.peers))
	for _, a := range t.Addrs() {
		if !excl[a] {
			candidates = append(candidates, a)
		}
	}
	return sample.Choose(t.sampler, candidates, k)
}

// SetPendingPing records a freshly-sent probe on both the peer record and
// the (addr, ping_id) correlation map.
func (t *Table) SetPendingPing(addr, pingID string, seq, sentMs int64) {
	p, ok := t.peers[addr]
	if !ok {
		return
	}
	p.PendingPingID = pingID
	p.PendingPingSeq = seq
	p.LastPingSentMs = sentMs
	t.pending[pendingKey{addr, pingID}] = sentMs
}

// MatchPendingPing looks up (addr, pingID) in the pending-ping correlation
// map. On a match it clears the pending state, resets failure count, and
// records RTT; on a miss it leaves all state untouched (spec.md §4.8: an
// unmatched PONG is logged and ignored).
func (t *Table) MatchPendingPing(addr, pingID string, nowMs int64) (rttMs int64, ok bool) {
	key := pendingKey{addr, pingID}
	sentMs, found := t.pending[key]
	if !found {
		return 0, false
	}
	delete(t.pending, key)
	if p, exists := t.peers[addr]; exists {
		if p.PendingPingID == pingID {
			p.ClearPendingPing()
		}
		p.ConsecutivePingFailures = 0
		p.RTTMs = nowMs - sentMs
	}
	return nowMs - sentMs, true
}

// ClearPendingPingForTimeout removes addr's outstanding probe (if any) from
// the correlation map and the peer record, without touching failure counts
// (the caller is responsible for incrementing ConsecutivePingFailures).
func (t *Table) ClearPendingPingForTimeout(addr string) {
	p, ok := t.peers[addr]
	if !ok {
		return
	}
	if p.PendingPingID != "" {
		delete(t.pending, pendingKey{addr, p.PendingPingID})
	}
	p.ClearPendingPing()
}

// NextPingSeq returns and increments addr's monotonic per-peer ping
// sequence counter.
func (t *Table) NextPingSeq(addr string) (int64, bool) {
	p, ok := t.peers[addr]
	if !ok {
		return 0, false
	}
	p.NextPingSeq++
	return p.NextPingSeq, true
}
