// Package metrics implements the Prometheus side of the node's observation
// boundary (events.Observer), grounded on the promauto registration style in
// internal/infra/observability. Unlike that package's process-global vars,
// Recorder registers into its own *prometheus.Registry instance so a test
// (or a harness spawning many in-process nodes) can construct more than one
// Recorder without a "duplicate metrics collector registration" panic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rumormesh/rumornode/internal/events"
)

// Recorder implements events.Observer, incrementing Prometheus counters and
// gauges for the subset of events spec.md §7 calls out as metrics-worthy. It
// embeds events.Nop so it satisfies the full interface without repeating
// every method that has no metric.
type Recorder struct {
	events.Nop

	Registry *prometheus.Registry

	recvTotal          *prometheus.CounterVec
	sendTotal          *prometheus.CounterVec
	peerTableSize      prometheus.Gauge
	peerEvictTotal     *prometheus.CounterVec
	helloAcceptedTotal prometheus.Counter
	helloRejectedTotal *prometheus.CounterVec
	pingTimeout        prometheus.Counter
	gossipSeen         prometheus.Counter
	gossipForwarded    prometheus.Counter
	gossipDup          prometheus.Counter
	iHaveSent          prometheus.Counter
	iWantSent          prometheus.Counter
	gossipFulfilled    prometheus.Counter
}

// New builds a Recorder with its own registry, namespaced "rumornode".
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		Registry: reg,
		recvTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rumornode",
			Subsystem: "wire",
			Name:      "recv_total",
			Help:      "Total envelopes received, by outcome.",
		}, []string{"outcome"}),
		sendTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rumornode",
			Subsystem: "wire",
			Name:      "send_total",
			Help:      "Total envelopes sent, by outcome.",
		}, []string{"outcome"}),
		peerTableSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rumornode",
			Name:      "peers",
			Help:      "Current number of entries in the peer table.",
		}),
		peerEvictTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rumornode",
			Subsystem: "peer",
			Name:      "evictions_total",
			Help:      "Total peer evictions, by reason.",
		}, []string{"reason"}),
		helloAcceptedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rumornode",
			Subsystem: "hello",
			Name:      "accepted_total",
			Help:      "Total HELLO messages admitted.",
		}),
		helloRejectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rumornode",
			Name:      "hello_rejected_total",
			Help:      "Total HELLO messages rejected, by reason.",
		}, []string{"reason"}),
		pingTimeout: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rumornode",
			Name:      "ping_timeouts_total",
			Help:      "Total PING probes that timed out unanswered.",
		}),
		gossipSeen: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rumornode",
			Subsystem: "gossip",
			Name:      "first_seen_total",
			Help:      "Total distinct gossip messages seen for the first time.",
		}),
		gossipForwarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rumornode",
			Subsystem: "gossip",
			Name:      "forwarded_total",
			Help:      "Total gossip forwards sent to a sampled peer.",
		}),
		gossipDup: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rumornode",
			Subsystem: "gossip",
			Name:      "duplicate_total",
			Help:      "Total duplicate gossip copies ignored.",
		}),
		iHaveSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rumornode",
			Subsystem: "pull",
			Name:      "ihave_sent_total",
			Help:      "Total IHAVE advertisements sent.",
		}),
		iWantSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rumornode",
			Subsystem: "pull",
			Name:      "iwant_sent_total",
			Help:      "Total IWANT requests sent.",
		}),
		gossipFulfilled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rumornode",
			Subsystem: "pull",
			Name:      "fulfilled_total",
			Help:      "Total GOSSIP messages sent in response to an IWANT.",
		}),
	}
}

func (r *Recorder) RecvOK(msgType, _ string) { r.recvTotal.WithLabelValues("ok").Inc() }
func (r *Recorder) RecvInvalidJSON(_ string) { r.recvTotal.WithLabelValues("invalid_json").Inc() }
func (r *Recorder) RecvInvalidSchema(_, _ string) {
	r.recvTotal.WithLabelValues("invalid_schema").Inc()
}
func (r *Recorder) RecvUnknownType(_, _ string) { r.recvTotal.WithLabelValues("unknown_type").Inc() }
func (r *Recorder) SendOK(_, _ string)           { r.sendTotal.WithLabelValues("ok").Inc() }
func (r *Recorder) SendError(_, _ string, _ error) {
	r.sendTotal.WithLabelValues("error").Inc()
}

func (r *Recorder) PeerAdd(_, _ string)    { r.peerTableSize.Inc() }
func (r *Recorder) PeerEvict(_, reason string) {
	r.peerTableSize.Dec()
	r.peerEvictTotal.WithLabelValues(reason).Inc()
}
func (r *Recorder) PeerEvictDead(_, reason string, _ int64, _ int) {
	r.peerTableSize.Dec()
	r.peerEvictTotal.WithLabelValues(reason).Inc()
}

func (r *Recorder) HelloAccepted(_, _ string)  { r.helloAcceptedTotal.Inc() }
func (r *Recorder) HelloRejected(_, reason string) {
	r.helloRejectedTotal.WithLabelValues(reason).Inc()
}

func (r *Recorder) PingTimeout(_ string, _ int) { r.pingTimeout.Inc() }

func (r *Recorder) GossipFirstSeen(_ string, _ int64, _ string, _ int) { r.gossipSeen.Inc() }
func (r *Recorder) GossipForwarded(_, _ string, _ int)                { r.gossipForwarded.Inc() }
func (r *Recorder) GossipDuplicateIgnored(_, _ string)                { r.gossipDup.Inc() }

func (r *Recorder) IHaveSent(_ string, _ int)        { r.iHaveSent.Inc() }
func (r *Recorder) IWantSent(_ string, _ int)        { r.iWantSent.Inc() }
func (r *Recorder) GossipFulfilled(_, _ string)      { r.gossipFulfilled.Inc() }
