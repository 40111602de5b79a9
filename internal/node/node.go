// Package node owns the UDP endpoint and the single cooperative task runner
// that is the only goroutine ever allowed to mutate peer-table, seen-set,
// known-message, or pending-ping state (spec.md §5). Two feeder goroutines
// — UDP receive and stdin line reader — plus the node runtime's own ping and
// pull tickers funnel work into the owning goroutine's select loop, the same
// Start/receiveLoop split the teacher's SWIM implementation uses, but with
// channels replacing sync.RWMutex as the concurrency boundary.
package node

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rumormesh/rumornode/internal/archive"
	"github.com/rumormesh/rumornode/internal/bootstrap"
	"github.com/rumormesh/rumornode/internal/clock"
	"github.com/rumormesh/rumornode/internal/dispatch"
	"github.com/rumormesh/rumornode/internal/domain"
	"github.com/rumormesh/rumornode/internal/eventlog"
	"github.com/rumormesh/rumornode/internal/events"
	"github.com/rumormesh/rumornode/internal/gossip"
	"github.com/rumormesh/rumornode/internal/httpapi"
	"github.com/rumormesh/rumornode/internal/liveness"
	"github.com/rumormesh/rumornode/internal/metrics"
	"github.com/rumormesh/rumornode/internal/peertable"
	"github.com/rumormesh/rumornode/internal/pull"
	"github.com/rumormesh/rumornode/internal/sample"
	"github.com/rumormesh/rumornode/internal/wire"
)

// Runtime wires every protocol package into one UDP process.
type Runtime struct {
	identity domain.NodeIdentity
	cfg      domain.RuntimeConfig
	clock    clock.Clock

	conn *net.UDPConn

	table    *peertable.Table
	gossip   *gossip.Engine
	pull     *pull.Engine
	liveness *liveness.Scheduler
	handlers *dispatch.Handlers

	events     events.Multi
	eventSink  *eventlog.Sink
	archiveDB  archive.Store
	recorder   *metrics.Recorder
	httpServer *httpapi.Server

	stdin io.Reader
}

type inboundDatagram struct {
	data []byte
	from string
}

// New constructs a Runtime from a validated RuntimeConfig. stdin is the
// source of origination lines (os.Stdin in production, a bytes.Buffer or
// io.Pipe writer in tests).
func New(cfg domain.RuntimeConfig, identity domain.NodeIdentity, clk clock.Clock, stdin io.Reader) (*Runtime, error) {
	eventSink, err := eventlog.Open(cfg.LogDir, cfg.Port, clk.NowMs(), identity.NodeID, clk)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	recorder := metrics.New()

	var archiveDB archive.Store = archive.Noop{}
	if cfg.ArchiveDB != "" {
		db, err := archive.Open(cfg.ArchiveDB, func(err error) {
			log.Printf("archive store error (non-fatal, archive is observational only): %v", err)
		})
		if err != nil {
			eventSink.Close()
			return nil, fmt.Errorf("open archive db: %w", err)
		}
		archiveDB = db
	}

	obs := events.Multi{eventSink, recorder}
	sampler := sample.New(cfg.Seed)

	table := peertable.New(identity.SelfAddr, cfg.PeerLimit, cfg.PeerTimeout().Milliseconds(), clk, sampler, obs)
	g := gossip.New(identity, table, sampler, obs, archiveDB, cfg.Fanout, cfg.TTL, uuid.NewString)
	p := pull.New(identity, table, g, obs, cfg.Fanout, cfg.IdsMaxIHave)
	l := liveness.New(identity, table, obs, cfg.PingInterval().Milliseconds(), cfg.PeerTimeout().Milliseconds(), uuid.NewString)
	h := &dispatch.Handlers{
		Identity:  identity,
		Table:     table,
		Events:    obs,
		PeerLimit: cfg.PeerLimit,
		KPow:      cfg.KPow,
		Gossip:    g,
		Pull:      p,
	}

	r := &Runtime{
		identity:  identity,
		cfg:       cfg,
		clock:     clk,
		table:     table,
		gossip:    g,
		pull:      p,
		liveness:  l,
		handlers:  h,
		events:    obs,
		eventSink: eventSink,
		archiveDB: archiveDB,
		recorder:  recorder,
		stdin:     stdin,
	}

	if cfg.HTTPAddr != "" {
		r.httpServer = httpapi.New(cfg.HTTPAddr, r, recorder.Registry)
	}

	return r, nil
}

// PeerViews implements httpapi.PeerLister.
func (r *Runtime) PeerViews() []httpapi.PeerView {
	return httpapi.PeerRecordsToViews(r.table.All())
}

// Run binds the UDP socket, sends the bootstrap handshake if configured,
// and drives the owning select loop until ctx is cancelled. It returns nil
// on a clean shutdown (spec.md §6: exit code 0 on SIGINT).
func (r *Runtime) Run(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", r.identity.SelfAddr)
	if err != nil {
		return fmt.Errorf("resolve self addr %s: %w", r.identity.SelfAddr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("bind udp %s: %w", r.identity.SelfAddr, err)
	}
	r.conn = conn
	defer r.conn.Close()

	if r.httpServer != nil {
		go func() {
			if err := r.httpServer.ListenAndServe(); err != nil {
				log.Printf("diagnostics http server error: %v", err)
			}
		}()
		defer r.httpServer.Close()
	}
	defer r.eventSink.Close()
	defer r.archiveDB.Close()

	inbound := make(chan inboundDatagram, 64)
	go r.receiveLoop(ctx, inbound)

	stdinLines := make(chan string, 8)
	go r.stdinLoop(ctx, stdinLines)

	if r.cfg.BootstrapAddr != "" && r.cfg.BootstrapAddr != r.identity.SelfAddr {
		r.table.InsertNew(r.cfg.BootstrapAddr, domain.PeerRecord{
			LastSeenMs: r.clock.NowMs(),
			Source:     domain.SourceBootstrap,
			RTTMs:      -1,
		})
	}
	for _, ob := range bootstrap.Start(r.identity, r.cfg.BootstrapAddr, r.cfg.PeerLimit, r.cfg.KPow, r.clock.NowMs(), uuid.NewString, r.events) {
		r.send(ob)
	}

	pingTicker := time.NewTicker(r.cfg.PingInterval())
	defer pingTicker.Stop()
	pullTicker := time.NewTicker(r.cfg.PullInterval())
	defer pullTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case dg := <-inbound:
			r.handleDatagram(dg)

		case line := <-stdinLines:
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			for _, ob := range r.gossip.Originate(trimmed, r.clock.NowMs()) {
				r.send(ob)
			}

		case <-pingTicker.C:
			for _, ob := range r.liveness.Tick(r.clock.NowMs()) {
				r.send(ob)
			}

		case <-pullTicker.C:
			for _, ob := range r.pull.Tick(r.clock.NowMs()) {
				r.send(ob)
			}
		}
	}
}

func (r *Runtime) handleDatagram(dg inboundDatagram) {
	env, err := wire.Decode(dg.data)
	if err != nil {
		switch err {
		case domain.ErrInvalidJSON:
			r.events.RecvInvalidJSON(dg.from)
		case domain.ErrUnsupportedVersion:
			r.events.RecvInvalidSchema(dg.from, "unsupported_version")
		case domain.ErrUnknownType:
			r.events.RecvUnknownType(dg.from, "")
		default:
			r.events.RecvInvalidSchema(dg.from, "invalid_schema")
		}
		return
	}
	r.events.RecvOK(string(env.MsgType), dg.from)

	for _, ob := range r.handlers.Dispatch(env, dg.from, r.clock.NowMs()) {
		r.send(ob)
	}
}

func (r *Runtime) send(ob wire.Outbound) {
	data, err := wire.Encode(ob.Env)
	if err != nil {
		r.events.SendError(ob.Addr, string(ob.Env.MsgType), err)
		return
	}
	addr, err := net.ResolveUDPAddr("udp", ob.Addr)
	if err != nil {
		r.events.SendError(ob.Addr, string(ob.Env.MsgType), err)
		return
	}
	if _, err := r.conn.WriteToUDP(data, addr); err != nil {
		r.events.SendError(ob.Addr, string(ob.Env.MsgType), err)
		return
	}
	r.events.SendOK(ob.Addr, string(ob.Env.MsgType))
}

// receiveLoop reads datagrams off the UDP socket and forwards them to the
// owning goroutine. It never touches node state directly.
func (r *Runtime) receiveLoop(ctx context.Context, out chan<- inboundDatagram) {
	buf := make([]byte, 65536)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, from, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case out <- inboundDatagram{data: data, from: from.String()}:
		case <-ctx.Done():
			return
		}
	}
}

// stdinLoop reads lines from r.stdin (newline stripped, otherwise untrimmed;
// Run trims them and drops blank ones) and forwards them to the owning
// goroutine as origination requests (spec.md §4.6).
func (r *Runtime) stdinLoop(ctx context.Context, out chan<- string) {
	scanner := bufio.NewScanner(r.stdin)
	for scanner.Scan() {
		line := scanner.Text()
		select {
		case out <- line:
		case <-ctx.Done():
			return
		}
	}
}
