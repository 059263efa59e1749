// Package server's Server type composes every other internal package into
// one runnable process: it loads config, opens the rocks engine, builds
// the keyspace/registry/listener graph/worker pool, and runs the single
// goroutine that is this module's whole command-processing thread (spec.md
// §5). Everything else in this package only runs when called from that
// goroutine; Server is what starts it and feeds it.
package server

import (
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/command"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/compaction"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/config"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/heartbeat"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/listener"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/objectmeta"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rdb"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/rocks"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/stats"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/swaprequest"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/wireproto"
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/workerpool"
)

// tickInterval drives the heartbeat/pool-shrink/compaction-sweep cadence;
// there is no config knob for it upstream either (ctripHeartbeat and
// swapThreadsTryShrinking both ride the existing server cron, which this
// module doesn't have, so a dedicated ticker stands in for it).
const tickInterval = 100 * time.Millisecond

// compactionSweepTicks spaces out compaction.Run relative to tickInterval:
// a compaction sweep scans every row of the Data and Score CFs, far too
// heavy to run every 100ms.
const compactionSweepTicks = 300 // ~30s at tickInterval=100ms

type cmdInput struct {
	client *wireproto.Client
	dbid   int
	argv   [][]byte
}

// Server owns every long-lived piece of the module and the single
// goroutine (Run) that drains cmdCh/doneCh/the tick timer. Admin-only
// methods (Checkpoint, Compact, StatsSnapshot) are safe to call from other
// goroutines (e.g. cmd/swapctl's RPC handler) since they only touch the
// rocks engine directly, never the keyspace/dispatcher state the server
// goroutine owns.
type Server struct {
	cfg    *config.Config
	engine *rocks.Engine
	dbnum  int

	keyspace *Keyspace
	registry *command.Registry
	graph    *listener.Graph
	pool     *workerpool.Pool
	executor *swaprequest.Executor
	gauge    *swaprequest.MemoryGauge
	dispatch *Dispatcher

	stats *stats.Stats
	rate  *stats.RateLimiter

	hbreg   *heartbeat.Registry
	clients *ClientTable

	snapshotFlag rdb.SnapshotFlag
	compactor    *compaction.Filter

	adminMu sync.Mutex // serializes Checkpoint/Compact, both direct engine calls

	cmdCh   chan cmdInput
	doneCh  chan *swaprequest.Batch
	stopCh  chan struct{}
	tickNum int64
}

// New builds a fully wired, not-yet-running Server over dbnum databases.
func New(cfg *config.Config, engine *rocks.Engine, dbnum int) *Server {
	meta := objectmeta.NewStore(dbnum)
	ks := NewKeyspace(dbnum, meta, cfg)

	gauge := swaprequest.NewMemoryGauge(cfg.SwapMaxmemory)
	ex := swaprequest.NewExecutor(engine, gauge)

	pool := workerpool.New(workerPoolConfig(cfg), ex)
	graph := listener.NewGraph(dbnum)
	reg := command.NewRegistry()
	disp := NewDispatcher(reg, ks, graph, pool, ex)

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		dbnum:    dbnum,
		keyspace: ks,
		registry: reg,
		graph:    graph,
		pool:     pool,
		executor: ex,
		gauge:    gauge,
		dispatch: disp,
		stats:    stats.New(),
		hbreg:    heartbeat.NewRegistry(),
		clients:  NewClientTable(),
		cmdCh:    make(chan cmdInput, 4096),
		doneCh:   make(chan *swaprequest.Batch, 4096),
		stopCh:   make(chan struct{}),
	}
	s.rate = stats.NewRateLimiter(cfg.SwapInprogressMemorySlowdown, cfg.SwapInprogressMemoryStop, gauge.InFlight)
	s.compactor = compaction.NewFilter(engine, s.snapshotFlag.Int32())
	pool.OnBatchDone(func(b *swaprequest.Batch) { s.doneCh <- b })
	return s
}

func workerPoolConfig(cfg *config.Config) workerpool.Config {
	return workerpool.Config{
		CoreThreads:               int(cfg.SwapWorkerCoreThreads),
		MaxThreads:                int(cfg.SwapWorkerMaxThreads),
		ReqThresholdForNewThread:  cfg.SwapWorkerReqThresholdForNewThread,
		IdleThreadKeepAliveSecond: float64(cfg.SwapWorkerIdleKeepaliveSecond),
	}
}

// Run drives the single server goroutine until Stop is called. It must be
// called from its own goroutine; every Dispatcher/Keyspace access happens
// here and nowhere else, which is what lets those types skip locking.
func (s *Server) Run() {
	s.pool.Start()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case in := <-s.cmdCh:
			s.dispatch.Dispatch(in.client, in.dbid, in.argv)
		case b := <-s.doneCh:
			s.dispatch.HandleBatchDone(b)
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

// Stop signals Run to return and tears down the worker pool; it does not
// close the rocks engine, which outlives the command loop so admin calls
// (Checkpoint, Compact) can still run against it during shutdown.
func (s *Server) Stop() {
	close(s.stopCh)
	s.pool.Stop()
}

// tick is the server goroutine's per-interval housekeeping: pool
// autoscaling bookkeeping, due heartbeats, and (every
// compactionSweepTicks) a compaction-filter sweep. Heartbeat push
// failures are logged nowhere in particular yet — a disconnected client's
// push simply fails silently, matching Run's own per-client independence
// contract.
func (s *Server) tick(now time.Time) {
	s.pool.Tick()
	s.pool.TryShrink(now)

	values := heartbeat.ValueSource{
		NowMs: func() int64 { return now.UnixMilli() },
	}
	s.hbreg.Run(now.UnixMilli(), values, s.clients)

	s.tickNum++
	if s.tickNum%compactionSweepTicks == 0 {
		go func() {
			s.adminMu.Lock()
			defer s.adminMu.Unlock()
			_, _ = compaction.Run(s.engine, s.snapshotFlag.Int32())
		}()
	}
}

// Serve accepts connections off ln until it errors (including on Stop
// closing ln out from under it), handling each on its own goroutine.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// handleConn owns one connection's read loop: SELECT is handled here
// directly (it's connection-local state, never a keyRequest), every other
// command is handed to the server goroutine over cmdCh. The rate limiter
// delays here, before the next read, rather than gating Dispatch itself —
// backpressure has to slow the client down, and the only thread that can
// do that without blocking every other connection is each connection's own
// reader goroutine.
func (s *Server) handleConn(conn net.Conn) {
	id := s.clients.NextID()
	client := wireproto.NewClient(id, conn)
	s.clients.Register(client, id)
	defer func() {
		s.clients.Remove(id)
		s.hbreg.Disable(id)
		_ = client.Close()
	}()

	dbid := 0
	for {
		argv, err := client.R.ReadCommand()
		if err != nil {
			return
		}
		if len(argv) == 0 {
			continue
		}

		if delay := s.rate.Delay(); delay > 0 {
			time.Sleep(delay)
		}

		cmdName := strings.ToUpper(string(argv[0]))
		if cmdName == "SELECT" && len(argv) == 2 {
			n, convErr := strconv.Atoi(string(argv[1]))
			if convErr != nil || n < 0 || n >= s.dbnum {
				_ = client.WriteReply(func(w *wireproto.Writer) error {
					return w.WriteError("ERR DB index is out of range")
				})
				continue
			}
			dbid = n
			_ = client.WriteReply(func(w *wireproto.Writer) error {
				return w.WriteSimpleString("OK")
			})
			continue
		}

		select {
		case s.cmdCh <- cmdInput{client: client, dbid: dbid, argv: argv}:
		case <-s.stopCh:
			return
		}
	}
}

// Checkpoint and Compact are the admin surface cmd/swapctl's control
// connection drives; both run synchronously against the engine directly,
// never through the worker pool's batching, since they're rare
// operator-triggered calls rather than per-command swap work (see
// internal/swaprequest's RunUtil, which this mirrors but calls inline
// instead of through a dedicated lane).
func (s *Server) Checkpoint(dir string) (string, error) {
	s.adminMu.Lock()
	defer s.adminMu.Unlock()
	return s.engine.Checkpoint(dir, time.Now().UnixMilli())
}

func (s *Server) Compact() error {
	s.adminMu.Lock()
	defer s.adminMu.Unlock()
	if err := s.engine.CompactRange(); err != nil {
		return err
	}
	_, err := compaction.Run(s.engine, s.snapshotFlag.Int32())
	return err
}

// StatsSnapshot reports the current rocks engine's per-CF stats, for
// cmd/swapctl's `stat` verb.
func (s *Server) StatsSnapshot() ([]rocks.CFStats, error) {
	return s.engine.Stats()
}

// LoadRDB replays one database's logical RDB stream into this server's
// rocks engine and object-meta store; callers must finish every LoadRDB
// call before Run starts, so the server goroutine never observes a
// half-loaded keyspace.
func (s *Server) LoadRDB(dbid int, r io.Reader, opts rdb.Options) (rdb.Stats, error) {
	return rdb.Load(r, s.engine, dbid, s.keyspace.Meta(), opts)
}
