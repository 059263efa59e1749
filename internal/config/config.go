package config

import (
	"fmt"
	"sync"
)

// Ratelimit policies for swap-ratelimit-policy, grounded on config.c's
// swap_ratelimit_policy_enum.
const (
	RatelimitPause     = "pause"
	RatelimitReject    = "reject"
	RatelimitRejectOOM = "reject-oom" // kept distinct from reject: see the Open Question note in DESIGN.md
)

// Config holds every knob this module actually backs, plus verbatim
// storage for the multi-arg directives spec.md §6 requires the loader to
// accept without giving them a typed home (save, bind, and friends: see
// isMultiDirective). Field values are read directly by the rest of the
// module (workerpool.Config, swaprequest.MemoryGauge, compaction,
// rdb/rordb) — Config itself does not depend on any of those packages, to
// keep it importable from the bottom of the dependency graph the way
// config.c sits underneath every subsystem it configures.
type Config struct {
	mu sync.RWMutex

	registry    map[string]*Knob
	order       []string // registration order, for CONFIG REWRITE append-new-knobs-at-end and `config get *`
	directives  map[string][][]string
	sourceLines []line // nil until Load has been called; used by Rewrite
	sourcePath  string // the file Load was originally pointed at (top-level, not an include)

	SwapThreads                      int64
	SwapEvictStepMaxSubkeys          int64
	SwapEvictStepMaxMemory           int64
	SwapRatelimitMaxmemoryPercentage int64
	SwapRatelimitPolicy              string
	SwapCompactionFilterSkipLevel    int64
	SwapRordbLoadIncrementalFsync    bool
	SwapPersistEnabled               bool
	SwapRordbEnabled                 bool
	SwapBitmapSubkeySize             int64

	// SwapWorkerCoreThreads/.../SwapWorkerIdleKeepaliveSecond back
	// workerpool.Config's fields directly (New in server wiring copies
	// these four into a workerpool.Config literal).
	SwapWorkerCoreThreads              int64
	SwapWorkerMaxThreads               int64
	SwapWorkerReqThresholdForNewThread int64
	SwapWorkerIdleKeepaliveSecond      int64

	// SwapMaxmemory backs swaprequest.NewMemoryGauge's limitBytes (0 means
	// unbounded, matching MemoryGauge's own zero-value convention).
	SwapMaxmemory int64

	// SwapInprogressMemorySlowdown/Stop are the byte thresholds
	// stats.RateLimiter compares swap_inprogress_memory against (no
	// authoritative defaults exist upstream; 100MiB/250MiB are
	// conservative fixed defaults, tunable independently of maxmemory).
	SwapInprogressMemorySlowdown int64
	SwapInprogressMemoryStop     int64
}

// New builds a Config with every knob registered against its default
// value, matching config.c's initConfigValues running every
// createXConfig(...) entry before any config file is read.
func New() *Config {
	c := &Config{
		registry:   make(map[string]*Knob),
		directives: make(map[string][][]string),

		SwapThreads:                      4,
		SwapEvictStepMaxSubkeys:          1024,
		SwapEvictStepMaxMemory:           1 << 20,
		SwapRatelimitMaxmemoryPercentage: 200,
		SwapRatelimitPolicy:              RatelimitPause,
		SwapCompactionFilterSkipLevel:    0,
		SwapRordbLoadIncrementalFsync:    false,
		SwapPersistEnabled:               true,
		SwapRordbEnabled:                 false,
		SwapBitmapSubkeySize:             4096,

		SwapWorkerCoreThreads:              4,
		SwapWorkerMaxThreads:               8,
		SwapWorkerReqThresholdForNewThread: 1,
		SwapWorkerIdleKeepaliveSecond:      60,

		SwapMaxmemory: 0,

		SwapInprogressMemorySlowdown: 100 << 20,
		SwapInprogressMemoryStop:     250 << 20,
	}
	c.register(
		boolKnob("swap-persist-enabled", true, &c.SwapPersistEnabled, true, nil, nil),
		boolKnob("swap-rordb-enabled", true, &c.SwapRordbEnabled, false, nil, nil),
		boolKnob("swap-rordb-load-incremental-fsync", false, &c.SwapRordbLoadIncrementalFsync, false, nil, nil),

		intKnob("swap-threads", true, &c.SwapThreads, 4, 4, 64, nil),
		intKnob("swap-evict-step-max-subkeys", false, &c.SwapEvictStepMaxSubkeys, 1024, 0, 65536, nil),
		intKnob("swap-evict-step-max-memory", false, &c.SwapEvictStepMaxMemory, 1<<20, 0, 1<<40, nil),
		intKnob("swap-ratelimit-maxmemory-percentage", false, &c.SwapRatelimitMaxmemoryPercentage, 200, 100, 10000, nil),
		intKnob("swap-compaction-filter-skip-level", false, &c.SwapCompactionFilterSkipLevel, 0, 0, 6, nil),
		intKnob("swap-bitmap-subkey-size", true, &c.SwapBitmapSubkeySize, 4096, 1, 1<<20, nil),

		intKnob("swap-worker-core-threads", true, &c.SwapWorkerCoreThreads, 4, 1, 64, nil),
		intKnob("swap-worker-max-threads", true, &c.SwapWorkerMaxThreads, 8, 1, 256, nil),
		intKnob("swap-worker-req-threshold-for-new-thread", false, &c.SwapWorkerReqThresholdForNewThread, 1, 0, 1<<20, nil),
		intKnob("swap-worker-idle-keepalive-second", false, &c.SwapWorkerIdleKeepaliveSecond, 60, 0, 3600, nil),

		intKnob("maxmemory", false, &c.SwapMaxmemory, 0, 0, 1<<62, nil),
		intKnob("swap-inprogress-memory-slowdown", false, &c.SwapInprogressMemorySlowdown, 100<<20, 0, 1<<62, nil),
		intKnob("swap-inprogress-memory-stop", false, &c.SwapInprogressMemoryStop, 250<<20, 0, 1<<62, nil),

		enumKnob("swap-ratelimit-policy", false, &c.SwapRatelimitPolicy, RatelimitPause,
			[]string{RatelimitPause, RatelimitReject, RatelimitRejectOOM}, nil),
	)
	return c
}

func (c *Config) register(knobs ...*Knob) {
	for _, k := range knobs {
		if _, exists := c.registry[k.Name]; exists {
			panic(fmt.Sprintf("config: duplicate knob %q", k.Name))
		}
		c.registry[k.Name] = k
		c.order = append(c.order, k.Name)
	}
}

// Knob looks up a registered knob by name for introspection (e.g. CONFIG
// GET's pattern matching lives in get_set.go and uses this).
func (c *Config) Knob(name string) (*Knob, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.registry[name]
	return k, ok
}

// Names returns every registered knob name in registration order.
func (c *Config) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
