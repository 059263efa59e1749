package stats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/keyrequest"
)

// promCollector adapts Stats to prometheus.Collector, exposing the same
// counters InfoString renders as a metrics scrape target instead of text.
type promCollector struct {
	stats *Stats

	swapCount  *prometheus.Desc
	swapMemory *prometheus.Desc
	swapTime   *prometheus.Desc
	rioCount   *prometheus.Desc

	hitAttempt  *prometheus.Desc
	hitNoIO     *prometheus.Desc
	hitNotFound *prometheus.Desc
}

// NewCollector builds a prometheus.Collector over s, ready to register
// with a prometheus.Registry.
func NewCollector(s *Stats) prometheus.Collector {
	return &promCollector{
		stats: s,
		swapCount: prometheus.NewDesc("swap_request_count", "swap requests completed, by intention",
			[]string{"intention"}, nil),
		swapMemory: prometheus.NewDesc("swap_request_memory_bytes", "bytes moved by swap requests, by intention",
			[]string{"intention"}, nil),
		swapTime: prometheus.NewDesc("swap_request_duration_seconds_total", "cumulative time spent on swap requests, by intention",
			[]string{"intention"}, nil),
		rioCount: prometheus.NewDesc("swap_rio_count", "rocksdb-facing operations completed, by action",
			[]string{"action"}, nil),
		hitAttempt:  prometheus.NewDesc("swap_swapin_attempt_total", "swap-in attempts", nil, nil),
		hitNoIO:     prometheus.NewDesc("swap_swapin_no_io_total", "swap-ins resolved without rocks I/O", nil, nil),
		hitNotFound: prometheus.NewDesc("swap_swapin_not_found_total", "swap-ins that found no data", nil, nil),
	}
}

func (c *promCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.swapCount
	ch <- c.swapMemory
	ch <- c.swapTime
	ch <- c.rioCount
	ch <- c.hitAttempt
	ch <- c.hitNoIO
	ch <- c.hitNotFound
}

func (c *promCollector) Collect(ch chan<- prometheus.Metric) {
	for _, in := range []keyrequest.Intention{keyrequest.IntentionIn, keyrequest.IntentionOut, keyrequest.IntentionDel} {
		_, count, memory, timeNs := c.stats.SwapSnapshot(in)
		label := in.String()
		ch <- prometheus.MustNewConstMetric(c.swapCount, prometheus.CounterValue, float64(count), label)
		ch <- prometheus.MustNewConstMetric(c.swapMemory, prometheus.CounterValue, float64(memory), label)
		ch <- prometheus.MustNewConstMetric(c.swapTime, prometheus.CounterValue, float64(timeNs)/1e9, label)
	}

	for _, act := range []RioAction{RioGet, RioMultiGet, RioPut, RioMultiPut, RioDel, RioMultiDel, RioWriteBatch, RioCheckpoint} {
		_, count, _, _ := c.stats.RioSnapshot(act)
		ch <- prometheus.MustNewConstMetric(c.rioCount, prometheus.CounterValue, float64(count), act.String())
	}

	attempt, noIO, cuckoo, absentCache, coldMiss, _, _, _ := c.stats.Hit.snapshot()
	ch <- prometheus.MustNewConstMetric(c.hitAttempt, prometheus.CounterValue, float64(attempt))
	ch <- prometheus.MustNewConstMetric(c.hitNoIO, prometheus.CounterValue, float64(noIO))
	ch <- prometheus.MustNewConstMetric(c.hitNotFound, prometheus.CounterValue, float64(cuckoo+absentCache+coldMiss))
}
