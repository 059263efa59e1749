package coldfilter

import "time"

// RecencyDigest is a windowed recency estimator that ranks subkeys
// least-recently-touched first. It is a simplified, dependency-free
// stand-in for the original source's wtdigest (ctrip_wtdigest.c): instead of
// a full t-digest quantile sketch, it buckets touches into fixed-width time
// windows and reports the last window a key was touched in. No analyze(OUT)
// path in internal/swapdata consults it; those sort candidates by subkey.
type RecencyDigest struct {
	windowSeconds int64
	lastTouch     map[string]int64 // subkey -> window index
	now           func() time.Time
}

func NewRecencyDigest(windowSeconds int64) *RecencyDigest {
	return &RecencyDigest{
		windowSeconds: windowSeconds,
		lastTouch:     make(map[string]int64),
		now:           time.Now,
	}
}

func (d *RecencyDigest) window() int64 {
	if d.windowSeconds <= 0 {
		return 0
	}
	return d.now().Unix() / d.windowSeconds
}

// Touch records that subkey was accessed/mutated just now.
func (d *RecencyDigest) Touch(subkey string) { d.lastTouch[subkey] = d.window() }

// Forget drops tracking for subkey (e.g. once it has been evicted).
func (d *RecencyDigest) Forget(subkey string) { delete(d.lastTouch, subkey) }

// LeastRecent returns up to n subkeys (from candidates) ordered oldest-touch
// first; subkeys never touched sort before any touched subkey.
func (d *RecencyDigest) LeastRecent(candidates []string, n int) []string {
	type scored struct {
		subkey string
		window int64
	}
	scoredList := make([]scored, len(candidates))
	for i, c := range candidates {
		w, ok := d.lastTouch[c]
		if !ok {
			w = -1
		}
		scoredList[i] = scored{c, w}
	}
	for i := 1; i < len(scoredList); i++ {
		for j := i; j > 0 && scoredList[j].window < scoredList[j-1].window; j-- {
			scoredList[j], scoredList[j-1] = scoredList[j-1], scoredList[j]
		}
	}
	if n > len(scoredList) {
		n = len(scoredList)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = scoredList[i].subkey
	}
	return out
}
