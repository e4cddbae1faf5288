package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// EntryKind distinguishes what was timed.
type EntryKind uint8

const (
	// KindRequest is an inbound page or action request.
	KindRequest EntryKind = iota
	// KindQuery is a SQL statement in the development backend.
	KindQuery
	// KindUpstream is an outbound call to the REST API.
	KindUpstream
)

// String names the kind for logs and the perf endpoint.
func (k EntryKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindQuery:
		return "query"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Kind       EntryKind
	Path       string // "GET /schedules", "QueryContext", "PATCH /attendances/{id}"
	StatusCode int    // HTTP status; 0 for queries and transport failures
	DurationMs float64
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer for timing entries.
// Writes overwrite the oldest entry when full; aggregation happens on read.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int64
}

// NewCollector creates a collector with the given ring buffer capacity.
// PRE: size > 0 (non-positive falls back to DefaultRingSize)
// POST: Returns a ready-to-use collector with pre-allocated storage
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Record appends an entry to the ring buffer.
// PRE: e is a valid Entry
// POST: Entry stored; if buffer full, oldest entry overwritten
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % c.size
	c.mu.Unlock()
	atomic.AddInt64(&c.count, 1)
}

// TotalRecorded returns the total number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	return atomic.LoadInt64(&c.count)
}

// Snapshot holds aggregated performance data computed on read.
type Snapshot struct {
	TotalRecorded   int64      `json:"totalRecorded"`
	RequestP50Ms    float64    `json:"requestP50Ms"`
	RequestP95Ms    float64    `json:"requestP95Ms"`
	RequestP99Ms    float64    `json:"requestP99Ms"`
	UpstreamP95Ms   float64    `json:"upstreamP95Ms"`
	UpstreamErrors  int        `json:"upstreamErrors"`
	SlowestPaths    []PathStat `json:"slowestPaths"`
	SlowestQueries  []PathStat `json:"slowestQueries"`
	SlowestUpstream []PathStat `json:"slowestUpstream"`
}

// PathStat aggregates timing for a single path or operation.
type PathStat struct {
	Path    string  `json:"path"`
	AvgMs   float64 `json:"avgMs"`
	MaxMs   float64 `json:"maxMs"`
	Count   int     `json:"count"`
	TotalMs float64 `json:"totalMs"`
}

// Snapshot computes aggregated stats for entries recorded at or after since.
// PRE: topN >= 0
// POST: Returns percentiles per kind and the topN slowest paths per kind
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, c.size)
	copy(buf, c.entries)
	c.mu.Unlock()

	durations := make(map[EntryKind][]float64)
	stats := map[EntryKind]map[string]*PathStat{
		KindRequest:  {},
		KindQuery:    {},
		KindUpstream: {},
	}
	upstreamErrors := 0

	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		byPath, ok := stats[e.Kind]
		if !ok {
			continue
		}
		durations[e.Kind] = append(durations[e.Kind], e.DurationMs)
		if e.Kind == KindUpstream && (e.StatusCode == 0 || e.StatusCode >= 400) {
			upstreamErrors++
		}
		s, ok := byPath[e.Path]
		if !ok {
			s = &PathStat{Path: e.Path}
			byPath[e.Path] = s
		}
		s.Count++
		s.TotalMs += e.DurationMs
		if e.DurationMs > s.MaxMs {
			s.MaxMs = e.DurationMs
		}
	}

	for _, byPath := range stats {
		for _, s := range byPath {
			s.AvgMs = s.TotalMs / float64(s.Count)
		}
	}

	snap := Snapshot{
		TotalRecorded:   c.TotalRecorded(),
		UpstreamErrors:  upstreamErrors,
		SlowestPaths:    topByAvg(stats[KindRequest], topN),
		SlowestQueries:  topByAvg(stats[KindQuery], topN),
		SlowestUpstream: topByAvg(stats[KindUpstream], topN),
	}

	if req := durations[KindRequest]; len(req) > 0 {
		sort.Float64s(req)
		snap.RequestP50Ms = percentile(req, 50)
		snap.RequestP95Ms = percentile(req, 95)
		snap.RequestP99Ms = percentile(req, 99)
	}
	if up := durations[KindUpstream]; len(up) > 0 {
		sort.Float64s(up)
		snap.UpstreamP95Ms = percentile(up, 95)
	}

	return snap
}

// percentile returns the p-th percentile from a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// topByAvg returns the top n paths by average duration, slowest first.
func topByAvg(stats map[string]*PathStat, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs != list[j].AvgMs {
			return list[i].AvgMs > list[j].AvgMs
		}
		return list[i].Path < list[j].Path
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
