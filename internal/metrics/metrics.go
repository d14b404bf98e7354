package metrics

import (
	"sort"
	"sync"
	"time"
)

type RequestSample struct {
	Path      string
	Method    string
	Status    int
	Latency   time.Duration
	Timestamp time.Time
}

type RouteSummary struct {
	Route        string  `json:"route"`
	Requests     int     `json:"requests"`
	Errors       int     `json:"errors"`
	AvgLatencyMS float64 `json:"avgLatencyMs"`
	MaxLatencyMS float64 `json:"maxLatencyMs"`
}

type Snapshot struct {
	Requests int            `json:"requests"`
	ByStatus map[int]int    `json:"byStatus"`
	Routes   []RouteSummary `json:"routes"`
	Since    time.Time      `json:"since"`
}

type routeTotals struct {
	requests int
	errors   int
	latency  time.Duration
	max      time.Duration
}

// Collector aggregates request samples in memory since process start.
type Collector struct {
	mu       sync.Mutex
	since    time.Time
	total    int
	byStatus map[int]int
	routes   map[string]*routeTotals
}

func NewCollector(now time.Time) *Collector {
	return &Collector{
		since:    now,
		byStatus: make(map[int]int),
		routes:   make(map[string]*routeTotals),
	}
}

func (c *Collector) Observe(s RequestSample) {
	key := s.Method + " " + s.Path
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.byStatus[s.Status]++
	rt, ok := c.routes[key]
	if !ok {
		rt = &routeTotals{}
		c.routes[key] = rt
	}
	rt.requests++
	if s.Status >= 500 {
		rt.errors++
	}
	rt.latency += s.Latency
	if s.Latency > rt.max {
		rt.max = s.Latency
	}
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := Snapshot{
		Requests: c.total,
		ByStatus: make(map[int]int, len(c.byStatus)),
		Routes:   make([]RouteSummary, 0, len(c.routes)),
		Since:    c.since,
	}
	for status, n := range c.byStatus {
		out.ByStatus[status] = n
	}
	for route, rt := range c.routes {
		out.Routes = append(out.Routes, RouteSummary{
			Route:        route,
			Requests:     rt.requests,
			Errors:       rt.errors,
			AvgLatencyMS: millis(rt.latency) / float64(rt.requests),
			MaxLatencyMS: millis(rt.max),
		})
	}
	sort.Slice(out.Routes, func(i, j int) bool { return out.Routes[i].Route < out.Routes[j].Route })
	return out
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
