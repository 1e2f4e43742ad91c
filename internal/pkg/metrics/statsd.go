// Package metrics builds the statsd client used for counters and timings.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Config mirrors the metrics config section
type Config struct {
	Addr      string
	Namespace string
	Tags      []string
}

// NewClient returns a no-op client when no agent address is configured
func NewClient(cfg Config) (statsd.ClientInterface, error) {
	if cfg.Addr == "" {
		return &statsd.NoOpClient{}, nil
	}
	client, err := statsd.New(cfg.Addr,
		statsd.WithNamespace(cfg.Namespace),
		statsd.WithTags(cfg.Tags),
	)
	if err != nil {
		return nil, fmt.Errorf("statsd client %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Recorder keeps counters in memory; other calls are dropped
type Recorder struct {
	statsd.NoOpClient

	mu      sync.Mutex
	counts  map[string]int64
	timings map[string]int
}

func NewRecorder() *Recorder {
	return &Recorder{counts: make(map[string]int64), timings: make(map[string]int)}
}

func (r *Recorder) Incr(name string, _ []string, _ float64) error {
	return r.Count(name, 1, nil, 1)
}

func (r *Recorder) Count(name string, value int64, _ []string, _ float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name] += value
	return nil
}

func (r *Recorder) Timing(name string, _ time.Duration, _ []string, _ float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings[name]++
	return nil
}

// Counter returns the accumulated value of name
func (r *Recorder) Counter(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

// Timings returns how many timings were sent for name
func (r *Recorder) Timings(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timings[name]
}
