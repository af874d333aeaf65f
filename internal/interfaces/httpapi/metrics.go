package httpapi

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mu            sync.RWMutex
	startTime     time.Time
	requests      map[string]uint64
	errors        map[string]uint64
	mutations     uint64
	batchAccepted uint64
	batchFailed   uint64
}

func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		requests:  make(map[string]uint64),
		errors:    make(map[string]uint64),
	}
}

func (m *Metrics) IncRequest(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[op]++
}

func (m *Metrics) IncError(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[op]++
}

func (m *Metrics) IncMutation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutations++
}

func (m *Metrics) ObserveBatch(accepted, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutations += uint64(accepted)
	m.batchAccepted += uint64(accepted)
	m.batchFailed += uint64(failed)
}

type Snapshot struct {
	StartTime     time.Time
	Requests      map[string]uint64
	Errors        map[string]uint64
	Mutations     uint64
	BatchAccepted uint64
	BatchFailed   uint64
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	requests := make(map[string]uint64, len(m.requests))
	for op, count := range m.requests {
		requests[op] = count
	}
	errs := make(map[string]uint64, len(m.errors))
	for op, count := range m.errors {
		errs[op] = count
	}
	return Snapshot{
		StartTime:     m.startTime,
		Requests:      requests,
		Errors:        errs,
		Mutations:     m.mutations,
		BatchAccepted: m.batchAccepted,
		BatchFailed:   m.batchFailed,
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	snap := s.metrics.Snapshot()

	fmt.Fprintf(w, "hfbridge_uptime_seconds %.0f\n", time.Since(snap.StartTime).Seconds())
	fmt.Fprintf(w, "hfbridge_mutations_total %d\n", snap.Mutations)
	fmt.Fprintf(w, "hfbridge_batch_accepted_total %d\n", snap.BatchAccepted)
	fmt.Fprintf(w, "hfbridge_batch_failed_total %d\n", snap.BatchFailed)
	for _, op := range sortedKeys(snap.Requests) {
		fmt.Fprintf(w, "hfbridge_requests_total{op=%q} %d\n", op, snap.Requests[op])
	}
	for _, op := range sortedKeys(snap.Errors) {
		fmt.Fprintf(w, "hfbridge_errors_total{op=%q} %d\n", op, snap.Errors[op])
	}
}

func sortedKeys(counts map[string]uint64) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
