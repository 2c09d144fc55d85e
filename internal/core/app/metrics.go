package app

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"social-rec/internal/platform/logx"
)

type runMetrics struct {
	mu    sync.Mutex
	steps map[string]*sourceMetric
	order []string
}

type sourceMetric struct {
	Name       string
	Start      time.Time
	End        time.Time
	Duration   time.Duration
	Queue      time.Duration
	Status     string
	Skipped    bool
	SkipReason string
	Fields     int64

	queueStart time.Time
}

func newRunMetrics() *runMetrics {
	return &runMetrics{steps: make(map[string]*sourceMetric)}
}

func (m *runMetrics) ensure(name string) *sourceMetric {
	if m.steps == nil {
		m.steps = make(map[string]*sourceMetric)
	}
	metric, ok := m.steps[name]
	if !ok {
		metric = &sourceMetric{Name: name}
		m.steps[name] = metric
		m.order = append(m.order, name)
	}
	return metric
}

// Wrap mide fn y clasifica su error como estado de la fuente.
func (m *runMetrics) Wrap(name string, fn func() error) func() error {
	if m == nil {
		return fn
	}
	return func() error {
		start := time.Now()
		m.mu.Lock()
		metric := m.ensure(name)
		metric.Start = start
		if !metric.queueStart.IsZero() && start.After(metric.queueStart) {
			metric.Queue = start.Sub(metric.queueStart)
		}
		m.mu.Unlock()

		err := fn()

		end := time.Now()
		m.mu.Lock()
		metric.End = end
		metric.Duration = end.Sub(start)
		metric.Status = classifySourceError(err)
		m.mu.Unlock()
		return err
	}
}

// RecordEnqueue marca el instante desde el que la fuente espera su lanzamiento.
func (m *runMetrics) RecordEnqueue(name string, at time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.ensure(name).queueStart = at
	m.mu.Unlock()
}

// RecordSkip registra una fuente que no llegó a lanzarse.
func (m *runMetrics) RecordSkip(name, reason string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	metric := m.ensure(name)
	metric.Skipped = true
	metric.Status = "omitido"
	metric.SkipReason = strings.TrimSpace(reason)
}

func (m *runMetrics) RecordFields(name string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.mu.Lock()
	m.ensure(name).Fields += int64(count)
	m.mu.Unlock()
}

func (m *runMetrics) Summaries() []sourceMetric {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]sourceMetric, 0, len(m.order))
	for _, name := range m.order {
		if metric, ok := m.steps[name]; ok {
			out = append(out, *metric)
		}
	}
	return out
}

func logRunMetrics(metrics *runMetrics, runID string, mode string, runDuration time.Duration) {
	summaries := metrics.Summaries()
	if len(summaries) == 0 {
		return
	}

	durations := make([]time.Duration, 0, len(summaries))
	var maxDuration, totalDuration, criticalPath time.Duration
	failed := 0
	for _, metric := range summaries {
		if metric.Skipped {
			reason := metric.SkipReason
			if reason == "" {
				reason = "sin motivo reportado"
			}
			logx.Debug("source_skipped", logx.Fields{
				"source":      metric.Name,
				"run_id":      runID,
				"skip_reason": reason,
			})
			continue
		}

		durations = append(durations, metric.Duration)
		totalDuration += metric.Duration
		if metric.Duration > maxDuration {
			maxDuration = metric.Duration
		}
		if candidate := metric.Duration + metric.Queue; candidate > criticalPath {
			criticalPath = candidate
		}
		if metric.Status != "ok" {
			failed++
		}
		logx.Debug("source_run", logx.Fields{
			"source":      metric.Name,
			"run_id":      runID,
			"status":      metric.Status,
			"start":       metric.Start.Format(time.RFC3339),
			"end":         metric.End.Format(time.RFC3339),
			"duration_ms": metric.Duration.Milliseconds(),
			"queue_ms":    metric.Queue.Milliseconds(),
			"fields":      metric.Fields,
		})
	}

	if len(durations) == 0 {
		return
	}

	summary := logx.Fields{
		"run_id":          runID,
		"mode":            mode,
		"sources":         len(durations),
		"failed":          failed,
		"skipped":         len(summaries) - len(durations),
		"p95_ms":          percentileDuration(durations, 95).Milliseconds(),
		"max_ms":          maxDuration.Milliseconds(),
		"sequential_ms":   totalDuration.Milliseconds(),
		"run_duration_ms": runDuration.Milliseconds(),
	}
	if criticalPath > 0 {
		summary["critical_path_ms"] = criticalPath.Milliseconds()
	}
	if runDuration > 0 && totalDuration > 0 {
		summary["speedup"] = round3(totalDuration.Seconds() / runDuration.Seconds())
	}
	logx.Debug("run_summary", summary)
}

func round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*1000) / 1000
}

func percentileDuration(durations []time.Duration, percentile int) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	if percentile <= 0 {
		return sorted[0]
	}
	if percentile >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := (percentile*len(sorted) + 100 - 1) / 100
	index := rank - 1
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
