package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

// Metric is one exported sample.
type Metric struct {
	Name   string            `json:"name"`
	Type   MetricType        `json:"type"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
	Help   string            `json:"help,omitempty"`
}

// TrainingMetrics counts runs and rounds for the metrics endpoint.
type TrainingMetrics struct {
	mu sync.RWMutex

	startTime      time.Time
	runsStarted    int64
	activeRuns     int64
	runsByStatus   map[string]int64
	roundsReported int64
	roundSeconds   float64
	runSeconds     float64
	trainAccuracy  float64
	testAccuracy   float64
}

func NewTrainingMetrics() *TrainingMetrics {
	return &TrainingMetrics{
		startTime:    time.Now(),
		runsByStatus: make(map[string]int64),
	}
}

// RunStarted marks a run as active.
func (m *TrainingMetrics) RunStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runsStarted++
	m.activeRuns++
}

// RoundReported records one evaluated round. testAccuracy may be nil.
func (m *TrainingMetrics) RoundReported(trainAccuracy float64, testAccuracy *float64, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roundsReported++
	m.roundSeconds += elapsed.Seconds()
	m.trainAccuracy = trainAccuracy
	if testAccuracy != nil {
		m.testAccuracy = *testAccuracy
	}
}

// RunFinished counts a run under its final status.
func (m *TrainingMetrics) RunFinished(status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeRuns > 0 {
		m.activeRuns--
	}
	m.runsByStatus[status]++
	m.runSeconds += duration.Seconds()
}

// Snapshot returns the current metrics sorted by name.
func (m *TrainingMetrics) Snapshot() []Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := []Metric{
		{Name: "perceptron_runs_started_total", Type: MetricTypeCounter, Value: float64(m.runsStarted), Help: "Training runs started"},
		{Name: "perceptron_runs_active", Type: MetricTypeGauge, Value: float64(m.activeRuns), Help: "Training runs in progress"},
		{Name: "perceptron_rounds_reported_total", Type: MetricTypeCounter, Value: float64(m.roundsReported), Help: "Evaluated training rounds"},
		{Name: "perceptron_round_report_seconds_total", Type: MetricTypeCounter, Value: m.roundSeconds, Help: "Time spent between round reports"},
		{Name: "perceptron_run_seconds_total", Type: MetricTypeCounter, Value: m.runSeconds, Help: "Wall time of finished runs"},
		{Name: "perceptron_train_accuracy", Type: MetricTypeGauge, Value: m.trainAccuracy, Help: "Training accuracy of the latest report"},
		{Name: "perceptron_test_accuracy", Type: MetricTypeGauge, Value: m.testAccuracy, Help: "Test accuracy of the latest report"},
		{Name: "process_goroutines", Type: MetricTypeGauge, Value: float64(runtime.NumGoroutine()), Help: "Number of goroutines"},
		{Name: "process_uptime_seconds", Type: MetricTypeGauge, Value: time.Since(m.startTime).Seconds(), Help: "Seconds since the collector was created"},
	}

	statuses := make([]string, 0, len(m.runsByStatus))
	for status := range m.runsByStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		metrics = append(metrics, Metric{
			Name:   "perceptron_runs_finished_total",
			Type:   MetricTypeCounter,
			Value:  float64(m.runsByStatus[status]),
			Labels: map[string]string{"status": status},
			Help:   "Finished training runs by status",
		})
	}

	sort.SliceStable(metrics, func(i, j int) bool { return metrics[i].Name < metrics[j].Name })
	return metrics
}

// ExportPrometheus renders the snapshot in the Prometheus text format.
func (m *TrainingMetrics) ExportPrometheus() string {
	var b strings.Builder
	last := ""
	for _, metric := range m.Snapshot() {
		if metric.Name != last {
			fmt.Fprintf(&b, "# HELP %s %s\n", metric.Name, metric.Help)
			fmt.Fprintf(&b, "# TYPE %s %s\n", metric.Name, metric.Type)
			last = metric.Name
		}
		fmt.Fprintf(&b, "%s%s %g\n", metric.Name, formatLabels(metric.Labels), metric.Value)
	}
	return b.String()
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

// GetSystemStats reports process uptime, goroutines and heap usage.
func (m *TrainingMetrics) GetSystemStats() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"uptime":     time.Since(m.startTime).String(),
		"goroutines": runtime.NumGoroutine(),
		"num_cpu":    runtime.NumCPU(),
		"memory": map[string]interface{}{
			"alloc":      mem.Alloc,
			"heap_alloc": mem.HeapAlloc,
			"heap_sys":   mem.HeapSys,
			"gc_count":   mem.NumGC,
		},
	}
}
