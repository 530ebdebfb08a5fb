package monitoring

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrainingMetrics(t *testing.T) {
	m := NewTrainingMetrics()
	m.RunStarted()
	m.RunStarted()

	testAccuracy := 0.75
	m.RoundReported(0.8, &testAccuracy, 500*time.Millisecond)
	m.RoundReported(0.9, nil, 250*time.Millisecond)
	m.RunFinished("completed", 2*time.Second)

	values := map[string]float64{}
	for _, metric := range m.Snapshot() {
		key := metric.Name
		if status, ok := metric.Labels["status"]; ok {
			key += "/" + status
		}
		values[key] = metric.Value
	}

	assert.Equal(t, 2.0, values["perceptron_runs_started_total"])
	assert.Equal(t, 1.0, values["perceptron_runs_active"])
	assert.Equal(t, 2.0, values["perceptron_rounds_reported_total"])
	assert.InDelta(t, 0.75, values["perceptron_round_report_seconds_total"], 1e-9)
	assert.Equal(t, 0.9, values["perceptron_train_accuracy"])
	assert.Equal(t, 0.75, values["perceptron_test_accuracy"])
	assert.Equal(t, 1.0, values["perceptron_runs_finished_total/completed"])
}

func TestExportPrometheus(t *testing.T) {
	m := NewTrainingMetrics()
	m.RunStarted()
	m.RunFinished("diverged", time.Second)
	m.RunStarted()
	m.RunFinished("completed", time.Second)

	out := m.ExportPrometheus()
	assert.Contains(t, out, "# TYPE perceptron_runs_started_total counter\nperceptron_runs_started_total 2\n")
	assert.Contains(t, out, `perceptron_runs_finished_total{status="completed"} 1`)
	assert.Contains(t, out, `perceptron_runs_finished_total{status="diverged"} 1`)
	assert.Equal(t, 1, strings.Count(out, "# HELP perceptron_runs_finished_total"))
}
