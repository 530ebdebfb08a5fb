package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"perceptron/db"
	"perceptron/ml"
	"perceptron/monitoring"
)

type recorder struct {
	started  []RunInfo
	rounds   []RoundReport
	finished []Summary
	err      error
}

func (r *recorder) Start(info RunInfo) error {
	r.started = append(r.started, info)
	return r.err
}

func (r *recorder) Report(round RoundReport) error {
	r.rounds = append(r.rounds, round)
	return r.err
}

func (r *recorder) Finish(s Summary) error {
	r.finished = append(r.finished, s)
	return r.err
}

func separable() ml.Dataset {
	return ml.Dataset{
		Features: [][]float64{{2, 1}, {1.5, 2}, {3, 2.5}, {-2, -1}, {-1.5, -2}, {-3, -2.5}},
		Labels:   []int{1, 1, 1, 0, 0, 0},
	}
}

// stepClock advances one second per call.
func stepClock() func() time.Time {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func zeroParams(t *testing.T, dim int) *ml.Parameters {
	t.Helper()
	params, err := ml.NewParametersFrom(make([]float64, dim), 0)
	require.NoError(t, err)
	return params
}

func TestSessionReportCadence(t *testing.T) {
	rec := &recorder{}
	session := NewSession("run-1", separable(), separable(), rec, WithInterval(10), WithClock(stepClock()))

	summary, err := session.Run(context.Background(), zeroParams(t, 2), ml.WithEpochs(25), ml.WithLearningRate(0.5))
	require.NoError(t, err)

	rounds := make([]int, 0, len(rec.rounds))
	for _, r := range rec.rounds {
		rounds = append(rounds, r.Round)
		assert.Equal(t, "run-1", r.RunID)
		require.NotNil(t, r.TestAccuracy)
		assert.Equal(t, time.Second, r.Elapsed)
	}
	assert.Equal(t, []int{0, 10, 20, 24}, rounds)

	require.Len(t, rec.started, 1)
	assert.Equal(t, 25, rec.started[0].Epochs)
	assert.Equal(t, 6, rec.started[0].TrainSize)
	require.Len(t, rec.finished, 1)

	assert.Equal(t, StatusCompleted, summary.Status)
	assert.Equal(t, 25, summary.Rounds)
	assert.Equal(t, 1.0, summary.Train.Accuracy)
	require.NotNil(t, summary.Test)
	assert.Equal(t, 1.0, summary.Test.Accuracy)
	assert.Empty(t, summary.Error)
}

func TestSessionWithoutTestSet(t *testing.T) {
	rec := &recorder{}
	session := NewSession("run-2", separable(), ml.Dataset{}, rec)
	summary, err := session.Run(context.Background(), zeroParams(t, 2), ml.WithEpochs(3))
	require.NoError(t, err)
	for _, r := range rec.rounds {
		assert.Nil(t, r.TestAccuracy)
	}
	assert.Nil(t, summary.Test)
}

func TestSessionReporterErrorsDoNotStopTraining(t *testing.T) {
	rec := &recorder{err: errors.New("sink down")}
	core, logs := observer.New(zap.WarnLevel)
	session := NewSession("run-3", separable(), ml.Dataset{}, rec, WithLogger(zap.New(core)), WithInterval(1))

	summary, err := session.Run(context.Background(), zeroParams(t, 2), ml.WithEpochs(3))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Rounds)
	assert.Len(t, rec.rounds, 3)
	assert.Equal(t, 5, logs.Len())
}

func TestSessionDivergence(t *testing.T) {
	ds := ml.Dataset{Features: [][]float64{{1e303}, {1e303}}, Labels: []int{0, 0}}
	rec := &recorder{}
	session := NewSession("run-4", ds, ml.Dataset{}, rec)

	summary, err := session.Run(context.Background(), zeroParams(t, 1), ml.WithLearningRate(1e6))
	assert.True(t, errors.Is(err, ml.ErrDivergence))
	assert.Equal(t, StatusDiverged, summary.Status)
	assert.Equal(t, 0, summary.Rounds)
	assert.NotEmpty(t, summary.Error)
	assert.Equal(t, []float64{0}, summary.Parameters.Weights)
	require.Len(t, rec.finished, 1)
}

func TestSessionCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session := NewSession("run-5", separable(), ml.Dataset{}, nil)
	summary, err := session.Run(ctx, zeroParams(t, 2))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StatusCancelled, summary.Status)
}

func TestSessionInvalidOptions(t *testing.T) {
	session := NewSession("run-6", separable(), ml.Dataset{}, nil)
	_, err := session.Run(context.Background(), zeroParams(t, 2), ml.WithEpochs(0))
	assert.True(t, errors.Is(err, ml.ErrInvalidOption))
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsole(&buf)
	testAccuracy := 0.509
	require.NoError(t, console.Report(RoundReport{Round: 0, TrainAccuracy: 0.512, TestAccuracy: &testAccuracy, Elapsed: 120 * time.Millisecond}))
	assert.Equal(t, "Epoch    0: Train Acc = 51.20%, Test Acc = 50.90%, Time = 0.12s\n", buf.String())

	buf.Reset()
	require.NoError(t, console.Report(RoundReport{Round: 1000, TrainAccuracy: 0.5, Elapsed: 2 * time.Second}))
	assert.Equal(t, "Epoch 1000: Train Acc = 50.00%, Time = 2.00s\n", buf.String())

	buf.Reset()
	require.NoError(t, console.Start(RunInfo{TrainSize: 800000, Features: 30, LearningRate: 0.1, Epochs: 50}))
	assert.Contains(t, buf.String(), "800,000 examples")

	buf.Reset()
	require.NoError(t, console.Finish(Summary{Status: StatusCompleted, Rounds: 50, Train: ml.Metrics{Accuracy: 0.9}}))
	assert.Contains(t, buf.String(), "Training Accuracy: 90.00%")
	assert.NotContains(t, buf.String(), "Test Accuracy")
}

func TestLogReporter(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	reporter := NewLog(zap.New(core))

	require.NoError(t, reporter.Start(RunInfo{RunID: "r"}))
	require.NoError(t, reporter.Report(RoundReport{RunID: "r", Round: 3}))
	require.NoError(t, reporter.Finish(Summary{RunInfo: RunInfo{RunID: "r"}, Status: StatusDiverged, Error: "boom"}))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "training round", entries[1].Message)
	assert.Equal(t, int64(3), entries[1].ContextMap()["round"])
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
}

func TestStoreReporter(t *testing.T) {
	require.NoError(t, db.InitDB(":memory:"))
	defer db.CloseDB()

	rec := &recorder{}
	session := NewSession("run-store", separable(), separable(), Multi{NewStore(), rec}, WithInterval(5))
	_, err := session.Run(context.Background(), zeroParams(t, 2), ml.WithEpochs(12))
	require.NoError(t, err)

	logs, err := db.LoadTrainingLog()
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "run-store", logs[0].RunID)
	assert.Equal(t, StatusCompleted, logs[0].Status)
	assert.Equal(t, 12, logs[0].Epochs)
	require.NotNil(t, logs[0].TestAccuracy)

	rounds, err := db.LoadRounds("run-store")
	require.NoError(t, err)
	require.Len(t, rounds, len(rec.rounds))
	assert.Equal(t, 0, rounds[0].Round)
	assert.Equal(t, 11, rounds[len(rounds)-1].Round)
}

type fakePublisher struct {
	types []monitoring.MessageType
}

func (f *fakePublisher) Publish(msgType monitoring.MessageType, topic string, data interface{}) error {
	f.types = append(f.types, msgType)
	return nil
}

func TestBroadcastReporter(t *testing.T) {
	publisher := &fakePublisher{}
	session := NewSession("run-ws", separable(), ml.Dataset{}, NewBroadcast(publisher), WithInterval(2))
	_, err := session.Run(context.Background(), zeroParams(t, 2), ml.WithEpochs(3))
	require.NoError(t, err)
	assert.Equal(t, []monitoring.MessageType{
		monitoring.RunStarted,
		monitoring.RoundReport,
		monitoring.RoundReport,
		monitoring.RunFinished,
	}, publisher.types)
}

func TestMultiCombinesErrors(t *testing.T) {
	first := &recorder{err: errors.New("a")}
	second := &recorder{err: errors.New("b")}
	err := Multi{first, second}.Report(RoundReport{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
	assert.Len(t, second.rounds, 1)
}

func TestMetricsReporter(t *testing.T) {
	collector := monitoring.NewTrainingMetrics()
	session := NewSession("run-metrics", separable(), ml.Dataset{}, NewMetrics(collector), WithInterval(2))
	_, err := session.Run(context.Background(), zeroParams(t, 2), ml.WithEpochs(3))
	require.NoError(t, err)

	out := collector.ExportPrometheus()
	assert.Contains(t, out, "perceptron_rounds_reported_total 2\n")
	assert.Contains(t, out, `perceptron_runs_finished_total{status="completed"} 1`)
	assert.Contains(t, out, "perceptron_runs_active 0\n")
}
