package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"perceptron/db"
	"perceptron/monitoring"
)

// maxRequestBody bounds POST /api/train, inline CSV included.
const maxRequestBody = 64 << 20

// Handlers serves the training API.
type Handlers struct {
	training *TrainingService
	monitor  *monitoring.RealtimeMonitor
	logger   *zap.Logger
}

func NewHandlers(training *TrainingService, monitor *monitoring.RealtimeMonitor, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{training: training, monitor: monitor, logger: logger}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/train", h.handleTrain)
	mux.HandleFunc("GET /api/runs", h.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}/rounds", h.handleRounds)
	mux.HandleFunc("GET /api/monitor/stats", h.handleMonitorStats)
	if h.monitor != nil {
		mux.HandleFunc("GET /api/ws/training", h.monitor.HandleWebSocket)
	}
	if h.training.metrics != nil {
		mux.HandleFunc("GET /api/metrics", h.handleMetrics)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handlers) handleTrain(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid request body"))
		return
	}

	runID, err := h.training.Start(req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrShuttingDown) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": "running",
	})
}

func (h *Handlers) handleRuns(w http.ResponseWriter, r *http.Request) {
	logs, err := db.LoadTrainingLog()
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  logs,
		"count": len(logs),
	})
}

func (h *Handlers) handleRounds(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		http.Error(w, "run id is required", http.StatusBadRequest)
		return
	}

	rounds, err := db.LoadRounds(runID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if len(rounds) == 0 {
		writeError(w, http.StatusNotFound, errors.Errorf("no rounds recorded for run %s", runID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"rounds": rounds,
	})
}

// handleMonitorStats reports websocket counters and process statistics.
// Either section is omitted when its collector is not configured.
func (h *Handlers) handleMonitorStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{}
	if h.monitor != nil {
		stats["monitor"] = h.monitor.GetStats()
	}
	if h.training.metrics != nil {
		stats["system"] = h.training.metrics.GetSystemStats()
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	io.WriteString(w, h.training.metrics.ExportPrometheus())
}

func (h *Handlers) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotInitialized) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	h.logger.Error("run history query failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
