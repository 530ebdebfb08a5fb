package http

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"perceptron/config"
	"perceptron/dataset"
	"perceptron/ml"
	"perceptron/monitoring"
	"perceptron/report"
)

// ErrShuttingDown is returned by Start once Shutdown has been called.
var ErrShuttingDown = errors.New("training service is shutting down")

// maxSyntheticValues caps samples*features for a generated dataset.
const maxSyntheticValues = 100_000_000

// RunRequest is the body of POST /api/train. Zero values fall back to the
// configured defaults. When CSV is set it replaces the synthetic dataset.
type RunRequest struct {
	LearningRate float64  `json:"learning_rate"`
	Epochs       int      `json:"epochs"`
	Workers      int      `json:"workers"`
	TrainRatio   float64  `json:"train_ratio"`
	Interval     int      `json:"interval"`
	Seed         *int64   `json:"seed"`
	Samples      int      `json:"samples"`
	Features     int      `json:"features"`
	Noise        *float64 `json:"noise"`
	CSV          string   `json:"csv"`
}

// TrainingService starts runs in the background and reports them to the log,
// the SQLite history and websocket subscribers.
type TrainingService struct {
	mu        sync.RWMutex
	training  config.TrainingConfig
	synthetic dataset.SyntheticConfig

	cache     *dataset.Cache
	publisher report.Publisher
	metrics   *monitoring.TrainingMetrics
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTrainingService builds a service using cfg for defaults. publisher and
// metrics may be nil.
func NewTrainingService(cfg *config.Config, publisher report.Publisher, metrics *monitoring.TrainingMetrics, logger *zap.Logger) (*TrainingService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := dataset.NewCache(cfg.Training.CacheSize)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TrainingService{
		training:  cfg.Training,
		synthetic: cfg.Dataset,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// UpdateDefaults swaps the defaults used by runs started afterwards.
func (s *TrainingService) UpdateDefaults(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.training = cfg.Training
	s.synthetic = cfg.Dataset
}

func (s *TrainingService) defaults() (config.TrainingConfig, dataset.SyntheticConfig) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.training, s.synthetic
}

type preparedRun struct {
	runID    string
	seed     int64
	interval int
	train    ml.Dataset
	test     ml.Dataset
	opts     []ml.TrainOptionFunc
}

// prepare resolves req against the defaults and builds the datasets. Every
// validation error surfaces here, before a run id is handed out.
func (s *TrainingService) prepare(req RunRequest) (*preparedRun, error) {
	training, synthetic := s.defaults()

	options := ml.TrainOptions{
		LearningRate: pick(req.LearningRate, training.LearningRate),
		Epochs:       pick(req.Epochs, training.Epochs),
		Workers:      pick(req.Workers, training.Workers),
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	seed := training.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	// only explicit seeds are cached
	seeded := seed != 0
	if !seeded {
		seed = time.Now().UnixNano()
	}

	var ds ml.Dataset
	if req.CSV != "" {
		loaded, err := dataset.LoadCSV(strings.NewReader(req.CSV))
		if err != nil {
			return nil, err
		}
		ds = loaded
	} else {
		synthetic.Samples = pick(req.Samples, synthetic.Samples)
		synthetic.Features = pick(req.Features, synthetic.Features)
		if req.Noise != nil {
			synthetic.Noise = *req.Noise
		}
		if synthetic.Samples > 0 && synthetic.Features > 0 && synthetic.Samples > maxSyntheticValues/synthetic.Features {
			return nil, errors.Errorf("dataset too large: %d samples x %d features exceeds %d values",
				synthetic.Samples, synthetic.Features, maxSyntheticValues)
		}
		generated, hit, err := s.generate(synthetic, seed, seeded)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("synthetic dataset ready", zap.Int("samples", generated.Len()), zap.Bool("cached", hit))
		ds = generated
	}

	train, test, err := dataset.Split(ds, pick(req.TrainRatio, training.TrainRatio))
	if err != nil {
		return nil, err
	}
	if train.Len() == 0 {
		return nil, errors.Wrap(ml.ErrEmptyDataset, "training split is empty")
	}

	return &preparedRun{
		runID:    uuid.NewString(),
		seed:     seed,
		interval: pick(req.Interval, training.ReportInterval),
		train:    train,
		test:     test,
		opts: []ml.TrainOptionFunc{
			ml.WithLearningRate(options.LearningRate),
			ml.WithEpochs(options.Epochs),
			ml.WithWorkers(options.Workers),
		},
	}, nil
}

func (s *TrainingService) generate(cfg dataset.SyntheticConfig, seed int64, seeded bool) (ml.Dataset, bool, error) {
	if seeded {
		ds, _, hit, err := s.cache.Generate(cfg, seed)
		return ds, hit, err
	}
	ds, _, err := dataset.Generate(cfg, rand.New(rand.NewSource(seed)))
	return ds, false, err
}

// Start validates req and launches the run. It returns the run id as soon as
// the data is ready; training continues in the background.
func (s *TrainingService) Start(req RunRequest) (string, error) {
	if s.ctx.Err() != nil {
		return "", ErrShuttingDown
	}
	run, err := s.prepare(req)
	if err != nil {
		return "", err
	}

	params, err := ml.NewParameters(run.train.Dim(), rand.New(rand.NewSource(run.seed)))
	if err != nil {
		return "", err
	}

	reporters := report.Multi{report.NewLog(s.logger), report.NewStore()}
	if s.publisher != nil {
		reporters = append(reporters, report.NewBroadcast(s.publisher))
	}
	if s.metrics != nil {
		reporters = append(reporters, report.NewMetrics(s.metrics))
	}
	session := report.NewSession(run.runID, run.train, run.test, reporters,
		report.WithInterval(run.interval), report.WithLogger(s.logger))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := session.Run(s.ctx, params, run.opts...); err != nil {
			s.logger.Warn("training run ended with error", zap.String("run_id", run.runID), zap.Error(err))
		}
	}()
	return run.runID, nil
}

// Wait blocks until every started run has finished.
func (s *TrainingService) Wait() {
	s.wg.Wait()
}

// Shutdown cancels running sessions at their next round boundary and waits for them.
func (s *TrainingService) Shutdown() {
	s.cancel()
	s.wg.Wait()
}

func pick[T int | float64](value, fallback T) T {
	if value == 0 {
		return fallback
	}
	return value
}
