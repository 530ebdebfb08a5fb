package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"perceptron/config"
	"perceptron/dataset"
	"perceptron/db"
	"perceptron/logging"
	"perceptron/ml"
	"perceptron/report"
)

type options struct {
	configPath   string
	samples      int
	features     int
	trainRatio   float64
	shuffle      bool
	learningRate float64
	epochs       int
	workers      int
	seed         int64
	interval     int
	csvPath      string
	exportPath   string
	dbPath       string
	logLevel     string
	logFile      string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "train_model",
		Short: "Train a sigmoid perceptron on synthetic or CSV data",
		Long: "train_model generates a noisy linearly separable dataset (or loads one from CSV), " +
			"splits it into train and test sets and fits a sigmoid perceptron with full-batch gradient descent.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	defaults := config.Default()
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config providing defaults for the flags below")
	flags.IntVar(&opts.samples, "samples", defaults.Dataset.Samples, "number of synthetic samples")
	flags.IntVar(&opts.features, "features", defaults.Dataset.Features, "number of synthetic features")
	flags.Float64Var(&opts.trainRatio, "train-ratio", defaults.Training.TrainRatio, "fraction of rows used for training")
	flags.BoolVar(&opts.shuffle, "shuffle", false, "shuffle rows before splitting")
	flags.Float64Var(&opts.learningRate, "learning-rate", defaults.Training.LearningRate, "gradient descent step size")
	flags.IntVar(&opts.epochs, "epochs", 50, "number of training rounds")
	flags.IntVar(&opts.workers, "workers", defaults.Training.Workers, "goroutines computing the gradient")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed, 0 seeds from the clock")
	flags.IntVar(&opts.interval, "interval", defaults.Training.ReportInterval, "report every n rounds")
	flags.StringVar(&opts.csvPath, "csv", "", "load rows label,x1,...,xD from this file instead of generating them")
	flags.StringVar(&opts.exportPath, "export", "", "write the dataset used for the run to this CSV file")
	flags.StringVar(&opts.dbPath, "db", "", "record the run in this SQLite database")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	flags.StringVar(&opts.logFile, "log-file", "", "also write logs to this rotated file")
	return cmd
}

// applyConfig fills flags the user did not set from the config file.
func applyConfig(cmd *cobra.Command, opts *options) error {
	if opts.configPath == "" {
		return nil
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("samples") {
		opts.samples = cfg.Dataset.Samples
	}
	if !flags.Changed("features") {
		opts.features = cfg.Dataset.Features
	}
	if !flags.Changed("train-ratio") {
		opts.trainRatio = cfg.Training.TrainRatio
	}
	if !flags.Changed("learning-rate") {
		opts.learningRate = cfg.Training.LearningRate
	}
	if !flags.Changed("epochs") {
		opts.epochs = cfg.Training.Epochs
	}
	if !flags.Changed("workers") {
		opts.workers = cfg.Training.Workers
	}
	if !flags.Changed("seed") {
		opts.seed = cfg.Training.Seed
	}
	if !flags.Changed("interval") {
		opts.interval = cfg.Training.ReportInterval
	}
	if !flags.Changed("db") {
		opts.dbPath = cfg.Database.Path
	}
	return nil
}

func run(cmd *cobra.Command, opts *options) error {
	if err := applyConfig(cmd, opts); err != nil {
		return err
	}

	logConfig := logging.DefaultConfig()
	logConfig.Level = opts.logLevel
	logConfig.File = opts.logFile
	logger, err := logging.New(logConfig)
	if err != nil {
		return err
	}
	defer logger.Sync()

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	console := report.NewConsole(cmd.OutOrStdout())

	ds, err := loadDataset(console, opts, rng)
	if err != nil {
		return err
	}
	if opts.exportPath != "" {
		if err := exportDataset(opts.exportPath, ds); err != nil {
			return err
		}
		logger.Info("dataset exported", zap.String("path", opts.exportPath))
	}

	var train, test ml.Dataset
	if opts.shuffle {
		train, test, err = dataset.SplitShuffled(ds, opts.trainRatio, rng)
	} else {
		train, test, err = dataset.Split(ds, opts.trainRatio)
	}
	if err != nil {
		return err
	}

	params, err := ml.NewParameters(ds.Dim(), rng)
	if err != nil {
		return err
	}

	reporters := report.Multi{console, report.NewLog(logger)}
	if opts.dbPath != "" {
		if err := db.InitDB(opts.dbPath); err != nil {
			return errors.Wrapf(err, "failed to open %s", opts.dbPath)
		}
		defer db.CloseDB()
		reporters = append(reporters, report.NewStore())
	}

	runID := uuid.NewString()
	logger.Info("run prepared", zap.String("run_id", runID), zap.Int64("seed", seed))
	session := report.NewSession(runID, train, test, reporters,
		report.WithInterval(opts.interval), report.WithLogger(logger))
	_, err = session.Run(cmd.Context(), params,
		ml.WithLearningRate(opts.learningRate),
		ml.WithEpochs(opts.epochs),
		ml.WithWorkers(opts.workers),
	)
	return err
}

func loadDataset(console *report.Console, opts *options, rng *rand.Rand) (ml.Dataset, error) {
	if opts.csvPath != "" {
		file, err := os.Open(opts.csvPath)
		if err != nil {
			return ml.Dataset{}, err
		}
		defer file.Close()
		console.Printf("Loading dataset from %s...\n", opts.csvPath)
		ds, err := dataset.LoadCSV(file)
		return ds, errors.Wrapf(err, "failed to load %s", opts.csvPath)
	}

	cfg := dataset.DefaultSyntheticConfig()
	cfg.Samples = opts.samples
	cfg.Features = opts.features
	console.Printf("Generating %d samples with %d features...\n", cfg.Samples, cfg.Features)
	ds, _, err := dataset.Generate(cfg, rng)
	return ds, err
}

func exportDataset(path string, ds ml.Dataset) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.WriteCSV(file, ds); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
