// Package config loads the YAML configuration shared by the server and the CLI.
package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"perceptron/dataset"
	"perceptron/logging"
	"perceptron/ml"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Http struct {
		Port int `yaml:"port"`
	} `yaml:"http"`
	Log      logging.Config          `yaml:"log"`
	Training TrainingConfig          `yaml:"training"`
	Dataset  dataset.SyntheticConfig `yaml:"dataset"`
}

// TrainingConfig holds the defaults applied to runs that do not override them.
type TrainingConfig struct {
	LearningRate   float64 `yaml:"learning_rate"`
	Epochs         int     `yaml:"epochs"`
	Workers        int     `yaml:"workers"`
	TrainRatio     float64 `yaml:"train_ratio"`
	ReportInterval int     `yaml:"report_interval"`
	Seed           int64   `yaml:"seed"`
	CacheSize      int     `yaml:"cache_size"`
}

func Default() *Config {
	var cfg Config
	cfg.Database.Path = "perceptron.db"
	cfg.Http.Port = 8080
	cfg.Log = logging.DefaultConfig()
	cfg.Training = TrainingConfig{
		LearningRate:   ml.DefaultLearningRate,
		Epochs:         ml.DefaultEpochs,
		Workers:        ml.DefaultWorkers,
		TrainRatio:     dataset.DefaultTrainRatio,
		ReportInterval: 10,
		CacheSize:      dataset.DefaultCacheSize,
	}
	cfg.Dataset = dataset.DefaultSyntheticConfig()
	return &cfg
}

// Load reads path on top of Default().
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return errors.Errorf("http port out of range: %d", c.Http.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	t := c.Training
	opts := ml.TrainOptions{LearningRate: t.LearningRate, Epochs: t.Epochs, Workers: t.Workers}
	if err := opts.Validate(); err != nil {
		return err
	}
	if !(t.TrainRatio > 0 && t.TrainRatio <= 1) {
		return errors.Errorf("train ratio must be within (0, 1], got %v", t.TrainRatio)
	}
	if t.ReportInterval < 1 {
		return errors.Errorf("report interval must be positive, got %d", t.ReportInterval)
	}
	return c.Dataset.Validate()
}
