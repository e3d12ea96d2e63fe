package main

import (
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/censreg/linear"
	"github.com/YuminosukeSato/censreg/pkg/errors"
)

// Config は fit コマンドの YAML 設定。
// 省略したキーは DefaultConfig の値のまま残る。境界には .inf / -.inf を使える。
type Config struct {
	Likelihood   string  `yaml:"likelihood"`
	Lower        float64 `yaml:"lower"`
	Upper        float64 `yaml:"upper"`
	FitIntercept bool    `yaml:"fit_intercept"`
	Solver       string  `yaml:"solver"`
	Schedule     string  `yaml:"schedule"`
	LearningRate float64 `yaml:"learning_rate"`
	EtaMin       float64 `yaml:"eta_min"`
	WeightDecay  float64 `yaml:"weight_decay"`
	MaxIter      int     `yaml:"max_iter"`
	Tol          float64 `yaml:"tol"`
	NJobs        int     `yaml:"n_jobs"`
	MaxGradNorm  float64 `yaml:"max_grad_norm"`
}

// DefaultConfig returns the estimator defaults.
func DefaultConfig() Config {
	return Config{
		Likelihood:   string(linear.Truncated),
		Lower:        0,
		Upper:        math.Inf(1),
		Solver:       linear.SolverAdam,
		Schedule:     linear.ScheduleCosine,
		LearningRate: 0.1,
		EtaMin:       1e-3,
		WeightDecay:  1e-4,
		MaxIter:      1000,
		Tol:          1e-5,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "open config %s", path)
	}
	defer f.Close()
	return ReadConfig(f)
}

// ReadConfig decodes YAML from r on top of DefaultConfig.
func ReadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}

// Options converts the configuration into estimator options.
func (c Config) Options() ([]linear.Option, error) {
	likelihood, err := linear.ParseLikelihood(c.Likelihood)
	if err != nil {
		return nil, err
	}
	return []linear.Option{
		linear.WithLikelihood(likelihood),
		linear.WithBounds(c.Lower, c.Upper),
		linear.WithFitIntercept(c.FitIntercept),
		linear.WithSolver(c.Solver),
		linear.WithSchedule(c.Schedule),
		linear.WithLearningRate(c.LearningRate),
		linear.WithEtaMin(c.EtaMin),
		linear.WithWeightDecay(c.WeightDecay),
		linear.WithMaxIter(c.MaxIter),
		linear.WithTol(c.Tol),
		linear.WithNJobs(c.NJobs),
		linear.WithMaxGradNorm(c.MaxGradNorm),
	}, nil
}
