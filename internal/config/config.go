// Package config читает YAML-конфигурацию запуска и переводит её в
// конфигурации движков.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"flexShop/internal/ga"
	"flexShop/internal/jobshop"
	"flexShop/internal/logging"
	"flexShop/internal/opt"
	"flexShop/internal/sa"
	"flexShop/internal/search"
	"flexShop/internal/ts"
)

type Config struct {
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Seed     int64  `yaml:"seed"`

	Workers       int    `yaml:"workers" validate:"gte=0"`
	Parallelism   int    `yaml:"parallelism" validate:"gte=0"`
	DistinctSeeds bool   `yaml:"distinct_seeds"`
	Heuristic     string `yaml:"heuristic" validate:"omitempty,oneof=random spt lpt"`
	GA            bool   `yaml:"ga"`

	// MetricsFile - куда выгрузить метрики в текстовом формате Prometheus.
	MetricsFile string `yaml:"metrics_file"`

	Store      Store      `yaml:"store"`
	TabuSearch TabuSearch `yaml:"tabu_search"`
	Genetic    Genetic    `yaml:"genetic"`
	Annealing  Annealing  `yaml:"annealing"`
	Bench      Bench      `yaml:"bench"`
}

type Store struct {
	Kind  string `yaml:"kind" validate:"omitempty,oneof=none file mysql"`
	Dir   string `yaml:"dir" validate:"required_if=Kind file"`
	DSN   string `yaml:"dsn" validate:"required_if=Kind mysql"`
	Table string `yaml:"table"`
}

type TabuSearch struct {
	opt.Budget `yaml:",inline"`

	TabuSize int `yaml:"tabu_size" validate:"gte=0"`
	// NeighborhoodSize - указатель, так как 0 допустим и отличается от "не задано".
	NeighborhoodSize  *int          `yaml:"neighborhood_size" validate:"omitempty,gte=0"`
	NeighborhoodWait  time.Duration `yaml:"neighborhood_wait" validate:"gte=0"`
	ProbChangeMachine float64       `yaml:"prob_change_machine" validate:"gte=0,lte=1"`
	ResetThreshold    int           `yaml:"reset_threshold" validate:"gte=0"`
	KeepBest          int           `yaml:"keep_best" validate:"gte=0"`
}

type Genetic struct {
	opt.Budget `yaml:",inline"`

	Population          int     `yaml:"population" validate:"gte=0"`
	Elite               int     `yaml:"elite" validate:"gte=0"`
	Selection           string  `yaml:"selection" validate:"omitempty,oneof=tournament fitness random"`
	TournamentSize      int     `yaml:"tournament_size" validate:"gte=0"`
	MutationRate        float64 `yaml:"mutation_rate" validate:"gte=0,lte=1"`
	MaxCrossoverRetries int     `yaml:"max_crossover_retries" validate:"gte=0"`
}

type Annealing struct {
	opt.Budget `yaml:",inline"`

	InitialTemp       float64 `yaml:"initial_temp" validate:"gte=0"`
	FinalTemp         float64 `yaml:"final_temp" validate:"gte=0"`
	Alpha             float64 `yaml:"alpha" validate:"gte=0,lt=1"`
	ProbChangeMachine float64 `yaml:"prob_change_machine" validate:"gte=0,lte=1"`
}

type Bench struct {
	Instances  []string `yaml:"instances" validate:"dive,required"`
	Algorithms []string `yaml:"algorithms" validate:"dive,oneof=ts ga sa search"`
	Runs       int      `yaml:"runs" validate:"gte=0"`
	Output     string   `yaml:"output"`
	TraceDir   string   `yaml:"trace_dir"`
}

// Reader читает конфигурацию из YAML-файла.
type Reader struct {
	logger   *zap.Logger
	validate *validator.Validate
}

func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logging.OrNop(logger), validate: validator.New()}
}

// Read читает файл, заполняет значения по умолчанию и проверяет результат.
// Пустой путь даёт конфигурацию по умолчанию.
func (r *Reader) Read(path string) (*Config, error) {
	var config Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	// Устанавливаем значения по умолчанию
	setDefaults(&config)

	if err := r.Validate(&config); err != nil {
		return nil, err
	}
	r.logger.Debug("config loaded",
		zap.String("path", path),
		zap.Int("workers", config.Workers),
		zap.Bool("ga", config.GA),
		zap.Int64("seed", config.Seed),
	)
	return &config, nil
}

// Validate проверяет теги полей, затем собранные конфигурации движков.
func (r *Reader) Validate(c *Config) error {
	if err := r.validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("поле %s не прошло проверку %q (получено %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	if err := c.Search().Validate(); err != nil {
		return err
	}
	if err := c.SA().Validate(); err != nil {
		return fmt.Errorf("annealing: %w", err)
	}
	return nil
}

// Default - конфигурация без файла.
func Default() *Config {
	var c Config
	setDefaults(&c)
	return &c
}

func setDefaults(config *Config) {
	sd := search.DefaultConfig()
	if config.Seed == 0 {
		config.Seed = sd.Seed
	}
	if config.Workers == 0 && !config.GA {
		config.Workers = max(1, min(sd.Workers, runtime.NumCPU()))
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.Heuristic == "" {
		config.Heuristic = string(sd.Heuristic)
	}
	if config.Store.Kind == "" {
		config.Store.Kind = "none"
	}
	if config.Store.Table == "" {
		config.Store.Table = "best_solutions"
	}

	t := &config.TabuSearch
	td := ts.DefaultConfig()
	if t.Iterations == 0 && t.Duration == 0 {
		t.Budget = td.Budget
	}
	if t.TabuSize == 0 {
		t.TabuSize = td.TabuSize
	}
	if t.NeighborhoodSize == nil {
		n := td.NeighborhoodSize
		t.NeighborhoodSize = &n
	}
	if t.NeighborhoodWait == 0 {
		t.NeighborhoodWait = td.NeighborhoodWait
	}
	if t.ProbChangeMachine == 0 {
		t.ProbChangeMachine = td.ProbChangeMachine
	}
	if t.ResetThreshold == 0 {
		t.ResetThreshold = td.ResetThreshold
	}
	if t.KeepBest == 0 {
		t.KeepBest = td.KeepBest
	}

	g := &config.Genetic
	gd := ga.DefaultConfig()
	if g.Iterations == 0 && g.Duration == 0 {
		g.Budget = gd.Budget
	}
	if g.Population == 0 {
		g.Population = gd.Population
	}
	if g.Elite == 0 {
		g.Elite = gd.Elite
	}
	if g.Selection == "" {
		g.Selection = string(gd.Selection)
	}
	if g.TournamentSize == 0 {
		g.TournamentSize = gd.TournamentSize
	}
	if g.MutationRate == 0 {
		g.MutationRate = gd.MutationRate
	}
	if g.MaxCrossoverRetries == 0 {
		g.MaxCrossoverRetries = gd.MaxCrossoverRetries
	}

	a := &config.Annealing
	ad := sa.DefaultConfig()
	if a.Iterations == 0 && a.Duration == 0 {
		a.Budget = ad.Budget
	}
	if a.InitialTemp == 0 {
		a.InitialTemp = ad.InitialTemp
	}
	if a.FinalTemp == 0 {
		a.FinalTemp = ad.FinalTemp
	}
	if a.Alpha == 0 {
		a.Alpha = ad.Alpha
	}
	if a.ProbChangeMachine == 0 {
		a.ProbChangeMachine = ad.ProbChangeMachine
	}

	b := &config.Bench
	if len(b.Algorithms) == 0 {
		b.Algorithms = []string{"ts", "ga"}
	}
	if b.Runs == 0 {
		b.Runs = 5
	}
	if b.Output == "" {
		b.Output = "results/bench.csv"
	}
}

func (c *Config) TS() ts.Config {
	t := c.TabuSearch
	cfg := ts.Config{
		Budget:            t.Budget,
		TabuSize:          t.TabuSize,
		NeighborhoodWait:  t.NeighborhoodWait,
		ProbChangeMachine: t.ProbChangeMachine,
		ResetThreshold:    t.ResetThreshold,
		KeepBest:          t.KeepBest,
	}
	if t.NeighborhoodSize != nil {
		cfg.NeighborhoodSize = *t.NeighborhoodSize
	}
	return cfg
}

func (c *Config) GAConfig() ga.Config {
	g := c.Genetic
	return ga.Config{
		Population:          g.Population,
		Budget:              g.Budget,
		Elite:               g.Elite,
		Selection:           ga.Selection(g.Selection),
		TournamentSize:      g.TournamentSize,
		MutationRate:        g.MutationRate,
		MaxCrossoverRetries: g.MaxCrossoverRetries,
	}
}

func (c *Config) SA() sa.Config {
	a := c.Annealing
	return sa.Config{
		Budget:            a.Budget,
		InitialTemp:       a.InitialTemp,
		FinalTemp:         a.FinalTemp,
		Alpha:             a.Alpha,
		ProbChangeMachine: a.ProbChangeMachine,
	}
}

func (c *Config) Search() search.Config {
	return search.Config{
		Workers:       c.Workers,
		Parallelism:   c.Parallelism,
		DistinctSeeds: c.DistinctSeeds,
		Heuristic:     jobshop.Heuristic(c.Heuristic),
		RunGA:         c.GA,
		Seed:          c.Seed,
		TS:            c.TS(),
		GA:            c.GAConfig(),
	}
}
