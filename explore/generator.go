package explore

import (
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edgedlt/faultnet"
)

// GeneratorConfig configures scenario generation.
type GeneratorConfig struct {
	// MinReplicas is the minimum cluster size
	MinReplicas int `yaml:"min_replicas"`

	// MaxReplicas is the maximum cluster size
	MaxReplicas int `yaml:"max_replicas"`

	// MinRounds is the minimum number of workload rounds
	MinRounds int `yaml:"min_rounds"`

	// MaxRounds is the maximum number of workload rounds
	MaxRounds int `yaml:"max_rounds"`

	// MaxWrites is the largest write batch
	MaxWrites int `yaml:"max_writes"`

	// MaxKeys is the largest key space
	MaxKeys int `yaml:"max_keys"`

	// PartitionProbability is the chance a scenario gets a partition
	PartitionProbability float64 `yaml:"partition_probability"`

	// CrashProbability is the chance a scenario gets a crash fault
	CrashProbability float64 `yaml:"crash_probability"`

	// Seed for reproducible generation (0 = random)
	Seed uint64 `yaml:"seed"`
}

// DefaultGeneratorConfig returns the default generator configuration.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		MinReplicas:          2,
		MaxReplicas:          6,
		MinRounds:            5,
		MaxRounds:            40,
		MaxWrites:            3,
		MaxKeys:              4,
		PartitionProbability: 0.2,
		CrashProbability:     0.2,
		Seed:                 0,
	}
}

// Validate checks the configuration bounds.
func (c GeneratorConfig) Validate() error {
	if c.MinReplicas < 2 || c.MaxReplicas < c.MinReplicas {
		return fmt.Errorf("replica bounds must satisfy 2 <= min <= max, got %d..%d", c.MinReplicas, c.MaxReplicas)
	}
	if c.MinRounds < 1 || c.MaxRounds < c.MinRounds {
		return fmt.Errorf("round bounds must satisfy 1 <= min <= max, got %d..%d", c.MinRounds, c.MaxRounds)
	}
	if c.MaxWrites < 1 {
		return fmt.Errorf("max writes must be >= 1, got %d", c.MaxWrites)
	}
	if c.MaxKeys < 1 {
		return fmt.Errorf("max keys must be >= 1, got %d", c.MaxKeys)
	}
	if c.PartitionProbability < 0 || c.PartitionProbability > 1 {
		return fmt.Errorf("partition probability must be in [0, 1], got %v", c.PartitionProbability)
	}
	if c.CrashProbability < 0 || c.CrashProbability > 1 {
		return fmt.Errorf("crash probability must be in [0, 1], got %v", c.CrashProbability)
	}
	return nil
}

// LoadGeneratorConfig reads a YAML file over the defaults. Fields missing
// from the file keep their default values.
func LoadGeneratorConfig(path string) (GeneratorConfig, error) {
	cfg := DefaultGeneratorConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read generator config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse generator config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid generator config %s: %w", path, err)
	}
	return cfg, nil
}

// Generator generates random test scenarios.
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a new scenario generator.
func NewGenerator(config GeneratorConfig) *Generator {
	seed := config.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &Generator{
		config: config,
		rng:    faultnet.NewSeededSource(seed),
	}
}

// between draws uniformly from [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

// Generate generates a single random scenario.
func (g *Generator) Generate() Scenario {
	replicas := g.between(g.config.MinReplicas, g.config.MaxReplicas)
	rounds := g.between(g.config.MinRounds, g.config.MaxRounds)

	scenario := Scenario{
		Replicas: replicas,
		Rounds:   rounds,
		Writes:   g.between(1, g.config.MaxWrites),
		Keys:     g.between(1, g.config.MaxKeys),
		Seed:     g.rng.Uint64(),
	}

	if g.rng.Float64() < g.config.PartitionProbability {
		scenario.Partitions = g.generatePartitions(replicas)
		scenario.PartitionRounds = g.between(0, rounds)
	}

	if g.rng.Float64() < g.config.CrashProbability {
		crash := CrashFault{
			Replica: g.rng.IntN(replicas),
			At:      g.rng.IntN(rounds),
		}
		// Half the crashes recover before the workload ends
		if crash.At+1 < rounds && g.rng.IntN(2) == 0 {
			crash.RecoverAt = g.between(crash.At+1, rounds)
		}
		scenario.Crashes = []CrashFault{crash}
	}

	return scenario
}

// GenerateN generates n random scenarios.
func (g *Generator) GenerateN(n int) []Scenario {
	scenarios := make([]Scenario, n)
	for i := range n {
		scenarios[i] = g.Generate()
	}
	return scenarios
}

// generatePartitions splits the replicas into two groups at a random point.
func (g *Generator) generatePartitions(replicas int) []Partition {
	splitPoint := 1 + g.rng.IntN(replicas-1)

	partition1 := make([]int, splitPoint)
	partition2 := make([]int, replicas-splitPoint)

	for i := range splitPoint {
		partition1[i] = i
	}

	for i := range replicas - splitPoint {
		partition2[i] = splitPoint + i
	}

	return []Partition{
		{Nodes: partition1},
		{Nodes: partition2},
	}
}

// GenerateBasicScenarios generates a set of basic scenarios.
func GenerateBasicScenarios() []Scenario {
	return []Scenario{
		// Baseline: 3 replicas, no faults
		{Replicas: 3, Rounds: 20, Writes: 1, Keys: 2, Seed: 1},

		// Batched writes on one hot key
		{Replicas: 3, Rounds: 20, Writes: 4, Keys: 1, Seed: 2},

		// Network partition: [0,1] and [2,3] for half the run
		{
			Replicas: 4,
			Rounds:   20,
			Writes:   2,
			Keys:     3,
			Partitions: []Partition{
				{Nodes: []int{0, 1}},
				{Nodes: []int{2, 3}},
			},
			PartitionRounds: 10,
			Seed:            3,
		},

		// Crash and recovery mid-run
		{
			Replicas: 4,
			Rounds:   20,
			Writes:   1,
			Keys:     2,
			Crashes:  []CrashFault{{Replica: 2, At: 5, RecoverAt: 15}},
			Seed:     4,
		},
	}
}

// GenerateComprehensive generates a comprehensive scenario suite.
// Returns a mix of edge cases and random scenarios.
func GenerateComprehensive(randomCount int, seed uint64) []Scenario {
	scenarios := []Scenario{}

	scenarios = append(scenarios, GenerateBasicScenarios()...)

	scenarios = append(scenarios, []Scenario{
		// Minimum viable: 2 replicas, one round
		{Replicas: 2, Rounds: 1, Writes: 1, Keys: 1, Seed: 5},

		// Partition for the whole workload
		{
			Replicas:   5,
			Rounds:     15,
			Writes:     2,
			Keys:       2,
			Partitions: []Partition{{Nodes: []int{0}}, {Nodes: []int{1, 2, 3, 4}}},
			Seed:       6,
		},

		// Crash that never recovers before healing
		{
			Replicas: 3,
			Rounds:   10,
			Writes:   3,
			Keys:     1,
			Crashes:  []CrashFault{{Replica: 0, At: 0}},
			Seed:     7,
		},

		// Larger cluster
		{Replicas: 9, Rounds: 50, Writes: 2, Keys: 5, Seed: 8},
	}...)

	config := DefaultGeneratorConfig()
	config.Seed = seed
	gen := NewGenerator(config)
	scenarios = append(scenarios, gen.GenerateN(randomCount)...)

	return scenarios
}
