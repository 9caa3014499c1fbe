package explore

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/edgedlt/faultnet"
	"github.com/edgedlt/faultnet/internal/lww"
)

// DefaultMaxDrainSweeps bounds the final drain. Each sweep receives once on
// every replica.
const DefaultMaxDrainSweeps = 10_000

// workloadStream separates the workload's random stream from the network's
// when both derive from the scenario seed.
const workloadStream = 0x9e3779b97f4a7c15

// Executor executes a scenario and detects violations.
type Executor struct {
	scenario Scenario
	logger   *zap.Logger

	network  *faultnet.Network[int, Message]
	replicas []*lww.Replica
	detector *Detector
	rng      *rand.Rand

	// seqs is each sender's broadcast counter
	seqs   map[int]uint64
	sent   []Message
	writes int

	maxDrainSweeps int
}

// NewExecutor creates a new scenario executor.
func NewExecutor(scenario Scenario, logger *zap.Logger) (*Executor, error) {
	if err := ValidateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	network, err := faultnet.New[int, Message](
		faultnet.NewSeededSource(scenario.Seed),
		faultnet.WithLogger[Message](logger.Named("network")),
	)
	if err != nil {
		return nil, err
	}

	replicas := make([]*lww.Replica, scenario.Replicas)
	for i := range scenario.Replicas {
		replicas[i] = lww.New(i)
		network.AddPeer(i)
	}

	return &Executor{
		scenario:       scenario,
		logger:         logger,
		network:        network,
		replicas:       replicas,
		detector:       NewDetector(),
		rng:            rand.New(rand.NewPCG(scenario.Seed, workloadStream)), //nolint:gosec // not used for security
		seqs:           make(map[int]uint64),
		maxDrainSweeps: DefaultMaxDrainSweeps,
	}, nil
}

// Execute runs the scenario and returns the result. It only fails if ctx is
// cancelled; violations are reported in the Result.
func (e *Executor) Execute(ctx context.Context) (Result, error) {
	for round := range e.scenario.Rounds {
		if err := ctx.Err(); err != nil {
			return Result{Scenario: e.scenario}, err
		}

		e.applyFaults(round)
		e.write(round)
		e.deliver(round, e.replicas[e.rng.IntN(len(e.replicas))])
	}

	e.heal()
	e.resync()

	sweeps := 0
	for !e.network.IsIdle() {
		if sweeps >= e.maxDrainSweeps {
			e.detector.RecordStuck(sweeps)
			break
		}
		if err := ctx.Err(); err != nil {
			return Result{Scenario: e.scenario}, err
		}
		for _, r := range e.replicas {
			e.deliver(-1, r)
		}
		sweeps++
	}

	e.detector.CheckHistory(e.sent, e.network.History())
	e.detector.CheckConvergence(e.replicas, e.writes)

	violations := e.detector.GetViolations()
	result := Result{
		Scenario:    e.scenario,
		Success:     len(violations) == 0,
		Violations:  violations,
		Writes:      e.writes,
		Stats:       e.network.Stats(),
		DrainRounds: sweeps,
	}

	if result.Success {
		e.logger.Debug("scenario passed",
			zap.Stringer("scenario", e.scenario),
			zap.Int("drain_sweeps", sweeps))
	} else {
		e.logger.Warn("scenario failed",
			zap.Stringer("scenario", e.scenario),
			zap.Int("violations", len(violations)),
			zap.String("first", violations[0].Description))
	}

	return result, nil
}

// applyFaults starts and ends the partitions and crashes due at round.
func (e *Executor) applyFaults(round int) {
	if round == 0 && len(e.scenario.Partitions) > 0 {
		groups := make([][]int, len(e.scenario.Partitions))
		for i, p := range e.scenario.Partitions {
			groups[i] = p.Nodes
		}
		e.network.SetPartitions(groups...)
	}
	if e.scenario.PartitionRounds > 0 && round == e.scenario.PartitionRounds {
		e.network.ClearPartitions()
	}

	for _, c := range e.scenario.Crashes {
		if c.RecoverAt == round && e.network.IsCrashed(c.Replica) {
			e.network.Recover(c.Replica)
		}
	}
	for _, c := range e.scenario.Crashes {
		if c.At == round && !e.network.IsCrashed(c.Replica) {
			e.network.Crash(c.Replica)
		}
	}
}

// write has a random live replica issue a batch of writes and broadcast it.
func (e *Executor) write(round int) {
	live := make([]*lww.Replica, 0, len(e.replicas))
	for _, r := range e.replicas {
		if !e.network.IsCrashed(r.ID()) {
			live = append(live, r)
		}
	}
	if len(live) == 0 {
		return
	}

	w := live[e.rng.IntN(len(live))]
	batch := make([]Message, e.scenario.Writes)
	for i := range batch {
		key := fmt.Sprintf("k%d", e.rng.IntN(e.scenario.Keys))
		op := w.Set(key, fmt.Sprintf("v%d.%d.%d", round, w.ID(), i))
		batch[i] = e.wrap(w.ID(), op)
		e.writes++
	}
	e.broadcast(w.ID(), batch)
}

// deliver lets r receive whatever the network hands it and applies it.
func (e *Executor) deliver(round int, r *lww.Replica) {
	batch := e.network.Receive(r.ID())
	e.detector.RecordDelivery(round, r.ID(), batch)
	for _, msg := range batch {
		r.Apply(msg.Op)
	}
}

// heal removes every partition and recovers every crashed replica.
func (e *Executor) heal() {
	e.network.ClearPartitions()
	for _, r := range e.replicas {
		if e.network.IsCrashed(r.ID()) {
			e.network.Recover(r.ID())
		}
	}
}

// resync has every replica rebroadcast its full operation log so writes
// lost to partitions and crashes reach everyone.
func (e *Executor) resync() {
	for _, r := range e.replicas {
		ops := r.Ops()
		batch := make([]Message, len(ops))
		for i, op := range ops {
			batch[i] = e.wrap(r.ID(), op)
		}
		e.broadcast(r.ID(), batch)
	}
}

func (e *Executor) wrap(sender int, op lww.Op) Message {
	e.seqs[sender]++
	return Message{Sender: sender, Seq: e.seqs[sender], Op: op}
}

func (e *Executor) broadcast(sender int, batch []Message) {
	e.network.Broadcast(sender, batch...)
	e.sent = append(e.sent, batch...)
}
