package control

import (
	"math/rand"
	"os"
	"runtime"

	json "github.com/goccy/go-json"
)

// arm is one candidate thread count, with running epsilon-greedy statistics.
type arm struct {
	Threads    uint64  `json:"threads"`
	Pulls      uint64  `json:"pulls"`
	MeanReward float64 `json:"mean_reward"`
}

// banditState is the JSON persisted to a worker.AutotuneConfig's StateFile.
type banditState struct {
	Arms         []arm `json:"arms"`
	CurrentIndex int   `json:"current_index"`
}

// Bandit is a small epsilon-greedy multi-armed bandit over a fixed set of
// thread-count choices, used to autotune worker pool size against observed
// hashrate. Any exploration strategy satisfies the tuning requirement; this
// one is a direct, fully-specified algorithm with no external dependency.
type Bandit struct {
	epsilon   float64
	stateFile string
	state     banditState
	rng       *rand.Rand
}

// NewBandit builds the arm set [threads/2, threads, threads*2] (clamped to
// [1, NumCPU]) and loads any persisted state from stateFile, if present.
func NewBandit(threads uint64, stateFile string) *Bandit {
	maxCPU := uint64(runtime.NumCPU())
	candidates := []uint64{threads / 2, threads, threads * 2}

	seen := make(map[uint64]bool)
	arms := make([]arm, 0, len(candidates))
	for _, c := range candidates {
		if c < 1 {
			c = 1
		}
		if c > maxCPU {
			c = maxCPU
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		arms = append(arms, arm{Threads: c})
	}

	b := &Bandit{
		epsilon:   0.1,
		stateFile: stateFile,
		state:     banditState{Arms: arms},
		rng:       rand.New(rand.NewSource(1)),
	}
	b.load()
	return b
}

func (b *Bandit) load() {
	if b.stateFile == "" {
		return
	}
	raw, err := os.ReadFile(b.stateFile)
	if err != nil {
		return
	}
	var persisted banditState
	if err := json.Unmarshal(raw, &persisted); err != nil {
		return
	}
	if len(persisted.Arms) == len(b.state.Arms) {
		b.state = persisted
	}
}

func (b *Bandit) save() {
	if b.stateFile == "" {
		return
	}
	raw, err := json.Marshal(b.state)
	if err != nil {
		return
	}
	_ = os.WriteFile(b.stateFile, raw, 0o644)
}

// DrawArm picks the current best-known arm with probability 1-epsilon, and
// a uniformly random arm otherwise, remembering the choice for Reward.
func (b *Bandit) DrawArm() uint64 {
	if len(b.state.Arms) == 0 {
		return uint64(runtime.NumCPU())
	}

	if b.rng.Float64() < b.epsilon {
		b.state.CurrentIndex = b.rng.Intn(len(b.state.Arms))
	} else {
		best := 0
		for i, a := range b.state.Arms {
			if a.MeanReward > b.state.Arms[best].MeanReward {
				best = i
			}
		}
		b.state.CurrentIndex = best
	}
	return b.state.Arms[b.state.CurrentIndex].Threads
}

// Reward records an observed hashrate (kH/s) for the arm last returned by
// DrawArm, updates its running mean, and persists state.
func (b *Bandit) Reward(hashrateKHs float64) {
	if len(b.state.Arms) == 0 {
		return
	}
	a := &b.state.Arms[b.state.CurrentIndex]
	a.Pulls++
	a.MeanReward += (hashrateKHs - a.MeanReward) / float64(a.Pulls)
	b.save()
}
