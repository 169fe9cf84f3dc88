// Package worker runs the nonce-searching goroutines that drive a RandomX
// VM pool against the current Stratum job (spec.md §4.5).
package worker

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/opd-ai/go-randomx"
	"github.com/opd-ai/go-randomx/internal/stratum"
)

// AutotuneConfig configures the bandit-driven thread-count tuner.
//
// Sample configuration:
//
//	[worker]
//	threads = 2
//	autotune = { interval_minutes = 15, state_file = "bandit.log" }
//
// Setting `autotune = false` disables tuning entirely.
type AutotuneConfig struct {
	Enabled         bool
	IntervalMinutes uint64
	StateFile       string
}

// UnmarshalTOML implements go-toml/v2's Unmarshaler interface so `autotune`
// can be either the bare boolean `false` or a table of tuning settings.
func (a *AutotuneConfig) UnmarshalTOML(value interface{}) error {
	switch v := value.(type) {
	case bool:
		a.Enabled = v
		if v {
			a.IntervalMinutes = 15
			a.StateFile = "bandit.log"
		}
		return nil
	case map[string]interface{}:
		a.Enabled = true
		a.IntervalMinutes = 15
		a.StateFile = "bandit.log"
		if iv, ok := toUint64(v["interval_minutes"]); ok {
			a.IntervalMinutes = iv
		}
		if sf, ok := v["state_file"].(string); ok {
			a.StateFile = sf
		}
		return nil
	default:
		return fmt.Errorf("worker: autotune must be `false` or a table, got %T", value)
	}
}

func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case int64:
		return uint64(n), true
	case uint64:
		return n, true
	case int:
		return uint64(n), true
	default:
		return 0, false
	}
}

// Config is the `[worker]` TOML section: how many threads to mine with, and
// whether/how to auto-tune that count over time.
type Config struct {
	Threads  uint64         `toml:"threads"`
	Autotune AutotuneConfig `toml:"autotune"`
}

// DefaultConfig returns one thread per logical CPU with autotuning enabled.
func DefaultConfig() Config {
	return Config{
		Threads:  uint64(runtime.NumCPU()),
		Autotune: AutotuneConfig{Enabled: true, IntervalMinutes: 15, StateFile: "bandit.log"},
	}
}

// JobData is everything a worker goroutine needs to search a nonce range
// for a single Stratum job.
type JobData struct {
	MinerID  string
	SeedHash string
	Memory   *randomx.VmMemory
	Blob     string
	JobID    string
	Target   string
	Nonce    *atomic.Uint32
}

type cmdKind int

const (
	cmdNewJob cmdKind = iota
	cmdStop
)

type workerCmd struct {
	kind cmdKind
	job  JobData
}

// Pool is a fixed set of worker goroutines, each independently searching the
// shared nonce counter of the current job.
type Pool struct {
	threadChan []chan workerCmd
	wg         sync.WaitGroup
	allocator  *randomx.VmMemoryAllocator
}

// metricResolution caps how often a worker reports its hash count, so the
// control loop isn't flooded with one message per hash.
const metricResolution = 100

// NewPool starts numThreads worker goroutines sharing shareCh (found
// shares) and metricCh (periodic hash-count samples), all reading through
// allocator's live VmMemory snapshot.
func NewPool(numThreads uint64, shareCh chan<- stratum.Share, metricCh chan<- uint64, allocator *randomx.VmMemoryAllocator) *Pool {
	p := &Pool{
		threadChan: make([]chan workerCmd, numThreads),
		allocator:  allocator,
	}
	for i := range p.threadChan {
		ch := make(chan workerCmd, 1)
		p.threadChan[i] = ch
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			work(ch, shareCh, metricCh)
		}()
	}
	return p
}

// JobChange reallocates the dataset for seedHash (a no-op if it didn't
// actually change) and broadcasts the new job to every worker with a fresh
// nonce counter.
func (p *Pool) JobChange(minerID, seedHash, blob, jobID, target string) error {
	seed, err := hex.DecodeString(seedHash)
	if err != nil {
		return fmt.Errorf("worker: decoding seed hash %q: %w", seedHash, err)
	}
	if err := p.allocator.Reallocate(seed); err != nil {
		return fmt.Errorf("worker: reallocating dataset: %w", err)
	}

	job := JobData{
		MinerID:  minerID,
		SeedHash: seedHash,
		Memory:   p.allocator.Current(),
		Blob:     blob,
		JobID:    jobID,
		Target:   target,
		Nonce:    &atomic.Uint32{},
	}

	for _, ch := range p.threadChan {
		ch <- workerCmd{kind: cmdNewJob, job: job}
	}
	return nil
}

// Stop asks every worker goroutine to terminate. Call Join afterward to
// wait for them.
func (p *Pool) Stop() {
	for _, ch := range p.threadChan {
		ch <- workerCmd{kind: cmdStop}
	}
}

// Join blocks until every worker goroutine has returned.
func (p *Pool) Join() {
	p.wg.Wait()
}

type exitKind int

const (
	exitExhausted exitKind = iota
	exitNewJob
	exitStopped
)

type exitReason struct {
	kind exitKind
	job  JobData
}

func work(cmds chan workerCmd, shareCh chan<- stratum.Share, metricCh chan<- uint64) {
	first, ok := <-cmds
	if !ok || first.kind == cmdStop {
		return
	}
	job := first.job

	for {
		exit := workJob(job, cmds, shareCh, metricCh)
		switch exit.kind {
		case exitExhausted:
			next, ok := <-cmds
			if !ok || next.kind == cmdStop {
				return
			}
			job = next.job
		case exitNewJob:
			job = exit.job
		case exitStopped:
			return
		}
	}
}

// nonceMax bounds the per-job nonce space; once exhausted the worker idles
// (blocking) until a new job arrives, mirroring the reference client's
// "nonce space exhausted" behavior.
const nonceMax = 0xFFFF

func workJob(job JobData, cmds chan workerCmd, shareCh chan<- stratum.Share, metricCh chan<- uint64) exitReason {
	target := jobTargetValue(job.Target)

	vm := randomx.NewVM(job.Memory)
	defer vm.Close()

	var hashCount uint64
	nonce := job.Nonce.Add(1) - 1

	for nonce <= nonceMax {
		nonceHex := fmt.Sprintf("%08x", nonce)
		hashIn := withNonce(job.Blob, nonceHex)

		if bytesIn, err := hex.DecodeString(hashIn); err == nil {
			hash := vm.CalculateHash(bytesIn)
			hashHex := hex.EncodeToString(hash[:])

			if hashTargetValue(hashHex) < target {
				select {
				case shareCh <- stratum.Share{
					MinerID: job.MinerID,
					JobID:   job.JobID,
					Nonce:   nonceHex,
					Hash:    hashHex,
				}:
				default:
				}
			}
		}

		hashCount++
		if metricResolution > 0 && hashCount%metricResolution == 0 {
			select {
			case metricCh <- hashCount:
			default:
			}
			hashCount = 0
		}

		select {
		case cmd := <-cmds:
			switch cmd.kind {
			case cmdNewJob:
				select {
				case metricCh <- hashCount:
				default:
				}
				return exitReason{kind: exitNewJob, job: cmd.job}
			case cmdStop:
				return exitReason{kind: exitStopped}
			}
		default:
		}

		nonce = job.Nonce.Add(1) - 1
	}

	return exitReason{kind: exitExhausted}
}

// withNonce splices an 8-hex-character nonce into a block template blob at
// the byte offset Monero reserves for it (hex chars [78:86], i.e. bytes
// [39:43]).
func withNonce(blob, nonceHex string) string {
	return blob[:78] + nonceHex + blob[86:]
}

// jobTargetValue converts a job's little-endian 32-bit hex target into the
// 64-bit value a hash must fall under to count as a share.
func jobTargetValue(hexStr string) uint64 {
	t := hex2Uint32LE(hexStr)
	if t == 0 {
		return 0
	}
	return ^uint64(0) / (uint64(^uint32(0)) / uint64(t))
}

// hashTargetValue reads the trailing 8 bytes of a hash (big-endian hex, in
// little-endian byte order) as the 64-bit value compared against the job
// target.
func hashTargetValue(hexStr string) uint64 {
	return hex2Uint64LE(hexStr[48:])
}

func hex2Uint32LE(s string) uint32 {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b[:4])
}

func hex2Uint64LE(s string) uint64 {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(b[:8])
}
