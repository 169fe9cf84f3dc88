package control

import (
	"math"
	"time"

	"github.com/opd-ai/go-randomx/internal/worker"
)

// TickAction tells the control loop what the just-fired timer tick means.
type TickAction int

const (
	// ArmChange asks the bandit to draw a new thread-count arm.
	ArmChange TickAction = iota
	// DonationHashing asks the control loop to mine on the donation pool
	// for the following interval instead.
	DonationHashing
)

// StartTimer reproduces the reference miner's clock: every
// autotuneCfg.IntervalMinutes minutes it fires ArmChange, except that every
// few ticks (enough to add up to roughly donationCfg.Percentage of total
// wall time) it fires DonationHashing instead, whose own duration is
// ceil(percentage * 60) seconds rather than the regular interval.
//
// If autotuning is disabled the channel still ticks (so donation mining
// keeps working), but the control loop simply never draws a new arm on
// ArmChange.
func StartTimer(autotuneCfg worker.AutotuneConfig, donationCfg DonationConfig) <-chan TickAction {
	regularInterval := time.Duration(autotuneCfg.IntervalMinutes) * time.Minute
	if regularInterval <= 0 {
		regularInterval = 15 * time.Minute
	}

	donationMod := donationIntervalMod(donationCfg.Percentage, regularInterval)

	out := make(chan TickAction)
	go func() {
		interval := regularInterval
		armChanges := uint64(1)
		for {
			time.Sleep(interval)

			action := ArmChange
			if donationMod > 0 && armChanges%donationMod == 0 {
				action = DonationHashing
			}

			if action == DonationHashing {
				interval = donationDuration(donationCfg.Percentage)
			} else {
				interval = regularInterval
			}

			out <- action
			armChanges++
		}
	}()
	return out
}

// donationIntervalMod picks how many regular ticks occur between donation
// ticks so that, averaged over time, donation mining occupies roughly
// percentage% of the wall clock. A percentage of zero disables donation
// ticks entirely (returns 0).
func donationIntervalMod(percentage float64, regularInterval time.Duration) uint64 {
	if percentage <= 0 {
		return 0
	}
	donationSeconds := donationDuration(percentage).Seconds()
	regularSeconds := regularInterval.Seconds()
	if regularSeconds <= 0 {
		return 0
	}
	// Solve for n such that donationSeconds / (n*regularSeconds + donationSeconds) == percentage/100.
	n := (donationSeconds * (100 - percentage)) / (percentage * regularSeconds)
	if n < 1 {
		n = 1
	}
	return uint64(math.Ceil(n))
}

func donationDuration(percentage float64) time.Duration {
	return time.Duration(math.Ceil(percentage*60)) * time.Second
}
