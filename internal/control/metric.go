package control

import "sync/atomic"

// metricAggregator drains per-worker hash-count samples into a running
// total, reset at the start of every bandit evaluation interval.
type metricAggregator struct {
	total atomic.Uint64
	stop  chan struct{}
	done  chan struct{}
}

func startMetricAggregator(metricCh <-chan uint64) *metricAggregator {
	m := &metricAggregator{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(m.done)
		for {
			select {
			case n := <-metricCh:
				m.total.Add(n)
			case <-m.stop:
				return
			}
		}
	}()
	return m
}

func (m *metricAggregator) stopAndWait() uint64 {
	close(m.stop)
	<-m.done
	return m.total.Load()
}
