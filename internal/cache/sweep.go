package cache

import "github.com/benbjohnson/clock"

// StartSweeping starts the background sweep loop. New calls it; calling it
// again while the loop runs does nothing.
func (m *Manager[V]) StartSweeping() {
	m.sweepMu.Lock()
	defer m.sweepMu.Unlock()
	if m.stopSweep != nil {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	m.stopSweep, m.sweepDone = stop, done

	ticker := m.clock.Ticker(m.sweepInterval)
	go m.sweepLoop(ticker, stop, done)
}

// StopSweeping stops the sweep loop and waits for it to exit. Safe to call
// multiple times.
func (m *Manager[V]) StopSweeping() {
	m.sweepMu.Lock()
	stop, done := m.stopSweep, m.sweepDone
	m.stopSweep, m.sweepDone = nil, nil
	m.sweepMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Sweeping reports whether the sweep loop is running.
func (m *Manager[V]) Sweeping() bool {
	m.sweepMu.Lock()
	defer m.sweepMu.Unlock()
	return m.stopSweep != nil
}

// Close stops sweeping and clears the store. The Manager stays usable
// afterwards, without background sweeps.
func (m *Manager[V]) Close() error {
	m.StopSweeping()
	m.Clear()
	return nil
}

func (m *Manager[V]) sweepLoop(ticker *clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
