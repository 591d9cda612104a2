package monitor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Start launches the background collection loop: every interval, it fans
// out one goroutine per enabled registered process (bounded by errgroup,
// first error logged rather than aborting the round — one process's
// collection failure must not skip the rest) to refresh metrics via the
// configured CollectFunc, then snapshots every process into its ring and
// the global ring.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collectRound(ctx)
			}
		}
	}()
}

// Stop halts the collection loop and waits for the in-flight round (if
// any) to finish.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) collectRound(ctx context.Context) {
	m.mu.RLock()
	states := make([]*processState, 0, len(m.processes))
	for _, ps := range m.processes {
		states = append(states, ps)
	}
	m.mu.RUnlock()

	if m.collect != nil {
		g, gctx := errgroup.WithContext(ctx)
		for _, ps := range states {
			ps := ps
			ps.mu.RLock()
			enabled := ps.enabled
			pid := ps.ident.PID
			ps.mu.RUnlock()
			if !enabled {
				continue
			}
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				sm, pools, err := m.collect(pid)
				if err != nil {
					m.log.Error(err, "metrics collection failed", "pid", pid)
					return nil // one process's failure must not cancel the round
				}
				m.UpdateSystemMetrics(pid, sm)
				for name, pm := range pools {
					m.UpdatePoolMetrics(pid, name, pm)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, ps := range states {
		ps.mu.RLock()
		enabled := ps.enabled
		pid := ps.ident.PID
		ps.mu.RUnlock()
		if enabled {
			m.snapshot(pid)
		}
	}
}
