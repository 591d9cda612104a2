package monitor

// ComparisonScore holds the scoring dimensions compare_process_performance
// reports for one process: each is 0..100, higher is better.
type ComparisonScore struct {
	CPUEfficiency    float64
	MemoryEfficiency float64
	ThroughputScore  float64
}

// CompareProcessPerformance scores each of pids along three dimensions
// using its current snapshot: CPU efficiency (inverse of CPU load),
// memory efficiency (jobs completed per MB resident), and a throughput
// score (jobs completed per worker). PIDs that aren't registered, or whose
// snapshot can't be computed, are simply absent from the result.
func (m *Monitor) CompareProcessPerformance(pids []int) map[int]ComparisonScore {
	out := make(map[int]ComparisonScore, len(pids))
	for _, pid := range pids {
		snap, ok := m.snapshot(pid)
		if !ok {
			continue
		}
		out[pid] = ComparisonScore{
			CPUEfficiency:    cpuEfficiency(snap.System.CPUPercent),
			MemoryEfficiency: memoryEfficiency(snap.Pool.JobsCompleted, snap.System.MemBytes),
			ThroughputScore:  throughputScore(snap.Pool.JobsCompleted, snap.Pool.Workers),
		}
	}
	return out
}

func cpuEfficiency(cpuPercent float64) float64 {
	score := 100 - cpuPercent
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func memoryEfficiency(jobsCompleted uint64, memBytes uint64) float64 {
	if memBytes == 0 {
		return 0
	}
	memMB := float64(memBytes) / (1024 * 1024)
	score := float64(jobsCompleted) / memMB
	if score > 100 {
		return 100
	}
	return score
}

func throughputScore(jobsCompleted uint64, workers int) float64 {
	if workers == 0 {
		return 0
	}
	score := float64(jobsCompleted) / float64(workers)
	if score > 100 {
		return 100
	}
	return score
}
