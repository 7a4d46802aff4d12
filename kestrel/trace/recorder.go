// Package trace records which task held the processor over time and
// summarizes or draws the result.
package trace

import (
	"fmt"
	"sort"

	"github.com/aclements/go-moremath/stats"

	"kestrel/kestrel/kernel"
	ksync "kestrel/kestrel/sync"
)

// Slice is a stretch of ticks during which one task was running.
type Slice struct {
	Task  kernel.TaskID
	Start uint64
	End   uint64
}

// Len returns the slice length in ticks.
func (s Slice) Len() uint64 { return s.End - s.Start }

// Recorder collects run slices from the scheduler hooks. Its methods may be
// called from any goroutine.
type Recorder struct {
	lock ksync.SpinLock

	limit   int
	names   map[kernel.TaskID]string
	slices  []Slice
	dropped int

	running  kernel.TaskID
	start    uint64
	last     uint64
	calls    uint64
	switches uint64
}

// NewRecorder returns a recorder keeping at most limit slices (0 = no
// limit). Older slices are kept; newer ones are counted as dropped.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit, names: make(map[kernel.TaskID]string)}
}

// Hooks returns the scheduler hooks feeding r.
func (r *Recorder) Hooks() kernel.Hooks {
	return kernel.Hooks{
		BeforeSchedule: r.before,
		AfterSchedule:  r.after,
	}
}

// SetName labels id in summaries and drawings.
func (r *Recorder) SetName(id kernel.TaskID, name string) {
	defer ksync.Acquire(&r.lock).Release()
	r.names[id] = name
}

func (r *Recorder) before(prev kernel.TaskID, now uint64) {
	defer ksync.Acquire(&r.lock).Release()
	r.calls++
	r.last = now
}

func (r *Recorder) after(next kernel.TaskID, now uint64) {
	defer ksync.Acquire(&r.lock).Release()
	r.last = now
	if next == r.running {
		return
	}
	r.closeLocked(now)
	r.running = next
	r.start = now
	r.switches++
}

// Finish closes the slice of the running task at tick now.
func (r *Recorder) Finish(now uint64) {
	defer ksync.Acquire(&r.lock).Release()
	r.closeLocked(now)
	r.running = 0
}

func (r *Recorder) closeLocked(now uint64) {
	if r.running == 0 {
		return
	}
	if r.limit > 0 && len(r.slices) >= r.limit {
		r.dropped++
		return
	}
	r.slices = append(r.slices, Slice{Task: r.running, Start: r.start, End: now})
}

// Slices returns a copy of the recorded slices in time order.
func (r *Recorder) Slices() []Slice {
	defer ksync.Acquire(&r.lock).Release()
	return append([]Slice(nil), r.slices...)
}

// Name returns the label of id.
func (r *Recorder) Name(id kernel.TaskID) string {
	defer ksync.Acquire(&r.lock).Release()
	return r.nameLocked(id)
}

func (r *Recorder) nameLocked(id kernel.TaskID) string {
	if n, ok := r.names[id]; ok {
		return n
	}
	return fmt.Sprintf("%#x", uint32(id))
}

// Counters reports how often the scheduler ran and how often it changed
// the running task.
func (r *Recorder) Counters() (calls, switches uint64, dropped int) {
	defer ksync.Acquire(&r.lock).Release()
	return r.calls, r.switches, r.dropped
}

// TaskStats summarizes the run slices of one task.
type TaskStats struct {
	Task   kernel.TaskID
	Name   string
	Slices int
	Ticks  uint64
	// Share is the fraction of the traced ticks the task ran.
	Share  float64
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Median float64
}

// Stats returns per-task statistics ordered by descending run time.
func (r *Recorder) Stats() []TaskStats {
	defer ksync.Acquire(&r.lock).Release()

	lens := make(map[kernel.TaskID][]float64)
	var total uint64
	for _, s := range r.slices {
		lens[s.Task] = append(lens[s.Task], float64(s.Len()))
		total += s.Len()
	}

	out := make([]TaskStats, 0, len(lens))
	for id, xs := range lens {
		sample := stats.Sample{Xs: xs}
		st := TaskStats{
			Task:   id,
			Name:   r.nameLocked(id),
			Slices: len(xs),
			Mean:   sample.Mean(),
			Median: sample.Quantile(0.5),
		}
		if len(xs) > 1 {
			st.StdDev = sample.StdDev()
		}
		st.Min, st.Max = sample.Bounds()
		for _, x := range xs {
			st.Ticks += uint64(x)
		}
		if total > 0 {
			st.Share = float64(st.Ticks) / float64(total)
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ticks != out[j].Ticks {
			return out[i].Ticks > out[j].Ticks
		}
		return out[i].Name < out[j].Name
	})
	return out
}
