package workload

import (
	"fmt"

	"kestrel/hal"
	"kestrel/kestrel/kernel"
	ksync "kestrel/kestrel/sync"
)

// Sys is the task-side kernel API the workload runs on. svc.Client
// implements it.
type Sys interface {
	kernel.Syscaller
	CreateTask(entry hal.TaskFunc, arg any, prio kernel.Priority, name string, stackSize uint32) kernel.TaskID
	Sleep(ticks uint32)
	Yield()
	GetTicks() uint64
	RegisterError(code kernel.Fault)
}

// Env is what installed tasks run against.
type Env struct {
	Sys Sys
	// Work burns processor time until the next interrupt. Nil yields
	// instead.
	Work   func()
	Logger hal.Logger
}

// Installed is a task created by Install.
type Installed struct {
	ID   kernel.TaskID
	Spec TaskSpec
}

// Install creates the scenario's mutexes and tasks. It stops at the first
// task the kernel refuses.
func (s *Scenario) Install(env Env) ([]Installed, error) {
	mutexes := make(map[string]*ksync.Mutex, len(s.Mutexes))
	for _, name := range s.Mutexes {
		mutexes[name] = ksync.NewMutex(env.Sys)
	}

	out := make([]Installed, 0, len(s.Tasks))
	for _, spec := range s.Tasks {
		r := &runner{spec: spec, env: env, mu: mutexes[spec.Mutex]}
		id := env.Sys.CreateTask(r.run, r, spec.Prio, spec.Name, spec.Stack)
		if id == 0 {
			return out, fmt.Errorf("workload: kernel refused task %q", spec.Name)
		}
		out = append(out, Installed{ID: id, Spec: spec})
	}
	return out, nil
}

type runner struct {
	spec TaskSpec
	env  Env
	mu   *ksync.Mutex
}

func (r *runner) run(any) {
	sys := r.env.Sys
	switch r.spec.Kind {
	case OneShot:
		r.work(r.spec.Work)
		r.logf("done")
		return
	case Fault:
		sys.Sleep(r.spec.Period)
		r.logf("registering error %#x", uint32(r.spec.Error))
		sys.RegisterError(r.spec.Error)
		return
	}

	for i := uint32(0); r.spec.Count == 0 || i < r.spec.Count; i++ {
		switch r.spec.Kind {
		case Sleep:
			r.work(r.spec.Work)
			sys.Sleep(r.spec.Period)
		case Spin:
			r.work(r.spec.Work)
			sys.Yield()
		case Lock:
			r.mu.Lock()
			r.work(r.spec.Hold)
			r.mu.Unlock()
			sys.Sleep(r.spec.Period)
		}
	}
	r.logf("finished %d iterations", r.spec.Count)
}

// work keeps the task running for ticks ticks.
func (r *runner) work(ticks uint32) {
	if ticks == 0 {
		return
	}
	sys := r.env.Sys
	start := sys.GetTicks()
	for sys.GetTicks()-start < uint64(ticks) {
		if r.env.Work != nil {
			r.env.Work()
		} else {
			sys.Yield()
		}
	}
}

func (r *runner) logf(format string, args ...any) {
	if r.env.Logger == nil {
		return
	}
	r.env.Logger.WriteLineString(r.spec.Name + ": " + fmt.Sprintf(format, args...))
}
