// Package workload builds sets of demo tasks from a small line-oriented
// scenario language:
//
//	# comment
//	mutex m1
//	task low lock prio=1 mutex=m1 hold=50 period=10
//
// Each task line names the task, its kind and key=value parameters.
package workload

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"kestrel/kestrel/kernel"
)

//go:embed default.kst
var defaultScenario string

// Kind selects the body a task runs.
type Kind uint8

const (
	// Sleep works for Work ticks then sleeps for Period ticks.
	Sleep Kind = iota + 1
	// Spin works for Work ticks then yields, forever.
	Spin
	// Lock takes Mutex, works for Hold ticks, releases it and sleeps for
	// Period ticks.
	Lock
	// OneShot works for Work ticks once and exits.
	OneShot
	// Fault sleeps for Period ticks, registers Error and exits.
	Fault
)

var kindNames = map[string]Kind{
	"sleep":   Sleep,
	"spin":    Spin,
	"lock":    Lock,
	"oneshot": OneShot,
	"fault":   Fault,
}

func (k Kind) String() string {
	for n, v := range kindNames {
		if v == k {
			return n
		}
	}
	return "unknown"
}

const (
	DefaultStack  = 512
	DefaultPeriod = 100
)

// TaskSpec describes one task of a scenario.
type TaskSpec struct {
	Name  string
	Kind  Kind
	Prio  kernel.Priority
	Stack uint32

	Period uint32
	Work   uint32
	Hold   uint32
	// Count bounds the number of iterations; 0 runs forever.
	Count  uint32
	Mutex  string
	Error  kernel.Fault
}

// Scenario is a parsed scenario file.
type Scenario struct {
	Mutexes []string
	Tasks   []TaskSpec
}

var (
	ErrSyntax    = errors.New("workload: syntax error")
	ErrDuplicate = errors.New("workload: duplicate name")
)

// Default returns the built-in scenario.
func Default() *Scenario {
	s, err := Parse(strings.NewReader(defaultScenario))
	if err != nil {
		panic(err)
	}
	return s
}

// Parse reads a scenario. Errors carry the offending line number.
func Parse(r io.Reader) (*Scenario, error) {
	s := &Scenario{}
	names := make(map[string]bool)
	mutexes := make(map[string]bool)

	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		fields, err := shlex.Split(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", n, ErrSyntax, err)
		}
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "mutex":
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: %w: usage: mutex NAME", n, ErrSyntax)
			}
			if mutexes[fields[1]] {
				return nil, fmt.Errorf("line %d: %w: mutex %q", n, ErrDuplicate, fields[1])
			}
			mutexes[fields[1]] = true
			s.Mutexes = append(s.Mutexes, fields[1])

		case "task":
			t, err := parseTask(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			if names[t.Name] {
				return nil, fmt.Errorf("line %d: %w: task %q", n, ErrDuplicate, t.Name)
			}
			if t.Mutex != "" && !mutexes[t.Mutex] {
				return nil, fmt.Errorf("line %d: %w: unknown mutex %q", n, ErrSyntax, t.Mutex)
			}
			names[t.Name] = true
			s.Tasks = append(s.Tasks, t)

		default:
			return nil, fmt.Errorf("line %d: %w: unknown directive %q", n, ErrSyntax, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseTask(args []string) (TaskSpec, error) {
	if len(args) < 2 {
		return TaskSpec{}, fmt.Errorf("%w: usage: task NAME KIND [key=value...]", ErrSyntax)
	}
	t := TaskSpec{
		Name:   args[0],
		Prio:   kernel.Level1,
		Stack:  DefaultStack,
		Period: DefaultPeriod,
	}
	kind, ok := kindNames[args[1]]
	if !ok {
		return TaskSpec{}, fmt.Errorf("%w: unknown task kind %q", ErrSyntax, args[1])
	}
	t.Kind = kind

	for _, kv := range args[2:] {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			return TaskSpec{}, fmt.Errorf("%w: expected key=value, got %q", ErrSyntax, kv)
		}
		if key == "mutex" {
			t.Mutex = val
			continue
		}
		v, err := strconv.ParseUint(val, 0, 32)
		if err != nil {
			return TaskSpec{}, fmt.Errorf("%w: %s: %v", ErrSyntax, key, err)
		}
		switch key {
		case "prio":
			if v > uint64(kernel.MaxPriority-kernel.Level0) {
				return TaskSpec{}, fmt.Errorf("%w: prio %d out of range 0-9", ErrSyntax, v)
			}
			t.Prio = kernel.Level0 + kernel.Priority(v)
		case "stack":
			t.Stack = uint32(v)
		case "period":
			t.Period = uint32(v)
		case "work":
			t.Work = uint32(v)
		case "hold":
			t.Hold = uint32(v)
		case "count":
			t.Count = uint32(v)
		case "error":
			t.Error = kernel.Fault(v)
		default:
			return TaskSpec{}, fmt.Errorf("%w: unknown parameter %q", ErrSyntax, key)
		}
	}

	if t.Kind == Lock && t.Mutex == "" {
		return TaskSpec{}, fmt.Errorf("%w: lock task %q needs mutex=", ErrSyntax, t.Name)
	}
	if t.Kind == Spin && t.Work == 0 {
		t.Work = 1
	}
	return t, nil
}
