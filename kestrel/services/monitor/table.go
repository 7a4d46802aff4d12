package monitor

import (
	"fmt"
	"strings"

	"kestrel/kestrel/kernel"
)

// StackUsage reports how many bytes of a task's stack have been touched.
type StackUsage func(t kernel.TaskInfo) (used uint32, ok bool)

// Header is the column header of FormatTable.
const Header = "NAME       PRI BASE STATE    STACK     INFO"

// FormatTable renders one line per task. usage may be nil.
func FormatTable(tasks []kernel.TaskInfo, now uint64, usage StackUsage) []string {
	names := make(map[kernel.TaskID]string, len(tasks))
	for _, t := range tasks {
		names[t.ID] = t.Name
	}

	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		stack := fmt.Sprintf("%d", t.StackSize)
		if usage != nil {
			if used, ok := usage(t); ok {
				stack = fmt.Sprintf("%d/%d", used, t.StackSize)
			}
		}
		line := fmt.Sprintf("%-10s %-3s %-4s %-8s %-9s %s",
			t.Name, t.Priority, t.BasePriority, t.State, stack, info(t, now, names))
		lines = append(lines, strings.TrimRight(line, " "))
	}
	return lines
}

func info(t kernel.TaskInfo, now uint64, names map[kernel.TaskID]string) string {
	switch t.State {
	case kernel.Sleeping:
		if t.WakeTick > now {
			return fmt.Sprintf("wake +%d", t.WakeTick-now)
		}
		return "wake due"
	case kernel.Blocked:
		if t.WaitingOn == nil {
			return "wait"
		}
		holder := t.WaitingOn.Blocker()
		if holder == 0 {
			return "wait -"
		}
		if n, ok := names[holder]; ok {
			return "wait " + n
		}
		return fmt.Sprintf("wait %#x", uint32(holder))
	}
	if t.Priority != t.BasePriority {
		return "inherited"
	}
	return ""
}
