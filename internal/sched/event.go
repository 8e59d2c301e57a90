// internal/sched/event.go

package sched

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// EventKind represents the type of scheduler event
type EventKind int

const (
	EventBooted EventKind = iota
	EventSpawned
	EventScheduled
	EventTimerFired
	EventDispatched
	EventCompleted
)

// Event is emitted on every scheduler state change.
type Event struct {
	Time     time.Time
	Tick     uint32
	Kind     EventKind
	Task     string
	Slot     int // -1 for hardware tasks and boot
	Priority uint8
}

func (k EventKind) String() string {
	switch k {
	case EventBooted:
		return "Booted"
	case EventSpawned:
		return "Spawned"
	case EventScheduled:
		return "Scheduled"
	case EventTimerFired:
		return "TimerFired"
	case EventDispatched:
		return "Dispatched"
	case EventCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// SetTrace installs a synchronous observer for scheduler events. The hook
// runs in the emitting context (possibly a handler) and must not block.
func (a *App) SetTrace(fn func(Event)) { a.trace = fn }

// EnableCSVLogging opens the given file path for CSV logging of events.
// Must be called before Start().
func (a *App) EnableCSVLogging(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	// write header
	w.Write([]string{"timestamp", "tick", "event", "task", "slot", "priority"})
	w.Flush()
	a.csvFile = f
	a.csvWriter = w
	return nil
}

// Close flushes and closes the CSV log, if one was enabled.
func (a *App) Close() error {
	if a.csvFile == nil {
		return nil
	}
	a.csvWriter.Flush()
	err := a.csvFile.Close()
	a.csvFile = nil
	a.csvWriter = nil
	return err
}

func (a *App) emit(kind EventKind, taskName string, slotIdx int, prio uint8) {
	if a.trace == nil && a.csvWriter == nil {
		return
	}
	ev := Event{
		Time:     time.Now(),
		Tick:     a.ctrl.Now(),
		Kind:     kind,
		Task:     taskName,
		Slot:     slotIdx,
		Priority: prio,
	}
	if a.trace != nil {
		a.trace(ev)
	}
	if a.csvWriter != nil {
		rec := []string{
			ev.Time.Format(time.RFC3339Nano),
			strconv.FormatUint(uint64(ev.Tick), 10),
			ev.Kind.String(),
			ev.Task,
			strconv.Itoa(ev.Slot),
			strconv.Itoa(int(ev.Priority)),
		}
		a.csvWriter.Write(rec)
		a.csvWriter.Flush()
	}
}

// FormatEvent renders an event the way the trace log prints it.
func FormatEvent(ev Event) string {
	slotStr := "-"
	if ev.Slot >= 0 {
		slotStr = strconv.Itoa(ev.Slot)
	}
	return fmt.Sprintf("%s = Tick: %07d [%-10s] => Task: %-12s slot=%s prio=%d",
		ev.Time.Format("Jan 02 15:04:05.000"),
		ev.Tick,
		ev.Kind.String(),
		ev.Task,
		slotStr,
		ev.Priority,
	)
}
