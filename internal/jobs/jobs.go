// Package jobs tracks background jobs in a bounded table. Slots are reused
// in place once a job is reaped; the table never grows.
package jobs

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	// DefaultCapacity is the slot count used when New is given no sensible
	// capacity.
	DefaultCapacity = 64

	// maxCmdline bounds the stored display text.
	maxCmdline = 256
)

// ErrFull reports that every slot holds a live job. The process keeps
// running; it is simply not tracked.
var ErrFull = errors.New("job table full")

type job struct {
	pid     int
	active  bool
	cmdline string
}

// Entry is one active job as seen by the jobs listing.
type Entry struct {
	PID     int
	Cmdline string
}

// Table is a fixed-capacity background job registry.
type Table struct {
	mu    sync.Mutex
	slots []job
}

// New returns a table with the given capacity, or DefaultCapacity when
// capacity is not positive.
func New(capacity int) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Table{slots: make([]job, capacity)}
}

// Cap returns the slot count.
func (t *Table) Cap() int {
	return len(t.slots)
}

// Add records pid in the first inactive slot and returns its index. The
// display text is truncated to a fixed bound, silently.
func (t *Table) Add(pid int, cmdline string) (int, error) {
	if len(cmdline) > maxCmdline {
		cmdline = cmdline[:maxCmdline]
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if !t.slots[i].active {
			t.slots[i] = job{pid: pid, active: true, cmdline: cmdline}
			return i, nil
		}
	}
	return -1, ErrFull
}

// ReapFinished probes every active slot without blocking and clears the
// ones whose process has exited or been signaled. Safe to call repeatedly;
// a pid already reaped elsewhere counts as finished.
func (t *Table) ReapFinished() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reapLocked()
}

// List reaps first, then returns the active jobs in slot order. An empty
// result means the caller should print its "no background jobs" line.
func (t *Table) List() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reapLocked()
	var out []Entry
	for _, s := range t.slots {
		if s.active {
			out = append(out, Entry{PID: s.pid, Cmdline: s.cmdline})
		}
	}
	return out
}

func (t *Table) reapLocked() {
	for i := range t.slots {
		if !t.slots[i].active {
			continue
		}
		if finished(t.slots[i].pid) {
			t.slots[i].active = false
		}
	}
}

// finished runs a single non-blocking wait on pid.
func finished(pid int) bool {
	for {
		var status unix.WaitStatus
		wpid, err := unix.Wait4(pid, &status, unix.WNOHANG, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.ECHILD:
			// Already reaped elsewhere, or never ours.
			return true
		case err != nil:
			return false
		case wpid == pid:
			return true
		default:
			// Still running.
			return false
		}
	}
}
