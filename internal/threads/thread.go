// Package threads implements the cooperative kernel thread and scheduler
// layer of the simulation core, grounded on
// original_source/threads/{NachosThread,Scheduler}.java.
package threads

import (
	"log/slog"
	"sync"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/taller-so/nachos-go/internal/kernelfault"
)

// Status mirrors NachosThread.java's status field.
type Status int

const (
	JustCreated Status = iota
	Running
	Ready
	Blocked
)

func (s Status) String() string {
	switch s {
	case JustCreated:
		return "just created"
	case Running:
		return "running"
	case Ready:
		return "ready"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Priority levels, numerically ordered so Max sorts first — spec.md §3.
type Priority int

const (
	Max  Priority = 0
	Norm Priority = 1
	Min  Priority = 2

	// PriorityInherit is passed to NewThread to mean "same priority as the
	// forking thread", the Go analogue of NachosThread.java's two-argument
	// constructor overload (as opposed to the four-argument one that takes
	// an explicit priority).
	PriorityInherit Priority = -1
)

// Tick is the unit of a thread's estimated burst (timeLeft). It is a type of
// its own, distinct from machine.Tick; callers pass threads.Tick directly.
type Tick int64

// Runnable is the body a forked Thread executes.
type Runnable func(t *Thread)

// Thread is the Go analogue of NachosThread.java, realized as one goroutine
// per thread rendezvousing with the Scheduler via sync.Cond, exactly the
// "OS threads using wait/notify" realization spec.md §5 calls out as the
// source's own choice.
type Thread struct {
	mu   deadlock.Mutex
	cond *sync.Cond

	name     string
	runnable Runnable
	status   Status
	priority Priority
	timeLeft Tick

	log *slog.Logger

	started  bool
	finished bool
}

// NewThread creates a JustCreated thread. priority == PriorityInherit means
// "inherit from whichever thread calls Fork", resolved by the Scheduler at
// Fork time, not here.
func NewThread(log *slog.Logger, name string, priority Priority, burst Tick) *Thread {
	t := &Thread{
		name:     name,
		status:   JustCreated,
		priority: priority,
		timeLeft: burst,
		log:      log,
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func (t *Thread) Name() string { return t.name }

func (t *Thread) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Thread) setStatus(s Status) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

func (t *Thread) Priority() Priority {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.priority
}

func (t *Thread) TimeLeft() Tick {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeLeft
}

func (t *Thread) SetTimeLeft(v Tick) {
	t.mu.Lock()
	t.timeLeft = v
	t.mu.Unlock()
}

// start launches the thread's goroutine. The goroutine immediately blocks
// on the rendezvous condition until the scheduler transitions it to
// Running, the Go realization of NachosThread.java's implicit initial wait
// inside run() that spec.md §5 names as a suspension point.
func (t *Thread) start(runnable Runnable) {
	t.mu.Lock()
	kernelfault.Assert(t.log, "Thread", !t.started, "thread %q started twice", t.name)
	t.started = true
	t.mu.Unlock()

	go func() {
		t.mu.Lock()
		for t.status != Running {
			t.cond.Wait()
		}
		t.mu.Unlock()

		runnable(t)
	}()
}

// switchTo notifies t that it is now the Running thread and wakes its
// goroutine. Caller must already hold the Scheduler's invariant of
// "interrupts masked" per spec.md §4.5's run(next).
func (t *Thread) switchTo() {
	t.mu.Lock()
	t.status = Running
	t.cond.Broadcast()
	t.mu.Unlock()
}

// waitUntilRunning parks the calling goroutine (the thread that was just
// switched away from) until it is scheduled again. This is the other half
// of the rendezvous: "a context switch from A to B atomically notifies B
// and causes A to wait until its status becomes Running again" (spec.md
// §5).
func (t *Thread) waitUntilRunning() {
	t.mu.Lock()
	for t.status != Running {
		t.cond.Wait()
	}
	t.mu.Unlock()
}

func (t *Thread) markFinished() {
	t.mu.Lock()
	t.finished = true
	t.mu.Unlock()
}

func (t *Thread) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}
