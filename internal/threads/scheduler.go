package threads

import (
	"fmt"
	"log/slog"
	"strings"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/taller-so/nachos-go/internal/kernelfault"
	"github.com/taller-so/nachos-go/internal/machine"
)

// Policy selects the ready-queue discipline and preemption rule, spec.md
// §4.5's policy table.
type Policy int

const (
	FCFS Policy = iota
	RoundRobin
	PriorityNP
	PriorityP
	SJFNP
	SJFP
)

func (p Policy) String() string {
	switch p {
	case FCFS:
		return "FCFS"
	case RoundRobin:
		return "RR"
	case PriorityNP:
		return "PRIO_NP"
	case PriorityP:
		return "PRIO_P"
	case SJFNP:
		return "SJF_NP"
	case SJFP:
		return "SJF_P"
	default:
		return "unknown"
	}
}

// ParsePolicy validates a configured policy name before the simulation
// starts, satisfying spec.md §7's "invalid policy name... reported to the
// caller before simulation starts; do not start."
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "FCFS":
		return FCFS, nil
	case "RR", "ROUND_ROBIN", "ROUNDROBIN":
		return RoundRobin, nil
	case "PRIO_NP", "PRIORITY_NP":
		return PriorityNP, nil
	case "PRIO_P", "PRIORITY_P":
		return PriorityP, nil
	case "SJF_NP":
		return SJFNP, nil
	case "SJF_P":
		return SJFP, nil
	default:
		return 0, fmt.Errorf("threads: unknown scheduler policy %q", name)
	}
}

// Scheduler is the Go analogue of the more complete of the two
// Scheduler.java variants retrieved in original_source (spec.md's Open
// Question decision names this one authoritative), generalized from its
// priority-only dispatch to the full FCFS/RR/priority/SJF table the way the
// teacher's planificadores/corto-plazo.go generalizes a single linear scan
// into FIFO/SJF/SRT variants.
type Scheduler struct {
	mu deadlock.Mutex

	log *slog.Logger
	ic  *machine.InterruptController

	policy     Policy
	timerTicks machine.Tick

	ready   []*Thread
	current *Thread

	toDestroy *Thread
}

func NewScheduler(log *slog.Logger, ic *machine.InterruptController, policy Policy, timerTicks machine.Tick) *Scheduler {
	return &Scheduler{
		log:        log,
		ic:         ic,
		policy:     policy,
		timerTicks: timerTicks,
	}
}

func (s *Scheduler) Policy() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// SetPolicy is only meaningful before the simulation has forked its first
// thread, per spec.md §3's "Policy is process-wide and mutable only before
// simulation starts."
func (s *Scheduler) SetPolicy(p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kernelfault.Assert(s.log, "Scheduler", s.current == nil, "SetPolicy called after simulation started")
	s.policy = p
}

func (s *Scheduler) Current() *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// shouldISwitch implements spec.md §4.5's table exactly: false under
// FCFS/RR/the two non-preemptive disciplines; strict (not >=) comparison
// under the two preemptive disciplines, so ties favour the running thread.
func (s *Scheduler) shouldISwitch(current, cand *Thread) bool {
	if current == nil {
		return true
	}
	switch s.policy {
	case PriorityP:
		return cand.Priority() < current.Priority()
	case SJFP:
		return cand.TimeLeft() < current.TimeLeft()
	default:
		return false
	}
}

// readyToRun enqueues t according to the active policy's discipline.
// Callable only with interrupts masked (spec.md §4.5).
func (s *Scheduler) readyToRun(t *Thread) {
	kernelfault.Assert(s.log, "Scheduler", s.ic.GetMask() == machine.Off, "readyToRun called with interrupts enabled")

	t.setStatus(Ready)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.policy {
	case PriorityNP, PriorityP:
		idx := len(s.ready)
		for i, r := range s.ready {
			if t.Priority() < r.Priority() {
				idx = i
				break
			}
		}
		s.insertAt(idx, t)
	case SJFNP, SJFP:
		idx := len(s.ready)
		for i, r := range s.ready {
			if t.TimeLeft() < r.TimeLeft() {
				idx = i
				break
			}
		}
		s.insertAt(idx, t)
	default: // FCFS, RoundRobin
		s.ready = append(s.ready, t)
	}
}

func (s *Scheduler) insertAt(idx int, t *Thread) {
	s.ready = append(s.ready, nil)
	copy(s.ready[idx+1:], s.ready[idx:])
	s.ready[idx] = t
}

// findNextToRun pops and returns the head of the ready queue per the
// active policy's discipline, or nil if empty. The queue is already kept in
// dispatch order by readyToRun, so this is always a pop-front.
func (s *Scheduler) findNextToRun() *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ready) == 0 {
		return nil
	}
	next := s.ready[0]
	s.ready = s.ready[1:]
	return next
}

// run performs the context switch to next. Caller must hold interrupts
// masked and must already have transitioned the outgoing thread (old) to
// Ready or Blocked. Grounded on Scheduler.java's run(next): switch, then on
// return destroy threadToBeDestroyed if set.
func (s *Scheduler) run(next *Thread) {
	kernelfault.Assert(s.log, "Scheduler", s.ic.GetMask() == machine.Off, "run called with interrupts enabled")

	s.mu.Lock()
	old := s.current
	s.current = next
	s.mu.Unlock()

	if s.log != nil {
		oldName := "<none>"
		if old != nil {
			oldName = old.Name()
		}
		s.log.Debug("context switch", slog.String("from", oldName), slog.String("to", next.Name()))
	}

	next.switchTo()

	if s.policy == RoundRobin {
		s.armQuantum()
	}

	if old != nil {
		old.waitUntilRunning()
	}

	s.mu.Lock()
	destroyed := s.toDestroy
	s.toDestroy = nil
	s.mu.Unlock()
	if destroyed != nil {
		destroyed.markFinished()
	}
}

// armQuantum schedules the Round-Robin quantum timer interrupt at dispatch
// time, using TimerTicks rather than Scheduler.java's hardcoded 40 (spec.md
// §9's flagged bug fix).
func (s *Scheduler) armQuantum() {
	s.ic.Schedule(func() {
		s.ic.RequestYieldOnReturn()
	}, s.timerTicks, machine.TimerInt)
}

// Fork brings t to Ready and, depending on context, either switches to it
// immediately or defers via yieldOnReturn — grounded line-by-line on
// NachosThread.java's fork().
func (s *Scheduler) Fork(current *Thread, t *Thread, runnable Runnable) {
	old := s.ic.SetMask(machine.Off)
	defer s.ic.SetMask(old)

	if current != nil && t.priority == PriorityInherit {
		t.mu.Lock()
		t.priority = current.priority
		t.mu.Unlock()
	}

	t.start(runnable)

	switch {
	case s.ic.InHandler() && s.shouldISwitch(current, t):
		s.readyToRun(t)
		s.ic.RequestYieldOnReturn()
	case s.shouldISwitch(current, t):
		if current != nil {
			s.readyToRun(current)
		}
		s.run(t)
	default:
		s.readyToRun(t)
	}
}

// Yield masks interrupts, and if a successor exists, moves the caller to
// Ready and switches to it.
func (s *Scheduler) Yield(current *Thread) {
	old := s.ic.SetMask(machine.Off)
	defer s.ic.SetMask(old)

	next := s.findNextToRun()
	if next == nil {
		return
	}
	s.readyToRun(current)
	s.run(next)
}

// Sleep requires interrupts already masked by the caller. Blocks current,
// then loops: dispatch the next ready thread if any, else idle, until a
// wakeup makes one available.
func (s *Scheduler) Sleep(current *Thread) {
	kernelfault.Assert(s.log, "Scheduler", s.ic.GetMask() == machine.Off, "Sleep called with interrupts enabled")
	current.setStatus(Blocked)

	for {
		next := s.findNextToRun()
		if next != nil {
			s.run(next)
			return
		}
		s.ic.Idle()
	}
}

// Finish marks current for destruction and sleeps it forever. Per
// SPEC_FULL.md's Open Question decision, the goroutine itself is simply
// parked (never switched back to) rather than force-killed, since Go has
// no equivalent of Thread.stop().
func (s *Scheduler) Finish(current *Thread) {
	old := s.ic.SetMask(machine.Off)
	defer s.ic.SetMask(old)

	s.mu.Lock()
	s.toDestroy = current
	s.mu.Unlock()

	s.Sleep(current)
}

// ReadyToRun is the public entry point device-completion handlers use to
// wake a Blocked thread (e.g. a Semaphore.V or a disk completion handler).
// Equivalent to readyToRun but documents the "external wakeup" call site.
func (s *Scheduler) ReadyToRun(t *Thread) {
	s.readyToRun(t)
}

// Start launches the simulation with initial as the first Running thread.
// There is no "old" thread to wait on the rendezvous for the very first
// dispatch, mirroring how NachosThread.java's bootstrap thread is already
// Running when the JVM calls main().
func (s *Scheduler) Start(initial *Thread, runnable Runnable) {
	s.mu.Lock()
	s.current = initial
	s.mu.Unlock()
	initial.setStatus(Running)
	initial.start(runnable)
}
