package machine

import (
	"log/slog"
	"os"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/taller-so/nachos-go/internal/kernelfault"
	"github.com/taller-so/nachos-go/internal/uniqueid"
)

// InterruptController is the Go analogue of the static Interrupt class in
// original_source/machine/Interrupt.java, turned into an owned value per
// spec.md §9 instead of a singleton. machine has no dependency on threads;
// the one call the Java source makes directly into NachosThread.Yield() is
// exposed here as an injectable closure that the composing Kernel sets once
// at startup.
type InterruptController struct {
	mu deadlock.Mutex

	log   *slog.Logger
	stats *Statistics
	ids   *uniqueid.Generator

	now  Tick
	mask Mask
	mode Mode

	inHandler     bool
	yieldOnReturn bool
	pending       *pendingQueue

	systemTick Tick
	userTick   Tick
	hasTimer   bool

	// YieldHook is called at the end of OneTick when a handler has called
	// RequestYieldOnReturn. Set once by the Kernel; nil is a valid "no
	// scheduler wired yet" state used by machine-only tests.
	YieldHook func()

	// haltFunc lets tests observe a halt without terminating the test
	// binary; defaults to os.Exit(0).
	haltFunc func(code int)

	halted bool
}

// NewInterruptController builds a controller that bills systemTick ticks per
// OneTick call while in System mode and userTick ticks while in User mode,
// per spec.md §4.1's oneTick billing rule.
func NewInterruptController(log *slog.Logger, stats *Statistics, systemTick, userTick Tick) *InterruptController {
	return &InterruptController{
		log:        log,
		stats:      stats,
		ids:        uniqueid.New(),
		mask:       Off,
		mode:       System,
		pending:    newPendingQueue(),
		systemTick: systemTick,
		userTick:   userTick,
		haltFunc:   os.Exit,
	}
}

// registerTimer records that a Timer device is attached to this controller,
// enabling checkIfDue's idle-mode guard against busy-idling on a
// self-rearming timer interrupt alone (spec.md §4.1).
func (ic *InterruptController) registerTimer() {
	ic.mu.Lock()
	ic.hasTimer = true
	ic.mu.Unlock()
}

// Now returns the current virtual time.
func (ic *InterruptController) Now() Tick {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.now
}

// GetMask reports whether interrupts are currently enabled.
func (ic *InterruptController) GetMask() Mask {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.mask
}

// SetMask is the sole mutual-exclusion primitive of this kernel (spec.md
// §5): disabling interrupts is how the "logically single-threaded kernel"
// invariant is upheld. It returns the previous mask so callers can restore
// it, mirroring Interrupt.java's setLevel. Enabling interrupts from inside a
// handler is forbidden (spec.md §4.1): the call becomes a no-op, logged, the
// old mask still returned. Otherwise an Off→On transition calls OneTick
// exactly once before returning.
func (ic *InterruptController) SetMask(level Mask) Mask {
	ic.mu.Lock()
	old := ic.mask
	forbidden := level == On && ic.inHandler
	if !forbidden {
		ic.mask = level
	}
	ic.mu.Unlock()

	if forbidden {
		if ic.log != nil {
			ic.log.Error("setMask(On) called from inside an interrupt handler")
		}
		return old
	}

	if level == On && old == Off {
		ic.OneTick()
	}
	return old
}

// changeLevel is OneTick's private mask toggle: forcing interrupts Off for
// handler dispatch and back On afterward must not re-enter SetMask's
// Off→On→OneTick rule, or OneTick would recurse on itself.
func (ic *InterruptController) changeLevel(level Mask) {
	ic.mu.Lock()
	ic.mask = level
	ic.mu.Unlock()
}

func (ic *InterruptController) GetMode() Mode {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.mode
}

func (ic *InterruptController) SetMode(m Mode) {
	ic.mu.Lock()
	ic.mode = m
	ic.mu.Unlock()
}

func (ic *InterruptController) InHandler() bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.inHandler
}

// RequestYieldOnReturn sets the flag that causes OneTick to invoke
// YieldHook once the current batch of due handlers has finished running.
// Called from within a handler — e.g. the Round-Robin quantum's timer
// handler — per spec.md §4.5.
func (ic *InterruptController) RequestYieldOnReturn() {
	ic.mu.Lock()
	ic.yieldOnReturn = true
	ic.mu.Unlock()
}

// Schedule arranges for handler to run delay ticks from now, tagged with
// kind for OneTick's "which device fired" bookkeeping. Returns a handle the
// caller may later Cancel.
func (ic *InterruptController) Schedule(handler Handler, delay Tick, kind Kind) *PendingInterrupt {
	kernelfault.Assert(ic.log, "InterruptController", delay > 0, "schedule requires a positive delay, got %d", delay)

	ic.mu.Lock()
	defer ic.mu.Unlock()
	when := ic.now + delay
	seq := ic.ids.Next()
	p := newPendingInterrupt(handler, when, kind, seq)
	ic.pending.schedule(p)
	return p
}

// Cancel retracts a previously Scheduled interrupt. Per
// PendingInterrupt.java, cancelling does not remove the heap entry; it only
// flips the flag checkIfDue consults.
func (ic *InterruptController) Cancel(p *PendingInterrupt) {
	if p == nil {
		return
	}
	p.Cancel()
}

// OneTick advances virtual time by SystemTick or UserTick ticks — whichever
// matches the running mode — bills the same amount to the matching counter,
// and fires any interrupts now due. Grounded on Interrupt.java's oneTick:
// interrupts are forced Off for the duration of handler dispatch, and a
// pending yieldOnReturn request is honored once dispatch is done.
func (ic *InterruptController) OneTick() {
	ic.mu.Lock()
	old := ic.mode
	cost := ic.systemTick
	if old == User {
		cost = ic.userTick
	}
	ic.now += cost
	ic.mu.Unlock()

	switch old {
	case User:
		ic.stats.billUser(cost)
	case System:
		ic.stats.billSystem(cost)
	default:
		ic.stats.billIdle(cost)
	}

	ic.changeLevel(Off)
	for ic.checkIfDue(false) {
	}
	ic.changeLevel(On)

	ic.mu.Lock()
	shouldYield := ic.yieldOnReturn
	ic.mu.Unlock()
	if !shouldYield {
		return
	}

	ic.mu.Lock()
	ic.yieldOnReturn = false
	ic.mode = System
	ic.mu.Unlock()

	if ic.YieldHook != nil {
		ic.YieldHook()
	}

	ic.mu.Lock()
	ic.mode = old
	ic.mu.Unlock()
}

// checkIfDue pops the head of the pending queue if it is due, runs its
// handler, and returns whether it did. advanceClock is true only from Idle's
// first call: a not-yet-due head then charges the gap to idle time and
// fast-forwards the clock to it, instead of leaving it pending. Grounded on
// Interrupt.java's checkIfDue.
func (ic *InterruptController) checkIfDue(advanceClock bool) bool {
	ic.mu.Lock()
	next := ic.pending.peek()
	if next == nil {
		ic.mu.Unlock()
		return false
	}
	if next.when > ic.now {
		if !advanceClock {
			ic.mu.Unlock()
			return false
		}
		ic.stats.billIdle(next.when - ic.now)
		ic.now = next.when
	}

	popped := ic.pending.popEarliest()

	// Idle-mode guard: if the machine is idling on a self-rearming Timer
	// alone, with nothing else left pending, firing it would just put it
	// straight back and idle forever. Put it back and report nothing due.
	if ic.mode == Idle && ic.hasTimer && ic.pending.Len() == 0 {
		ic.pending.schedule(popped)
		ic.mu.Unlock()
		return false
	}

	if popped.Cancelled() {
		ic.mu.Unlock()
		return true
	}

	prevMode := ic.mode
	ic.mode = System
	ic.inHandler = true
	ic.mu.Unlock()

	if ic.log != nil {
		ic.log.Debug("interrupt fired", slog.String("kind", popped.kind.String()), slog.Int64("when", int64(popped.when)))
	}
	popped.handler()

	ic.mu.Lock()
	ic.inHandler = false
	ic.mode = prevMode
	ic.mu.Unlock()

	return true
}

// Idle is invoked by the scheduler when the ready queue is empty and the
// current thread cannot continue. Grounded on Interrupt.java's idle(): set
// mode to Idle, make one advancing check, and either drain whatever else is
// now due and resume, or — nothing was due to advance to — Halt.
func (ic *InterruptController) Idle() {
	ic.mu.Lock()
	ic.mode = Idle
	ic.mu.Unlock()

	if !ic.checkIfDue(true) {
		ic.Halt()
		return
	}

	for ic.checkIfDue(false) {
	}

	ic.mu.Lock()
	ic.yieldOnReturn = false
	ic.mode = System
	ic.mu.Unlock()
}

// Halt prints final statistics and terminates the simulation, the Go
// analogue of Interrupt.java's halt() -> Nachos.stats.print() -> exit(0).
func (ic *InterruptController) Halt() {
	if ic.log != nil {
		ic.log.Info("halt requested")
	}
	ic.stats.Print(ic.log)
	ic.mu.Lock()
	ic.halted = true
	ic.mu.Unlock()
	ic.haltFunc(0)
}

func (ic *InterruptController) Halted() bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.halted
}

// SetHaltFunc overrides the termination call, used by tests to observe a
// Halt without exiting the test binary.
func (ic *InterruptController) SetHaltFunc(f func(code int)) {
	ic.haltFunc = f
}
