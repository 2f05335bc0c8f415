package machine

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// Timer periodically schedules a TimerInt, either at a fixed period
// (ticks) or at a uniform random delay in [1, 2*ticks], matching
// original_source/machine/Timer.java. The realtime branch of Timer.java is
// out of scope per spec.md §4.2; NewTimer rejects realtime=true outright
// rather than silently ignoring it.
type Timer struct {
	ic     *InterruptController
	log    *slog.Logger
	ticks  Tick
	random bool
	rng    *rand.Rand

	onFire Handler
}

// NewTimer builds a Timer bound to ic, firing onFire every delay computed
// from ticks. If random is true, each re-arm picks a uniform delay in
// [1, 2*ticks] using rng (pass a seeded rand.New(rand.NewPCG(seed, seed))
// for reproducible tests).
func NewTimer(ic *InterruptController, log *slog.Logger, ticks Tick, random bool, realtime bool, rng *rand.Rand, onFire Handler) (*Timer, error) {
	if realtime {
		return nil, fmt.Errorf("machine: realtime timer mode is not supported")
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 1))
	}
	t := &Timer{
		ic:     ic,
		log:    log,
		ticks:  ticks,
		random: random,
		rng:    rng,
		onFire: onFire,
	}
	ic.registerTimer()
	return t, nil
}

// Start arms the first timer interrupt. Each fire re-arms the timer before
// calling onFire, so a Timer only ever has one pending interrupt
// outstanding at a time.
func (t *Timer) Start() {
	t.arm()
}

func (t *Timer) arm() {
	t.ic.Schedule(t.fire, t.delay(), TimerInt)
}

func (t *Timer) delay() Tick {
	if !t.random {
		return t.ticks
	}
	// Uniform in [1, 2*ticks], inclusive, matching Timer.java's
	// `1 + randomNumberGenerator.nextInt(2*ticks)`.
	span := int64(2 * t.ticks)
	if span <= 0 {
		return t.ticks
	}
	return Tick(1 + t.rng.Int64N(span))
}

func (t *Timer) fire() {
	if t.log != nil {
		t.log.Debug("timer fired")
	}
	t.arm()
	if t.onFire != nil {
		t.onFire()
	}
}
