package threads

import (
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/taller-so/nachos-go/internal/machine"
)

// Semaphore is a classic counting semaphore. spec.md §2 names this
// component ("Synchronization primitives (implied)... built on thread
// sleep/wake") without shipping a Semaphore.java in original_source; this
// is built directly from Thread.Sleep/Scheduler.ReadyToRun, the two
// primitives the spec says it must rest on, in the shape every textbook
// Nachos Semaphore.cc uses.
type Semaphore struct {
	mu deadlock.Mutex

	name      string
	value     int
	ic        *machine.InterruptController
	scheduler *Scheduler
	waiters   []*Thread
}

func NewSemaphore(name string, initial int, ic *machine.InterruptController, scheduler *Scheduler) *Semaphore {
	return &Semaphore{
		name:      name,
		value:     initial,
		ic:        ic,
		scheduler: scheduler,
	}
}

// P (wait/acquire) blocks current until the semaphore's value is positive,
// then decrements it.
func (sem *Semaphore) P(current *Thread) {
	old := sem.ic.SetMask(machine.Off)
	defer sem.ic.SetMask(old)

	for {
		sem.mu.Lock()
		if sem.value > 0 {
			sem.value--
			sem.mu.Unlock()
			return
		}
		sem.waiters = append(sem.waiters, current)
		sem.mu.Unlock()

		sem.scheduler.Sleep(current)
	}
}

// V (signal/release) increments the semaphore's value and, if a thread was
// waiting, wakes the longest-waiting one.
func (sem *Semaphore) V() {
	old := sem.ic.SetMask(machine.Off)
	defer sem.ic.SetMask(old)

	sem.mu.Lock()
	sem.value++
	var woken *Thread
	if len(sem.waiters) > 0 {
		woken = sem.waiters[0]
		sem.waiters = sem.waiters[1:]
	}
	sem.mu.Unlock()

	if woken != nil {
		sem.scheduler.ReadyToRun(woken)
	}
}

func (sem *Semaphore) Value() int {
	sem.mu.Lock()
	defer sem.mu.Unlock()
	return sem.value
}
