package machine

// PendingInterrupt is an immutable scheduled-interrupt record, save for the
// one mutable field (cancelled) that lets a caller retract it before it
// fires. Grounded on original_source/machine/PendingInterrupt.java: handler,
// when and kind never change after construction; only cancel() mutates
// state.
type PendingInterrupt struct {
	handler   Handler
	when      Tick
	kind      Kind
	insertSeq uint64

	cancelled bool
}

func newPendingInterrupt(handler Handler, when Tick, kind Kind, insertSeq uint64) *PendingInterrupt {
	return &PendingInterrupt{
		handler:   handler,
		when:      when,
		kind:      kind,
		insertSeq: insertSeq,
	}
}

// Cancel marks the interrupt so checkIfDue skips it when its time comes.
// It does not remove the entry from the queue; the heap still owns it.
func (p *PendingInterrupt) Cancel() {
	p.cancelled = true
}

func (p *PendingInterrupt) Cancelled() bool {
	return p.cancelled
}

func (p *PendingInterrupt) When() Tick {
	return p.when
}

func (p *PendingInterrupt) Kind() Kind {
	return p.kind
}
