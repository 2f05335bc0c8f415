package machine

import (
	"errors"
	"io"
	"log/slog"

	deadlock "github.com/sasha-s/go-deadlock"
)

// ErrNoCharAvailable is returned by GetChar when no read interrupt has
// fired since the last GetChar. Protocol misuse, not a machine fault —
// recoverable per spec.md §7, unlike the kernelfault.Assert preconditions
// elsewhere in this package.
var ErrNoCharAvailable = errors.New("machine: no console character available")

// ErrWriteBusy is returned by PutChar when a previous write has not yet
// completed. Same recoverable-misuse category as ErrNoCharAvailable.
var ErrWriteBusy = errors.New("machine: console write already in flight")

// Console is an asynchronous one-character-at-a-time I/O device, grounded
// on original_source/machine/Console.java: a self-rescheduling read poll
// (checkCharAvail) and a fixed-latency write-completion interrupt
// (writeDone). The availability test itself is delegated to a ByteSource,
// since Go has no InputStream.available() equivalent.
type Console struct {
	mu deadlock.Mutex

	ic    *InterruptController
	log   *slog.Logger
	stats *Statistics

	source      ByteSource
	sink        io.Writer
	consoleTime Tick

	readHandler  Handler
	writeHandler Handler

	incoming      byte
	incomingAvail bool

	writeBusy bool
	lastWrite byte
}

// NewConsole builds a Console and starts its read-availability poll.
// readHandler fires (with the mask forced Off, like any other interrupt)
// whenever a character becomes available for GetChar; writeHandler fires
// once a PutChar's simulated transfer completes.
func NewConsole(ic *InterruptController, log *slog.Logger, stats *Statistics, source ByteSource, sink io.Writer, consoleTime Tick, readHandler, writeHandler Handler) *Console {
	c := &Console{
		ic:           ic,
		log:          log,
		stats:        stats,
		source:       source,
		sink:         sink,
		consoleTime:  consoleTime,
		readHandler:  readHandler,
		writeHandler: writeHandler,
	}
	c.ic.Schedule(c.checkCharAvail, consoleTime, ConsoleReadInt)
	return c
}

// checkCharAvail re-arms itself every consoleTime ticks and, if a byte is
// ready on the underlying source and none is currently buffered, latches it
// and fires the read interrupt — matching Console.java's self-rescheduling
// poll loop.
func (c *Console) checkCharAvail() {
	c.ic.Schedule(c.checkCharAvail, c.consoleTime, ConsoleReadInt)

	c.mu.Lock()
	if c.incomingAvail {
		c.mu.Unlock()
		return
	}
	b, ok := c.source.TryRead()
	if !ok {
		c.mu.Unlock()
		return
	}
	c.incoming = b
	c.incomingAvail = true
	c.stats.incConsoleCharsRead()
	c.mu.Unlock()

	if c.log != nil {
		c.log.Debug("console char available")
	}
	if c.readHandler != nil {
		c.readHandler()
	}
}

// GetChar consumes the currently buffered character, failing with
// ErrNoCharAvailable if no read interrupt has fired since the last GetChar.
// This is caller-recoverable protocol misuse, not a machine fault: no state
// is mutated on failure.
func (c *Console) GetChar() (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.incomingAvail {
		return 0, ErrNoCharAvailable
	}
	b := c.incoming
	c.incomingAvail = false
	return b, nil
}

// PutChar starts an asynchronous write of b, completing consoleTime ticks
// later via writeHandler. Fails with ErrWriteBusy, leaving state untouched,
// if a write is already in flight — caller-recoverable protocol misuse.
func (c *Console) PutChar(b byte) error {
	c.mu.Lock()
	if c.writeBusy {
		c.mu.Unlock()
		return ErrWriteBusy
	}
	c.writeBusy = true
	c.lastWrite = b
	c.mu.Unlock()

	if c.sink != nil {
		_, _ = c.sink.Write([]byte{b})
	}

	c.ic.Schedule(c.writeDone, c.consoleTime, ConsoleWriteInt)
	return nil
}

func (c *Console) writeDone() {
	c.mu.Lock()
	c.writeBusy = false
	c.mu.Unlock()

	c.stats.incConsoleCharsWritten()

	if c.log != nil {
		c.log.Debug("console write complete", slog.String("char", string(c.lastWrite)))
	}
	if c.writeHandler != nil {
		c.writeHandler()
	}
}

// LastWrite returns the byte most recently accepted by PutChar, whether or
// not its write has completed yet, for tests.
func (c *Console) LastWrite() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastWrite
}
