package machine

import (
	"bufio"
	"io"
	"sync"
)

// ByteSource abstracts "is a character available, and if so what is it" —
// the piece original_source/machine/Console.java gets for free from Java's
// InputStream.available(), which has no direct Go equivalent. Grounded in
// the teacher's own asynchronous-request idiom (io/cmd/api/usleep.go: do the
// blocking work on a side goroutine, signal completion) rather than in
// Console.java itself, which this supplements.
type ByteSource interface {
	// TryRead returns the next available byte and true, or (0, false) if
	// none is currently available. Never blocks.
	TryRead() (byte, bool)
}

// bufferSource is a deterministic, pre-seeded ByteSource for tests:
// every byte in buf is "available" from the start.
type bufferSource struct {
	mu  sync.Mutex
	buf []byte
	pos int
}

// NewBufferSource returns a ByteSource that yields the bytes of buf, in
// order, with no input latency.
func NewBufferSource(buf []byte) ByteSource {
	return &bufferSource{buf: buf}
}

func (b *bufferSource) TryRead() (byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pos >= len(b.buf) {
		return 0, false
	}
	c := b.buf[b.pos]
	b.pos++
	return c, true
}

// polledSource wraps an arbitrary io.Reader (a real terminal, a pipe) with
// a background goroutine that blocks on Read and feeds a channel, so
// TryRead itself never blocks — the Console device can poll it from inside
// the single-threaded interrupt-driven kernel loop.
type polledSource struct {
	ch chan byte
}

// NewPolledSource starts a goroutine reading r one byte at a time and
// returns a ByteSource that surfaces whatever has arrived so far.
func NewPolledSource(r io.Reader) ByteSource {
	p := &polledSource{ch: make(chan byte, 256)}
	go p.pump(r)
	return p
}

func (p *polledSource) pump(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		c, err := br.ReadByte()
		if err != nil {
			close(p.ch)
			return
		}
		p.ch <- c
	}
}

func (p *polledSource) TryRead() (byte, bool) {
	select {
	case c, ok := <-p.ch:
		return c, ok
	default:
		return 0, false
	}
}
