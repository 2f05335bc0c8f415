package machine

import (
	"fmt"
	"log/slog"
	"sync"
)

// Statistics holds the monotonic counters spec.md §3 names. Fields are
// updated by the interrupt controller (OneTick, checkIfDue) and by the
// device request and completion paths, which may run on different
// goroutines; a plain mutex (not deadlock.Mutex — nothing here ever blocks
// waiting on another lock) is enough to keep `go test -race` happy.
type Statistics struct {
	mu sync.Mutex

	TotalTicks Tick
	SystemTicks Tick
	UserTicks   Tick
	IdleTicks   Tick

	NumDiskReads  int64
	NumDiskWrites int64

	NumConsoleCharsRead    int64
	NumConsoleCharsWritten int64

	// External-collaborator counters (paging), carried as fields only —
	// nothing in this core increments them. See spec.md §1 Out of scope.
	NumPageFaults int64
}

func NewStatistics() *Statistics {
	return &Statistics{}
}

func (s *Statistics) billSystem(t Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalTicks += t
	s.SystemTicks += t
}

func (s *Statistics) billUser(t Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalTicks += t
	s.UserTicks += t
}

func (s *Statistics) billIdle(t Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalTicks += t
	s.IdleTicks += t
}

func (s *Statistics) incDiskReads() {
	s.mu.Lock()
	s.NumDiskReads++
	s.mu.Unlock()
}

func (s *Statistics) incDiskWrites() {
	s.mu.Lock()
	s.NumDiskWrites++
	s.mu.Unlock()
}

func (s *Statistics) incConsoleCharsRead() {
	s.mu.Lock()
	s.NumConsoleCharsRead++
	s.mu.Unlock()
}

func (s *Statistics) incConsoleCharsWritten() {
	s.mu.Lock()
	s.NumConsoleCharsWritten++
	s.mu.Unlock()
}

func (s *Statistics) total() Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.TotalTicks
}

// Snapshot returns an immutable copy suitable for logging.
func (s *Statistics) Snapshot() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := *s
	snap.mu = sync.Mutex{}
	return snap
}

func (s *Statistics) String() string {
	snap := s.Snapshot()
	return fmt.Sprintf(
		"total=%d system=%d user=%d idle=%d diskReads=%d diskWrites=%d consoleRead=%d consoleWritten=%d",
		snap.TotalTicks, snap.SystemTicks, snap.UserTicks, snap.IdleTicks,
		snap.NumDiskReads, snap.NumDiskWrites, snap.NumConsoleCharsRead, snap.NumConsoleCharsWritten,
	)
}

// Print logs the final statistics snapshot, the Go analogue of
// Nachos.stats.print() called from Interrupt.halt().
func (s *Statistics) Print(log *slog.Logger) {
	if log == nil {
		return
	}
	snap := s.Snapshot()
	log.Info("machine halting",
		slog.Int64("total_ticks", int64(snap.TotalTicks)),
		slog.Int64("system_ticks", int64(snap.SystemTicks)),
		slog.Int64("user_ticks", int64(snap.UserTicks)),
		slog.Int64("idle_ticks", int64(snap.IdleTicks)),
		slog.Int64("num_disk_reads", snap.NumDiskReads),
		slog.Int64("num_disk_writes", snap.NumDiskWrites),
		slog.Int64("num_console_chars_read", snap.NumConsoleCharsRead),
		slog.Int64("num_console_chars_written", snap.NumConsoleCharsWritten),
	)
}
