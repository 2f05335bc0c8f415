package machine

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/taller-so/nachos-go/internal/kernelfault"
)

// diskMagic prefixes the backing file, the Go analogue of Disk.java's
// 4-byte 0x456789ab sentinel used to tell a real disk image from an
// arbitrary file.
const diskMagic uint32 = 0x456789ab

// Disk is a single asynchronous, single-sector-at-a-time disk device backed
// by a flat local file, grounded on original_source/machine/Disk.java.
// Every ReadRequest/WriteRequest does the I/O synchronously against the
// backing file but only notifies the caller later, via an interrupt
// scheduled computeLatency ticks out — matching the original's
// read-now-interrupt-later shape rather than deferring the I/O itself.
type Disk struct {
	mu deadlock.Mutex

	ic    *InterruptController
	log   *slog.Logger
	stats *Statistics
	file  *os.File

	seekTime     Tick
	rotationTime Tick

	// trackBufferEnabled models a full-track read-ahead cache. Disabled by
	// default per spec.md §4.3's "optional... default disabled" note.
	trackBufferEnabled bool

	lastSector int  // sector most recently positioned over; -1 before first access
	bufferInit Tick // totalTicks at which the head settled over lastSector, iff a seek occurred
	busy       bool
	writing    bool

	completion Handler
}

// NewDisk opens (creating if absent) the backing file at path, writes the
// magic prefix if the file is new, and zero-extends it to the full disk
// image size.
func NewDisk(ic *InterruptController, log *slog.Logger, stats *Statistics, path string, seekTime, rotationTime Tick, trackBufferEnabled bool, completion Handler) (*Disk, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("machine: opening disk image %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("machine: stat disk image %q: %w", path, err)
	}

	const imageSize = 4 + NumSectors*SectorSize
	if info.Size() == 0 {
		if err := writeMagicAndZeroExtend(f, imageSize); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	d := &Disk{
		ic:                 ic,
		log:                log,
		stats:              stats,
		file:               f,
		seekTime:           seekTime,
		rotationTime:       rotationTime,
		trackBufferEnabled: trackBufferEnabled,
		lastSector:         -1,
		completion:         completion,
	}
	return d, nil
}

func writeMagicAndZeroExtend(f *os.File, imageSize int64) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], diskMagic)
	if _, err := f.WriteAt(hdr[:], 0); err != nil {
		return fmt.Errorf("machine: writing disk magic: %w", err)
	}
	// Zero-extend by writing a single trailing byte, same trick
	// Disk.java's constructor uses via RandomAccessFile.setLength.
	if _, err := f.WriteAt([]byte{0}, imageSize-1); err != nil {
		return fmt.Errorf("machine: extending disk image: %w", err)
	}
	return nil
}

func (d *Disk) Close() error {
	return d.file.Close()
}

// moduloDiff returns how many sectors the platter must rotate, going
// forward, to get from sector y to sector x, modulo modulus
// (SectorsPerTrack at every call site). Ported directly from Disk.java's
// moduloDiff.
func moduloDiff(x, y, modulus int) int {
	diff := x - y
	if diff < 0 {
		diff += modulus
	}
	return diff
}

func (d *Disk) timeToSeek(newSector int) (Tick, int) {
	newTrack := newSector / SectorsPerTrack
	oldTrack := -1
	if d.lastSector >= 0 {
		oldTrack = d.lastSector / SectorsPerTrack
	}
	tracks := newTrack - oldTrack
	if tracks < 0 {
		tracks = -tracks
	}
	if oldTrack < 0 || tracks == 0 {
		return 0, newTrack
	}
	return Tick(tracks) * d.seekTime, newTrack
}

// computeLatency returns how many ticks must elapse before newSector is
// under the head and fully transferred, combining seek time, rotational
// latency from the head's actual position at request time, and a single
// sector's transfer time (RotationTime itself — it is defined per sector,
// not per revolution). Grounded on Disk.java's ComputeLatency.
func (d *Disk) computeLatency(newSector int) Tick {
	now := d.ic.Now()
	seek, _ := d.timeToSeek(newSector)

	if d.trackBufferEnabled && !d.writing && seek == 0 && d.lastSector >= 0 {
		rotation := d.roundUpToSector(now)
		if d.sweptPast(newSector, now+rotation) {
			return d.rotationTime
		}
	}

	arrival := now + seek
	rotation := d.roundUpToSector(arrival)
	timeAfter := arrival + rotation
	sectorAt := int(timeAfter / d.rotationTime)
	rotation += Tick(moduloDiff(newSector%SectorsPerTrack, sectorAt%SectorsPerTrack, SectorsPerTrack)) * d.rotationTime

	return seek + rotation + d.rotationTime
}

// roundUpToSector returns how many ticks must pass from arrival for the head
// to be sitting exactly on a sector boundary — the "over" correction in
// Disk.java's ComputeLatency.
func (d *Disk) roundUpToSector(arrival Tick) Tick {
	over := arrival % d.rotationTime
	if over > 0 {
		return d.rotationTime - over
	}
	return 0
}

// sweptPast reports whether the head, spinning continuously since bufferInit
// without a seek, has already passed over newSector by timeAfter — the
// track-buffer hit test.
func (d *Disk) sweptPast(newSector int, timeAfter Tick) bool {
	elapsed := timeAfter - d.bufferInit
	if elapsed < 0 {
		return false
	}
	swept := elapsed / d.rotationTime
	if swept >= Tick(SectorsPerTrack) {
		return true
	}
	dist := moduloDiff(newSector%SectorsPerTrack, d.lastSector%SectorsPerTrack, SectorsPerTrack)
	return Tick(dist) <= swept
}

// updateLast records the disk head's new resting sector after a request.
// bufferInit — the moment the head settles over lastSector, anchoring the
// track-buffer window — only moves when this request actually seeked;
// otherwise the head never left the resting position a prior seek left it
// at. Grounded on Disk.java's UpdateLast.
func (d *Disk) updateLast(newSector int) {
	now := d.ic.Now()
	seek, _ := d.timeToSeek(newSector)
	if seek > 0 {
		arrival := now + seek
		d.bufferInit = arrival + d.roundUpToSector(arrival)
	}
	d.lastSector = newSector
}

func (d *Disk) sectorOffset(sector int) int64 {
	return 4 + int64(sector)*SectorSize
}

// ReadRequest performs the read against the backing file immediately and
// schedules a DiskInt completion after computeLatency ticks, mirroring
// Disk.java's readRequest: the data is available to the caller right away,
// but the caller must not observe it as "done" until the interrupt fires.
func (d *Disk) ReadRequest(sector int, buf []byte) error {
	d.mu.Lock()
	kernelfault.Assert(d.log, "Disk", !d.busy, "overlapping disk request (sector %d)", sector)
	kernelfault.Assert(d.log, "Disk", sector >= 0 && sector < NumSectors, "sector %d out of range", sector)
	d.busy = true
	d.writing = false
	latency := d.computeLatency(sector)
	d.updateLast(sector)
	d.mu.Unlock()

	if _, err := d.file.ReadAt(buf[:SectorSize], d.sectorOffset(sector)); err != nil {
		return fmt.Errorf("machine: disk read sector %d: %w", sector, err)
	}

	d.stats.incDiskReads()

	d.ic.Schedule(d.finish(sector), latency, DiskInt)
	return nil
}

// WriteRequest is the write-path analogue of ReadRequest.
func (d *Disk) WriteRequest(sector int, buf []byte) error {
	d.mu.Lock()
	kernelfault.Assert(d.log, "Disk", !d.busy, "overlapping disk request (sector %d)", sector)
	kernelfault.Assert(d.log, "Disk", sector >= 0 && sector < NumSectors, "sector %d out of range", sector)
	d.busy = true
	d.writing = true
	latency := d.computeLatency(sector)
	d.updateLast(sector)
	d.mu.Unlock()

	if _, err := d.file.WriteAt(buf[:SectorSize], d.sectorOffset(sector)); err != nil {
		return fmt.Errorf("machine: disk write sector %d: %w", sector, err)
	}

	d.stats.incDiskWrites()

	d.ic.Schedule(d.finish(sector), latency, DiskInt)
	return nil
}

func (d *Disk) finish(sector int) Handler {
	return func() {
		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()

		if d.log != nil {
			d.log.Debug("disk request complete", slog.Int("sector", sector))
		}
		if d.completion != nil {
			d.completion()
		}
	}
}

func (d *Disk) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}
