package machine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDisk(t *testing.T, ic *InterruptController, stats *Statistics, completion Handler) *Disk {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	d, err := NewDisk(ic, nil, stats, path, 100, 200, false, completion)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDisk_CreatesMagicPrefixedBackingFile(t *testing.T) {
	ic := NewInterruptController(nil, NewStatistics(), 1, 1)
	stats := NewStatistics()
	d := newTestDisk(t, ic, stats, nil)

	hdr := make([]byte, 4)
	_, err := d.file.ReadAt(hdr, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x45, 0x67, 0x89, 0xab}, hdr)

	info, err := d.file.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(4+NumSectors*SectorSize), info.Size())
}

func TestDisk_WriteThenReadRoundTrips(t *testing.T) {
	ic := NewInterruptController(nil, NewStatistics(), 1, 1)
	stats := NewStatistics()

	writeDone := make(chan struct{})
	d := newTestDisk(t, ic, stats, func() { close(writeDone) })

	payload := make([]byte, SectorSize)
	copy(payload, []byte("hello disk"))

	require.NoError(t, d.WriteRequest(3, payload))
	for i := 0; i < 10000 && d.Busy(); i++ {
		ic.OneTick()
	}
	<-writeDone

	assert.Equal(t, int64(1), stats.Snapshot().NumDiskWrites)

	buf := make([]byte, SectorSize)
	_, err := d.file.ReadAt(buf, d.sectorOffset(3))
	require.NoError(t, err)
	assert.Equal(t, payload, buf)
}

func TestDisk_RejectsOverlappingRequests(t *testing.T) {
	ic := NewInterruptController(nil, NewStatistics(), 1, 1)
	stats := NewStatistics()
	d := newTestDisk(t, ic, stats, nil)

	buf := make([]byte, SectorSize)
	require.NoError(t, d.ReadRequest(0, buf))

	assert.Panics(t, func() {
		_ = d.ReadRequest(1, buf)
	})
}

func TestDisk_RejectsOutOfRangeSector(t *testing.T) {
	ic := NewInterruptController(nil, NewStatistics(), 1, 1)
	stats := NewStatistics()
	d := newTestDisk(t, ic, stats, nil)

	buf := make([]byte, SectorSize)
	assert.Panics(t, func() {
		_ = d.ReadRequest(NumSectors, buf)
	})
}

func TestModuloDiff(t *testing.T) {
	tests := []struct {
		x, y, modulus, want int
	}{
		{5, 3, 10, 2},
		{3, 5, 10, 8},
		{0, 0, 10, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, moduloDiff(tc.x, tc.y, tc.modulus))
	}
}
