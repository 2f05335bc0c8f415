package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_ReadPollDeliversBufferedBytes(t *testing.T) {
	ic := NewInterruptController(nil, NewStatistics(), 1, 1)
	stats := NewStatistics()
	source := NewBufferSource([]byte("hi"))

	readAvail := make(chan struct{}, 2)
	c := NewConsole(ic, nil, stats, source, nil, 5, func() { readAvail <- struct{}{} }, nil)

	for i := 0; i < 5; i++ {
		ic.OneTick()
	}
	<-readAvail
	got, err := c.GetChar()
	require.NoError(t, err)
	assert.Equal(t, byte('h'), got)

	for i := 0; i < 5; i++ {
		ic.OneTick()
	}
	<-readAvail
	got, err = c.GetChar()
	require.NoError(t, err)
	assert.Equal(t, byte('i'), got)

	assert.Equal(t, int64(2), stats.Snapshot().NumConsoleCharsRead)
}

func TestConsole_GetChar_ErrorsWithoutAvailableByte(t *testing.T) {
	ic := NewInterruptController(nil, NewStatistics(), 1, 1)
	stats := NewStatistics()
	c := NewConsole(ic, nil, stats, NewBufferSource(nil), nil, 5, nil, nil)

	_, err := c.GetChar()
	assert.ErrorIs(t, err, ErrNoCharAvailable)
}

func TestConsole_PutChar_CompletesAfterConsoleTime(t *testing.T) {
	ic := NewInterruptController(nil, NewStatistics(), 1, 1)
	stats := NewStatistics()

	writeDone := make(chan struct{})
	c := NewConsole(ic, nil, stats, NewBufferSource(nil), nil, 5, nil, func() { close(writeDone) })

	require.NoError(t, c.PutChar('X'))
	for i := 0; i < 5; i++ {
		ic.OneTick()
	}
	<-writeDone

	assert.Equal(t, byte('X'), c.LastWrite())
	assert.Equal(t, int64(1), stats.Snapshot().NumConsoleCharsWritten)
}

func TestConsole_PutChar_ErrorsWhileBusy(t *testing.T) {
	ic := NewInterruptController(nil, NewStatistics(), 1, 1)
	stats := NewStatistics()
	c := NewConsole(ic, nil, stats, NewBufferSource(nil), nil, 5, nil, nil)

	require.NoError(t, c.PutChar('A'))
	assert.ErrorIs(t, c.PutChar('B'), ErrWriteBusy)
}

func TestConsole_ReadPoll_HoldsOneByteAtATime(t *testing.T) {
	ic := NewInterruptController(nil, NewStatistics(), 1, 1)
	stats := NewStatistics()
	source := NewBufferSource([]byte("ab"))
	c := NewConsole(ic, nil, stats, source, nil, 5, nil, nil)

	for i := 0; i < 20; i++ {
		ic.OneTick()
	}

	got, err := c.GetChar()
	require.NoError(t, err)
	assert.Equal(t, byte('a'), got)
}
