package machine

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_RejectsRealtimeMode(t *testing.T) {
	ic := NewInterruptController(nil, NewStatistics(), 1, 1)
	_, err := NewTimer(ic, nil, 10, false, true, nil, nil)
	require.Error(t, err)
}

func TestTimer_FixedDelayFiresEveryTicks(t *testing.T) {
	ic := NewInterruptController(nil, NewStatistics(), 1, 1)

	fires := 0
	tm, err := NewTimer(ic, nil, 10, false, false, nil, func() { fires++ })
	require.NoError(t, err)
	tm.Start()

	for i := 0; i < 35; i++ {
		ic.OneTick()
	}

	assert.Equal(t, 3, fires)
}

func TestTimer_RandomDelayStaysInRange(t *testing.T) {
	ic := NewInterruptController(nil, NewStatistics(), 1, 1)
	tm, err := NewTimer(ic, nil, 10, true, false, rand.New(rand.NewPCG(1, 2)), nil)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		d := tm.delay()
		assert.GreaterOrEqual(t, int64(d), int64(1))
		assert.LessOrEqual(t, int64(d), int64(20))
	}
}
