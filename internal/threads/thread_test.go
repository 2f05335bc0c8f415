package threads

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewThread_StartsJustCreated(t *testing.T) {
	th := NewThread(nil, "t1", Norm, 5)
	assert.Equal(t, JustCreated, th.Status())
	assert.Equal(t, Norm, th.Priority())
	assert.Equal(t, Tick(5), th.TimeLeft())
}

func TestThread_SetTimeLeft(t *testing.T) {
	th := NewThread(nil, "t1", Max, 0)
	th.SetTimeLeft(42)
	assert.Equal(t, Tick(42), th.TimeLeft())
}

func TestThread_StatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{JustCreated, "just created"},
		{Running, "running"},
		{Ready, "ready"},
		{Blocked, "blocked"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.status.String())
	}
}

func TestThread_StartTwice_Panics(t *testing.T) {
	th := NewThread(nil, "t1", Norm, 0)
	th.start(func(self *Thread) {})

	assert.Panics(t, func() {
		th.start(func(self *Thread) {})
	})
}
