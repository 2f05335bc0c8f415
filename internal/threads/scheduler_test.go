package threads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taller-so/nachos-go/internal/machine"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Policy
		wantErr bool
	}{
		{"fcfs", "FCFS", FCFS, false},
		{"rr", "rr", RoundRobin, false},
		{"prio_np", "PRIO_NP", PriorityNP, false},
		{"prio_p", "PRIO_P", PriorityP, false},
		{"sjf_np", "SJF_NP", SJFNP, false},
		{"sjf_p", "sjf_p", SJFP, false},
		{"invalid", "bogus", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePolicy(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestScheduler_FCFS_QueuesInArrivalOrder(t *testing.T) {
	ic := machine.NewInterruptController(nil, machine.NewStatistics(), 1, 1)
	sched := NewScheduler(nil, ic, FCFS, 100)

	a := NewThread(nil, "a", Norm, 0)
	b := NewThread(nil, "b", Norm, 0)
	c := NewThread(nil, "c", Norm, 0)

	sched.readyToRun(a)
	sched.readyToRun(b)
	sched.readyToRun(c)

	assert.Same(t, a, sched.findNextToRun())
	assert.Same(t, b, sched.findNextToRun())
	assert.Same(t, c, sched.findNextToRun())
	assert.Nil(t, sched.findNextToRun())
}

func TestScheduler_PriorityNP_OrdersBySmallestPriorityNumber(t *testing.T) {
	ic := machine.NewInterruptController(nil, machine.NewStatistics(), 1, 1)
	sched := NewScheduler(nil, ic, PriorityNP, 100)

	low := NewThread(nil, "low", Min, 0)
	high := NewThread(nil, "high", Max, 0)
	mid := NewThread(nil, "mid", Norm, 0)

	sched.readyToRun(low)
	sched.readyToRun(high)
	sched.readyToRun(mid)

	assert.Same(t, high, sched.findNextToRun())
	assert.Same(t, mid, sched.findNextToRun())
	assert.Same(t, low, sched.findNextToRun())
}

func TestScheduler_PriorityNP_TiesBreakFIFO(t *testing.T) {
	ic := machine.NewInterruptController(nil, machine.NewStatistics(), 1, 1)
	sched := NewScheduler(nil, ic, PriorityNP, 100)

	first := NewThread(nil, "first", Norm, 0)
	second := NewThread(nil, "second", Norm, 0)

	sched.readyToRun(first)
	sched.readyToRun(second)

	assert.Same(t, first, sched.findNextToRun())
	assert.Same(t, second, sched.findNextToRun())
}

func TestScheduler_SJF_OrdersBySmallestTimeLeft(t *testing.T) {
	ic := machine.NewInterruptController(nil, machine.NewStatistics(), 1, 1)
	sched := NewScheduler(nil, ic, SJFNP, 100)

	long := NewThread(nil, "long", Norm, 7)
	short := NewThread(nil, "short", Norm, 2)
	mid := NewThread(nil, "mid", Norm, 5)

	sched.readyToRun(long)
	sched.readyToRun(short)
	sched.readyToRun(mid)

	assert.Same(t, short, sched.findNextToRun())
	assert.Same(t, mid, sched.findNextToRun())
	assert.Same(t, long, sched.findNextToRun())
}

func TestScheduler_ShouldISwitch_FCFSNeverPreempts(t *testing.T) {
	ic := machine.NewInterruptController(nil, machine.NewStatistics(), 1, 1)
	sched := NewScheduler(nil, ic, FCFS, 100)

	current := NewThread(nil, "current", Max, 0)
	cand := NewThread(nil, "cand", Max, 0)

	assert.False(t, sched.shouldISwitch(current, cand))
}

func TestScheduler_ShouldISwitch_PriorityP_StrictlyHigherOnly(t *testing.T) {
	ic := machine.NewInterruptController(nil, machine.NewStatistics(), 1, 1)
	sched := NewScheduler(nil, ic, PriorityP, 100)

	current := NewThread(nil, "current", Norm, 0)

	higher := NewThread(nil, "higher", Max, 0)
	assert.True(t, sched.shouldISwitch(current, higher))

	equal := NewThread(nil, "equal", Norm, 0)
	assert.False(t, sched.shouldISwitch(current, equal), "ties favour the running thread")

	lower := NewThread(nil, "lower", Min, 0)
	assert.False(t, sched.shouldISwitch(current, lower))
}

func TestScheduler_ShouldISwitch_SJFP_StrictlySmallerOnly(t *testing.T) {
	ic := machine.NewInterruptController(nil, machine.NewStatistics(), 1, 1)
	sched := NewScheduler(nil, ic, SJFP, 100)

	current := NewThread(nil, "current", Norm, 10)

	smaller := NewThread(nil, "smaller", Norm, 5)
	assert.True(t, sched.shouldISwitch(current, smaller))

	equal := NewThread(nil, "equal", Norm, 10)
	assert.False(t, sched.shouldISwitch(current, equal))

	bigger := NewThread(nil, "bigger", Norm, 20)
	assert.False(t, sched.shouldISwitch(current, bigger))
}

// TestScheduler_FCFS_ThreeThreadsCompleteInArrivalOrder exercises spec.md
// §8's FCFS scenario: three threads with bursts [7, 2, 5] arriving at time
// zero finish in arrival order, since FCFS never preempts.
func TestScheduler_FCFS_ThreeThreadsCompleteInArrivalOrder(t *testing.T) {
	ic := machine.NewInterruptController(nil, machine.NewStatistics(), 1, 1)
	ic.SetHaltFunc(func(int) {}) // the last thread to finish idles into a halt; don't exit the test binary
	sched := NewScheduler(nil, ic, FCFS, 100)

	var completionOrder []string
	record := make(chan struct{})

	names := []string{"a", "b", "c"}
	bursts := []Tick{7, 2, 5}

	main := NewThread(nil, "main", Norm, 0)
	sched.Start(main, func(self *Thread) {
		for i, name := range names {
			n, burst := name, bursts[i]
			sched.Fork(self, NewThread(nil, n, Norm, burst), func(worker *Thread) {
				completionOrder = append(completionOrder, worker.Name())
				if len(completionOrder) == len(names) {
					close(record)
				}
				sched.Finish(worker)
			})
		}
		sched.Finish(self)
	})

	<-record
	assert.Equal(t, []string{"a", "b", "c"}, completionOrder)
}
