// Package kernel is the composition root wiring the machine and threads
// packages into one runnable simulation, the "Glue (entry point, config)"
// component spec.md §2 calls out as not part of the core spec itself.
// Grounded on the teacher's kernel/cmd/api/handler.go construction shape:
// load config, build a logger, build dependent services in dependency
// order, return one struct.
package kernel

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/taller-so/nachos-go/internal/config"
	"github.com/taller-so/nachos-go/internal/log"
	"github.com/taller-so/nachos-go/internal/machine"
	"github.com/taller-so/nachos-go/internal/threads"
)

// Kernel owns every process-wide piece of state spec.md §9 says must be
// "owned at startup... threaded through components via a context handle."
type Kernel struct {
	Config *config.Config
	Log    *slog.Logger
	Stats  *machine.Statistics
	IC     *machine.InterruptController
	Sched  *threads.Scheduler

	Timer   *machine.Timer
	Disk    *machine.Disk
	Console *machine.Console
}

// New builds a fully wired Kernel from cfg. Policy is validated here so an
// invalid name is reported before the simulation starts, per spec.md §7.
func New(cfg *config.Config) (*Kernel, error) {
	policy, err := threads.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	logger := log.BuildLogger(cfg.LogLevel)
	stats := machine.NewStatistics()
	ic := machine.NewInterruptController(logger, stats, machine.Tick(cfg.SystemTick), machine.Tick(cfg.UserTick))
	sched := threads.NewScheduler(logger, ic, policy, machine.Tick(cfg.TimerTicks))

	ic.YieldHook = func() {
		sched.Yield(sched.Current())
	}

	k := &Kernel{
		Config: cfg,
		Log:    logger,
		Stats:  stats,
		IC:     ic,
		Sched:  sched,
	}

	if cfg.TimerEnabled {
		t, err := machine.NewTimer(ic, logger, machine.Tick(cfg.TimerTicks), cfg.TimerRandom, false,
			rand.New(rand.NewPCG(uint64(cfg.RandomSeed), uint64(cfg.RandomSeed)+1)), func() {
				ic.RequestYieldOnReturn()
			})
		if err != nil {
			return nil, fmt.Errorf("kernel: building timer: %w", err)
		}
		k.Timer = t
		t.Start()
	}

	if cfg.DiskEnabled {
		d, err := machine.NewDisk(ic, logger, stats, cfg.DiskImagePath,
			machine.Tick(cfg.SeekTime), machine.Tick(cfg.RotationTime), cfg.TrackBufferEnabled, nil)
		if err != nil {
			return nil, fmt.Errorf("kernel: building disk: %w", err)
		}
		k.Disk = d
	}

	if cfg.ConsoleEnabled {
		k.Console = machine.NewConsole(ic, logger, stats, machine.NewPolledSource(os.Stdin), os.Stdout, machine.Tick(cfg.ConsoleTime), nil, nil)
	}

	return k, nil
}

// Fork starts name as a new thread running runnable, forked from current
// (nil when forking the very first thread of the simulation).
func (k *Kernel) Fork(current *threads.Thread, name string, priority threads.Priority, burst threads.Tick, runnable threads.Runnable) *threads.Thread {
	t := threads.NewThread(k.Log, name, priority, burst)
	if current == nil {
		k.Sched.Start(t, runnable)
		return t
	}
	k.Sched.Fork(current, t, runnable)
	return t
}

// Halt tears down the machine, printing final statistics.
func (k *Kernel) Halt() {
	k.IC.Halt()
}
