// Command nachos is a thin entry point around internal/kernel, grounded on
// the teacher's thin cmd/api binaries (kernel/kernel.go, io/io.go): parse a
// config path, build a Kernel, fork a demo workload, run. Argument parsing
// itself is out of spec.md's scope (§1: "CLI/argument parsing").
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/taller-so/nachos-go/internal/config"
	"github.com/taller-so/nachos-go/internal/kernel"
	"github.com/taller-so/nachos-go/internal/threads"
)

func main() {
	path := flag.String("config", "", "path to a JSON configuration file (defaults applied if empty)")
	flag.Parse()

	cfg := config.Default()
	if *path != "" {
		loaded, err := config.Load(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	k, err := kernel.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	done := make(chan struct{})
	k.Fork(nil, "main", threads.Norm, 0, func(self *threads.Thread) {
		k.Log.Info("simulation started")
		close(done)
		k.Sched.Finish(self)
	})

	<-done
}
