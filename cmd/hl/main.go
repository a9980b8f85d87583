package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	urfavecli "github.com/urfave/cli/v2"

	"github.com/tempestlab/hl/cli"
	"github.com/tempestlab/hl/follow"
	"github.com/tempestlab/hl/indexcache"
	"github.com/tempestlab/hl/logging"
	"github.com/tempestlab/hl/merge"
	"github.com/tempestlab/hl/pipeline"
)

func main() {
	app := cli.App(Run)
	if err := app.Run(os.Args); err != nil {
		if ec, ok := err.(urfavecli.ExitCoder); ok {
			if msg := ec.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, "hl:", msg)
			}
			os.Exit(ec.ExitCode())
		}
		fmt.Fprintln(os.Stderr, "hl:", err)
		os.Exit(1)
	}
}

// Run dispatches to the mode §6.1's flags select, after wiring Ctrl-C
// handling: the first InterruptIgnoreCount signals are swallowed (§4.H),
// the next one cancels ctx. Follow mode ignores this entirely and
// reacts to its own first Ctrl-C (§4.L) — the outer cancellation still
// fires alongside it, harmlessly.
func Run(s cli.Settings, stdout, stderr *os.File) error {
	log := logging.New(s.Verbose)
	merge.SetLogger(log)
	follow.SetLogger(log)
	indexcache.SetLogger(log)

	controller := pipeline.NewCancelController(s.InterruptIgnoreCount)
	ctx, stop := controller.Context(context.Background())
	defer stop()

	var err error
	switch {
	case s.DumpIndex:
		err = runDumpIndex(s, stdout, stderr)
	case s.Follow:
		err = runFollow(ctx, s, stdout, stderr)
	case s.Sort:
		err = runSorted(s, stdout, stderr)
	default:
		err = runPlain(ctx, s, stdout, stderr)
	}

	if err != nil && errors.Is(err, context.Canceled) {
		return CanceledError{}
	}
	return err
}
