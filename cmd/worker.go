package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pixeldup/dids/internal/config"
	"github.com/pixeldup/dids/internal/dao"
	"github.com/pixeldup/dids/internal/dispatch"
	"github.com/pixeldup/dids/internal/index"
)

// runWorker is the entry point for a re-exec'd child process, standing
// in for the reference implementation's forked command worker: it
// reconnects to the DAO, rebuilds the Index, runs exactly one command,
// and writes its reply to stdout (piped by the parent straight to the
// client connection — see internal/serverloop.Server.fork).
func runWorker(args []string) int {
	fs := flag.NewFlagSet("dids-worker", flag.ContinueOnError)
	cmdUpper := fs.String("cmd", "", "command name, uppercase")
	argLine := fs.String("args", "", "command argument line")
	dsn := fs.String("dsn", "", "DAO connection string")
	miniatureSize := fs.Int("miniature-size", 16, "miniature side length")
	maxerrBase := fs.Uint64("maxerr-base", 35000, "base SSD threshold")
	quickMultiplier := fs.Uint64("quick-multiplier", 10, "quickcompare threshold multiplier")
	fullWorkerMultiplier := fs.Int("full-worker-multiplier", 2, "fullcompare worker pool multiplier")
	progressInterval := fs.Int("progress-interval", 5000, "fullcompare progress report interval, in work-pulls")
	listenTimeout := fs.String("listen-timeout", "60s", "listen timeout, reused as debug_sleep's duration basis")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "dids-worker: failed to parse args: %v\n", err)
		return 1
	}

	timeout, err := time.ParseDuration(*listenTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dids-worker: invalid listen-timeout: %v\n", err)
		return 1
	}

	cfg := config.Config{
		MiniatureSize:        *miniatureSize,
		MaxErrBase:           uint32(*maxerrBase),
		QuickMultiplier:      uint32(*quickMultiplier),
		FullWorkerMultiplier: *fullWorkerMultiplier,
		ProgressInterval:     *progressInterval,
		ListenTimeout:        timeout,
		DSN:                  *dsn,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := dao.Open(ctx, cfg.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dids-worker: failed to open DAO: %v\n", err)
		return 1
	}
	defer d.Close(ctx)

	disp := &dispatch.Dispatcher{
		Index:  index.New(),
		DAO:    d,
		Config: cfg,
	}

	full := toLowerCommand(*cmdUpper)
	if *argLine != "" {
		full = full + " " + *argLine
	}

	disp.Execute(ctx, full, os.Stdout)
	return 0
}

func toLowerCommand(upper string) string {
	b := []byte(upper)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}
