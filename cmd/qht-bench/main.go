// Command qht-bench stresses a qht.Table with concurrent lookups, updates
// and resizes and reports throughput and the shape of the table.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	flags "github.com/jessevdk/go-flags"
	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("qht-bench")

var stderrLogFormat = logging.MustStringFormatter(
	`%{color:reset}%{color}%{time:15:04:05.000} [%{module}] [%{level}] %{message}`,
)

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	setupLogging(opts.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := run(ctx, &opts); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *Options) error {
	cfg, err := opts.config()
	if err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	log.Infof("running for %s: %d rw workers, update rate %.2f%%, %d resize workers",
		cfg.duration, cfg.workers, cfg.updateRate*100, cfg.resizers)

	res, tbl := newBench(cfg).run(ctx)
	res.print(os.Stdout, cfg)
	if opts.Stats {
		fmt.Fprint(os.Stdout, tbl.Stats())
	}
	return nil
}

func setupLogging(level string) {
	backend := logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), stderrLogFormat)
	logging.SetBackend(backend)

	var lvl logging.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = logging.DEBUG
	case "info":
		lvl = logging.INFO
	case "notice":
		lvl = logging.NOTICE
	case "warning":
		lvl = logging.WARNING
	case "error":
		lvl = logging.ERROR
	case "critical":
		lvl = logging.CRITICAL
	default:
		lvl = logging.INFO
	}
	logging.SetLevel(lvl, "")
}
