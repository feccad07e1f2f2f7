package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kallsyms/nanokern/internal/config"
	"github.com/kallsyms/nanokern/internal/klog"
	"github.com/kallsyms/nanokern/internal/metrics"
	"github.com/kallsyms/nanokern/pkg/console"
	"github.com/kallsyms/nanokern/pkg/kernel"
	"github.com/kallsyms/nanokern/pkg/trap"
)

// runCommand implements subcommands.Command for "nanokern run": it boots a
// kernel, optionally spawns a handful of synthetic root tasks (there is no
// ELF loader in this port, so "run" can't take a binary the way JOS's
// bootloader does), and drives the scheduler/trap loop until the metrics
// server fails or the process is interrupted; an idle table only makes the
// loop skip that tick.
type runCommand struct {
	configPath string
	tasks      int
	fsServer   bool
}

func (*runCommand) Name() string     { return "run" }
func (*runCommand) Synopsis() string { return "boot the kernel and run the scheduler loop" }
func (*runCommand) Usage() string {
	return "run [-config path] [-tasks N]\n"
}

func (r *runCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.configPath, "config", "", "path to a TOML config file")
	f.IntVar(&r.tasks, "tasks", 0, "number of synthetic idle root tasks to seed the table with")
	f.BoolVar(&r.fsServer, "fs-server", false, "seed one additional FS_SERVER task, permitted to call map_physical_region")
}

func (r *runCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := config.Load(r.configPath)
	if err != nil {
		fmt.Println("nanokern: loading config:", err)
		return subcommands.ExitFailure
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	format := klog.FormatText
	if cfg.LogFormat == "json" {
		format = klog.FormatJSON
	}
	log := klog.New(os.Stderr, level, format)

	reg := prometheus.NewRegistry()
	m := metrics.NewScheduler(reg)

	k := kernel.New(cfg.TaskTableCapacity, log, m)
	if cfg.Interactive {
		host, err := console.NewHost()
		if err != nil {
			log.Warnf("console: %v, running headless", err)
		} else {
			k.Console = host
			defer host.Close()
		}
	}

	for i := 0; i < r.tasks; i++ {
		if _, err := k.CreateTask(); err != nil {
			log.Errorf("seeding task %d: %v", i, err)
			break
		}
	}
	if r.fsServer {
		if _, err := k.CreateTaskWithType(kernel.TypeFSServer); err != nil {
			log.Errorf("seeding fs-server task: %v", err)
		}
	}

	d := trap.New(k, log, m)

	group, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		group.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		go func() {
			<-gctx.Done()
			srv.Close()
		}()
	}

	group.Go(func() error {
		return bootLoop(gctx, k, d, log, cfg.TickInterval)
	})

	if err := group.Wait(); err != nil {
		log.Errorf("nanokern: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// bootLoop is the Go counterpart of the source's interrupt-driven
// trap()/sched_yield() cycle, collapsed into a single cooperative loop
// since there is no real hardware timer or IDT here: each tick plays the
// role of one IRQ_TIMER firing, picking the next runnable task and
// delivering any signal it's owed; nothing else runs between ticks.
func bootLoop(ctx context.Context, k *kernel.Kernel, d *trap.Dispatcher, log *klog.Logger, tick time.Duration) error {
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			task, ok := k.Schedule()
			if !ok {
				log.Debugf("boot: idle, nothing runnable")
				continue
			}
			d.DeliverPendingSignal(task)
		}
	}
}
