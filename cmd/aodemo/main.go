// Command aodemo is a worked example of the aokit framework: a "ticker"
// active object toggling between two states on a periodic time event,
// publishing a signal each time it enters "on", and a "watcher" active object that
// subscribes to it and keeps a running count. It exists to give every wired
// component (Context, Pool, Pub/Sub, TimeEvent, Port, TraceSink) at least
// one real caller outside the test suite.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/kestrelsys/aokit"
	"github.com/kestrelsys/aokit/internal/hsm"
	"github.com/kestrelsys/aokit/internal/logging"
)

const (
	sigTick  aokit.Signal = aokit.UserSigBase
	sigBlink aokit.Signal = aokit.UserSigBase + 1
)

const (
	prioWatcher uint32 = 1
	prioTicker  uint32 = 2
)

func main() {
	var (
		interval = flag.Duration("interval", 500*time.Millisecond, "tick period for the demo blinker")
		verbose  = flag.Bool("v", false, "verbose (debug-level) logging and tracing")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	cfg := aokit.DefaultConfig()
	port := aokit.DefaultPort{Logger: logger}
	// LoggingTraceSink's output is gated by the logger's own level, so
	// trace records only appear once -v raises it to debug — no separate
	// enabled flag needed.
	trace := aokit.LoggingTraceSink{Logger: logger}

	ac, err := aokit.NewContext(cfg, port, trace, logger)
	if err != nil {
		logger.Error("failed to build context", "error", err)
		os.Exit(1)
	}

	if err := ac.InitPools(16, 32, 128); err != nil {
		logger.Error("failed to init event pools", "error", err)
		os.Exit(1)
	}

	watcher := ac.NewActiveObject("watcher", watcherTop(), false)
	if err := watcher.Start(prioWatcher, 8); err != nil {
		logger.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	ac.Subscribe(watcher, sigBlink)

	ticker := ac.NewActiveObject("ticker", tickerTop(ac), false)
	if err := ticker.Start(prioTicker, 8); err != nil {
		logger.Error("failed to start ticker", "error", err)
		os.Exit(1)
	}

	tickEvt := ac.NewTimeEvent(sigTick, 0, ticker)
	tickEvt.ArmIn(1, 1)
	if err := ac.StartTicking(0, *interval); err != nil {
		logger.Error("failed to start tick source", "error", err)
		os.Exit(1)
	}

	logger.Info("aodemo running", "interval", interval.String())
	fmt.Printf("aodemo running, toggling every %s. Press Ctrl+C to stop.\n", interval)
	fmt.Printf("Send SIGUSR1 (kill -USR1 %d) to dump metrics and goroutine stacks.\n", os.Getpid())

	dumpCh := make(chan os.Signal, 1)
	signal.Notify(dumpCh, syscall.SIGUSR1)
	go func() {
		for range dumpCh {
			dumpDiagnostics(ac, logger)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	done := make(chan struct{})
	go func() {
		ac.Shutdown()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(2 * time.Second):
		logger.Warn("shutdown timed out, forcing exit")
	}
}

// tickerTop builds the two-state blinker: off <-> on, each sigTick toggling
// to the other state. Entering "on" publishes sigBlink, pulling a dynamic
// event from ac's pool on every second entry and a static one otherwise, so
// both NewEvent/recycle and NewStaticEvent get exercised in one demo.
func tickerTop(ac *aokit.Context) *hsm.State {
	var root, off, on *hsm.State
	toggles := 0

	off = hsm.New("off", func(m *hsm.Machine, e hsm.Event) hsm.Result {
		switch e.Signal() {
		case hsm.SigEntry:
			logging.Default().Debugf("ticker: off")
			return hsm.ResultHandled
		case hsm.SigExit, hsm.SigInit:
			return hsm.ResultHandled
		case sigTick:
			return m.Tran(on)
		}
		return m.Super(root)
	})

	on = hsm.New("on", func(m *hsm.Machine, e hsm.Event) hsm.Result {
		switch e.Signal() {
		case hsm.SigEntry:
			logging.Default().Debugf("ticker: on")
			toggles++
			if toggles%2 == 0 {
				if evt, ok := ac.NewEvent(8, 1, sigBlink); ok {
					ac.Publish(evt)
				}
			} else {
				ac.Publish(aokit.NewStaticEvent(sigBlink))
			}
			return hsm.ResultHandled
		case hsm.SigExit, hsm.SigInit:
			return hsm.ResultHandled
		case sigTick:
			return m.Tran(off)
		}
		return m.Super(root)
	})

	root = hsm.New("ticker-root", func(m *hsm.Machine, e hsm.Event) hsm.Result {
		switch e.Signal() {
		case hsm.SigInit:
			return m.Tran(off)
		case hsm.SigEntry, hsm.SigExit:
			return hsm.ResultHandled
		}
		return m.Super(hsm.Top)
	})
	return root
}

func watcherTop() *hsm.State {
	count := 0
	var root, idle *hsm.State
	idle = hsm.New("watcher-idle", func(m *hsm.Machine, e hsm.Event) hsm.Result {
		switch e.Signal() {
		case hsm.SigEntry, hsm.SigExit, hsm.SigInit:
			return hsm.ResultHandled
		case sigBlink:
			count++
			logging.Default().Infof("watcher: blink #%d", count)
			return hsm.ResultHandled
		}
		return m.Super(root)
	})

	root = hsm.New("watcher-root", func(m *hsm.Machine, e hsm.Event) hsm.Result {
		switch e.Signal() {
		case hsm.SigInit:
			return m.Tran(idle)
		case hsm.SigEntry, hsm.SigExit:
			return hsm.ResultHandled
		}
		return m.Super(hsm.Top)
	})
	return root
}

func dumpDiagnostics(ac *aokit.Context, logger *logging.Logger) {
	snap := ac.Metrics().Snapshot()
	logger.Info("=== metrics snapshot ===",
		"dispatches", snap.DispatchCount,
		"publishes", snap.PublishCount,
		"timer_fires", snap.TimerFireCount,
		"tick_jitter_ns", snap.TickJitterNanos,
		"pool_get_failures", snap.PoolGetFailures,
		"queue_drops", snap.QueueDropCount)

	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	fmt.Fprintf(os.Stderr, "\n=== GOROUTINE STACK DUMP ===\n%s\n=== END STACK DUMP ===\n\n", buf[:n])

	filename := fmt.Sprintf("aodemo-stacks-%d.txt", os.Getpid())
	if f, err := os.Create(filename); err == nil {
		defer f.Close()
		f.Write(buf[:n])
		fmt.Fprintf(f, "\n\n=== GOROUTINE PROFILE ===\n")
		pprof.Lookup("goroutine").WriteTo(f, 2)
		logger.Info("stack trace written to file", "file", filename)
	}
}

