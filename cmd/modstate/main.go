// Command modstate runs a machine described by a YAML script. A small set of
// built-in leaf and condition factories makes scripts self-contained: real
// hosts register their own factories and embed the engine instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modstate/modstate/internal/core/blackboard"
	"github.com/modstate/modstate/internal/core/machine"
	"github.com/modstate/modstate/internal/core/observability/log"
	"github.com/modstate/modstate/internal/core/runtime"
	"github.com/modstate/modstate/internal/server/debug"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML machine script (required)")
		interval   = flag.Duration("interval", 200*time.Millisecond, "tick interval")
		debugAddr  = flag.String("debug-addr", "", "websocket trace listen address, e.g. :8089 (off when empty)")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()
	if *configPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := log.LevelInfo
	if *verbose {
		level = log.LevelDebug
	}
	logger := log.New(level)
	defer func() { _ = logger.Sync() }()

	if err := run(*configPath, *interval, *debugAddr, logger); err != nil {
		logger.Error("modstate exited", log.Err(err))
		os.Exit(1)
	}
}

func run(configPath string, interval time.Duration, debugAddr string, logger *log.Logger) error {
	f, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	cfg, err := machine.LoadYAML(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	bb := blackboard.New()
	reg, err := builtins(bb, logger)
	if err != nil {
		return err
	}

	var opts []machine.Option
	var dbg *debug.Server
	if debugAddr != "" {
		dbg = debug.NewServer(logger)
		opts = append(opts, machine.WithObserver(dbg.Observer()))
	}

	m, err := cfg.Build(reg, opts...)
	if err != nil {
		return fmt.Errorf("build %q: %w", cfg.Name, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-stopCh
		cancel()
	}()

	if dbg != nil {
		go func() { _ = dbg.Run(ctx) }()
		go func() {
			logger.Info("debug stream listening", log.String("addr", debugAddr))
			if err := http.ListenAndServe(debugAddr, dbg); err != nil {
				logger.Error("debug server", log.Err(err))
			}
		}()
	}

	runner := runtime.NewRunner(m,
		runtime.WithBlackboard(bb),
		runtime.WithInterval(interval),
		runtime.WithLogger(logger),
	)
	err = runner.Run(ctx)
	logger.Info("machine stopped", log.Uint64("ticks", m.Tick()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// builtins registers the generic factories scripts can reference without any
// host code: say, wait, set, and the flag/key-equals conditions.
func builtins(bb *blackboard.Blackboard, logger *log.Logger) (*machine.Registry, error) {
	reg := machine.NewRegistry()

	if err := reg.RegisterAction("say", func(params map[string]any) (machine.State, error) {
		msg, _ := params["message"].(string)
		return machine.NewActionFunc("say", func() bool {
			logger.Info("say", log.String("message", msg))
			return true
		}), nil
	}); err != nil {
		return nil, err
	}

	if err := reg.RegisterAction("wait", func(params map[string]any) (machine.State, error) {
		ticks := 1
		switch n := params["ticks"].(type) {
		case int:
			ticks = n
		case float64:
			ticks = int(n)
		}
		left := 0
		a := machine.NewActionFunc("wait", nil)
		a.Fn = func() bool {
			if left == 0 {
				left = ticks
			}
			left--
			return left == 0
		}
		return a, nil
	}); err != nil {
		return nil, err
	}

	if err := reg.RegisterAction("set", func(params map[string]any) (machine.State, error) {
		key, _ := params["key"].(string)
		if key == "" {
			return nil, fmt.Errorf("set: missing key parameter")
		}
		value := params["value"]
		return machine.NewActionFunc("set-"+key, func() bool {
			bb.Set(key, value)
			return true
		}), nil
	}); err != nil {
		return nil, err
	}

	if err := reg.RegisterCondition("flag", func(params map[string]any) (func() bool, error) {
		key, _ := params["key"].(string)
		if key == "" {
			return nil, fmt.Errorf("flag: missing key parameter")
		}
		return func() bool {
			v, _ := bb.GetBool(key)
			return v
		}, nil
	}); err != nil {
		return nil, err
	}

	if err := reg.RegisterCondition("not-flag", func(params map[string]any) (func() bool, error) {
		key, _ := params["key"].(string)
		if key == "" {
			return nil, fmt.Errorf("not-flag: missing key parameter")
		}
		return func() bool {
			v, _ := bb.GetBool(key)
			return !v
		}, nil
	}); err != nil {
		return nil, err
	}

	return reg, nil
}
