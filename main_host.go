//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/mattn/go-tty"
	"golang.org/x/sync/errgroup"

	"kestrel/app"
	"kestrel/hal"
	"kestrel/internal/buildinfo"
	"kestrel/kestrel/workload"
)

var errQuit = errors.New("quit")

func main() {
	var (
		cfg         hal.HostConfig
		acfg        app.Config
		headless    bool
		interactive bool
		scenario    string
		version     bool
	)
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 60, "Frame rate of the host runner.")
	flag.Uint64Var(&cfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.StringVar(&scenario, "scenario", "", "Scenario file to run (default: built-in priority inversion demo).")
	flag.BoolVar(&acfg.Monitor, "monitor", true, "Draw the task table on the display.")
	flag.BoolVar(&interactive, "interactive", false, "Read keys from the terminal: p prints tasks, e raises an error, q quits.")
	flag.BoolVar(&version, "version", false, "Print the version and exit.")
	flag.Parse()

	if version {
		fmt.Println(buildinfo.Banner())
		return
	}

	if scenario != "" {
		sc, err := loadScenario(scenario)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		acfg.Scenario = sc
	}

	if err := run(cfg, acfg, headless, interactive); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg hal.HostConfig, acfg app.Config, headless, interactive bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sys atomic.Pointer[app.System]
	newApp := func(h hal.HAL) func() error {
		s := app.NewSystem(h, acfg)
		sys.Store(s)
		if err := s.Boot(); err != nil {
			return func() error { return err }
		}
		return func() error {
			if ctx.Err() != nil {
				return errQuit
			}
			return s.Step()
		}
	}
	cfg.OnKey = func(r rune) { handleKey(sys.Load(), r, cancel) }

	g, gctx := errgroup.WithContext(ctx)
	if interactive {
		g.Go(func() error { return readKeys(gctx, &sys, cancel) })
	}

	if headless {
		g.Go(func() error {
			defer cancel()
			err := hal.RunHeadless(gctx, newApp, cfg)
			if errors.Is(err, context.Canceled) || errors.Is(err, errQuit) {
				return nil
			}
			return err
		})
		return g.Wait()
	}

	// The window must own the main goroutine.
	err := hal.RunWindow(newApp, cfg)
	if errors.Is(err, errQuit) {
		err = nil
	}
	cancel()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

func loadScenario(path string) (*workload.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc, err := workload.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func readKeys(ctx context.Context, sys *atomic.Pointer[app.System], quit func()) error {
	t, err := tty.Open()
	if err != nil {
		return fmt.Errorf("interactive: %w", err)
	}
	go func() {
		<-ctx.Done()
		t.Close()
	}()

	for {
		r, err := t.ReadRune()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("interactive: %w", err)
		}
		if handleKey(sys.Load(), r, quit) {
			return nil
		}
	}
}

// handleKey serves one console key and reports whether it was quit.
func handleKey(s *app.System, r rune, quit func()) bool {
	switch r {
	case 'q', hal.KeyEscape:
		quit()
		return true
	}
	if s == nil {
		return false
	}
	switch r {
	case 'p':
		s.RequestPrint()
	case 'e':
		s.RaiseError()
	}
	return false
}
