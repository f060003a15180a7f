// cmd/bridgectl/run.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/tamzrod/stlink-bridge/internal/hotplug"
	"github.com/tamzrod/stlink-bridge/internal/httpapi"
	"github.com/tamzrod/stlink-bridge/internal/writer"
)

var (
	cmdRun = &cobra.Command{
		Use:   "run",
		Short: "Run the bridge: connect, poll, mirror and serve HTTP",
		Long:  ``,
		Args:  cobra.NoArgs,
		RunE:  runRun,
	}
)

var runListen string

func init() {
	rootCmd.AddCommand(cmdRun)
	cmdRun.Flags().StringVarP(&runListen, "listen", "l", "", "HTTP listen address (overrides http.listen)")
}

func runRun(_ *cobra.Command, _ []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	cfg := &e.cfg.Bridge
	log := e.log

	// Goroutines are waited for after ctx is cancelled.
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Subscribe before Start so the mirror sees the first Connected event.
	res, cancelRes := e.bridge.Poller.Results(16)
	defer cancelRes()
	evs, cancelEvs := e.bridge.Events(16)
	defer cancelEvs()

	// ---- hotplug ----
	if cfg.Hotplug.Source == "netlink" {
		src := hotplug.NewNetlink(log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := src.Run(ctx, e.bridge.Session); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("hotplug source stopped")
			}
		}()
	}

	// ---- session ----
	defer e.shutdown()
	if err := e.start(cfg); err != nil {
		return err
	}

	// ---- mirror ----
	if cfg.Mirror != nil {
		info, _ := e.bridge.Session.Current()
		m, closeMirror, err := writer.Build(cfg.Mirror, info.Device.UniqueID, writer.MirrorOptions{Log: log})
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Run(ctx, res, evs)
			if err := closeMirror(); err != nil {
				log.Warn().Err(err).Msg("mirror close")
			}
		}()
	}

	// ---- http ----
	listen := cfg.HTTP.Listen
	if runListen != "" {
		listen = runListen
	}
	if listen != "" {
		opts := httpapi.Options{Log: log}
		if e.reg != nil {
			e.reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			opts.Gatherer = e.reg
		}
		srv := httpapi.New(e.bridge, opts)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, listen); err != nil {
				log.Error().Err(err).Msg("http server stopped")
				stop()
			}
		}()
	}

	log.Info().Msg("bridge running")
	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nil
}
