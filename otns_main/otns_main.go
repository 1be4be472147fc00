// Copyright (c) 2026, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package otns_main runs the collector with its event listener, sink pipeline and console.
package otns_main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/cli"
	"github.com/openthread/otns-phystats/config"
	"github.com/openthread/otns-phystats/dispatcher"
	"github.com/openthread/otns-phystats/logger"
	"github.com/openthread/otns-phystats/phystats"
	"github.com/openthread/otns-phystats/progctx"
)

type Options struct {
	// Source, if not nil, is replayed into the dispatcher after startup.
	Source dispatcher.Source
	// Console enables the interactive CLI. Without it, the program exits once Source is exhausted.
	Console *cli.Options
	// RunId names the output files; a random one is generated if empty.
	RunId string
}

func Main(ctx *progctx.ProgCtx, cfg *config.Config, opts Options) error {
	level, err := logger.ParseLevelString(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	if opts.RunId == "" {
		opts.RunId = uuid.NewString()
	}
	logger.Infof("run %s: mode=%s interval=%v output=%s", opts.RunId, cfg.Mode, cfg.Interval, cfg.OutputDir)

	pipeline, err := newPipeline(cfg, opts.RunId)
	if err != nil {
		return err
	}
	collector := phystats.NewCollector(cfg.Phystats(), pipeline.Sink(), nil)

	d, err := dispatcher.NewDispatcher(ctx, cfg.Dispatcher(), collector)
	if err != nil {
		_ = pipeline.Close()
		return err
	}

	handleSignals(ctx)
	go d.Run()
	collector.Start(ctx)

	if pipeline.Stream != nil {
		ctx.WaitAdd("stream", 1)
		go func() {
			defer ctx.WaitDone("stream")
			if err := pipeline.Stream.Run(); err != nil && ctx.Err() == nil {
				logger.Errorf("metric stream stopped unexpectedly: %+v", err)
			}
		}()
		ctx.Defer(func() {
			_ = pipeline.Stream.Close()
		})
	}

	if opts.Source != nil {
		go func() {
			n, err := d.Replay(opts.Source, cfg.Speed)
			<-d.Flush()
			if err != nil {
				logger.Errorf("replay stopped after %d events: %+v", n, err)
			} else {
				logger.Infof("replay done: %d events", n)
			}
			if opts.Console == nil {
				ctx.Cancel("replay done")
			}
		}()
	}

	if opts.Console != nil {
		console := cli.NewConsole(opts.Console)
		logger.SetStdoutCallback(console)
		rt := cli.NewCmdRunner(ctx, d, pipeline.Energy, cfg.OutputDir)
		stdin := opts.Console.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		ctx.Defer(func() {
			_ = stdin.Close()
		})
		go func() {
			err := console.Run(rt)
			ctx.Cancel(errors.Wrapf(err, "console exit"))
		}()
	}

	<-ctx.Done()
	logger.Debugf("waiting for collector to stop gracefully ...")
	ctx.Wait()
	collector.Stop()
	return shutdown(cfg, pipeline, collector, d)
}

func shutdown(cfg *config.Config, pipeline *Pipeline, collector *phystats.Collector, d *dispatcher.Dispatcher) error {
	counters := d.Counters()
	logger.Infof("events: state=%d rx=%d tx=%d node=%d malformed=%d unknown=%d late=%d", counters.StateEvents,
		counters.RxDoneEvents, counters.TxStartEvents, counters.NodeEvents, counters.MalformedEvents,
		counters.UnknownNodeEvents, counters.LateEvents)

	err := pipeline.Close()
	if pipeline.Energy != nil {
		if e := pipeline.Energy.SaveEnergyDataToFile(cfg.OutputDir, pipeline.RunId, collector.CurTimeUs()); e != nil {
			logger.Errorf("save energy data: %v", e)
		}
	}
	logger.Sync()
	return err
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")
		defer signal.Stop(c)

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}
