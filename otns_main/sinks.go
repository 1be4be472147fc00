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

package otns_main

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/openthread/otns-phystats/config"
	"github.com/openthread/otns-phystats/energy"
	"github.com/openthread/otns-phystats/logger"
	"github.com/openthread/otns-phystats/phystats"
	"github.com/openthread/otns-phystats/sink"
	"github.com/openthread/otns-phystats/stream"
)

// Pipeline is the chain of sinks that samples of all nodes are emitted to. Slow sinks sit behind an
// AsyncSink so that a Reporter never waits for disk or network.
type Pipeline struct {
	RunId  string
	Memory *sink.MemorySink
	Energy *energy.EnergyAnalyser
	Stream *stream.Server

	async *sink.AsyncSink
	multi *sink.MultiSink
}

func newPipeline(cfg *config.Config, runId string) (*Pipeline, error) {
	p := &Pipeline{
		RunId: runId,
		multi: sink.NewMultiSink(),
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create output dir %s", cfg.OutputDir)
	}

	var err error
	add := func(s phystats.Sink, e error, name string) {
		if e != nil {
			err = multierr.Append(err, errors.Wrapf(e, "%s sink", name))
			return
		}
		p.multi.AddSink(s)
		logger.Debugf("%s sink enabled", name)
	}

	if cfg.Sinks.Console {
		add(sink.NewLogSink(os.Stdout), nil, "console")
	}
	if cfg.Sinks.Csv {
		s, e := sink.NewCsvSink(cfg.OutputDir, runId)
		add(s, e, "csv")
	}
	if cfg.Sinks.Jsonl {
		s, e := sink.NewJsonlSink(cfg.Path(runId + ".jsonl"))
		add(s, e, "jsonl")
	}
	if cfg.Sinks.Memory > 0 {
		p.Memory = sink.NewMemorySink(cfg.Sinks.Memory)
		add(p.Memory, nil, "memory")
	}
	if cfg.Sinks.Energy {
		p.Energy = energy.NewEnergyAnalyser()
		p.Energy.SetTitle(runId)
		add(p.Energy, nil, "energy")
	}
	if sc := cfg.Sinks.Sqlite; sc.Enabled {
		s, e := sink.NewSqliteSink(sink.SqliteConfig{
			DBPath:       cfg.Path(sc.Path),
			RunId:        runId,
			BatchSize:    sc.BatchSize,
			BatchTimeout: sc.BatchTimeout,
		})
		add(s, e, "sqlite")
	}
	if tc := cfg.Sinks.Tstorage; tc.Enabled {
		s, e := sink.NewTstorageSink(cfg.Path(tc.Path))
		add(s, e, "tstorage")
	}
	if lc := cfg.Sinks.Latest; lc.Enabled {
		s, e := sink.NewLatestSink(cfg.Path(lc.Path), runId)
		add(s, e, "latest")
	}
	if gc := cfg.Sinks.Greptime; gc.Enabled {
		s, e := sink.NewGreptimeSink(sink.GreptimeConfig{
			Host:      gc.Host,
			Port:      gc.Port,
			Database:  gc.Database,
			Table:     gc.Table,
			RunId:     runId,
			BatchSize: gc.BatchSize,
			Timeout:   gc.Timeout,
		})
		add(s, e, "greptime")
	}
	if cfg.Stream.Enabled {
		p.Stream = stream.NewServer(cfg.Stream.Address)
		p.Stream.HeartbeatInterval = cfg.Stream.Heartbeat
		add(p.Stream, nil, "stream")
	}

	if err != nil {
		_ = p.multi.Close()
		return nil, err
	}
	p.async = sink.NewAsyncSink(p.multi, cfg.Sinks.QueueSize)
	return p, nil
}

// Sink returns the entry point of the pipeline.
func (p *Pipeline) Sink() phystats.Sink {
	return p.async
}

// Close drains the queue and closes all sinks.
func (p *Pipeline) Close() error {
	err := p.async.Close()
	if dropped := p.async.Dropped(); dropped > 0 {
		logger.Warnf("%d samples dropped by a full sink queue", dropped)
	}
	return err
}
