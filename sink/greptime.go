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

package sink

import (
	"context"
	"sync"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/logger"
	"github.com/openthread/otns-phystats/phystats"
	. "github.com/openthread/otns-phystats/types"
)

const DefaultGreptimeTable = "radio_phystats"

// greptimeClient is the part of the greptime ingester client used by GreptimeSink.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

type GreptimeConfig struct {
	Host      string
	Port      int
	Database  string
	Table     string
	RunId     string
	BatchSize int
	Timeout   time.Duration
}

// GreptimeSink writes samples as rows into a GreptimeDB table. Rows are sent in batches of BatchSize; the
// remainder is sent on Close. A window without power samples is stored with NaN as average power.
type GreptimeSink struct {
	client  greptimeClient
	cfg     GreptimeConfig
	lock    sync.Mutex
	pending []*phystats.MetricSample
}

func NewGreptimeSink(cfg GreptimeConfig) (*GreptimeSink, error) {
	gcfg := greptime.NewConfig(cfg.Host).WithDatabase(cfg.Database)
	if cfg.Port > 0 {
		gcfg = gcfg.WithPort(cfg.Port)
	}
	client, err := greptime.NewClient(gcfg)
	if err != nil {
		return nil, errors.Wrapf(err, "greptime sink: connect %s", cfg.Host)
	}
	return newGreptimeSink(client, cfg), nil
}

func newGreptimeSink(client greptimeClient, cfg GreptimeConfig) *GreptimeSink {
	if cfg.Table == "" {
		cfg.Table = DefaultGreptimeTable
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &GreptimeSink{client: client, cfg: cfg}
}

func (gs *GreptimeSink) Emit(sample *phystats.MetricSample) error {
	gs.lock.Lock()
	defer gs.lock.Unlock()

	gs.pending = append(gs.pending, sample)
	if len(gs.pending) < gs.cfg.BatchSize {
		return nil
	}
	return gs.write()
}

func (gs *GreptimeSink) Close() error {
	gs.lock.Lock()
	defer gs.lock.Unlock()
	return gs.write()
}

// write must be called with gs.lock held. Pending rows are discarded, also on failure.
func (gs *GreptimeSink) write() error {
	if len(gs.pending) == 0 {
		return nil
	}
	samples := gs.pending
	gs.pending = nil

	tbl, err := gs.buildTable(samples)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), gs.cfg.Timeout)
	defer cancel()
	if _, err := gs.client.Write(ctx, tbl); err != nil {
		return errors.Wrapf(err, "greptime sink: write %d rows", len(samples))
	}
	logger.Tracef("greptime sink: wrote %d rows", len(samples))
	return nil
}

func (gs *GreptimeSink) buildTable(samples []*phystats.MetricSample) (*table.Table, error) {
	tbl, err := table.New(gs.cfg.Table)
	if err != nil {
		return nil, errors.Wrap(err, "greptime sink: new table")
	}

	columns := []struct {
		name string
		tag  bool
		typ  types.ColumnType
	}{
		{"run_id", true, types.STRING},
		{"node_id", true, types.INT64},
		{"interval_us", false, types.UINT64},
		{"rx_bytes", false, types.UINT64},
		{"throughput_bps", false, types.FLOAT64},
		{"avg_power_dbm", false, types.FLOAT64},
		{"power_samples", false, types.UINT64},
		{"idle_us", false, types.UINT64},
		{"busy_us", false, types.UINT64},
		{"tx_us", false, types.UINT64},
		{"rx_us", false, types.UINT64},
	}
	for _, c := range columns {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "greptime sink: add column %s", c.name)
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MICROSECOND); err != nil {
		return nil, errors.Wrap(err, "greptime sink: add time index")
	}

	for _, s := range samples {
		err := tbl.AddRow(gs.cfg.RunId, int64(s.NodeId), s.IntervalUs, s.BytesReceived, s.ThroughputBps, s.AvgPowerDbm,
			s.PowerSamples, s.StateDurationsUs[Idle], s.StateDurationsUs[ChannelBusy],
			s.StateDurationsUs[Transmitting], s.StateDurationsUs[Receiving],
			time.UnixMicro(int64(s.TimestampUs)))
		if err != nil {
			return nil, errors.Wrap(err, "greptime sink: add row")
		}
	}
	return tbl, nil
}
