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
	"strconv"
	"time"

	"github.com/nakabonne/tstorage"
	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/phystats"
	. "github.com/openthread/otns-phystats/types"
)

// Metric names of the series written by TstorageSink. Each series is labelled with the node id.
const (
	MetricThroughput  = "phystats_throughput_bps"
	MetricRxBytes     = "phystats_rx_bytes"
	MetricAvgPower    = "phystats_avg_power_dbm"
	MetricStatePrefix = "phystats_state_us_"
)

// TstorageSink writes samples as time series into an embedded tstorage database, with microsecond timestamps.
// An empty data path keeps the series in memory only.
type TstorageSink struct {
	storage tstorage.Storage
}

func NewTstorageSink(dataPath string) (*TstorageSink, error) {
	opts := []tstorage.Option{
		tstorage.WithTimestampPrecision(tstorage.Microseconds),
		tstorage.WithPartitionDuration(time.Hour),
	}
	if dataPath != "" {
		opts = append(opts, tstorage.WithDataPath(dataPath))
	}
	storage, err := tstorage.NewStorage(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "tstorage sink: open storage")
	}
	return &TstorageSink{storage: storage}, nil
}

func nodeLabels(id NodeId) []tstorage.Label {
	return []tstorage.Label{{Name: "node", Value: strconv.Itoa(id)}}
}

func StateMetric(st ActivityState) string {
	return MetricStatePrefix + st.String()
}

func (ts *TstorageSink) Emit(s *phystats.MetricSample) error {
	labels := nodeLabels(s.NodeId)
	t := int64(s.TimestampUs)
	rows := []tstorage.Row{
		{Metric: MetricThroughput, Labels: labels, DataPoint: tstorage.DataPoint{Timestamp: t, Value: s.ThroughputBps}},
		{Metric: MetricRxBytes, Labels: labels, DataPoint: tstorage.DataPoint{Timestamp: t, Value: float64(s.BytesReceived)}},
	}
	if s.HasPowerSamples() {
		rows = append(rows, tstorage.Row{Metric: MetricAvgPower, Labels: labels,
			DataPoint: tstorage.DataPoint{Timestamp: t, Value: s.AvgPowerDbm}})
	}
	for _, st := range AllActivityStates {
		rows = append(rows, tstorage.Row{Metric: StateMetric(st), Labels: labels,
			DataPoint: tstorage.DataPoint{Timestamp: t, Value: float64(s.StateDurationsUs[st])}})
	}
	return ts.storage.InsertRows(rows)
}

// Select returns the points of a metric of one node in the time range [startUs, endUs).
func (ts *TstorageSink) Select(metric string, id NodeId, startUs, endUs uint64) ([]*tstorage.DataPoint, error) {
	points, err := ts.storage.Select(metric, nodeLabels(id), int64(startUs), int64(endUs))
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return nil, nil
	}
	return points, err
}

func (ts *TstorageSink) Close() error {
	return ts.storage.Close()
}
