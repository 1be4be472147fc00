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

package phystats

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/openthread/otns-phystats/types"
)

func simConfig(interval time.Duration) *Config {
	cfg := DefaultConfig()
	cfg.Mode = ModeSim
	cfg.Interval = interval
	cfg.FlushOnStop = false
	return cfg
}

func nodeConfig(id NodeId) *NodeConfig {
	cfg := DefaultNodeConfig()
	cfg.ID = id
	return &cfg
}

func TestCollector_AddDeleteNode(t *testing.T) {
	c := NewCollector(simConfig(time.Second), &recordingSink{}, nil)

	_, err := c.AddNode(nodeConfig(2))
	require.NoError(t, err)
	_, err = c.AddNode(nodeConfig(1))
	require.NoError(t, err)

	_, err = c.AddNode(nodeConfig(1))
	assert.True(t, errors.Is(err, ErrNodeExists))
	_, err = c.AddNode(nodeConfig(InvalidNodeId))
	assert.Error(t, err)

	assert.Equal(t, []NodeId{1, 2}, c.Nodes())
	assert.NotNil(t, c.GetNode(2))

	require.NoError(t, c.DeleteNode(2))
	assert.Nil(t, c.GetNode(2))
	assert.True(t, errors.Is(c.DeleteNode(2), ErrNodeNotFound))
	assert.Equal(t, []NodeId{1}, c.Nodes())
}

func TestCollector_NodesAreIndependent(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(simConfig(10*time.Microsecond), sink, nil)
	n1, _ := c.AddNode(nodeConfig(1))
	n2, _ := c.AddNode(nodeConfig(2))

	n1.OnStateChange(0, Transmitting)
	n1.OnTransmitPower(10)
	n2.OnStateChange(0, Receiving)
	n2.OnBytesReceived(50)
	c.AdvanceTime(10)

	require.Equal(t, 2, sink.count())
	s1, s2 := n1.LastSample(), n2.LastSample()
	assert.Equal(t, StateDurations{0, 0, 10, 0}, s1.StateDurationsUs)
	assert.Equal(t, 10.0, s1.AvgPowerDbm)
	assert.Equal(t, uint64(0), s1.BytesReceived)
	assert.Equal(t, StateDurations{0, 0, 0, 10}, s2.StateDurationsUs)
	assert.False(t, s2.HasPowerSamples())
	assert.Equal(t, uint64(50), s2.BytesReceived)
}

func TestCollector_SimTimeAnchorsLateNodes(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(simConfig(10*time.Microsecond), sink, nil)
	c.AdvanceTime(25)
	assert.Equal(t, uint64(25), c.CurTimeUs())

	n, _ := c.AddNode(nodeConfig(5))
	c.AdvanceTime(34)
	assert.Nil(t, n.LastSample())
	c.AdvanceTime(35)
	require.NotNil(t, n.LastSample())
	assert.Equal(t, uint64(35), n.LastSample().TimestampUs)

	c.AdvanceTime(20)
	assert.Equal(t, uint64(35), c.CurTimeUs())
}

func TestCollector_StopFlushes(t *testing.T) {
	sink := &recordingSink{}
	cfg := simConfig(time.Second)
	cfg.FlushOnStop = true
	c := NewCollector(cfg, sink, nil)
	n, _ := c.AddNode(nodeConfig(1))

	n.OnStateChange(0, Idle)
	c.AdvanceTime(1500000)
	require.Equal(t, 1, sink.count())

	c.Stop()
	require.Equal(t, 2, sink.count())
	last := sink.get(1)
	assert.Equal(t, uint64(500000), last.IntervalUs)
	assert.Equal(t, uint64(500000), last.StateDurationsUs[Idle])
	assert.True(t, n.IsStopped())

	_, err := c.AddNode(nodeConfig(2))
	assert.Error(t, err)
	c.Stop()
}

func TestCollector_LiveMode(t *testing.T) {
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.Mode = ModeLive
	cfg.Interval = 5 * time.Millisecond
	cfg.FlushOnStop = false
	c := NewCollector(cfg, sink, nil)

	_, err := c.AddNode(nodeConfig(1))
	require.NoError(t, err)
	c.AdvanceTime(1000000)
	assert.Equal(t, 0, sink.count())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	_, err = c.AddNode(nodeConfig(2))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.GetNode(1).LastSample() != nil && c.GetNode(2).LastSample() != nil
	}, 2*time.Second, time.Millisecond)
	c.Stop()
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Interval = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Mode = "replay"
	assert.Error(t, cfg.Validate())
}

func TestMetricSample_Json(t *testing.T) {
	s := &MetricSample{NodeId: 3, TimestampUs: 2000000, IntervalUs: 1000000, BytesReceived: 10,
		ThroughputBps: 80, AvgPowerDbm: NoPowerSamples, StateDurationsUs: StateDurations{1, 2, 3, 4}}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"avg_power_dbm":null`)
	assert.Contains(t, string(data), `"busy":2`)

	var back MetricSample
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsNaN(back.AvgPowerDbm))
	assert.Equal(t, s.StateDurationsUs, back.StateDurationsUs)

	s.AvgPowerDbm = -4.5
	data, err = json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, -4.5, back.AvgPowerDbm)
}

func TestMetricSample_String(t *testing.T) {
	s := &MetricSample{NodeId: 3, TimestampUs: 1500000, IntervalUs: 1000000, AvgPowerDbm: NoPowerSamples,
		StateDurationsUs: StateDurations{250000, 0, 0, 750000}}
	assert.Equal(t, "node<3> t=1.500000s thr=0bps pwr=n/a idle=250000 busy=0 tx=0 rx=750000", s.String())
	assert.Equal(t, 0.75, s.StateFraction(Receiving))
}
