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
	"encoding/json"
	"fmt"
	"math"
	"time"

	. "github.com/openthread/otns-phystats/types"
)

// NoPowerSamples is the AvgPowerDbm value of a window in which no transmit power was reported.
var NoPowerSamples = math.NaN()

// MetricSample is the set of metrics derived for one node and one window. It's never modified after creation.
type MetricSample struct {
	NodeId           NodeId
	TimestampUs      uint64
	IntervalUs       uint64
	BytesReceived    uint64
	ThroughputBps    float64
	AvgPowerDbm      float64
	PowerSamples     uint64
	StateDurationsUs StateDurations
}

func newMetricSample(nodeId NodeId, nowUs uint64, interval time.Duration, snap Snapshot) *MetricSample {
	s := &MetricSample{
		NodeId:           nodeId,
		TimestampUs:      nowUs,
		IntervalUs:       uint64(interval / time.Microsecond),
		BytesReceived:    snap.BytesReceived,
		AvgPowerDbm:      NoPowerSamples,
		PowerSamples:     snap.PowerCount,
		StateDurationsUs: snap.Durations,
	}
	if interval > 0 {
		s.ThroughputBps = float64(snap.BytesReceived) * 8 / interval.Seconds()
	}
	if snap.PowerCount > 0 {
		s.AvgPowerDbm = snap.PowerSum / float64(snap.PowerCount)
	}
	return s
}

// HasPowerSamples returns false if AvgPowerDbm is the NoPowerSamples sentinel.
func (s *MetricSample) HasPowerSamples() bool {
	return !math.IsNaN(s.AvgPowerDbm)
}

// TimeSec returns the sample timestamp in seconds.
func (s *MetricSample) TimeSec() float64 {
	return float64(s.TimestampUs) / 1e6
}

// StateFraction returns the fraction of the interval spent in state st, or 0 for an empty interval.
func (s *MetricSample) StateFraction(st ActivityState) float64 {
	if s.IntervalUs == 0 {
		return 0
	}
	return float64(s.StateDurationsUs[st]) / float64(s.IntervalUs)
}

func (s *MetricSample) String() string {
	power := "n/a"
	if s.HasPowerSamples() {
		power = fmt.Sprintf("%.2fdBm", s.AvgPowerDbm)
	}
	return fmt.Sprintf("%s t=%.6fs thr=%.0fbps pwr=%s idle=%d busy=%d tx=%d rx=%d", GetNodeName(s.NodeId),
		s.TimeSec(), s.ThroughputBps, power,
		s.StateDurationsUs[Idle], s.StateDurationsUs[ChannelBusy],
		s.StateDurationsUs[Transmitting], s.StateDurationsUs[Receiving])
}

type sampleJson struct {
	NodeId        NodeId            `json:"node"`
	TimestampUs   uint64            `json:"time_us"`
	IntervalUs    uint64            `json:"interval_us"`
	BytesReceived uint64            `json:"rx_bytes"`
	ThroughputBps float64           `json:"throughput_bps"`
	AvgPowerDbm   *float64          `json:"avg_power_dbm"`
	PowerSamples  uint64            `json:"power_samples"`
	StatesUs      map[string]uint64 `json:"states_us"`
}

// MarshalJSON encodes the no-samples sentinel as null, since JSON has no NaN.
func (s *MetricSample) MarshalJSON() ([]byte, error) {
	js := sampleJson{
		NodeId:        s.NodeId,
		TimestampUs:   s.TimestampUs,
		IntervalUs:    s.IntervalUs,
		BytesReceived: s.BytesReceived,
		ThroughputBps: s.ThroughputBps,
		PowerSamples:  s.PowerSamples,
		StatesUs:      make(map[string]uint64, NumActivityStates),
	}
	if s.HasPowerSamples() {
		p := s.AvgPowerDbm
		js.AvgPowerDbm = &p
	}
	for _, st := range AllActivityStates {
		js.StatesUs[st.String()] = s.StateDurationsUs[st]
	}
	return json.Marshal(js)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *MetricSample) UnmarshalJSON(data []byte) error {
	var js sampleJson
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	*s = MetricSample{
		NodeId:        js.NodeId,
		TimestampUs:   js.TimestampUs,
		IntervalUs:    js.IntervalUs,
		BytesReceived: js.BytesReceived,
		ThroughputBps: js.ThroughputBps,
		AvgPowerDbm:   NoPowerSamples,
		PowerSamples:  js.PowerSamples,
	}
	if js.AvgPowerDbm != nil {
		s.AvgPowerDbm = *js.AvgPowerDbm
	}
	for name, v := range js.StatesUs {
		st, err := ParseActivityState(name)
		if err != nil {
			return err
		}
		s.StateDurationsUs[st] = v
	}
	return nil
}
