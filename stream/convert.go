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

package stream

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/openthread/otns-phystats/phystats"
	. "github.com/openthread/otns-phystats/types"
)

const heartbeatField = "heartbeat"

// SampleToStruct converts a sample to its wire form. A window without power samples has a null avg_power_dbm.
func SampleToStruct(s *phystats.MetricSample) (*structpb.Struct, error) {
	states := make(map[string]interface{}, NumActivityStates)
	for _, st := range AllActivityStates {
		states[st.String()] = s.StateDurationsUs[st]
	}
	var power interface{}
	if s.HasPowerSamples() {
		power = s.AvgPowerDbm
	}
	return structpb.NewStruct(map[string]interface{}{
		"node":           s.NodeId,
		"time_us":        s.TimestampUs,
		"interval_us":    s.IntervalUs,
		"rx_bytes":       s.BytesReceived,
		"throughput_bps": s.ThroughputBps,
		"avg_power_dbm":  power,
		"power_samples":  s.PowerSamples,
		"states_us":      states,
	})
}

// StructToSample is the inverse of SampleToStruct.
func StructToSample(m *structpb.Struct) (*phystats.MetricSample, error) {
	f := m.GetFields()
	if _, ok := f["node"]; !ok {
		return nil, errors.Errorf("not a sample message: %v", m)
	}
	s := &phystats.MetricSample{
		NodeId:        NodeId(f["node"].GetNumberValue()),
		TimestampUs:   uint64(f["time_us"].GetNumberValue()),
		IntervalUs:    uint64(f["interval_us"].GetNumberValue()),
		BytesReceived: uint64(f["rx_bytes"].GetNumberValue()),
		ThroughputBps: f["throughput_bps"].GetNumberValue(),
		AvgPowerDbm:   phystats.NoPowerSamples,
		PowerSamples:  uint64(f["power_samples"].GetNumberValue()),
	}
	if p, ok := f["avg_power_dbm"].GetKind().(*structpb.Value_NumberValue); ok {
		s.AvgPowerDbm = p.NumberValue
	}
	for name, v := range f["states_us"].GetStructValue().GetFields() {
		st, err := ParseActivityState(name)
		if err != nil {
			return nil, err
		}
		s.StateDurationsUs[st] = uint64(v.GetNumberValue())
	}
	return s, nil
}

// IsHeartbeat returns true for the keep-alive messages sent on idle streams.
func IsHeartbeat(m *structpb.Struct) bool {
	_, ok := m.GetFields()[heartbeatField]
	return ok
}

func heartbeatMessage() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		heartbeatField: structpb.NewBoolValue(true),
	}}
}

// filterNode returns the node a subscription is limited to, or InvalidNodeId for all nodes.
func filterNode(filter *structpb.Struct) NodeId {
	v, ok := filter.GetFields()["node"]
	if !ok {
		return InvalidNodeId
	}
	return NodeId(v.GetNumberValue())
}
