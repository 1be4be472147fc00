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
	. "github.com/openthread/otns-phystats/types"
)

// StateDurations holds the time spent per ActivityState, in microseconds. Being an array, a copy is an
// independent snapshot.
type StateDurations [NumActivityStates]uint64

// Total returns the summed time over all states.
func (d StateDurations) Total() uint64 {
	var total uint64
	for _, v := range d {
		total += v
	}
	return total
}

// Seconds returns the time spent in state s, in seconds.
func (d StateDurations) Seconds(s ActivityState) float64 {
	return float64(d[s]) / 1e6
}

// Snapshot is a copy of the accumulated counters of one window.
type Snapshot struct {
	Durations     StateDurations
	BytesReceived uint64
	PowerSum      float64
	PowerCount    uint64
}

// WindowAccumulator accumulates time-in-state, received bytes and transmit power samples of one node over
// the current reporting window. It is not safe for concurrent use; NodeMonitor serializes access.
type WindowAccumulator struct {
	nodeId          NodeId
	durations       StateDurations
	bytesReceived   uint64
	powerSum        float64
	powerCount      uint64
	lastTimestampUs uint64
	lastState       ActivityState
	windowStartUs   uint64
	started         bool
}

// NewWindowAccumulator creates an accumulator that assumes initialState until the first transition.
func NewWindowAccumulator(nodeId NodeId, initialState ActivityState) *WindowAccumulator {
	if !initialState.IsValid() {
		initialState = Idle
	}
	return &WindowAccumulator{
		nodeId:    nodeId,
		lastState: initialState,
	}
}

// Transition credits the time since the last transition to the previous state and switches to state.
// The first transition only anchors the time. A timestamp before the last transition credits nothing and
// leaves the anchor in place; the state switch is still applied. An invalid state is ignored entirely.
func (acc *WindowAccumulator) Transition(nowUs uint64, state ActivityState) error {
	if !state.IsValid() {
		return &ContractViolation{NodeId: acc.nodeId, Reason: "unknown state " + state.String(),
			NowUs: nowUs, LastUs: acc.lastTimestampUs}
	}

	if !acc.started {
		acc.started = true
		acc.lastTimestampUs = nowUs
		acc.lastState = state
		return nil
	}

	err := acc.credit(nowUs)
	acc.lastState = state
	return err
}

// Advance credits the open interval of the current state up to nowUs, without changing state.
func (acc *WindowAccumulator) Advance(nowUs uint64) error {
	if !acc.started {
		return nil
	}
	return acc.credit(nowUs)
}

func (acc *WindowAccumulator) credit(nowUs uint64) error {
	if nowUs < acc.lastTimestampUs {
		return &ContractViolation{NodeId: acc.nodeId, Reason: "timestamp went backwards",
			NowUs: nowUs, LastUs: acc.lastTimestampUs}
	}
	acc.durations[acc.lastState] += nowUs - acc.lastTimestampUs
	acc.lastTimestampUs = nowUs
	return nil
}

func (acc *WindowAccumulator) AddBytes(byteCount uint64) {
	acc.bytesReceived += byteCount
}

func (acc *WindowAccumulator) AddPowerSample(powerDbm float64) {
	acc.powerSum += powerDbm
	acc.powerCount++
}

// Open marks nowUs as the start of the first window. It has no effect on the time-in-state accounting, which
// starts with the first transition.
func (acc *WindowAccumulator) Open(nowUs uint64) {
	acc.windowStartUs = nowUs
}

// Snapshot returns a copy of the counters of the current window.
func (acc *WindowAccumulator) Snapshot() Snapshot {
	return Snapshot{
		Durations:     acc.durations,
		BytesReceived: acc.bytesReceived,
		PowerSum:      acc.powerSum,
		PowerCount:    acc.powerCount,
	}
}

// Reset zeroes all counters and starts a new window at nowUs. The current state carries over into the new
// window and is credited from nowUs onward. The anchor is never moved backwards.
func (acc *WindowAccumulator) Reset(nowUs uint64) {
	acc.durations = StateDurations{}
	acc.bytesReceived = 0
	acc.powerSum = 0
	acc.powerCount = 0
	if nowUs > acc.lastTimestampUs || !acc.started {
		acc.lastTimestampUs = nowUs
	}
	acc.windowStartUs = acc.lastTimestampUs
}

// State returns the current activity state.
func (acc *WindowAccumulator) State() ActivityState {
	return acc.lastState
}

// LastTimestampUs returns the time of the last transition or window start, whichever is later.
func (acc *WindowAccumulator) LastTimestampUs() uint64 {
	return acc.lastTimestampUs
}

// WindowStartUs returns the start time of the current window.
func (acc *WindowAccumulator) WindowStartUs() uint64 {
	return acc.windowStartUs
}

// Started returns true once the first transition was received.
func (acc *WindowAccumulator) Started() bool {
	return acc.started
}
