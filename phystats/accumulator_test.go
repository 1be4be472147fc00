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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/openthread/otns-phystats/types"
)

func TestWindowAccumulator_FirstTransitionAnchors(t *testing.T) {
	acc := NewWindowAccumulator(1, Idle)
	assert.False(t, acc.Started())

	require.NoError(t, acc.Transition(100, Transmitting))
	assert.True(t, acc.Started())
	assert.Equal(t, Transmitting, acc.State())
	assert.Equal(t, uint64(100), acc.LastTimestampUs())
	assert.Equal(t, uint64(0), acc.Snapshot().Durations.Total())
}

func TestWindowAccumulator_Conservation(t *testing.T) {
	acc := NewWindowAccumulator(1, Idle)
	times := []uint64{3, 3, 10, 11, 25, 40, 41, 77, 100}
	states := []ActivityState{Idle, Receiving, ChannelBusy, Transmitting, Idle, Receiving, Idle, ChannelBusy, Idle}
	for i := range times {
		require.NoError(t, acc.Transition(times[i], states[i]))
	}
	require.NoError(t, acc.Advance(130))

	d := acc.Snapshot().Durations
	assert.Equal(t, uint64(130-3), d.Total())
	assert.Equal(t, StateDurations{81, 24, 14, 8}, d)
}

func TestWindowAccumulator_NonMonotonicTime(t *testing.T) {
	acc := NewWindowAccumulator(2, Idle)
	require.NoError(t, acc.Transition(10, Transmitting))

	err := acc.Transition(5, Receiving)
	require.Error(t, err)
	assert.True(t, IsContractViolation(err))
	assert.Equal(t, Receiving, acc.State())
	assert.Equal(t, uint64(10), acc.LastTimestampUs())
	assert.Equal(t, uint64(0), acc.Snapshot().Durations.Total())

	require.NoError(t, acc.Transition(12, Idle))
	assert.Equal(t, uint64(2), acc.Snapshot().Durations[Receiving])
}

func TestWindowAccumulator_InvalidState(t *testing.T) {
	acc := NewWindowAccumulator(3, Idle)
	require.NoError(t, acc.Transition(0, ChannelBusy))

	err := acc.Transition(5, ActivityState(9))
	assert.True(t, IsContractViolation(err))
	assert.Equal(t, ChannelBusy, acc.State())
	assert.Equal(t, uint64(0), acc.LastTimestampUs())

	require.NoError(t, acc.Advance(5))
	assert.Equal(t, uint64(5), acc.Snapshot().Durations[ChannelBusy])
}

func TestWindowAccumulator_ResetIdempotent(t *testing.T) {
	acc := NewWindowAccumulator(4, Idle)
	require.NoError(t, acc.Transition(0, Receiving))
	require.NoError(t, acc.Transition(7, Transmitting))
	acc.AddBytes(100)
	acc.AddPowerSample(3.5)

	acc.Reset(20)
	acc.Reset(20)

	assert.Equal(t, Snapshot{}, acc.Snapshot())
	assert.Equal(t, NewWindowAccumulator(4, Idle).Snapshot(), acc.Snapshot())
	assert.Equal(t, Transmitting, acc.State())
	assert.Equal(t, uint64(20), acc.LastTimestampUs())
	assert.Equal(t, uint64(20), acc.WindowStartUs())
}

func TestWindowAccumulator_ResetNeverRewinds(t *testing.T) {
	acc := NewWindowAccumulator(5, Idle)
	require.NoError(t, acc.Transition(50, Idle))
	acc.Reset(30)
	assert.Equal(t, uint64(50), acc.LastTimestampUs())
}

func TestWindowAccumulator_AdvanceBeforeStart(t *testing.T) {
	acc := NewWindowAccumulator(6, Idle)
	require.NoError(t, acc.Advance(1000))
	assert.Equal(t, uint64(0), acc.Snapshot().Durations.Total())
}

func TestWindowAccumulator_BytesAndPower(t *testing.T) {
	acc := NewWindowAccumulator(7, Idle)
	acc.AddBytes(0)
	acc.AddBytes(10)
	acc.AddBytes(32)
	acc.AddPowerSample(-3)
	acc.AddPowerSample(0)

	snap := acc.Snapshot()
	assert.Equal(t, uint64(42), snap.BytesReceived)
	assert.Equal(t, -3.0, snap.PowerSum)
	assert.Equal(t, uint64(2), snap.PowerCount)
}

func TestStateDurations(t *testing.T) {
	d := StateDurations{1000000, 500000, 0, 250000}
	assert.Equal(t, uint64(1750000), d.Total())
	assert.Equal(t, 0.5, d.Seconds(ChannelBusy))

	cp := d
	cp[Idle] = 0
	assert.Equal(t, uint64(1000000), d[Idle])
}
