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

package dispatcher

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/otns-phystats/event"
	"github.com/openthread/otns-phystats/phystats"
	. "github.com/openthread/otns-phystats/types"
)

func collectSynth(t *testing.T, cfg *SynthConfig) []*event.Event {
	src, err := NewSynthSource(cfg)
	require.NoError(t, err)

	var events []*event.Event
	for {
		evt, err := src.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		events = append(events, evt)
	}
	return events
}

func TestSynthSource_Deterministic(t *testing.T) {
	cfg := DefaultSynthConfig()
	cfg.NumNodes = 3
	cfg.Duration = 100 * time.Millisecond
	cfg.Seed = 1234

	ev1 := collectSynth(t, cfg)
	ev2 := collectSynth(t, cfg)
	require.Equal(t, len(ev1), len(ev2))
	for i := range ev1 {
		assert.Equal(t, ev1[i].String(), ev2[i].String())
	}

	assert.Equal(t, event.EventTypeNodeAdded, ev1[0].Type)
	assert.Equal(t, event.EventTypeRadioState, ev1[1].Type)

	var lastTs uint64
	lastState := map[NodeId]ActivityState{}
	for _, evt := range ev1 {
		assert.GreaterOrEqual(t, evt.Timestamp, lastTs)
		assert.LessOrEqual(t, evt.Timestamp, uint64(100000))
		lastTs = evt.Timestamp
		require.NoError(t, evt.Check())

		switch evt.Type {
		case event.EventTypeRadioState:
			assert.True(t, evt.State.IsValid())
			lastState[evt.NodeId] = evt.State
		case event.EventTypeRadioTxStart:
			assert.Equal(t, Transmitting, lastState[evt.NodeId])
		case event.EventTypeRadioRxDone:
			assert.Equal(t, Receiving, lastState[evt.NodeId])
			assert.True(t, evt.RxBytes >= 1 && evt.RxBytes <= 127)
		}
	}
	assert.Len(t, lastState, 3)
}

func TestSynthSource_InvalidConfig(t *testing.T) {
	cfg := DefaultSynthConfig()
	cfg.NumNodes = 0
	_, err := NewSynthSource(cfg)
	assert.Error(t, err)

	cfg = DefaultSynthConfig()
	cfg.MeanDwell = 0
	_, err = NewSynthSource(cfg)
	assert.Error(t, err)
}

func TestSynthSource_ThroughDispatcher(t *testing.T) {
	env := newTestEnv(t, phystats.ModeSim, nil, nil)

	cfg := DefaultSynthConfig()
	cfg.NumNodes = 4
	cfg.Duration = 50 * time.Millisecond
	cfg.Seed = 99
	src, err := NewSynthSource(cfg)
	require.NoError(t, err)

	n, err := env.d.Replay(src, 0)
	require.NoError(t, err)
	assert.Greater(t, n, 8)
	<-env.d.Flush()

	assert.Equal(t, []NodeId{1, 2, 3, 4}, env.collector.Nodes())
	for _, id := range env.collector.Nodes() {
		assert.Equal(t, uint64(0), env.collector.GetNode(id).Violations())
	}
	assert.Equal(t, uint64(0), env.d.Counters().MalformedEvents)
}
