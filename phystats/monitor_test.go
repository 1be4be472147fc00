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
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/openthread/otns-phystats/types"
)

type recordingSink struct {
	sync.Mutex
	samples []*MetricSample
	fail    bool
}

func (s *recordingSink) Emit(sample *MetricSample) error {
	s.Lock()
	defer s.Unlock()
	if s.fail {
		return errors.New("disk full")
	}
	s.samples = append(s.samples, sample)
	return nil
}

func (s *recordingSink) Close() error {
	return nil
}

func (s *recordingSink) count() int {
	s.Lock()
	defer s.Unlock()
	return len(s.samples)
}

func (s *recordingSink) get(i int) *MetricSample {
	s.Lock()
	defer s.Unlock()
	return s.samples[i]
}

func newTestMonitor(id NodeId, interval time.Duration, sink Sink) *NodeMonitor {
	cfg := DefaultNodeConfig()
	cfg.ID = id
	return NewNodeMonitor(&cfg, interval, sink, nil)
}

func TestScenarioA_StateDurations(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMonitor(1, 10*time.Microsecond, sink)

	m.OnStateChange(0, Idle)
	m.OnStateChange(5, Transmitting)
	m.OnStateChange(8, Idle)
	s := m.Tick(10)

	require.NotNil(t, s)
	assert.Equal(t, StateDurations{7, 0, 3, 0}, s.StateDurationsUs)
	assert.Equal(t, uint64(10), s.TimestampUs)
	assert.Equal(t, uint64(10), s.IntervalUs)
	assert.Equal(t, 1, sink.count())
	assert.Same(t, s, m.LastSample())
}

func TestScenarioB_Throughput(t *testing.T) {
	m := newTestMonitor(1, time.Second, &recordingSink{})

	m.OnBytesReceived(125000)
	s := m.Tick(1000000)

	require.NotNil(t, s)
	assert.InDelta(t, 1000000.0, s.ThroughputBps, 1e-9)
	assert.Equal(t, uint64(125000), s.BytesReceived)
}

func TestThroughputCorrectness(t *testing.T) {
	m := newTestMonitor(1, 250*time.Millisecond, &recordingSink{})

	m.OnBytesReceived(10)
	m.OnBytesReceived(0)
	m.OnBytesReceived(1990)
	s := m.Tick(250000)
	assert.InDelta(t, 2000*8/0.25, s.ThroughputBps, 1e-6)

	s = m.Tick(500000)
	assert.Equal(t, 0.0, s.ThroughputBps)
}

func TestScenarioC_AveragePower(t *testing.T) {
	m := newTestMonitor(1, time.Second, &recordingSink{})

	m.OnTransmitPower(16.0)
	m.OnTransmitPower(20.0)
	s := m.Tick(1000000)
	require.NotNil(t, s)
	assert.Equal(t, 18.0, s.AvgPowerDbm)
	assert.Equal(t, uint64(2), s.PowerSamples)
	assert.True(t, s.HasPowerSamples())

	var s2 *MetricSample
	assert.NotPanics(t, func() {
		s2 = m.Tick(2000000)
	})
	require.NotNil(t, s2)
	assert.True(t, math.IsNaN(s2.AvgPowerDbm))
	assert.False(t, s2.HasPowerSamples())
}

func TestBoundaryCrossingState(t *testing.T) {
	for _, eventFirst := range []bool{false, true} {
		m := newTestMonitor(1, 10*time.Microsecond, &recordingSink{})
		m.OnStateChange(0, Idle)
		m.OnStateChange(4, Transmitting)

		var closing *MetricSample
		if eventFirst {
			m.OnStateChange(10, Receiving)
			closing = m.Tick(10)
		} else {
			closing = m.Tick(10)
			m.OnStateChange(10, Receiving)
		}

		assert.Equal(t, StateDurations{4, 0, 6, 0}, closing.StateDurationsUs, "eventFirst=%v", eventFirst)
		assert.Equal(t, uint64(0), closing.StateDurationsUs[Receiving])

		opening := m.Tick(20)
		assert.Equal(t, StateDurations{0, 0, 0, 10}, opening.StateDurationsUs, "eventFirst=%v", eventFirst)
	}
}

func TestStateCarriesIntoNextWindow(t *testing.T) {
	m := newTestMonitor(1, 10*time.Microsecond, &recordingSink{})
	m.OnStateChange(3, ChannelBusy)

	s1 := m.Tick(10)
	s2 := m.Tick(20)
	s3 := m.Tick(30)
	assert.Equal(t, uint64(7), s1.StateDurationsUs[ChannelBusy])
	assert.Equal(t, uint64(10), s2.StateDurationsUs[ChannelBusy])
	assert.Equal(t, uint64(10), s3.StateDurationsUs[ChannelBusy])
	assert.Equal(t, ChannelBusy, m.State())
}

func TestContractViolationIsRecovered(t *testing.T) {
	m := newTestMonitor(1, 10*time.Microsecond, &recordingSink{})
	m.OnStateChange(10, Transmitting)
	m.OnStateChange(4, Idle)
	m.OnStateChange(15, Receiving)
	m.OnStateChange(16, ActivityState(200))

	assert.Equal(t, uint64(2), m.Violations())
	assert.Equal(t, Receiving, m.State())

	s := m.Tick(20)
	assert.Equal(t, StateDurations{5, 0, 0, 5}, s.StateDurationsUs)
	assert.Equal(t, uint64(10), s.StateDurationsUs.Total())
}

func TestSinkErrorDoesNotStopTicks(t *testing.T) {
	sink := &recordingSink{fail: true}
	m := newTestMonitor(1, time.Second, sink)

	m.OnBytesReceived(100)
	s := m.Tick(1000000)
	require.NotNil(t, s)
	assert.Equal(t, uint64(1), m.Reporter().Dropped())
	assert.Equal(t, Armed, m.Reporter().State())

	sink.Lock()
	sink.fail = false
	sink.Unlock()

	s = m.Tick(2000000)
	require.NotNil(t, s)
	assert.Equal(t, uint64(0), s.BytesReceived)
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, uint64(1), m.Reporter().Emitted())
}

func TestReporter_SinkErrorType(t *testing.T) {
	acc := NewWindowAccumulator(9, Idle)
	r := NewReporter(9, acc, SinkFunc(func(*MetricSample) error { return errors.New("io") }), nil)

	err := r.Emit(r.Tick(10, time.Second))
	require.Error(t, err)
	assert.True(t, IsSinkError(err))
	assert.Equal(t, "io", errors.Cause(err).Error())
}

func TestReporter_StopDuringComputing(t *testing.T) {
	sink := &recordingSink{}
	acc := NewWindowAccumulator(9, Idle)
	r := NewReporter(9, acc, sink, nil)

	sample := r.Tick(10, time.Second)
	require.NotNil(t, sample)
	assert.Equal(t, Computing, r.State())

	r.Stop()
	require.NoError(t, r.Emit(sample))
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, Stopped, r.State())
	assert.Nil(t, r.Tick(20, time.Second))
}

func TestMonitor_StopEndsTicks(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMonitor(1, 10*time.Microsecond, sink)
	m.Tick(10)
	m.Stop()

	assert.True(t, m.IsStopped())
	assert.Nil(t, m.Tick(20))
	m.AdvanceTime(100)
	assert.Equal(t, 1, sink.count())
}

func TestMonitor_FlushPartialWindow(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMonitor(1, time.Second, sink)
	m.AdvanceTime(0)
	m.OnBytesReceived(1000)

	s := m.Flush(500000)
	require.NotNil(t, s)
	assert.Equal(t, uint64(500000), s.IntervalUs)
	assert.InDelta(t, 16000.0, s.ThroughputBps, 1e-9)

	assert.Nil(t, m.Flush(500000))
}

func TestMonitor_AdvanceTimeEmitsEveryBoundary(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMonitor(1, 10*time.Microsecond, sink)
	m.AdvanceTime(0)

	m.OnStateChange(2, Receiving)
	m.AdvanceTime(35)
	require.Equal(t, 3, sink.count())
	assert.Equal(t, uint64(10), sink.get(0).TimestampUs)
	assert.Equal(t, uint64(20), sink.get(1).TimestampUs)
	assert.Equal(t, uint64(30), sink.get(2).TimestampUs)
	assert.Equal(t, uint64(8), sink.get(0).StateDurationsUs[Receiving])
	assert.Equal(t, uint64(10), sink.get(2).StateDurationsUs[Receiving])

	m.AdvanceTime(39)
	assert.Equal(t, 3, sink.count())
	m.AdvanceTime(40)
	assert.Equal(t, 4, sink.count())
}

func TestMonitor_AdvanceTimeMergesLargeJump(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMonitor(1, 10*time.Microsecond, sink)
	m.AdvanceTime(0)
	m.OnStateChange(0, Idle)

	m.AdvanceTime(1000000005)
	require.Equal(t, 1, sink.count())
	merged := sink.get(0)
	assert.Equal(t, uint64(1000000000), merged.TimestampUs)
	assert.Equal(t, uint64(1000000000), merged.IntervalUs)
	assert.Equal(t, merged.IntervalUs, merged.StateDurationsUs.Total())

	m.AdvanceTime(1000000010)
	require.Equal(t, 2, sink.count())
	assert.Equal(t, uint64(10), sink.get(1).IntervalUs)
	assert.Equal(t, uint64(10), sink.get(1).StateDurationsUs[Idle])
}

func TestMonitor_LiveTicker(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMonitor(1, 5*time.Millisecond, sink)
	clock := NewWallClock()

	m.Start(context.Background(), clock)
	m.OnStateChange(clock.NowUs(), Receiving)
	require.Eventually(t, func() bool { return sink.count() >= 2 }, 2*time.Second, time.Millisecond)

	m.Stop()
	n := sink.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, sink.count())
	assert.Equal(t, uint64(0), m.Violations())
}

func TestMonitor_ConcurrentIngestAndTick(t *testing.T) {
	sink := &recordingSink{}
	m := newTestMonitor(1, time.Millisecond, sink)
	clock := &ManualClock{}

	const writers, perWriter = 4, 1000
	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				m.OnBytesReceived(3)
				m.OnTransmitPower(1)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint64(1); i <= 100; i++ {
			clock.Set(i * 1000)
			m.Tick(clock.NowUs())
		}
	}()
	wg.Wait()
	<-done

	var bytes, powers uint64
	for i := 0; i < sink.count(); i++ {
		bytes += sink.get(i).BytesReceived
		powers += sink.get(i).PowerSamples
	}
	window := m.Window()
	assert.Equal(t, uint64(writers*perWriter*3), bytes+window.BytesReceived)
	assert.Equal(t, uint64(writers*perWriter), powers+window.PowerCount)
}
