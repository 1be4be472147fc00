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
	"sync"
	"sync/atomic"
	"time"

	"github.com/openthread/otns-phystats/logger"
	. "github.com/openthread/otns-phystats/types"
)

// NodeMonitor tracks the radio activity of a single node. It implements Observer for the node's event source
// and drives a Reporter either from a wall-clock ticker (Start) or from advancing event time (AdvanceTime).
type NodeMonitor struct {
	id       NodeId
	interval time.Duration
	log      *logger.NodeLogger

	mu       sync.Mutex // guards acc, lastSample and the sim-time boundary
	acc      *WindowAccumulator
	reporter *Reporter

	tickMu sync.Mutex // serializes complete ticks, so that emission order follows window order

	lastSample     *MetricSample
	nextBoundaryUs uint64
	simArmed       bool

	violations atomic.Uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewNodeMonitor(cfg *NodeConfig, interval time.Duration, sink Sink, log *logger.NodeLogger) *NodeMonitor {
	if log == nil {
		log = logger.GetNodeLogger("", cfg)
	}
	acc := NewWindowAccumulator(cfg.ID, cfg.InitialState)
	return &NodeMonitor{
		id:       cfg.ID,
		interval: interval,
		log:      log,
		acc:      acc,
		reporter: NewReporter(cfg.ID, acc, sink, log),
	}
}

func (m *NodeMonitor) Id() NodeId {
	return m.id
}

func (m *NodeMonitor) Interval() time.Duration {
	return m.interval
}

func (m *NodeMonitor) OnStateChange(nowUs uint64, state ActivityState) {
	m.mu.Lock()
	err := m.acc.Transition(nowUs, state)
	m.mu.Unlock()

	m.log.SetTimestamp(nowUs)
	if err != nil {
		m.violation(err)
		return
	}
	m.log.Tracef("state -> %v", state)
}

func (m *NodeMonitor) OnBytesReceived(byteCount uint64) {
	if byteCount == 0 {
		return
	}
	m.mu.Lock()
	m.acc.AddBytes(byteCount)
	m.mu.Unlock()
}

func (m *NodeMonitor) OnTransmitPower(powerDbm float64) {
	m.mu.Lock()
	m.acc.AddPowerSample(powerDbm)
	m.mu.Unlock()
}

// Tick closes the current window at nowUs and emits its MetricSample. Returns the emitted sample, or nil if
// the monitor is stopped.
func (m *NodeMonitor) Tick(nowUs uint64) *MetricSample {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	return m.tick(func() (uint64, time.Duration) { return nowUs, m.interval })
}

// Flush closes the current, possibly partial, window at nowUs. Throughput is computed over the actual window
// length. An empty window is not emitted.
func (m *NodeMonitor) Flush(nowUs uint64) *MetricSample {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	m.mu.Lock()
	start := m.acc.WindowStartUs()
	m.mu.Unlock()
	if nowUs <= start {
		return nil
	}

	return m.tick(func() (uint64, time.Duration) {
		return nowUs, time.Duration(nowUs-start) * time.Microsecond
	})
}

// tick must be called with tickMu held. when is evaluated under mu.
func (m *NodeMonitor) tick(when func() (uint64, time.Duration)) *MetricSample {
	m.mu.Lock()
	nowUs, interval := when()
	sample := m.reporter.Tick(nowUs, interval)
	if sample != nil {
		m.lastSample = sample
	}
	m.mu.Unlock()

	if sample == nil {
		return nil
	}
	if err := m.reporter.Emit(sample); err != nil {
		return sample
	}
	m.log.Debugf("window closed: %v", sample)
	return sample
}

// Start runs the Reporter from a wall-clock ticker until Stop is called or ctx is done.
func (m *NodeMonitor) Start(ctx context.Context, clock Clock) {
	if m.interval <= 0 {
		m.log.Errorf("can't start ticker with report interval %v", m.interval)
		return
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.acc.Open(clock.NowUs())
	m.mu.Unlock()

	go m.tickLoop(ctx, clock)
}

func (m *NodeMonitor) tickLoop(ctx context.Context, clock Clock) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tickMu.Lock()
			m.tick(func() (uint64, time.Duration) {
				// events are stamped by the same clock; never close a window before the latest event
				now := clock.NowUs()
				if last := m.acc.LastTimestampUs(); now < last {
					now = last
				}
				return now, m.interval
			})
			m.tickMu.Unlock()
		}
	}
}

// MaxCatchUpWindows limits the windows emitted one by one for a single AdvanceTime call. Beyond it, the
// passed windows are merged into one sample ending at the last boundary.
const MaxCatchUpWindows = 10000

// AdvanceTime fires every window boundary up to and including nowUs, in order. Windows without any activity
// are emitted as well. The first call anchors the boundaries at nowUs.
func (m *NodeMonitor) AdvanceTime(nowUs uint64) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	step := uint64(m.interval / time.Microsecond)
	if step == 0 {
		return
	}

	m.mu.Lock()
	if !m.simArmed {
		m.simArmed = true
		m.nextBoundaryUs = nowUs + step
		m.acc.Open(nowUs)
	}
	mergedInterval := time.Duration(0)
	if boundary := m.nextBoundaryUs; boundary <= nowUs {
		if pending := (nowUs-boundary)/step + 1; pending > MaxCatchUpWindows {
			m.nextBoundaryUs = boundary + (pending-1)*step
			mergedInterval = time.Duration(m.nextBoundaryUs-m.acc.WindowStartUs()) * time.Microsecond
			m.log.Warnf("time jumped by %d us, merging %d windows into one", nowUs-boundary, pending)
		}
	}
	m.mu.Unlock()

	for {
		m.mu.Lock()
		boundary := m.nextBoundaryUs
		if boundary > nowUs || m.reporter.State() == Stopped {
			m.mu.Unlock()
			return
		}
		m.nextBoundaryUs += step
		m.mu.Unlock()

		interval := m.interval
		if mergedInterval > 0 {
			interval, mergedInterval = mergedInterval, 0
		}
		m.tick(func() (uint64, time.Duration) { return boundary, interval })
	}
}

// Stop cancels the ticker of the monitor. It is effective immediately: a tick already computing still emits
// its sample, but no further ticks happen.
func (m *NodeMonitor) Stop() {
	m.mu.Lock()
	m.reporter.Stop()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *NodeMonitor) IsStopped() bool {
	return m.reporter.State() == Stopped
}

// LastSample returns the most recent sample of this node, or nil if no window closed yet.
func (m *NodeMonitor) LastSample() *MetricSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSample
}

// State returns the current activity state of the node.
func (m *NodeMonitor) State() ActivityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acc.State()
}

// Window returns a copy of the counters of the open window.
func (m *NodeMonitor) Window() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acc.Snapshot()
}

// Violations returns the number of ContractViolations reported by the node's event source.
func (m *NodeMonitor) Violations() uint64 {
	return m.violations.Load()
}

func (m *NodeMonitor) Reporter() *Reporter {
	return m.reporter
}

func (m *NodeMonitor) violation(err error) {
	m.violations.Add(1)
	m.log.Warnf("%v", err)
}
