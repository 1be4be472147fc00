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
	"sync/atomic"
	"time"

	"github.com/openthread/otns-phystats/logger"
	. "github.com/openthread/otns-phystats/types"
)

type ReporterState int32

const (
	Armed ReporterState = iota
	Computing
	Stopped
)

func (s ReporterState) String() string {
	switch s {
	case Armed:
		return "armed"
	case Computing:
		return "computing"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Reporter turns the accumulated window of one node into a MetricSample and hands it to a Sink.
// Tick must be serialized with the mutations of the accumulator; Emit may run outside of that lock.
type Reporter struct {
	nodeId  NodeId
	acc     *WindowAccumulator
	sink    Sink
	log     *logger.NodeLogger
	state   atomic.Int32
	emitted atomic.Uint64
	dropped atomic.Uint64
}

func NewReporter(nodeId NodeId, acc *WindowAccumulator, sink Sink, log *logger.NodeLogger) *Reporter {
	logger.AssertNotNil(acc)
	if sink == nil {
		sink = NopSink{}
	}
	return &Reporter{
		nodeId: nodeId,
		acc:    acc,
		sink:   sink,
		log:    log,
	}
}

// Tick closes the current window at nowUs: the open interval of the current state is credited, the counters
// are read and derived metrics computed, then the accumulator is reset for the next window. Returns nil once
// the Reporter is stopped.
func (r *Reporter) Tick(nowUs uint64, interval time.Duration) *MetricSample {
	if !r.state.CompareAndSwap(int32(Armed), int32(Computing)) {
		return nil
	}

	if err := r.acc.Advance(nowUs); err != nil {
		r.warnf("%v", err)
		nowUs = r.acc.LastTimestampUs()
	}
	if interval <= 0 {
		r.warnf("non-positive report interval %v, throughput reported as 0", interval)
	}
	sample := newMetricSample(r.nodeId, nowUs, interval, r.acc.Snapshot())
	r.acc.Reset(nowUs)
	return sample
}

// Emit delivers a sample computed by Tick to the sink and re-arms the Reporter unless it was stopped
// in the meantime. A sink failure drops the sample.
func (r *Reporter) Emit(sample *MetricSample) error {
	defer r.state.CompareAndSwap(int32(Computing), int32(Armed))

	if sample == nil {
		return nil
	}
	if err := r.sink.Emit(sample); err != nil {
		r.dropped.Add(1)
		serr := &SinkError{NodeId: r.nodeId, TimestampUs: sample.TimestampUs, Err: err}
		r.warnf("%v", serr)
		return serr
	}
	r.emitted.Add(1)
	return nil
}

// Stop moves the Reporter to its terminal state. A sample already computed can still be emitted.
func (r *Reporter) Stop() {
	r.state.Store(int32(Stopped))
}

func (r *Reporter) State() ReporterState {
	return ReporterState(r.state.Load())
}

// Emitted returns the number of samples accepted by the sink.
func (r *Reporter) Emitted() uint64 {
	return r.emitted.Load()
}

// Dropped returns the number of samples lost to sink errors.
func (r *Reporter) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Reporter) warnf(format string, args ...interface{}) {
	if r.log != nil {
		r.log.Warnf(format, args...)
	} else {
		logger.Warnf(format, args...)
	}
}
