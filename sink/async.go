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

// Package sink provides the destinations MetricSamples are emitted to.
package sink

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/logger"
	"github.com/openthread/otns-phystats/phystats"
)

const DefaultQueueSize = 1024

var ErrSinkClosed = errors.New("sink closed")

// AsyncSink decouples emission from a slow inner sink with a bounded queue served by one worker goroutine.
// When the queue is full the newest sample is dropped, so that Emit never blocks the reporting node.
type AsyncSink struct {
	inner   phystats.Sink
	queue   chan *phystats.MetricSample
	lock    sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Uint64
	failed  atomic.Uint64
}

func NewAsyncSink(inner phystats.Sink, queueSize int) *AsyncSink {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	as := &AsyncSink{
		inner: inner,
		queue: make(chan *phystats.MetricSample, queueSize),
		done:  make(chan struct{}),
	}
	go as.run()
	return as
}

func (as *AsyncSink) run() {
	defer close(as.done)

	for sample := range as.queue {
		if err := as.inner.Emit(sample); err != nil {
			as.failed.Add(1)
			logger.Warnf("%v", &phystats.SinkError{NodeId: sample.NodeId, TimestampUs: sample.TimestampUs, Err: err})
		}
	}
}

func (as *AsyncSink) Emit(sample *phystats.MetricSample) error {
	as.lock.RLock()
	defer as.lock.RUnlock()

	if as.closed {
		return ErrSinkClosed
	}
	select {
	case as.queue <- sample:
		return nil
	default:
		as.dropped.Add(1)
		return errors.Errorf("sink queue full (%d), sample dropped", cap(as.queue))
	}
}

// Close drains the queue and closes the inner sink.
func (as *AsyncSink) Close() error {
	as.lock.Lock()
	if as.closed {
		as.lock.Unlock()
		return nil
	}
	as.closed = true
	close(as.queue)
	as.lock.Unlock()

	<-as.done
	return as.inner.Close()
}

// Dropped returns the number of samples rejected because the queue was full.
func (as *AsyncSink) Dropped() uint64 {
	return as.dropped.Load()
}

// Failed returns the number of samples the inner sink failed to accept.
func (as *AsyncSink) Failed() uint64 {
	return as.failed.Load()
}
