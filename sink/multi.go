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

package sink

import (
	"sync"

	"go.uber.org/multierr"

	"github.com/openthread/otns-phystats/phystats"
)

// MultiSink emits every sample to all of its sinks. A failing sink doesn't keep the others from receiving
// the sample; the errors are combined.
type MultiSink struct {
	lock  sync.RWMutex
	sinks []phystats.Sink
}

// NewMultiSink creates a new Sink that multiplexes to multiple Sinks.
func NewMultiSink(sinks ...phystats.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (ms *MultiSink) AddSink(sinks ...phystats.Sink) {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	ms.sinks = append(ms.sinks, sinks...)
}

func (ms *MultiSink) Len() int {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	return len(ms.sinks)
}

func (ms *MultiSink) Emit(sample *phystats.MetricSample) error {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	var err error
	for _, s := range ms.sinks {
		err = multierr.Append(err, s.Emit(sample))
	}
	return err
}

func (ms *MultiSink) Close() error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	var err error
	for i := len(ms.sinks) - 1; i >= 0; i-- {
		err = multierr.Append(err, ms.sinks[i].Close())
	}
	ms.sinks = nil
	return err
}
