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

	"github.com/openthread/otns-phystats/phystats"
	. "github.com/openthread/otns-phystats/types"
)

// MemorySink keeps the most recent samples per node in memory, e.g. as the data series of a chart.
type MemorySink struct {
	lock    sync.RWMutex
	limit   int
	samples map[NodeId][]*phystats.MetricSample
}

// NewMemorySink creates a MemorySink keeping up to limit samples per node. A limit <= 0 keeps all samples.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{
		limit:   limit,
		samples: make(map[NodeId][]*phystats.MetricSample),
	}
}

func (ms *MemorySink) Emit(sample *phystats.MetricSample) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	series := append(ms.samples[sample.NodeId], sample)
	if ms.limit > 0 && len(series) > ms.limit {
		series = series[len(series)-ms.limit:]
	}
	ms.samples[sample.NodeId] = series
	return nil
}

func (ms *MemorySink) Close() error {
	return nil
}

// Series returns a copy of the samples kept for a node, oldest first.
func (ms *MemorySink) Series(id NodeId) []*phystats.MetricSample {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	return append([]*phystats.MetricSample(nil), ms.samples[id]...)
}

// Latest returns the most recent sample of a node, or nil.
func (ms *MemorySink) Latest(id NodeId) *phystats.MetricSample {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	series := ms.samples[id]
	if len(series) == 0 {
		return nil
	}
	return series[len(series)-1]
}

func (ms *MemorySink) Count() int {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	n := 0
	for _, series := range ms.samples {
		n += len(series)
	}
	return n
}

func (ms *MemorySink) DeleteNode(id NodeId) {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	delete(ms.samples, id)
}
