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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openthread/otns-phystats/event"
	. "github.com/openthread/otns-phystats/types"
)

func TestEventQueue_Order(t *testing.T) {
	q := newEventQueue(0)
	assert.Equal(t, Ever, q.NextTimestamp())
	q.Add(event.NewStateEvent(2, 2, Idle))
	q.Add(event.NewStateEvent(1, 1, Idle))
	q.Add(event.NewStateEvent(2, 3, Idle))
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, uint64(1), q.NextTimestamp())

	assert.Equal(t, 1, q.PopAny().NodeId)
	assert.Equal(t, 2, q.PopAny().NodeId)
	assert.Equal(t, 3, q.PopAny().NodeId)
	assert.Nil(t, q.PopAny())
}

func TestEventQueue_ReorderWindow(t *testing.T) {
	q := newEventQueue(10)
	q.Add(event.NewStateEvent(5, 1, Idle))
	assert.Nil(t, q.PopReady())

	q.Add(event.NewStateEvent(3, 1, Idle))
	q.Add(event.NewStateEvent(14, 1, Idle))
	e := q.PopReady()
	if assert.NotNil(t, e) {
		assert.Equal(t, uint64(3), e.Timestamp)
	}
	assert.Nil(t, q.PopReady())

	q.Add(event.NewStateEvent(15, 1, Idle))
	assert.Equal(t, uint64(5), q.PopReady().Timestamp)
	assert.Equal(t, 2, q.Len())
}
