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

package event

import (
	"bytes"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/openthread/otns-phystats/types"
)

func TestDeserializeRadioStateEvent(t *testing.T) {
	data, _ := hex.DecodeString("e803000000000000" + "01" + "07000000" + "0100" + "02")
	var ev Event
	n := ev.Deserialize(data)
	assert.Equal(t, len(data), n)
	assert.Equal(t, uint64(1000), ev.Timestamp)
	assert.Equal(t, EventTypeRadioState, ev.Type)
	assert.Equal(t, 7, ev.NodeId)
	assert.Equal(t, Transmitting, ev.State)
	assert.NoError(t, ev.Check())
}

func TestDeserializeRxDoneEvent(t *testing.T) {
	data, _ := hex.DecodeString("0100000000000000" + "02" + "03000000" + "0400" + "7f000000")
	var ev Event
	n := ev.Deserialize(data)
	assert.Equal(t, len(data), n)
	assert.Equal(t, EventTypeRadioRxDone, ev.Type)
	assert.Equal(t, uint32(127), ev.RxBytes)
}

func TestSerializeTxStartEvent(t *testing.T) {
	ev := NewTxStartEvent(53716, 2, -4.5)
	data := ev.Serialize()
	assert.Len(t, data, 23)
	assert.Equal(t, byte(0xd4), data[0])
	assert.Equal(t, byte(0xd1), data[1])
	assert.Equal(t, EventTypeRadioTxStart, data[8])

	var back Event
	assert.Equal(t, 23, back.Deserialize(data))
	assert.Equal(t, -4.5, back.TxPowerDbm)
	assert.Equal(t, 2, back.NodeId)
}

func TestDeserializeIncomplete(t *testing.T) {
	data := NewRxDoneEvent(10, 1, 5).Serialize()
	var ev Event
	assert.Equal(t, 0, ev.Deserialize(data[:10]))
	assert.Equal(t, 0, ev.Deserialize(data[:len(data)-1]))
	assert.Equal(t, len(data), ev.Deserialize(data))
}

func TestDeserializeMultiple(t *testing.T) {
	data := NewStateEvent(5, 1, Receiving).Serialize()
	data = append(data, NewNodeEvent(6, 2, true).Serialize()...)
	data = append(data, NewRxDoneEvent(7, 1, 64).Serialize()...)

	var ev Event
	n1 := ev.Deserialize(data)
	assert.Equal(t, 16, n1)
	assert.Equal(t, Receiving, ev.State)

	n2 := ev.Deserialize(data[n1:])
	assert.Equal(t, 15, n2)
	assert.Equal(t, EventTypeNodeAdded, ev.Type)
	assert.Equal(t, 2, ev.NodeId)

	n3 := ev.Deserialize(data[n1+n2:])
	assert.Equal(t, 19, n3)
	assert.Equal(t, uint32(64), ev.RxBytes)
	assert.Equal(t, len(data), n1+n2+n3)
}

func TestCheck(t *testing.T) {
	ev := &Event{Type: EventTypeRadioState, NodeId: 1}
	assert.Error(t, ev.Check())

	ev = &Event{Type: 99, NodeId: 1}
	assert.Error(t, ev.Check())

	ev = &Event{Type: EventTypeNodeDeleted, NodeId: InvalidNodeId}
	assert.Error(t, ev.Check())

	ev = NewNodeEvent(0, 3, false)
	var back Event
	back.Deserialize(ev.Serialize())
	assert.NoError(t, back.Check())
	assert.Equal(t, EventTypeNodeDeleted, back.Type)
}

func TestConstructedEventsPassCheck(t *testing.T) {
	for _, ev := range []*Event{
		NewStateEvent(10, 1, Transmitting),
		NewRxDoneEvent(11, 1, 127),
		NewTxStartEvent(12, 1, -4.5),
		NewNodeEvent(13, 1, true),
	} {
		require.NoError(t, ev.Check(), "%v", ev)

		var back Event
		n := back.Deserialize(ev.Serialize())
		require.Greater(t, n, 0)
		assert.Equal(t, ev.Data, back.Data, "%v", ev)
	}
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "Ev{1,nid=4,ts=20,state=rx}", NewStateEvent(20, 4, Receiving).String())
	assert.Equal(t, "Ev{2,nid=4,ts=21,bytes=12}", NewRxDoneEvent(21, 4, 12).String())
	assert.Equal(t, "Ev{3,nid=4,ts=22,pwr=0.0}", NewTxStartEvent(22, 4, 0).String())
}

func TestReaderWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	events := []*Event{
		NewNodeEvent(0, 1, true),
		NewStateEvent(1, 1, Idle),
		NewTxStartEvent(2, 1, 8),
		NewRxDoneEvent(3, 1, 100),
	}
	for _, ev := range events {
		require.NoError(t, w.Write(ev))
	}
	require.NoError(t, w.Flush())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	for _, want := range events {
		got, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Timestamp, got.Timestamp)
	}
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)

	r = NewReader(bytes.NewReader(buf.Bytes()[:buf.Len()-2]))
	for i := 0; i < 3; i++ {
		_, err = r.Next()
		require.NoError(t, err)
	}
	_, err = r.Next()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}
