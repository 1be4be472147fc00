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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/logger"
	. "github.com/openthread/otns-phystats/types"
)

type EventType = uint8

const (
	// Event type IDs (external, shared with event sources)
	EventTypeRadioState   EventType = 1
	EventTypeRadioRxDone  EventType = 2
	EventTypeRadioTxStart EventType = 3
	EventTypeNodeAdded    EventType = 4
	EventTypeNodeDeleted  EventType = 5
)

// Event wire format, all fields little-endian:
//
//	struct Event {
//	    uint64_t mTimestampUs;
//	    uint8_t  mType;
//	    uint32_t mNodeId;
//	    uint16_t mDataLength;
//	    uint8_t  mData[];
//	};
const eventMsgHeaderLen = 15

const (
	radioStateEventDataLen   = 1
	radioRxDoneEventDataLen  = 4
	radioTxStartEventDataLen = 8
)

type Event struct {
	Timestamp uint64
	Type      EventType
	NodeId    NodeId
	Data      []byte

	// payload data decoded from Event.Data, depends on the event type.
	State      ActivityState
	RxBytes    uint32
	TxPowerDbm float64
}

func NewStateEvent(ts uint64, id NodeId, state ActivityState) *Event {
	e := &Event{Timestamp: ts, Type: EventTypeRadioState, NodeId: id, State: state}
	e.Data = e.payload()
	return e
}

func NewRxDoneEvent(ts uint64, id NodeId, byteCount uint32) *Event {
	e := &Event{Timestamp: ts, Type: EventTypeRadioRxDone, NodeId: id, RxBytes: byteCount}
	e.Data = e.payload()
	return e
}

func NewTxStartEvent(ts uint64, id NodeId, powerDbm float64) *Event {
	e := &Event{Timestamp: ts, Type: EventTypeRadioTxStart, NodeId: id, TxPowerDbm: powerDbm}
	e.Data = e.payload()
	return e
}

func NewNodeEvent(ts uint64, id NodeId, added bool) *Event {
	evType := EventTypeNodeDeleted
	if added {
		evType = EventTypeNodeAdded
	}
	return &Event{Timestamp: ts, Type: evType, NodeId: id}
}

// payload encodes the typed fields of known event types; other types keep e.Data.
func (e *Event) payload() []byte {
	switch e.Type {
	case EventTypeRadioState:
		return []byte{byte(e.State)}
	case EventTypeRadioRxDone:
		payload := make([]byte, radioRxDoneEventDataLen)
		binary.LittleEndian.PutUint32(payload, e.RxBytes)
		return payload
	case EventTypeRadioTxStart:
		payload := make([]byte, radioTxStartEventDataLen)
		binary.LittleEndian.PutUint64(payload, math.Float64bits(e.TxPowerDbm))
		return payload
	default:
		return e.Data
	}
}

// Serialize serializes this Event into []byte. The payload is built from the typed fields for known event types.
func (e *Event) Serialize() []byte {
	payload := e.payload()

	msg := make([]byte, eventMsgHeaderLen+len(payload))
	binary.LittleEndian.PutUint64(msg[:8], e.Timestamp)
	msg[8] = e.Type
	binary.LittleEndian.PutUint32(msg[9:13], uint32(e.NodeId))
	binary.LittleEndian.PutUint16(msg[13:15], uint16(len(payload)))
	n := copy(msg[eventMsgHeaderLen:], payload)
	logger.AssertTrue(n == len(payload))

	return msg
}

// Deserialize deserializes []byte Event fields into the Event object e.
// It returns the number of bytes used from `data` for the Deserialize operation, or 0 if the data buffer
// is incomplete i.e. does not contain one entire serialized Event. Payloads too short for their type are
// kept undecoded in e.Data; see Check.
func (e *Event) Deserialize(data []byte) int {
	n := len(data)
	if n < eventMsgHeaderLen {
		return 0
	}
	datalen := int(binary.LittleEndian.Uint16(data[13:15]))
	if datalen > n-eventMsgHeaderLen {
		return 0
	}

	e.Timestamp = binary.LittleEndian.Uint64(data[:8])
	e.Type = data[8]
	e.NodeId = NodeId(binary.LittleEndian.Uint32(data[9:13]))
	e.Data = make([]byte, datalen)
	copy(e.Data, data[eventMsgHeaderLen:eventMsgHeaderLen+datalen])

	switch e.Type {
	case EventTypeRadioState:
		if datalen >= radioStateEventDataLen {
			e.State = ActivityState(e.Data[0])
		}
	case EventTypeRadioRxDone:
		if datalen >= radioRxDoneEventDataLen {
			e.RxBytes = binary.LittleEndian.Uint32(e.Data[:4])
		}
	case EventTypeRadioTxStart:
		if datalen >= radioTxStartEventDataLen {
			e.TxPowerDbm = math.Float64frombits(binary.LittleEndian.Uint64(e.Data[:8]))
		}
	default:
		break
	}

	return eventMsgHeaderLen + datalen
}

// Check verifies that a deserialized event is complete and meaningful.
func (e *Event) Check() error {
	minLen := 0
	switch e.Type {
	case EventTypeRadioState:
		minLen = radioStateEventDataLen
	case EventTypeRadioRxDone:
		minLen = radioRxDoneEventDataLen
	case EventTypeRadioTxStart:
		minLen = radioTxStartEventDataLen
	case EventTypeNodeAdded, EventTypeNodeDeleted:
	default:
		return errors.Errorf("unknown event type %d", e.Type)
	}
	if len(e.Data) < minLen {
		return errors.Errorf("event type %d: payload too short (%d < %d)", e.Type, len(e.Data), minLen)
	}
	if e.NodeId <= InvalidNodeId || e.NodeId > MaxNodeId {
		return errors.Errorf("event type %d: invalid node id %d", e.Type, e.NodeId)
	}
	return nil
}

// Copy creates a (struct) copy of the Event.
func (e *Event) Copy() Event {
	newEv := *e
	return newEv
}

func (e *Event) String() string {
	var paylStr string
	switch e.Type {
	case EventTypeRadioState:
		paylStr = ",state=" + e.State.String()
	case EventTypeRadioRxDone:
		paylStr = fmt.Sprintf(",bytes=%d", e.RxBytes)
	case EventTypeRadioTxStart:
		paylStr = fmt.Sprintf(",pwr=%.1f", e.TxPowerDbm)
	default:
		if len(e.Data) > 0 {
			paylStr = fmt.Sprintf(",payl=%s", hex.EncodeToString(e.Data))
		}
	}
	s := fmt.Sprintf("Ev{%d,nid=%d,ts=%d%s}", e.Type, e.NodeId, e.Timestamp, paylStr)
	return s
}
