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

package types

import (
	"fmt"
	"math"
	"strings"
)

type NodeId = int

const (
	MaxNodeId       NodeId = 0xffff
	InvalidNodeId   NodeId = 0
	BroadcastNodeId NodeId = -1
)

const (
	// InvalidTimestamp marks a timestamp that was not (yet) determined.
	InvalidTimestamp uint64 = math.MaxUint64
)

// ActivityState is the mutually exclusive mode a monitored radio interface is in at any instant.
type ActivityState byte

const (
	Idle         ActivityState = 0 ///< Radio on, medium free, nothing to do.
	ChannelBusy  ActivityState = 1 ///< Medium sensed occupied by other nodes.
	Transmitting ActivityState = 2
	Receiving    ActivityState = 3

	NumActivityStates = 4
)

// AllActivityStates lists every ActivityState in index order.
var AllActivityStates = [NumActivityStates]ActivityState{Idle, ChannelBusy, Transmitting, Receiving}

func (s ActivityState) String() string {
	switch s {
	case Idle:
		return "idle"
	case ChannelBusy:
		return "busy"
	case Transmitting:
		return "tx"
	case Receiving:
		return "rx"
	default:
		return fmt.Sprintf("invalid(%d)", byte(s))
	}
}

// IsValid returns true if s is one of the fixed set of activity states.
func (s ActivityState) IsValid() bool {
	return s < NumActivityStates
}

// ParseActivityState parses both the short names used in output (idle, busy, tx, rx) and the long names.
func ParseActivityState(s string) (ActivityState, error) {
	switch strings.ToLower(s) {
	case "idle", "i":
		return Idle, nil
	case "busy", "channelbusy", "channel-busy", "cca", "b":
		return ChannelBusy, nil
	case "tx", "transmitting", "transmit", "t":
		return Transmitting, nil
	case "rx", "receiving", "receive", "r":
		return Receiving, nil
	default:
		return Idle, fmt.Errorf("invalid activity state: %s", s)
	}
}

// GetNodeName returns the display name of a node, as used in log lines and file names.
func GetNodeName(id NodeId) string {
	return fmt.Sprintf("node<%d>", id)
}
