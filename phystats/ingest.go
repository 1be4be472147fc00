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
	. "github.com/openthread/otns-phystats/types"
)

// Observer is the capability set a monitored radio interface reports into. Implementations must not block.
type Observer interface {
	// OnStateChange reports that the interface entered state at time nowUs.
	OnStateChange(nowUs uint64, state ActivityState)
	// OnBytesReceived reports a successful reception of byteCount bytes.
	OnBytesReceived(byteCount uint64)
	// OnTransmitPower reports the power level of a transmission that just started.
	OnTransmitPower(powerDbm float64)
}

// ObserverFuncs adapts plain functions to the Observer interface. Nil functions are skipped.
type ObserverFuncs struct {
	StateChange   func(nowUs uint64, state ActivityState)
	BytesReceived func(byteCount uint64)
	TransmitPower func(powerDbm float64)
}

func (o ObserverFuncs) OnStateChange(nowUs uint64, state ActivityState) {
	if o.StateChange != nil {
		o.StateChange(nowUs, state)
	}
}

func (o ObserverFuncs) OnBytesReceived(byteCount uint64) {
	if o.BytesReceived != nil {
		o.BytesReceived(byteCount)
	}
}

func (o ObserverFuncs) OnTransmitPower(powerDbm float64) {
	if o.TransmitPower != nil {
		o.TransmitPower(powerDbm)
	}
}

// MultiObserver forwards every notification to all observers in order.
type MultiObserver []Observer

func (mo MultiObserver) OnStateChange(nowUs uint64, state ActivityState) {
	for _, o := range mo {
		o.OnStateChange(nowUs, state)
	}
}

func (mo MultiObserver) OnBytesReceived(byteCount uint64) {
	for _, o := range mo {
		o.OnBytesReceived(byteCount)
	}
}

func (mo MultiObserver) OnTransmitPower(powerDbm float64) {
	for _, o := range mo {
		o.OnTransmitPower(powerDbm)
	}
}
