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
	"io"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/event"
	"github.com/openthread/otns-phystats/prng"
	. "github.com/openthread/otns-phystats/types"
)

type SynthConfig struct {
	NumNodes   int
	Duration   time.Duration // event time covered by the generated events
	MeanDwell  time.Duration // mean time a node stays in one state
	MaxRxBytes int
	TxPowerDbm float64
	Seed       prng.RandomSeed // 0 takes a seed from the prng package
}

func DefaultSynthConfig() *SynthConfig {
	return &SynthConfig{
		NumNodes:   5,
		Duration:   10 * time.Second,
		MeanDwell:  2 * time.Millisecond,
		MaxRxBytes: 127,
		TxPowerDbm: 0,
	}
}

type synthNode struct {
	id           NodeId
	state        ActivityState
	nextChangeUs uint64
}

// SynthSource generates a plausible random radio activity trace for a set of nodes. Events are produced in
// timestamp order, starting with a NodeAdded event per node.
type SynthSource struct {
	cfg     SynthConfig
	rnd     *rand.Rand
	nodes   []*synthNode
	endUs   uint64
	pending []*event.Event
}

func NewSynthSource(cfg *SynthConfig) (*SynthSource, error) {
	if cfg.NumNodes <= 0 || cfg.NumNodes > MaxNodeId {
		return nil, errors.Errorf("invalid node count %d", cfg.NumNodes)
	}
	if cfg.MeanDwell < time.Microsecond {
		return nil, errors.Errorf("mean dwell time must be at least 1us, got %v", cfg.MeanDwell)
	}
	if cfg.MaxRxBytes <= 0 {
		return nil, errors.Errorf("invalid max rx bytes %d", cfg.MaxRxBytes)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = prng.NewSourceRandomSeed()
	}
	s := &SynthSource{
		cfg:   *cfg,
		rnd:   prng.NewRand(seed),
		endUs: uint64(cfg.Duration / time.Microsecond),
	}
	for i := 1; i <= cfg.NumNodes; i++ {
		n := &synthNode{id: i, state: Idle}
		n.nextChangeUs = s.dwell()
		s.nodes = append(s.nodes, n)
		s.pending = append(s.pending, event.NewNodeEvent(0, i, true), event.NewStateEvent(0, i, Idle))
	}
	return s, nil
}

func (s *SynthSource) dwell() uint64 {
	us := uint64(s.rnd.ExpFloat64() * float64(s.cfg.MeanDwell/time.Microsecond))
	if us == 0 {
		us = 1
	}
	return us
}

// Next returns the next generated event, or io.EOF after the configured duration.
func (s *SynthSource) Next() (*event.Event, error) {
	if len(s.pending) == 0 {
		s.step()
	}
	if len(s.pending) == 0 {
		return nil, io.EOF
	}
	evt := s.pending[0]
	s.pending = s.pending[1:]
	return evt, nil
}

func (s *SynthSource) step() {
	var next *synthNode
	for _, n := range s.nodes {
		if next == nil || n.nextChangeUs < next.nextChangeUs {
			next = n
		}
	}
	ts := next.nextChangeUs
	if ts > s.endUs {
		return
	}

	prev := next.state
	newState := ActivityState(s.rnd.Intn(NumActivityStates))
	if newState == prev {
		newState = Idle
		if prev == Idle {
			newState = Receiving
		}
	}

	if prev == Receiving {
		rxBytes := uint32(1 + s.rnd.Intn(s.cfg.MaxRxBytes))
		s.pending = append(s.pending, event.NewRxDoneEvent(ts, next.id, rxBytes))
	}
	s.pending = append(s.pending, event.NewStateEvent(ts, next.id, newState))
	if newState == Transmitting {
		pwr := s.cfg.TxPowerDbm + s.rnd.NormFloat64()
		s.pending = append(s.pending, event.NewTxStartEvent(ts, next.id, pwr))
	}

	next.state = newState
	next.nextChangeUs = ts + s.dwell()
}
