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

	"github.com/pkg/errors"
)

// Mode selects what drives the window boundaries.
type Mode string

const (
	// ModeLive closes windows on a wall-clock ticker per node.
	ModeLive Mode = "live"
	// ModeSim closes windows when event time passes a boundary.
	ModeSim Mode = "sim"
)

const DefaultInterval = time.Second

type Config struct {
	Interval    time.Duration
	Mode        Mode
	FlushOnStop bool
	OutputDir   string
	NodeLogFile bool
}

func DefaultConfig() *Config {
	return &Config{
		Interval:    DefaultInterval,
		Mode:        ModeSim,
		FlushOnStop: true,
		OutputDir:   ".",
	}
}

func (cfg *Config) Validate() error {
	if cfg.Interval < time.Microsecond {
		return errors.Errorf("report interval must be at least 1us, got %v", cfg.Interval)
	}
	switch cfg.Mode {
	case ModeLive, ModeSim:
		return nil
	default:
		return errors.Errorf("unknown mode %q", cfg.Mode)
	}
}

// Clock supplies the current time in microseconds.
type Clock interface {
	NowUs() uint64
}

// WallClock counts microseconds since its creation.
type WallClock struct {
	start time.Time
}

func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

func (c *WallClock) NowUs() uint64 {
	return uint64(time.Since(c.start) / time.Microsecond)
}

// ManualClock is a Clock set by its owner, e.g. from replayed event timestamps.
type ManualClock struct {
	nowUs atomic.Uint64
}

func (c *ManualClock) NowUs() uint64 {
	return c.nowUs.Load()
}

func (c *ManualClock) Set(nowUs uint64) {
	c.nowUs.Store(nowUs)
}
