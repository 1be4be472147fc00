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
	"time"

	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/event"
	"github.com/openthread/otns-phystats/logger"
)

// Source yields events in timestamp order. Next returns io.EOF once the source is exhausted.
type Source interface {
	Next() (*event.Event, error)
}

// Replay submits all events of src. With speed > 0, events are paced in wall-clock time by their timestamp
// distance divided by speed; with speed 0 they are submitted as fast as the dispatcher takes them.
// It returns the number of events submitted.
func (d *Dispatcher) Replay(src Source, speed float64) (int, error) {
	var (
		count     int
		firstTs   uint64
		startTime time.Time
	)

	for d.ctx.Err() == nil {
		evt, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, errors.Wrapf(err, "replay stopped after %d events", count)
		}

		if speed > 0 {
			if count == 0 {
				firstTs, startTime = evt.Timestamp, time.Now()
			} else if evt.Timestamp > firstTs {
				due := startTime.Add(time.Duration(float64(evt.Timestamp-firstTs)/speed) * time.Microsecond)
				if !d.sleepUntil(due) {
					break
				}
			}
		}

		d.Submit(evt)
		count++
	}

	logger.Debugf("replay submitted %d events", count)
	return count, nil
}

func (d *Dispatcher) sleepUntil(due time.Time) bool {
	wait := time.Until(due)
	if wait <= 0 {
		return true
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-d.ctx.Done():
		return false
	}
}
