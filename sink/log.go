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
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/openthread/otns-phystats/phystats"
	. "github.com/openthread/otns-phystats/types"
)

// LogSink prints one styled line per sample to a terminal.
type LogSink struct {
	lock   sync.Mutex
	out    io.Writer
	node   lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	absent lipgloss.Style
	states [NumActivityStates]lipgloss.Style
}

// NewLogSink creates a LogSink writing to out, or to os.Stdout if out is nil. Colors are only used if out is
// a terminal.
func NewLogSink(out io.Writer) *LogSink {
	if out == nil {
		out = os.Stdout
	}
	r := lipgloss.NewRenderer(out)
	ls := &LogSink{
		out:    out,
		node:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:  r.NewStyle().Foreground(lipgloss.Color("8")),
		value:  r.NewStyle().Foreground(lipgloss.Color("15")),
		absent: r.NewStyle().Faint(true),
	}
	ls.states[Idle] = r.NewStyle().Foreground(lipgloss.Color("7"))
	ls.states[ChannelBusy] = r.NewStyle().Foreground(lipgloss.Color("11"))
	ls.states[Transmitting] = r.NewStyle().Foreground(lipgloss.Color("9"))
	ls.states[Receiving] = r.NewStyle().Foreground(lipgloss.Color("10"))
	return ls
}

func (ls *LogSink) Emit(s *phystats.MetricSample) error {
	line := ls.format(s)

	ls.lock.Lock()
	defer ls.lock.Unlock()
	_, err := fmt.Fprintln(ls.out, line)
	return err
}

func (ls *LogSink) format(s *phystats.MetricSample) string {
	power := ls.absent.Render("n/a")
	if s.HasPowerSamples() {
		power = ls.value.Render(fmt.Sprintf("%.2fdBm", s.AvgPowerDbm))
	}
	line := fmt.Sprintf("%12.6f %s %s%s %s%s", s.TimeSec(), ls.node.Render(GetNodeName(s.NodeId)),
		ls.label.Render("thr="), ls.value.Render(fmt.Sprintf("%.0fbps", s.ThroughputBps)),
		ls.label.Render("pwr="), power)
	for _, st := range AllActivityStates {
		line += " " + ls.states[st].Render(fmt.Sprintf("%s=%.1f%%", st, 100*s.StateFraction(st)))
	}
	return line
}

func (ls *LogSink) Close() error {
	return nil
}
