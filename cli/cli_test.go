// Copyright (c) 2020-2023, The OTNS Authors.
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

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openthread/otns-phystats/dispatcher"
	"github.com/openthread/otns-phystats/energy"
	"github.com/openthread/otns-phystats/event"
	"github.com/openthread/otns-phystats/phystats"
	"github.com/openthread/otns-phystats/progctx"
	"github.com/openthread/otns-phystats/sink"
	. "github.com/openthread/otns-phystats/types"
)

func TestParseBytes(t *testing.T) {
	var cmd Command
	assert.NotNil(t, parseBytes([]byte("wrongcmd"), &cmd))

	assert.Nil(t, parseBytes([]byte("add 3"), &cmd))
	assert.True(t, cmd.Add != nil && cmd.Add.Node.Id == 3 && cmd.Add.State == nil)
	assert.Nil(t, parseBytes([]byte("add 4 state rx"), &cmd))
	assert.True(t, cmd.Add != nil && cmd.Add.State != nil && cmd.Add.State.Val == "rx")
	assert.NotNil(t, parseBytes([]byte("add 4 state sleeping"), &cmd))
	assert.NotNil(t, parseBytes([]byte("add"), &cmd))

	assert.True(t, parseBytes([]byte("counters"), &cmd) == nil && cmd.Counters != nil)

	assert.True(t, parseBytes([]byte("del 1"), &cmd) == nil && cmd.Del != nil)
	assert.True(t, parseBytes([]byte("del 1 2"), &cmd) == nil && len(cmd.Del.Nodes) == 2)
	assert.NotNil(t, parseBytes([]byte("del"), &cmd))

	assert.True(t, parseBytes([]byte("energy"), &cmd) == nil && cmd.Energy != nil && cmd.Energy.Save == nil)
	assert.True(t, parseBytes([]byte("energy save"), &cmd) == nil && cmd.Energy.Save != nil)
	assert.True(t, parseBytes([]byte("energy save \"run1\""), &cmd) == nil && cmd.Energy.Name == "run1")

	assert.True(t, parseBytes([]byte("exit"), &cmd) == nil && cmd.Exit != nil)
	assert.True(t, parseBytes([]byte("flush"), &cmd) == nil && cmd.Flush != nil)
	assert.True(t, parseBytes([]byte("help"), &cmd) == nil && cmd.Help != nil)
	assert.True(t, parseBytes([]byte("help stats"), &cmd) == nil && cmd.Help.HelpTopic == "stats")

	assert.True(t, parseBytes([]byte("log"), &cmd) == nil && cmd.LogLevel != nil && cmd.LogLevel.Level == "")
	assert.True(t, parseBytes([]byte("log debug"), &cmd) == nil && cmd.LogLevel.Level == "debug")
	assert.NotNil(t, parseBytes([]byte("log loud"), &cmd))

	assert.True(t, parseBytes([]byte("nodes"), &cmd) == nil && cmd.Nodes != nil)
	assert.True(t, parseBytes([]byte("stats"), &cmd) == nil && cmd.Stats != nil && len(cmd.Stats.Nodes) == 0)
	assert.True(t, parseBytes([]byte("stats 1 5 9"), &cmd) == nil && len(cmd.Stats.Nodes) == 3)
	assert.True(t, parseBytes([]byte("time"), &cmd) == nil && cmd.Time != nil)

	assert.True(t, parseBytes([]byte("watch"), &cmd) == nil && cmd.Watch != nil)
	assert.True(t, parseBytes([]byte("watch all"), &cmd) == nil && cmd.Watch.All == "all")
	assert.True(t, parseBytes([]byte("watch 2 3"), &cmd) == nil && len(cmd.Watch.Nodes) == 2)
	assert.True(t, parseBytes([]byte("unwatch"), &cmd) == nil && cmd.Unwatch != nil)
	assert.True(t, parseBytes([]byte("unwatch 2"), &cmd) == nil && len(cmd.Unwatch.Nodes) == 1)

	assert.True(t, parseBytes([]byte("window 7"), &cmd) == nil && cmd.Window != nil && cmd.Window.Node.Id == 7)
	assert.NotNil(t, parseBytes([]byte("window"), &cmd))
}

func TestGetUniqueAndSorted(t *testing.T) {
	in := []NodeSelector{{Id: 5}, {Id: 2}, {Id: 5}, {Id: 1}}
	out := getUniqueAndSorted(in)
	assert.Equal(t, []NodeSelector{{Id: 1}, {Id: 2}, {Id: 5}}, out)
}

func TestHelp(t *testing.T) {
	h := newHelp()
	for _, cmd := range []string{"add", "counters", "del", "energy", "exit", "flush", "help", "log", "nodes",
		"stats", "time", "unwatch", "watch", "window"} {
		assert.Contains(t, h.commands, cmd)
		assert.NotEmpty(t, h.commandsShort[cmd], cmd)
	}
	assert.Equal(t, "Start monitoring a node.", h.commandsShort["add"])

	general := h.outputGeneralHelp()
	assert.Contains(t, general, "window")
	assert.Contains(t, general, "help <command>")

	detail := h.outputCommandHelp("stats")
	assert.True(t, strings.HasPrefix(detail, "stats\n"))
	assert.Contains(t, detail, "stats [<node-id> ...]")
	assert.NotContains(t, detail, "```")
	assert.Contains(t, h.outputCommandHelp("fly"), "Non-existent command")
}

type runnerEnv struct {
	ctx    *progctx.ProgCtx
	mem    *sink.MemorySink
	energy *energy.EnergyAnalyser
	d      *dispatcher.Dispatcher
	rt     *CmdRunner
}

func newRunnerEnv(t *testing.T) *runnerEnv {
	pcfg := phystats.DefaultConfig()
	pcfg.Mode = phystats.ModeSim
	pcfg.Interval = 10 * time.Microsecond
	pcfg.FlushOnStop = false

	env := &runnerEnv{
		ctx:    progctx.New(context.Background()),
		mem:    sink.NewMemorySink(0),
		energy: energy.NewEnergyAnalyser(),
	}
	collector := phystats.NewCollector(pcfg, sink.NewMultiSink(env.mem, env.energy), nil)

	dcfg := dispatcher.DefaultConfig()
	dcfg.Port = 0
	dcfg.AutoAddNodes = false
	var err error
	env.d, err = dispatcher.NewDispatcher(env.ctx, dcfg, collector)
	require.NoError(t, err)
	go env.d.Run()

	env.rt = NewCmdRunner(env.ctx, env.d, env.energy, t.TempDir())
	t.Cleanup(func() {
		env.ctx.Cancel("test done")
		env.ctx.Wait()
		collector.Stop()
	})
	return env
}

func (env *runnerEnv) run(t *testing.T, cmdline string) string {
	var out bytes.Buffer
	require.NoError(t, env.rt.RunCommand(cmdline, &out))
	return out.String()
}

func TestCmdRunner_NodeLifecycle(t *testing.T) {
	env := newRunnerEnv(t)

	assert.Equal(t, "1\nDone\n", env.run(t, "add 1"))
	assert.Contains(t, env.run(t, "add 1"), "Error:")
	assert.Equal(t, "2\nDone\n", env.run(t, "add 2 state busy"))

	nodes := env.run(t, "nodes")
	assert.Contains(t, nodes, "id=1\tstate=idle")
	assert.Contains(t, nodes, "id=2\tstate=busy")

	assert.Contains(t, env.run(t, "stats 1"), "no sample yet")

	for _, evt := range []*event.Event{
		event.NewStateEvent(0, 1, Idle),
		event.NewStateEvent(5, 1, Transmitting),
		event.NewTxStartEvent(5, 1, 10),
		event.NewStateEvent(8, 1, Idle),
		event.NewRxDoneEvent(9, 1, 20),
		event.NewStateEvent(12, 1, Receiving),
	} {
		env.d.Submit(evt)
	}
	assert.Equal(t, "Done\n", env.run(t, "flush"))

	assert.Equal(t, "12\nDone\n", env.run(t, "time"))
	assert.Contains(t, env.run(t, "stats 1"), "idle=7 busy=0 tx=3 rx=0")
	assert.Contains(t, env.run(t, "stats 9"), "Error: node 9 not found")

	window := env.run(t, "window 1")
	assert.Contains(t, window, "state: rx")
	assert.Contains(t, window, "idle_us: 2")

	counters := env.run(t, "counters")
	assert.Contains(t, counters, "StateEvents")
	assert.Contains(t, counters, "TxStartEvents")

	assert.Contains(t, env.run(t, "energy"), "node<1>")

	assert.Equal(t, "Done\n", env.run(t, "del 2"))
	assert.Contains(t, env.run(t, "del 2"), "Warn: node 2 not found")
	assert.NotContains(t, env.run(t, "nodes"), "id=2")
}

func TestCmdRunner_Watch(t *testing.T) {
	env := newRunnerEnv(t)
	env.run(t, "add 1")
	env.run(t, "add 3")

	assert.Equal(t, "\nDone\n", env.run(t, "watch"))
	assert.Equal(t, "Done\n", env.run(t, "watch 3"))
	assert.Equal(t, "3\nDone\n", env.run(t, "watch"))
	assert.Equal(t, "Done\n", env.run(t, "watch all"))
	assert.Equal(t, "1 3\nDone\n", env.run(t, "watch"))
	assert.Contains(t, env.run(t, "watch 8"), "Error: node 8 not found")

	env.run(t, "unwatch 1")
	assert.Equal(t, []NodeId{3}, env.d.GetWatchingNodes())
	env.run(t, "unwatch")
	assert.Empty(t, env.d.GetWatchingNodes())
}

func TestCmdRunner_EnergySave(t *testing.T) {
	env := newRunnerEnv(t)
	env.run(t, "add 1")
	env.d.Submit(event.NewStateEvent(0, 1, Receiving))
	env.d.Submit(event.NewStateEvent(30, 1, Idle))
	env.run(t, "flush")

	assert.Equal(t, "Done\n", env.run(t, "energy save \"run1\""))
	_, err := os.Stat(filepath.Join(env.rt.outputDir, "energy_results", "run1_nodes.txt"))
	assert.NoError(t, err)
}

func TestCmdRunner_ErrorsAndExit(t *testing.T) {
	env := newRunnerEnv(t)

	assert.True(t, strings.HasPrefix(env.run(t, "fly away"), "Error:"))
	assert.Contains(t, env.run(t, "help"), "For detailed help per command")
	assert.Contains(t, env.run(t, "log"), "Done")

	var out bytes.Buffer
	err := env.rt.RunCommand("exit", &out)
	assert.Error(t, err)
	assert.Error(t, env.ctx.Err())

	out.Reset()
	assert.Error(t, env.rt.RunCommand("nodes", &out))
	assert.Empty(t, out.String())
}
