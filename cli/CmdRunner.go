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
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/otns-phystats/dispatcher"
	"github.com/openthread/otns-phystats/energy"
	"github.com/openthread/otns-phystats/logger"
	"github.com/openthread/otns-phystats/phystats"
	"github.com/openthread/otns-phystats/progctx"
	. "github.com/openthread/otns-phystats/types"
)

const (
	Prompt = "> "
)

var CommandInterruptedError = errors.New("command interrupted due to exit")

type CommandContext struct {
	context.Context
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

// CmdRunner executes console commands against a running collector.
type CmdRunner struct {
	ctx       *progctx.ProgCtx
	d         *dispatcher.Dispatcher
	collector *phystats.Collector
	energy    *energy.EnergyAnalyser
	outputDir string
	help      Help
}

// NewCmdRunner creates a CmdRunner. The energy analyser may be nil if energy accounting is disabled.
func NewCmdRunner(ctx *progctx.ProgCtx, d *dispatcher.Dispatcher, ea *energy.EnergyAnalyser, outputDir string) *CmdRunner {
	return &CmdRunner{
		ctx:       ctx,
		d:         d,
		collector: d.Collector(),
		energy:    ea,
		outputDir: outputDir,
		help:      newHelp(),
	}
}

func (rt *CmdRunner) RunCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}

		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	return rt.RunCommand(cmdline, output)
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Context: rt.ctx,
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Nodes != nil {
		rt.executeLsNodes(cc, cc.Nodes)
	} else if cmd.Add != nil {
		rt.executeAddNode(cc, cmd.Add)
	} else if cmd.Del != nil {
		rt.executeDelNode(cc, cmd.Del)
	} else if cmd.Stats != nil {
		rt.executeStats(cc, cmd.Stats)
	} else if cmd.Window != nil {
		rt.executeWindow(cc, cmd.Window)
	} else if cmd.Flush != nil {
		rt.executeFlush(cc, cmd.Flush)
	} else if cmd.Counters != nil {
		rt.executeCounters(cc, cc.Counters)
	} else if cmd.Time != nil {
		rt.executeTime(cc, cmd.Time)
	} else if cmd.Energy != nil {
		rt.executeEnergy(cc, cc.Energy)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cc.LogLevel)
	} else if cmd.Watch != nil {
		rt.executeWatch(cc, cmd.Watch)
	} else if cmd.Unwatch != nil {
		rt.executeUnwatch(cc, cmd.Unwatch)
	} else if cmd.Exit != nil {
		rt.executeExit(cc, cmd.Exit)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

// postAsyncWait runs f on the dispatcher goroutine, so that it is ordered with the event stream.
func (rt *CmdRunner) postAsyncWait(cc *CommandContext, f func()) {
	done := make(chan struct{})
	task := func() {
		defer close(done) // even if f() fails execution, 'done' should be closed.
		f()
	}

	select {
	case <-rt.ctx.Done():
		cc.error(CommandInterruptedError)
		return
	default:
		rt.d.PostAsync(false, task)
	}

	select {
	case <-done:
	case <-rt.ctx.Done():
		cc.error(CommandInterruptedError)
	}
}

func (rt *CmdRunner) executeLsNodes(cc *CommandContext, cmd *NodesCmd) {
	for _, nodeid := range rt.collector.Nodes() {
		m := rt.collector.GetNode(nodeid)
		if m == nil {
			continue
		}
		cc.outputf("id=%d\tstate=%s\treporter=%s\temitted=%d\tdropped=%d\tviolations=%d\n", nodeid, m.State(),
			m.Reporter().State(), m.Reporter().Emitted(), m.Reporter().Dropped(), m.Violations())
	}
}

func (rt *CmdRunner) executeAddNode(cc *CommandContext, cmd *AddCmd) {
	cfg := DefaultNodeConfig()
	cfg.ID = cmd.Node.Id
	if cmd.State != nil {
		state, err := ParseActivityState(cmd.State.Val)
		if err != nil {
			cc.error(err)
			return
		}
		cfg.InitialState = state
	}

	rt.postAsyncWait(cc, func() {
		if _, err := rt.collector.AddNode(&cfg); err != nil {
			cc.error(err)
			return
		}
		cc.outputf("%d\n", cfg.ID)
	})
}

func (rt *CmdRunner) executeDelNode(cc *CommandContext, cmd *DelCmd) {
	rt.postAsyncWait(cc, func() {
		for _, sel := range getUniqueAndSorted(cmd.Nodes) {
			if rt.collector.GetNode(sel.Id) == nil {
				cc.outputf("Warn: node %d not found, skipping\n", sel.Id)
				continue
			}
			if err := rt.collector.DeleteNode(sel.Id); err != nil {
				cc.errorf("node %d, %+v", sel.Id, err)
			}
			rt.d.UnwatchNode(sel.Id)
			if rt.energy != nil {
				rt.energy.DeleteNode(sel.Id)
			}
		}
	})
}

func (rt *CmdRunner) selectedNodes(sels []NodeSelector) []NodeId {
	if len(sels) == 0 {
		return rt.collector.Nodes()
	}
	ids := make([]NodeId, 0, len(sels))
	for _, sel := range getUniqueAndSorted(sels) {
		ids = append(ids, sel.Id)
	}
	return ids
}

func (rt *CmdRunner) executeStats(cc *CommandContext, cmd *StatsCmd) {
	for _, nodeid := range rt.selectedNodes(cmd.Nodes) {
		m := rt.collector.GetNode(nodeid)
		if m == nil {
			cc.errorf("node %d not found", nodeid)
			continue
		}
		if s := m.LastSample(); s != nil {
			cc.outputf("%s\n", s)
		} else {
			cc.outputf("%s no sample yet\n", GetNodeName(nodeid))
		}
	}
}

func (rt *CmdRunner) executeWindow(cc *CommandContext, cmd *WindowCmd) {
	m := rt.collector.GetNode(cmd.Node.Id)
	if m == nil {
		cc.errorf("node %d not found", cmd.Node.Id)
		return
	}
	w := m.Window()
	cc.outputItemsAsYaml(map[string]interface{}{
		"node":        cmd.Node.Id,
		"state":       m.State().String(),
		"rx_bytes":    w.BytesReceived,
		"power_count": w.PowerCount,
		"idle_us":     w.Durations[Idle],
		"busy_us":     w.Durations[ChannelBusy],
		"tx_us":       w.Durations[Transmitting],
		"rx_us":       w.Durations[Receiving],
	})
}

func (rt *CmdRunner) executeFlush(cc *CommandContext, cmd *FlushCmd) {
	select {
	case <-rt.d.Flush():
	case <-rt.ctx.Done():
		cc.error(CommandInterruptedError)
	}
}

func (rt *CmdRunner) executeCounters(cc *CommandContext, cmd *CountersCmd) {
	counters := rt.d.Counters()
	countersVal := reflect.ValueOf(counters)
	countersTyp := reflect.TypeOf(counters)
	for i := 0; i < countersVal.NumField(); i++ {
		fname := countersTyp.Field(i).Name
		fval := countersVal.Field(i)
		cc.outputf("%-40s %v\n", fname, fval.Uint())
	}
}

func (rt *CmdRunner) executeTime(cc *CommandContext, cmd *TimeCmd) {
	var curTime uint64
	rt.postAsyncWait(cc, func() {
		curTime = rt.collector.CurTimeUs()
	})
	cc.outputf("%d\n", curTime)
}

func (rt *CmdRunner) executeEnergy(cc *CommandContext, cmd *EnergyCmd) {
	if rt.energy == nil {
		cc.errorf("energy accounting is disabled")
		return
	}
	if cmd.Save != nil {
		rt.postAsyncWait(cc, func() {
			cc.error(rt.energy.SaveEnergyDataToFile(rt.outputDir, cmd.Name, rt.collector.CurTimeUs()))
		})
		return
	}

	for _, nc := range rt.energy.GetCurrentEnergyOfNodes() {
		cc.outputf("%s\tidle=%.3f\tbusy=%.3f\ttx=%.3f\trx=%.3f\ttotal=%.3f mJ\n", GetNodeName(nc.NodeId),
			nc.Energy[Idle], nc.Energy[ChannelBusy], nc.Energy[Transmitting], nc.Energy[Receiving],
			nc.Energy.Total())
	}
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevelString(logger.GetLevel()))
		return
	}
	level, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(level)
}

func (rt *CmdRunner) executeWatch(cc *CommandContext, cmd *WatchCmd) {
	if len(cmd.Nodes) == 0 && len(cmd.All) == 0 {
		watchedList := strings.Trim(fmt.Sprintf("%v", rt.d.GetWatchingNodes()), "[]")
		cc.outputf("%v\n", watchedList)
		return
	}

	nodesToWatch := rt.selectedNodes(cmd.Nodes)
	for _, nodeid := range nodesToWatch {
		if rt.collector.GetNode(nodeid) == nil {
			cc.errorf("node %d not found", nodeid)
			continue
		}
		rt.d.WatchNode(nodeid)
	}
}

func (rt *CmdRunner) executeUnwatch(cc *CommandContext, cmd *UnwatchCmd) {
	// if no node-number(s) given, unwatch all.
	if len(cmd.Nodes) == 0 {
		for _, n := range rt.d.GetWatchingNodes() {
			rt.d.UnwatchNode(n)
		}
		return
	}
	for _, sel := range cmd.Nodes {
		rt.d.UnwatchNode(sel.Id)
	}
}

func (rt *CmdRunner) executeExit(cc *CommandContext, cmd *ExitCmd) {
	rt.ctx.Cancel("exit")
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}
