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
	"strconv"

	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Add      *AddCmd      `  @@` //nolint
	Counters *CountersCmd `| @@` //nolint
	Del      *DelCmd      `| @@` //nolint
	Energy   *EnergyCmd   `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Flush    *FlushCmd    `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Nodes    *NodesCmd    `| @@` //nolint
	Stats    *StatsCmd    `| @@` //nolint
	Time     *TimeCmd     `| @@` //nolint
	Unwatch  *UnwatchCmd  `| @@` //nolint
	Watch    *WatchCmd    `| @@` //nolint
	Window   *WindowCmd   `| @@` //nolint
}

// noinspection GoStructTag
type NodeSelector struct {
	Id int `@Int` //nolint
}

func (ns *NodeSelector) String() string {
	return strconv.Itoa(ns.Id)
}

// noinspection GoStructTag
type StateFlag struct {
	Val string `"state" @( "idle" | "busy" | "tx" | "rx" )` //nolint
}

// noinspection GoStructTag
type AddCmd struct {
	Cmd   struct{}     `"add"`  //nolint
	Node  NodeSelector `@@`     //nolint
	State *StateFlag   `[ @@ ]` //nolint
}

// noinspection GoStructTag
type DelCmd struct {
	Cmd   struct{}       `"del"`   //nolint
	Nodes []NodeSelector `( @@ )+` //nolint
}

// noinspection GoStructTag
type NodesCmd struct {
	Cmd struct{} `"nodes"` //nolint
}

// noinspection GoStructTag
type StatsCmd struct {
	Cmd   struct{}       `"stats"`     //nolint
	Nodes []NodeSelector `[ ( @@ )+ ]` //nolint
}

// noinspection GoStructTag
type WindowCmd struct {
	Cmd  struct{}     `"window"` //nolint
	Node NodeSelector `@@`       //nolint
}

// noinspection GoStructTag
type FlushCmd struct {
	Cmd struct{} `"flush"` //nolint
}

// noinspection GoStructTag
type CountersCmd struct {
	Cmd struct{} `"counters"` //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

// noinspection GoStructTag
type SaveFlag struct {
	Dummy struct{} `"save"` //nolint
}

// noinspection GoStructTag
type EnergyCmd struct {
	Cmd  struct{}  `"energy"` //nolint
	Save *SaveFlag `( @@ )?`  //nolint
	Name string    `@String?` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

// noinspection GoStructTag
type LogLevelCmd struct {
	Cmd   struct{} `"log"`                                                                                       //nolint
	Level string   `[@( "trace"|"debug"|"info"|"note"|"warn"|"error"|"off"|"none"|"T"|"D"|"I"|"N"|"W"|"E"|"C" )]` //nolint
}

// noinspection GoStructTag
type WatchCmd struct {
	Cmd   struct{}       `"watch"`     //nolint
	All   string         `[ @"all" ]`  //nolint
	Nodes []NodeSelector `[ ( @@ )+ ]` //nolint
}

// noinspection GoStructTag
type UnwatchCmd struct {
	Cmd   struct{}       `"unwatch"`   //nolint
	All   string         `[ @"all" ]`  //nolint
	Nodes []NodeSelector `[ ( @@ )+ ]` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	err := commandParser.ParseBytes(b, cmd)
	return err
}
