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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openthread/otns-phystats/config"
	"github.com/openthread/otns-phystats/otns_main"
	"github.com/openthread/otns-phystats/progctx"
)

var (
	configPath string
	loader     = config.NewLoader()
)

var rootCmd = &cobra.Command{
	Use:           "otns-phystats",
	Short:         "Per-node radio activity statistics",
	Long:          "otns-phystats collects radio events of simulated or real nodes and reports time-windowed metrics.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"interval":      "interval",
	"mode":          "mode",
	"output-dir":    "output_dir",
	"log":           "log_level",
	"flush-on-stop": "flush_on_stop",
	"node-log-file": "node_log_file",
	"speed":         "speed",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML config file")
	pf.Duration("interval", 0, "Report interval of each node (e.g. 100ms, 1s)")
	pf.String("mode", "", "What closes windows: 'sim' (event time) or 'live' (wall clock)")
	pf.String("output-dir", "", "Directory for output files")
	pf.String("log", "", "Log level: trace, debug, info, note, warn, error or off")
	pf.Bool("flush-on-stop", true, "Emit the partial window of a node when it is removed")
	pf.Bool("node-log-file", false, "Write a log file per node")
	pf.Float64("speed", 0, "Replay speed multiplier, 0 replays as fast as possible")

	for name, key := range flagKeys {
		if err := loader.BindFlag(key, pf.Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(synthCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig() (*config.Config, error) {
	return loader.Load(configPath)
}

func runMain(cfg *config.Config, opts otns_main.Options) error {
	ctx := progctx.New(context.Background())
	return otns_main.Main(ctx, cfg, opts)
}
