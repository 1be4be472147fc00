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
	"github.com/spf13/cobra"

	"github.com/openthread/otns-phystats/cli"
	"github.com/openthread/otns-phystats/otns_main"
)

var (
	runHeadless    bool
	runHistoryFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect events from the UDP listener",
	Long:  "run listens for radio events on UDP and reports metrics until exit or a signal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		opts := otns_main.Options{}
		if !runHeadless {
			opts.Console = cli.DefaultOptions()
			opts.Console.HistoryFile = runHistoryFile
		}
		return runMain(cfg, opts)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run without the interactive console")
	runCmd.Flags().StringVar(&runHistoryFile, "history", "", "Console history file")
	runCmd.Flags().String("host", "", "Listen host for radio events")
	runCmd.Flags().Int("port", 0, "Listen port for radio events, 0 disables the listener")
	runCmd.Flags().Uint64("reorder-window", 0, "Hold back events up to this many us to restore timestamp order")

	for name, key := range map[string]string{
		"host":           "listen.host",
		"port":           "listen.port",
		"reorder-window": "listen.reorder_window_us",
	} {
		if err := loader.BindFlag(key, runCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}
