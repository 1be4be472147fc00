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
	"bufio"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/openthread/otns-phystats/cli"
	"github.com/openthread/otns-phystats/event"
	"github.com/openthread/otns-phystats/otns_main"
)

var (
	replayInput   string
	replayConsole bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded event file",
	Long:  "replay feeds the events of a recorded event file through the collector in sim mode.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return errors.New("input file required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Listen.Port = 0

		f, err := os.Open(replayInput)
		if err != nil {
			return errors.Wrapf(err, "open %s", replayInput)
		}
		defer f.Close()

		opts := otns_main.Options{Source: event.NewReader(bufio.NewReader(f))}
		if replayConsole {
			opts.Console = cli.DefaultOptions()
		}
		return runMain(cfg, opts)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to a recorded event file")
	replayCmd.Flags().BoolVar(&replayConsole, "console", false, "Keep the console open after the replay")
	_ = replayCmd.MarkFlagRequired("input")
}
