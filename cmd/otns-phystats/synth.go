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
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/openthread/otns-phystats/cli"
	"github.com/openthread/otns-phystats/dispatcher"
	"github.com/openthread/otns-phystats/event"
	"github.com/openthread/otns-phystats/otns_main"
)

var (
	synthRecord  string
	synthConsole bool
)

// recordingSource writes every event it passes on to an event file.
type recordingSource struct {
	src dispatcher.Source
	w   *event.Writer
}

func (rs *recordingSource) Next() (*event.Event, error) {
	evt, err := rs.src.Next()
	if err != nil {
		return nil, err
	}
	if err := rs.w.Write(evt); err != nil {
		return nil, errors.Wrap(err, "record event")
	}
	return evt, nil
}

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Run the collector on synthetic radio traffic",
	Long:  "synth generates random radio activity for a number of nodes and reports it in sim mode.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Listen.Port = 0

		var src dispatcher.Source
		src, err = dispatcher.NewSynthSource(cfg.SynthSource())
		if err != nil {
			return err
		}

		if synthRecord != "" {
			f, err := os.Create(synthRecord)
			if err != nil {
				return errors.Wrapf(err, "create %s", synthRecord)
			}
			defer f.Close()
			w := event.NewWriter(f)
			defer func() {
				_ = w.Flush()
			}()
			src = &recordingSource{src: src, w: w}
		}

		opts := otns_main.Options{Source: src}
		if synthConsole {
			opts.Console = cli.DefaultOptions()
		}
		return runMain(cfg, opts)
	},
}

func init() {
	synthCmd.Flags().StringVar(&synthRecord, "record", "", "Also write the generated events to this file")
	synthCmd.Flags().BoolVar(&synthConsole, "console", false, "Keep the console open after the traffic ends")
	synthCmd.Flags().Int("nodes", 0, "Number of nodes")
	synthCmd.Flags().Duration("duration", 0, "Length of the generated traffic in sim time")
	synthCmd.Flags().Int64("seed", 0, "Random seed, 0 picks one")

	for name, key := range map[string]string{
		"nodes":    "synth.nodes",
		"duration": "synth.duration",
		"seed":     "synth.seed",
	} {
		if err := loader.BindFlag(key, synthCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}
