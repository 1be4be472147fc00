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

// Package config loads the otns-phystats configuration from a YAML file, PHYSTATS_* environment variables
// and command line flags, and validates it against a CUE schema.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/openthread/otns-phystats/dispatcher"
	"github.com/openthread/otns-phystats/phystats"
	"github.com/openthread/otns-phystats/prng"
	"github.com/openthread/otns-phystats/sink"
)

type ListenConfig struct {
	Host            string `yaml:"host" mapstructure:"host"`
	Port            int    `yaml:"port" mapstructure:"port"`
	AutoAddNodes    bool   `yaml:"auto_add_nodes" mapstructure:"auto_add_nodes"`
	ReorderWindowUs uint64 `yaml:"reorder_window_us" mapstructure:"reorder_window_us"`
	WatchNodes      bool   `yaml:"watch_nodes" mapstructure:"watch_nodes"`
}

type StreamConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Address   string        `yaml:"address" mapstructure:"address"`
	Heartbeat time.Duration `yaml:"heartbeat" mapstructure:"heartbeat"`
}

type SqliteConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Path         string        `yaml:"path" mapstructure:"path"`
	BatchSize    int           `yaml:"batch_size" mapstructure:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout" mapstructure:"batch_timeout"`
}

type StoreConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

type GreptimeConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Host      string        `yaml:"host" mapstructure:"host"`
	Port      int           `yaml:"port" mapstructure:"port"`
	Database  string        `yaml:"database" mapstructure:"database"`
	Table     string        `yaml:"table" mapstructure:"table"`
	BatchSize int           `yaml:"batch_size" mapstructure:"batch_size"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type SinksConfig struct {
	QueueSize int            `yaml:"queue_size" mapstructure:"queue_size"`
	Console   bool           `yaml:"console" mapstructure:"console"`
	Csv       bool           `yaml:"csv" mapstructure:"csv"`
	Jsonl     bool           `yaml:"jsonl" mapstructure:"jsonl"`
	Energy    bool           `yaml:"energy" mapstructure:"energy"`
	Memory    int            `yaml:"memory" mapstructure:"memory"`
	Sqlite    SqliteConfig   `yaml:"sqlite" mapstructure:"sqlite"`
	Tstorage  StoreConfig    `yaml:"tstorage" mapstructure:"tstorage"`
	Latest    StoreConfig    `yaml:"latest" mapstructure:"latest"`
	Greptime  GreptimeConfig `yaml:"greptime" mapstructure:"greptime"`
}

type SynthConfig struct {
	Nodes      int           `yaml:"nodes" mapstructure:"nodes"`
	Duration   time.Duration `yaml:"duration" mapstructure:"duration"`
	MeanDwell  time.Duration `yaml:"mean_dwell" mapstructure:"mean_dwell"`
	MaxRxBytes int           `yaml:"max_rx_bytes" mapstructure:"max_rx_bytes"`
	TxPowerDbm float64       `yaml:"tx_power_dbm" mapstructure:"tx_power_dbm"`
	Seed       int64         `yaml:"seed" mapstructure:"seed"`
}

// Config is the complete configuration of an otns-phystats run.
type Config struct {
	Interval    time.Duration `yaml:"interval" mapstructure:"interval"`
	Mode        string        `yaml:"mode" mapstructure:"mode"`
	FlushOnStop bool          `yaml:"flush_on_stop" mapstructure:"flush_on_stop"`
	OutputDir   string        `yaml:"output_dir" mapstructure:"output_dir"`
	NodeLogFile bool          `yaml:"node_log_file" mapstructure:"node_log_file"`
	LogLevel    string        `yaml:"log_level" mapstructure:"log_level"`
	Speed       float64       `yaml:"speed" mapstructure:"speed"`

	Listen ListenConfig `yaml:"listen" mapstructure:"listen"`
	Stream StreamConfig `yaml:"stream" mapstructure:"stream"`
	Sinks  SinksConfig  `yaml:"sinks" mapstructure:"sinks"`
	Synth  SynthConfig  `yaml:"synth" mapstructure:"synth"`
}

func Default() *Config {
	return &Config{
		Interval:    phystats.DefaultInterval,
		Mode:        string(phystats.ModeSim),
		FlushOnStop: true,
		OutputDir:   ".",
		NodeLogFile: false,
		LogLevel:    "info",
		Speed:       0,
		Listen: ListenConfig{
			Host:         "localhost",
			Port:         dispatcher.DefaultPort,
			AutoAddNodes: true,
		},
		Stream: StreamConfig{
			Enabled:   false,
			Address:   "localhost:8999",
			Heartbeat: 10 * time.Second,
		},
		Sinks: SinksConfig{
			QueueSize: sink.DefaultQueueSize,
			Console:   true,
			Csv:       true,
			Energy:    true,
			Memory:    600,
			Sqlite: SqliteConfig{
				Path:         "phystats.db",
				BatchSize:    100,
				BatchTimeout: time.Second,
			},
			Tstorage: StoreConfig{Path: "tsdb"},
			Latest:   StoreConfig{Path: "latest"},
			Greptime: GreptimeConfig{
				Host:      "localhost",
				Port:      4001,
				Database:  "public",
				Table:     "phystats",
				BatchSize: 100,
				Timeout:   5 * time.Second,
			},
		},
		Synth: SynthConfig{
			Nodes:      5,
			Duration:   10 * time.Second,
			MeanDwell:  2 * time.Millisecond,
			MaxRxBytes: 127,
			TxPowerDbm: 0,
		},
	}
}

// Validate checks the configuration against the schema and the constraints the schema can not express.
func (cfg *Config) Validate() error {
	if err := validateSchema(cfg); err != nil {
		return err
	}
	if err := cfg.Phystats().Validate(); err != nil {
		return errors.Wrap(err, "config")
	}
	if cfg.Synth.MeanDwell < time.Microsecond {
		return errors.Errorf("config: synth.mean_dwell must be at least 1us, got %v", cfg.Synth.MeanDwell)
	}
	return nil
}

// Path returns name resolved against the output directory, unless it is absolute.
func (cfg *Config) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.OutputDir, name)
}

func (cfg *Config) Phystats() *phystats.Config {
	return &phystats.Config{
		Interval:    cfg.Interval,
		Mode:        phystats.Mode(cfg.Mode),
		FlushOnStop: cfg.FlushOnStop,
		OutputDir:   cfg.OutputDir,
		NodeLogFile: cfg.NodeLogFile,
	}
}

func (cfg *Config) Dispatcher() *dispatcher.Config {
	dcfg := dispatcher.DefaultConfig()
	dcfg.Host = cfg.Listen.Host
	dcfg.Port = cfg.Listen.Port
	dcfg.AutoAddNodes = cfg.Listen.AutoAddNodes
	dcfg.ReorderWindowUs = cfg.Listen.ReorderWindowUs
	dcfg.DefaultWatchOn = cfg.Listen.WatchNodes
	return dcfg
}

func (cfg *Config) SynthSource() *dispatcher.SynthConfig {
	return &dispatcher.SynthConfig{
		NumNodes:   cfg.Synth.Nodes,
		Duration:   cfg.Synth.Duration,
		MeanDwell:  cfg.Synth.MeanDwell,
		MaxRxBytes: cfg.Synth.MaxRxBytes,
		TxPowerDbm: cfg.Synth.TxPowerDbm,
		Seed:       prng.RandomSeed(cfg.Synth.Seed),
	}
}

// Save writes the configuration as YAML.
func (cfg *Config) Save(path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write %s", path)
}
