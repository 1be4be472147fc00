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
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/logger"
	"github.com/openthread/otns-phystats/phystats"
	. "github.com/openthread/otns-phystats/types"
)

const (
	createSamplesSQL = `
	CREATE TABLE IF NOT EXISTS samples (
		run_id         TEXT    NOT NULL,
		node_id        INTEGER NOT NULL,
		timestamp_us   INTEGER NOT NULL,
		interval_us    INTEGER NOT NULL,
		rx_bytes       INTEGER NOT NULL,
		throughput_bps REAL    NOT NULL,
		avg_power_dbm  REAL,
		power_samples  INTEGER NOT NULL,
		idle_us        INTEGER NOT NULL,
		busy_us        INTEGER NOT NULL,
		tx_us          INTEGER NOT NULL,
		rx_us          INTEGER NOT NULL,
		PRIMARY KEY (run_id, node_id, timestamp_us)
	);`

	insertSampleSQL = `
	INSERT OR REPLACE INTO samples (
		run_id, node_id, timestamp_us, interval_us,
		rx_bytes, throughput_bps, avg_power_dbm, power_samples,
		idle_us, busy_us, tx_us, rx_us
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectSamplesSQL = `
	SELECT node_id, timestamp_us, interval_us, rx_bytes, throughput_bps, avg_power_dbm, power_samples,
		idle_us, busy_us, tx_us, rx_us
	FROM samples WHERE run_id = ? AND node_id = ? ORDER BY timestamp_us`
)

type SqliteConfig struct {
	DBPath       string
	RunId        string
	BatchSize    int
	BatchTimeout time.Duration
}

// SqliteSink stores samples in a SQLite database. Samples are buffered and written in one transaction per
// batch, either when BatchSize samples are buffered or every BatchTimeout.
type SqliteSink struct {
	db            *sql.DB
	cfg           SqliteConfig
	mu            sync.Mutex
	buffer        []*phystats.MetricSample
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
	closed        bool
}

func NewSqliteSink(cfg SqliteConfig) (*SqliteSink, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("sqlite sink: empty database path")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, errors.Wrap(err, "sqlite sink: create directory")
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite sink: open database")
	}
	if _, err := db.Exec(createSamplesSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite sink: create schema")
	}

	ss := &SqliteSink{
		db:            db,
		cfg:           cfg,
		buffer:        make([]*phystats.MetricSample, 0, cfg.BatchSize),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}
	if cfg.BatchSize > 1 && cfg.BatchTimeout > 0 {
		ss.flushTicker = time.NewTicker(cfg.BatchTimeout)
		go ss.flusher()
	} else {
		close(ss.flushDoneChan)
	}

	logger.Debugf("sqlite sink opened: path=%s batch=%d timeout=%v", cfg.DBPath, cfg.BatchSize, cfg.BatchTimeout)
	return ss, nil
}

func (ss *SqliteSink) Emit(sample *phystats.MetricSample) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.closed {
		return ErrSinkClosed
	}
	ss.buffer = append(ss.buffer, sample)
	if len(ss.buffer) >= ss.cfg.BatchSize {
		return ss.flush()
	}
	return nil
}

// Flush writes all buffered samples.
func (ss *SqliteSink) Flush() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.flush()
}

func (ss *SqliteSink) Close() error {
	ss.mu.Lock()
	if ss.closed {
		ss.mu.Unlock()
		return nil
	}
	ss.closed = true
	ss.mu.Unlock()

	close(ss.shutdownChan)
	if ss.flushTicker != nil {
		ss.flushTicker.Stop()
	}
	<-ss.flushDoneChan

	ss.mu.Lock()
	err := ss.flush()
	ss.mu.Unlock()

	if _, cerr := ss.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "sqlite sink: checkpoint wal")
	}
	if cerr := ss.db.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "sqlite sink: close database")
	}
	return err
}

func (ss *SqliteSink) flusher() {
	defer close(ss.flushDoneChan)

	for {
		select {
		case <-ss.flushTicker.C:
			ss.mu.Lock()
			if err := ss.flush(); err != nil {
				logger.Warnf("%v", err)
			}
			ss.mu.Unlock()
		case <-ss.shutdownChan:
			return
		}
	}
}

// flush must be called with ss.mu held.
func (ss *SqliteSink) flush() error {
	if len(ss.buffer) == 0 {
		return nil
	}

	tx, err := ss.db.Begin()
	if err != nil {
		return errors.Wrap(err, "sqlite sink: begin transaction")
	}

	stmt, err := tx.Prepare(insertSampleSQL)
	if err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			logger.Errorf("sqlite sink: failed to roll back transaction: %v", rerr)
		}
		return errors.Wrap(err, "sqlite sink: prepare insert")
	}
	defer stmt.Close()

	for _, s := range ss.buffer {
		var power interface{}
		if s.HasPowerSamples() {
			power = s.AvgPowerDbm
		}
		_, err := stmt.Exec(ss.cfg.RunId, s.NodeId, int64(s.TimestampUs), int64(s.IntervalUs),
			int64(s.BytesReceived), s.ThroughputBps, power, int64(s.PowerSamples),
			int64(s.StateDurationsUs[Idle]), int64(s.StateDurationsUs[ChannelBusy]),
			int64(s.StateDurationsUs[Transmitting]), int64(s.StateDurationsUs[Receiving]))
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				logger.Errorf("sqlite sink: failed to roll back transaction: %v", rerr)
			}
			return errors.Wrap(err, "sqlite sink: insert sample")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "sqlite sink: commit")
	}

	logger.Tracef("sqlite sink: flushed %d samples", len(ss.buffer))
	ss.buffer = ss.buffer[:0]
	return nil
}

// Query returns the stored samples of a node of this sink's run, oldest first.
func (ss *SqliteSink) Query(id NodeId) ([]*phystats.MetricSample, error) {
	rows, err := ss.db.Query(selectSamplesSQL, ss.cfg.RunId, id)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite sink: query")
	}
	defer rows.Close()

	var samples []*phystats.MetricSample
	for rows.Next() {
		s := &phystats.MetricSample{}
		var power sql.NullFloat64
		var ts, interval, bytes, count int64
		var d [NumActivityStates]int64
		if err := rows.Scan(&s.NodeId, &ts, &interval, &bytes, &s.ThroughputBps, &power, &count,
			&d[Idle], &d[ChannelBusy], &d[Transmitting], &d[Receiving]); err != nil {
			return nil, errors.Wrap(err, "sqlite sink: scan")
		}
		s.TimestampUs, s.IntervalUs, s.BytesReceived, s.PowerSamples =
			uint64(ts), uint64(interval), uint64(bytes), uint64(count)
		s.AvgPowerDbm = phystats.NoPowerSamples
		if power.Valid {
			s.AvgPowerDbm = power.Float64
		}
		for st := range d {
			s.StateDurationsUs[st] = uint64(d[st])
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
