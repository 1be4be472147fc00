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
	"os"
	"path/filepath"
	"sync"

	"github.com/openthread/otns-phystats/logger"
	"github.com/openthread/otns-phystats/phystats"
	. "github.com/openthread/otns-phystats/types"
)

// CsvSink appends one RFC 4180 CSV row per sample to a log file. After a write error the file is closed and
// further samples are silently discarded.
type CsvSink struct {
	lock          sync.Mutex
	logFile       *os.File
	logFileName   string
	isFileEnabled bool
	rows          int
}

// NewCsvSink creates the CSV log file <outputDir>/<runId>_phystats.csv, replacing an existing one.
func NewCsvSink(outputDir string, runId string) (*CsvSink, error) {
	cs := &CsvSink{
		logFileName: getCsvFileName(outputDir, runId),
	}
	if err := cs.createLogFile(); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *CsvSink) FileName() string {
	return cs.logFileName
}

func (cs *CsvSink) createLogFile() error {
	logger.AssertNil(cs.logFile)

	var err error
	_ = os.Remove(cs.logFileName)

	cs.logFile, err = os.OpenFile(cs.logFileName, os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		logger.Errorf("creating new stats log file %s failed: %+v", cs.logFileName, err)
		return err
	}
	cs.isFileEnabled = true
	cs.writeLogFileHeader()
	logger.Debugf("Stats log file '%s' created.", cs.logFileName)
	return nil
}

func (cs *CsvSink) writeLogFileHeader() {
	// RFC 4180 CSV file: no leading or trailing spaces in header field names
	header := "timeSec,node,intervalSec,rxBytes,throughputBps,avgPowerDbm,powerSamples,idleUs,busyUs,txUs,rxUs"
	_ = cs.writeToLogFile(header)
}

func (cs *CsvSink) Emit(s *phystats.MetricSample) error {
	cs.lock.Lock()
	defer cs.lock.Unlock()

	if !cs.isFileEnabled {
		return nil
	}
	power := ""
	if s.HasPowerSamples() {
		power = fmt.Sprintf("%.3f", s.AvgPowerDbm)
	}
	entry := fmt.Sprintf("%.6f,%d,%.6f,%d,%.3f,%s,%d,%d,%d,%d,%d", s.TimeSec(), s.NodeId,
		float64(s.IntervalUs)/1e6, s.BytesReceived, s.ThroughputBps, power, s.PowerSamples,
		s.StateDurationsUs[Idle], s.StateDurationsUs[ChannelBusy],
		s.StateDurationsUs[Transmitting], s.StateDurationsUs[Receiving])
	if err := cs.writeToLogFile(entry); err != nil {
		return err
	}
	cs.rows++
	return nil
}

// Rows returns the number of sample rows written.
func (cs *CsvSink) Rows() int {
	cs.lock.Lock()
	defer cs.lock.Unlock()
	return cs.rows
}

func (cs *CsvSink) writeToLogFile(line string) error {
	if !cs.isFileEnabled {
		return nil
	}
	_, err := cs.logFile.WriteString(line + "\n")
	if err != nil {
		cs.close()
		logger.Errorf("couldn't write to stats log file (%s), closing it", cs.logFileName)
	}
	return err
}

func (cs *CsvSink) Close() error {
	cs.lock.Lock()
	defer cs.lock.Unlock()
	cs.close()
	logger.Debugf("CSV stats log file closed.")
	return nil
}

func (cs *CsvSink) close() {
	if cs.logFile != nil {
		_ = cs.logFile.Close()
		cs.logFile = nil
		cs.isFileEnabled = false
	}
}

func getCsvFileName(outputDir string, runId string) string {
	return filepath.Join(outputDir, fmt.Sprintf("%s_phystats.csv", runId))
}
