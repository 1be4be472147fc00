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

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/openthread/otns-phystats/types"
)

// NodeLogger is a node-specific log object. Level and output file can be set per individual node.
type NodeLogger struct {
	Id    NodeId
	level Level

	mutex         sync.Mutex
	logFile       *os.File
	logFileName   string
	isFileEnabled bool
	timestampUs   uint64
}

var (
	nodeLogs  = make(map[NodeId]*NodeLogger, 16)
	nodeMutex = sync.Mutex{}
)

// GetNodeLogger gets the NodeLogger instance for the given node config, creating it if needed. If the config
// asks for a node log file, it's created in outputDir.
func GetNodeLogger(outputDir string, cfg *NodeConfig) *NodeLogger {
	nodeMutex.Lock()
	defer nodeMutex.Unlock()

	nl, ok := nodeLogs[cfg.ID]
	if !ok {
		nl = &NodeLogger{
			Id:          cfg.ID,
			level:       currentLevel,
			logFileName: getLogFileName(outputDir, cfg.ID),
		}
		nodeLogs[cfg.ID] = nl
	}
	if cfg.NodeLogFile && nl.logFile == nil {
		nl.createLogFile()
	}
	return nl
}

// ReleaseNodeLogger closes and forgets the NodeLogger of a node that is no longer monitored.
func ReleaseNodeLogger(id NodeId) {
	nodeMutex.Lock()
	nl, ok := nodeLogs[id]
	delete(nodeLogs, id)
	nodeMutex.Unlock()

	if ok {
		nl.Close()
	}
}

func getLogFileName(outputDir string, nodeId NodeId) string {
	return filepath.Join(outputDir, fmt.Sprintf("phystats_%d.log", nodeId))
}

func (nl *NodeLogger) createLogFile() {
	var err error
	nl.logFile, err = os.OpenFile(nl.logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0664)
	if err != nil {
		Errorf("creating node log file %s failed: %+v", nl.logFileName, err)
		nl.isFileEnabled = false
		return
	}
	nl.isFileEnabled = true

	header := fmt.Sprintf("#\n# phystats log for %s Created %s\n", GetNodeName(nl.Id),
		time.Now().Format(time.RFC3339)) +
		"# TimeUs      Lev   Message"
	_ = nl.writeToLogFile(header)
}

func (nl *NodeLogger) SetLevel(level Level) {
	nl.mutex.Lock()
	defer nl.mutex.Unlock()
	nl.level = level
}

func (nl *NodeLogger) GetLevel() Level {
	nl.mutex.Lock()
	defer nl.mutex.Unlock()
	return nl.level
}

// SetTimestamp sets the (simulation) time shown in subsequent log lines of this node.
func (nl *NodeLogger) SetTimestamp(ts uint64) {
	nl.mutex.Lock()
	nl.timestampUs = ts
	nl.mutex.Unlock()
}

func (nl *NodeLogger) logf(level Level, format string, args []interface{}) {
	nl.mutex.Lock()
	if level > nl.level {
		nl.mutex.Unlock()
		return
	}
	msg := fmt.Sprintf("%11d %-5s %s", nl.timestampUs, GetLevelString(level), getMessage(format, args))
	if nl.isFileEnabled {
		_ = nl.writeToLogFile(msg)
	}
	nl.mutex.Unlock()

	if level <= currentLevel {
		logAlways(level, GetNodeName(nl.Id)+" "+msg)
	}
}

func (nl *NodeLogger) Tracef(format string, args ...interface{}) {
	nl.logf(TraceLevel, format, args)
}

func (nl *NodeLogger) Debugf(format string, args ...interface{}) {
	nl.logf(DebugLevel, format, args)
}

func (nl *NodeLogger) Infof(format string, args ...interface{}) {
	nl.logf(InfoLevel, format, args)
}

func (nl *NodeLogger) Warnf(format string, args ...interface{}) {
	nl.logf(WarnLevel, format, args)
}

func (nl *NodeLogger) Errorf(format string, args ...interface{}) {
	nl.logf(ErrorLevel, format, args)
}

func (nl *NodeLogger) Error(err error) {
	if err == nil {
		return
	}
	nl.logf(ErrorLevel, "%v", []interface{}{err})
}

// writeToLogFile must be called with nl.mutex held.
func (nl *NodeLogger) writeToLogFile(line string) error {
	_, err := nl.logFile.WriteString(line + "\n")
	if err != nil {
		_ = nl.logFile.Close()
		nl.logFile = nil
		nl.isFileEnabled = false
		Errorf("couldn't write to node log file (%s), closing it", nl.logFileName)
	}
	return err
}

// IsFileEnabled returns true if logging to file is currently enabled, false if not.
func (nl *NodeLogger) IsFileEnabled() bool {
	nl.mutex.Lock()
	defer nl.mutex.Unlock()
	return nl.isFileEnabled
}

// Close closes the node log file, if any.
func (nl *NodeLogger) Close() {
	nl.mutex.Lock()
	defer nl.mutex.Unlock()
	if nl.logFile != nil {
		_ = nl.logFile.Close()
		nl.logFile = nil
		nl.isFileEnabled = false
	}
}
