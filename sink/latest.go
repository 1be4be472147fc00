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
	"encoding/json"
	"strconv"

	"git.mills.io/prologic/bitcask"
	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/phystats"
	. "github.com/openthread/otns-phystats/types"
)

const (
	latestKeyPrefix = "latest/"
	runKey          = "run"
)

// LatestSink keeps the most recent sample of every node in a bitcask key-value store, so that the last known
// statistics survive a restart.
type LatestSink struct {
	db *bitcask.Bitcask
}

func NewLatestSink(path string, runId string) (*LatestSink, error) {
	db, err := bitcask.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "latest sink: open %s", path)
	}
	if err := db.Put([]byte(runKey), []byte(runId)); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "latest sink: store run id")
	}
	return &LatestSink{db: db}, nil
}

func latestKey(id NodeId) []byte {
	return []byte(latestKeyPrefix + strconv.Itoa(id))
}

func (ls *LatestSink) Emit(s *phystats.MetricSample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return ls.db.Put(latestKey(s.NodeId), data)
}

// Latest returns the stored sample of a node, or nil if there is none.
func (ls *LatestSink) Latest(id NodeId) (*phystats.MetricSample, error) {
	data, err := ls.db.Get(latestKey(id))
	if errors.Is(err, bitcask.ErrKeyNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	s := &phystats.MetricSample{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// RunId returns the id of the run that last opened the store.
func (ls *LatestSink) RunId() string {
	data, err := ls.db.Get([]byte(runKey))
	if err != nil {
		return ""
	}
	return string(data)
}

func (ls *LatestSink) Close() error {
	return ls.db.Close()
}
