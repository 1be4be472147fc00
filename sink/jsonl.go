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
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/phystats"
)

// JsonlSink writes samples as JSON lines to a file.
type JsonlSink struct {
	lock sync.Mutex
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

func NewJsonlSink(path string) (*JsonlSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	buf := bufio.NewWriter(f)
	return &JsonlSink{file: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (js *JsonlSink) Emit(sample *phystats.MetricSample) error {
	js.lock.Lock()
	defer js.lock.Unlock()

	if js.file == nil {
		return ErrSinkClosed
	}
	return js.enc.Encode(sample)
}

func (js *JsonlSink) Close() error {
	js.lock.Lock()
	defer js.lock.Unlock()

	if js.file == nil {
		return nil
	}
	err := js.buf.Flush()
	if cerr := js.file.Close(); err == nil {
		err = cerr
	}
	js.file = nil
	return err
}

// ReadJsonl reads back all samples of a file written by JsonlSink.
func ReadJsonl(path string) ([]*phystats.MetricSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var samples []*phystats.MetricSample
	dec := json.NewDecoder(f)
	for dec.More() {
		s := &phystats.MetricSample{}
		if err := dec.Decode(s); err != nil {
			return samples, errors.Wrapf(err, "decode sample %d", len(samples)+1)
		}
		samples = append(samples, s)
	}
	return samples, nil
}
