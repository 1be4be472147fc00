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

package event

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

const readBufferSize = 64 * 1024

// Reader reads consecutive serialized events from a byte stream, e.g. a recorded event file.
type Reader struct {
	r   *bufio.Reader
	buf []byte
	eof bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, readBufferSize)}
}

// Next returns the next event, or io.EOF at the clean end of the stream. A stream ending inside an event
// returns io.ErrUnexpectedEOF.
func (er *Reader) Next() (*Event, error) {
	for {
		ev := &Event{}
		if n := ev.Deserialize(er.buf); n > 0 {
			er.buf = er.buf[n:]
			return ev, nil
		}
		if er.eof {
			if len(er.buf) == 0 {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		}

		chunk := make([]byte, 4096)
		n, err := er.r.Read(chunk)
		er.buf = append(er.buf, chunk[:n]...)
		if err == io.EOF {
			er.eof = true
		} else if err != nil {
			return nil, errors.Wrap(err, "read events")
		}
	}
}

// Writer writes serialized events to a byte stream.
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (ew *Writer) Write(ev *Event) error {
	_, err := ew.w.Write(ev.Serialize())
	return err
}

func (ew *Writer) Flush() error {
	return ew.w.Flush()
}
