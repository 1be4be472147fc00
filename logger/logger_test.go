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
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/openthread/otns-phystats/types"
)

func TestParseLevelString(t *testing.T) {
	for _, lv := range []Level{TraceLevel, DebugLevel, InfoLevel, NoteLevel, WarnLevel, ErrorLevel, OffLevel} {
		parsed, err := ParseLevelString(GetLevelString(lv))
		assert.Nil(t, err)
		assert.Equal(t, lv, parsed)
	}

	lv, err := ParseLevelString("W")
	assert.Nil(t, err)
	assert.Equal(t, WarnLevel, lv)

	lv, err = ParseLevelString("verbose")
	assert.NotNil(t, err)
	assert.Equal(t, DefaultLevel, lv)
}

func TestGetMessage(t *testing.T) {
	assert.Equal(t, "plain", getMessage("plain", nil))
	assert.Equal(t, "n=3", getMessage("n=%d", []interface{}{3}))
	assert.Equal(t, "single", getMessage("", []interface{}{"single"}))
}

func TestAssertPanics(t *testing.T) {
	assert.True(t, AssertTrue(true))
	assert.Panics(t, func() {
		AssertTrue(false, "must panic")
	})
}

func TestNodeLoggerFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultNodeConfig()
	cfg.ID = 7
	cfg.NodeLogFile = true

	nl := GetNodeLogger(dir, &cfg)
	assert.True(t, nl.IsFileEnabled())
	assert.Same(t, nl, GetNodeLogger(dir, &cfg))

	nl.SetLevel(DebugLevel)
	nl.SetTimestamp(1234)
	nl.Debugf("window closed, %d bytes", 99)
	nl.Tracef("not written")
	ReleaseNodeLogger(7)
	assert.False(t, nl.IsFileEnabled())

	data, err := os.ReadFile(getLogFileName(dir, 7))
	assert.Nil(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "window closed, 99 bytes"))
	assert.True(t, strings.Contains(content, "1234"))
	assert.False(t, strings.Contains(content, "not written"))
}
