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
	"context"
	"math"
	"path/filepath"
	"testing"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/openthread/otns-phystats/types"
)

func TestSqliteSink(t *testing.T) {
	ss, err := NewSqliteSink(SqliteConfig{
		DBPath:    filepath.Join(t.TempDir(), "db", "phystats.db"),
		RunId:     "run1",
		BatchSize: 2,
	})
	require.NoError(t, err)

	require.NoError(t, ss.Emit(testSample(1, 1000000)))
	samples, err := ss.Query(1)
	require.NoError(t, err)
	assert.Len(t, samples, 0)

	s2 := testSample(1, 2000000)
	s2.AvgPowerDbm = -7
	require.NoError(t, ss.Emit(s2))
	require.NoError(t, ss.Emit(testSample(2, 1000000)))
	require.NoError(t, ss.Flush())

	samples, err = ss.Query(1)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.True(t, math.IsNaN(samples[0].AvgPowerDbm))
	assert.Equal(t, -7.0, samples[1].AvgPowerDbm)
	assert.Equal(t, uint64(125), samples[1].BytesReceived)
	assert.Equal(t, testSample(1, 0).StateDurationsUs, samples[1].StateDurationsUs)

	samples, err = ss.Query(2)
	require.NoError(t, err)
	assert.Len(t, samples, 1)

	require.NoError(t, ss.Close())
	assert.Equal(t, ErrSinkClosed, ss.Emit(testSample(1, 3)))
}

func TestSqliteSink_EmptyPath(t *testing.T) {
	_, err := NewSqliteSink(SqliteConfig{})
	assert.Error(t, err)
}

func TestTstorageSink(t *testing.T) {
	ts, err := NewTstorageSink("")
	require.NoError(t, err)
	defer ts.Close()

	s := testSample(1, 1000000)
	require.NoError(t, ts.Emit(s))
	s2 := testSample(1, 2000000)
	s2.AvgPowerDbm = 3
	require.NoError(t, ts.Emit(s2))
	require.NoError(t, ts.Emit(testSample(2, 2000000)))

	points, err := ts.Select(MetricThroughput, 1, 0, 3000000)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(1000000), points[0].Timestamp)
	assert.Equal(t, 1000.0, points[0].Value)

	points, err = ts.Select(MetricAvgPower, 1, 0, 3000000)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 3.0, points[0].Value)

	points, err = ts.Select(StateMetric(Receiving), 2, 0, 3000000)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 300000.0, points[0].Value)

	points, err = ts.Select(MetricRxBytes, 3, 0, 3000000)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestLatestSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest")
	ls, err := NewLatestSink(path, "run1")
	require.NoError(t, err)

	require.NoError(t, ls.Emit(testSample(1, 1000000)))
	require.NoError(t, ls.Emit(testSample(1, 2000000)))

	s, err := ls.Latest(1)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, uint64(2000000), s.TimestampUs)

	s, err = ls.Latest(2)
	require.NoError(t, err)
	assert.Nil(t, s)
	require.NoError(t, ls.Close())

	ls, err = NewLatestSink(path, "run2")
	require.NoError(t, err)
	defer ls.Close()
	assert.Equal(t, "run2", ls.RunId())
	s, err = ls.Latest(1)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, uint64(2000000), s.TimestampUs)
}

type mockGreptimeClient struct {
	tables []*table.Table
	err    error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.tables = append(m.tables, tables...)
	return &gpb.GreptimeResponse{}, nil
}

func TestGreptimeSink(t *testing.T) {
	m := &mockGreptimeClient{}
	gs := newGreptimeSink(m, GreptimeConfig{RunId: "run1", BatchSize: 2})

	require.NoError(t, gs.Emit(testSample(7, 1000000)))
	assert.Len(t, m.tables, 0)
	require.NoError(t, gs.Emit(testSample(7, 2000000)))
	require.Len(t, m.tables, 1)

	rows := m.tables[0].GetRows()
	require.Len(t, rows.Rows, 2)
	assert.Equal(t, "run_id", rows.Schema[0].ColumnName)
	assert.Equal(t, gpb.SemanticType_TAG, rows.Schema[1].SemanticType)
	assert.Equal(t, gpb.ColumnDataType_FLOAT64, rows.Schema[4].Datatype)
	assert.Equal(t, gpb.SemanticType_TIMESTAMP, rows.Schema[11].SemanticType)
	assert.Equal(t, "run1", rows.Rows[0].Values[0].GetStringValue())
	assert.Equal(t, int64(7), rows.Rows[0].Values[1].GetI64Value())
	assert.Equal(t, uint64(125), rows.Rows[1].Values[3].GetU64Value())
	assert.True(t, math.IsNaN(rows.Rows[1].Values[5].GetF64Value()))

	require.NoError(t, gs.Emit(testSample(7, 3000000)))
	require.NoError(t, gs.Close())
	assert.Len(t, m.tables, 2)
	assert.Len(t, m.tables[1].GetRows().Rows, 1)
}

func TestGreptimeSink_WriteError(t *testing.T) {
	m := &mockGreptimeClient{err: errors.New("unavailable")}
	gs := newGreptimeSink(m, GreptimeConfig{})

	err := gs.Emit(testSample(1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
	assert.NoError(t, gs.Close())
}
