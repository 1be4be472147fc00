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

package stream

import (
	"context"
	"math"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/openthread/otns-phystats/phystats"
	. "github.com/openthread/otns-phystats/types"
)

func startServer(t *testing.T) (*Server, *MetricStreamClient) {
	lis := bufconn.Listen(1024 * 1024)
	gs := NewServer("")
	go func() {
		_ = gs.Serve(lis)
	}()
	t.Cleanup(func() { _ = gs.Close() })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return gs, NewMetricStreamClient(conn)
}

func recvSample(t *testing.T, stream MetricStream_SubscribeClient) *phystats.MetricSample {
	for {
		msg, err := stream.Recv()
		require.NoError(t, err)
		if IsHeartbeat(msg) {
			continue
		}
		s, err := StructToSample(msg)
		require.NoError(t, err)
		return s
	}
}

func TestServer_StreamsSamples(t *testing.T) {
	gs, client := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.Subscribe(ctx, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return gs.NumSubscribers() == 1 }, 2*time.Second, time.Millisecond)

	sent := &phystats.MetricSample{NodeId: 2, TimestampUs: 3000000, IntervalUs: 1000000, BytesReceived: 50,
		ThroughputBps: 400, AvgPowerDbm: phystats.NoPowerSamples,
		StateDurationsUs: phystats.StateDurations{1, 2, 3, 999994}}
	require.NoError(t, gs.Emit(sent))

	got := recvSample(t, stream)
	assert.Equal(t, sent.NodeId, got.NodeId)
	assert.Equal(t, sent.TimestampUs, got.TimestampUs)
	assert.Equal(t, sent.ThroughputBps, got.ThroughputBps)
	assert.True(t, math.IsNaN(got.AvgPowerDbm))
	assert.Equal(t, sent.StateDurationsUs, got.StateDurationsUs)
}

func TestServer_NodeFilter(t *testing.T) {
	gs, client := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter, err := structpb.NewStruct(map[string]interface{}{"node": 5})
	require.NoError(t, err)
	stream, err := client.Subscribe(ctx, filter)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return gs.NumSubscribers() == 1 }, 2*time.Second, time.Millisecond)

	require.NoError(t, gs.Emit(&phystats.MetricSample{NodeId: 4, AvgPowerDbm: 1}))
	require.NoError(t, gs.Emit(&phystats.MetricSample{NodeId: 5, AvgPowerDbm: 2}))

	got := recvSample(t, stream)
	assert.Equal(t, 5, got.NodeId)
	assert.Equal(t, 2.0, got.AvgPowerDbm)
}

func TestServer_CloseEndsStreams(t *testing.T) {
	gs, client := startServer(t)
	stream, err := client.Subscribe(context.Background(), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return gs.NumSubscribers() == 1 }, 2*time.Second, time.Millisecond)

	require.NoError(t, gs.Close())
	for {
		msg, err := stream.Recv()
		if err != nil {
			break
		}
		assert.True(t, IsHeartbeat(msg))
	}
	assert.Eventually(t, func() bool { return gs.NumSubscribers() == 0 }, 2*time.Second, time.Millisecond)
	assert.NoError(t, gs.Emit(&phystats.MetricSample{NodeId: 1}))
}

func TestConvert(t *testing.T) {
	s := &phystats.MetricSample{NodeId: 9, TimestampUs: 1, AvgPowerDbm: -3.25, PowerSamples: 4}
	m, err := SampleToStruct(s)
	require.NoError(t, err)
	assert.False(t, IsHeartbeat(m))
	assert.True(t, IsHeartbeat(heartbeatMessage()))

	back, err := StructToSample(m)
	require.NoError(t, err)
	assert.Equal(t, -3.25, back.AvgPowerDbm)
	assert.Equal(t, uint64(4), back.PowerSamples)

	_, err = StructToSample(heartbeatMessage())
	assert.Error(t, err)
	assert.Equal(t, InvalidNodeId, filterNode(&structpb.Struct{}))
}
