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

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName         = "otns.phystats.MetricStream"
	SubscribeMethodName = "/" + ServiceName + "/Subscribe"
)

// MetricStreamServer is the server API of the MetricStream service. Subscribe takes a filter, optionally
// holding a "node" number, and streams one message per emitted sample.
type MetricStreamServer interface {
	Subscribe(*structpb.Struct, MetricStream_SubscribeServer) error
}

type MetricStream_SubscribeServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type metricStreamSubscribeServer struct {
	grpc.ServerStream
}

func (x *metricStreamSubscribeServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(MetricStreamServer).Subscribe(m, &metricStreamSubscribeServer{stream})
}

var MetricStreamServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MetricStreamServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "phystats.proto",
}

func RegisterMetricStreamServer(s grpc.ServiceRegistrar, srv MetricStreamServer) {
	s.RegisterService(&MetricStreamServiceDesc, srv)
}

type MetricStream_SubscribeClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type metricStreamSubscribeClient struct {
	grpc.ClientStream
}

func (x *metricStreamSubscribeClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// MetricStreamClient is the client API of the MetricStream service.
type MetricStreamClient struct {
	cc grpc.ClientConnInterface
}

func NewMetricStreamClient(cc grpc.ClientConnInterface) *MetricStreamClient {
	return &MetricStreamClient{cc: cc}
}

func (c *MetricStreamClient) Subscribe(ctx context.Context, filter *structpb.Struct, opts ...grpc.CallOption) (MetricStream_SubscribeClient, error) {
	if filter == nil {
		filter = &structpb.Struct{}
	}
	stream, err := c.cc.NewStream(ctx, &MetricStreamServiceDesc.Streams[0], SubscribeMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &metricStreamSubscribeClient{stream}
	if err := x.ClientStream.SendMsg(filter); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
