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

// Package stream serves emitted samples to gRPC subscribers.
package stream

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/openthread/otns-phystats/logger"
	"github.com/openthread/otns-phystats/phystats"
	. "github.com/openthread/otns-phystats/types"
)

const (
	subscriberQueueSize      = 256
	DefaultHeartbeatInterval = time.Second
)

type subscriber struct {
	node  NodeId
	queue chan *structpb.Struct
	done  chan struct{}
}

// Server is a phystats.Sink that forwards every sample to the subscribers of the MetricStream service.
// A slow subscriber loses samples instead of slowing down emission.
type Server struct {
	server            *grpc.Server
	address           string
	HeartbeatInterval time.Duration

	lock    sync.Mutex
	streams map[*subscriber]struct{}
	closed  bool
	dropped atomic.Uint64
	clients chan string
}

func NewServer(address string) *Server {
	server := grpc.NewServer(grpc.ReadBufferSize(1024*8), grpc.WriteBufferSize(1024*1024*1))
	gs := &Server{
		server:            server,
		address:           address,
		HeartbeatInterval: DefaultHeartbeatInterval,
		streams:           map[*subscriber]struct{}{},
		clients:           make(chan string, 1),
	}
	RegisterMetricStreamServer(server, gs)
	return gs
}

func (gs *Server) Subscribe(req *structpb.Struct, stream MetricStream_SubscribeServer) error {
	var err error
	contextDone := stream.Context().Done()
	sub := &subscriber{
		node:  filterNode(req),
		queue: make(chan *structpb.Struct, subscriberQueueSize),
		done:  make(chan struct{}),
	}

	gs.lock.Lock()
	if gs.closed {
		gs.lock.Unlock()
		return grpc.ErrServerStopped
	}
	gs.streams[sub] = struct{}{}
	gs.lock.Unlock()
	defer gs.disposeStream(sub)

	logger.Debugf("new metric stream subscriber, node filter %d", sub.node)
	select {
	case gs.clients <- req.String():
	default:
	}

	heartbeatTicker := time.NewTicker(gs.HeartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case msg := <-sub.queue:
			if err = stream.Send(msg); err != nil {
				goto exit
			}
		case <-heartbeatTicker.C:
			if err = stream.Send(heartbeatMessage()); err != nil {
				goto exit
			}
		case <-sub.done:
			goto exit
		case <-contextDone:
			err = stream.Context().Err()
			goto exit
		}
	}

exit:
	logger.Debugf("metric stream exit: %v", err)
	return err
}

func (gs *Server) Emit(sample *phystats.MetricSample) error {
	gs.lock.Lock()
	defer gs.lock.Unlock()

	if len(gs.streams) == 0 {
		return nil
	}
	msg, err := SampleToStruct(sample)
	if err != nil {
		return err
	}
	for sub := range gs.streams {
		if sub.node != InvalidNodeId && sub.node != sample.NodeId {
			continue
		}
		select {
		case sub.queue <- msg:
		default:
			gs.dropped.Add(1)
		}
	}
	return nil
}

// Serve serves the MetricStream service on lis until Close is called.
func (gs *Server) Serve(lis net.Listener) error {
	logger.Infof("gRPC metric stream serving on %s ...", lis.Addr())
	return gs.server.Serve(lis)
}

// Run listens on the configured TCP address and serves.
func (gs *Server) Run() error {
	lis, err := net.Listen("tcp", gs.address)
	if err != nil {
		return err
	}
	return gs.Serve(lis)
}

// ClientAdded receives a notification for each new subscriber, if nobody is waiting the notification is lost.
func (gs *Server) ClientAdded() <-chan string {
	return gs.clients
}

func (gs *Server) NumSubscribers() int {
	gs.lock.Lock()
	defer gs.lock.Unlock()
	return len(gs.streams)
}

// Dropped returns the number of messages lost to full subscriber queues.
func (gs *Server) Dropped() uint64 {
	return gs.dropped.Load()
}

func (gs *Server) Close() error {
	gs.lock.Lock()
	if gs.closed {
		gs.lock.Unlock()
		return nil
	}
	gs.closed = true
	for sub := range gs.streams {
		close(sub.done)
	}
	gs.lock.Unlock()

	gs.server.Stop()
	return nil
}

func (gs *Server) disposeStream(sub *subscriber) {
	gs.lock.Lock()
	delete(gs.streams, sub)
	gs.lock.Unlock()
}
