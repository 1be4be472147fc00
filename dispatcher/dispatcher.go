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

package dispatcher

import (
	"fmt"
	"math"
	"net"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/event"
	"github.com/openthread/otns-phystats/logger"
	"github.com/openthread/otns-phystats/phystats"
	"github.com/openthread/otns-phystats/progctx"
	. "github.com/openthread/otns-phystats/types"
)

const (
	Ever uint64 = math.MaxUint64 / 2
)

const udpReadBufferSize = 64 * 1024

type Counters struct {
	// Event counters
	StateEvents   uint64
	RxDoneEvents  uint64
	TxStartEvents uint64
	NodeEvents    uint64
	// Anomalies
	MalformedEvents   uint64
	UnknownNodeEvents uint64
	LateEvents        uint64
}

// item is either an event or a flush marker carrying a done channel.
type item struct {
	evt  *event.Event
	done chan struct{}
}

// Dispatcher decodes radio events from its sources and routes them into the Collector. All event handling
// happens on the goroutine running Run.
type Dispatcher struct {
	ctx       *progctx.ProgCtx
	cfg       Config
	collector *phystats.Collector
	simMode   bool
	udpln     *net.UDPConn
	itemChan  chan item
	taskChan  chan func()
	queue     *eventQueue

	lock          sync.Mutex
	counters      Counters
	watchingNodes map[NodeId]struct{}
	stopped       atomic.Bool
}

func NewDispatcher(ctx *progctx.ProgCtx, cfg *Config, collector *phystats.Collector) (*Dispatcher, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	d := &Dispatcher{
		ctx:           ctx,
		cfg:           *cfg,
		collector:     collector,
		simMode:       collector.Config().Mode == phystats.ModeSim,
		itemChan:      make(chan item, queueSize),
		taskChan:      make(chan func(), 100),
		queue:         newEventQueue(cfg.ReorderWindowUs),
		watchingNodes: map[NodeId]struct{}{},
	}

	if cfg.Port > 0 {
		udpAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
		if err != nil {
			return nil, errors.Wrapf(err, "resolve %s:%d", cfg.Host, cfg.Port)
		}
		ln, err := net.ListenUDP("udp", udpAddr)
		if err != nil {
			return nil, errors.Wrapf(err, "listen %s", udpAddr)
		}
		_ = ln.SetReadBuffer(25 * 1024 * 1024)
		d.udpln = ln
		logger.Infof("dispatcher listening on %s ...", ln.LocalAddr())

		ctx.WaitAdd("udp-reader", 1)
		go d.eventsReader()
	}

	logger.Infof("dispatcher started: cfg=%+v", *cfg)
	return d, nil
}

// LocalAddr returns the UDP listen address, or nil if the listener is disabled.
func (d *Dispatcher) LocalAddr() net.Addr {
	if d.udpln == nil {
		return nil
	}
	return d.udpln.LocalAddr()
}

func (d *Dispatcher) Stop() {
	if d.stopped.Swap(true) {
		return
	}
	if d.udpln != nil {
		_ = d.udpln.Close()
	}
}

func (d *Dispatcher) IsStopped() bool {
	return d.stopped.Load()
}

// Submit queues an event for handling. It blocks while the queue is full and drops the event once the
// program is exiting.
func (d *Dispatcher) Submit(evt *event.Event) {
	select {
	case d.itemChan <- item{evt: evt}:
	case <-d.ctx.Done():
	}
}

// Flush returns a channel that is closed once all events submitted before are handled, including events
// held back for reordering.
func (d *Dispatcher) Flush() <-chan struct{} {
	done := make(chan struct{})
	select {
	case d.itemChan <- item{done: done}:
	case <-d.ctx.Done():
		close(done)
	}
	return done
}

func (d *Dispatcher) Run() {
	d.ctx.WaitAdd("dispatcher", 1)
	defer d.ctx.WaitDone("dispatcher")
	defer logger.Debugf("dispatcher exit.")

	defer d.Stop()

	done := d.ctx.Done()
loop:
	for {
		select {
		case f := <-d.taskChan:
			d.runTask(f)
		case it := <-d.itemChan:
			d.handleItem(it)
		case <-done:
			break loop
		}
	}

	// handle what was accepted before exit, so that no Flush waits forever
drain:
	for {
		select {
		case it := <-d.itemChan:
			d.handleItem(it)
		default:
			break drain
		}
	}
	d.drainQueue()
}

func (d *Dispatcher) handleItem(it item) {
	if it.evt != nil {
		d.recvEvent(it.evt)
		return
	}
	d.drainQueue()
	close(it.done)
}

// recvEvent is the central handler for all events received from any source.
func (d *Dispatcher) recvEvent(evt *event.Event) {
	if err := evt.Check(); err != nil {
		d.count(func(c *Counters) { c.MalformedEvents++ })
		logger.Warnf("dropped malformed event %v: %v", evt, err)
		return
	}

	if !d.simMode {
		evt.Timestamp = d.collector.CurTimeUs()
		d.handleEvent(evt)
		return
	}
	if d.cfg.ReorderWindowUs == 0 {
		d.handleEvent(evt)
		return
	}
	d.queue.Add(evt)
	for e := d.queue.PopReady(); e != nil; e = d.queue.PopReady() {
		d.handleEvent(e)
	}
}

func (d *Dispatcher) drainQueue() {
	for e := d.queue.PopAny(); e != nil; e = d.queue.PopAny() {
		d.handleEvent(e)
	}
}

func (d *Dispatcher) handleEvent(evt *event.Event) {
	nodeid := evt.NodeId
	if d.isWatching(nodeid) {
		logger.Infof("%s <<< %v, cur time %d", GetNodeName(nodeid), evt, d.collector.CurTimeUs())
	}

	if d.simMode {
		if evt.Timestamp < d.collector.CurTimeUs() {
			d.count(func(c *Counters) { c.LateEvents++ })
			logger.Debugf("dropped late event %v, cur time %d", evt, d.collector.CurTimeUs())
			return
		}
		d.collector.AdvanceTime(evt.Timestamp)
	}

	switch evt.Type {
	case event.EventTypeNodeAdded:
		d.count(func(c *Counters) { c.NodeEvents++ })
		if _, err := d.addNode(nodeid); err != nil {
			logger.Warnf("add node failed: %v", err)
		}
		return
	case event.EventTypeNodeDeleted:
		d.count(func(c *Counters) { c.NodeEvents++ })
		if err := d.collector.DeleteNode(nodeid); err != nil {
			logger.Warnf("delete node failed: %v", err)
		}
		d.UnwatchNode(nodeid)
		return
	}

	m := d.collector.GetNode(nodeid)
	if m == nil && d.cfg.AutoAddNodes {
		m, _ = d.addNode(nodeid)
	}
	if m == nil {
		d.count(func(c *Counters) { c.UnknownNodeEvents++ })
		logger.Warnf("unexpected Event (type %v) received from Node %v", evt.Type, nodeid)
		return
	}

	switch evt.Type {
	case event.EventTypeRadioState:
		d.count(func(c *Counters) { c.StateEvents++ })
		m.OnStateChange(evt.Timestamp, evt.State)
	case event.EventTypeRadioRxDone:
		d.count(func(c *Counters) { c.RxDoneEvents++ })
		m.OnBytesReceived(uint64(evt.RxBytes))
	case event.EventTypeRadioTxStart:
		d.count(func(c *Counters) { c.TxStartEvents++ })
		m.OnTransmitPower(evt.TxPowerDbm)
	default:
		logger.Panicf("event type not implemented: %v", evt.Type)
	}
}

func (d *Dispatcher) addNode(nodeid NodeId) (*phystats.NodeMonitor, error) {
	cfg := DefaultNodeConfig()
	cfg.ID = nodeid
	m, err := d.collector.AddNode(&cfg)
	if err != nil {
		return nil, err
	}
	if d.cfg.DefaultWatchOn {
		d.WatchNode(nodeid)
	}
	return m, nil
}

func (d *Dispatcher) eventsReader() {
	defer d.ctx.WaitDone("udp-reader")
	defer logger.Debugf("UDP events reader quit.")

	readbuf := make([]byte, udpReadBufferSize)
	for {
		n, srcaddr, err := d.udpln.ReadFromUDP(readbuf)
		if d.IsStopped() || d.ctx.Err() != nil {
			break
		}
		if err != nil {
			logger.Warnf("UDP read failed: %v", err)
			break
		}

		data := readbuf[:n]
		for len(data) > 0 {
			evt := &event.Event{}
			used := evt.Deserialize(data)
			if used == 0 {
				d.count(func(c *Counters) { c.MalformedEvents++ })
				logger.Warnf("truncated event datagram from %v: %d bytes left", srcaddr, len(data))
				break
			}
			data = data[used:]
			d.Submit(evt)
		}
	}
}

// PostAsync runs task on the dispatcher goroutine. A trivial task is dropped if the task queue is full.
func (d *Dispatcher) PostAsync(trivial bool, task func()) {
	if trivial {
		select {
		case d.taskChan <- task:
		default:
		}
	} else {
		d.taskChan <- task
	}
}

func (d *Dispatcher) runTask(task func()) {
	defer func() {
		err := recover()
		if err != nil {
			logger.Errorf("dispatcher handle task failed: %+v", err)
		}
	}()

	task()
}

func (d *Dispatcher) WatchNode(nodeid NodeId) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.watchingNodes[nodeid] = struct{}{}
}

func (d *Dispatcher) UnwatchNode(nodeid NodeId) {
	d.lock.Lock()
	defer d.lock.Unlock()
	delete(d.watchingNodes, nodeid)
}

// GetWatchingNodes returns the watched node ids in ascending order.
func (d *Dispatcher) GetWatchingNodes() []NodeId {
	d.lock.Lock()
	defer d.lock.Unlock()

	ids := make([]NodeId, 0, len(d.watchingNodes))
	for id := range d.watchingNodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (d *Dispatcher) isWatching(nodeid NodeId) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	_, ok := d.watchingNodes[nodeid]
	return ok
}

// Counters returns a copy of the event counters.
func (d *Dispatcher) Counters() Counters {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.counters
}

func (d *Dispatcher) count(f func(c *Counters)) {
	d.lock.Lock()
	f(&d.counters)
	d.lock.Unlock()
}

func (d *Dispatcher) Collector() *phystats.Collector {
	return d.collector
}
