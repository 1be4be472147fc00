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

package phystats

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/logger"
	. "github.com/openthread/otns-phystats/types"
)

// Collector keeps the NodeMonitors of all monitored nodes. Nodes are independent of each other; the
// Collector only owns the registry and the shared sim time.
type Collector struct {
	cfg   Config
	sink  Sink
	clock Clock

	lock      sync.RWMutex
	nodes     map[NodeId]*NodeMonitor
	ctx       context.Context
	curTimeUs uint64
	stopped   bool
}

// NewCollector creates a Collector emitting to sink. The clock is only used in live mode and may be nil
// in sim mode.
func NewCollector(cfg *Config, sink Sink, clock Clock) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if clock == nil {
		clock = NewWallClock()
	}
	return &Collector{
		cfg:   *cfg,
		sink:  sink,
		clock: clock,
		nodes: make(map[NodeId]*NodeMonitor),
	}
}

func (c *Collector) Config() Config {
	return c.cfg
}

// AddNode starts monitoring a node. In live mode and after Start, the node's ticker is started right away;
// in sim mode its windows are anchored at the current sim time.
func (c *Collector) AddNode(nodeCfg *NodeConfig) (*NodeMonitor, error) {
	if nodeCfg.ID <= InvalidNodeId || nodeCfg.ID > MaxNodeId {
		return nil, errors.Errorf("invalid node id %d", nodeCfg.ID)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.stopped {
		return nil, errors.Errorf("collector stopped")
	}
	if _, ok := c.nodes[nodeCfg.ID]; ok {
		return nil, errors.Wrapf(ErrNodeExists, "%s", GetNodeName(nodeCfg.ID))
	}

	ncfg := *nodeCfg
	ncfg.NodeLogFile = ncfg.NodeLogFile || c.cfg.NodeLogFile
	m := NewNodeMonitor(&ncfg, c.cfg.Interval, c.sink, logger.GetNodeLogger(c.cfg.OutputDir, &ncfg))
	c.nodes[ncfg.ID] = m

	switch c.cfg.Mode {
	case ModeLive:
		if c.ctx != nil {
			m.Start(c.ctx, c.clock)
		}
	case ModeSim:
		m.AdvanceTime(c.curTimeUs)
	}
	logger.Debugf("%s added", GetNodeName(ncfg.ID))
	return m, nil
}

// DeleteNode stops monitoring a node. With FlushOnStop, its partial window is emitted first.
func (c *Collector) DeleteNode(id NodeId) error {
	c.lock.Lock()
	m, ok := c.nodes[id]
	delete(c.nodes, id)
	now := c.nowUsLocked()
	c.lock.Unlock()

	if !ok {
		return errors.Wrapf(ErrNodeNotFound, "%s", GetNodeName(id))
	}

	c.stopMonitor(m, now)
	logger.ReleaseNodeLogger(id)
	logger.Debugf("%s deleted", GetNodeName(id))
	return nil
}

// GetNode returns the monitor of a node, or nil.
func (c *Collector) GetNode(id NodeId) *NodeMonitor {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.nodes[id]
}

// Nodes returns the monitored node ids in ascending order.
func (c *Collector) Nodes() []NodeId {
	c.lock.RLock()
	ids := make([]NodeId, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	c.lock.RUnlock()

	sort.Ints(ids)
	return ids
}

// Start starts the tickers of all nodes in live mode. It is a no-op in sim mode.
func (c *Collector) Start(ctx context.Context) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.ctx != nil {
		return
	}
	c.ctx = ctx
	if c.cfg.Mode != ModeLive {
		return
	}
	for _, m := range c.nodes {
		m.Start(ctx, c.clock)
	}
}

// AdvanceTime moves the sim time to nowUs, closing all windows whose boundary was passed. Time never moves
// backwards. It is a no-op in live mode.
func (c *Collector) AdvanceTime(nowUs uint64) {
	c.lock.Lock()
	if c.cfg.Mode != ModeSim || c.stopped {
		c.lock.Unlock()
		return
	}
	if nowUs < c.curTimeUs {
		c.lock.Unlock()
		logger.Warnf("sim time went backwards: %d < %d", nowUs, c.curTimeUs)
		return
	}
	c.curTimeUs = nowUs
	monitors := c.monitorsLocked()
	c.lock.Unlock()

	for _, m := range monitors {
		m.AdvanceTime(nowUs)
	}
}

// CurTimeUs returns the sim time in sim mode, or the clock time in live mode.
func (c *Collector) CurTimeUs() uint64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.nowUsLocked()
}

// Stop stops all monitors. With FlushOnStop, every node emits its partial window first.
func (c *Collector) Stop() {
	c.lock.Lock()
	if c.stopped {
		c.lock.Unlock()
		return
	}
	c.stopped = true
	now := c.nowUsLocked()
	monitors := c.monitorsLocked()
	c.lock.Unlock()

	for _, m := range monitors {
		c.stopMonitor(m, now)
	}
	logger.Debugf("collector stopped: %d nodes", len(monitors))
}

func (c *Collector) stopMonitor(m *NodeMonitor, nowUs uint64) {
	if c.cfg.FlushOnStop {
		m.Flush(nowUs)
	}
	m.Stop()
}

func (c *Collector) nowUsLocked() uint64 {
	if c.cfg.Mode == ModeLive {
		return c.clock.NowUs()
	}
	return c.curTimeUs
}

func (c *Collector) monitorsLocked() []*NodeMonitor {
	ids := make([]NodeId, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	monitors := make([]*NodeMonitor, 0, len(ids))
	for _, id := range ids {
		monitors = append(monitors, c.nodes[id])
	}
	return monitors
}
