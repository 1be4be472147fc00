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

package energy

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/openthread/otns-phystats/logger"
	"github.com/openthread/otns-phystats/phystats"
	. "github.com/openthread/otns-phystats/types"
)

// EnergyAnalyser converts the time-in-state of emitted samples into consumed energy. It is a phystats.Sink.
type EnergyAnalyser struct {
	mutex                sync.Mutex
	nodes                map[NodeId]*NodeEnergy
	networkHistory       []NetworkConsumption
	energyHistoryByNodes [][]NodeConsumption
	lastStoreUs          uint64
	title                string
}

func (e *EnergyAnalyser) AddNode(nodeID NodeId, timestamp uint64) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.addNode(nodeID, timestamp)
}

func (e *EnergyAnalyser) addNode(nodeID NodeId, timestamp uint64) *NodeEnergy {
	if node, ok := e.nodes[nodeID]; ok {
		return node
	}
	node := newNode(nodeID, timestamp)
	e.nodes[nodeID] = node
	return node
}

func (e *EnergyAnalyser) DeleteNode(nodeID NodeId) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	delete(e.nodes, nodeID)
	if len(e.nodes) == 0 {
		e.clearEnergyData()
	}
}

// GetNode returns the energy totals of a node, or nil.
func (e *EnergyAnalyser) GetNode(nodeID NodeId) *NodeEnergy {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.nodes[nodeID]
}

func (e *EnergyAnalyser) GetNetworkEnergyHistory() []NetworkConsumption {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return append([]NetworkConsumption(nil), e.networkHistory...)
}

func (e *EnergyAnalyser) GetEnergyHistoryByNodes() [][]NodeConsumption {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return append([][]NodeConsumption(nil), e.energyHistoryByNodes...)
}

// GetCurrentEnergyOfNodes returns the totals of all nodes up to their last sample, sorted by node id.
func (e *EnergyAnalyser) GetCurrentEnergyOfNodes() []NodeConsumption {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	res := make([]NodeConsumption, 0, len(e.nodes))
	for _, id := range e.sortedNodeIds() {
		res = append(res, NodeConsumption{NodeId: id, Energy: e.nodes[id].Energy()})
	}
	return res
}

// GetLatestEnergyOfNodes returns the most recent per-node snapshot, or nil if none was stored yet.
func (e *EnergyAnalyser) GetLatestEnergyOfNodes() []NodeConsumption {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if len(e.energyHistoryByNodes) == 0 {
		return nil
	}
	return e.energyHistoryByNodes[len(e.energyHistoryByNodes)-1]
}

// Emit adds a sample to its node's totals. A network snapshot is stored every ComputePeriod of sample time.
func (e *EnergyAnalyser) Emit(sample *phystats.MetricSample) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	startUs := uint64(0)
	if sample.TimestampUs > sample.IntervalUs {
		startUs = sample.TimestampUs - sample.IntervalUs
	}
	e.addNode(sample.NodeId, startUs).AddSample(sample)
	if sample.TimestampUs >= e.lastStoreUs+ComputePeriod {
		e.storeNetworkEnergy(sample.TimestampUs)
	}
	return nil
}

func (e *EnergyAnalyser) Close() error {
	return nil
}

func (e *EnergyAnalyser) StoreNetworkEnergy(timestamp uint64) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.storeNetworkEnergy(timestamp)
}

func (e *EnergyAnalyser) storeNetworkEnergy(timestamp uint64) {
	nodesEnergySnapshot := make([]NodeConsumption, 0, len(e.nodes))
	networkSnapshot := NetworkConsumption{
		Timestamp: timestamp,
	}

	netSize := float64(len(e.nodes))
	for _, id := range e.sortedNodeIds() {
		energy := e.nodes[id].Energy()
		for st := range energy {
			networkSnapshot.Energy[st] += energy[st] / netSize
		}
		nodesEnergySnapshot = append(nodesEnergySnapshot, NodeConsumption{NodeId: id, Energy: energy})
	}

	e.networkHistory = append(e.networkHistory, networkSnapshot)
	e.energyHistoryByNodes = append(e.energyHistoryByNodes, nodesEnergySnapshot)
	e.lastStoreUs = timestamp
}

// SaveEnergyDataToFile writes <dir>/energy_results/<name>_nodes.txt with the totals per node and
// <dir>/energy_results/<name>.txt with the network history.
func (e *EnergyAnalyser) SaveEnergyDataToFile(dir string, name string, timestamp uint64) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if name == "" {
		if e.title == "" {
			name = "energy"
		} else {
			name = e.title
		}
	}
	if dir == "" {
		dir, _ = os.Getwd()
	}

	resultsDir := filepath.Join(dir, "energy_results")
	if err := os.MkdirAll(resultsDir, 0777); err != nil {
		return errors.Wrap(err, "failed to create energy_results directory")
	}

	path := filepath.Join(resultsDir, name)
	fileNodes, err := os.Create(path + "_nodes.txt")
	if err != nil {
		return errors.Wrap(err, "error creating file")
	}
	defer fileNodes.Close()

	fileNetwork, err := os.Create(path + ".txt")
	if err != nil {
		return errors.Wrap(err, "error creating file")
	}
	defer fileNetwork.Close()

	e.writeEnergyByNodes(fileNodes, timestamp)
	e.writeNetworkEnergy(fileNetwork, timestamp)
	logger.Infof("energy data saved to %s", path)
	return nil
}

func (e *EnergyAnalyser) writeEnergyByNodes(w io.Writer, timestamp uint64) {
	fmt.Fprintf(w, "Duration of the monitored network (in milliseconds): %d\n", timestamp/1000)
	fmt.Fprintf(w, "ID\tIdle (mJ)\tBusy (mJ)\tTransmitting (mJ)\tReceiving (mJ)\n")

	for _, id := range e.sortedNodeIds() {
		energy := e.nodes[id].Energy()
		fmt.Fprintf(w, "%d\t%f\t%f\t%f\t%f\n", id,
			energy[Idle], energy[ChannelBusy], energy[Transmitting], energy[Receiving])
	}
}

func (e *EnergyAnalyser) writeNetworkEnergy(w io.Writer, timestamp uint64) {
	fmt.Fprintf(w, "Duration of the monitored network (in milliseconds): %d\n", timestamp/1000)
	fmt.Fprintf(w, "Time (ms)\tIdle (mJ)\tBusy (mJ)\tTransmitting (mJ)\tReceiving (mJ)\n")
	for _, snapshot := range e.networkHistory {
		fmt.Fprintf(w, "%d\t%f\t%f\t%f\t%f\n",
			snapshot.Timestamp/1000,
			snapshot.Energy[Idle],
			snapshot.Energy[ChannelBusy],
			snapshot.Energy[Transmitting],
			snapshot.Energy[Receiving],
		)
	}
}

func (e *EnergyAnalyser) sortedNodeIds() []NodeId {
	ids := make([]NodeId, 0, len(e.nodes))
	for id := range e.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (e *EnergyAnalyser) ClearEnergyData() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.clearEnergyData()
}

func (e *EnergyAnalyser) clearEnergyData() {
	logger.Debugf("Node's energy data cleared")
	e.networkHistory = make([]NetworkConsumption, 0, 3600)
	e.energyHistoryByNodes = make([][]NodeConsumption, 0, 3600)
	e.lastStoreUs = 0
}

func (e *EnergyAnalyser) SetTitle(title string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.title = title
}

func NewEnergyAnalyser() *EnergyAnalyser {
	ea := &EnergyAnalyser{
		nodes:                make(map[NodeId]*NodeEnergy),
		networkHistory:       make([]NetworkConsumption, 0, 3600), //Start with space for 1 sample every 30s for 1 hour = 1*60*60/30 = 3600 samples
		energyHistoryByNodes: make([][]NodeConsumption, 0, 3600),
	}
	return ea
}
