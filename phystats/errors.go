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
	"fmt"

	"github.com/pkg/errors"

	. "github.com/openthread/otns-phystats/types"
)

// ContractViolation is reported when a host breaks the ingest contract, e.g. by supplying a timestamp
// earlier than the previous transition or an unknown activity state. It is recovered locally.
type ContractViolation struct {
	NodeId NodeId
	Reason string
	NowUs  uint64
	LastUs uint64
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("%s contract violation: %s (now=%d, last=%d)", GetNodeName(e.NodeId), e.Reason,
		e.NowUs, e.LastUs)
}

// SinkError is reported when a sink fails to accept a MetricSample. The sample is dropped.
type SinkError struct {
	NodeId      NodeId
	TimestampUs uint64
	Err         error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink error at %d: %v", GetNodeName(e.NodeId), e.TimestampUs, e.Err)
}

// Cause lets errors.Cause find the underlying sink failure.
func (e *SinkError) Cause() error {
	return e.Err
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// IsContractViolation returns true if err is, or wraps, a ContractViolation.
func IsContractViolation(err error) bool {
	var cv *ContractViolation
	return errors.As(err, &cv)
}

// IsSinkError returns true if err is, or wraps, a SinkError.
func IsSinkError(err error) bool {
	var se *SinkError
	return errors.As(err, &se)
}

var (
	// ErrNodeExists is returned when adding a node that is already monitored.
	ErrNodeExists = errors.New("node already monitored")
	// ErrNodeNotFound is returned for operations on a node that is not monitored.
	ErrNodeNotFound = errors.New("node not monitored")
)
