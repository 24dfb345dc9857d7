// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package stats provides instrumentation counter primitives.
package stats

import "sync/atomic"

// Counter tracks a running total.
//
// The zero value is ready to use. Concurrent updates are safe; the heap
// itself is not synchronized, but its counters may be read from a
// monitoring goroutine while it runs.
type Counter struct {
	n atomic.Int64
}

// Add adds delta to this counter.
func (c *Counter) Add(delta int64) {
	c.n.Add(delta)
}

// Get returns the current value of this counter.
func (c *Counter) Get() int64 {
	return c.n.Load()
}

// Reset sets this counter back to zero.
func (c *Counter) Reset() {
	c.n.Store(0)
}

// Mean tracks an average statistic over integer samples.
//
// The zero value is ready to use. Calling [Mean.Get] concurrently with
// [Mean.Record] may observe a total and sample count from different
// moments (and thus be slightly inaccurate).
type Mean struct {
	total, samples atomic.Int64
}

// Record records a sample.
func (m *Mean) Record(sample int64) {
	m.total.Add(sample)
	m.samples.Add(1)
}

// Get returns the mean value of this statistic.
func (m *Mean) Get() float64 {
	total, samples := m.total.Load(), m.samples.Load()
	if samples == 0 {
		return 0
	}
	return float64(total) / float64(samples)
}

// Samples returns the number of samples recorded so far.
func (m *Mean) Samples() int64 {
	return m.samples.Load()
}

// Merge adds all of the samples from that to m.
func (m *Mean) Merge(that *Mean) {
	m.total.Add(that.total.Load())
	m.samples.Add(that.samples.Load())
}
