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

package tagheap

import (
	"buf.build/go/tagheap/internal/btag"
	"buf.build/go/tagheap/internal/xunsafe/layout"
)

// Option is a configuration setting for [New].
type Option struct{ apply func(*Heap) }

// minChunkSize is the smallest layout that is still a chunk: the link
// words, the markers, and one empty block.
const minChunkSize = chunkPadding + btag.MinBlock

// WithChunkSize sets the minimum size of the chunks the heap maps, in
// bytes. The default is [DefaultChunkSize]; requests larger than the
// chunk size are mapped in a chunk of their own either way.
//
// The value is rounded up to a word multiple and clamped below to the
// smallest viable chunk. Small chunk sizes are mostly useful in tests
// that want to exercise multi-chunk behavior without mapping megabytes.
func WithChunkSize(n int) Option {
	return Option{func(h *Heap) {
		h.chunkSize = max(layout.RoundUp(n, btag.WordBytes), minChunkSize)
	}}
}
