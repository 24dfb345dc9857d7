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
	"fmt"
	"io"

	"buf.build/go/tagheap/internal/btag"
)

// Dump writes a snapshot of the heap to w: every chunk, every block
// inside it, and the heap's counters. It mutates nothing.
//
// The output is diagnostic text; its exact format is not part of the
// API.
func (h *Heap) Dump(w io.Writer) {
	fmt.Fprintf(w, "tagheap %p\n", h)

	for c := (chunk{h.head}); !c.isNil(); c = c.next() {
		fmt.Fprintf(w, "chunk %v: %d bytes\n", c.base, c.size())
		for b := c.first(); !btag.IsEnd(b); b = btag.Next(b) {
			state := "free"
			if btag.Used(b) {
				state = "used"
			}
			fmt.Fprintf(w, "  block %v: %d bytes, %s\n", b, btag.Size(b), state)
		}
	}

	s := &h.stats
	fmt.Fprintf(w, "chunks: %d mapped, %d unmapped\n",
		s.chunksMapped.Get(), s.chunksUnmapped.Get())
	fmt.Fprintf(w, "blocks in use: %d, %d bytes\n",
		s.blocksInUse.Get(), s.bytesInUse.Get())
	fmt.Fprintf(w, "mean request: %.1f bytes over %d allocations\n",
		s.requested.Get(), s.requested.Samples())
}
