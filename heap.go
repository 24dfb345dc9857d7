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

	"buf.build/go/tagheap/internal/btag"
	"buf.build/go/tagheap/internal/debug"
	"buf.build/go/tagheap/internal/stats"
	"buf.build/go/tagheap/internal/xunsafe"
	"buf.build/go/tagheap/internal/xunsafe/layout"
)

// DefaultChunkSize is the smallest mapping the heap requests from the
// operating system unless configured otherwise with [WithChunkSize].
const DefaultChunkSize = 1 << 16

// Heap is a dynamic allocator over OS-mapped chunks.
//
// A zero Heap is empty and ready to use. A Heap must not be copied after
// first use, and must not be used from multiple goroutines without
// external locking.
type Heap struct {
	_ xunsafe.NoCopy

	// Base address of the head chunk; zero while nothing is mapped.
	head btag.Addr

	// Minimum mapping size; zero means DefaultChunkSize.
	chunkSize int

	stats heapStats
}

type heapStats struct {
	chunksMapped   stats.Counter
	chunksUnmapped stats.Counter
	blocksInUse    stats.Counter
	bytesInUse     stats.Counter
	requested      stats.Mean
}

// New returns an empty heap configured with the given options.
func New(opts ...Option) *Heap {
	h := new(Heap)
	for _, opt := range opts {
		opt.apply(h)
	}
	return h
}

func (h *Heap) minChunk() int {
	if h.chunkSize == 0 {
		return DefaultChunkSize
	}
	return h.chunkSize
}

// blockSize converts a requested byte count into a block size: the
// payload rounded up to a word multiple, plus header and footer.
func blockSize(n int) int {
	return layout.RoundUp(n, btag.WordBytes) + btag.Overhead
}

// payload returns the user pointer for the block whose header is at hdr.
func payload(hdr btag.Addr) *byte {
	return hdr.ByteAdd(btag.WordBytes).AssertValid()
}

// header recovers the block header address from a user pointer.
func header(p *byte) btag.Addr {
	return xunsafe.AddrOf(p).ByteAdd(-btag.WordBytes)
}

// setBlock writes matching header and footer words for a block of the
// given size at hdr.
func setBlock(hdr btag.Addr, size int, used bool) {
	if used {
		btag.InitUsed(hdr, size)
		btag.InitUsed(hdr.ByteAdd(size-btag.WordBytes), size)
	} else {
		btag.Init(hdr, size)
		btag.Init(hdr.ByteAdd(size-btag.WordBytes), size)
	}
}

// Alloc allocates n bytes and returns a pointer to the payload, or nil
// if n is zero or the operating system refuses to map more memory. The
// payload is 8-byte aligned and not zeroed.
func (h *Heap) Alloc(n int) *byte {
	if n == 0 {
		return nil
	}
	if n < 0 {
		panic(fmt.Sprintf("tagheap: Alloc(%d): negative size", n))
	}

	size := blockSize(n)
	h.log("alloc", "%d bytes, block %d", n, size)

	hdr := h.find(size)
	if hdr.IsNil() {
		return nil
	}
	h.reserve(hdr, size)
	h.stats.requested.Record(int64(n))
	return payload(hdr)
}

// find locates the first free block of at least size bytes, walking the
// chunk chain in order and mapping a fresh chunk once the chain is
// exhausted. Returns the zero address if mapping fails.
func (h *Heap) find(size int) btag.Addr {
	if h.head.IsNil() {
		c, ok := h.acquire(size, 0)
		if !ok {
			return 0
		}
		h.head = c.base
	}

	cur := chunk{h.head}.first()
	for {
		if btag.IsEnd(cur) {
			next := loadAddr(cur.ByteAdd(btag.WordBytes))
			if next.IsNil() {
				c, ok := h.acquire(size, cur)
				if !ok {
					return 0
				}
				next = c.base
			}
			cur = chunk{next}.first()
			continue
		}
		if !btag.Used(cur) && btag.Size(cur) >= size {
			return cur
		}
		cur = btag.Next(cur)
	}
}

// reserve claims the free block at hdr for a block of size bytes,
// splitting off the tail when it can stand as a block of its own.
func (h *Heap) reserve(hdr btag.Addr, size int) {
	total := btag.Size(hdr)
	if rem := total - size; rem >= btag.MinBlock {
		setBlock(hdr.ByteAdd(size), rem, false)
		h.log("split", "%v, %d = %d + %d", hdr, total, size, rem)
	} else {
		size = total
	}

	setBlock(hdr, size, true)
	h.stats.blocksInUse.Add(1)
	h.stats.bytesInUse.Add(int64(size))
}

// Free releases the block holding p. Freeing nil is a no-op. Freeing a
// pointer whose block is not in use (a double free, or a pointer this
// heap never returned) panics.
func (h *Heap) Free(p *byte) {
	if p == nil {
		return
	}

	hdr := header(p)
	if !btag.Used(hdr) {
		panic(fmt.Sprintf("tagheap: Free(%p): block is not in use", p))
	}

	size := btag.Size(hdr)
	h.log("free", "%v, %d bytes", hdr, size)
	h.stats.blocksInUse.Add(-1)
	h.stats.bytesInUse.Add(-int64(size))

	btag.MarkFree(hdr)
	btag.MarkFree(btag.Footer(hdr))
	h.coalesce(hdr)
}

// coalesce merges the free block at hdr with its free neighbors, then
// unmaps the host chunk if the block now spans the whole interior.
// Forward first: merging backward moves the header.
func (h *Heap) coalesce(hdr btag.Addr) {
	if next := btag.Next(hdr); !btag.IsEnd(next) && !btag.Used(next) {
		size := btag.Size(hdr) + btag.Size(next)
		h.log("merge", "%v + %v, %d bytes", hdr, next, size)
		btag.SetSize(hdr, size)
		btag.SetSize(btag.Footer(hdr), size)
	}

	if !btag.IsStart(btag.PrevFooter(hdr)) {
		if prev := btag.Prev(hdr); !btag.Used(prev) {
			size := btag.Size(prev) + btag.Size(hdr)
			h.log("merge", "%v + %v, %d bytes", prev, hdr, size)
			btag.SetSize(prev, size)
			btag.SetSize(btag.Footer(prev), size)
			hdr = prev
		}
	}

	if btag.IsStart(btag.PrevFooter(hdr)) && btag.IsEnd(btag.Next(hdr)) {
		h.unmapChunk(chunk{hdr.ByteAdd(-2 * btag.WordBytes)})
	}
}

// Reset unmaps every chunk, returning the heap to its initial state. Any
// outstanding payload pointers become dangling. The heap is reusable
// afterwards.
func (h *Heap) Reset() {
	for !h.head.IsNil() {
		// The head's prev link is zero, so unmapChunk advances h.head.
		h.unmapChunk(chunk{h.head})
	}
	h.stats.blocksInUse.Reset()
	h.stats.bytesInUse.Reset()
}

func (h *Heap) log(op, format string, args ...any) {
	debug.Log([]any{"%p %v", h, h.head}, op, format, args...)
}
