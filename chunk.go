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
	"buf.build/go/tagheap/internal/mmap"
	"buf.build/go/tagheap/internal/xunsafe"
)

// A chunk is a view of one mapped region. The chain of chunks is an
// intrusive doubly linked list whose link words live in the mapped
// memory itself:
//
//	base+0    prev link: address of the predecessor's end marker, or 0
//	base+W    start marker: chunk size | 0b11
//	base+2W   first block header
//	...
//	base+C-2W end marker: chunk size | 0b10
//	base+C-W  next link: successor chunk base, or 0
//
// where C is the chunk size recorded in both markers.
type chunk struct {
	base btag.Addr
}

// chunkPadding is the metadata cost of a chunk: two link words plus the
// two markers.
const chunkPadding = 4 * btag.WordBytes

func (c chunk) isNil() bool {
	return c.base.IsNil()
}

func (c chunk) size() int {
	return btag.Size(c.base.ByteAdd(btag.WordBytes))
}

// first returns the header address of the first interior block.
func (c chunk) first() btag.Addr {
	return c.base.ByteAdd(2 * btag.WordBytes)
}

func (c chunk) endMarker() btag.Addr {
	return c.base.ByteAdd(c.size() - 2*btag.WordBytes)
}

// prevEnd returns the address of the predecessor's end marker, or zero
// for the head chunk.
func (c chunk) prevEnd() btag.Addr {
	return loadAddr(c.base)
}

func (c chunk) setPrevEnd(end btag.Addr) {
	storeAddr(c.base, end)
}

// next returns the successor chunk, or a nil chunk for the tail.
func (c chunk) next() chunk {
	return chunk{loadAddr(c.endMarker().ByteAdd(btag.WordBytes))}
}

func loadAddr(a btag.Addr) btag.Addr {
	return btag.Addr(xunsafe.LoadAt[uintptr](a))
}

func storeAddr(a, v btag.Addr) {
	xunsafe.StoreAt(a, uintptr(v))
}

// initChunk lays out a freshly mapped region as one chunk whose interior
// is a single free block.
func initChunk(base btag.Addr, size int, prevEnd btag.Addr) chunk {
	c := chunk{base}
	storeAddr(base, prevEnd)
	btag.WriteStart(base.ByteAdd(btag.WordBytes), size)
	setBlock(c.first(), size-chunkPadding, false)
	btag.WriteEnd(base.ByteAdd(size-2*btag.WordBytes), size)
	storeAddr(base.ByteAdd(size-btag.WordBytes), 0)
	return c
}

// acquire maps a chunk able to hold a block of at least blockSize bytes
// and links it after the chunk owning prevEnd. A zero prevEnd starts a
// fresh chain; the caller installs the new base as the heap root.
func (h *Heap) acquire(blockSize int, prevEnd btag.Addr) (chunk, bool) {
	size := max(h.minChunk(), blockSize+chunkPadding)
	p, err := mmap.Map(size)
	if err != nil {
		h.log("map failed", "%v", err)
		return chunk{}, false
	}

	c := initChunk(xunsafe.AddrOf(p), size, prevEnd)
	if !prevEnd.IsNil() {
		storeAddr(prevEnd.ByteAdd(btag.WordBytes), c.base)
	}

	h.stats.chunksMapped.Add(1)
	h.log("map", "%v, %d bytes", c.base, size)
	return c, true
}

// unmapChunk returns a chunk's memory to the operating system and
// stitches its neighbors together. The links are read out before the
// region goes away; the unmap itself is best-effort.
func (h *Heap) unmapChunk(c chunk) {
	size := c.size()
	prevEnd := c.prevEnd()
	next := c.next()
	h.log("unmap", "%v, %d bytes", c.base, size)

	_ = mmap.Unmap(c.base.AssertValid(), size)

	if prevEnd.IsNil() {
		h.head = next.base
	} else {
		storeAddr(prevEnd.ByteAdd(btag.WordBytes), next.base)
	}
	if !next.isNil() {
		next.setPrevEnd(prevEnd)
	}
	h.stats.chunksUnmapped.Add(1)
}
