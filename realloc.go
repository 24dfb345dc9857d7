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
	"buf.build/go/tagheap/internal/xunsafe"
)

// Realloc resizes the block holding p to n bytes.
//
// Realloc(nil, n) behaves like Alloc(n); Realloc(p, 0) behaves like
// Free(p) and returns nil. Shrinking always succeeds in place and
// returns p; when the freed tail is too small to become a block of its
// own and no free block follows, the block keeps its original size.
// Growing returns p when the following free block can cover
// the difference; otherwise the payload moves to a fresh block and the
// old one is freed. A failed grow returns nil and leaves the original
// block, and its contents, untouched.
//
// Like [Heap.Free], Realloc panics if p's block is not in use.
func (h *Heap) Realloc(p *byte, n int) *byte {
	if p == nil {
		return h.Alloc(n)
	}
	if n == 0 {
		h.Free(p)
		return nil
	}
	if n < 0 {
		panic(fmt.Sprintf("tagheap: Realloc(%d): negative size", n))
	}

	hdr := header(p)
	if !btag.Used(hdr) {
		panic(fmt.Sprintf("tagheap: Realloc(%p): block is not in use", p))
	}

	size := blockSize(n)
	old := btag.Size(hdr)
	switch {
	case size == old:
		return p
	case size < old:
		h.shrink(hdr, old, size)
		return p
	default:
		return h.grow(p, hdr, old, size)
	}
}

// shrink reduces the block at hdr from old to size bytes in place. The
// freed tail either joins the following free block, becomes a free block
// of its own, or, when it is a single word before an immovable neighbor,
// stays inside the block, which then keeps its original size.
func (h *Heap) shrink(hdr btag.Addr, old, size int) {
	d := old - size
	next := btag.Next(hdr)
	switch {
	case !btag.IsEnd(next) && !btag.Used(next):
		// Slide the following free block's header back by d.
		grown := btag.Size(next) + d
		setBlock(hdr.ByteAdd(size), grown, false)
		h.log("shrink", "%v, %d->%d, next grows to %d", hdr, old, size, grown)
	case d >= btag.MinBlock:
		setBlock(hdr.ByteAdd(size), d, false)
		h.log("shrink", "%v, %d->%d, tail %d freed", hdr, old, size, d)
	default:
		// Too small to carve a block out of; keep the old size.
		h.log("shrink", "%v, %d->%d refused, tail kept internal", hdr, old, size)
		return
	}

	setBlock(hdr, size, true)
	h.stats.bytesInUse.Add(int64(size - old))
}

// grow extends the block at hdr from old to size bytes: in place when
// the following free block can cover the difference, otherwise by moving
// the payload to a freshly reserved block.
func (h *Heap) grow(p *byte, hdr btag.Addr, old, size int) *byte {
	d := size - old
	if next := btag.Next(hdr); !btag.IsEnd(next) && !btag.Used(next) && btag.Size(next) >= d {
		if rem := btag.Size(next) - d; rem < btag.MinBlock {
			// What would remain of the neighbor cannot stand alone;
			// absorb it whole.
			size = old + btag.Size(next)
		} else {
			setBlock(hdr.ByteAdd(size), rem, false)
		}
		setBlock(hdr, size, true)
		h.stats.bytesInUse.Add(int64(size - old))
		h.log("grow", "%v, %d->%d in place", hdr, old, size)
		return p
	}

	// No room behind this block; move. The original must survive a
	// failed mapping, so it is freed only once the copy is in hand.
	newHdr := h.find(size)
	if newHdr.IsNil() {
		return nil
	}
	h.reserve(newHdr, size)
	q := payload(newHdr)
	xunsafe.Copy(q, p, old-btag.Overhead)
	h.log("grow", "%v->%v, %d->%d moved", hdr, newHdr, old, size)
	h.Free(p)
	return q
}
