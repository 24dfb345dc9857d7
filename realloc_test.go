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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/tagheap/internal/btag"
)

func TestReallocNilAndZero(t *testing.T) {
	t.Parallel()
	h := New()

	// Realloc(nil, n) allocates; Realloc(p, 0) frees.
	p := h.Realloc(nil, 64)
	require.NotNil(t, p)
	checkHeap(t, h)

	assert.Nil(t, h.Realloc(p, 0))
	checkHeap(t, h)
	assert.Equal(t, 0, chunks(h))
}

func TestReallocSameSize(t *testing.T) {
	t.Parallel()
	h := New()

	p := h.Alloc(256)
	require.NotNil(t, p)
	fill(p, 256, 3)

	// 250 normalizes to the same 272-byte block; nothing moves.
	assert.Equal(t, p, h.Realloc(p, 250))
	assert.Equal(t, p, h.Realloc(p, 256))
	assert.Equal(t, 272, btag.Size(header(p)))
	checkFill(t, p, 250, 3)
	checkHeap(t, h)

	h.Free(p)
}

func TestGrowInPlace(t *testing.T) {
	t.Parallel()
	h := New()

	a := h.Alloc(256)
	require.NotNil(t, a)
	fill(a, 256, 5)
	tail := btag.Size(btag.Next(header(a)))

	// The free tail follows A directly, so growth happens in place and
	// shaves the difference off the tail.
	p := h.Realloc(a, 1024)
	assert.Equal(t, a, p)
	assert.Equal(t, 1040, btag.Size(header(p)))
	assert.True(t, btag.Used(header(p)))
	assert.Equal(t, tail-768, btag.Size(btag.Next(header(p))))
	checkFill(t, p, 256, 5)
	checkHeap(t, h)

	h.Free(p)
	assert.Equal(t, 0, chunks(h))
}

func TestGrowAbsorbsWholeNeighbor(t *testing.T) {
	t.Parallel()
	h := New()

	a := h.Alloc(256)
	b := h.Alloc(16)
	c := h.Alloc(256)
	require.NotNil(t, c)
	fill(a, 256, 7)

	// B's 32-byte block sits free between A and C. Growing A by 288-256
	// bytes would leave a 0-byte remainder, so the neighbor is absorbed
	// whole.
	h.Free(b)
	p := h.Realloc(a, 288)
	assert.Equal(t, a, p)
	assert.Equal(t, 272+32, btag.Size(header(p)))
	checkFill(t, p, 256, 7)
	checkHeap(t, h)

	h.Free(p)
	h.Free(c)
	assert.Equal(t, 0, chunks(h))
}

func TestGrowCarvesNeighbor(t *testing.T) {
	t.Parallel()
	h := New()

	a := h.Alloc(256)
	b := h.Alloc(256)
	c := h.Alloc(256)
	require.NotNil(t, c)
	fill(a, 256, 9)

	// Growing A by 8 into B's freed 272-byte block leaves 264 bytes,
	// plenty for a block of its own.
	h.Free(b)
	p := h.Realloc(a, 264)
	assert.Equal(t, a, p)
	assert.Equal(t, 280, btag.Size(header(p)))
	next := btag.Next(header(p))
	assert.False(t, btag.Used(next))
	assert.Equal(t, 264, btag.Size(next))
	checkFill(t, p, 256, 9)
	checkHeap(t, h)

	h.Free(p)
	h.Free(c)
	assert.Equal(t, 0, chunks(h))
}

func TestGrowMoves(t *testing.T) {
	t.Parallel()
	h := New()

	a := h.Alloc(256)
	b := h.Alloc(256)
	require.NotNil(t, b)
	fill(a, 256, 11)

	// B blocks in-place growth, so the payload moves past it.
	p := h.Realloc(a, 512)
	require.NotNil(t, p)
	assert.NotEqual(t, a, p)
	assert.Equal(t, 528, btag.Size(header(p)))
	checkFill(t, p, 256, 11)

	// The old block was released and is free for reuse.
	assert.False(t, btag.Used(header(a)))
	checkHeap(t, h)

	h.Free(p)
	h.Free(b)
	assert.Equal(t, 0, chunks(h))
}

func TestShrinkSplits(t *testing.T) {
	t.Parallel()
	h := New()

	a := h.Alloc(1024)
	b := h.Alloc(256)
	require.NotNil(t, b)
	fill(a, 1024, 13)

	// B is used, so the shrink carves the freed tail into a block of
	// its own: 1040 - 272 = 768 bytes.
	p := h.Realloc(a, 256)
	assert.Equal(t, a, p)
	assert.Equal(t, 272, btag.Size(header(p)))
	assert.True(t, btag.Used(header(p)))
	next := btag.Next(header(p))
	assert.False(t, btag.Used(next))
	assert.Equal(t, 768, btag.Size(next))
	checkFill(t, p, 256, 13)
	checkHeap(t, h)

	h.Free(p)
	h.Free(b)
	assert.Equal(t, 0, chunks(h))
}

func TestShrinkExtendsNextFree(t *testing.T) {
	t.Parallel()
	h := New()

	a := h.Alloc(256)
	require.NotNil(t, a)
	fill(a, 256, 15)
	tail := btag.Size(btag.Next(header(a)))

	// The chunk's free tail follows A, so the freed bytes slide into it
	// rather than forming a separate block.
	p := h.Realloc(a, 128)
	assert.Equal(t, a, p)
	assert.Equal(t, 144, btag.Size(header(p)))
	assert.Equal(t, tail+128, btag.Size(btag.Next(header(p))))
	checkFill(t, p, 128, 15)
	checkHeap(t, h)

	h.Free(p)
	assert.Equal(t, 0, chunks(h))
}

func TestShrinkTooSmallToSplit(t *testing.T) {
	t.Parallel()
	h := New()

	a := h.Alloc(256)
	b := h.Alloc(256)
	require.NotNil(t, b)
	fill(a, 256, 17)

	// Shrinking by one word before a used neighbor cannot host a new
	// block, so the block keeps its original size.
	p := h.Realloc(a, 248)
	assert.Equal(t, a, p)
	assert.Equal(t, 272, btag.Size(header(p)))
	checkFill(t, p, 248, 17)
	checkHeap(t, h)

	h.Free(p)
	h.Free(b)
	assert.Equal(t, 0, chunks(h))
}

func TestReallocContentAcrossSizes(t *testing.T) {
	t.Parallel()
	h := New()

	p := h.Alloc(64)
	require.NotNil(t, p)
	fill(p, 64, 19)

	for _, n := range []int{128, 1024, 64, 4096, 32} {
		p = h.Realloc(p, n)
		require.NotNil(t, p)
		checkFill(t, p, min(n, 32), 19)
		checkHeap(t, h)
	}

	h.Free(p)
	assert.Equal(t, 0, chunks(h))
}
