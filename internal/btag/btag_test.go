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

package btag_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"buf.build/go/tagheap/internal/btag"
	"buf.build/go/tagheap/internal/xunsafe"
)

// words returns a word-aligned scratch region of n words and its base
// address. The slice must be kept alive for as long as the address is
// used; only the address ever reaches the package under test.
func words(n int) ([]uintptr, btag.Addr) {
	buf := make([]uintptr, n)
	return buf, xunsafe.AddrOf(xunsafe.Cast[byte](&buf[0]))
}

func TestTagBits(t *testing.T) {
	t.Parallel()

	buf, a := words(1)
	defer runtime.KeepAlive(buf)

	btag.Init(a, 64)
	assert.Equal(t, 64, btag.Size(a))
	assert.False(t, btag.Used(a))
	assert.False(t, btag.IsStart(a))
	assert.False(t, btag.IsEnd(a))

	btag.MarkUsed(a)
	assert.True(t, btag.Used(a))
	assert.Equal(t, 64, btag.Size(a))

	btag.SetSize(a, 128)
	assert.True(t, btag.Used(a))
	assert.Equal(t, 128, btag.Size(a))

	btag.InitUsed(a, 256)
	assert.True(t, btag.Used(a))
	assert.Equal(t, 256, btag.Size(a))

	btag.MarkFree(a)
	assert.False(t, btag.Used(a))
	assert.Equal(t, 256, btag.Size(a))
}

func TestMarkers(t *testing.T) {
	t.Parallel()

	buf, a := words(2)
	defer runtime.KeepAlive(buf)

	btag.WriteStart(a, 1<<16)
	assert.True(t, btag.IsStart(a))
	assert.False(t, btag.IsEnd(a))
	assert.Equal(t, 1<<16, btag.Size(a))

	end := a.ByteAdd(btag.WordBytes)
	btag.WriteEnd(end, 1<<16)
	assert.True(t, btag.IsEnd(end))
	assert.False(t, btag.IsStart(end))
	assert.Equal(t, 1<<16, btag.Size(end))
}

func TestNeighbors(t *testing.T) {
	t.Parallel()

	// Two adjacent blocks of 32 and 48 bytes.
	buf, base := words(10)
	defer runtime.KeepAlive(buf)

	btag.Init(base, 32)
	btag.Init(btag.Footer(base), 32)
	second := btag.Next(base)
	btag.Init(second, 48)
	btag.Init(btag.Footer(second), 48)

	assert.Equal(t, base.ByteAdd(32), second)
	assert.Equal(t, base.ByteAdd(32-btag.WordBytes), btag.Footer(base))
	assert.Equal(t, base, btag.HeaderFor(btag.Footer(base)))
	assert.Equal(t, btag.Footer(base), btag.PrevFooter(second))
	assert.Equal(t, base, btag.Prev(second))
	assert.Equal(t, second.ByteAdd(48), btag.Next(second))
}
