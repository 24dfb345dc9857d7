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

import "io"

// defaultHeap backs the package-level functions. Like any [Heap], it is
// not synchronized; programs using it from multiple goroutines must
// provide their own locking.
var defaultHeap Heap

// Alloc allocates n bytes on the process-wide heap. See [Heap.Alloc].
func Alloc(n int) *byte {
	return defaultHeap.Alloc(n)
}

// Free releases a block on the process-wide heap. See [Heap.Free].
func Free(p *byte) {
	defaultHeap.Free(p)
}

// Realloc resizes a block on the process-wide heap. See [Heap.Realloc].
func Realloc(p *byte, n int) *byte {
	return defaultHeap.Realloc(p, n)
}

// Reset unmaps everything the process-wide heap holds. See [Heap.Reset].
func Reset() {
	defaultHeap.Reset()
}

// Dump writes a snapshot of the process-wide heap to w. See [Heap.Dump].
func Dump(w io.Writer) {
	defaultHeap.Dump(w)
}
