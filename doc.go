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

// Package tagheap is a general-purpose dynamic allocator that obtains
// address space from the operating system in page-mapped chunks and
// subdivides it into boundary-tagged blocks.
//
// Create a [Heap] (or use the package-level functions, which share one
// process-wide heap) and call [Heap.Alloc], [Heap.Free] and
// [Heap.Realloc]. Payloads are handed out as *byte pointers into mapped
// memory; they are 8-byte aligned and are not zeroed. [Heap.Reset]
// unmaps everything the heap holds.
//
// # Allocation policy
//
// The heap keeps a chain of mapped chunks, each bracketed by start/end
// marker words and linked to its neighbors through words embedded in the
// chunk itself. Allocation is first-fit: the chain is walked in order
// and the first free block large enough is reserved, splitting off the
// tail when it can hold a block of its own. Freeing coalesces with both
// neighbors, and a chunk whose interior becomes a single free block is
// returned to the operating system immediately.
//
// # Concurrency
//
// A Heap is not safe for concurrent use. Callers that share a heap
// across goroutines must serialize every call, for example behind a
// single [sync.Mutex]. Finer-grained locking is deliberately not
// provided.
//
// # Errors
//
// Exhaustion is reported by returning nil: Alloc returns nil when the
// operating system refuses a mapping, and Realloc returns nil on a
// failed grow while leaving the original block intact. Freeing or
// resizing a pointer whose block is not in use is a bug in the caller
// and panics; the heap's metadata cannot be trusted after such a call.
package tagheap
