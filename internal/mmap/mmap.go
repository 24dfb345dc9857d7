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

//go:build unix

// Package mmap wraps the operating system's anonymous page mapping
// primitive.
//
// Mapped regions live entirely outside the Go heap: the garbage
// collector neither scans nor moves them, which is what lets the rest of
// the module embed metadata words directly in the mapped bytes.
package mmap

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"buf.build/go/tagheap/internal/xunsafe"
)

var live atomic.Int64

// Map obtains a private, anonymous, readable and writable region of size
// bytes. The returned base is page-aligned, and therefore word-aligned.
func Map(size int) (*byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("tagheap: map %d bytes: %w", size, err)
	}
	live.Add(1)
	return unsafe.SliceData(b), nil
}

// Unmap releases a region previously returned by [Map]. The base and
// size must match the original mapping exactly.
func Unmap(p *byte, size int) error {
	if err := unix.Munmap(xunsafe.Slice(p, size)); err != nil {
		return fmt.Errorf("tagheap: unmap %d bytes at %p: %w", size, p, err)
	}
	live.Add(-1)
	return nil
}

// Live returns the number of regions currently mapped through this
// package. Tests use it to observe chunk acquisition and release.
func Live() int {
	return int(live.Load())
}
