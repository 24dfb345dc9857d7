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

// Package btag implements boundary tags: the header and footer words that
// delimit every block inside a mapped chunk.
//
// A tag word packs a byte size and two flag bits:
//
//	bits 63..3  size, always a multiple of 8
//	bit  1      marker bit; set on chunk start/end markers, never on blocks
//	bit  0      used bit; set on reserved blocks and on start markers
//
// A block's size counts its header, payload and footer together, so the
// header of the block after h is always at h + size. Header and footer of
// a block carry identical words.
//
// All tag-bit manipulation in the module lives in this package.
package btag

import (
	"unsafe"

	"buf.build/go/tagheap/internal/xunsafe"
)

// Word is one word of block metadata.
type Word = uintptr

// Addr is the address of a metadata word or of arbitrary block bytes.
type Addr = xunsafe.Addr[byte]

const (
	usedBit Word = 0b01
	markBit Word = 0b10
	tagMask Word = 0b11
)

const (
	// WordBytes is the width of a metadata word. Every block address and
	// every size in the module is a multiple of this.
	WordBytes = int(unsafe.Sizeof(Word(0)))

	// Overhead is the per-block metadata cost: one header plus one footer.
	Overhead = 2 * WordBytes

	// MinBlock is the smallest representable block: header and footer
	// with an empty payload.
	MinBlock = Overhead
)

// Load reads the tag word at a.
func Load(a Addr) Word {
	return xunsafe.LoadAt[Word](a)
}

// Store writes the tag word at a.
func Store(a Addr, w Word) {
	xunsafe.StoreAt(a, w)
}

// Size returns the block size encoded in the tag at a.
func Size(a Addr) int {
	return int(Load(a) &^ tagMask)
}

// Used reports whether the tag at a has its used bit set.
func Used(a Addr) bool {
	return Load(a)&usedBit != 0
}

// SetSize writes a new size into the tag at a, preserving the used bit.
func SetSize(a Addr, size int) {
	Store(a, Word(size)|(Load(a)&usedBit))
}

// MarkUsed sets the used bit of the tag at a.
func MarkUsed(a Addr) {
	Store(a, Load(a)|usedBit)
}

// MarkFree clears the used bit of the tag at a.
func MarkFree(a Addr) {
	Store(a, Load(a)&^usedBit)
}

// Init writes a fresh free-block tag of the given size at a, clearing
// whatever bits were there before.
func Init(a Addr, size int) {
	Store(a, Word(size))
}

// InitUsed writes a fresh used-block tag of the given size at a.
func InitUsed(a Addr, size int) {
	Store(a, Word(size)|usedBit)
}

// Next returns the address one past the block whose header is at h: the
// next block's header, or the chunk's end marker.
func Next(h Addr) Addr {
	return h.ByteAdd(Size(h))
}

// Footer returns the footer address of the block whose header is at h.
func Footer(h Addr) Addr {
	return h.ByteAdd(Size(h) - WordBytes)
}

// HeaderFor returns the header address of the block whose footer is at f.
func HeaderFor(f Addr) Addr {
	return f.ByteAdd(WordBytes - Size(f))
}

// PrevFooter returns the address of the word immediately before h: the
// previous block's footer, or the chunk's start marker.
func PrevFooter(h Addr) Addr {
	return h.ByteAdd(-WordBytes)
}

// Prev returns the header address of the block preceding the one at h.
// The caller must have checked that h is not the first block of its
// chunk.
func Prev(h Addr) Addr {
	return HeaderFor(PrevFooter(h))
}

// IsEnd reports whether the word at a is a chunk end marker.
func IsEnd(a Addr) bool {
	return Load(a)&tagMask == markBit
}

// IsStart reports whether the word at a is a chunk start marker.
func IsStart(a Addr) bool {
	return Load(a)&tagMask == tagMask
}

// WriteStart writes a chunk start marker carrying the whole chunk's size.
func WriteStart(a Addr, chunkSize int) {
	Store(a, Word(chunkSize)|tagMask)
}

// WriteEnd writes a chunk end marker carrying the whole chunk's size.
func WriteEnd(a Addr, chunkSize int) {
	Store(a, Word(chunkSize)|markBit)
}
