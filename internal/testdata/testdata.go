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

// Package testdata embeds the allocator's trace corpus: scripted
// sessions of allocate/free/realloc calls with expected outcomes, which
// the heap's tests replay while checking structural invariants after
// every step.
package testdata

import (
	"embed"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var testdata embed.FS

// Harness is a generalization of [testing.TB] that also includes the
// [testing.T.Run] method. It must be generic because the signature of
// this function varies across [testing.T] and [testing.B].
type Harness[T any] interface {
	testing.TB
	Run(string, func(T)) bool
}

// Trace is one scripted allocator session from the corpus.
type Trace struct {
	Name string `yaml:"-"`

	// ChunkSize overrides the heap's minimum mapping size when nonzero.
	ChunkSize int `yaml:"chunk_size"`

	Ops []Op `yaml:"ops"`

	// FinalChunks is the expected number of mapped chunks after the
	// last op.
	FinalChunks int `yaml:"final_chunks"`
}

// Op is a single step of a trace. Exactly one field is set.
type Op struct {
	Alloc   *AllocOp   `yaml:"alloc"`
	Free    *FreeOp    `yaml:"free"`
	Realloc *ReallocOp `yaml:"realloc"`
	Reset   bool       `yaml:"reset"`
}

// AllocOp allocates Size bytes and binds the result to the name As.
type AllocOp struct {
	Size int    `yaml:"size"`
	As   string `yaml:"as"`

	// Fill stamps a deterministic pattern into the payload, which the
	// runner re-verifies after every subsequent step.
	Fill bool `yaml:"fill"`
}

// FreeOp releases the pointer bound to Ptr.
type FreeOp struct {
	Ptr string `yaml:"ptr"`
}

// ReallocOp resizes the pointer bound to Ptr and rebinds it.
type ReallocOp struct {
	Ptr  string `yaml:"ptr"`
	Size int    `yaml:"size"`

	// Same asserts the block was resized in place; Moved asserts the
	// payload landed at a new address.
	Same  bool `yaml:"same"`
	Moved bool `yaml:"moved"`
}

// RunAll runs every trace in the corpus against the given harness.
func RunAll[T Harness[T]](t T, f func(T, *Trace)) {
	t.Helper()

	err := fs.WalkDir(testdata, ".", func(path string, d fs.DirEntry, err error) error {
		require.NoError(t, err, "loading trace %q", path)

		if d.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}

		data, err := fs.ReadFile(testdata, path)
		require.NoError(t, err, "reading trace %q", path)

		trace := new(Trace)
		require.NoError(t, yaml.Unmarshal(data, trace), "parsing trace %q", path)
		trace.Name = strings.TrimSuffix(path, ".yaml")

		t.Run(trace.Name, func(t T) { f(t, trace) })
		return nil
	})
	require.NoError(t, err)
}
