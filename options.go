// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fixkey

import "github.com/cockroachdb/fixkey/intern"

// config holds the settings applied by Build. It survives Demolish so a
// demolished table can be reused.
type config[R any] struct {
	hash        func(key *intern.String) uint64
	abort       func(err error)
	allocator   Allocator[R]
	minSizeLog2 uint8
	loadFactor  float64
}

// option provide an interface to do work on a Table while it is being built.
type option[R any] interface {
	apply(c *config[R])
}

type hashOption[R any] struct {
	hash func(key *intern.String) uint64
}

func (op hashOption[R]) apply(c *config[R]) {
	c.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a Table
// instead of the key's own HashCode. Equal keys must hash equally.
func WithHash[R any](hash func(key *intern.String) uint64) option[R] {
	return hashOption[R]{hash}
}

type abortOption[R any] struct {
	abort func(err error)
}

func (op abortOption[R]) apply(c *config[R]) {
	c.abort = op.abort
}

// WithAbort is an option to specify the function called with a description
// of a protocol violation (a stale iterator, a record whose key was never
// populated, and so on). The function must not return; if it does the table
// panics with the same error. The default panics.
func WithAbort[R any](abort func(err error)) option[R] {
	return abortOption[R]{abort}
}

type minSizeOption[R any] struct {
	log2 uint8
}

func (op minSizeOption[R]) apply(c *config[R]) {
	c.minSizeLog2 = op.log2
}

// WithMinSizeLog2 is an option to specify the size class (log2 of the number
// of buckets) allocated on first insert. The default is 3.
func WithMinSizeLog2[R any](log2 uint8) option[R] {
	return minSizeOption[R]{log2}
}

type loadFactorOption[R any] struct {
	loadFactor float64
}

func (op loadFactorOption[R]) apply(c *config[R]) {
	c.loadFactor = op.loadFactor
}

// WithLoadFactor is an option to specify the occupancy fraction above which
// the table grows. It must be in (0, 1). The default is 0.75.
func WithLoadFactor[R any](loadFactor float64) option[R] {
	return loadFactorOption[R]{loadFactor}
}

// Allocator specifies an interface for allocating and releasing memory used
// by a Table. The default allocator utilizes Go's builtin make() and allows the
// GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that entries and
// metadata be freed then Table.Demolish must be called in order to ensure
// FreeEntries and FreeMetadata are called. The records the entries point at
// are never passed to the allocator.
type Allocator[R any] interface {
	// AllocEntries should return a slice equivalent to make([]*R, n).
	AllocEntries(n int) []*R

	// AllocMetadata should return a slice equivalent to make([]uint8, n).
	AllocMetadata(n int) []uint8

	// FreeEntries can optional release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by
	// AllocEntries.
	FreeEntries(v []*R)

	// FreeMetadata can optional release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by
	// AllocMetadata.
	FreeMetadata(v []uint8)
}

type defaultAllocator[R any] struct{}

func (defaultAllocator[R]) AllocEntries(n int) []*R {
	return make([]*R, n)
}

func (defaultAllocator[R]) AllocMetadata(n int) []uint8 {
	return make([]uint8, n)
}

func (defaultAllocator[R]) FreeEntries(v []*R) {
}

func (defaultAllocator[R]) FreeMetadata(v []uint8) {
}

type allocatorOption[R any] struct {
	allocator Allocator[R]
}

func (op allocatorOption[R]) apply(c *config[R]) {
	c.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Table.
func WithAllocator[R any](allocator Allocator[R]) option[R] {
	return allocatorOption[R]{allocator}
}
