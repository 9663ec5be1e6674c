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

// Package intern provides immutable string handles with cached hash codes.
// Handles produced by the same Interner for equal content are identical
// pointers, which lets callers compare them by identity before falling back
// to a content comparison.
package intern

import (
	"encoding/binary"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
)

// Hasher computes the 64-bit hash code of a string's content.
type Hasher func(s string) uint64

// XXHash is the default Hasher.
func XXHash(s string) uint64 {
	return xxhash.Sum64String(s)
}

// SipHasher returns a Hasher keyed with k0 and k1. Use it when keys come from
// an untrusted source and flooding a single bucket must be made impractical.
func SipHasher(k0, k1 uint64) Hasher {
	return func(s string) uint64 {
		return siphash.Hash(k0, k1, unsafe.Slice(unsafe.StringData(s), len(s)))
	}
}

// SeedFromBytes derives SipHash keys from 16 bytes of seed material.
func SeedFromBytes(seed [16]byte) (k0, k1 uint64) {
	return binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:])
}

// String is an immutable string handle. The zero value is the empty string.
type String struct {
	s      string
	hash   uint64
	hasher Hasher
	hashed bool
}

// New returns a handle that is not registered with any Interner. Two handles
// returned by New for the same content are distinct pointers but compare
// equal by content.
func New(s string) *String {
	return &String{s: s, hasher: XXHash}
}

// NewWithHasher is like New but hashes with h.
func NewWithHasher(s string, h Hasher) *String {
	return &String{s: s, hasher: h}
}

// String returns the content.
func (s *String) String() string {
	return s.s
}

// Len returns the content length in bytes.
func (s *String) Len() int {
	return len(s.s)
}

// HashCode returns the hash of the content, computing and caching it on first
// use.
func (s *String) HashCode() uint64 {
	if !s.hashed {
		h := s.hasher
		if h == nil {
			h = XXHash
		}
		s.hash = h(s.s)
		s.hashed = true
	}
	return s.hash
}

// SubstringsEqual reports whether the n bytes of a starting at aOff equal the
// n bytes of b starting at bOff. Ranges that fall outside either string are
// never equal.
func SubstringsEqual(a *String, aOff, n int, b *String, bOff int) bool {
	if aOff < 0 || bOff < 0 || n < 0 || aOff+n > len(a.s) || bOff+n > len(b.s) {
		return false
	}
	return a.s[aOff:aOff+n] == b.s[bOff:bOff+n]
}

// Equal reports whether a and b are the same handle or have equal content.
func Equal(a, b *String) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Len() == b.Len() && SubstringsEqual(a, 0, a.Len(), b, 0)
}

// Interner hands out a single canonical handle per distinct content. An
// Interner is NOT goroutine-safe.
type Interner struct {
	hasher  Hasher
	strings map[string]*String
}

// NewInterner returns an Interner whose handles hash with h. A nil h selects
// XXHash.
func NewInterner(h Hasher) *Interner {
	if h == nil {
		h = XXHash
	}
	return &Interner{
		hasher:  h,
		strings: make(map[string]*String),
	}
}

// Intern returns the canonical handle for s.
func (in *Interner) Intern(s string) *String {
	if v, ok := in.strings[s]; ok {
		return v
	}
	v := &String{s: s, hasher: in.hasher}
	in.strings[s] = v
	return v
}

// Len returns the number of distinct strings interned.
func (in *Interner) Len() int {
	return len(in.strings)
}
