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

// Package fixkey is a Robin Hood hash table keyed by interned string handles
// whose entries are references to records that carry their own key. See
// https://github.com/martinus/robin-hood-hashing for the design it follows.
//
// # Robin Hood hashing
//
// The table uses open addressing with linear probing. On a collision the
// entry which is further from its ideal bucket ("poorer") keeps the slot and
// the richer entry moves along. The result is that, scanning forward from
// any slot, entries appear in order of their ideal bucket, which lets a
// lookup stop as soon as it meets an entry that is richer than the key it is
// looking for would be at that slot.
//
// # Layout
//
// The table has 2^N buckets (the official size) and allocates
// maxProbeDistanceLimit-1 extra slots past the last bucket so probing never
// wraps around to the start. Each slot is a metadata byte plus an entry
// pointer, held in two parallel slices. The metadata slice carries one extra
// byte which is always zero so that every forward scan terminates without a
// bounds check.
//
// A metadata byte packs the entry's probe distance (1 for its ideal bucket)
// into its high bits and metadataHashBits further bits of the key's hash into
// its low bits:
//
//	 empty: 0 0 0 0 0 0 0 0
//	  full: d d d h h h h h  // d is the probe distance, h hash bits
//
// so comparing a single byte checks the probe depth and rejects most
// non-matching keys without touching the record. metadataHashBits starts at
// 5 and is reduced one bit at a time, without reallocating, whenever a probe
// would need a larger distance than fits. When it cannot be reduced any
// further the table doubles in size.
//
// Inserting into an occupied run does not swap entries along the run. The
// run is already in valid probe order so every metadata byte in it is bumped
// by one probe distance and the entry pointers are moved along by one with a
// single copy. Deletion is the mirror image: the run following the deleted
// slot is moved back by one.
package fixkey

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/fixkey/intern"
)

const (
	debug = false

	defaultMinSizeLog2 = 3
	defaultLoadFactor  = 0.75

	// initialMetadataHashBits is the number of hash bits kept in each
	// metadata byte of a freshly allocated table.
	initialMetadataHashBits = 5
	// maxProbeDistanceCeiling is the largest probe distance a metadata byte
	// can represent (with zero hash bits).
	maxProbeDistanceCeiling = 255
	// maxSizeLog2 bounds the size class so slot indexes fit in a uint32.
	maxSizeLog2 = 31
)

// Record is the constraint satisfied by pointers to records stored in a
// Table. FixKey returns the record's key, which must not change while the
// record is in the table.
type Record[R any] interface {
	*R
	FixKey() *intern.String
}

// control is the sizing state of an allocated table together with the slot
// arrays it describes.
type control[R any] struct {
	// metadata is allocatedItems()+1 in length. The last byte is the
	// sentinel and is always zero.
	metadata []uint8
	// entries is allocatedItems() in length. entries[i] is nil iff
	// metadata[i] is zero.
	entries []*R
	// The number of filled slots.
	curItems uint32
	// Hit this and we grow.
	maxItems uint32
	// The size of R in bytes.
	entrySize uintptr
	// The number of buckets is 1<<officialSizeLog2.
	officialSizeLog2 uint8
	// keyRightShift aligns the bucket and metadata hash bits of a hash value
	// at the low end.
	keyRightShift uint8
	// The maximum probe distance we can use without updating the metadata.
	// It might not *yet* be the maximum probe distance possible for the
	// official size.
	maxProbeDistance uint8
	// The maximum probe distance possible for the official size.
	maxProbeDistanceLimit uint8
	metadataHashBits      uint8
	// probeOverflow is set once an entry sits at maxProbeDistance. It forces
	// a grow before the next insert so that the insert itself never has to
	// handle an entry moving past the limit.
	probeOverflow bool
	dbg           tableDebug
}

func (c *control[R]) officialSize() uint32 {
	return 1 << uint32(c.officialSizeLog2)
}

// allocatedItems returns the number of slots. -1 because a probe distance of
// 1 is the ideal bucket, so an entry whose ideal bucket is the last one is
// still inside the official allocation.
func (c *control[R]) allocatedItems() uint32 {
	return c.officialSize() + uint32(c.maxProbeDistanceLimit) - 1
}

// kompromat returns the number of slots that can currently be occupied given
// the realized maximum probe distance.
func (c *control[R]) kompromat() uint32 {
	return c.officialSize() + uint32(c.maxProbeDistance) - 1
}

// Table is a Robin Hood hash table mapping interned string keys to records
// that contain their key. The table stores pointers to records and never
// frees them.
//
// A Table can be embedded by value: Build does not allocate, and memory is
// only allocated on first insert. The zero Table behaves as if Build was
// called without options.
//
// A Table is NOT goroutine-safe.
type Table[R any, PR Record[R]] struct {
	ctl *control[R]
	cfg config[R]
}

// Build initializes the table with the specified options. It does not
// allocate. Calling Build on a table holding an allocation is a protocol
// violation; Demolish it first.
func (t *Table[R, PR]) Build(options ...option[R]) {
	if t.ctl != nil {
		t.oops("Build called on a table that is in use")
	}
	t.cfg = config[R]{
		allocator:   defaultAllocator[R]{},
		minSizeLog2: defaultMinSizeLog2,
		loadFactor:  defaultLoadFactor,
	}
	for _, op := range options {
		op.apply(&t.cfg)
	}

	if t.cfg.allocator == nil {
		t.oops("Build called with a nil allocator")
	}
	if !(t.cfg.loadFactor > 0 && t.cfg.loadFactor < 1) {
		t.oops("load factor %v is not in (0, 1)", t.cfg.loadFactor)
	}
	if t.cfg.minSizeLog2 == 0 || t.cfg.minSizeLog2 >= maxSizeLog2 {
		t.oops("minimum size class %d is not in [1, %d)", t.cfg.minSizeLog2, maxSizeLog2)
	}
	if t.maxItemsFor(t.cfg.minSizeLog2) == 0 {
		t.oops("minimum size class %d holds no items at load factor %v",
			t.cfg.minSizeLog2, t.cfg.loadFactor)
	}
}

// ensureBuilt makes the zero Table usable.
func (t *Table[R, PR]) ensureBuilt() {
	if t.cfg.allocator == nil {
		t.Build()
	}
}

// Demolish releases the table's memory back to its allocator and returns the
// table to its unbuilt state, keeping the options it was built with. The
// records referenced by the table are not touched. Iterators created before
// Demolish must not be used afterwards.
func (t *Table[R, PR]) Demolish() {
	c := t.ctl
	if c == nil {
		return
	}
	t.free(c)
	t.ctl = nil
}

// IsEmpty returns true if the table has no entries.
func (t *Table[R, PR]) IsEmpty() bool {
	return t.ctl == nil || t.ctl.curItems == 0
}

// Len returns the number of entries in the table.
func (t *Table[R, PR]) Len() int {
	if t.ctl == nil {
		return 0
	}
	return int(t.ctl.curItems)
}

// Fetch retrieves the record stored for key, returning ok=false if the key is
// not present.
func (t *Table[R, PR]) Fetch(key *intern.String) (_ *R, ok bool) {
	t.checkKey("Fetch", key)
	if t.IsEmpty() {
		return nil, false
	}
	c := t.ctl
	i, ok := t.find(c, key)
	if !ok {
		return nil, false
	}
	return c.entries[i], true
}

// LvalueFetch looks up the record for key, creating it if necessary. A
// freshly created record is zeroed and its key is unset: the caller must
// populate it so that FixKey returns key (or a handle with equal content)
// before the table is used again.
func (t *Table[R, PR]) LvalueFetch(key *intern.String) *R {
	t.checkKey("LvalueFetch", key)
	if r, ok := t.prepareInsert(key); ok {
		return r
	}

	ctl := t.ctl
	i, found := t.insert(ctl, key, true /* check */)
	if found {
		return ctl.entries[i]
	}
	r := new(R)
	ctl.entries[i] = r
	ctl.dbg.mutated()
	t.checkInvariants()
	return r
}

// InsertNoCheck UNCONDITIONALLY creates a new record for key without checking
// whether the key is already present. Inserting a key which is present leaves
// the table holding two entries for it. As with LvalueFetch the returned
// record is zeroed and the caller must populate its key.
func (t *Table[R, PR]) InsertNoCheck(key *intern.String) *R {
	t.checkKey("InsertNoCheck", key)
	ctl := t.ctl
	switch {
	case ctl == nil:
		t.promote()
	case ctl.curItems >= ctl.maxItems || ctl.probeOverflow:
		t.grow()
	}

	ctl = t.ctl
	i, _ := t.insert(ctl, key, false /* check */)
	r := new(R)
	ctl.entries[i] = r
	ctl.dbg.mutated()
	t.checkInvariants()
	return r
}

// Delete removes the entry for key, returning the record it referenced and
// ok=false if the key was not present. Deleting the entry an iterator is
// positioned at is the one mutation that iterator tolerates.
func (t *Table[R, PR]) Delete(key *intern.String) (_ *R, ok bool) {
	t.checkKey("Delete", key)
	if t.IsEmpty() {
		return nil, false
	}
	c := t.ctl
	i, ok := t.find(c, key)
	if !ok {
		return nil, false
	}
	r := c.entries[i]

	// Move the following run back by one. Entries at their ideal bucket
	// (probe distance 1) stay put, as does everything after an empty slot.
	// The sentinel terminates the scan.
	inc := uint8(1) << c.metadataHashBits
	j := i
	for c.metadata[j+1] >= 2*inc {
		c.metadata[j] = c.metadata[j+1] - inc
		j++
	}
	copy(c.entries[i:j], c.entries[i+1:j+1])
	c.metadata[j] = 0
	c.entries[j] = nil
	c.curItems--
	c.dbg.deleted(i + 1)

	if debug {
		fmt.Printf("delete(%s): index=%d moved=%d used=%d\n", key, i, j-i, c.curItems)
	}
	t.checkInvariants()
	return r, true
}

// prepareInsert makes sure an insert of key can proceed without growing. If
// the table is due to grow and key is already present the existing record is
// returned instead, as there is no reason to grow (and invalidate iterators)
// for a fetch.
func (t *Table[R, PR]) prepareInsert(key *intern.String) (existing *R, ok bool) {
	c := t.ctl
	if c == nil {
		t.promote()
		return nil, false
	}
	if c.curItems >= c.maxItems || c.probeOverflow {
		if c.curItems > 0 {
			if i, ok := t.find(c, key); ok {
				return c.entries[i], true
			}
		}
		t.grow()
	}
	return nil, false
}

// promote performs the initial allocation.
func (t *Table[R, PR]) promote() {
	t.ensureBuilt()
	c := t.allocate(t.cfg.minSizeLog2)
	c.dbg.init()
	t.ctl = c
}

func (t *Table[R, PR]) maxItemsFor(log2 uint8) uint32 {
	return uint32(float64(uint32(1)<<uint32(log2)) * t.cfg.loadFactor)
}

// allocate returns an empty control block for the size class log2.
func (t *Table[R, PR]) allocate(log2 uint8) *control[R] {
	if log2 >= maxSizeLog2 {
		t.oops("cannot grow table beyond size class %d", log2-1)
	}
	officialSize := uint32(1) << uint32(log2)
	maxItems := t.maxItemsFor(log2)
	limit := min(uint32(maxProbeDistanceCeiling), maxItems)

	var r R
	c := &control[R]{
		maxItems:              maxItems,
		entrySize:             unsafe.Sizeof(r),
		officialSizeLog2:      log2,
		maxProbeDistanceLimit: uint8(limit),
		metadataHashBits:      initialMetadataHashBits,
	}
	initialProbeDistance := uint32(1)<<(8-initialMetadataHashBits) - 1
	c.maxProbeDistance = uint8(min(initialProbeDistance, limit))
	c.keyRightShift = 64 - log2 - c.metadataHashBits

	allocated := int(c.allocatedItems())
	c.entries = t.cfg.allocator.AllocEntries(allocated)
	c.metadata = t.cfg.allocator.AllocMetadata(allocated + 1)
	if len(c.entries) != allocated || len(c.metadata) != allocated+1 {
		t.oops("allocator returned %d entries and %d metadata bytes, expected %d and %d",
			len(c.entries), len(c.metadata), allocated, allocated+1)
	}
	clear(c.metadata)
	clear(c.entries)

	if debug {
		fmt.Printf("allocate: size=%d allocated=%d max-items=%d max-probe=%d/%d\n",
			officialSize, allocated, maxItems, c.maxProbeDistance, c.maxProbeDistanceLimit)
	}
	return c
}

func (t *Table[R, PR]) free(c *control[R]) {
	t.cfg.allocator.FreeEntries(c.entries)
	t.cfg.allocator.FreeMetadata(c.metadata)
	c.entries = nil
	c.metadata = nil
}

// grow makes room for at least one more insert. If the table is below its
// item threshold and only hit the probe distance limit, a bit of hash is
// traded for a bit of probe distance in every metadata byte. Otherwise the
// table is reallocated at double the size and every entry is reinserted.
func (t *Table[R, PR]) grow() {
	c := t.ctl
	if c.curItems < c.maxItems && c.maxProbeDistance < c.maxProbeDistanceLimit {
		if invariants && c.metadataHashBits == 0 {
			panic(errors.AssertionFailedf("invariant failed: no metadata hash bits left to trade\n%s",
				t.debugString()))
		}
		newMaxProbeDistance := min(2*uint32(c.maxProbeDistance)+1, uint32(c.maxProbeDistanceLimit))
		// Dropping the lowest bit of every byte keeps the probe distances and
		// the high hash bits, and zero stays zero.
		for i, n := uint32(0), c.kompromat(); i < n; i++ {
			c.metadata[i] >>= 1
		}
		if debug {
			fmt.Printf("grow(demote): max-probe=%d->%d hash-bits=%d->%d\n",
				c.maxProbeDistance, newMaxProbeDistance, c.metadataHashBits, c.metadataHashBits-1)
		}
		c.maxProbeDistance = uint8(newMaxProbeDistance)
		c.metadataHashBits--
		c.keyRightShift++
		c.probeOverflow = false
		t.checkInvariants()
		return
	}

	old := c
	n := old.kompromat()
	c = t.allocate(old.officialSizeLog2 + 1)
	c.dbg = old.dbg
	t.ctl = c

	if debug {
		fmt.Printf("grow(resize): size=%d->%d items=%d\n", old.officialSize(), c.officialSize(), old.curItems)
	}

	for i := uint32(0); i < n; i++ {
		if old.metadata[i] == 0 {
			continue
		}
		r := old.entries[i]
		key := PR(r).FixKey()
		if key == nil {
			t.oops("record at slot %d has a nil key", i)
		}
		// The table may have been regrown by a previous iteration.
		cur := t.ctl
		j, _ := t.insert(cur, key, false /* check */)
		cur.entries[j] = r
		if cur.probeOverflow {
			// One doubling was not enough for this hash distribution.
			t.grow()
		}
	}
	t.free(old)
	t.checkInvariants()
}

// loopState is the cursor used to walk a key's probe sequence.
type loopState struct {
	// probeDistance is the metadata byte the key would have at index: its
	// probe distance in the high bits and its hash fragment in the low bits.
	// It is wider than a byte because lookups may step one past the maximum
	// probe distance.
	probeDistance      uint32
	metadataIncrement  uint32
	probeDistanceShift uint8
	maxProbeDistance   uint32
	index              uint32
}

func (t *Table[R, PR]) makeLoopState(c *control[R], key *intern.String) loopState {
	var h uint64
	if t.cfg.hash != nil {
		h = t.cfg.hash(key)
	} else {
		h = key.HashCode()
	}
	ls := loopState{
		metadataIncrement:  uint32(1) << c.metadataHashBits,
		probeDistanceShift: c.metadataHashBits,
		maxProbeDistance:   uint32(c.maxProbeDistance),
	}
	usedHashBits := h >> c.keyRightShift
	ls.probeDistance = ls.metadataIncrement | (uint32(usedHashBits) & (ls.metadataIncrement - 1))
	ls.index = uint32(usedHashBits >> c.metadataHashBits)
	return ls
}

func (ls *loopState) next() {
	ls.probeDistance += ls.metadataIncrement
	ls.index++
}

func (ls loopState) String() string {
	return fmt.Sprintf("index=%d probe-distance=%d/%02x", ls.index,
		ls.probeDistance>>ls.probeDistanceShift, ls.probeDistance&(ls.metadataIncrement-1))
}

// find returns the slot index holding key.
func (t *Table[R, PR]) find(c *control[R], key *intern.String) (uint32, bool) {
	ls := t.makeLoopState(c, key)
	if debug {
		fmt.Printf("find(%s): %s\n", key, ls)
	}
	for {
		m := uint32(c.metadata[ls.index])
		if m == ls.probeDistance {
			if t.keyMatches(c.entries[ls.index], key) {
				return ls.index, true
			}
		} else if m < ls.probeDistance {
			// Either an empty slot or an entry richer than key would be
			// here. Had key been inserted it would have taken this slot, so
			// it is not present. The sentinel guarantees we get here.
			if debug {
				fmt.Printf("find(not-found): %s metadata=%02x\n", ls, m)
			}
			return 0, false
		}
		ls.next()
	}
}

// insert claims a slot for key, moving along the run of entries at that slot
// if it is occupied. The new slot's entry is nil and the caller must set it.
// If check is set and key is already present its slot is returned with
// found=true instead.
func (t *Table[R, PR]) insert(c *control[R], key *intern.String, check bool) (_ uint32, found bool) {
	if c.curItems >= c.maxItems || c.probeOverflow {
		t.oops("insert of %q into a table that needed to grow first", key)
	}

	ls := t.makeLoopState(c, key)
	if debug {
		fmt.Printf("insert(%s): %s\n", key, ls)
	}
	for {
		m := uint32(c.metadata[ls.index])
		if m < ls.probeDistance {
			// This is our slot, occupied or not.
			if m != 0 {
				// The run starting here is in valid probe order, so rather
				// than swapping the displaced entry forward we bump every
				// metadata byte in the run by one probe distance and move the
				// entries along with a single copy.
				gap := ls.index
				old := m
				for old != 0 {
					newProbeDistance := old + ls.metadataIncrement
					if newProbeDistance>>ls.probeDistanceShift == ls.maxProbeDistance {
						c.probeOverflow = true
					}
					gap++
					old = uint32(c.metadata[gap])
					c.metadata[gap] = uint8(newProbeDistance)
				}
				copy(c.entries[ls.index+1:gap+1], c.entries[ls.index:gap])
				if debug {
					fmt.Printf("insert(shift): index=%d moved=%d\n", ls.index, gap-ls.index)
				}
			}
			if ls.probeDistance>>ls.probeDistanceShift == ls.maxProbeDistance {
				c.probeOverflow = true
			}
			c.curItems++
			c.metadata[ls.index] = uint8(ls.probeDistance)
			c.entries[ls.index] = nil
			return ls.index, false
		}
		if check && m == ls.probeDistance && t.keyMatches(c.entries[ls.index], key) {
			return ls.index, true
		}
		ls.next()
		if invariants && ls.probeDistance >= (ls.maxProbeDistance+1)*ls.metadataIncrement {
			panic(errors.AssertionFailedf("invariant failed: insert(%s) probed past max probe distance %d\n%s",
				key, ls.maxProbeDistance, t.debugString()))
		}
	}
}

// keyMatches compares the key of r with key: by identity, then by content.
func (t *Table[R, PR]) keyMatches(r *R, key *intern.String) bool {
	k := PR(r).FixKey()
	if k == key {
		return true
	}
	if k == nil {
		t.oops("record with a nil key found while looking up %q; "+
			"populate the key of records returned by LvalueFetch and InsertNoCheck", key)
	}
	n := key.Len()
	return n == k.Len() && intern.SubstringsEqual(key, 0, n, k, 0)
}

func (t *Table[R, PR]) checkKey(op string, key *intern.String) {
	if key == nil {
		t.oops("%s called with a nil key", op)
	}
}

// oops reports a protocol violation. It does not return.
func (t *Table[R, PR]) oops(format string, args ...interface{}) {
	t.abortWith(errors.AssertionFailedf(format, args...))
}

func (t *Table[R, PR]) abortWith(err error) {
	if t.cfg.abort != nil {
		t.cfg.abort(err)
	}
	panic(err)
}

// Stats is a snapshot of a table's sizing state.
type Stats struct {
	Items                 int     `json:"items"`
	MaxItems              int     `json:"max_items"`
	OfficialSize          int     `json:"official_size"`
	OfficialSizeLog2      int     `json:"official_size_log2"`
	AllocatedSlots        int     `json:"allocated_slots"`
	EntrySize             int     `json:"entry_size"`
	MaxProbeDistance      int     `json:"max_probe_distance"`
	MaxProbeDistanceLimit int     `json:"max_probe_distance_limit"`
	MetadataHashBits      int     `json:"metadata_hash_bits"`
	LongestProbeDistance  int     `json:"longest_probe_distance"`
	MeanProbeDistance     float64 `json:"mean_probe_distance"`
}

// Stats returns the table's sizing state. An unbuilt table returns the zero
// Stats.
func (t *Table[R, PR]) Stats() Stats {
	c := t.ctl
	if c == nil {
		return Stats{}
	}
	s := Stats{
		Items:                 int(c.curItems),
		MaxItems:              int(c.maxItems),
		OfficialSize:          int(c.officialSize()),
		OfficialSizeLog2:      int(c.officialSizeLog2),
		AllocatedSlots:        int(c.allocatedItems()),
		EntrySize:             int(c.entrySize),
		MaxProbeDistance:      int(c.maxProbeDistance),
		MaxProbeDistanceLimit: int(c.maxProbeDistanceLimit),
		MetadataHashBits:      int(c.metadataHashBits),
	}
	var total int
	for _, m := range c.metadata[:c.kompromat()] {
		if m == 0 {
			continue
		}
		d := int(m >> c.metadataHashBits)
		total += d
		s.LongestProbeDistance = max(s.LongestProbeDistance, d)
	}
	if s.Items > 0 {
		s.MeanProbeDistance = float64(total) / float64(s.Items)
	}
	return s
}

func (t *Table[R, PR]) checkInvariants() {
	if invariants {
		c := t.ctl
		if c == nil {
			return
		}
		allocated := c.allocatedItems()
		if uint32(len(c.metadata)) != allocated+1 || uint32(len(c.entries)) != allocated {
			panic(errors.AssertionFailedf("invariant failed: %d metadata bytes and %d entries for %d slots",
				len(c.metadata), len(c.entries), allocated))
		}
		if m := c.metadata[allocated]; m != 0 {
			panic(errors.AssertionFailedf("invariant failed: sentinel is %02x\n%s", m, t.debugString()))
		}
		if c.curItems > c.maxItems {
			panic(errors.AssertionFailedf("invariant failed: %d items exceeds max %d", c.curItems, c.maxItems))
		}
		if c.maxProbeDistance > c.maxProbeDistanceLimit {
			panic(errors.AssertionFailedf("invariant failed: max probe distance %d exceeds limit %d",
				c.maxProbeDistance, c.maxProbeDistanceLimit))
		}

		inc := uint32(1) << c.metadataHashBits
		kompromat := c.kompromat()
		var used uint32
		for i := uint32(0); i < allocated; i++ {
			m := uint32(c.metadata[i])
			if m == 0 {
				if c.entries[i] != nil {
					panic(errors.AssertionFailedf("invariant failed: empty slot %d has an entry\n%s",
						i, t.debugString()))
				}
				continue
			}
			used++
			if c.entries[i] == nil {
				panic(errors.AssertionFailedf("invariant failed: full slot %d has no entry\n%s",
					i, t.debugString()))
			}
			if i >= kompromat {
				panic(errors.AssertionFailedf("invariant failed: slot %d is beyond %d\n%s",
					i, kompromat, t.debugString()))
			}
			d := m >> c.metadataHashBits
			if d == 0 || d > uint32(c.maxProbeDistance) || i+1 < d || i+1-d >= c.officialSize() {
				panic(errors.AssertionFailedf("invariant failed: slot %d has probe distance %d\n%s",
					i, d, t.debugString()))
			}
			// An entry can be at most one probe distance poorer than its
			// predecessor, and entries with the same ideal bucket are ordered
			// by descending hash fragment.
			if i == 0 || c.metadata[i-1] == 0 {
				if d != 1 {
					panic(errors.AssertionFailedf("invariant failed: slot %d follows an empty slot at probe distance %d\n%s",
						i, d, t.debugString()))
				}
			} else if m > uint32(c.metadata[i-1])+inc {
				panic(errors.AssertionFailedf("invariant failed: slot %d (%02x) out of order after %02x\n%s",
					i, m, c.metadata[i-1], t.debugString()))
			}
		}
		if used != c.curItems {
			panic(errors.AssertionFailedf("invariant failed: found %d used slots, but used count is %d\n%s",
				used, c.curItems, t.debugString()))
		}
	}
}

func (t *Table[R, PR]) debugString() string {
	c := t.ctl
	if c == nil {
		return "unbuilt\n"
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "size=%d  used=%d  max-items=%d  max-probe=%d/%d  hash-bits=%d\n",
		c.officialSize(), c.curItems, c.maxItems, c.maxProbeDistance, c.maxProbeDistanceLimit,
		c.metadataHashBits)
	for i := uint32(0); i < c.allocatedItems(); i++ {
		m := c.metadata[i]
		if m == 0 {
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
			continue
		}
		var key string
		if r := c.entries[i]; r != nil {
			if k := PR(r).FixKey(); k != nil {
				key = k.String()
			}
		}
		fmt.Fprintf(&buf, "  %4d: %q [meta=%02x probe=%d]\n", i, key, m, m>>c.metadataHashBits)
	}
	return buf.String()
}
