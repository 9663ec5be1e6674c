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

import "fmt"

// Iterator is a position in a Table. Iteration visits slots in descending
// order, which is neither insertion order nor key order.
//
// An Iterator is invalidated by any mutation of its table except deleting the
// entry it is positioned at, after which only Next may be called. Builds with
// the invariants tag detect use of an invalidated iterator and report it as
// a protocol violation.
type Iterator struct {
	// pos is the slot index plus one. 0 is the end.
	pos uint32
	dbg iterDebug
}

// Start returns an iterator positioned before the first entry. Next moves it
// to the first entry.
func (t *Table[R, PR]) Start() Iterator {
	c := t.ctl
	if c == nil {
		return Iterator{pos: 1}
	}
	return Iterator{pos: c.kompromat() + 1, dbg: c.dbg.capture()}
}

// First returns an iterator positioned at the first entry, or at the end if
// the table is empty.
func (t *Table[R, PR]) First() Iterator {
	c := t.ctl
	if c == nil {
		// Not even built yet. The iterator is already at the end.
		return Iterator{}
	}
	it := Iterator{dbg: c.dbg.capture()}
	if c.curItems == 0 {
		return it
	}
	it.pos = c.kompromat()
	if c.metadata[it.pos-1] != 0 {
		return it
	}
	return t.Next(it)
}

// Next advances the iterator to the next entry or to the end. Calling Next on
// an iterator at the end is a protocol violation.
func (t *Table[R, PR]) Next(it Iterator) Iterator {
	c := t.ctl
	t.validate("Next", it, true /* allowDeleted */)
	if it.pos == 0 {
		t.oops("Next called when iterator is already at the end")
	}
	if c == nil {
		it.pos = 0
		return it
	}
	it.dbg.adopt(&c.dbg)
	for it.pos--; it.pos > 0; it.pos-- {
		if c.metadata[it.pos-1] != 0 {
			return it
		}
	}
	return it
}

// AtEnd returns true if the iterator is past the last entry.
func (t *Table[R, PR]) AtEnd(it Iterator) bool {
	t.validate("AtEnd", it, false /* allowDeleted */)
	return it.pos == 0
}

// AtStart returns true if the iterator is positioned before the first entry,
// as returned by Start.
func (t *Table[R, PR]) AtStart(it Iterator) bool {
	c := t.ctl
	if c == nil {
		return it.pos == 1
	}
	t.validate("AtStart", it, false /* allowDeleted */)
	return it.pos == c.kompromat()+1
}

// Current returns the record at the iterator's position, or ok=false if the
// iterator is at the end.
func (t *Table[R, PR]) Current(it Iterator) (_ *R, ok bool) {
	t.validate("Current", it, false /* allowDeleted */)
	if it.pos == 0 {
		return nil, false
	}
	c := t.ctl
	if c == nil || it.pos > c.allocatedItems() || c.metadata[it.pos-1] == 0 {
		t.oops("Current called with an iterator at an empty position %d", it.pos)
	}
	return c.entries[it.pos-1], true
}

// All calls yield sequentially for each record in the table. If yield returns
// false, iteration stops. yield may delete the record it was passed; any
// other mutation of the table during iteration is a protocol violation.
func (t *Table[R, PR]) All(yield func(r *R) bool) {
	for it := t.First(); !t.AtEnd(it); it = t.Next(it) {
		r, _ := t.Current(it)
		if !yield(r) {
			return
		}
	}
}

func (t *Table[R, PR]) validate(op string, it Iterator, allowDeleted bool) {
	if !invariants {
		return
	}
	var d tableDebug
	if t.ctl != nil {
		d = t.ctl.dbg
	}
	if err := d.validate(op, it.dbg, it.pos, allowDeleted); err != nil {
		t.abortWith(err)
	}
}

// String implements fmt.Stringer.
func (it Iterator) String() string {
	if it.pos == 0 {
		return "end"
	}
	return fmt.Sprintf("slot %d", it.pos-1)
}
