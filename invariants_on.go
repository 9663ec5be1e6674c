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

//go:build invariants

package fixkey

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

const invariants = true

// tableIDs hands out table identities. 0 is reserved for "no table".
var tableIDs atomic.Uint64

// tableDebug is the iterator staleness state carried by a control block.
type tableDebug struct {
	id     uint64
	serial uint32
	// lastDeleteAt is the iterator position (slot index + 1) of the most
	// recent delete.
	lastDeleteAt uint32
}

// iterDebug is the table identity and serial captured by an Iterator.
type iterDebug struct {
	owner  uint64
	serial uint32
}

func (d *tableDebug) init() {
	d.id = tableIDs.Add(1)
}

func (d *tableDebug) mutated() {
	d.serial++
}

func (d *tableDebug) deleted(pos uint32) {
	d.serial++
	d.lastDeleteAt = pos
}

func (d *tableDebug) capture() iterDebug {
	return iterDebug{owner: d.id, serial: d.serial}
}

// validate checks that an iterator captured from this table is still usable.
// If allowDeleted is set, the single mutation of deleting the element at the
// iterator's position is tolerated.
func (d *tableDebug) validate(op string, it iterDebug, pos uint32, allowDeleted bool) error {
	if it.owner != d.id {
		return errors.AssertionFailedf(
			"%s called with an iterator from a different hash table: %016x != %016x", op, it.owner, d.id)
	}
	if it.serial == d.serial {
		return nil
	}
	if allowDeleted && it.serial == d.serial-1 && pos == d.lastDeleteAt {
		return nil
	}
	return errors.AssertionFailedf(
		"%s called with an iterator with the wrong serial number: %d != %d", op, it.serial, d.serial)
}

func (it *iterDebug) adopt(d *tableDebug) {
	it.serial = d.serial
}
