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

//go:build !invariants

package fixkey

const invariants = false

type tableDebug struct{}

type iterDebug struct{}

func (d *tableDebug) init() {}

func (d *tableDebug) mutated() {}

func (d *tableDebug) deleted(pos uint32) {}

func (d *tableDebug) capture() iterDebug {
	return iterDebug{}
}

func (d *tableDebug) validate(op string, it iterDebug, pos uint32, allowDeleted bool) error {
	return nil
}

func (it *iterDebug) adopt(d *tableDebug) {}
