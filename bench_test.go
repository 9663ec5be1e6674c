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

import (
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
	"github.com/cockroachdb/fixkey/intern"
)

func BenchmarkTableIter(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapIter))
	b.Run("impl=fixkeyTable", benchSizes(benchmarkFixkeyTableIter))
}

func BenchmarkTableFetchHit(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapFetchHit))
	b.Run("impl=fixkeyTable", benchSizes(benchmarkFixkeyTableFetchHit))
}

func BenchmarkTableFetchMiss(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapFetchMiss))
	b.Run("impl=fixkeyTable", benchSizes(benchmarkFixkeyTableFetchMiss))
}

func BenchmarkTablePutGrow(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapPutGrow))
	b.Run("impl=fixkeyTable", benchSizes(benchmarkFixkeyTablePutGrow))
}

func BenchmarkTablePutDelete(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapPutDelete))
	b.Run("impl=fixkeyTable", benchSizes(benchmarkFixkeyTablePutDelete))
}

func benchSizes(f func(b *testing.B, n int)) func(*testing.B) {
	var cases = []int{
		6, 12, 18, 24, 30,
		64,
		128,
		256,
		512,
		1024,
		2048,
		4096,
		8192,
		1 << 16,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n) })
		}
	}
}

// genKeys returns interned keys for the integers [start, end). The interner
// hashes every key up front so the benchmarks measure probing, not hashing.
func genKeys(in *intern.Interner, start, end int) []*intern.String {
	keys := make([]*intern.String, end-start)
	for i := range keys {
		keys[i] = in.Intern(strconv.Itoa(start + i))
		keys[i].HashCode()
	}
	return keys
}

func benchmarkRuntimeMapIter(b *testing.B, n int) {
	m := make(map[string]*entry, n)
	for _, k := range genKeys(intern.NewInterner(nil), 0, n) {
		m[k.String()] = &entry{key: k}
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	var tmp int
	for i := 0; i < b.N; i++ {
		for _, e := range m {
			tmp += e.value
		}
	}
	cs.Stop()
	fmt.Fprint(io.Discard, tmp)
}

func benchmarkFixkeyTableIter(b *testing.B, n int) {
	var m testTable
	m.Build()
	for _, k := range genKeys(intern.NewInterner(nil), 0, n) {
		put(&m, k, 0)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	var tmp int
	for i := 0; i < b.N; i++ {
		for it := m.First(); !m.AtEnd(it); it = m.Next(it) {
			e, _ := m.Current(it)
			tmp += e.value
		}
	}
	cs.Stop()
	fmt.Fprint(io.Discard, tmp)
}

func benchmarkRuntimeMapFetchHit(b *testing.B, n int) {
	m := make(map[string]*entry, n)
	keys := genKeys(intern.NewInterner(nil), 0, n)
	for _, k := range keys {
		m[k.String()] = &entry{key: k}
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m[keys[i%n].String()]
	}
	cs.Stop()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkFixkeyTableFetchHit(b *testing.B, n int) {
	var m testTable
	m.Build()
	keys := genKeys(intern.NewInterner(nil), 0, n)
	for _, k := range keys {
		put(&m, k, 0)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Fetch(keys[i%n])
	}
	cs.Stop()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapFetchMiss(b *testing.B, n int) {
	m := make(map[string]*entry, n)
	in := intern.NewInterner(nil)
	for _, k := range genKeys(in, 0, n) {
		m[k.String()] = &entry{key: k}
	}
	miss := genKeys(in, -n, 0)
	cs := perfbench.Open(b)
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m[miss[i%n].String()]
	}
	cs.Stop()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkFixkeyTableFetchMiss(b *testing.B, n int) {
	var m testTable
	m.Build()
	in := intern.NewInterner(nil)
	for _, k := range genKeys(in, 0, n) {
		put(&m, k, 0)
	}
	miss := genKeys(in, -n, 0)
	cs := perfbench.Open(b)
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Fetch(miss[i%n])
	}
	cs.Stop()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapPutGrow(b *testing.B, n int) {
	keys := genKeys(intern.NewInterner(nil), 0, n)
	records := make([]entry, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := make(map[string]*entry)
		for j, k := range keys {
			m[k.String()] = &records[j]
		}
	}
	cs.Stop()
}

func benchmarkFixkeyTablePutGrow(b *testing.B, n int) {
	keys := genKeys(intern.NewInterner(nil), 0, n)
	var m testTable
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Demolish()
		m.Build()
		for _, k := range keys {
			put(&m, k, 0)
		}
	}
	cs.Stop()
}

func benchmarkRuntimeMapPutDelete(b *testing.B, n int) {
	m := make(map[string]*entry, n)
	keys := genKeys(intern.NewInterner(nil), 0, n)
	for _, k := range keys {
		m[k.String()] = &entry{key: k}
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % n
		e := m[keys[j].String()]
		delete(m, keys[j].String())
		m[keys[j].String()] = e
	}
	cs.Stop()
}

func benchmarkFixkeyTablePutDelete(b *testing.B, n int) {
	var m testTable
	m.Build()
	keys := genKeys(intern.NewInterner(nil), 0, n)
	for _, k := range keys {
		put(&m, k, 0)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % n
		m.Delete(keys[j])
		put(&m, keys[j], j)
	}
	cs.Stop()
}
