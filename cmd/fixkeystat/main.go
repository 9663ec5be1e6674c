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

// fixkeystat loads newline-separated keys into a fixkey.Table and prints the
// table's sizing statistics as JSON. It is useful for looking at how a real
// key set probes under a given hash function and load factor.
//
//	fixkeystat [-hash xxhash|siphash] [-seed HEX] [-load-factor F] [-counts] [file]
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/fixkey"
	"github.com/cockroachdb/fixkey/intern"
	"github.com/sugawarayuuta/sonnet"
)

type counter struct {
	key   *intern.String
	count int
}

func (c *counter) FixKey() *intern.String {
	return c.key
}

type keyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type report struct {
	Lines  int          `json:"lines"`
	Stats  fixkey.Stats `json:"stats"`
	Counts []keyCount   `json:"counts,omitempty"`
}

func main() {
	hashName := flag.String("hash", "xxhash", "key hash function: xxhash or siphash")
	seed := flag.String("seed", "", "siphash key as 32 hex digits")
	loadFactor := flag.Float64("load-factor", 0.75, "maximum fraction of buckets in use before growing")
	counts := flag.Bool("counts", false, "include per-key counts in table iteration order")
	flag.Parse()

	if err := run(os.Stdout, *hashName, *seed, *loadFactor, *counts, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "fixkeystat: %v\n", err)
		os.Exit(1)
	}
}

func hasherFor(name, seed string) (intern.Hasher, error) {
	switch name {
	case "xxhash":
		return intern.XXHash, nil
	case "siphash":
		var key [16]byte
		if seed != "" {
			b, err := hex.DecodeString(seed)
			if err != nil {
				return nil, errors.Wrap(err, "parsing seed")
			}
			if len(b) != len(key) {
				return nil, errors.Newf("seed must be %d bytes, got %d", len(key), len(b))
			}
			copy(key[:], b)
		}
		return intern.SipHasher(intern.SeedFromBytes(key)), nil
	default:
		return nil, errors.Newf("unknown hash function %q", name)
	}
}

func run(w io.Writer, hashName, seed string, loadFactor float64, counts bool, args []string) error {
	hasher, err := hasherFor(hashName, seed)
	if err != nil {
		return err
	}
	if loadFactor <= 0 || loadFactor >= 1 {
		return errors.Newf("load factor %v out of range (0, 1)", loadFactor)
	}

	in := os.Stdin
	switch len(args) {
	case 0:
	case 1:
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrapf(err, "opening %s", args[0])
		}
		defer f.Close()
		in = f
	default:
		return errors.New("at most one input file may be given")
	}

	var m fixkey.Table[counter, *counter]
	m.Build(fixkey.WithLoadFactor[counter](loadFactor))
	defer m.Demolish()

	r, err := load(&m, intern.NewInterner(hasher), in)
	if err != nil {
		return err
	}
	r.Stats = m.Stats()
	if counts {
		m.All(func(c *counter) bool {
			r.Counts = append(r.Counts, keyCount{Key: c.key.String(), Count: c.count})
			return true
		})
	}

	b, err := sonnet.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func load(m *fixkey.Table[counter, *counter], in *intern.Interner, r io.Reader) (report, error) {
	var rep report
	s := bufio.NewScanner(r)
	for s.Scan() {
		rep.Lines++
		key := in.Intern(s.Text())
		c := m.LvalueFetch(key)
		if c.key == nil {
			c.key = key
		}
		c.count++
	}
	if err := s.Err(); err != nil {
		return rep, errors.Wrap(err, "reading keys")
	}
	return rep, nil
}
