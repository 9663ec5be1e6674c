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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"
)

func writeKeys(t *testing.T, keys []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(keys, "\n")+"\n"), 0o644))
	return path
}

func TestRun(t *testing.T) {
	var keys []string
	for i := 0; i < 100; i++ {
		keys = append(keys, strconv.Itoa(i%40))
	}
	path := writeKeys(t, keys)

	for _, hash := range []string{"xxhash", "siphash"} {
		t.Run(hash, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, run(&out, hash, "", 0.75, true, []string{path}))

			var r report
			require.NoError(t, sonnet.Unmarshal(out.Bytes(), &r))
			require.Equal(t, 100, r.Lines)
			require.Equal(t, 40, r.Stats.Items)
			require.LessOrEqual(t, r.Stats.Items, r.Stats.MaxItems)
			require.Len(t, r.Counts, 40)

			total := 0
			for _, c := range r.Counts {
				total += c.Count
			}
			require.Equal(t, 100, total)
		})
	}
}

func TestRunErrors(t *testing.T) {
	path := writeKeys(t, []string{"a"})
	var out bytes.Buffer
	require.ErrorContains(t, run(&out, "md5", "", 0.75, false, []string{path}), "unknown hash function")
	require.ErrorContains(t, run(&out, "siphash", "zz", 0.75, false, []string{path}), "parsing seed")
	require.ErrorContains(t, run(&out, "siphash", "0011", 0.75, false, []string{path}), "seed must be 16 bytes")
	require.ErrorContains(t, run(&out, "xxhash", "", 1.5, false, []string{path}), "out of range")
	require.ErrorContains(t, run(&out, "xxhash", "", 0.75, false, []string{path, path}), "at most one")
	require.Error(t, run(&out, "xxhash", "", 0.75, false, []string{filepath.Join(t.TempDir(), "missing")}))
	require.Zero(t, out.Len())
}
