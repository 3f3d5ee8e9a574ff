// Copyright 2026 Blink Labs Software
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

package track

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPolkadot(t *testing.T) {
	tbl := PolkadotTracks()
	testDefs := []struct {
		total    string
		expected string
	}{
		{"0", "small_tipper"},
		{"1000", "small_tipper"},
		{"1000000000000", "small_tipper"},
		{"2500000000000", "small_tipper"},
		{"2500000000001", "big_tipper"},
		{"100000000000000", "small_spender"},
		{"5000000000000000", "big_spender"},
		{"90000000000000000", "treasurer"},
	}
	for _, testDef := range testDefs {
		total, ok := new(big.Int).SetString(testDef.total, 10)
		require.True(t, ok)
		got, err := Select(total, tbl)
		require.NoError(t, err, "total %s", testDef.total)
		assert.Equal(t, testDef.expected, got.Name, "total %s", testDef.total)
		assert.True(t, got.Allows(total))
	}
}

func TestSelectNoEligibleTrack(t *testing.T) {
	total, _ := new(big.Int).SetString("100000000000000001", 10)
	_, err := Select(total, PolkadotTracks())
	require.ErrorIs(t, err, ErrNoEligibleTrack)

	// Kusama has an unbounded treasurer track
	got, err := Select(total, KusamaTracks())
	require.NoError(t, err)
	assert.Equal(t, "treasurer", got.Name)
	assert.True(t, got.Unbounded())

	_, err = Select(big.NewInt(1), Table{{ID: 0, Name: "root", Group: "Main"}})
	require.ErrorIs(t, err, ErrNoEligibleTrack)
}

func TestSelectRejectsNegative(t *testing.T) {
	_, err := Select(big.NewInt(-1), PolkadotTracks())
	require.Error(t, err)
	_, err = Select(nil, PolkadotTracks())
	require.Error(t, err)
}

func TestSelectTieBreakKeepsDeclarationOrder(t *testing.T) {
	tbl := Table{
		{ID: 7, Name: "first", Group: GroupTreasury, MaxSpend: big.NewInt(100)},
		{ID: 3, Name: "second", Group: GroupTreasury, MaxSpend: big.NewInt(100)},
		{ID: 1, Name: "open", Group: GroupTreasury},
		{ID: 2, Name: "tiny", Group: GroupTreasury, MaxSpend: big.NewInt(10)},
	}
	got, err := Select(big.NewInt(50), tbl)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), got.ID)

	got, err = Select(big.NewInt(5), tbl)
	require.NoError(t, err)
	assert.Equal(t, "tiny", got.Name)

	got, err = Select(big.NewInt(101), tbl)
	require.NoError(t, err)
	assert.Equal(t, "open", got.Name)
}

func TestSelectIsMonotonic(t *testing.T) {
	tbl := PolkadotTracks()
	var prev *Track
	step, _ := new(big.Int).SetString("250000000000", 10)
	total := new(big.Int)
	for range 100 {
		got, err := Select(total, tbl)
		if err != nil {
			require.ErrorIs(t, err, ErrNoEligibleTrack)
			break
		}
		if prev != nil {
			assert.GreaterOrEqual(t, compareMaxSpend(got, *prev), 0)
		}
		prev = &got
		total = new(big.Int).Add(new(big.Int).Lsh(total, 1), step)
	}
	require.NotNil(t, prev)
}

func TestParseMaxSpend(t *testing.T) {
	v, err := ParseMaxSpend("unbounded")
	require.NoError(t, err)
	assert.Nil(t, v)
	v, err = ParseMaxSpend("")
	require.NoError(t, err)
	assert.Nil(t, v)
	v, err = ParseMaxSpend("12345")
	require.NoError(t, err)
	assert.Equal(t, "12345", v.String())
	_, err = ParseMaxSpend("lots")
	require.Error(t, err)
}

func TestTableLookups(t *testing.T) {
	tbl := PolkadotTracks()
	tr, ok := tbl.ByID(33)
	require.True(t, ok)
	assert.Equal(t, "MediumSpender", tr.Origin)
	_, ok = tbl.ByID(99)
	assert.False(t, ok)
	assert.Len(t, tbl.Treasury(), 6)
	assert.Contains(t, tr.String(), "medium_spender")

	_, err := TableForNetwork("polkadot")
	require.NoError(t, err)
	_, err = TableForNetwork("rococo")
	require.Error(t, err)
}
