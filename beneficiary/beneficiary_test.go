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

package beneficiary

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/ss58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress(t *testing.T, seed byte) string {
	t.Helper()
	addr, err := ss58.Encode(bytes.Repeat([]byte{seed}, 32), ss58.PolkadotPrefix)
	require.NoError(t, err)
	return addr
}

func sumAmounts(t *testing.T, s Set) *big.Int {
	t.Helper()
	total := new(big.Int)
	for _, b := range s {
		v, ok := new(big.Int).SetString(b.Amount, 10)
		require.True(t, ok, "amount %q", b.Amount)
		total.Add(total, v)
	}
	return total
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	orig := Set{{Address: "a", Amount: "1"}}
	next := Reduce(orig, UpdateAmount{Index: 0, Amount: "5"})
	assert.Equal(t, "1", orig[0].Amount)
	assert.Equal(t, "5", next[0].Amount)
}

func TestReduceActions(t *testing.T) {
	alice := testAddress(t, 1)
	bob := testAddress(t, 2)

	s := ReduceAll(Set{},
		Add{},
		UpdateAddress{Index: 0, Address: alice},
		UpdateAmount{Index: 0, Amount: "500"},
		Add{},
		UpdateAddress{Index: 1, Address: bob},
		UpdateAmount{Index: 1, Amount: "500"},
	)
	require.Len(t, s, 2)
	assert.Equal(t, Beneficiary{Address: alice, Amount: "500"}, s[0])
	assert.Equal(t, Beneficiary{Address: bob, Amount: "500"}, s[1])

	// Out of range updates are ignored
	assert.Equal(t, s, Reduce(s, UpdateAmount{Index: 5, Amount: "1"}))
	assert.Equal(t, s, Reduce(s, UpdateAddress{Index: -1, Address: alice}))

	assert.Empty(t, Reduce(s, RemoveAll{}))

	one := Reduce(s, ReplaceAllWithOne{Address: bob, Amount: "7"})
	assert.Equal(t, Set{{Address: bob, Amount: "7"}}, one)

	replaced := Reduce(s, ReplaceState{State: Set{{Address: alice, Amount: "9", Asset: asset.KindUSDT}}})
	assert.Equal(t, Set{{Address: alice, Amount: "9", Asset: asset.KindUSDT}}, replaced)
}

func TestTotalIsConservedUnderEdits(t *testing.T) {
	alice := testAddress(t, 1)
	bob := testAddress(t, 2)
	sequences := [][]Action{
		{Add{}, UpdateAmount{Index: 0, Amount: "1000"}},
		{Add{}, Add{}, UpdateAmount{Index: 0, Amount: "500"}, UpdateAmount{Index: 1, Amount: "500"}},
		{Add{}, UpdateAmount{Index: 0, Amount: "3"}, UpdateAddress{Index: 0, Address: alice}, Add{}, UpdateAmount{Index: 1, Amount: "4"}, UpdateAddress{Index: 1, Address: bob}},
		{Add{}, UpdateAmount{Index: 0, Amount: "10"}, RemoveAll{}, Add{}, UpdateAmount{Index: 0, Amount: "2"}},
		{ReplaceAllWithOne{Address: alice, Amount: "123456789012345678901234567890"}, Add{}, UpdateAmount{Index: 1, Amount: "1"}},
	}
	for i, seq := range sequences {
		s := ReduceAll(Set{}, seq...)
		total, err := Total(s)
		require.NoError(t, err, "sequence %d", i)
		assert.Equal(t, sumAmounts(t, s).String(), total.String(), "sequence %d", i)
	}
}

func TestTotal(t *testing.T) {
	total, err := Total(Set{{Amount: "500"}, {Amount: "500"}, {Amount: ""}})
	require.NoError(t, err)
	assert.Equal(t, "1000", total.String())

	_, err = Total(Set{{Amount: "-1"}})
	require.ErrorIs(t, err, asset.ErrInvalidAmount)
}

func TestSelectAssetCollapsesNonSplittableAssets(t *testing.T) {
	reg := asset.PolkadotRegistry()
	alice := testAddress(t, 1)
	bob := testAddress(t, 2)
	s := Set{{Address: alice, Amount: "1"}, {Address: bob, Amount: "2"}}

	usdt, _ := reg.ByKind(asset.KindUSDT)
	stamped := Reduce(s, SelectAsset{Asset: usdt})
	require.Len(t, stamped, 2)
	for _, b := range stamped {
		assert.Equal(t, asset.KindUSDT, b.Asset)
	}

	ded, _ := reg.ByKind(asset.KindDED)
	assert.True(t, RequiresSingleBeneficiary(ded))
	assert.False(t, RequiresSingleBeneficiary(usdt))
	assert.False(t, RequiresSingleBeneficiary(reg.Native()))
	collapsed := Reduce(s, SelectAsset{Asset: ded})
	assert.Equal(t, Set{{Address: alice, Amount: "1", Asset: asset.KindDED}}, collapsed)

	fromEmpty := Reduce(Set{}, SelectAsset{Asset: ded})
	assert.Equal(t, Set{{Amount: "0", Asset: asset.KindDED}}, fromEmpty)

	// New rows inherit the set's asset
	added := Reduce(stamped, Add{})
	assert.Equal(t, asset.KindUSDT, added[2].Asset)
}

func TestValidate(t *testing.T) {
	reg := asset.PolkadotRegistry()
	alice := testAddress(t, 1)
	bob := testAddress(t, 2)

	require.NoError(t, Validate(Set{{Address: alice, Amount: "1"}, {Address: bob, Amount: "2"}}, ss58.PolkadotPrefix, reg))

	err := Validate(Set{}, ss58.PolkadotPrefix, reg)
	require.ErrorIs(t, err, ErrEmptySet)

	kusamaAddr, err := ss58.Encode(bytes.Repeat([]byte{3}, 32), ss58.KusamaPrefix)
	require.NoError(t, err)
	err = Validate(Set{
		{Address: kusamaAddr, Amount: "1"},
		{Address: "", Amount: "0"},
		{Address: alice, Amount: "abc", Asset: asset.KindUSDT},
	}, ss58.PolkadotPrefix, reg)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 5)
	assert.ErrorIs(t, err, ss58.ErrWrongNetwork)
	assert.ErrorIs(t, err, ErrMixedAsset)
	assert.ErrorIs(t, err, asset.ErrInvalidAmount)

	err = Validate(Set{{Address: alice, Amount: "1", Asset: "bogus"}}, ss58.PolkadotPrefix, reg)
	assert.ErrorIs(t, err, asset.ErrUnknownAsset)
}
