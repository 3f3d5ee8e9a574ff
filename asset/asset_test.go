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

package asset

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	testDefs := []struct {
		amount   string
		decimals int32
		expected string
	}{
		{"1", 10, "10000000000"},
		{"0.5", 10, "5000000000"},
		{"123.456", 6, "123456000"},
		{"0.0000001", 6, "0"},
		{"1.2345678", 6, "1234567"},
		{"100", 0, "100"},
		{" 42 ", 2, "4200"},
		{"1e3", 2, "100000"},
		{"0", 12, "0"},
	}
	for _, testDef := range testDefs {
		v, err := ToMinorUnits(testDef.amount, testDef.decimals)
		require.NoError(t, err, "amount %q", testDef.amount)
		assert.Equal(t, testDef.expected, v.String(), "amount %q", testDef.amount)
	}
}

func TestToMinorUnitsErrors(t *testing.T) {
	for _, amount := range []string{"", "abc", "-1", "1.2.3"} {
		_, err := ToMinorUnits(amount, 10)
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %q", amount)
	}
}

func TestToMajorUnits(t *testing.T) {
	assert.Equal(t, "1", ToMajorUnits(big.NewInt(10_000_000_000), 10))
	assert.Equal(t, "0.5", ToMajorUnits(big.NewInt(5_000_000_000), 10))
	assert.Equal(t, "123.456", ToMajorUnits(big.NewInt(123_456_000), 6))
	assert.Equal(t, "0", ToMajorUnits(nil, 6))
}

func TestMinorMajorRoundTrip(t *testing.T) {
	for _, s := range []string{"0.0001", "1", "99999999.123456", "3.14"} {
		minor, err := ToMinorUnits(s, 6)
		require.NoError(t, err)
		assert.Equal(t, s, ToMajorUnits(minor, 6))
	}
}

func TestParseMinor(t *testing.T) {
	v, err := ParseMinor("1000000000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000", v.String())
	for _, s := range []string{"", "1.5", "-3", "0x10"} {
		_, err := ParseMinor(s)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", s)
	}
}

func TestRescale(t *testing.T) {
	assert.Equal(t, "1000000", Rescale(big.NewInt(1), 0, 6).String())
	assert.Equal(t, "1", Rescale(big.NewInt(1_999_999), 6, 0).String())
	assert.Equal(t, "77", Rescale(big.NewInt(77), 6, 6).String())
}

func TestParsePrice(t *testing.T) {
	p, ok := ParsePrice("4.25")
	require.True(t, ok)
	assert.Equal(t, "425", p.Num.String())
	assert.Equal(t, "100", p.Den.String())

	p, ok = ParsePrice("12")
	require.True(t, ok)
	assert.Equal(t, "12", p.Num.String())
	assert.Equal(t, "1", p.Den.String())

	for _, s := range []string{"", "n/a", "0", "-1.5"} {
		_, ok := ParsePrice(s)
		assert.False(t, ok, "price %q", s)
	}
}

func TestConvertToCommonValuation(t *testing.T) {
	reg := PolkadotRegistry()
	dot := reg.Native()
	usdt, ok := reg.ByKind(KindUSDT)
	require.True(t, ok)
	ded, ok := reg.ByKind(KindDED)
	require.True(t, ok)
	prices := NewPriceTable(map[Kind]string{
		KindNative: "4",
		KindDED:    "0.0001",
	})

	// 100 USDT at 4 USD/DOT is 25 DOT
	got := ConvertToCommonValuation(big.NewInt(100_000_000), usdt, dot, prices)
	assert.Equal(t, "250000000000", got.String())

	// 10 DOT is 40 USDT
	got = ConvertToCommonValuation(big.NewInt(100_000_000_000), dot, usdt, prices)
	assert.Equal(t, "40000000", got.String())

	// Floors rather than rounding: 1 minor USDT unit is 0.25 DOT minor units
	got = ConvertToCommonValuation(big.NewInt(1), usdt, dot, NewPriceTable(map[Kind]string{KindNative: "40000"}))
	assert.Equal(t, "0", got.String())

	// 1,000,000 DED at 0.0001 USD is 100 USD, or 25 DOT
	got = ConvertToCommonValuation(new(big.Int).Mul(big.NewInt(1_000_000), pow10(10)), ded, dot, prices)
	assert.Equal(t, "250000000000", got.String())
}

func TestConvertToCommonValuationUnknownPrice(t *testing.T) {
	reg := PolkadotRegistry()
	usdt, _ := reg.ByKind(KindUSDT)
	ded, _ := reg.ByKind(KindDED)
	prices := NewPriceTable(map[Kind]string{KindNative: "not-a-number"})
	assert.Equal(t, 0, ConvertToCommonValuation(big.NewInt(5), usdt, reg.Native(), prices).Sign())
	assert.Equal(t, 0, ConvertToCommonValuation(big.NewInt(5), ded, usdt, prices).Sign())
	assert.Equal(t, 0, ConvertToCommonValuation(nil, ded, usdt, prices).Sign())
}

func TestUSDValue(t *testing.T) {
	reg := PolkadotRegistry()
	prices := NewPriceTable(map[Kind]string{KindNative: "4.5"})
	v, ok := USDValue(big.NewInt(15_000_000_000), reg.Native(), prices)
	require.True(t, ok)
	assert.Equal(t, "6.75", v)

	usdc, _ := reg.ByKind(KindUSDC)
	v, ok = USDValue(big.NewInt(1_234_567), usdc, prices)
	require.True(t, ok)
	assert.Equal(t, "1.23", v)

	ded, _ := reg.ByKind(KindDED)
	_, ok = USDValue(big.NewInt(1), ded, prices)
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	reg := PolkadotRegistry()
	assert.Equal(t, "DOT", reg.Native().Symbol)
	usdc, ok := reg.ByGeneralIndex(1337)
	require.True(t, ok)
	assert.Equal(t, KindUSDC, usdc.Kind)
	assert.Equal(t, int32(6), usdc.ChainDecimals)
	_, ok = reg.ByGeneralIndex(0)
	assert.False(t, ok)
	all := reg.All()
	require.Len(t, all, 4)
	assert.True(t, all[0].IsNative())

	_, err := NewRegistry(Asset{Kind: KindUSDT, GeneralIndex: 1})
	require.Error(t, err)
	_, err = NewRegistry(
		Asset{Kind: KindNative},
		Asset{Kind: KindUSDT, GeneralIndex: 1},
		Asset{Kind: KindUSDC, GeneralIndex: 1},
	)
	require.Error(t, err)

	_, err = RegistryForNetwork("westend")
	require.Error(t, err)
}
