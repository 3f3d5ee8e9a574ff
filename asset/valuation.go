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

	"github.com/shopspring/decimal"
)

// Price is the USD value of one major unit of an asset, kept as a rational
// so that valuations never touch floating point
type Price struct {
	Num *big.Int
	Den *big.Int
}

// Valid reports whether the price is usable for conversions
func (p Price) Valid() bool {
	return p.Num != nil && p.Den != nil && p.Num.Sign() > 0 && p.Den.Sign() > 0
}

// ParsePrice parses a decimal price string such as "4.213". Missing,
// non-numeric and non-positive prices are reported as not ok.
func ParsePrice(s string) (Price, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return Price{}, false
	}
	num := new(big.Int).Set(d.Coefficient())
	den := big.NewInt(1)
	if exp := d.Exponent(); exp >= 0 {
		num.Mul(num, pow10(exp))
	} else {
		den = pow10(-exp)
	}
	return Price{Num: num, Den: den}, true
}

// PriceTable maps asset kinds to their current USD price
type PriceTable map[Kind]Price

// NewPriceTable builds a table from decimal price strings. Entries that do
// not parse are dropped, leaving the asset without a known price.
func NewPriceTable(prices map[Kind]string) PriceTable {
	ret := make(PriceTable, len(prices))
	for k, v := range prices {
		if p, ok := ParsePrice(v); ok {
			ret[k] = p
		}
	}
	return ret
}

// Lookup returns the price for an asset. Stablecoins fall back to a price of
// one when the feed has no entry for them.
func (t PriceTable) Lookup(a Asset) (Price, bool) {
	if p, ok := t[a.Kind]; ok && p.Valid() {
		return p, true
	}
	if a.Stablecoin {
		return Price{Num: big.NewInt(1), Den: big.NewInt(1)}, true
	}
	return Price{}, false
}

// ConvertToCommonValuation expresses amount (minor units of from) in minor
// units of to, using the USD prices of both assets. The result is floored.
// A zero result is returned when either price is unknown; callers must treat
// that as "unknown", not as "free".
func ConvertToCommonValuation(
	amount *big.Int,
	from Asset,
	to Asset,
	prices PriceTable,
) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int)
	}
	if from.Kind == to.Kind {
		return Rescale(amount, from.Decimals, to.Decimals)
	}
	pf, ok := prices.Lookup(from)
	if !ok {
		return new(big.Int)
	}
	pt, ok := prices.Lookup(to)
	if !ok {
		return new(big.Int)
	}
	// amount * pf * 10^to / (pt * 10^from)
	num := new(big.Int).Mul(amount, pf.Num)
	num.Mul(num, pt.Den)
	num.Mul(num, pow10(to.Decimals))
	den := new(big.Int).Mul(pf.Den, pt.Num)
	den.Mul(den, pow10(from.Decimals))
	return num.Div(num, den)
}

// USDValue returns the USD value of amount (minor units of a), rounded down
// to cents. ok is false when the price is unknown.
func USDValue(amount *big.Int, a Asset, prices PriceTable) (string, bool) {
	p, ok := prices.Lookup(a)
	if !ok || amount == nil {
		return "", false
	}
	cents := new(big.Int).Mul(amount, p.Num)
	cents.Mul(cents, big.NewInt(100))
	cents.Div(cents, new(big.Int).Mul(p.Den, pow10(a.Decimals)))
	return decimal.NewFromBigInt(cents, -2).StringFixed(2), true
}
