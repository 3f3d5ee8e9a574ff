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
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var bigTen = big.NewInt(10)

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

// ToMinorUnits converts a human readable decimal amount into the asset's
// integer minor unit. Fractional digits beyond decimals are truncated.
func ToMinorUnits(amount string, decimals int32) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if decimals < 0 {
		return nil, fmt.Errorf("%w: negative decimals %d", ErrInvalidAmount, decimals)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative value %q", ErrInvalidAmount, amount)
	}
	return d.Shift(decimals).BigInt(), nil
}

// ToMajorUnits renders an integer minor unit amount as a decimal string
// without trailing zeros
func ToMajorUnits(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}

// ParseMinor parses a base-10 integer string in minor units. Negative values
// are rejected.
func ParseMinor(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidAmount, s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// Rescale moves v from one decimal scale to another, flooring when
// precision is lost
func Rescale(v *big.Int, from, to int32) *big.Int {
	ret := new(big.Int).Set(v)
	switch {
	case to > from:
		ret.Mul(ret, pow10(to-from))
	case to < from:
		ret.Div(ret, pow10(from-to))
	}
	return ret
}
