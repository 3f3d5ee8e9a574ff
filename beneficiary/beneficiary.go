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

// Package beneficiary models the payees of a treasury proposal as a reducer
// driven set of (address, amount, asset) entries.
package beneficiary

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/polkassembly/govproposer/asset"
)

// Beneficiary is one payee of a treasury spend. Amount is a base-10 integer
// in the minor unit of Asset; the empty Asset is the native token.
type Beneficiary struct {
	Address string     `json:"address"`
	Amount  string     `json:"amount"`
	Asset   asset.Kind `json:"assetKind,omitempty"`
}

// Set is an ordered list of beneficiaries
type Set []Beneficiary

// Clone returns a copy of the set that shares no backing array with s
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

// Asset returns the asset kind shared by the set and whether the set is
// uniform. An empty set is uniform on the native token.
func (s Set) Asset() (asset.Kind, bool) {
	if len(s) == 0 {
		return asset.KindNative, true
	}
	kind := s[0].Asset
	for _, b := range s[1:] {
		if b.Asset != kind {
			return kind, false
		}
	}
	return kind, true
}

// Total returns the sum of all amounts. Every amount must parse as a
// non-negative integer; empty amounts count as zero.
func Total(s Set) (*big.Int, error) {
	total := new(big.Int)
	for i, b := range s {
		if b.Amount == "" {
			continue
		}
		v, err := asset.ParseMinor(b.Amount)
		if err != nil {
			return nil, fmt.Errorf("beneficiary %d: %w", i, err)
		}
		total.Add(total, v)
	}
	return total, nil
}
