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

import "github.com/polkassembly/govproposer/asset"

// Action is a transition applied to a Set by Reduce
type Action interface {
	apply(Set) Set
}

// UpdateAddress sets the address of the entry at Index
type UpdateAddress struct {
	Index   int
	Address string
}

// UpdateAmount sets the amount of the entry at Index
type UpdateAmount struct {
	Index  int
	Amount string
}

// Add appends an empty, zero amount entry carrying the set's asset
type Add struct{}

// RemoveAll empties the set
type RemoveAll struct{}

// ReplaceAllWithOne replaces the set with a single entry
type ReplaceAllWithOne struct {
	Address string
	Amount  string
}

// ReplaceState swaps in a whole new set, for example one reconstructed from
// an existing preimage
type ReplaceState struct {
	State Set
}

// SelectAsset stamps Asset onto every entry. Assets that cannot be split
// between several payees collapse the set to its first entry.
type SelectAsset struct {
	Asset asset.Asset
}

// Reduce applies a to s and returns the new state. s is never modified.
func Reduce(s Set, a Action) Set {
	if a == nil {
		return s.Clone()
	}
	return a.apply(s.Clone())
}

// ReduceAll applies actions in order
func ReduceAll(s Set, actions ...Action) Set {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func (a UpdateAddress) apply(s Set) Set {
	if a.Index < 0 || a.Index >= len(s) {
		return s
	}
	s[a.Index].Address = a.Address
	return s
}

func (a UpdateAmount) apply(s Set) Set {
	if a.Index < 0 || a.Index >= len(s) {
		return s
	}
	s[a.Index].Amount = a.Amount
	return s
}

func (Add) apply(s Set) Set {
	kind, _ := s.Asset()
	return append(s, Beneficiary{Amount: "0", Asset: kind})
}

func (RemoveAll) apply(Set) Set {
	return Set{}
}

func (a ReplaceAllWithOne) apply(s Set) Set {
	kind, _ := s.Asset()
	return Set{{Address: a.Address, Amount: a.Amount, Asset: kind}}
}

func (a ReplaceState) apply(Set) Set {
	return a.State.Clone()
}

func (a SelectAsset) apply(s Set) Set {
	if RequiresSingleBeneficiary(a.Asset) {
		s = CollapseToSingleBeneficiary(s)
	}
	for i := range s {
		s[i].Asset = a.Asset.Kind
	}
	return s
}

// RequiresSingleBeneficiary reports whether spends of a must go to exactly
// one beneficiary. Only the native token and stablecoins can be split.
func RequiresSingleBeneficiary(a asset.Asset) bool {
	return !a.IsNative() && !a.Stablecoin
}

// CollapseToSingleBeneficiary keeps only the first entry of s. An empty set
// becomes a single empty entry.
func CollapseToSingleBeneficiary(s Set) Set {
	if len(s) == 0 {
		return Set{{Amount: "0"}}
	}
	return Set{s[0]}
}
