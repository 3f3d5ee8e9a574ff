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

// Package asset describes the fungible assets a treasury proposal can pay
// out in and converts amounts between their on-chain integer representation,
// human readable decimals and a common valuation.
package asset

import (
	"errors"
	"fmt"
	"slices"
)

// Kind identifies an asset independently of the network it lives on
type Kind string

const (
	KindNative Kind = ""
	KindUSDT   Kind = "usdt"
	KindUSDC   Kind = "usdc"
	KindDED    Kind = "ded"
)

// Asset is a fungible asset known to a network.
type Asset struct {
	Kind   Kind
	Symbol string
	// Decimals is the scale used for amounts held in beneficiary state
	Decimals int32
	// ChainDecimals is the scale of amounts encoded in spend calls. It
	// matches Decimals for every asset registered today.
	ChainDecimals int32
	// GeneralIndex is the asset ID in the Asset Hub assets pallet. It is
	// zero for the native token.
	GeneralIndex uint64
	Stablecoin   bool
}

// IsNative reports whether the asset is the relay chain's native token
func (a Asset) IsNative() bool {
	return a.Kind == KindNative
}

var ErrUnknownAsset = errors.New("unknown asset")

// Registry holds the assets available on a network
type Registry struct {
	native Asset
	assets []Asset
}

// NewRegistry builds a registry. Exactly one native asset must be supplied.
func NewRegistry(assets ...Asset) (*Registry, error) {
	r := &Registry{}
	seenNative := false
	for _, a := range assets {
		if a.ChainDecimals == 0 {
			a.ChainDecimals = a.Decimals
		}
		if a.IsNative() {
			if seenNative {
				return nil, errors.New("registry: more than one native asset")
			}
			seenNative = true
			r.native = a
		} else {
			if a.GeneralIndex == 0 {
				return nil, fmt.Errorf(
					"registry: asset %q has no general index",
					a.Kind,
				)
			}
			if _, ok := r.ByKind(a.Kind); ok {
				return nil, fmt.Errorf("registry: duplicate asset %q", a.Kind)
			}
			if _, ok := r.ByGeneralIndex(a.GeneralIndex); ok {
				return nil, fmt.Errorf(
					"registry: duplicate general index %d",
					a.GeneralIndex,
				)
			}
		}
		r.assets = append(r.assets, a)
	}
	if !seenNative {
		return nil, errors.New("registry: no native asset")
	}
	return r, nil
}

func mustRegistry(assets ...Asset) *Registry {
	r, err := NewRegistry(assets...)
	if err != nil {
		panic(err)
	}
	return r
}

// Native returns the native token
func (r *Registry) Native() Asset {
	return r.native
}

// ByKind looks up an asset by kind. The empty kind resolves to the native
// token.
func (r *Registry) ByKind(kind Kind) (Asset, bool) {
	for _, a := range r.assets {
		if a.Kind == kind {
			return a, true
		}
	}
	return Asset{}, false
}

// ByGeneralIndex looks up a non-native asset by its Asset Hub asset ID
func (r *Registry) ByGeneralIndex(idx uint64) (Asset, bool) {
	for _, a := range r.assets {
		if !a.IsNative() && a.GeneralIndex == idx {
			return a, true
		}
	}
	return Asset{}, false
}

// All returns every registered asset, native first
func (r *Registry) All() []Asset {
	ret := slices.Clone(r.assets)
	slices.SortStableFunc(ret, func(a, b Asset) int {
		switch {
		case a.IsNative() && !b.IsNative():
			return -1
		case !a.IsNative() && b.IsNative():
			return 1
		}
		return 0
	})
	return ret
}

// PolkadotRegistry returns the assets supported on Polkadot
func PolkadotRegistry() *Registry {
	return mustRegistry(
		Asset{Kind: KindNative, Symbol: "DOT", Decimals: 10},
		Asset{
			Kind:         KindUSDT,
			Symbol:       "USDT",
			Decimals:     6,
			GeneralIndex: 1984,
			Stablecoin:   true,
		},
		Asset{
			Kind:         KindUSDC,
			Symbol:       "USDC",
			Decimals:     6,
			GeneralIndex: 1337,
			Stablecoin:   true,
		},
		Asset{Kind: KindDED, Symbol: "DED", Decimals: 10, GeneralIndex: 30},
	)
}

// KusamaRegistry returns the assets supported on Kusama
func KusamaRegistry() *Registry {
	return mustRegistry(
		Asset{Kind: KindNative, Symbol: "KSM", Decimals: 12},
		Asset{
			Kind:         KindUSDT,
			Symbol:       "USDT",
			Decimals:     6,
			GeneralIndex: 1984,
			Stablecoin:   true,
		},
	)
}

// RegistryForNetwork returns the built-in registry for a network name
func RegistryForNetwork(network string) (*Registry, error) {
	switch network {
	case "polkadot":
		return PolkadotRegistry(), nil
	case "kusama":
		return KusamaRegistry(), nil
	default:
		return nil, fmt.Errorf("no asset registry for network %q", network)
	}
}
