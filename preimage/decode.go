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

package preimage

import (
	"fmt"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/beneficiary"
	"github.com/polkassembly/govproposer/ss58"
)

// DecodedCall is one of SpendLocalCall, SpendCall or BatchCall
type DecodedCall interface {
	isDecodedCall()
}

// SpendLocalCall is a decoded Treasury.spend_local
type SpendLocalCall struct {
	Amount    *big.Int
	AccountId []byte
}

// SpendCall is a decoded Treasury.spend. Amount is in the asset's on-chain
// decimals.
type SpendCall struct {
	AssetChain  Location
	AssetId     Location
	Amount      *big.Int
	Beneficiary Location
	ValidFrom   *uint32
}

// BatchCall is a decoded Utility.batch or Utility.batch_all of spends
type BatchCall struct {
	Atomic bool
	Calls  []DecodedCall
}

func (SpendLocalCall) isDecodedCall() {}
func (SpendCall) isDecodedCall()      {}
func (BatchCall) isDecodedCall()      {}

// DecodeCall decodes a treasury spend call, or a batch of them. Every byte
// of data must be consumed.
func DecodeCall(data []byte, rt Runtime) (DecodedCall, error) {
	if rt.Calls == nil {
		return nil, fmt.Errorf("%w: no call table", ErrMetadataUnavailable)
	}
	r := newCallReader(data)
	call, err := decodeCall(r, rt, true)
	if err != nil {
		return nil, err
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedCall, r.remaining())
	}
	return call, nil
}

func decodeCall(r *callReader, rt Runtime, allowBatch bool) (DecodedCall, error) {
	idx, err := r.fixed(2)
	if err != nil {
		return nil, err
	}
	name, err := rt.Calls.CallName(types.CallIndex{SectionIndex: idx[0], MethodIndex: idx[1]})
	if err != nil {
		return nil, err
	}
	switch name {
	case CallTreasurySpendLocal:
		return decodeSpendLocal(r)
	case CallTreasurySpend:
		return decodeSpend(r)
	case CallUtilityBatch, CallUtilityBatchAll:
		if !allowBatch {
			return nil, fmt.Errorf("%w: nested batch", ErrUnsupportedCall)
		}
		count, err := r.compactUint32()
		if err != nil {
			return nil, err
		}
		if int(count) > r.remaining() {
			return nil, fmt.Errorf("%w: batch of %d calls exceeds data", ErrMalformedCall, count)
		}
		batch := BatchCall{Atomic: name == CallUtilityBatchAll}
		for range count {
			inner, err := decodeCall(r, rt, false)
			if err != nil {
				return nil, err
			}
			batch.Calls = append(batch.Calls, inner)
		}
		return batch, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCall, name)
	}
}

func decodeSpendLocal(r *callReader) (SpendLocalCall, error) {
	var ret SpendLocalCall
	var err error
	if ret.Amount, err = r.compact(); err != nil {
		return ret, err
	}
	tag, err := r.byte()
	if err != nil {
		return ret, err
	}
	if tag != 0 {
		return ret, fmt.Errorf("%w: beneficiary is not MultiAddress::Id", ErrUnsupportedCall)
	}
	ret.AccountId, err = r.fixed(32)
	return ret, err
}

func decodeSpend(r *callReader) (SpendCall, error) {
	var ret SpendCall
	var err error
	if ret.AssetChain, ret.AssetId, err = r.versionedLocatableAsset(); err != nil {
		return ret, err
	}
	if ret.Amount, err = r.compact(); err != nil {
		return ret, err
	}
	if ret.Beneficiary, err = r.versionedLocation(); err != nil {
		return ret, err
	}
	ret.ValidFrom, err = r.optionU32()
	return ret, err
}

// Decode decodes data against the builder's runtime
func (b *Builder) Decode(data []byte) (DecodedCall, error) {
	return DecodeCall(data, b.runtime)
}

// Beneficiaries rebuilds the beneficiary set paid by a decoded call. All
// transfers must be in the same asset. Amounts are returned in the asset's
// registry decimals.
func (b *Builder) Beneficiaries(call DecodedCall) (beneficiary.Set, asset.Asset, error) {
	return Beneficiaries(call, b.runtime, b.registry)
}

// Beneficiaries is Builder.Beneficiaries for an explicit runtime and registry
func Beneficiaries(
	call DecodedCall,
	rt Runtime,
	reg *asset.Registry,
) (beneficiary.Set, asset.Asset, error) {
	var members []DecodedCall
	switch c := call.(type) {
	case BatchCall:
		members = c.Calls
	case nil:
		return nil, asset.Asset{}, fmt.Errorf("%w: no call", ErrUnsupportedCall)
	default:
		members = []DecodedCall{c}
	}
	if len(members) == 0 {
		return nil, asset.Asset{}, fmt.Errorf("%w: empty batch", ErrUnsupportedCall)
	}
	var (
		set    beneficiary.Set
		shared asset.Asset
	)
	for i, m := range members {
		a, ben, err := spendBeneficiary(m, rt, reg)
		if err != nil {
			return nil, asset.Asset{}, err
		}
		if i == 0 {
			shared = a
		} else if a.Kind != shared.Kind {
			return nil, asset.Asset{}, fmt.Errorf(
				"%w: batch mixes %s and %s",
				ErrUnsupportedCall,
				shared.Symbol,
				a.Symbol,
			)
		}
		set = append(set, ben)
	}
	return set, shared, nil
}

func spendBeneficiary(
	call DecodedCall,
	rt Runtime,
	reg *asset.Registry,
) (asset.Asset, beneficiary.Beneficiary, error) {
	switch c := call.(type) {
	case SpendLocalCall:
		native := reg.Native()
		addr, err := ss58.Encode(c.AccountId, rt.SS58Prefix)
		if err != nil {
			return asset.Asset{}, beneficiary.Beneficiary{}, fmt.Errorf("%w: %w", ErrMalformedCall, err)
		}
		return native, beneficiary.Beneficiary{
			Address: addr,
			Amount:  c.Amount.String(),
			Asset:   native.Kind,
		}, nil
	case SpendCall:
		a, err := resolveAsset(c, rt, reg)
		if err != nil {
			return asset.Asset{}, beneficiary.Beneficiary{}, err
		}
		if c.Beneficiary.Parents != 0 ||
			len(c.Beneficiary.Interior) != 1 ||
			c.Beneficiary.Interior[0].Kind != JunctionAccountId32 {
			return asset.Asset{}, beneficiary.Beneficiary{}, fmt.Errorf(
				"%w: beneficiary is not a local account",
				ErrUnsupportedCall,
			)
		}
		addr, err := ss58.Encode(c.Beneficiary.Interior[0].AccountId, rt.SS58Prefix)
		if err != nil {
			return asset.Asset{}, beneficiary.Beneficiary{}, fmt.Errorf("%w: %w", ErrMalformedCall, err)
		}
		amount := asset.Rescale(c.Amount, a.ChainDecimals, a.Decimals)
		return a, beneficiary.Beneficiary{
			Address: addr,
			Amount:  amount.String(),
			Asset:   a.Kind,
		}, nil
	default:
		return asset.Asset{}, beneficiary.Beneficiary{}, fmt.Errorf(
			"%w: %T inside batch",
			ErrUnsupportedCall,
			call,
		)
	}
}

func resolveAsset(c SpendCall, rt Runtime, reg *asset.Registry) (asset.Asset, error) {
	chain := c.AssetChain
	if chain.Parents != 0 ||
		len(chain.Interior) != 1 ||
		chain.Interior[0].Kind != JunctionParachain ||
		chain.Interior[0].Parachain != rt.AssetHubParaID {
		return asset.Asset{}, fmt.Errorf("%w: asset is not on Asset Hub", ErrUnsupportedCall)
	}
	id := c.AssetId
	if id.Parents == 1 && len(id.Interior) == 0 {
		return reg.Native(), nil
	}
	if id.Parents != 0 ||
		len(id.Interior) != 2 ||
		id.Interior[0].Kind != JunctionPalletInstance ||
		id.Interior[0].PalletInstance != rt.AssetsPalletInstance ||
		id.Interior[1].Kind != JunctionGeneralIndex ||
		!id.Interior[1].GeneralIndex.IsUint64() {
		return asset.Asset{}, fmt.Errorf("%w: unrecognised asset location", ErrUnsupportedCall)
	}
	a, ok := reg.ByGeneralIndex(id.Interior[1].GeneralIndex.Uint64())
	if !ok {
		return asset.Asset{}, fmt.Errorf(
			"%w: %w: general index %s",
			ErrUnsupportedCall,
			asset.ErrUnknownAsset,
			id.Interior[1].GeneralIndex,
		)
	}
	return a, nil
}
