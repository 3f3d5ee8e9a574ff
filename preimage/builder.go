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
	"errors"
	"fmt"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/beneficiary"
	"github.com/polkassembly/govproposer/ss58"
	"github.com/polkassembly/govproposer/track"
)

// Builder constructs the runtime calls of a treasury proposal
type Builder struct {
	runtime  Runtime
	registry *asset.Registry
}

// NewBuilder returns a builder for a runtime and its asset registry
func NewBuilder(rt Runtime, reg *asset.Registry) *Builder {
	return &Builder{runtime: rt, registry: reg}
}

// Runtime returns the runtime constants the builder encodes against
func (b *Builder) Runtime() Runtime {
	return b.runtime
}

func (b *Builder) newCall(name string, w *callWriter) (types.Call, error) {
	if b.runtime.Calls == nil {
		return types.Call{}, fmt.Errorf("%w: no call table", ErrMetadataUnavailable)
	}
	args, err := w.bytes()
	if err != nil {
		return types.Call{}, err
	}
	idx, err := b.runtime.Calls.CallIndex(name)
	if err != nil {
		return types.Call{}, err
	}
	return types.Call{CallIndex: idx, Args: types.Args(args)}, nil
}

// SpendLocal pays amount of the native token from the treasury to
// accountId
func (b *Builder) SpendLocal(amount *big.Int, accountId []byte) (types.Call, error) {
	if len(accountId) != 32 {
		return types.Call{}, fmt.Errorf("%w: account id must be 32 bytes", ErrInvalidBeneficiary)
	}
	w := newCallWriter()
	w.compact(amount)
	// MultiAddress::Id
	w.byte(0)
	w.raw(accountId)
	return b.newCall(CallTreasurySpendLocal, w)
}

// Spend pays amount of an Asset Hub asset to accountId. The amount is
// already expressed in the asset's on-chain decimals.
func (b *Builder) Spend(
	a asset.Asset,
	amount *big.Int,
	accountId []byte,
	validFrom *uint32,
) (types.Call, error) {
	if len(accountId) != 32 {
		return types.Call{}, fmt.Errorf("%w: account id must be 32 bytes", ErrInvalidBeneficiary)
	}
	w := newCallWriter()
	w.versionedLocatableAsset(b.assetChain(), b.assetId(a))
	w.compact(amount)
	w.versionedLocation(Location{Interior: []Junction{accountJunction(accountId)}})
	if validFrom == nil {
		w.byte(0)
	} else {
		w.byte(1)
		w.u32(*validFrom)
	}
	return b.newCall(CallTreasurySpend, w)
}

func (b *Builder) assetChain() Location {
	return Location{Interior: []Junction{parachainJunction(b.runtime.AssetHubParaID)}}
}

func (b *Builder) assetId(a asset.Asset) Location {
	if a.IsNative() {
		// The relay token as seen from Asset Hub
		return Location{Parents: 1}
	}
	return Location{Interior: []Junction{
		{Kind: JunctionPalletInstance, PalletInstance: b.runtime.AssetsPalletInstance},
		{Kind: JunctionGeneralIndex, GeneralIndex: new(big.Int).SetUint64(a.GeneralIndex)},
	}}
}

// BatchAll dispatches calls atomically: if one fails they all revert
func (b *Builder) BatchAll(calls ...types.Call) (types.Call, error) {
	if len(calls) == 0 {
		return types.Call{}, errors.New("batch_all requires at least one call")
	}
	w := newCallWriter()
	w.compactUint(uint64(len(calls)))
	for _, c := range calls {
		w.call(c)
	}
	return b.newCall(CallUtilityBatchAll, w)
}

// NotePreimage registers encoded call data on chain
func (b *Builder) NotePreimage(encoded []byte) (types.Call, error) {
	w := newCallWriter()
	w.compactUint(uint64(len(encoded)))
	w.raw(encoded)
	return b.newCall(CallNotePreimage, w)
}

// Submit opens a referendum on t's origin for the preimage identified by
// hash and length
func (b *Builder) Submit(
	t track.Track,
	hash types.H256,
	length uint32,
	e Enactment,
) (types.Call, error) {
	origin, err := b.runtime.OriginIndex(t.Origin)
	if err != nil {
		return types.Call{}, err
	}
	dispatchTime, err := e.variant()
	if err != nil {
		return types.Call{}, err
	}
	w := newCallWriter()
	// Box<OriginCaller>: Origins(origin)
	w.byte(b.runtime.OriginCaller)
	w.byte(origin)
	// Bounded::Lookup { hash, len }
	w.byte(2)
	w.raw(hash[:])
	w.u32(length)
	// DispatchTime::At / DispatchTime::After
	w.byte(dispatchTime)
	w.u32(e.Value)
	return b.newCall(CallReferendaSubmit, w)
}

// BuildSpendCall turns a beneficiary set into a single treasury call. Each
// beneficiary gets its own transfer; several transfers are wrapped in
// Utility.batch_all so they cannot partially execute.
func (b *Builder) BuildSpendCall(set beneficiary.Set, a asset.Asset) (types.Call, error) {
	if len(set) == 0 {
		return types.Call{}, fmt.Errorf("%w: %w", ErrInvalidBeneficiary, beneficiary.ErrEmptySet)
	}
	if kind, ok := set.Asset(); !ok || kind != a.Kind {
		return types.Call{}, fmt.Errorf("%w: %w", ErrInvalidBeneficiary, beneficiary.ErrMixedAsset)
	}
	if len(set) > 1 && beneficiary.RequiresSingleBeneficiary(a) {
		return types.Call{}, fmt.Errorf(
			"%w: %s spends support a single beneficiary",
			ErrInvalidBeneficiary,
			a.Symbol,
		)
	}
	calls := make([]types.Call, 0, len(set))
	for i, ben := range set {
		accountId, err := ss58.AccountID(ben.Address, b.runtime.SS58Prefix)
		if err != nil {
			return types.Call{}, fmt.Errorf("%w: beneficiary %d: %w", ErrInvalidBeneficiary, i, err)
		}
		amount, err := asset.ParseMinor(ben.Amount)
		if err != nil {
			return types.Call{}, fmt.Errorf("%w: beneficiary %d: %w", ErrInvalidBeneficiary, i, err)
		}
		if amount.Sign() == 0 {
			return types.Call{}, fmt.Errorf("%w: beneficiary %d: zero amount", ErrInvalidBeneficiary, i)
		}
		var call types.Call
		if a.IsNative() {
			call, err = b.SpendLocal(amount, accountId)
		} else {
			call, err = b.Spend(a, asset.Rescale(amount, a.Decimals, a.ChainDecimals), accountId, nil)
		}
		if err != nil {
			return types.Call{}, err
		}
		calls = append(calls, call)
	}
	if len(calls) == 1 {
		return calls[0], nil
	}
	return b.BatchAll(calls...)
}
