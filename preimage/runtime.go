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
	"github.com/polkassembly/govproposer/ss58"
)

// Runtime calls used by the proposal pipeline
const (
	CallTreasurySpendLocal = "Treasury.spend_local"
	CallTreasurySpend      = "Treasury.spend"
	CallUtilityBatch       = "Utility.batch"
	CallUtilityBatchAll    = "Utility.batch_all"
	CallNotePreimage       = "Preimage.note_preimage"
	CallReferendaSubmit    = "Referenda.submit"
)

var knownCalls = []string{
	CallTreasurySpendLocal,
	CallTreasurySpend,
	CallUtilityBatch,
	CallUtilityBatchAll,
	CallNotePreimage,
	CallReferendaSubmit,
}

// CallIndexer maps between call names ("Pallet.call") and call indices
type CallIndexer interface {
	CallIndex(name string) (types.CallIndex, error)
	CallName(idx types.CallIndex) (string, error)
}

// StaticCallIndex is a fixed call table for a known runtime version
type StaticCallIndex map[string]types.CallIndex

func (s StaticCallIndex) CallIndex(name string) (types.CallIndex, error) {
	idx, ok := s[name]
	if !ok {
		return types.CallIndex{}, fmt.Errorf("%w: no call index for %s", ErrMetadataUnavailable, name)
	}
	return idx, nil
}

func (s StaticCallIndex) CallName(idx types.CallIndex) (string, error) {
	for name, v := range s {
		if v == idx {
			return name, nil
		}
	}
	return "", fmt.Errorf(
		"%w: unknown call index %d/%d",
		ErrUnsupportedCall,
		idx.SectionIndex,
		idx.MethodIndex,
	)
}

// MetadataCallIndex resolves call indices from live chain metadata
type MetadataCallIndex struct {
	Metadata *types.Metadata
}

func (m MetadataCallIndex) CallIndex(name string) (types.CallIndex, error) {
	if m.Metadata == nil {
		return types.CallIndex{}, fmt.Errorf("%w: metadata not loaded", ErrMetadataUnavailable)
	}
	idx, err := m.Metadata.FindCallIndex(name)
	if err != nil {
		return types.CallIndex{}, fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}
	return idx, nil
}

// CallName only recognises the calls this pipeline builds or decodes
func (m MetadataCallIndex) CallName(idx types.CallIndex) (string, error) {
	if m.Metadata == nil {
		return "", fmt.Errorf("%w: metadata not loaded", ErrMetadataUnavailable)
	}
	for _, name := range knownCalls {
		got, err := m.Metadata.FindCallIndex(name)
		if err == nil && got == idx {
			return name, nil
		}
	}
	return "", fmt.Errorf(
		"%w: unknown call index %d/%d",
		ErrUnsupportedCall,
		idx.SectionIndex,
		idx.MethodIndex,
	)
}

// DepositParams are the preimage pallet's storage deposit constants
type DepositParams struct {
	Base    *big.Int
	PerByte *big.Int
}

// For returns the deposit reserved for a preimage of length bytes
func (d DepositParams) For(length uint32) *big.Int {
	ret := new(big.Int)
	if d.PerByte != nil {
		ret.Mul(d.PerByte, big.NewInt(int64(length)))
	}
	if d.Base != nil {
		ret.Add(ret, d.Base)
	}
	return ret
}

// Runtime holds the network specific constants needed to encode and decode
// proposal calls
type Runtime struct {
	Name  string
	Calls CallIndexer
	// OriginCaller is the OriginCaller variant of the custom governance
	// Origins pallet
	OriginCaller uint8
	// Origins maps track origin names to their variant in the Origins enum
	Origins              map[string]uint8
	AssetHubParaID       uint32
	AssetsPalletInstance uint8
	Deposit              DepositParams
	SubmissionDeposit    *big.Int
	SS58Prefix           uint16
}

// OriginIndex returns the encoded variant for a track origin
func (r Runtime) OriginIndex(origin string) (uint8, error) {
	idx, ok := r.Origins[origin]
	if !ok {
		return 0, fmt.Errorf("%w: unknown origin %q", ErrMetadataUnavailable, origin)
	}
	return idx, nil
}

var openGovOrigins = map[string]uint8{
	"StakingAdmin":        0,
	"Treasurer":           1,
	"FellowshipAdmin":     2,
	"GeneralAdmin":        3,
	"AuctionAdmin":        4,
	"LeaseAdmin":          5,
	"ReferendumCanceller": 6,
	"ReferendumKiller":    7,
	"SmallTipper":         8,
	"BigTipper":           9,
	"SmallSpender":        10,
	"MediumSpender":       11,
	"BigSpender":          12,
	"WhitelistedCaller":   13,
	"WishForChange":       14,
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid integer constant " + s)
	}
	return v
}

// PolkadotRuntime returns the Polkadot relay chain constants
func PolkadotRuntime() Runtime {
	return Runtime{
		Name: "polkadot",
		Calls: StaticCallIndex{
			CallTreasurySpendLocal: {SectionIndex: 19, MethodIndex: 3},
			CallTreasurySpend:      {SectionIndex: 19, MethodIndex: 5},
			CallUtilityBatch:       {SectionIndex: 26, MethodIndex: 0},
			CallUtilityBatchAll:    {SectionIndex: 26, MethodIndex: 2},
			CallNotePreimage:       {SectionIndex: 10, MethodIndex: 0},
			CallReferendaSubmit:    {SectionIndex: 21, MethodIndex: 0},
		},
		OriginCaller:         22,
		Origins:              openGovOrigins,
		AssetHubParaID:       1000,
		AssetsPalletInstance: 50,
		Deposit: DepositParams{
			Base:    mustBig("400640000000"),
			PerByte: mustBig("10000000"),
		},
		SubmissionDeposit: mustBig("10000000000"),
		SS58Prefix:        ss58.PolkadotPrefix,
	}
}

// KusamaRuntime returns the Kusama relay chain constants
func KusamaRuntime() Runtime {
	return Runtime{
		Name: "kusama",
		Calls: StaticCallIndex{
			CallTreasurySpendLocal: {SectionIndex: 18, MethodIndex: 3},
			CallTreasurySpend:      {SectionIndex: 18, MethodIndex: 5},
			CallUtilityBatch:       {SectionIndex: 24, MethodIndex: 0},
			CallUtilityBatchAll:    {SectionIndex: 24, MethodIndex: 2},
			CallNotePreimage:       {SectionIndex: 32, MethodIndex: 0},
			CallReferendaSubmit:    {SectionIndex: 44, MethodIndex: 0},
		},
		OriginCaller:         43,
		Origins:              openGovOrigins,
		AssetHubParaID:       1000,
		AssetsPalletInstance: 50,
		Deposit: DepositParams{
			Base:    mustBig("1335466663200"),
			PerByte: mustBig("33333300"),
		},
		SubmissionDeposit: mustBig("33333333333"),
		SS58Prefix:        ss58.KusamaPrefix,
	}
}

// RuntimeForNetwork returns the built-in runtime constants for a network
func RuntimeForNetwork(network string) (Runtime, error) {
	switch network {
	case "polkadot":
		return PolkadotRuntime(), nil
	case "kusama":
		return KusamaRuntime(), nil
	default:
		return Runtime{}, fmt.Errorf("no runtime constants for network %q", network)
	}
}
