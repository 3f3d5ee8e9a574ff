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
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/beneficiary"
	"github.com/polkassembly/govproposer/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceHex      = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	alicePolkadot = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
	bobHex        = "8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48"
	bobPolkadot   = "14E5nqKAp3oAJcmzgZhUD2RcptBeUBScxKHgJKU4HPNcKVf3"

	spendLocalAliceHex = "13030700e876481700" + aliceHex
	spendLocalHashHex  = "0x9ce343ef6c10b316d8ae92e52066b5ab5ce80dd2656fdb9c233a2636bf70490e"
	spendUSDTAliceHex  = "130504000100a10f0002043205011f0284d7170400010100" + aliceHex + "00"
	batchHex           = "1a0208" + spendLocalAliceHex + "13030700743ba40b00" + bobHex
	batchHashHex       = "0xeaa242ec761975e140ca7daf0e997b0e027a1cd06ce4abdc870ba2a9176830a3"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func testBuilder() *Builder {
	return NewBuilder(PolkadotRuntime(), asset.PolkadotRegistry())
}

func usdt(t *testing.T) asset.Asset {
	t.Helper()
	a, ok := asset.PolkadotRegistry().ByKind(asset.KindUSDT)
	require.True(t, ok)
	return a
}

func TestSpendLocalEncoding(t *testing.T) {
	b := testBuilder()
	call, err := b.SpendLocal(big.NewInt(100_000_000_000), mustHex(t, aliceHex))
	require.NoError(t, err)
	assert.Equal(t, spendLocalAliceHex, hex.EncodeToString(EncodeCall(call)))
}

func TestSpendEncoding(t *testing.T) {
	b := testBuilder()
	call, err := b.Spend(usdt(t), big.NewInt(100_000_000), mustHex(t, aliceHex), nil)
	require.NoError(t, err)
	assert.Equal(t, spendUSDTAliceHex, hex.EncodeToString(EncodeCall(call)))
}

func TestSpendValidFrom(t *testing.T) {
	b := testBuilder()
	validFrom := uint32(1234)
	call, err := b.Spend(usdt(t), big.NewInt(1), mustHex(t, aliceHex), &validFrom)
	require.NoError(t, err)
	decoded, err := DecodeCall(EncodeCall(call), b.Runtime())
	require.NoError(t, err)
	spend, ok := decoded.(SpendCall)
	require.True(t, ok)
	require.NotNil(t, spend.ValidFrom)
	assert.Equal(t, validFrom, *spend.ValidFrom)
}

func TestBuildSpendCallSingleNative(t *testing.T) {
	b := testBuilder()
	set := beneficiary.Set{{Address: alicePolkadot, Amount: "100000000000"}}
	call, err := b.BuildSpendCall(set, asset.PolkadotRegistry().Native())
	require.NoError(t, err)
	p := FromCall(call, b.Runtime().Deposit)
	assert.Equal(t, spendLocalAliceHex, hex.EncodeToString(p.EncodedCall))
	assert.Equal(t, spendLocalHashHex, p.HashHex())
	assert.Equal(t, uint32(41), p.Length)
	assert.Equal(t, "401050000000", p.StorageDeposit.String())
}

func TestBuildSpendCallBatch(t *testing.T) {
	b := testBuilder()
	set := beneficiary.Set{
		{Address: alicePolkadot, Amount: "100000000000"},
		{Address: bobPolkadot, Amount: "50000000000"},
	}
	call, err := b.BuildSpendCall(set, asset.PolkadotRegistry().Native())
	require.NoError(t, err)
	p := FromCall(call, b.Runtime().Deposit)
	assert.Equal(t, batchHex, hex.EncodeToString(p.EncodedCall))
	assert.Equal(t, batchHashHex, p.HashHex())
	assert.Equal(t, uint32(85), p.Length)
}

func TestBuildSpendCallRejects(t *testing.T) {
	b := testBuilder()
	reg := asset.PolkadotRegistry()
	ded, ok := reg.ByKind(asset.KindDED)
	require.True(t, ok)
	testDefs := []struct {
		name  string
		set   beneficiary.Set
		asset asset.Asset
	}{
		{name: "empty", set: beneficiary.Set{}, asset: reg.Native()},
		{
			name:  "bad address",
			set:   beneficiary.Set{{Address: "not-an-address", Amount: "1"}},
			asset: reg.Native(),
		},
		{
			name:  "wrong network",
			set:   beneficiary.Set{{Address: "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", Amount: "1"}},
			asset: reg.Native(),
		},
		{
			name:  "zero amount",
			set:   beneficiary.Set{{Address: alicePolkadot, Amount: "0"}},
			asset: reg.Native(),
		},
		{
			name:  "bad amount",
			set:   beneficiary.Set{{Address: alicePolkadot, Amount: "1.5"}},
			asset: reg.Native(),
		},
		{
			name: "asset mismatch",
			set: beneficiary.Set{
				{Address: alicePolkadot, Amount: "1", Asset: asset.KindUSDT},
			},
			asset: reg.Native(),
		},
		{
			name: "multiple beneficiaries of a single payee asset",
			set: beneficiary.Set{
				{Address: alicePolkadot, Amount: "1", Asset: asset.KindDED},
				{Address: bobPolkadot, Amount: "1", Asset: asset.KindDED},
			},
			asset: ded,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := b.BuildSpendCall(testDef.set, testDef.asset)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidBeneficiary)
			assert.NotErrorIs(t, err, ErrMetadataUnavailable)
		})
	}
}

func TestBuildMissingMetadata(t *testing.T) {
	rt := PolkadotRuntime()
	rt.Calls = StaticCallIndex{}
	b := NewBuilder(rt, asset.PolkadotRegistry())
	set := beneficiary.Set{{Address: alicePolkadot, Amount: "1"}}
	_, err := b.BuildSpendCall(set, asset.PolkadotRegistry().Native())
	assert.ErrorIs(t, err, ErrMetadataUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidBeneficiary)

	_, err = MetadataCallIndex{}.CallIndex(CallTreasurySpend)
	assert.ErrorIs(t, err, ErrMetadataUnavailable)
}

func TestPreimageDeterministic(t *testing.T) {
	b := testBuilder()
	set := beneficiary.Set{
		{Address: alicePolkadot, Amount: "100000000000"},
		{Address: bobPolkadot, Amount: "50000000000"},
	}
	call1, err := b.BuildSpendCall(set, asset.PolkadotRegistry().Native())
	require.NoError(t, err)
	call2, err := b.BuildSpendCall(set.Clone(), asset.PolkadotRegistry().Native())
	require.NoError(t, err)
	p1 := FromCall(call1, b.Runtime().Deposit)
	p2 := FromCall(call2, b.Runtime().Deposit)
	assert.Equal(t, p1.EncodedCall, p2.EncodedCall)
	assert.Equal(t, p1.Hash, p2.Hash)
	assert.Equal(t, p1.Length, p2.Length)
}

func TestPreimageBitFlipChangesHash(t *testing.T) {
	data := mustHex(t, batchHex)
	base := FromBytes(data, DepositParams{})
	for i := range data {
		flipped := append([]byte(nil), data...)
		flipped[i] ^= 0x01
		p := FromBytes(flipped, DepositParams{})
		assert.NotEqual(t, base.Hash, p.Hash, "byte %d", i)
		assert.Equal(t, base.Length, p.Length)
	}
	// FromBytes copies its input
	data[0] = 0xff
	assert.Equal(t, byte(0x1a), base.EncodedCall[0])
}

func TestDeposit(t *testing.T) {
	d := DepositParams{Base: big.NewInt(1000), PerByte: big.NewInt(3)}
	assert.Equal(t, "1000", d.For(0).String())
	assert.Equal(t, "1300", d.For(100).String())
	assert.Equal(t, "0", DepositParams{}.For(10).String())
}

func TestLengthFromHex(t *testing.T) {
	testDefs := []struct {
		input    string
		expected uint32
	}{
		{"0x", 0},
		{"0x1", 1},
		{"0xab", 1},
		{"0xabc", 2},
		{"0x" + batchHex, 85},
	}
	for _, testDef := range testDefs {
		l, err := LengthFromHex(testDef.input)
		require.NoError(t, err)
		assert.Equal(t, testDef.expected, l, testDef.input)
	}
	_, err := LengthFromHex("abcd")
	assert.ErrorIs(t, err, ErrMalformedCall)
}

func TestParseHash(t *testing.T) {
	h, err := ParseHash(spendLocalHashHex)
	require.NoError(t, err)
	assert.Equal(t, spendLocalHashHex, HashToHex(h))
	for _, bad := range []string{
		"",
		"0x",
		spendLocalHashHex[2:],
		spendLocalHashHex + "00",
		"0x" + string(make([]byte, 64)),
		"0xzz43343ef6c10b316d8ae92e52066b5ab5ce80dd2656fdb9c233a2636bf70490e",
	} {
		_, err := ParseHash(bad)
		assert.ErrorIs(t, err, ErrInvalidHash, bad)
	}
}

func TestSubmitEncoding(t *testing.T) {
	b := testBuilder()
	tbl := track.PolkadotTracks()
	smallSpender, ok := tbl.ByID(32)
	require.True(t, ok)
	h, err := ParseHash(spendLocalHashHex)
	require.NoError(t, err)
	call, err := b.Submit(smallSpender, h, 41, DefaultEnactment())
	require.NoError(t, err)
	assert.Equal(
		t,
		"1500160a02"+spendLocalHashHex[2:]+"29000000"+"0164000000",
		hex.EncodeToString(EncodeCall(call)),
	)

	call, err = b.Submit(smallSpender, h, 41, Enactment{Kind: EnactAtBlock, Value: 1})
	require.NoError(t, err)
	encoded := EncodeCall(call)
	assert.Equal(t, "0001000000", hex.EncodeToString(encoded[len(encoded)-5:]))

	_, err = b.Submit(track.Track{Origin: "Nobody"}, h, 41, DefaultEnactment())
	assert.ErrorIs(t, err, ErrMetadataUnavailable)
	_, err = b.Submit(smallSpender, h, 41, Enactment{Kind: "soon"})
	assert.ErrorIs(t, err, ErrInvalidEnactment)
}

func TestNotePreimageAndBatchAll(t *testing.T) {
	b := testBuilder()
	encoded := mustHex(t, spendLocalAliceHex)
	note, err := b.NotePreimage(encoded)
	require.NoError(t, err)
	assert.Equal(t, "0a00a4"+spendLocalAliceHex, hex.EncodeToString(EncodeCall(note)))

	h, err := ParseHash(spendLocalHashHex)
	require.NoError(t, err)
	submit, err := b.Submit(track.PolkadotTracks()[0], h, 41, DefaultEnactment())
	require.Error(t, err, "root is not a governance origin")

	tbl := track.PolkadotTracks()
	bigSpender, ok := tbl.ByID(34)
	require.True(t, ok)
	submit, err = b.Submit(bigSpender, h, 41, DefaultEnactment())
	require.NoError(t, err)
	bundle, err := b.BatchAll(note, submit)
	require.NoError(t, err)
	out := EncodeCall(bundle)
	assert.Equal(t, []byte{26, 2, 8}, out[:3])
	assert.Equal(t, EncodeCall(note), out[3:3+len(EncodeCall(note))])

	_, err = b.BatchAll()
	assert.Error(t, err)
}

func TestBuildDecodeRoundTrip(t *testing.T) {
	b := testBuilder()
	reg := asset.PolkadotRegistry()
	testDefs := []struct {
		name  string
		set   beneficiary.Set
		asset asset.Asset
	}{
		{
			name:  "native single",
			set:   beneficiary.Set{{Address: alicePolkadot, Amount: "100000000000"}},
			asset: reg.Native(),
		},
		{
			name: "native batch",
			set: beneficiary.Set{
				{Address: alicePolkadot, Amount: "100000000000"},
				{Address: bobPolkadot, Amount: "1"},
			},
			asset: reg.Native(),
		},
		{
			name: "stablecoin batch",
			set: beneficiary.Set{
				{Address: bobPolkadot, Amount: "2500000", Asset: asset.KindUSDC},
				{Address: alicePolkadot, Amount: "7", Asset: asset.KindUSDC},
			},
			asset: func() asset.Asset { a, _ := reg.ByKind(asset.KindUSDC); return a }(),
		},
		{
			name:  "single payee asset",
			set:   beneficiary.Set{{Address: alicePolkadot, Amount: "123456789", Asset: asset.KindDED}},
			asset: func() asset.Asset { a, _ := reg.ByKind(asset.KindDED); return a }(),
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			call, err := b.BuildSpendCall(testDef.set, testDef.asset)
			require.NoError(t, err)
			decoded, err := b.Decode(EncodeCall(call))
			require.NoError(t, err)
			set, a, err := b.Beneficiaries(decoded)
			require.NoError(t, err)
			assert.Equal(t, testDef.asset.Kind, a.Kind)
			assert.Equal(t, testDef.set, set)
		})
	}
}

func TestDecodeRescalesChainDecimals(t *testing.T) {
	reg, err := asset.NewRegistry(
		asset.Asset{Kind: asset.KindNative, Symbol: "DOT", Decimals: 10},
		asset.Asset{
			Kind:          asset.KindUSDT,
			Symbol:        "USDT",
			Decimals:      6,
			ChainDecimals: 8,
			GeneralIndex:  1984,
			Stablecoin:    true,
		},
	)
	require.NoError(t, err)
	a, ok := reg.ByKind(asset.KindUSDT)
	require.True(t, ok)
	b := NewBuilder(PolkadotRuntime(), reg)
	set := beneficiary.Set{{Address: alicePolkadot, Amount: "1500000", Asset: asset.KindUSDT}}
	call, err := b.BuildSpendCall(set, a)
	require.NoError(t, err)
	decoded, err := b.Decode(EncodeCall(call))
	require.NoError(t, err)
	spend, ok := decoded.(SpendCall)
	require.True(t, ok)
	assert.Equal(t, "150000000", spend.Amount.String())
	got, _, err := b.Beneficiaries(decoded)
	require.NoError(t, err)
	assert.Equal(t, set, got)
}

func TestDecodeXcmV3(t *testing.T) {
	data := mustHex(t, spendUSDTAliceHex)
	data[2] = 3
	data[19] = 3
	b := testBuilder()
	decoded, err := b.Decode(data)
	require.NoError(t, err)
	set, a, err := b.Beneficiaries(decoded)
	require.NoError(t, err)
	assert.Equal(t, asset.KindUSDT, a.Kind)
	assert.Equal(t, beneficiary.Set{{Address: alicePolkadot, Amount: "100000000", Asset: asset.KindUSDT}}, set)

	data[2] = 2
	_, err = b.Decode(data)
	assert.ErrorIs(t, err, ErrUnsupportedCall)
}

func TestDecodeErrors(t *testing.T) {
	b := testBuilder()
	note, err := b.NotePreimage([]byte{1, 2, 3})
	require.NoError(t, err)
	_, err = b.Decode(EncodeCall(note))
	assert.ErrorIs(t, err, ErrUnsupportedCall)

	valid := mustHex(t, spendLocalAliceHex)
	_, err = b.Decode(append(append([]byte(nil), valid...), 0))
	assert.ErrorIs(t, err, ErrMalformedCall)
	_, err = b.Decode(valid[:len(valid)-1])
	assert.ErrorIs(t, err, ErrMalformedCall)
	_, err = b.Decode(nil)
	assert.ErrorIs(t, err, ErrMalformedCall)
	_, err = b.Decode([]byte{0xfe, 0xfe})
	assert.ErrorIs(t, err, ErrUnsupportedCall)

	// batch inside batch
	inner := mustHex(t, batchHex)
	nested := append([]byte{26, 2, 4}, inner...)
	_, err = b.Decode(nested)
	assert.ErrorIs(t, err, ErrUnsupportedCall)
}

func TestBeneficiariesRejectsMixedBatch(t *testing.T) {
	b := testBuilder()
	local, err := b.SpendLocal(big.NewInt(1), mustHex(t, aliceHex))
	require.NoError(t, err)
	spend, err := b.Spend(usdt(t), big.NewInt(1), mustHex(t, aliceHex), nil)
	require.NoError(t, err)
	batch, err := b.BatchAll(local, spend)
	require.NoError(t, err)
	decoded, err := b.Decode(EncodeCall(batch))
	require.NoError(t, err)
	_, _, err = b.Beneficiaries(decoded)
	assert.ErrorIs(t, err, ErrUnsupportedCall)
}

func TestBeneficiariesUnknownAsset(t *testing.T) {
	b := testBuilder()
	unknown := asset.Asset{Kind: "foo", Symbol: "FOO", Decimals: 0, GeneralIndex: 4242}
	call, err := b.Spend(unknown, big.NewInt(1), mustHex(t, aliceHex), nil)
	require.NoError(t, err)
	decoded, err := b.Decode(EncodeCall(call))
	require.NoError(t, err)
	_, _, err = b.Beneficiaries(decoded)
	assert.ErrorIs(t, err, ErrUnsupportedCall)
	assert.ErrorIs(t, err, asset.ErrUnknownAsset)
}

func TestRequestStatus(t *testing.T) {
	raw := EncodeRequestStatus(mustHex(t, aliceHex), 401050000000, 41)
	length, err := DecodeRequestStatus(raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(41), length)

	// Requested { maybe_ticket: None, count: 1, maybe_len: Some(85) }
	requested := []byte{1, 0, 1, 0, 0, 0, 1, 85, 0, 0, 0}
	length, err = DecodeRequestStatus(requested)
	require.NoError(t, err)
	assert.Equal(t, uint32(85), length)

	// Requested with no length yet
	_, err = DecodeRequestStatus([]byte{1, 0, 1, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrLengthUnknown)

	_, err = DecodeRequestStatus([]byte{7})
	assert.ErrorIs(t, err, ErrMalformedCall)
	_, err = DecodeRequestStatus(raw[:10])
	assert.ErrorIs(t, err, ErrMalformedCall)
}

func TestPreimageForKey(t *testing.T) {
	h, err := ParseHash(spendLocalHashHex)
	require.NoError(t, err)
	key := PreimageForKey(h, 41)
	assert.Len(t, key, 36)
	assert.Equal(t, h[:], key[:32])
	assert.Equal(t, []byte{41, 0, 0, 0}, key[32:])
}

const spendJSONV4 = `{
  "assetKind": {"V4": {
    "location": {"parents": "0", "interior": {"X1": [{"Parachain": "1,000"}]}},
    "assetId": {"parents": "0", "interior": {"X2": [{"PalletInstance": "50"}, {"GeneralIndex": "1,984"}]}}
  }},
  "amount": "100,000,000",
  "beneficiary": {"V4": {"parents": "0", "interior": {"X1": [{"AccountId32": {"network": null, "id": "0x` + aliceHex + `"}}]}}},
  "validFrom": null
}`

const spendJSONV3 = `{
  "asset_kind": {"V3": {
    "location": {"parents": 0, "interior": {"X1": {"Parachain": 1000}}},
    "asset_id": {"Concrete": {"parents": 0, "interior": {"X2": [{"PalletInstance": 50}, {"GeneralIndex": "0x7c0"}]}}}
  }},
  "amount": 100000000,
  "beneficiary": {"V3": {"parents": 0, "interior": {"X1": {"AccountId32": {"network": null, "id": "` + alicePolkadot + `"}}}}},
  "valid_from": null
}`

func TestDecodeProposedCallJSON(t *testing.T) {
	b := testBuilder()
	expected := beneficiary.Set{{Address: alicePolkadot, Amount: "100000000", Asset: asset.KindUSDT}}
	for name, args := range map[string]string{"v4": spendJSONV4, "v3": spendJSONV3} {
		t.Run(name, func(t *testing.T) {
			decoded, err := DecodeProposedCallJSON("treasury", "spend", []byte(args))
			require.NoError(t, err)
			set, a, err := b.Beneficiaries(decoded)
			require.NoError(t, err)
			assert.Equal(t, asset.KindUSDT, a.Kind)
			assert.Equal(t, expected, set)
		})
	}
}

func TestDecodeProposedCallJSONBatch(t *testing.T) {
	b := testBuilder()
	args := `{"calls": [
	  {"section": "treasury", "method": "spendLocal", "args": {"amount": "100,000,000,000", "beneficiary": {"Id": "` + alicePolkadot + `"}}},
	  {"section": "treasury", "method": "spend_local", "args": {"amount": "1", "beneficiary": "` + bobPolkadot + `"}}
	]}`
	decoded, err := DecodeProposedCallJSON("utility", "batchAll", []byte(args))
	require.NoError(t, err)
	batch, ok := decoded.(BatchCall)
	require.True(t, ok)
	assert.True(t, batch.Atomic)
	set, a, err := b.Beneficiaries(decoded)
	require.NoError(t, err)
	assert.True(t, a.IsNative())
	assert.Equal(t, beneficiary.Set{
		{Address: alicePolkadot, Amount: "100000000000"},
		{Address: bobPolkadot, Amount: "1"},
	}, set)
}

func TestDecodeProposedCallJSONErrors(t *testing.T) {
	_, err := DecodeProposedCallJSON("system", "remark", []byte(`{"remark": "0x00"}`))
	assert.ErrorIs(t, err, ErrUnsupportedCall)
	_, err = DecodeProposedCallJSON("treasury", "spend", []byte(`{`))
	assert.ErrorIs(t, err, ErrMalformedCall)
	_, err = DecodeProposedCallJSON("treasury", "spendLocal", []byte(`{"amount": "-1", "beneficiary": {"Id": "`+alicePolkadot+`"}}`))
	assert.ErrorIs(t, err, ErrMalformedCall)
	_, err = DecodeProposedCallJSON("treasury", "spend", []byte(`{"assetKind": {"V2": {}}}`))
	assert.ErrorIs(t, err, ErrUnsupportedCall)
}

func TestEnactmentValidate(t *testing.T) {
	assert.NoError(t, DefaultEnactment().Validate(1_000_000))
	assert.NoError(t, Enactment{Kind: EnactAtBlock, Value: 500}.Validate(500))
	err := Enactment{Kind: EnactAtBlock, Value: 499}.Validate(500)
	assert.True(t, errors.Is(err, ErrEnactmentInPast))
	assert.ErrorIs(t, Enactment{}.Validate(0), ErrInvalidEnactment)
}

func TestStaticCallIndex(t *testing.T) {
	calls := PolkadotRuntime().Calls
	idx, err := calls.CallIndex(CallReferendaSubmit)
	require.NoError(t, err)
	assert.Equal(t, types.CallIndex{SectionIndex: 21, MethodIndex: 0}, idx)
	name, err := calls.CallName(idx)
	require.NoError(t, err)
	assert.Equal(t, CallReferendaSubmit, name)
	_, err = calls.CallName(types.CallIndex{SectionIndex: 99})
	assert.ErrorIs(t, err, ErrUnsupportedCall)
}

func TestStoredPreimage(t *testing.T) {
	data := mustHex(t, spendLocalAliceHex)
	stored := EncodeStoredPreimage(data)
	assert.Equal(t, byte(41<<2), stored[0])
	got, err := DecodeStoredPreimage(stored)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	_, err = DecodeStoredPreimage(stored[:len(stored)-1])
	assert.ErrorIs(t, err, ErrMalformedCall)
}
