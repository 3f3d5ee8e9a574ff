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

package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/centrifuge/go-substrate-rpc-client/v4/registry"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	govtest "github.com/polkassembly/govproposer/internal/test/testutil"
	"github.com/polkassembly/govproposer/ss58"
	"github.com/polkassembly/govproposer/submission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

const alicePolkadot = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"

func TestKeyringWallet(t *testing.T) {
	w, err := NewKeyringWallet("//Alice", ss58.PolkadotPrefix)
	require.NoError(t, err)
	assert.Equal(t, alicePolkadot, w.Address())
	signer, err := w.Enable(context.Background(), "govproposer")
	require.NoError(t, err)
	assert.Equal(t, alicePolkadot, signer.Address())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Enable(ctx, "govproposer")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewKeyringWallet("not a valid secret", ss58.PolkadotPrefix)
	assert.Error(t, err)
}

func TestTranslateStatus(t *testing.T) {
	block := types.NewHash([]byte{1, 2, 3})
	testCases := []struct {
		status types.ExtrinsicStatus
		want   submission.TxStatusKind
		ok     bool
	}{
		{types.ExtrinsicStatus{IsFuture: true}, "", false},
		{types.ExtrinsicStatus{IsReady: true}, submission.TxReady, true},
		{types.ExtrinsicStatus{IsBroadcast: true}, submission.TxBroadcast, true},
		{types.ExtrinsicStatus{IsInBlock: true, AsInBlock: block}, submission.TxInBlock, true},
		{types.ExtrinsicStatus{IsFinalized: true, AsFinalized: block}, submission.TxFinalized, true},
		{types.ExtrinsicStatus{IsDropped: true}, submission.TxDropped, true},
		{types.ExtrinsicStatus{IsInvalid: true}, submission.TxInvalid, true},
		{types.ExtrinsicStatus{IsUsurped: true}, submission.TxUsurped, true},
	}
	for _, tc := range testCases {
		got, ok := translateStatus(tc.status)
		assert.Equal(t, tc.ok, ok)
		assert.Equal(t, tc.want, got.Kind)
		if tc.want == submission.TxInBlock {
			assert.Equal(t, block.Hex(), got.BlockHash)
		}
	}
}

type statusWatch struct {
	stop     chan struct{}
	updates  chan types.ExtrinsicStatus
	errs     chan error
	statuses chan submission.TxStatus
	done     chan struct{}
}

func startWatch(t *testing.T) *statusWatch {
	t.Helper()
	a := &Adapter{logger: govtest.DiscardLogger()}
	w := &statusWatch{
		stop:     make(chan struct{}),
		updates:  make(chan types.ExtrinsicStatus),
		errs:     make(chan error, 1),
		statuses: make(chan submission.TxStatus, 4),
		done:     make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		a.watchStatus(w.stop, w.updates, w.errs, [32]byte{0xaa}, func(s submission.TxStatus) {
			w.statuses <- s
		})
	}()
	return w
}

func TestWatchStatusReportsSubscriptionError(t *testing.T) {
	w := startWatch(t)
	w.updates <- types.ExtrinsicStatus{IsReady: true}
	st := govtest.RequireReceive(t, w.statuses, govtest.DefaultTimeout, "ready")
	assert.Equal(t, submission.TxReady, st.Kind)

	w.errs <- errors.New("connection reset")
	st = govtest.RequireReceive(t, w.statuses, govtest.DefaultTimeout, "stream ended")
	assert.Equal(t, submission.TxStreamEnded, st.Kind)
	assert.Equal(t, "0xaa"+hex.EncodeToString(make([]byte, 31)), st.TxHash)
	<-w.done
}

func TestWatchStatusReportsClosedStream(t *testing.T) {
	w := startWatch(t)
	close(w.updates)
	st := govtest.RequireReceive(t, w.statuses, govtest.DefaultTimeout, "stream ended")
	assert.Equal(t, submission.TxStreamEnded, st.Kind)
}

func TestWatchStatusStopIsSilent(t *testing.T) {
	w := startWatch(t)
	close(w.stop)
	w.errs <- errors.New("unsubscribed")
	<-w.done
	govtest.RequireNoReceive(t, w.statuses, 10*time.Millisecond, "status after stop")
}

func TestFindExtrinsic(t *testing.T) {
	xts := []string{"0x0400", "0x280403000b", "0xdeadbeef"}
	data, err := hex.DecodeString("280403000b")
	require.NoError(t, err)
	idx, ok := findExtrinsic(xts, blake2b.Sum256(data))
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)
	_, ok = findExtrinsic(xts, blake2b.Sum256([]byte("other")))
	assert.False(t, ok)
}

func testMetadata() *types.Metadata {
	return &types.Metadata{
		IsMetadataV14: true,
		AsMetadataV14: types.MetadataV14{
			Pallets: []types.PalletMetadataV14{
				{
					Name:      "Referenda",
					Index:     21,
					HasErrors: true,
					Errors:    types.ErrorMetadataV14{Type: types.NewSi1LookupTypeIDFromUInt(7)},
				},
			},
			EfficientLookup: map[int64]*types.Si1Type{
				7: {
					Def: types.Si1TypeDef{
						IsVariant: true,
						Variant: types.Si1TypeDefVariant{
							Variants: []types.Si1Variant{
								{Name: "NotOngoing", Index: 0},
								{Name: "Full", Index: 4, Docs: []types.Text{"The track is full. "}},
							},
						},
					},
				},
			},
		},
	}
}

func TestModuleErrorName(t *testing.T) {
	meta := testMetadata()
	assert.Equal(t, "Referenda.Full: The track is full.", moduleErrorName(meta, 21, 4))
	assert.Equal(t, "Referenda.NotOngoing", moduleErrorName(meta, 21, 0))
	assert.Equal(t, "Module { index: 21, error: 9 }", moduleErrorName(meta, 21, 9))
	assert.Equal(t, "Module { index: 5, error: 0 }", moduleErrorName(meta, 5, 0))
	assert.Equal(t, "Module { index: 21, error: 4 }", moduleErrorName(nil, 21, 4))
}

func TestDispatchErrorMessage(t *testing.T) {
	meta := testMetadata()
	module := registry.DecodedFields{
		{Name: "dispatch_error", Value: registry.DecodedFields{
			{Name: "Module", Value: registry.DecodedFields{
				{Name: "index", Value: types.U8(21)},
				{Name: "error", Value: [4]types.U8{4, 0, 0, 0}},
			}},
		}},
	}
	assert.Equal(t, "Referenda.Full: The track is full.", dispatchErrorMessage(meta, module))

	token := registry.DecodedFields{
		{Name: "dispatch_error", Value: registry.DecodedFields{
			{Name: "Token", Value: registry.DecodedFields{
				{Name: "FundsUnavailable", Value: nil},
			}},
		}},
	}
	assert.Equal(t, "Token.FundsUnavailable", dispatchErrorMessage(meta, token))
	assert.Equal(t, "", dispatchErrorMessage(meta, registry.DecodedFields{}))
}

func TestUintField(t *testing.T) {
	fields := registry.DecodedFields{
		{Name: "index", Value: types.U32(17)},
		{Name: "track", Value: uint16(32)},
		{Name: "bytes", Value: []any{types.U8(9), types.U8(1)}},
	}
	v, ok := uintField(fields, "index")
	require.True(t, ok)
	assert.Equal(t, uint64(17), v)
	v, ok = uintField(fields, "track")
	require.True(t, ok)
	assert.Equal(t, uint64(32), v)
	v, ok = uintField(fields, "bytes")
	require.True(t, ok)
	assert.Equal(t, uint64(9), v)
	_, ok = uintField(fields, "missing")
	assert.False(t, ok)
}
