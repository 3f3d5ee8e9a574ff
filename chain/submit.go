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
	"fmt"
	"strings"
	"sync"

	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/extrinsic"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/extrinsic/extensions"
	"github.com/polkassembly/govproposer/submission"
	"golang.org/x/crypto/blake2b"
)

func (a *Adapter) signExtrinsic(
	ctx context.Context,
	call types.Call,
	pair signature.KeyringPair,
	nonce uint32,
) (*extrinsic.DynamicExtrinsic, error) {
	meta, err := a.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	genesis, err := a.api.RPC.Chain.GetBlockHash(0)
	if err != nil {
		return nil, fmt.Errorf("genesis hash: %w", err)
	}
	rv, err := a.api.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		return nil, fmt.Errorf("runtime version: %w", err)
	}
	ext := extrinsic.NewDynamicExtrinsic(&call)
	err = ext.Sign(
		pair,
		meta,
		extrinsic.WithEra(types.ExtrinsicEra{IsImmortalEra: true}, genesis),
		extrinsic.WithNonce(types.NewUCompactFromUInt(uint64(nonce))),
		extrinsic.WithTip(types.NewUCompactFromUInt(0)),
		extrinsic.WithSpecVersion(rv.SpecVersion),
		extrinsic.WithTransactionVersion(rv.TransactionVersion),
		extrinsic.WithGenesisHash(genesis),
		extrinsic.WithMetadataMode(
			extensions.CheckMetadataModeDisabled,
			extensions.CheckMetadataHash{Hash: types.NewEmptyOption[types.H256]()},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("sign extrinsic: %w", err)
	}
	return &ext, nil
}

// SignAndSend signs call with a keyring signer, submits it and streams its
// status to onStatus until the returned func is called
func (a *Adapter) SignAndSend(
	ctx context.Context,
	call types.Call,
	signer submission.Signer,
	onStatus func(submission.TxStatus),
) (func(), error) {
	ks, ok := signer.(*KeyringSigner)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedSigner, signer)
	}
	info, err := a.accountInfo(ctx, ks.pair.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("account nonce: %w", err)
	}
	ext, err := a.signExtrinsic(ctx, call, ks.pair, uint32(info.Nonce))
	if err != nil {
		return nil, err
	}
	encoded, err := codec.Encode(ext)
	if err != nil {
		return nil, err
	}
	txHash := blake2b.Sum256(encoded)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub, err := a.api.RPC.Author.SubmitAndWatchDynamicExtrinsic(*ext)
	if err != nil {
		return nil, err
	}
	txHashHex := "0x" + hex.EncodeToString(txHash[:])
	a.logger.Info(
		"extrinsic submitted",
		"tx_hash", txHashHex,
		"signer", ks.Address(),
	)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.watchStatus(stop, sub.Chan(), sub.Err(), txHash, onStatus)
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			sub.Unsubscribe()
			<-done
		})
	}, nil
}

// watchStatus forwards pool updates to onStatus until stop is closed. A
// subscription that ends on its own is reported as TxStreamEnded.
func (a *Adapter) watchStatus(
	stop <-chan struct{},
	updates <-chan types.ExtrinsicStatus,
	errs <-chan error,
	txHash [32]byte,
	onStatus func(submission.TxStatus),
) {
	txHashHex := "0x" + hex.EncodeToString(txHash[:])
	ended := func(err error) {
		select {
		case <-stop:
			return
		default:
		}
		a.logger.Warn("status subscription ended", "tx_hash", txHashHex, "error", err)
		onStatus(submission.TxStatus{Kind: submission.TxStreamEnded, TxHash: txHashHex})
	}
	for {
		select {
		case <-stop:
			return
		case err := <-errs:
			ended(err)
			return
		case st, ok := <-updates:
			if !ok {
				ended(nil)
				return
			}
			status, ok := translateStatus(st)
			if !ok {
				continue
			}
			status.TxHash = txHashHex
			if status.Included() {
				a.applyEvents(&status, txHash)
			}
			onStatus(status)
		}
	}
}

// translateStatus maps a pool status to the submission status stream.
// Statuses the pipeline does not act on are skipped.
func translateStatus(st types.ExtrinsicStatus) (submission.TxStatus, bool) {
	switch {
	case st.IsReady:
		return submission.TxStatus{Kind: submission.TxReady}, true
	case st.IsBroadcast:
		return submission.TxStatus{Kind: submission.TxBroadcast}, true
	case st.IsInBlock:
		return submission.TxStatus{Kind: submission.TxInBlock, BlockHash: st.AsInBlock.Hex()}, true
	case st.IsFinalized:
		return submission.TxStatus{Kind: submission.TxFinalized, BlockHash: st.AsFinalized.Hex()}, true
	case st.IsDropped:
		return submission.TxStatus{Kind: submission.TxDropped}, true
	case st.IsInvalid:
		return submission.TxStatus{Kind: submission.TxInvalid}, true
	case st.IsUsurped:
		return submission.TxStatus{Kind: submission.TxUsurped, BlockHash: st.AsUsurped.Hex()}, true
	default:
		return submission.TxStatus{}, false
	}
}

type rawBlock struct {
	Block struct {
		Extrinsics []string `json:"extrinsics"`
	} `json:"block"`
}

// applyEvents fills the dispatch outcome of an included extrinsic from the
// block's events
func (a *Adapter) applyEvents(status *submission.TxStatus, txHash [32]byte) {
	blockHash, err := types.NewHashFromHexString(status.BlockHash)
	if err != nil {
		return
	}
	var blk rawBlock
	if err := a.api.Client.Call(&blk, "chain_getBlock", status.BlockHash); err != nil {
		a.logger.Warn("failed to fetch block", "block_hash", status.BlockHash, "error", err)
		return
	}
	idx, ok := findExtrinsic(blk.Block.Extrinsics, txHash)
	if !ok {
		a.logger.Warn("extrinsic not found in block", "block_hash", status.BlockHash)
		return
	}
	r, err := a.eventRetriever()
	if err != nil {
		a.logger.Warn("failed to create event retriever", "error", err)
		return
	}
	events, err := r.GetEvents(blockHash)
	if err != nil {
		a.logger.Warn("failed to fetch events", "block_hash", status.BlockHash, "error", err)
		return
	}
	a.mu.Lock()
	meta := a.meta
	a.mu.Unlock()
	for _, evt := range events {
		if evt.Phase == nil || !evt.Phase.IsApplyExtrinsic || evt.Phase.AsApplyExtrinsic != idx {
			continue
		}
		switch evt.Name {
		case "System.ExtrinsicFailed":
			msg := dispatchErrorMessage(meta, evt.Fields)
			status.DispatchError = &msg
		case "Referenda.Submitted":
			if index, ok := uintField(evt.Fields, "index"); ok {
				v := uint32(index)
				status.ReferendumIndex = &v
			}
		}
	}
}

// findExtrinsic returns the position of the extrinsic hashing to txHash
func findExtrinsic(extrinsics []string, txHash [32]byte) (uint32, bool) {
	for i, x := range extrinsics {
		data, err := hex.DecodeString(strings.TrimPrefix(x, "0x"))
		if err != nil {
			continue
		}
		if blake2b.Sum256(data) == txHash {
			return uint32(i), true
		}
	}
	return 0, false
}
