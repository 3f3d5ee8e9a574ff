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

// Package chain connects the pipeline to a Substrate node over its JSON-RPC
// interface.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry/retriever"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry/state"
	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/polkassembly/govproposer/preimage"
	"github.com/polkassembly/govproposer/ss58"
)

var (
	ErrNotConnected      = errors.New("not connected to a node")
	ErrUnsupportedSigner = errors.New("signer cannot be used with this chain adapter")
)

// Adapter wraps a node connection. Metadata is fetched once and cached.
// The underlying client is not context aware, so contexts are only checked
// before each request.
type Adapter struct {
	url    string
	logger *slog.Logger
	api    *gsrpc.SubstrateAPI
	mu     sync.Mutex
	meta   *types.Metadata
	events retriever.EventRetriever
}

type AdapterOption func(*Adapter)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// Dial connects to the node at url (ws:// or http://)
func Dial(url string, opts ...AdapterOption) (*Adapter, error) {
	a := &Adapter{url: url}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	a.logger = a.logger.With("component", "chain")
	api, err := gsrpc.NewSubstrateAPI(url)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", url, err)
	}
	a.api = api
	a.logger.Info("connected to node", "url", url)
	return a, nil
}

// Close drops the node connection
func (a *Adapter) Close() {
	if a.api != nil {
		a.api.Client.Close()
	}
}

// Metadata returns the runtime metadata of the connected chain
func (a *Adapter) Metadata(ctx context.Context) (*types.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.meta != nil {
		return a.meta, nil
	}
	meta, err := a.api.RPC.State.GetMetadataLatest()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", preimage.ErrMetadataUnavailable, err)
	}
	a.meta = meta
	return meta, nil
}

// Runtime returns base with call indices resolved from live metadata
func (a *Adapter) Runtime(ctx context.Context, base preimage.Runtime) (preimage.Runtime, error) {
	meta, err := a.Metadata(ctx)
	if err != nil {
		return base, err
	}
	base.Calls = preimage.MetadataCallIndex{Metadata: meta}
	return base, nil
}

// Storage reads a raw storage value. key is the SCALE encoded map key, or
// nil for plain storage items. Missing values are returned as nil.
func (a *Adapter) Storage(ctx context.Context, pallet, item string, key []byte) ([]byte, error) {
	meta, err := a.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	var storageKey types.StorageKey
	if key == nil {
		storageKey, err = types.CreateStorageKey(meta, pallet, item)
	} else {
		storageKey, err = types.CreateStorageKey(meta, pallet, item, key)
	}
	if err != nil {
		return nil, fmt.Errorf("storage key %s.%s: %w", pallet, item, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := a.api.RPC.State.GetStorageRawLatest(storageKey)
	if err != nil {
		return nil, fmt.Errorf("read %s.%s: %w", pallet, item, err)
	}
	if raw == nil || len(*raw) == 0 {
		return nil, nil
	}
	return *raw, nil
}

// BlockHeight returns the best block number
func (a *Adapter) BlockHeight(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	header, err := a.api.RPC.Chain.GetHeaderLatest()
	if err != nil {
		return 0, err
	}
	return uint32(header.Number), nil
}

func (a *Adapter) accountInfo(ctx context.Context, accountId []byte) (types.AccountInfo, error) {
	var info types.AccountInfo
	meta, err := a.Metadata(ctx)
	if err != nil {
		return info, err
	}
	key, err := types.CreateStorageKey(meta, "System", "Account", accountId)
	if err != nil {
		return info, err
	}
	// a missing account decodes as the zero value
	if _, err := a.api.RPC.State.GetStorageLatest(key, &info); err != nil {
		return info, err
	}
	return info, nil
}

// FreeBalance returns the free balance of address in native minor units
func (a *Adapter) FreeBalance(ctx context.Context, address string) (*big.Int, error) {
	_, accountId, err := ss58.Decode(address)
	if err != nil {
		return nil, err
	}
	info, err := a.accountInfo(ctx, accountId)
	if err != nil {
		return nil, err
	}
	if info.Data.Free.Int == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(info.Data.Free.Int), nil
}

type paymentInfo struct {
	PartialFee json.Number `json:"partialFee"`
}

// PaymentInfo returns the partial fee for call. Fees depend on the encoded
// length and weight only, so the extrinsic is signed with a throwaway dev key
// rather than the payer's.
func (a *Adapter) PaymentInfo(ctx context.Context, call types.Call, _ string) (*big.Int, error) {
	ext, err := a.signExtrinsic(ctx, call, signature.TestKeyringPairAlice, 0)
	if err != nil {
		return nil, err
	}
	extHex, err := codec.EncodeToHex(ext)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var info paymentInfo
	if err := a.api.Client.Call(&info, "payment_queryInfo", extHex); err != nil {
		return nil, err
	}
	fee, ok := new(big.Int).SetString(info.PartialFee.String(), 10)
	if !ok {
		return nil, fmt.Errorf("unexpected partial fee %q", info.PartialFee)
	}
	return fee, nil
}

func (a *Adapter) eventRetriever() (retriever.EventRetriever, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.events != nil {
		return a.events, nil
	}
	r, err := retriever.NewDefaultEventRetriever(
		state.NewEventProvider(a.api.RPC.State),
		a.api.RPC.State,
	)
	if err != nil {
		return nil, err
	}
	a.events = r
	return r, nil
}
