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

package submission

import (
	"context"
	"errors"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/polkassembly/govproposer/backend"
)

// GenericFailureMessage is reported when the chain rejects a transaction
// without saying why
const GenericFailureMessage = "transaction failed"

var (
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
	ErrSignerUnavailable    = errors.New("no signer available for proposer")
	ErrSignerMismatch       = errors.New("signer does not match proposer")
	ErrSigningTimeout       = errors.New("timed out waiting for signature")
	ErrCancelled            = errors.New("submission cancelled")
	ErrNoTrack              = errors.New("no track selected")
	ErrStatusLost           = errors.New("transaction status stream ended before inclusion")
)

// ChainError carries the failure reported by the chain. Message is the
// chain's own text when it gave one.
type ChainError struct {
	Message string
}

func (e *ChainError) Error() string {
	return "chain error: " + e.Message
}

func newChainError(msg string) *ChainError {
	if msg == "" {
		msg = GenericFailureMessage
	}
	return &ChainError{Message: msg}
}

// Signer produces signatures for one account
type Signer interface {
	Address() string
}

// Wallet grants access to signers. Enable may block on user interaction.
type Wallet interface {
	Enable(ctx context.Context, appName string) (Signer, error)
}

// TxStatusKind is a step of the transaction status stream
type TxStatusKind string

const (
	TxReady     TxStatusKind = "ready"
	TxBroadcast TxStatusKind = "broadcast"
	TxInBlock   TxStatusKind = "inBlock"
	TxFinalized TxStatusKind = "finalized"
	TxDropped   TxStatusKind = "dropped"
	TxInvalid   TxStatusKind = "invalid"
	TxUsurped   TxStatusKind = "usurped"
	// TxStreamEnded means no further updates will arrive. The extrinsic may
	// still land on chain.
	TxStreamEnded TxStatusKind = "streamEnded"
)

// TxStatus is one update from the transaction status stream. Included
// statuses carry the dispatch outcome.
type TxStatus struct {
	Kind      TxStatusKind
	TxHash    string
	BlockHash string
	// DispatchError is set when the extrinsic was included but failed
	DispatchError *string
	// ReferendumIndex is taken from the Referenda.Submitted event
	ReferendumIndex *uint32
}

// Included reports whether the extrinsic made it into a block
func (s TxStatus) Included() bool {
	return s.Kind == TxInBlock || s.Kind == TxFinalized
}

// Rejected reports whether the transaction pool gave up on the extrinsic
func (s TxStatus) Rejected() bool {
	return s.Kind == TxDropped || s.Kind == TxInvalid || s.Kind == TxUsurped
}

// Chain signs and broadcasts calls. onStatus may be called from any
// goroutine until the returned unsubscribe func is called. The stream ends
// with an included or rejected status, or with TxStreamEnded when the
// subscription fails.
type Chain interface {
	SignAndSend(
		ctx context.Context,
		call types.Call,
		signer Signer,
		onStatus func(TxStatus),
	) (func(), error)
}

// MetadataStore saves the off-chain description of a new proposal and
// returns its post ID
type MetadataStore interface {
	CreateProposal(ctx context.Context, req backend.CreateProposalRequest) (int64, error)
}

// PreimageChecker reports whether a preimage is already noted on chain
type PreimageChecker interface {
	Exists(ctx context.Context, hash types.H256) (bool, uint32, error)
}

func statusError(s TxStatus) error {
	if s.DispatchError != nil {
		return newChainError(*s.DispatchError)
	}
	return newChainError("")
}
