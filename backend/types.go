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

// Package backend is the client side of the metadata API that indexes
// preimages, values proposals in USD and records proposal metadata.
package backend

import (
	"encoding/json"
	"errors"

	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/beneficiary"
)

const (
	PathLatestPreimage = "/preimages/latest"
	PathUSDValues      = "/treasuryProposalUSDValues"
	PathCreateProposal = "/auth/actions/createTreasuryProposal"
)

var ErrNotFound = errors.New("not found")

// PreimageRecord is the backend's view of a noted preimage. ProposedCall is
// the human readable call ({section, method, args} args object).
// EncodedCall, when present, holds the raw call bytes as 0x hex.
type PreimageRecord struct {
	Hash         string          `json:"hash"`
	Length       uint32          `json:"length"`
	Method       string          `json:"method"`
	Section      string          `json:"section"`
	ProposedCall json.RawMessage `json:"proposedCall,omitempty"`
	EncodedCall  string          `json:"encodedCall,omitempty"`
}

// USDValuesRequest asks for the USD value of a proposal's requested amount
type USDValuesRequest struct {
	Network   string     `json:"network"`
	Amount    string     `json:"amount"`
	AssetKind asset.Kind `json:"assetKind,omitempty"`
	PostID    *int64     `json:"postId,omitempty"`
}

// USDValuesResponse carries the value at creation and, once the proposal is
// closed, at closing. Values are decimal strings in USD.
type USDValuesResponse struct {
	USDValueOnCreation string  `json:"usdValueOnCreation"`
	USDValueOnClosed   *string `json:"usdValueOnClosed"`
}

// CreateProposalRequest links an on-chain referendum to its off-chain
// metadata
type CreateProposalRequest struct {
	Network         string          `json:"network"`
	ReferendumIndex uint32          `json:"postId"`
	TrackID         uint16          `json:"trackNumber"`
	ProposerAddress string          `json:"proposerAddress"`
	Title           string          `json:"title"`
	Content         string          `json:"content"`
	DiscussionID    *int64          `json:"discussionId,omitempty"`
	PreimageHash    string          `json:"preimageHash"`
	PreimageLength  uint32          `json:"preimageLength"`
	EncodedCall     string          `json:"encodedCall,omitempty"`
	AssetKind       asset.Kind      `json:"assetKind,omitempty"`
	Beneficiaries   beneficiary.Set `json:"beneficiaries"`
}

type CreateProposalResponse struct {
	PostID int64 `json:"post_id"`
}

// Error is the JSON error body returned by the metadata API
type Error struct {
	Code        int32  `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
	Retriable   bool   `json:"retriable"`
}

func (e *Error) Error() string {
	if e.Description != "" {
		return e.Message + ": " + e.Description
	}
	return e.Message
}
