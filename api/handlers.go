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

package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/backend"
	"github.com/polkassembly/govproposer/beneficiary"
	"github.com/polkassembly/govproposer/database/models"
	"github.com/polkassembly/govproposer/preimage"
)

func (s *Server) handleLatestPreimage(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("hash")
	if _, err := preimage.ParseHash(hash); err != nil {
		s.writeError(w, r, wrapErr(ErrInvalidRequest, err))
		return
	}
	p, err := s.config.Database.LatestPreimage(s.config.Network, strings.ToLower(hash))
	if err != nil {
		if errors.Is(err, models.ErrPreimageNotFound) {
			s.writeError(w, r, ErrPreimageNotFound)
			return
		}
		s.logger.Error("preimage lookup failed", "hash", hash, "error", err)
		s.writeError(w, r, wrapErr(ErrInternal, err))
		return
	}
	rec := backend.PreimageRecord{
		Hash:    p.Hash,
		Length:  p.Length,
		Section: p.Section,
		Method:  p.Method,
	}
	if len(p.ProposedCall) > 0 {
		rec.ProposedCall = json.RawMessage(p.ProposedCall)
	}
	if len(p.EncodedCall) > 0 {
		rec.EncodedCall = preimage.Preimage{EncodedCall: p.EncodedCall}.CallHex()
	}
	s.writeJSON(w, r, http.StatusOK, rec)
}

func (s *Server) handleUSDValues(w http.ResponseWriter, r *http.Request) {
	var req backend.USDValuesRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.writeError(w, r, wrapErr(ErrInvalidRequest, err))
		return
	}
	if req.Network != "" && req.Network != s.config.Network {
		s.writeError(w, r, ErrNetworkNotSupported)
		return
	}
	if req.PostID != nil && *req.PostID >= 0 && *req.PostID <= 0xffffffff {
		proposal, err := s.config.Database.Proposal(s.config.Network, uint32(*req.PostID))
		if err == nil && proposal.USDValueOnCreation != "" {
			s.writeJSON(w, r, http.StatusOK, backend.USDValuesResponse{
				USDValueOnCreation: proposal.USDValueOnCreation,
				USDValueOnClosed:   proposal.USDValueOnClosed,
			})
			return
		}
	}
	value, apiErr := s.usdValue(req.Amount, req.AssetKind)
	if apiErr != nil {
		s.writeError(w, r, apiErr)
		return
	}
	s.writeJSON(w, r, http.StatusOK, backend.USDValuesResponse{USDValueOnCreation: value})
}

func (s *Server) usdValue(amount string, kind asset.Kind) (string, *backend.Error) {
	a, ok := s.config.Assets.ByKind(kind)
	if !ok {
		return "", wrapErr(ErrInvalidRequest, fmt.Errorf("%w: %q", asset.ErrUnknownAsset, kind))
	}
	v, err := asset.ParseMinor(amount)
	if err != nil {
		return "", wrapErr(ErrInvalidRequest, err)
	}
	value, ok := asset.USDValue(v, a, s.config.Prices)
	if !ok {
		return "", ErrPriceUnavailable
	}
	return value, nil
}

func (s *Server) authorized(r *http.Request) bool {
	if s.config.APIKey == "" {
		return true
	}
	got := r.Header.Get("x-api-key")
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.config.APIKey)) == 1
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.writeError(w, r, ErrUnauthorized)
		return
	}
	var req backend.CreateProposalRequest
	if err := decodeRequest(w, r, &req); err != nil {
		s.writeError(w, r, wrapErr(ErrInvalidRequest, err))
		return
	}
	if req.Network != s.config.Network {
		s.writeError(w, r, ErrNetworkNotSupported)
		return
	}
	if req.ProposerAddress == "" {
		s.writeError(w, r, wrapErr(ErrInvalidRequest, errors.New("missing proposer address")))
		return
	}
	hash, err := preimage.ParseHash(req.PreimageHash)
	if err != nil {
		s.writeError(w, r, wrapErr(ErrInvalidRequest, err))
		return
	}
	total, err := beneficiary.Total(req.Beneficiaries)
	if err != nil {
		s.writeError(w, r, wrapErr(ErrInvalidRequest, err))
		return
	}
	beneficiaries, err := json.Marshal(req.Beneficiaries)
	if err != nil {
		s.writeError(w, r, wrapErr(ErrInternal, err))
		return
	}
	var indexed *models.Preimage
	if req.EncodedCall != "" {
		indexed, err = s.preimageRecord(hash, req.EncodedCall)
		if err != nil {
			s.writeError(w, r, wrapErr(ErrInvalidRequest, err))
			return
		}
	}
	proposal := &models.TreasuryProposal{
		Network:         req.Network,
		ReferendumIndex: req.ReferendumIndex,
		TrackID:         req.TrackID,
		Proposer:        req.ProposerAddress,
		Title:           req.Title,
		Content:         req.Content,
		DiscussionID:    req.DiscussionID,
		PreimageHash:    preimage.HashToHex(hash),
		PreimageLength:  req.PreimageLength,
		AssetKind:       string(req.AssetKind),
		Amount:          total.String(),
		Beneficiaries:   beneficiaries,
	}
	// A missing price only loses the valuation, not the proposal
	if value, apiErr := s.usdValue(total.String(), req.AssetKind); apiErr == nil {
		proposal.USDValueOnCreation = value
	}
	if err := s.config.Database.CreateProposal(proposal, indexed); err != nil {
		if errors.Is(err, models.ErrProposalAlreadyExist) {
			s.writeError(w, r, ErrProposalExists)
			return
		}
		s.logger.Error("failed to record proposal", "referendum", req.ReferendumIndex, "error", err)
		s.writeError(w, r, wrapErr(ErrInternal, err))
		return
	}
	s.logger.Info(
		"recorded treasury proposal",
		"referendum", req.ReferendumIndex,
		"track", req.TrackID,
		"preimage", proposal.PreimageHash,
	)
	s.writeJSON(w, r, http.StatusOK, backend.CreateProposalResponse{PostID: int64(req.ReferendumIndex)})
}

// preimageRecord checks that encodedCall hashes to hash and builds the
// index row for it
func (s *Server) preimageRecord(hash types.H256, encodedCall string) (*models.Preimage, error) {
	data, err := preimage.DecodeHex(encodedCall)
	if err != nil {
		return nil, err
	}
	p := preimage.FromBytes(data, preimage.DepositParams{})
	if p.Hash != hash {
		return nil, fmt.Errorf("%w: encoded call hashes to %s", preimage.ErrInvalidHash, p.HashHex())
	}
	rec := &models.Preimage{
		Network:     s.config.Network,
		Hash:        p.HashHex(),
		Length:      p.Length,
		EncodedCall: p.EncodedCall,
	}
	if s.config.Runtime.Calls != nil && len(data) >= 2 {
		name, err := s.config.Runtime.Calls.CallName(types.CallIndex{SectionIndex: data[0], MethodIndex: data[1]})
		if err == nil {
			if section, method, ok := strings.Cut(name, "."); ok {
				rec.Section = strings.ToLower(section)
				rec.Method = method
			}
		}
	}
	return rec, nil
}
