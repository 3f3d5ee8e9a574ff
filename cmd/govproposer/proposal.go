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

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/beneficiary"
	"github.com/polkassembly/govproposer/preimage"
	"github.com/polkassembly/govproposer/wizard"
	"gopkg.in/yaml.v3"
)

// proposalFile is the YAML description of a proposal consumed by
// "propose" and "preimage build". Amounts are in major units.
type proposalFile struct {
	Proposer      string             `yaml:"proposer"`
	Title         string             `yaml:"title"`
	Content       string             `yaml:"content"`
	Tags          []string           `yaml:"tags"`
	DiscussionID  *int64             `yaml:"discussionId"`
	PreimageHash  string             `yaml:"preimageHash"`
	Asset         string             `yaml:"asset"`
	Beneficiaries []beneficiaryEntry `yaml:"beneficiaries"`
	Track         *uint16            `yaml:"track"`
	Enactment     *enactmentEntry    `yaml:"enactment"`
}

type beneficiaryEntry struct {
	Address string `yaml:"address"`
	Amount  string `yaml:"amount"`
}

type enactmentEntry struct {
	AtBlock     *uint32 `yaml:"atBlock"`
	AfterBlocks *uint32 `yaml:"afterBlocks"`
}

func loadProposalFile(path string) (*proposalFile, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading proposal file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	var ret proposalFile
	if err := dec.Decode(&ret); err != nil {
		return nil, fmt.Errorf("error parsing proposal file: %w", err)
	}
	return &ret, nil
}

func (p *proposalFile) assetKind() asset.Kind {
	if p.Asset == "native" {
		return asset.KindNative
	}
	return asset.Kind(p.Asset)
}

// beneficiaries converts the file's entries to minor units of the selected
// asset
func (p *proposalFile) beneficiaries(reg *asset.Registry) (beneficiary.Set, asset.Asset, error) {
	a, ok := reg.ByKind(p.assetKind())
	if !ok {
		return nil, asset.Asset{}, fmt.Errorf("%w: %q", asset.ErrUnknownAsset, p.Asset)
	}
	if len(p.Beneficiaries) == 0 {
		return nil, a, beneficiary.ErrEmptySet
	}
	if beneficiary.RequiresSingleBeneficiary(a) && len(p.Beneficiaries) > 1 {
		return nil, a, fmt.Errorf("%s spends allow a single beneficiary", a.Symbol)
	}
	set := make(beneficiary.Set, 0, len(p.Beneficiaries))
	for i, b := range p.Beneficiaries {
		amount, err := asset.ToMinorUnits(b.Amount, a.Decimals)
		if err != nil {
			return nil, a, fmt.Errorf("beneficiary %d: %w", i, err)
		}
		set = append(set, beneficiary.Beneficiary{
			Address: b.Address,
			Amount:  amount.String(),
			Asset:   a.Kind,
		})
	}
	return set, a, nil
}

func (p *proposalFile) enactment() (preimage.Enactment, error) {
	if p.Enactment == nil {
		return preimage.DefaultEnactment(), nil
	}
	switch {
	case p.Enactment.AtBlock != nil && p.Enactment.AfterBlocks != nil:
		return preimage.Enactment{}, fmt.Errorf(
			"%w: set only one of atBlock and afterBlocks",
			preimage.ErrInvalidEnactment,
		)
	case p.Enactment.AtBlock != nil:
		return preimage.Enactment{Kind: preimage.EnactAtBlock, Value: *p.Enactment.AtBlock}, nil
	case p.Enactment.AfterBlocks != nil:
		return preimage.Enactment{Kind: preimage.EnactAfterBlocks, Value: *p.Enactment.AfterBlocks}, nil
	default:
		return preimage.DefaultEnactment(), nil
	}
}

// apply walks the wizard from the write step to the submit step
func (p *proposalFile) apply(ctx context.Context, w *wizard.Controller, reg *asset.Registry) error {
	if p.Proposer != "" {
		if err := w.SetProposer(ctx, p.Proposer); err != nil {
			return err
		}
	}
	var err error
	if p.DiscussionID != nil {
		err = w.LinkDiscussion(ctx, *p.DiscussionID, p.Title, p.Content)
	} else {
		err = w.WriteDiscussion(ctx, p.Title, p.Content, p.Tags)
	}
	if err != nil {
		return err
	}
	if err := w.Next(ctx); err != nil {
		return err
	}
	if p.PreimageHash != "" {
		if len(p.Beneficiaries) > 0 {
			return errors.New("beneficiaries cannot be set together with preimageHash")
		}
		if err := w.UseExistingPreimage(ctx, true); err != nil {
			return err
		}
		if err := w.SetPreimageHash(ctx, p.PreimageHash); err != nil {
			return err
		}
	} else {
		set, a, err := p.beneficiaries(reg)
		if err != nil {
			return err
		}
		if err := w.UseExistingPreimage(ctx, false); err != nil {
			return err
		}
		if err := w.Dispatch(ctx, beneficiary.ReplaceState{State: set}); err != nil {
			return err
		}
		if err := w.SelectAsset(ctx, a.Kind); err != nil {
			return err
		}
	}
	if err := w.SetTrack(ctx, p.Track); err != nil {
		return err
	}
	e, err := p.enactment()
	if err != nil {
		return err
	}
	if err := w.SetEnactment(ctx, e); err != nil {
		return err
	}
	return w.Next(ctx)
}
