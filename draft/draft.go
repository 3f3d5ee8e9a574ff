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

// Package draft persists the in-progress proposal so the wizard can resume
// either of its branches after a restart.
package draft

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/beneficiary"
	"github.com/polkassembly/govproposer/preimage"
)

// StorageKey is the single well-known key the draft is stored under
const StorageKey = "treasuryProposalCreationForm"

var ErrNoDraft = errors.New("no saved draft")

// Step is a wizard step
type Step string

const (
	StepWrite    Step = "write"
	StepPreimage Step = "preimage"
	StepSubmit   Step = "submit"
)

// WithPreimageForm holds the branch that links an existing preimage
type WithPreimageForm struct {
	PreimageHash   string             `json:"preimageHash"`
	PreimageLength uint32             `json:"preimageLength"`
	Beneficiaries  beneficiary.Set    `json:"beneficiaries,omitempty"`
	AssetKind      asset.Kind         `json:"assetKind,omitempty"`
	TrackID        *uint16            `json:"trackId,omitempty"`
	Enactment      preimage.Enactment `json:"enactment"`
}

// WithoutPreimageForm holds the branch that builds a new preimage
type WithoutPreimageForm struct {
	Beneficiaries beneficiary.Set    `json:"beneficiaries"`
	AssetKind     asset.Kind         `json:"assetKind,omitempty"`
	TrackID       *uint16            `json:"trackId,omitempty"`
	Enactment     preimage.Enactment `json:"enactment"`
}

// DiscussionLinkForm links an existing off-chain discussion
type DiscussionLinkForm struct {
	DiscussionID int64  `json:"discussionId"`
	Title        string `json:"title"`
	Content      string `json:"content"`
}

// WithoutDiscussionLinkForm holds a title and description written in place
type WithoutDiscussionLinkForm struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// Draft is the persisted wizard state. Both branches of each choice are
// kept so switching back and forth loses nothing.
type Draft struct {
	ID                        string                     `json:"id"`
	Network                   string                     `json:"network"`
	Proposer                  string                     `json:"proposer,omitempty"`
	Step                      Step                       `json:"step"`
	ExistingPreimage          bool                       `json:"isPreimage"`
	LinkDiscussion            bool                       `json:"isDiscussionLinked"`
	WithPreimageForm          *WithPreimageForm          `json:"withPreimageForm,omitempty"`
	WithoutPreimageForm       *WithoutPreimageForm       `json:"withoutPreimageForm,omitempty"`
	DiscussionLinkForm        *DiscussionLinkForm        `json:"discussionLinkForm,omitempty"`
	WithoutDiscussionLinkForm *WithoutDiscussionLinkForm `json:"withoutDiscussionLinkForm,omitempty"`
	UpdatedAt                 time.Time                  `json:"updatedAt"`
}

// New returns an empty draft on the write step
func New(network string) *Draft {
	return &Draft{
		ID:      uuid.NewString(),
		Network: network,
		Step:    StepWrite,
		WithoutPreimageForm: &WithoutPreimageForm{
			Beneficiaries: beneficiary.Set{{Amount: "0"}},
			Enactment:     preimage.DefaultEnactment(),
		},
	}
}

// Title returns the title of the active discussion branch
func (d *Draft) Title() string {
	if d.LinkDiscussion && d.DiscussionLinkForm != nil {
		return d.DiscussionLinkForm.Title
	}
	if d.WithoutDiscussionLinkForm != nil {
		return d.WithoutDiscussionLinkForm.Title
	}
	return ""
}

// Content returns the description of the active discussion branch
func (d *Draft) Content() string {
	if d.LinkDiscussion && d.DiscussionLinkForm != nil {
		return d.DiscussionLinkForm.Content
	}
	if d.WithoutDiscussionLinkForm != nil {
		return d.WithoutDiscussionLinkForm.Content
	}
	return ""
}

// DiscussionID returns the linked discussion, if any
func (d *Draft) DiscussionID() *int64 {
	if d.LinkDiscussion && d.DiscussionLinkForm != nil {
		id := d.DiscussionLinkForm.DiscussionID
		return &id
	}
	return nil
}

// Repository stores at most one draft
type Repository interface {
	Load(ctx context.Context) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
	Clear(ctx context.Context) error
}
