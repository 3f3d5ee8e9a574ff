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

package models

import (
	"errors"
	"time"
)

var (
	ErrPreimageNotFound     = errors.New("preimage not found")
	ErrProposalNotFound     = errors.New("treasury proposal not found")
	ErrProposalAlreadyExist = errors.New("treasury proposal already exists")
)

// MigrateModels lists every model created by AutoMigrate
var MigrateModels = []any{
	&Preimage{},
	&TreasuryProposal{},
}

// Preimage is a noted preimage as indexed by the metadata API. The same hash
// may be noted more than once; the latest row wins.
type Preimage struct {
	ID           uint   `gorm:"primarykey"`
	Network      string `gorm:"index:idx_preimage_network_hash,priority:1;size:32;not null"`
	Hash         string `gorm:"index:idx_preimage_network_hash,priority:2;size:66;not null"`
	Length       uint32 `gorm:"not null"`
	Section      string `gorm:"size:64"`
	Method       string `gorm:"size:64"`
	ProposedCall []byte
	EncodedCall  []byte
	CreatedAt    time.Time
}

// TableName returns the table name
func (Preimage) TableName() string {
	return "preimage"
}

// TreasuryProposal is the off-chain metadata of a treasury referendum
type TreasuryProposal struct {
	ID                 uint   `gorm:"primarykey"`
	Network            string `gorm:"uniqueIndex:idx_proposal_network_index,priority:1;size:32;not null"`
	ReferendumIndex    uint32 `gorm:"uniqueIndex:idx_proposal_network_index,priority:2;not null"`
	TrackID            uint16 `gorm:"not null"`
	Proposer           string `gorm:"index;size:64;not null"`
	Title              string
	Content            string
	DiscussionID       *int64
	PreimageHash       string `gorm:"index;size:66;not null"`
	PreimageLength     uint32
	AssetKind          string `gorm:"size:16"`
	Amount             string
	Beneficiaries      []byte
	USDValueOnCreation string
	USDValueOnClosed   *string
	CreatedAt          time.Time
}

// TableName returns the table name
func (TreasuryProposal) TableName() string {
	return "treasury_proposal"
}
