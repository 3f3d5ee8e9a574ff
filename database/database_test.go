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

package database

import (
	"testing"

	"github.com/polkassembly/govproposer/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "0x9ce343ef6c10b316d8ae92e52066b5ab5ce80dd2656fdb9c233a2636bf70490e"

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New("", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLatestPreimage(t *testing.T) {
	db := newTestDB(t)
	_, err := db.LatestPreimage("polkadot", testHash)
	assert.ErrorIs(t, err, models.ErrPreimageNotFound)

	require.NoError(t, db.AddPreimage(&models.Preimage{Network: "polkadot", Hash: testHash, Length: 41, Method: "old"}))
	require.NoError(t, db.AddPreimage(&models.Preimage{Network: "polkadot", Hash: testHash, Length: 41, Method: "spendLocal"}))
	require.NoError(t, db.AddPreimage(&models.Preimage{Network: "kusama", Hash: testHash, Length: 41, Method: "other"}))

	p, err := db.LatestPreimage("polkadot", testHash)
	require.NoError(t, err)
	assert.Equal(t, "spendLocal", p.Method)
	assert.Equal(t, uint32(41), p.Length)
}

func TestCreateProposal(t *testing.T) {
	db := newTestDB(t)
	proposal := &models.TreasuryProposal{
		Network:         "polkadot",
		ReferendumIndex: 7,
		TrackID:         32,
		Proposer:        "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5",
		PreimageHash:    testHash,
		Amount:          "100000000000",
	}
	preimage := &models.Preimage{Network: "polkadot", Hash: testHash, Length: 41, EncodedCall: []byte{0x13, 0x03}}
	require.NoError(t, db.CreateProposal(proposal, preimage))

	got, err := db.Proposal("polkadot", 7)
	require.NoError(t, err)
	assert.Equal(t, uint16(32), got.TrackID)
	assert.Nil(t, got.USDValueOnClosed)

	p, err := db.LatestPreimage("polkadot", testHash)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x13, 0x03}, p.EncodedCall)

	dup := *proposal
	dup.ID = 0
	assert.ErrorIs(t, db.CreateProposal(&dup, nil), models.ErrProposalAlreadyExist)

	require.NoError(t, db.CloseProposal("polkadot", 7, "12.50"))
	got, err = db.Proposal("polkadot", 7)
	require.NoError(t, err)
	require.NotNil(t, got.USDValueOnClosed)
	assert.Equal(t, "12.50", *got.USDValueOnClosed)

	_, err = db.Proposal("polkadot", 8)
	assert.ErrorIs(t, err, models.ErrProposalNotFound)
	assert.ErrorIs(t, db.CloseProposal("polkadot", 8, "1"), models.ErrProposalNotFound)
}

func TestStoresAreIsolated(t *testing.T) {
	first := newTestDB(t)
	second := newTestDB(t)
	require.NoError(t, first.AddPreimage(&models.Preimage{Network: "polkadot", Hash: testHash, Length: 1}))
	_, err := second.LatestPreimage("polkadot", testHash)
	assert.ErrorIs(t, err, models.ErrPreimageNotFound)
}

func TestOnDisk(t *testing.T) {
	dir := t.TempDir()
	db, err := New(dir, nil, nil)
	require.NoError(t, err)
	require.NoError(t, db.AddPreimage(&models.Preimage{Network: "polkadot", Hash: testHash, Length: 1}))
	require.NoError(t, db.Close())

	db, err = New(dir, nil, nil)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.LatestPreimage("polkadot", testHash)
	assert.NoError(t, err)
}
