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

// Package track selects the OpenGov track a treasury proposal is submitted
// on from its total requested funding.
package track

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/polkassembly/govproposer/asset"
)

// GroupTreasury is the group shared by every spending track
const GroupTreasury = "Treasury"

// Unbounded is the textual form of a track without a spend limit
const Unbounded = "unbounded"

var ErrNoEligibleTrack = errors.New("no treasury track allows the requested amount")

// Track is a governance lane. A nil MaxSpend means the track has no spend
// limit.
type Track struct {
	ID       uint16
	Name     string
	Origin   string
	Group    string
	MaxSpend *big.Int
}

// Unbounded reports whether the track has no spend limit
func (t Track) Unbounded() bool {
	return t.MaxSpend == nil
}

// Allows reports whether total fits under the track's spend limit
func (t Track) Allows(total *big.Int) bool {
	return t.Unbounded() || t.MaxSpend.Cmp(total) >= 0
}

func (t Track) String() string {
	limit := Unbounded
	if !t.Unbounded() {
		limit = t.MaxSpend.String()
	}
	return fmt.Sprintf("%s (#%d, max spend %s)", t.Name, t.ID, limit)
}

// Table is a network's track configuration in declaration order
type Table []Track

// ByID returns the track with the given ID
func (tbl Table) ByID(id uint16) (Track, bool) {
	for _, t := range tbl {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// Treasury returns the treasury tracks ordered by ascending spend limit.
// Tracks with equal limits keep their declaration order.
func (tbl Table) Treasury() Table {
	ret := make(Table, 0, len(tbl))
	for _, t := range tbl {
		if t.Group == GroupTreasury {
			ret = append(ret, t)
		}
	}
	slices.SortStableFunc(ret, compareMaxSpend)
	return ret
}

func compareMaxSpend(a, b Track) int {
	switch {
	case a.Unbounded() && b.Unbounded():
		return 0
	case a.Unbounded():
		return 1
	case b.Unbounded():
		return -1
	}
	return a.MaxSpend.Cmp(b.MaxSpend)
}

// Select returns the cheapest treasury track whose spend limit covers total
// (native minor units). ErrNoEligibleTrack is returned when the funding
// exceeds every limit.
func Select(total *big.Int, tbl Table) (Track, error) {
	if total == nil || total.Sign() < 0 {
		return Track{}, fmt.Errorf("invalid funding total %v", total)
	}
	for _, t := range tbl.Treasury() {
		if t.Allows(total) {
			return t, nil
		}
	}
	return Track{}, fmt.Errorf("%w: %s", ErrNoEligibleTrack, total.String())
}

// ParseMaxSpend parses a spend limit in minor units. "unbounded" (or an
// empty string) yields nil.
func ParseMaxSpend(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, Unbounded) {
		return nil, nil
	}
	return asset.ParseMinor(s)
}

func units(major int64, decimals int32) *big.Int {
	return asset.Rescale(big.NewInt(major), 0, decimals)
}

// PolkadotTracks returns the Polkadot OpenGov track table
func PolkadotTracks() Table {
	const dec = 10
	return Table{
		{ID: 0, Name: "root", Origin: "Root", Group: "Main"},
		{ID: 1, Name: "whitelisted_caller", Origin: "WhitelistedCaller", Group: "Whitelist"},
		{ID: 10, Name: "staking_admin", Origin: "StakingAdmin", Group: "Admin"},
		{ID: 11, Name: "treasurer", Origin: "Treasurer", Group: GroupTreasury, MaxSpend: units(10_000_000, dec)},
		{ID: 12, Name: "lease_admin", Origin: "LeaseAdmin", Group: "Admin"},
		{ID: 13, Name: "fellowship_admin", Origin: "FellowshipAdmin", Group: "Admin"},
		{ID: 14, Name: "general_admin", Origin: "GeneralAdmin", Group: "Admin"},
		{ID: 15, Name: "auction_admin", Origin: "AuctionAdmin", Group: "Admin"},
		{ID: 20, Name: "referendum_canceller", Origin: "ReferendumCanceller", Group: "Governance"},
		{ID: 21, Name: "referendum_killer", Origin: "ReferendumKiller", Group: "Governance"},
		{ID: 30, Name: "small_tipper", Origin: "SmallTipper", Group: GroupTreasury, MaxSpend: units(250, dec)},
		{ID: 31, Name: "big_tipper", Origin: "BigTipper", Group: GroupTreasury, MaxSpend: units(1_000, dec)},
		{ID: 32, Name: "small_spender", Origin: "SmallSpender", Group: GroupTreasury, MaxSpend: units(10_000, dec)},
		{ID: 33, Name: "medium_spender", Origin: "MediumSpender", Group: GroupTreasury, MaxSpend: units(100_000, dec)},
		{ID: 34, Name: "big_spender", Origin: "BigSpender", Group: GroupTreasury, MaxSpend: units(1_000_000, dec)},
	}
}

// KusamaTracks returns the Kusama OpenGov track table. The Kusama treasurer
// track has no spend limit.
func KusamaTracks() Table {
	const dec = 12
	return Table{
		{ID: 0, Name: "root", Origin: "Root", Group: "Main"},
		{ID: 1, Name: "whitelisted_caller", Origin: "WhitelistedCaller", Group: "Whitelist"},
		{ID: 10, Name: "staking_admin", Origin: "StakingAdmin", Group: "Admin"},
		{ID: 11, Name: "treasurer", Origin: "Treasurer", Group: GroupTreasury},
		{ID: 12, Name: "lease_admin", Origin: "LeaseAdmin", Group: "Admin"},
		{ID: 13, Name: "fellowship_admin", Origin: "FellowshipAdmin", Group: "Admin"},
		{ID: 14, Name: "general_admin", Origin: "GeneralAdmin", Group: "Admin"},
		{ID: 15, Name: "auction_admin", Origin: "AuctionAdmin", Group: "Admin"},
		{ID: 20, Name: "referendum_canceller", Origin: "ReferendumCanceller", Group: "Governance"},
		{ID: 21, Name: "referendum_killer", Origin: "ReferendumKiller", Group: "Governance"},
		{ID: 30, Name: "small_tipper", Origin: "SmallTipper", Group: GroupTreasury, MaxSpend: units(8, dec)},
		{ID: 31, Name: "big_tipper", Origin: "BigTipper", Group: GroupTreasury, MaxSpend: units(33, dec)},
		{ID: 32, Name: "small_spender", Origin: "SmallSpender", Group: GroupTreasury, MaxSpend: units(333, dec)},
		{ID: 33, Name: "medium_spender", Origin: "MediumSpender", Group: GroupTreasury, MaxSpend: units(3_333, dec)},
		{ID: 34, Name: "big_spender", Origin: "BigSpender", Group: GroupTreasury, MaxSpend: units(33_333, dec)},
	}
}

// TableForNetwork returns the built-in track table for a network name
func TableForNetwork(network string) (Table, error) {
	switch network {
	case "polkadot":
		return PolkadotTracks(), nil
	case "kusama":
		return KusamaTracks(), nil
	default:
		return nil, fmt.Errorf("no track table for network %q", network)
	}
}
