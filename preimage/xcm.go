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

package preimage

import (
	"fmt"
	"math/big"
)

// XCM version used when encoding locations
const xcmVersion = 4

// JunctionKind is the SCALE variant of an XCM junction
type JunctionKind uint8

const (
	JunctionParachain      JunctionKind = 0
	JunctionAccountId32    JunctionKind = 1
	JunctionAccountIndex64 JunctionKind = 2
	JunctionAccountKey20   JunctionKind = 3
	JunctionPalletInstance JunctionKind = 4
	JunctionGeneralIndex   JunctionKind = 5
	JunctionGeneralKey     JunctionKind = 6
	JunctionOnlyChild      JunctionKind = 7
)

// Junction is the subset of XCM junctions that appear in treasury spends.
// Network IDs on account junctions are decoded but not kept.
type Junction struct {
	Kind           JunctionKind
	Parachain      uint32
	AccountId      []byte
	PalletInstance uint8
	GeneralIndex   *big.Int
}

// Location is an XCM location relative to the relay chain
type Location struct {
	Parents  uint8
	Interior []Junction
}

func parachainJunction(id uint32) Junction {
	return Junction{Kind: JunctionParachain, Parachain: id}
}

func accountJunction(accountId []byte) Junction {
	return Junction{Kind: JunctionAccountId32, AccountId: accountId}
}

func (w *callWriter) junction(j Junction) {
	w.byte(byte(j.Kind))
	switch j.Kind {
	case JunctionParachain:
		w.compactUint(uint64(j.Parachain))
	case JunctionAccountId32:
		if len(j.AccountId) != 32 {
			w.err = fmt.Errorf("%w: account id must be 32 bytes", ErrInvalidBeneficiary)
			return
		}
		// network: None
		w.byte(0)
		w.raw(j.AccountId)
	case JunctionPalletInstance:
		w.byte(j.PalletInstance)
	case JunctionGeneralIndex:
		w.compact(j.GeneralIndex)
	default:
		w.err = fmt.Errorf("%w: cannot encode junction %d", ErrInvalidBeneficiary, j.Kind)
	}
}

func (w *callWriter) location(l Location) {
	if len(l.Interior) > 8 {
		w.err = fmt.Errorf("%w: too many junctions", ErrInvalidBeneficiary)
		return
	}
	w.byte(l.Parents)
	// Junctions::Here is variant 0, X1..X8 are variants 1..8
	w.byte(byte(len(l.Interior)))
	for _, j := range l.Interior {
		w.junction(j)
	}
}

func (w *callWriter) versionedLocation(l Location) {
	w.byte(xcmVersion)
	w.location(l)
}

// versionedLocatableAsset writes a VersionedLocatableAsset: the chain the
// asset lives on followed by the asset's ID on that chain
func (w *callWriter) versionedLocatableAsset(chain, assetId Location) {
	w.byte(xcmVersion)
	w.location(chain)
	w.location(assetId)
}

func (c *callReader) skipNetworkId() error {
	tag, err := c.byte()
	if err != nil {
		return err
	}
	if tag == 0 {
		return nil
	}
	if tag != 1 {
		return fmt.Errorf("%w: bad network option tag %d", ErrMalformedCall, tag)
	}
	variant, err := c.byte()
	if err != nil {
		return err
	}
	switch variant {
	case 0:
		// ByGenesis
		_, err = c.fixed(32)
	case 1:
		// ByFork
		_, err = c.fixed(40)
	case 2, 3, 4, 5, 6, 8, 9, 10:
	case 7:
		// Ethereum { chain_id }
		_, err = c.compact()
	default:
		err = fmt.Errorf("%w: unknown network id %d", ErrMalformedCall, variant)
	}
	return err
}

func (c *callReader) junction() (Junction, error) {
	kind, err := c.byte()
	if err != nil {
		return Junction{}, err
	}
	j := Junction{Kind: JunctionKind(kind)}
	switch j.Kind {
	case JunctionParachain:
		j.Parachain, err = c.compactUint32()
	case JunctionAccountId32:
		if err = c.skipNetworkId(); err == nil {
			j.AccountId, err = c.fixed(32)
		}
	case JunctionAccountIndex64:
		if err = c.skipNetworkId(); err == nil {
			_, err = c.compact()
		}
	case JunctionAccountKey20:
		if err = c.skipNetworkId(); err == nil {
			_, err = c.fixed(20)
		}
	case JunctionPalletInstance:
		j.PalletInstance, err = c.byte()
	case JunctionGeneralIndex:
		j.GeneralIndex, err = c.compact()
	case JunctionGeneralKey:
		if _, err = c.byte(); err == nil {
			_, err = c.fixed(32)
		}
	case JunctionOnlyChild:
	default:
		err = fmt.Errorf("%w: unsupported junction %d", ErrUnsupportedCall, kind)
	}
	return j, err
}

func (c *callReader) location() (Location, error) {
	var l Location
	var err error
	if l.Parents, err = c.byte(); err != nil {
		return l, err
	}
	count, err := c.byte()
	if err != nil {
		return l, err
	}
	if count > 8 {
		return l, fmt.Errorf("%w: bad junctions variant %d", ErrMalformedCall, count)
	}
	for range int(count) {
		j, err := c.junction()
		if err != nil {
			return l, err
		}
		l.Interior = append(l.Interior, j)
	}
	return l, nil
}

func (c *callReader) readXcmVersion() error {
	v, err := c.byte()
	if err != nil {
		return err
	}
	// V3, V4 and V5 share the encoding of every junction we accept
	if v < 3 || v > 5 {
		return fmt.Errorf("%w: unsupported xcm version %d", ErrUnsupportedCall, v)
	}
	return nil
}

func (c *callReader) versionedLocation() (Location, error) {
	if err := c.readXcmVersion(); err != nil {
		return Location{}, err
	}
	return c.location()
}

func (c *callReader) versionedLocatableAsset() (Location, Location, error) {
	if err := c.readXcmVersion(); err != nil {
		return Location{}, Location{}, err
	}
	chain, err := c.location()
	if err != nil {
		return Location{}, Location{}, err
	}
	assetId, err := c.location()
	return chain, assetId, err
}
