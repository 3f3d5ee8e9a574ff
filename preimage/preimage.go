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

// Package preimage encodes treasury proposal calls, derives their
// content-addressed preimage and decodes previously registered preimages.
package preimage

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"golang.org/x/crypto/blake2b"
)

// Preimage is an encoded call registered by its blake2-256 hash. Hash and
// Length are derived together from EncodedCall and are never set on their
// own. EncodedCall is nil for preimages resolved without their bytes.
type Preimage struct {
	EncodedCall    []byte
	Hash           types.H256
	Length         uint32
	StorageDeposit *big.Int
}

// FromBytes derives the preimage of already encoded call data
func FromBytes(encoded []byte, deposit DepositParams) Preimage {
	data := make([]byte, len(encoded))
	copy(data, encoded)
	length := uint32(len(data))
	return Preimage{
		EncodedCall:    data,
		Hash:           types.H256(blake2b.Sum256(data)),
		Length:         length,
		StorageDeposit: deposit.For(length),
	}
}

// FromCall encodes call and derives its preimage
func FromCall(call types.Call, deposit DepositParams) Preimage {
	return FromBytes(EncodeCall(call), deposit)
}

// HashHex returns the 0x prefixed hash
func (p Preimage) HashHex() string {
	return HashToHex(p.Hash)
}

// CallHex returns the 0x prefixed encoded call
func (p Preimage) CallHex() string {
	return "0x" + hex.EncodeToString(p.EncodedCall)
}

// HashToHex renders a hash with a 0x prefix
func HashToHex(h types.H256) string {
	return "0x" + hex.EncodeToString(h[:])
}

// ParseHash parses a 0x prefixed 32-byte hex hash
func ParseHash(s string) (types.H256, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") || len(s) != 66 {
		return types.H256{}, fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return types.H256{}, fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}
	return types.NewH256(b), nil
}

// LengthFromHex returns the byte length of a 0x prefixed hex string,
// rounding a trailing half byte up
func LengthFromHex(s string) (uint32, error) {
	if !strings.HasPrefix(s, "0x") {
		return 0, fmt.Errorf("%w: missing 0x prefix", ErrMalformedCall)
	}
	return uint32((len(s) - 2 + 1) / 2), nil
}

// DecodeHex parses 0x prefixed call data
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") {
		return nil, fmt.Errorf("%w: missing 0x prefix", ErrMalformedCall)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCall, err)
	}
	return b, nil
}
