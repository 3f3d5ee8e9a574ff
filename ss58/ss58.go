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

// Package ss58 decodes and encodes Substrate SS58 account addresses.
package ss58

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

// Well-known network prefixes
const (
	PolkadotPrefix  uint16 = 0
	KusamaPrefix    uint16 = 2
	SubstratePrefix uint16 = 42
)

const (
	accountIdLen = 32
	checksumLen  = 2
	// Prefixes 46 and 47 are reserved
	maxPrefix = 16383
)

var checksumPrefix = []byte("SS58PRE")

var (
	ErrInvalidAddress  = errors.New("invalid ss58 address")
	ErrChecksumInvalid = errors.New("ss58 checksum mismatch")
	ErrWrongNetwork    = errors.New("address belongs to a different network")
)

// Decode returns the network prefix and the 32-byte account ID encoded in
// addr.
func Decode(addr string) (uint16, []byte, error) {
	data := base58.Decode(addr)
	if len(data) < 3 {
		return 0, nil, fmt.Errorf("%w: too short", ErrInvalidAddress)
	}
	var prefix uint16
	var prefixLen int
	switch {
	case data[0] < 64:
		prefix = uint16(data[0])
		prefixLen = 1
	case data[0] < 128:
		// Two byte prefix: lower 6 bits of the first byte are bits 2..7,
		// the second byte carries bits 0..1 in its top bits and 8..13 in
		// its low bits
		prefix = uint16(data[0]&0x3f)<<2 |
			uint16(data[1])>>6 |
			uint16(data[1]&0x3f)<<8
		prefixLen = 2
	default:
		return 0, nil, fmt.Errorf("%w: reserved prefix byte", ErrInvalidAddress)
	}
	if len(data) != prefixLen+accountIdLen+checksumLen {
		return 0, nil, fmt.Errorf(
			"%w: unexpected length %d",
			ErrInvalidAddress,
			len(data),
		)
	}
	body := data[:len(data)-checksumLen]
	sum := checksum(body)
	if !bytes.Equal(sum, data[len(data)-checksumLen:]) {
		return 0, nil, ErrChecksumInvalid
	}
	accountId := make([]byte, accountIdLen)
	copy(accountId, body[prefixLen:])
	return prefix, accountId, nil
}

// Encode renders a 32-byte account ID as an SS58 address for prefix.
func Encode(accountId []byte, prefix uint16) (string, error) {
	if len(accountId) != accountIdLen {
		return "", fmt.Errorf(
			"%w: account id must be %d bytes, got %d",
			ErrInvalidAddress,
			accountIdLen,
			len(accountId),
		)
	}
	if prefix > maxPrefix {
		return "", fmt.Errorf("%w: prefix %d out of range", ErrInvalidAddress, prefix)
	}
	var body []byte
	if prefix < 64 {
		body = append(body, byte(prefix))
	} else {
		body = append(
			body,
			byte((prefix&0xfc)>>2)|0x40,
			byte(prefix>>8)|byte((prefix&0x03)<<6),
		)
	}
	body = append(body, accountId...)
	body = append(body, checksum(body)...)
	return base58.Encode(body), nil
}

// AccountID decodes addr and checks that it was encoded for prefix.
func AccountID(addr string, prefix uint16) ([]byte, error) {
	got, accountId, err := Decode(addr)
	if err != nil {
		return nil, err
	}
	if got != prefix {
		return nil, fmt.Errorf(
			"%w: expected prefix %d, got %d",
			ErrWrongNetwork,
			prefix,
			got,
		)
	}
	return accountId, nil
}

func checksum(body []byte) []byte {
	h := blake2b.Sum512(append(append([]byte{}, checksumPrefix...), body...))
	return h[:checksumLen]
}
