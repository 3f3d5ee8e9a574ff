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

package chain

import (
	"context"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/polkassembly/govproposer/ss58"
	"github.com/polkassembly/govproposer/submission"
)

// KeyringSigner signs with a locally held sr25519 key
type KeyringSigner struct {
	pair    signature.KeyringPair
	address string
}

func (s *KeyringSigner) Address() string {
	return s.address
}

// KeyringWallet hands out a single keyring signer. It is the CLI's stand-in
// for a browser extension wallet.
type KeyringWallet struct {
	signer *KeyringSigner
}

// NewKeyringWallet derives a key from a secret seed, mnemonic or dev URI
// such as //Alice. The address is rendered under prefix.
func NewKeyringWallet(secret string, prefix uint16) (*KeyringWallet, error) {
	pair, err := signature.KeyringPairFromSecret(secret, prefix)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}
	address, err := ss58.Encode(pair.PublicKey, prefix)
	if err != nil {
		return nil, err
	}
	return &KeyringWallet{signer: &KeyringSigner{pair: pair, address: address}}, nil
}

func (w *KeyringWallet) Enable(ctx context.Context, _ string) (submission.Signer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return w.signer, nil
}

// Address returns the wallet's account
func (w *KeyringWallet) Address() string {
	return w.signer.address
}
