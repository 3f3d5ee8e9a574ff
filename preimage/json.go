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
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/polkassembly/govproposer/ss58"
)

// DecodeProposedCallJSON decodes the human readable call rendering served by
// the metadata backend ({section, method, args}). Keys may be camelCase or
// snake_case, numbers may carry thousands separators or be 0x prefixed, and
// locations may use XCM V3, V4 or V5 layouts.
func DecodeProposedCallJSON(section, method string, args []byte) (DecodedCall, error) {
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCall, err)
	}
	return jsonCall(section, method, v, true)
}

func normKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

func jsonCall(section, method string, args any, allowBatch bool) (DecodedCall, error) {
	name := normKey(section) + "." + normKey(method)
	switch name {
	case "treasury.spendlocal":
		amount, err := jsonNumber(jsonField(args, "amount"))
		if err != nil {
			return nil, err
		}
		accountId, err := jsonMultiAddress(jsonField(args, "beneficiary"))
		if err != nil {
			return nil, err
		}
		return SpendLocalCall{Amount: amount, AccountId: accountId}, nil
	case "treasury.spend":
		return jsonSpend(args)
	case "utility.batch", "utility.batchall":
		if !allowBatch {
			return nil, fmt.Errorf("%w: nested batch", ErrUnsupportedCall)
		}
		calls, ok := jsonField(args, "calls").([]any)
		if !ok {
			return nil, fmt.Errorf("%w: batch without calls", ErrMalformedCall)
		}
		batch := BatchCall{Atomic: name == "utility.batchall"}
		for _, c := range calls {
			s, _ := jsonField(c, "section").(string)
			m, _ := jsonField(c, "method").(string)
			inner, err := jsonCall(s, m, jsonField(c, "args"), false)
			if err != nil {
				return nil, err
			}
			batch.Calls = append(batch.Calls, inner)
		}
		return batch, nil
	default:
		return nil, fmt.Errorf("%w: %s.%s", ErrUnsupportedCall, section, method)
	}
}

func jsonSpend(args any) (SpendCall, error) {
	var ret SpendCall
	version, kind, err := jsonVersioned(jsonField(args, "assetKind"))
	if err != nil {
		return ret, err
	}
	if ret.AssetChain, err = jsonLocation(jsonField(kind, "location")); err != nil {
		return ret, err
	}
	assetId := jsonField(kind, "assetId")
	if version == 3 {
		// V3 wraps the asset location in AssetId::Concrete
		assetId = jsonField(assetId, "concrete")
	}
	if ret.AssetId, err = jsonLocation(assetId); err != nil {
		return ret, err
	}
	if ret.Amount, err = jsonNumber(jsonField(args, "amount")); err != nil {
		return ret, err
	}
	_, ben, err := jsonVersioned(jsonField(args, "beneficiary"))
	if err != nil {
		return ret, err
	}
	if ret.Beneficiary, err = jsonLocation(ben); err != nil {
		return ret, err
	}
	if vf := jsonField(args, "validFrom"); vf != nil {
		n, err := jsonNumber(vf)
		if err != nil {
			return ret, err
		}
		if !n.IsUint64() || n.Uint64() > 0xffffffff {
			return ret, fmt.Errorf("%w: validFrom %s exceeds u32", ErrMalformedCall, n)
		}
		v := uint32(n.Uint64())
		ret.ValidFrom = &v
	}
	return ret, nil
}

// jsonField returns the value of key in an object, matching keys
// regardless of case and underscores
func jsonField(v any, key string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	want := normKey(key)
	for k, val := range m {
		if normKey(k) == want {
			return val
		}
	}
	return nil
}

// jsonVariant returns the single key and value of an enum rendered as an
// object
func jsonVariant(v any) (string, any, bool) {
	switch t := v.(type) {
	case string:
		return normKey(t), nil, true
	case map[string]any:
		if len(t) != 1 {
			return "", nil, false
		}
		for k, val := range t {
			return normKey(k), val, true
		}
	}
	return "", nil, false
}

func jsonVersioned(v any) (int, any, error) {
	key, inner, ok := jsonVariant(v)
	if !ok {
		return 0, nil, fmt.Errorf("%w: expected versioned value", ErrMalformedCall)
	}
	switch key {
	case "v3":
		return 3, inner, nil
	case "v4":
		return 4, inner, nil
	case "v5":
		return 5, inner, nil
	default:
		return 0, nil, fmt.Errorf("%w: unsupported xcm version %s", ErrUnsupportedCall, key)
	}
}

func jsonNumber(v any) (*big.Int, error) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = t
	default:
		return nil, fmt.Errorf("%w: expected number, got %T", ErrMalformedCall, v)
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	base := 10
	if strings.HasPrefix(s, "0x") {
		s, base = s[2:], 16
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: bad number %q", ErrMalformedCall, s)
	}
	return n, nil
}

func jsonAccountId(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: expected account, got %T", ErrMalformedCall, v)
	}
	if strings.HasPrefix(s, "0x") {
		b, err := hex.DecodeString(s[2:])
		if err != nil || len(b) != 32 {
			return nil, fmt.Errorf("%w: bad account id %q", ErrMalformedCall, s)
		}
		return b, nil
	}
	_, accountId, err := ss58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCall, err)
	}
	return accountId, nil
}

func jsonMultiAddress(v any) ([]byte, error) {
	if s, ok := v.(string); ok {
		return jsonAccountId(s)
	}
	key, inner, ok := jsonVariant(v)
	if !ok || key != "id" {
		return nil, fmt.Errorf("%w: beneficiary is not MultiAddress::Id", ErrUnsupportedCall)
	}
	return jsonAccountId(inner)
}

func jsonLocation(v any) (Location, error) {
	var l Location
	if v == nil {
		return l, fmt.Errorf("%w: missing location", ErrMalformedCall)
	}
	parents, err := jsonNumber(jsonField(v, "parents"))
	if err != nil {
		return l, err
	}
	if !parents.IsUint64() || parents.Uint64() > 255 {
		return l, fmt.Errorf("%w: parents %s", ErrMalformedCall, parents)
	}
	l.Parents = uint8(parents.Uint64())
	key, inner, ok := jsonVariant(jsonField(v, "interior"))
	if !ok {
		return l, fmt.Errorf("%w: bad interior", ErrMalformedCall)
	}
	if key == "here" {
		return l, nil
	}
	var count int
	if _, err := fmt.Sscanf(key, "x%d", &count); err != nil || count < 1 || count > 8 {
		return l, fmt.Errorf("%w: bad junctions %q", ErrMalformedCall, key)
	}
	var items []any
	switch t := inner.(type) {
	case []any:
		items = t
	default:
		// V3 renders X1 as a bare junction
		items = []any{t}
	}
	if len(items) != count {
		return l, fmt.Errorf("%w: %s with %d junctions", ErrMalformedCall, key, len(items))
	}
	for _, item := range items {
		j, err := jsonJunction(item)
		if err != nil {
			return l, err
		}
		l.Interior = append(l.Interior, j)
	}
	return l, nil
}

func jsonJunction(v any) (Junction, error) {
	key, inner, ok := jsonVariant(v)
	if !ok {
		return Junction{}, fmt.Errorf("%w: bad junction", ErrMalformedCall)
	}
	switch key {
	case "parachain":
		n, err := jsonNumber(inner)
		if err != nil {
			return Junction{}, err
		}
		if !n.IsUint64() || n.Uint64() > 0xffffffff {
			return Junction{}, fmt.Errorf("%w: parachain %s", ErrMalformedCall, n)
		}
		return parachainJunction(uint32(n.Uint64())), nil
	case "accountid32":
		id, err := jsonAccountId(jsonField(inner, "id"))
		if err != nil {
			return Junction{}, err
		}
		return accountJunction(id), nil
	case "palletinstance":
		n, err := jsonNumber(inner)
		if err != nil {
			return Junction{}, err
		}
		if !n.IsUint64() || n.Uint64() > 255 {
			return Junction{}, fmt.Errorf("%w: pallet instance %s", ErrMalformedCall, n)
		}
		return Junction{Kind: JunctionPalletInstance, PalletInstance: uint8(n.Uint64())}, nil
	case "generalindex":
		n, err := jsonNumber(inner)
		if err != nil {
			return Junction{}, err
		}
		return Junction{Kind: JunctionGeneralIndex, GeneralIndex: n}, nil
	default:
		return Junction{}, fmt.Errorf("%w: unsupported junction %s", ErrUnsupportedCall, key)
	}
}
