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
	"fmt"
	"reflect"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/registry"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

func fieldValue(fields registry.DecodedFields, name string) (any, bool) {
	for _, f := range fields {
		if f != nil && f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// toUint converts a decoded scalar, or the first element of a decoded byte
// array, to a number
func toUint(v any) (uint64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return 0, false
		}
		return uint64(rv.Int()), true
	case reflect.Array, reflect.Slice:
		if rv.Len() == 0 {
			return 0, false
		}
		return toUint(rv.Index(0).Interface())
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return 0, false
		}
		return toUint(rv.Elem().Interface())
	default:
		return 0, false
	}
}

func uintField(fields registry.DecodedFields, name string) (uint64, bool) {
	v, ok := fieldValue(fields, name)
	if !ok {
		return 0, false
	}
	return toUint(v)
}

// dispatchErrorMessage renders the dispatch_error of System.ExtrinsicFailed.
// Module errors are named from metadata as "Pallet.Error: docs", other
// errors by their variant path such as "Token.FundsUnavailable".
func dispatchErrorMessage(meta *types.Metadata, fields registry.DecodedFields) string {
	v, ok := fieldValue(fields, "dispatch_error")
	if !ok {
		return ""
	}
	var path []string
	for {
		inner, isFields := v.(registry.DecodedFields)
		if !isFields || len(inner) == 0 {
			break
		}
		if pallet, ok := uintField(inner, "index"); ok {
			if errVal, ok := fieldValue(inner, "error"); ok {
				if errIdx, ok := toUint(errVal); ok {
					return moduleErrorName(meta, uint8(pallet), uint8(errIdx))
				}
			}
		}
		if len(inner) != 1 || inner[0] == nil {
			break
		}
		if inner[0].Name != "" {
			path = append(path, inner[0].Name)
		}
		v = inner[0].Value
	}
	if len(path) > 0 {
		return strings.Join(path, ".")
	}
	return fmt.Sprint(v)
}

// moduleErrorName looks up a pallet error in V14 metadata
func moduleErrorName(meta *types.Metadata, pallet, errIdx uint8) string {
	fallback := fmt.Sprintf("Module { index: %d, error: %d }", pallet, errIdx)
	if meta == nil || !meta.IsMetadataV14 {
		return fallback
	}
	for _, p := range meta.AsMetadataV14.Pallets {
		if uint8(p.Index) != pallet {
			continue
		}
		if !p.HasErrors {
			return fallback
		}
		t, ok := meta.AsMetadataV14.EfficientLookup[p.Errors.Type.Int64()]
		if !ok || !t.Def.IsVariant {
			return fallback
		}
		for _, v := range t.Def.Variant.Variants {
			if uint8(v.Index) != errIdx {
				continue
			}
			msg := fmt.Sprintf("%s.%s", p.Name, v.Name)
			if len(v.Docs) > 0 {
				docs := make([]string, 0, len(v.Docs))
				for _, d := range v.Docs {
					docs = append(docs, strings.TrimSpace(string(d)))
				}
				msg += ": " + strings.Join(docs, " ")
			}
			return msg
		}
		return fallback
	}
	return fallback
}
