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

package beneficiary

import (
	"errors"
	"fmt"
	"strings"

	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/ss58"
)

var (
	ErrEmptySet   = errors.New("no beneficiaries")
	ErrMixedAsset = errors.New("beneficiaries must share a single asset")
)

// Problem describes one invalid field
type Problem struct {
	Index int
	Field string
	Err   error
}

func (p Problem) String() string {
	if p.Index < 0 {
		return fmt.Sprintf("%s: %v", p.Field, p.Err)
	}
	return fmt.Sprintf("beneficiary %d %s: %v", p.Index, p.Field, p.Err)
}

// ValidationError lists every problem found in a set
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}
	return "invalid beneficiaries: " + strings.Join(parts, "; ")
}

// Unwrap exposes the underlying problem errors to errors.Is
func (e *ValidationError) Unwrap() []error {
	ret := make([]error, 0, len(e.Problems))
	for _, p := range e.Problems {
		ret = append(ret, p.Err)
	}
	return ret
}

// Validate checks that every address decodes under prefix, every amount is
// a positive integer, every asset is known to reg and all entries share one
// asset
func Validate(s Set, prefix uint16, reg *asset.Registry) error {
	var problems []Problem
	if len(s) == 0 {
		problems = append(problems, Problem{Index: -1, Field: "set", Err: ErrEmptySet})
		return &ValidationError{Problems: problems}
	}
	for i, b := range s {
		if _, err := ss58.AccountID(b.Address, prefix); err != nil {
			problems = append(problems, Problem{Index: i, Field: "address", Err: err})
		}
		v, err := asset.ParseMinor(b.Amount)
		switch {
		case err != nil:
			problems = append(problems, Problem{Index: i, Field: "amount", Err: err})
		case v.Sign() == 0:
			problems = append(problems, Problem{
				Index: i,
				Field: "amount",
				Err:   fmt.Errorf("%w: must be positive", asset.ErrInvalidAmount),
			})
		}
		if reg != nil {
			if _, ok := reg.ByKind(b.Asset); !ok {
				problems = append(problems, Problem{
					Index: i,
					Field: "asset",
					Err:   fmt.Errorf("%w: %q", asset.ErrUnknownAsset, b.Asset),
				})
			}
		}
	}
	if _, ok := s.Asset(); !ok {
		problems = append(problems, Problem{Index: -1, Field: "asset", Err: ErrMixedAsset})
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
