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
	"errors"
	"fmt"
)

// EnactmentKind selects how the enactment value is interpreted
type EnactmentKind string

const (
	// EnactAtBlock enacts at an absolute block number
	EnactAtBlock EnactmentKind = "at"
	// EnactAfterBlocks enacts a number of blocks after approval
	EnactAfterBlocks EnactmentKind = "after"
)

// DefaultEnactmentDelay is the delay used when the proposer does not pick one
const DefaultEnactmentDelay = 100

var (
	ErrEnactmentInPast  = errors.New("enactment block is in the past")
	ErrInvalidEnactment = errors.New("invalid enactment")
)

// Enactment is the DispatchTime of a referendum
type Enactment struct {
	Kind  EnactmentKind `json:"kind"`
	Value uint32        `json:"value"`
}

// DefaultEnactment enacts DefaultEnactmentDelay blocks after approval
func DefaultEnactment() Enactment {
	return Enactment{Kind: EnactAfterBlocks, Value: DefaultEnactmentDelay}
}

// Validate checks the enactment against the current block height
func (e Enactment) Validate(currentHeight uint32) error {
	switch e.Kind {
	case EnactAfterBlocks:
		return nil
	case EnactAtBlock:
		if e.Value < currentHeight {
			return fmt.Errorf(
				"%w: block %d is before current height %d",
				ErrEnactmentInPast,
				e.Value,
				currentHeight,
			)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEnactment, e.Kind)
	}
}

func (e Enactment) variant() (byte, error) {
	switch e.Kind {
	case EnactAtBlock:
		return 0, nil
	case EnactAfterBlocks:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidEnactment, e.Kind)
	}
}
