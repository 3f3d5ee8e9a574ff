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

import "errors"

var (
	// ErrInvalidBeneficiary means the user supplied data cannot be encoded
	// and should be reported as a validation message
	ErrInvalidBeneficiary = errors.New("invalid beneficiary or amount")
	// ErrMetadataUnavailable means the runtime description needed to encode
	// the call is missing and the operation can be retried later
	ErrMetadataUnavailable = errors.New("chain metadata unavailable")
	// ErrUnsupportedCall is returned when decoding a call outside the
	// treasury spend family
	ErrUnsupportedCall = errors.New("not a treasury-compatible call")
	ErrMalformedCall   = errors.New("malformed call data")
	ErrInvalidHash     = errors.New("invalid preimage hash")
	ErrLengthUnknown   = errors.New("preimage length unknown")
)
