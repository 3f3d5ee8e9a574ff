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

package api

import "github.com/polkassembly/govproposer/backend"

// Error codes returned by the metadata API
var (
	ErrNetworkNotSupported = &backend.Error{
		Code:        1,
		Message:     "network not supported",
		Description: "The requested network is not served by this backend.",
	}
	ErrPreimageNotFound = &backend.Error{
		Code:        2,
		Message:     "preimage not found",
		Description: "No preimage has been indexed under this hash.",
	}
	ErrInvalidRequest = &backend.Error{
		Code:        3,
		Message:     "invalid request",
		Description: "The request was invalid or malformed.",
	}
	ErrUnauthorized = &backend.Error{
		Code:        4,
		Message:     "unauthorized",
		Description: "A valid API key is required for this action.",
	}
	ErrProposalExists = &backend.Error{
		Code:        5,
		Message:     "proposal already exists",
		Description: "Metadata for this referendum has already been recorded.",
	}
	ErrPriceUnavailable = &backend.Error{
		Code:        6,
		Message:     "price unavailable",
		Description: "No USD price is known for the requested asset.",
		Retriable:   true,
	}
	ErrInternal = &backend.Error{
		Code:        7,
		Message:     "internal error",
		Description: "An internal server error occurred.",
		Retriable:   true,
	}
)

// wrapErr returns a copy of base whose description carries detail
func wrapErr(base *backend.Error, detail error) *backend.Error {
	if detail == nil {
		return base
	}
	ret := *base
	ret.Description = detail.Error()
	return &ret
}
