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

import "fmt"

// Request status variants of the preimage pallet
const (
	statusUnrequested = 0
	statusRequested   = 1
)

// account id followed by a u128 deposit or hold ticket
const depositLen = 32 + 16

// DecodeRequestStatus extracts the preimage length from a SCALE encoded
// Preimage.RequestStatusFor (or legacy StatusFor) value. A requested
// preimage that has not been noted yet carries no length and yields
// ErrLengthUnknown.
func DecodeRequestStatus(raw []byte) (uint32, error) {
	r := newCallReader(raw)
	variant, err := r.byte()
	if err != nil {
		return 0, err
	}
	switch variant {
	case statusUnrequested:
		if _, err := r.fixed(depositLen); err != nil {
			return 0, err
		}
		return r.u32()
	case statusRequested:
		tag, err := r.byte()
		if err != nil {
			return 0, err
		}
		switch tag {
		case 0:
		case 1:
			if _, err := r.fixed(depositLen); err != nil {
				return 0, err
			}
		default:
			return 0, fmt.Errorf("%w: bad option tag %d", ErrMalformedCall, tag)
		}
		// request count
		if _, err := r.u32(); err != nil {
			return 0, err
		}
		length, err := r.optionU32()
		if err != nil {
			return 0, err
		}
		if length == nil {
			return 0, ErrLengthUnknown
		}
		return *length, nil
	default:
		return 0, fmt.Errorf("%w: unknown request status %d", ErrMalformedCall, variant)
	}
}

// PreimageForKey returns the SCALE encoded (hash, length) key of
// Preimage.PreimageFor
func PreimageForKey(hash [32]byte, length uint32) []byte {
	w := newCallWriter()
	w.raw(hash[:])
	w.u32(length)
	ret, _ := w.bytes()
	return ret
}

// EncodeRequestStatus encodes an unrequested status, the inverse of
// DecodeRequestStatus for noted preimages
func EncodeRequestStatus(depositor []byte, deposit uint64, length uint32) []byte {
	w := newCallWriter()
	w.byte(statusUnrequested)
	acct := make([]byte, 32)
	copy(acct, depositor)
	w.raw(acct)
	bal := make([]byte, 16)
	for i := range 8 {
		bal[i] = byte(deposit >> (8 * i))
	}
	w.raw(bal)
	w.u32(length)
	ret, _ := w.bytes()
	return ret
}

// DecodeStoredPreimage unwraps the SCALE encoded byte vector stored in
// Preimage.PreimageFor
func DecodeStoredPreimage(raw []byte) ([]byte, error) {
	r := newCallReader(raw)
	n, err := r.compactUint32()
	if err != nil {
		return nil, err
	}
	if int(n) != r.remaining() {
		return nil, fmt.Errorf("%w: stored preimage length %d, have %d bytes", ErrMalformedCall, n, r.remaining())
	}
	return r.fixed(int(n))
}

// EncodeStoredPreimage is the inverse of DecodeStoredPreimage
func EncodeStoredPreimage(data []byte) []byte {
	w := newCallWriter()
	w.compactUint(uint64(len(data)))
	w.raw(data)
	ret, _ := w.bytes()
	return ret
}
