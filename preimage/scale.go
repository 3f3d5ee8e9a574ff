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
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

// callWriter accumulates SCALE encoded call arguments. The first error is
// kept and returned by bytes.
type callWriter struct {
	buf bytes.Buffer
	enc *scale.Encoder
	err error
}

func newCallWriter() *callWriter {
	w := &callWriter{}
	w.enc = scale.NewEncoder(&w.buf)
	return w
}

func (w *callWriter) byte(b byte) {
	if w.err != nil {
		return
	}
	w.err = w.enc.PushByte(b)
}

func (w *callWriter) raw(b []byte) {
	if w.err != nil || len(b) == 0 {
		return
	}
	w.err = w.enc.Write(b)
}

func (w *callWriter) compact(v *big.Int) {
	if w.err != nil {
		return
	}
	if v == nil || v.Sign() < 0 {
		w.err = fmt.Errorf("%w: cannot compact encode %v", ErrInvalidBeneficiary, v)
		return
	}
	w.err = w.enc.EncodeUintCompact(*v)
}

func (w *callWriter) compactUint(v uint64) {
	w.compact(new(big.Int).SetUint64(v))
}

func (w *callWriter) u32(v uint32) {
	w.raw(binary.LittleEndian.AppendUint32(nil, v))
}

func (w *callWriter) call(c types.Call) {
	w.raw(EncodeCall(c))
}

func (w *callWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

// EncodeCall returns the SCALE encoding of a call: pallet index, call index
// and the already encoded arguments
func EncodeCall(c types.Call) []byte {
	ret := make([]byte, 0, 2+len(c.Args))
	ret = append(ret, c.CallIndex.SectionIndex, c.CallIndex.MethodIndex)
	return append(ret, c.Args...)
}

// callReader walks SCALE encoded call data
type callReader struct {
	r   *bytes.Reader
	dec *scale.Decoder
}

func newCallReader(data []byte) *callReader {
	r := bytes.NewReader(data)
	return &callReader{r: r, dec: scale.NewDecoder(r)}
}

func (c *callReader) byte() (byte, error) {
	b, err := c.r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected end of data", ErrMalformedCall)
	}
	return b, nil
}

func (c *callReader) fixed(n int) ([]byte, error) {
	ret := make([]byte, n)
	if n == 0 {
		return ret, nil
	}
	if _, err := io.ReadFull(c.r, ret); err != nil {
		return nil, fmt.Errorf("%w: need %d bytes", ErrMalformedCall, n)
	}
	return ret, nil
}

func (c *callReader) compact() (*big.Int, error) {
	v, err := c.dec.DecodeUintCompact()
	if err != nil {
		return nil, fmt.Errorf("%w: compact: %w", ErrMalformedCall, err)
	}
	return v, nil
}

func (c *callReader) compactUint32() (uint32, error) {
	v, err := c.compact()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() || v.Uint64() > 0xffffffff {
		return 0, fmt.Errorf("%w: compact value %s exceeds u32", ErrMalformedCall, v)
	}
	return uint32(v.Uint64()), nil
}

func (c *callReader) u32() (uint32, error) {
	b, err := c.fixed(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *callReader) u64() (uint64, error) {
	b, err := c.fixed(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *callReader) optionU32() (*uint32, error) {
	tag, err := c.byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		v, err := c.u32()
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, fmt.Errorf("%w: bad option tag %d", ErrMalformedCall, tag)
	}
}

func (c *callReader) remaining() int {
	return c.r.Len()
}
