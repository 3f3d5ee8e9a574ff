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

// Package generation tags asynchronous requests so that responses which
// arrive after a newer request was issued can be discarded.
package generation

import "sync/atomic"

// Counter hands out increasing generation numbers
type Counter struct {
	current atomic.Uint64
}

// Next starts a new generation and returns it. Any token from an earlier
// generation becomes stale.
func (c *Counter) Next() Token {
	return Token{counter: c, gen: c.current.Add(1)}
}

// Current returns the latest generation number
func (c *Counter) Current() uint64 {
	return c.current.Load()
}

// Token identifies the generation a request was issued in
type Token struct {
	counter *Counter
	gen     uint64
}

// Generation returns the token's generation number
func (t Token) Generation() uint64 {
	return t.gen
}

// Current reports whether no newer generation has started since t was
// issued. The zero Token is never current.
func (t Token) Current() bool {
	return t.counter != nil && t.counter.current.Load() == t.gen
}
