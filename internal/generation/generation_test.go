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

package generation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenStaleness(t *testing.T) {
	var c Counter
	first := c.Next()
	assert.True(t, first.Current())
	second := c.Next()
	assert.False(t, first.Current())
	assert.True(t, second.Current())
	assert.Equal(t, uint64(2), c.Current())
	assert.Greater(t, second.Generation(), first.Generation())
	assert.False(t, Token{}.Current())
}

func TestConcurrentNext(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	seen := make(chan uint64, 100)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.Next().Generation()
		}()
	}
	wg.Wait()
	close(seen)
	unique := map[uint64]bool{}
	for g := range seen {
		unique[g] = true
	}
	assert.Len(t, unique, 100)
	assert.Equal(t, uint64(100), c.Current())
}
