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

// Package testutil holds synchronization helpers shared by the package
// tests. They replace sleeps with bounded waits on channels and conditions.
package testutil

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/polkassembly/govproposer/event"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds every wait in the helpers that do not take one
const DefaultTimeout = time.Second

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// WaitForCondition polls condition until it returns true or timeout expires
func WaitForCondition(
	t *testing.T,
	condition func() bool,
	timeout time.Duration,
	msg string,
) {
	t.Helper()
	require.Eventually(t, condition, timeout, 5*time.Millisecond, msg)
}

// RequireReceive waits for a value on ch or fails the test
func RequireReceive[T any](
	t *testing.T,
	ch <-chan T,
	timeout time.Duration,
	msg string,
) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed while waiting: %s", msg)
		}
		return v
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for channel receive: %s", msg)
	}
	var zero T
	return zero
}

// RequireNoReceive fails the test if anything arrives on ch within d
func RequireNoReceive[T any](
	t *testing.T,
	ch <-chan T,
	d time.Duration,
	msg string,
) {
	t.Helper()
	select {
	case v, ok := <-ch:
		if ok {
			t.Fatalf("unexpected value received on channel: %v: %s", v, msg)
		}
	case <-time.After(d):
	}
}

// RequireEvent waits for the next event on ch and returns its payload,
// failing the test when the payload is not a T
func RequireEvent[T any](t *testing.T, ch <-chan event.Event) T {
	t.Helper()
	evt := RequireReceive(t, ch, DefaultTimeout, "event")
	data, ok := evt.Data.(T)
	if !ok {
		t.Fatalf("event %s carries %T, want %T", evt.Type, evt.Data, data)
	}
	return data
}

// DrainEvents returns the payloads already queued on ch without waiting.
// Payloads of another type are skipped.
func DrainEvents[T any](ch <-chan event.Event) []T {
	var ret []T
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return ret
			}
			if data, ok := evt.Data.(T); ok {
				ret = append(ret, data)
			}
		default:
			return ret
		}
	}
}
