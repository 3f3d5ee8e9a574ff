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

package event_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/polkassembly/govproposer/event"
	govtest "github.com/polkassembly/govproposer/internal/test/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEventBusSingleSubscriber(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(event.DraftSavedEventType)
	eb.Publish(
		event.DraftSavedEventType,
		event.NewEvent(event.DraftSavedEventType, event.DraftSavedEvent{DraftID: "abc"}),
	)
	data := govtest.RequireEvent[event.DraftSavedEvent](t, subCh)
	assert.Equal(t, "abc", data.DraftID)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1 := eb.Subscribe(event.SubmissionStatusEventType)
	_, sub2 := eb.Subscribe(event.SubmissionStatusEventType)
	eb.Publish(
		event.SubmissionStatusEventType,
		event.NewEvent(event.SubmissionStatusEventType, event.SubmissionStatusEvent{State: "broadcasting"}),
	)
	for _, ch := range []<-chan event.Event{sub1, sub2} {
		data := govtest.RequireEvent[event.SubmissionStatusEvent](t, ch)
		assert.Equal(t, "broadcasting", data.State)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(event.DraftSavedEventType)
	eb.Unsubscribe(event.DraftSavedEventType, subId)
	eb.Publish(event.DraftSavedEventType, event.NewEvent(event.DraftSavedEventType, nil))
	_, ok := <-subCh
	assert.False(t, ok, "channel should be closed after unsubscribe")
	// unknown subscriptions are ignored
	eb.Unsubscribe(event.DraftSavedEventType, subId)
}

func TestEventBusSubscribeFuncAndAsync(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	var count atomic.Int32
	eb.SubscribeFunc(event.ProposalCreatedEventType, func(evt event.Event) {
		count.Add(1)
	})
	for range 5 {
		ok := eb.PublishAsync(
			event.ProposalCreatedEventType,
			event.NewEvent(event.ProposalCreatedEventType, event.ProposalCreatedEvent{Index: 7}),
		)
		require.True(t, ok)
	}
	govtest.WaitForCondition(t, func() bool { return count.Load() == 5 }, time.Second, "async handlers")
	eb.Stop()
	assert.False(t, eb.PublishAsync(event.ProposalCreatedEventType, event.Event{}))
	// Stop is idempotent
	eb.Stop()
}

func TestEventBusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	_, ch := eb.Subscribe(event.PreimageResolvedEventType)
	eb.Publish(event.PreimageResolvedEventType, event.NewEvent(event.PreimageResolvedEventType, nil))
	govtest.RequireReceive(t, ch, time.Second, "resolved event")
	govtest.RequireNoReceive(t, ch, 10*time.Millisecond, "single publish")
	count, err := testutil.GatherAndCount(reg, "govproposer_events_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
