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

package event

const (
	SubmissionStatusEventType EventType = "submission.status"
	ProposalCreatedEventType  EventType = "proposal.created"
	PreimageResolvedEventType EventType = "preimage.resolved"
	DraftSavedEventType       EventType = "draft.saved"
)

// SubmissionStatusEvent reports a transition of the submission state
// machine
type SubmissionStatusEvent struct {
	Attempt uint64
	State   string
	TxHash  string
	Err     string
}

// ProposalCreatedEvent is published once the referendum is on chain
type ProposalCreatedEvent struct {
	Network      string
	Index        uint32
	TrackID      uint16
	PreimageHash string
	Proposer     string
	PostID       int64
}

// PreimageResolvedEvent is published when an existing preimage has been
// decoded
type PreimageResolvedEvent struct {
	Hash   string
	Length uint32
	Source string
}

// DraftSavedEvent is published after the draft repository persists a draft
type DraftSavedEvent struct {
	DraftID string
}
