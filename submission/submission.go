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

// Package submission drives a proposal from wallet signature to on-chain
// inclusion and records it with the metadata backend.
package submission

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/backend"
	"github.com/polkassembly/govproposer/beneficiary"
	"github.com/polkassembly/govproposer/event"
	"github.com/polkassembly/govproposer/internal/generation"
	"github.com/polkassembly/govproposer/preimage"
	"github.com/polkassembly/govproposer/ss58"
	"github.com/polkassembly/govproposer/track"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultSigningTimeout = 60 * time.Second
	DefaultAppName        = "govproposer"
)

// State is a step of the submission state machine
type State uint8

const (
	StateIdle State = iota
	StateAwaitingSignature
	StateBroadcasting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSignature:
		return "awaitingSignature"
	case StateBroadcasting:
		return "broadcasting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Proposal is everything needed to open a treasury referendum
type Proposal struct {
	Network       string
	Proposer      string
	Title         string
	Content       string
	DiscussionID  *int64
	Track         track.Track
	Preimage      preimage.Preimage
	Enactment     preimage.Enactment
	AssetKind     asset.Kind
	Beneficiaries beneficiary.Set
}

// Result is the outcome of a submission. PersistErr is set when the
// referendum is live on chain but the metadata backend could not record it.
type Result struct {
	State           State
	TxHash          string
	ReferendumIndex *uint32
	PostID          int64
	Err             error
	PersistErr      error
}

// Bundle returns the extrinsic that opens the referendum. A preimage that
// is not yet on chain is noted in the same atomic batch.
func Bundle(
	b *preimage.Builder,
	p preimage.Preimage,
	onChain bool,
	t track.Track,
	e preimage.Enactment,
) (types.Call, error) {
	submit, err := b.Submit(t, p.Hash, p.Length, e)
	if err != nil {
		return types.Call{}, err
	}
	if onChain {
		return submit, nil
	}
	if len(p.EncodedCall) == 0 {
		return types.Call{}, fmt.Errorf(
			"%w: preimage %s has no call data to note",
			preimage.ErrInvalidBeneficiary,
			p.HashHex(),
		)
	}
	note, err := b.NotePreimage(p.EncodedCall)
	if err != nil {
		return types.Call{}, err
	}
	return b.BatchAll(note, submit)
}

type OrchestratorConfig struct {
	Builder        *preimage.Builder
	Wallet         Wallet
	Chain          Chain
	Metadata       MetadataStore
	Preimages      PreimageChecker
	AppName        string
	SigningTimeout time.Duration
	Logger         *slog.Logger
	EventBus       *event.EventBus
	PromRegistry   prometheus.Registerer
}

// Orchestrator is the only component that requests signatures. It runs at
// most one submission at a time.
type Orchestrator struct {
	config   OrchestratorConfig
	logger   *slog.Logger
	mu       sync.Mutex
	state    State
	inFlight bool
	cancel   context.CancelFunc
	gen      generation.Counter
	metrics  struct {
		submissions *prometheus.CounterVec
		inFlight    prometheus.Gauge
	}
}

func NewOrchestrator(config OrchestratorConfig) (*Orchestrator, error) {
	if config.Builder == nil {
		return nil, errors.New("builder is required")
	}
	if config.Wallet == nil {
		return nil, errors.New("wallet is required")
	}
	if config.Chain == nil {
		return nil, errors.New("chain is required")
	}
	if config.AppName == "" {
		config.AppName = DefaultAppName
	}
	if config.SigningTimeout <= 0 {
		config.SigningTimeout = DefaultSigningTimeout
	}
	o := &Orchestrator{config: config}
	if config.Logger == nil {
		o.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		o.logger = config.Logger
	}
	o.logger = o.logger.With("component", "submission")
	factory := promauto.With(config.PromRegistry)
	o.metrics.submissions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "govproposer_submissions_total",
			Help: "proposal submissions by outcome",
		},
		[]string{"outcome"},
	)
	o.metrics.inFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "govproposer_submission_in_flight",
			Help: "1 while a submission is running",
		},
	)
	return o, nil
}

var tracer = otel.Tracer("github.com/polkassembly/govproposer/submission")

// State returns the current state of the state machine
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Cancel abandons the running submission. Its outcome is never applied,
// even if the extrinsic still lands on chain. The signer stays reserved
// until the abandoned call returns, so Submit keeps failing with
// ErrSubmissionInProgress until then.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.inFlight {
		return
	}
	o.gen.Next()
	o.cancel()
	o.state = StateIdle
	o.logger.Info("submission cancelled")
}

// Submit signs and broadcasts the proposal and waits for the outcome. On
// Failed the returned error equals Result.Err. A cancelled submission
// returns ErrCancelled and a zero Result.
func (o *Orchestrator) Submit(ctx context.Context, p Proposal) (Result, error) {
	ctx, span := tracer.Start(
		ctx,
		"submission.Submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("proposal.network", p.Network),
			attribute.String("preimage.hash", p.Preimage.HashHex()),
			attribute.Int("track.id", int(p.Track.ID)),
		),
	)
	defer span.End()
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return Result{}, ErrSubmissionInProgress
	}
	ctx, cancel := context.WithCancel(ctx)
	token := o.gen.Next()
	o.inFlight = true
	o.cancel = cancel
	o.metrics.inFlight.Set(1)
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		o.inFlight = false
		o.metrics.inFlight.Set(0)
		o.mu.Unlock()
	}()

	res, err := o.run(ctx, token, p)
	switch {
	case errors.Is(err, ErrCancelled):
		o.metrics.submissions.WithLabelValues("cancelled").Inc()
	case err != nil:
		o.metrics.submissions.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	default:
		o.metrics.submissions.WithLabelValues("success").Inc()
		if res.PersistErr != nil {
			span.RecordError(res.PersistErr)
		}
	}
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, token generation.Token, p Proposal) (Result, error) {
	if p.Track.Name == "" {
		return Result{}, ErrNoTrack
	}
	onChain := false
	if o.config.Preimages != nil {
		exists, _, err := o.config.Preimages.Exists(ctx, p.Preimage.Hash)
		if err != nil {
			// fall back to noting the preimage in the batch
			o.logger.Warn(
				"failed to check for existing preimage",
				"hash", p.Preimage.HashHex(),
				"error", err,
			)
		}
		onChain = exists
	}
	call, err := Bundle(o.config.Builder, p.Preimage, onChain, p.Track, p.Enactment)
	if err != nil {
		return Result{}, err
	}
	if !o.setState(token, StateAwaitingSignature, "", nil) {
		return Result{}, ErrCancelled
	}

	statusCh := make(chan TxStatus, 16)
	done := make(chan struct{})
	onStatus := func(s TxStatus) {
		select {
		case statusCh <- s:
		case <-done:
		}
	}
	signCtx, signCancel := context.WithTimeout(ctx, o.config.SigningTimeout)
	unsubscribe, err := o.sign(signCtx, call, p.Proposer, onStatus)
	timedOut := errors.Is(signCtx.Err(), context.DeadlineExceeded)
	signCancel()
	if err != nil {
		close(done)
		if !token.Current() {
			return Result{}, ErrCancelled
		}
		if timedOut {
			err = fmt.Errorf("%w: %w", ErrSigningTimeout, err)
		}
		return o.fail(token, "", err)
	}
	// done is closed first so a status callback blocked on a full channel
	// returns before unsubscribe waits for it
	defer func() {
		close(done)
		unsubscribe()
	}()
	if !o.setState(token, StateBroadcasting, "", nil) {
		return Result{}, ErrCancelled
	}

	var txHash string
	for {
		select {
		case <-ctx.Done():
			if !token.Current() {
				return Result{}, ErrCancelled
			}
			return o.fail(token, txHash, ctx.Err())
		case st := <-statusCh:
			if st.TxHash != "" {
				txHash = st.TxHash
			}
			o.logger.Debug(
				"transaction status",
				"status", st.Kind,
				"tx_hash", txHash,
				"block_hash", st.BlockHash,
			)
			switch {
			case st.Kind == TxStreamEnded:
				return o.fail(token, txHash, ErrStatusLost)
			case st.Included() && st.DispatchError != nil, st.Rejected():
				return o.fail(token, txHash, statusError(st))
			case st.Included():
				return o.succeed(ctx, token, p, txHash, st.ReferendumIndex)
			}
		}
	}
}

func (o *Orchestrator) sign(
	ctx context.Context,
	call types.Call,
	proposer string,
	onStatus func(TxStatus),
) (func(), error) {
	signer, err := o.config.Wallet.Enable(ctx, o.config.AppName)
	if err != nil {
		return nil, err
	}
	if err := checkSigner(signer, proposer); err != nil {
		return nil, err
	}
	return o.config.Chain.SignAndSend(ctx, call, signer, onStatus)
}

func checkSigner(signer Signer, proposer string) error {
	if signer == nil || signer.Address() == "" {
		return ErrSignerUnavailable
	}
	if proposer == "" || signer.Address() == proposer {
		return nil
	}
	// The same key may be rendered under a different network prefix
	_, a, errA := ss58.Decode(signer.Address())
	_, b, errB := ss58.Decode(proposer)
	if errA == nil && errB == nil && bytes.Equal(a, b) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSignerMismatch, signer.Address())
}

func (o *Orchestrator) succeed(
	ctx context.Context,
	token generation.Token,
	p Proposal,
	txHash string,
	index *uint32,
) (Result, error) {
	res := Result{
		State:           StateSuccess,
		TxHash:          txHash,
		ReferendumIndex: index,
	}
	switch {
	case index == nil:
		res.PersistErr = errors.New("referendum index missing from chain events")
	case o.config.Metadata != nil:
		var encoded string
		if len(p.Preimage.EncodedCall) > 0 {
			encoded = p.Preimage.CallHex()
		}
		postID, err := o.config.Metadata.CreateProposal(ctx, backend.CreateProposalRequest{
			Network:         p.Network,
			ReferendumIndex: *index,
			TrackID:         p.Track.ID,
			ProposerAddress: p.Proposer,
			Title:           p.Title,
			Content:         p.Content,
			DiscussionID:    p.DiscussionID,
			PreimageHash:    p.Preimage.HashHex(),
			PreimageLength:  p.Preimage.Length,
			EncodedCall:     encoded,
			AssetKind:       p.AssetKind,
			Beneficiaries:   p.Beneficiaries,
		})
		if err != nil {
			res.PersistErr = err
		} else {
			res.PostID = postID
		}
	}
	if res.PersistErr != nil {
		o.logger.Warn(
			"referendum submitted but metadata was not saved",
			"tx_hash", txHash,
			"error", res.PersistErr,
		)
	}
	if !o.setState(token, StateSuccess, txHash, nil) {
		return Result{}, ErrCancelled
	}
	if index != nil && o.config.EventBus != nil {
		o.config.EventBus.Publish(
			event.ProposalCreatedEventType,
			event.NewEvent(
				event.ProposalCreatedEventType,
				event.ProposalCreatedEvent{
					Network:      p.Network,
					Index:        *index,
					TrackID:      p.Track.ID,
					PreimageHash: p.Preimage.HashHex(),
					Proposer:     p.Proposer,
					PostID:       res.PostID,
				},
			),
		)
	}
	o.logger.Info(
		"referendum submitted",
		"tx_hash", txHash,
		"track", p.Track.Name,
		"post_id", res.PostID,
	)
	return res, nil
}

func (o *Orchestrator) fail(token generation.Token, txHash string, err error) (Result, error) {
	if !o.setState(token, StateFailed, txHash, err) {
		return Result{}, ErrCancelled
	}
	o.logger.Error(
		"submission failed",
		"tx_hash", txHash,
		"error", err,
	)
	return Result{State: StateFailed, TxHash: txHash, Err: err}, err
}

// setState applies s unless token has been superseded
func (o *Orchestrator) setState(token generation.Token, s State, txHash string, err error) bool {
	o.mu.Lock()
	if !token.Current() {
		o.mu.Unlock()
		return false
	}
	o.state = s
	o.mu.Unlock()
	if o.config.EventBus != nil {
		evt := event.SubmissionStatusEvent{
			Attempt: token.Generation(),
			State:   s.String(),
			TxHash:  txHash,
		}
		if err != nil {
			evt.Err = Message(err)
		}
		o.config.EventBus.Publish(
			event.SubmissionStatusEventType,
			event.NewEvent(event.SubmissionStatusEventType, evt),
		)
	}
	return true
}

// Message returns the text to show for a failed submission. Chain errors
// are shown verbatim.
func Message(err error) string {
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
