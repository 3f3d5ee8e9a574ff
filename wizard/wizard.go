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

// Package wizard sequences the Write, Preimage and Submit steps of a
// treasury proposal over a persisted draft.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/beneficiary"
	"github.com/polkassembly/govproposer/draft"
	"github.com/polkassembly/govproposer/event"
	"github.com/polkassembly/govproposer/fee"
	"github.com/polkassembly/govproposer/internal/generation"
	"github.com/polkassembly/govproposer/preimage"
	"github.com/polkassembly/govproposer/resolver"
	"github.com/polkassembly/govproposer/submission"
	"github.com/polkassembly/govproposer/track"
)

var (
	ErrClosed            = errors.New("wizard is closed")
	ErrStale             = errors.New("superseded by a newer request")
	ErrInvalidPreimage   = errors.New("invalid preimage")
	ErrMissingDiscussion = errors.New("title and description are required")
	ErrNoProposer        = errors.New("no proposer address")
	ErrNoPrice           = errors.New("no price to value the requested asset")
	ErrTrackTooSmall     = errors.New("selected track does not allow the requested amount")
	ErrWrongStep         = errors.New("not on the submit step")
)

// Resolver looks up existing preimages
type Resolver interface {
	Resolve(ctx context.Context, hash string) (*resolver.Decoded, error)
}

// Estimator prices a submission and checks the payer can afford it
type Estimator interface {
	Estimate(ctx context.Context, req fee.Request) (fee.Estimate, error)
	CheckBalance(ctx context.Context, payer string, est fee.Estimate) error
}

// Submitter signs and broadcasts a proposal
type Submitter interface {
	Submit(ctx context.Context, p submission.Proposal) (submission.Result, error)
	Cancel()
}

// HeightQuerier returns the current best block number
type HeightQuerier interface {
	BlockHeight(ctx context.Context) (uint32, error)
}

type ControllerConfig struct {
	Network     string
	Runtime     preimage.Runtime
	Assets      *asset.Registry
	Tracks      track.Table
	Prices      asset.PriceTable
	Drafts      draft.Repository
	Resolver    Resolver
	Preimages   submission.PreimageChecker
	Estimator   Estimator
	Submitter   Submitter
	Heights     HeightQuerier
	FeeDebounce time.Duration
	Logger      *slog.Logger
	EventBus    *event.EventBus
}

// Plan is the fully derived content of a proposal
type Plan struct {
	Asset         asset.Asset
	Beneficiaries beneficiary.Set
	// Total is in minor units of Asset, NativeTotal in native minor units
	Total       *big.Int
	NativeTotal *big.Int
	Track       track.Track
	Preimage    preimage.Preimage
	OnChain     bool
	Enactment   preimage.Enactment
	Call        types.Call
}

// Controller owns the draft of one proposer session. Draft changes are
// applied and saved in the order they are made.
type Controller struct {
	config     ControllerConfig
	logger     *slog.Logger
	builder    *preimage.Builder
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.Mutex
	draft      *draft.Draft
	closed     bool
	timer      *time.Timer
	estimate   *fee.Estimate
	feeGen     generation.Counter
	resolveGen generation.Counter
	wg         sync.WaitGroup
}

// Open resumes the saved draft for the configured network or starts a new
// one
func Open(ctx context.Context, config ControllerConfig) (*Controller, error) {
	if config.Drafts == nil {
		return nil, errors.New("draft repository is required")
	}
	if config.Assets == nil {
		return nil, errors.New("asset registry is required")
	}
	if config.Runtime.Calls == nil {
		return nil, preimage.ErrMetadataUnavailable
	}
	c := &Controller{
		config:  config,
		builder: preimage.NewBuilder(config.Runtime, config.Assets),
	}
	if config.Logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		c.logger = config.Logger
	}
	c.logger = c.logger.With("component", "wizard")
	c.ctx, c.cancel = context.WithCancel(context.Background())
	d, err := config.Drafts.Load(ctx)
	switch {
	case errors.Is(err, draft.ErrNoDraft):
		d = draft.New(config.Network)
	case err != nil:
		c.cancel()
		return nil, fmt.Errorf("load draft: %w", err)
	case d.Network != config.Network:
		c.logger.Info(
			"discarding draft for another network",
			"draft_network", d.Network,
		)
		d = draft.New(config.Network)
	default:
		c.logger.Debug("resumed draft", "id", d.ID, "step", d.Step)
	}
	c.draft = d
	return c, nil
}

func cloneDraft(d *draft.Draft) *draft.Draft {
	data, err := json.Marshal(d)
	if err != nil {
		panic(fmt.Sprintf("draft does not marshal: %s", err))
	}
	var ret draft.Draft
	if err := json.Unmarshal(data, &ret); err != nil {
		panic(fmt.Sprintf("draft does not unmarshal: %s", err))
	}
	return &ret
}

// Draft returns a copy of the current draft
func (c *Controller) Draft() *draft.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneDraft(c.draft)
}

// update applies fn to a copy of the draft and saves it. The in-memory
// draft only changes once the save succeeds.
func (c *Controller) update(ctx context.Context, fn func(d *draft.Draft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	d := cloneDraft(c.draft)
	if err := fn(d); err != nil {
		return err
	}
	if err := c.config.Drafts.Save(ctx, d); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	c.draft = d
	if c.config.EventBus != nil {
		c.config.EventBus.Publish(
			event.DraftSavedEventType,
			event.NewEvent(event.DraftSavedEventType, event.DraftSavedEvent{DraftID: d.ID}),
		)
	}
	return nil
}

// updateSpend is update followed by a debounced fee refresh
func (c *Controller) updateSpend(ctx context.Context, fn func(d *draft.Draft) error) error {
	if err := c.update(ctx, fn); err != nil {
		return err
	}
	c.ScheduleEstimate()
	return nil
}

func (c *Controller) SetProposer(ctx context.Context, address string) error {
	return c.updateSpend(ctx, func(d *draft.Draft) error {
		d.Proposer = address
		return nil
	})
}

// LinkDiscussion describes the proposal with an existing discussion post
func (c *Controller) LinkDiscussion(ctx context.Context, id int64, title, content string) error {
	return c.update(ctx, func(d *draft.Draft) error {
		d.LinkDiscussion = true
		d.DiscussionLinkForm = &draft.DiscussionLinkForm{
			DiscussionID: id,
			Title:        title,
			Content:      content,
		}
		return nil
	})
}

// WriteDiscussion describes the proposal with a new title and description
func (c *Controller) WriteDiscussion(ctx context.Context, title, content string, tags []string) error {
	return c.update(ctx, func(d *draft.Draft) error {
		d.LinkDiscussion = false
		d.WithoutDiscussionLinkForm = &draft.WithoutDiscussionLinkForm{
			Title:   title,
			Content: content,
			Tags:    tags,
		}
		return nil
	})
}

// UseExistingPreimage switches between linking a preimage and building a
// new one. The other branch's form is kept.
func (c *Controller) UseExistingPreimage(ctx context.Context, existing bool) error {
	return c.updateSpend(ctx, func(d *draft.Draft) error {
		d.ExistingPreimage = existing
		if existing && d.WithPreimageForm == nil {
			d.WithPreimageForm = &draft.WithPreimageForm{Enactment: preimage.DefaultEnactment()}
		}
		if !existing && d.WithoutPreimageForm == nil {
			d.WithoutPreimageForm = &draft.WithoutPreimageForm{Enactment: preimage.DefaultEnactment()}
		}
		return nil
	})
}

func newPreimageForm(d *draft.Draft) *draft.WithoutPreimageForm {
	if d.WithoutPreimageForm == nil {
		d.WithoutPreimageForm = &draft.WithoutPreimageForm{Enactment: preimage.DefaultEnactment()}
	}
	return d.WithoutPreimageForm
}

// Dispatch applies a beneficiary edit to the new preimage form
func (c *Controller) Dispatch(ctx context.Context, action beneficiary.Action) error {
	return c.updateSpend(ctx, func(d *draft.Draft) error {
		form := newPreimageForm(d)
		form.Beneficiaries = beneficiary.Reduce(form.Beneficiaries, action)
		return nil
	})
}

// SelectAsset sets the asset paid to every beneficiary
func (c *Controller) SelectAsset(ctx context.Context, kind asset.Kind) error {
	a, ok := c.config.Assets.ByKind(kind)
	if !ok {
		return fmt.Errorf("%w: %q", asset.ErrUnknownAsset, kind)
	}
	return c.updateSpend(ctx, func(d *draft.Draft) error {
		form := newPreimageForm(d)
		form.Beneficiaries = beneficiary.Reduce(form.Beneficiaries, beneficiary.SelectAsset{Asset: a})
		form.AssetKind = kind
		return nil
	})
}

// SetTrack overrides track selection on the active branch. nil restores
// automatic selection.
func (c *Controller) SetTrack(ctx context.Context, id *uint16) error {
	if id != nil {
		if _, ok := c.config.Tracks.ByID(*id); !ok {
			return fmt.Errorf("%w: unknown track %d", track.ErrNoEligibleTrack, *id)
		}
	}
	return c.updateSpend(ctx, func(d *draft.Draft) error {
		if d.ExistingPreimage && d.WithPreimageForm != nil {
			d.WithPreimageForm.TrackID = id
			return nil
		}
		newPreimageForm(d).TrackID = id
		return nil
	})
}

// SetEnactment sets when the spend is enacted on the active branch
func (c *Controller) SetEnactment(ctx context.Context, e preimage.Enactment) error {
	if err := e.Validate(0); err != nil {
		return err
	}
	return c.updateSpend(ctx, func(d *draft.Draft) error {
		if d.ExistingPreimage && d.WithPreimageForm != nil {
			d.WithPreimageForm.Enactment = e
			return nil
		}
		newPreimageForm(d).Enactment = e
		return nil
	})
}

// SetPreimageHash links an existing preimage and fills the form from its
// decoded beneficiaries. A lookup overtaken by a newer one returns ErrStale
// and changes nothing.
func (c *Controller) SetPreimageHash(ctx context.Context, hash string) error {
	if c.config.Resolver == nil {
		return fmt.Errorf("%w: no resolver configured", ErrInvalidPreimage)
	}
	token := c.resolveGen.Next()
	err := c.update(ctx, func(d *draft.Draft) error {
		d.ExistingPreimage = true
		enactment := preimage.DefaultEnactment()
		if d.WithPreimageForm != nil {
			enactment = d.WithPreimageForm.Enactment
		}
		d.WithPreimageForm = &draft.WithPreimageForm{PreimageHash: hash, Enactment: enactment}
		return nil
	})
	if err != nil {
		return err
	}
	dec, err := c.config.Resolver.Resolve(ctx, hash)
	if !token.Current() {
		return ErrStale
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPreimage, err)
	}
	return c.updateSpend(ctx, func(d *draft.Draft) error {
		form := d.WithPreimageForm
		if !token.Current() || form == nil || form.PreimageHash != hash {
			return ErrStale
		}
		form.PreimageLength = dec.Preimage.Length
		form.Beneficiaries = dec.Beneficiaries
		form.AssetKind = dec.Asset.Kind
		return nil
	})
}

// Next validates the current step and advances to the following one
func (c *Controller) Next(ctx context.Context) error {
	d := c.Draft()
	switch d.Step {
	case draft.StepWrite:
		if d.Title() == "" || (d.Content() == "" && d.DiscussionID() == nil) {
			return ErrMissingDiscussion
		}
		return c.setStep(ctx, draft.StepPreimage)
	case draft.StepPreimage:
		if _, err := c.plan(ctx, d); err != nil {
			return err
		}
		return c.setStep(ctx, draft.StepSubmit)
	default:
		return nil
	}
}

// Back returns to the previous step
func (c *Controller) Back(ctx context.Context) error {
	d := c.Draft()
	switch d.Step {
	case draft.StepSubmit:
		return c.setStep(ctx, draft.StepPreimage)
	case draft.StepPreimage:
		return c.setStep(ctx, draft.StepWrite)
	default:
		return nil
	}
}

func (c *Controller) setStep(ctx context.Context, s draft.Step) error {
	return c.update(ctx, func(d *draft.Draft) error {
		d.Step = s
		return nil
	})
}

// Plan derives the call, preimage and track from the current draft
func (c *Controller) Plan(ctx context.Context) (Plan, error) {
	return c.plan(ctx, c.Draft())
}

func (c *Controller) plan(ctx context.Context, d *draft.Draft) (Plan, error) {
	var ret Plan
	if d.ExistingPreimage {
		form := d.WithPreimageForm
		if form == nil || form.PreimageLength == 0 || len(form.Beneficiaries) == 0 {
			return ret, ErrInvalidPreimage
		}
		hash, err := preimage.ParseHash(form.PreimageHash)
		if err != nil {
			return ret, fmt.Errorf("%w: %w", ErrInvalidPreimage, err)
		}
		a, ok := c.config.Assets.ByKind(form.AssetKind)
		if !ok {
			return ret, fmt.Errorf("%w: %q", asset.ErrUnknownAsset, form.AssetKind)
		}
		ret.Asset = a
		ret.Beneficiaries = form.Beneficiaries
		ret.Preimage = preimage.Preimage{
			Hash:           hash,
			Length:         form.PreimageLength,
			StorageDeposit: new(big.Int),
		}
		ret.OnChain = true
		ret.Enactment = form.Enactment
		if err := c.selectTrack(&ret, form.TrackID); err != nil {
			return ret, err
		}
	} else {
		form := d.WithoutPreimageForm
		if form == nil {
			return ret, beneficiary.ErrEmptySet
		}
		if err := beneficiary.Validate(form.Beneficiaries, c.config.Runtime.SS58Prefix, c.config.Assets); err != nil {
			return ret, err
		}
		kind, _ := form.Beneficiaries.Asset()
		a, ok := c.config.Assets.ByKind(kind)
		if !ok {
			return ret, fmt.Errorf("%w: %q", asset.ErrUnknownAsset, kind)
		}
		ret.Asset = a
		ret.Beneficiaries = form.Beneficiaries
		ret.Enactment = form.Enactment
		if err := c.selectTrack(&ret, form.TrackID); err != nil {
			return ret, err
		}
		call, err := c.builder.BuildSpendCall(form.Beneficiaries, a)
		if err != nil {
			return ret, err
		}
		ret.Preimage = preimage.FromCall(call, c.config.Runtime.Deposit)
		if c.config.Preimages != nil {
			exists, _, err := c.config.Preimages.Exists(ctx, ret.Preimage.Hash)
			if err != nil {
				c.logger.Warn("preimage existence check failed", "error", err)
			}
			ret.OnChain = exists
		}
	}
	if c.config.Heights != nil && ret.Enactment.Kind == preimage.EnactAtBlock {
		height, err := c.config.Heights.BlockHeight(ctx)
		if err != nil {
			return ret, err
		}
		if err := ret.Enactment.Validate(height); err != nil {
			return ret, err
		}
	}
	call, err := submission.Bundle(c.builder, ret.Preimage, ret.OnChain, ret.Track, ret.Enactment)
	if err != nil {
		return ret, err
	}
	ret.Call = call
	return ret, nil
}

// selectTrack values the spend in the native token and picks the track
func (c *Controller) selectTrack(p *Plan, override *uint16) error {
	total, err := beneficiary.Total(p.Beneficiaries)
	if err != nil {
		return err
	}
	p.Total = total
	native := c.config.Assets.Native()
	p.NativeTotal = asset.ConvertToCommonValuation(total, p.Asset, native, c.config.Prices)
	if total.Sign() > 0 && p.NativeTotal.Sign() == 0 {
		return fmt.Errorf("%w: %s", ErrNoPrice, p.Asset.Symbol)
	}
	if override != nil {
		t, ok := c.config.Tracks.ByID(*override)
		if !ok {
			return fmt.Errorf("%w: unknown track %d", track.ErrNoEligibleTrack, *override)
		}
		if !t.Allows(p.NativeTotal) {
			return fmt.Errorf("%w: %s", ErrTrackTooSmall, t)
		}
		p.Track = t
		return nil
	}
	t, err := track.Select(p.NativeTotal, c.config.Tracks)
	if err != nil {
		return err
	}
	p.Track = t
	return nil
}

func (c *Controller) feeRequest(d *draft.Draft, p Plan) fee.Request {
	req := fee.Request{
		Call:              p.Call,
		Payer:             d.Proposer,
		SubmissionDeposit: c.config.Runtime.SubmissionDeposit,
	}
	if !p.OnChain {
		req.StorageDeposit = p.Preimage.StorageDeposit
	}
	return req
}

// EstimateFee queries a fresh estimate for the current draft. The result is
// kept as the latest estimate unless a newer request started meanwhile.
func (c *Controller) EstimateFee(ctx context.Context) (fee.Estimate, error) {
	if c.config.Estimator == nil {
		return fee.Estimate{}, errors.New("no fee estimator configured")
	}
	token := c.feeGen.Next()
	d := c.Draft()
	p, err := c.plan(ctx, d)
	if err != nil {
		return fee.Estimate{}, err
	}
	est, err := c.config.Estimator.Estimate(ctx, c.feeRequest(d, p))
	if !token.Current() {
		return fee.Estimate{}, ErrStale
	}
	if err != nil {
		return fee.Estimate{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fee.Estimate{}, ErrClosed
	}
	c.estimate = &est
	return est, nil
}

// LastEstimate returns the most recent estimate, if any. It is for display
// only; Submit always queries again.
func (c *Controller) LastEstimate() (fee.Estimate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.estimate == nil {
		return fee.Estimate{}, false
	}
	return *c.estimate, true
}

// ScheduleEstimate refreshes the estimate after FeeDebounce, restarting the
// wait if called again first. It does nothing without a debounce interval.
func (c *Controller) ScheduleEstimate() {
	if c.config.FeeDebounce <= 0 || c.config.Estimator == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	// supersede any estimate already in flight
	c.feeGen.Next()
	if c.timer != nil && c.timer.Stop() {
		c.wg.Done()
	}
	c.wg.Add(1)
	c.timer = time.AfterFunc(c.config.FeeDebounce, func() {
		defer c.wg.Done()
		if _, err := c.EstimateFee(c.ctx); err != nil && !errors.Is(err, ErrStale) {
			c.logger.Debug("fee estimate failed", "error", err)
		}
	})
}

// Submit re-derives the proposal, re-checks fee and balance against the
// chain and submits it. The draft is cleared on success and kept on failure.
func (c *Controller) Submit(ctx context.Context) (submission.Result, error) {
	if c.config.Submitter == nil || c.config.Estimator == nil {
		return submission.Result{}, errors.New("submission is not configured")
	}
	d := c.Draft()
	if d.Step != draft.StepSubmit {
		return submission.Result{}, ErrWrongStep
	}
	if d.Proposer == "" {
		return submission.Result{}, ErrNoProposer
	}
	p, err := c.plan(ctx, d)
	if err != nil {
		return submission.Result{}, err
	}
	est, err := c.config.Estimator.Estimate(ctx, c.feeRequest(d, p))
	if err != nil {
		return submission.Result{}, err
	}
	if err := c.config.Estimator.CheckBalance(ctx, d.Proposer, est); err != nil {
		return submission.Result{}, err
	}
	res, err := c.config.Submitter.Submit(ctx, submission.Proposal{
		Network:       c.config.Network,
		Proposer:      d.Proposer,
		Title:         d.Title(),
		Content:       d.Content(),
		DiscussionID:  d.DiscussionID(),
		Track:         p.Track,
		Preimage:      p.Preimage,
		Enactment:     p.Enactment,
		AssetKind:     p.Asset.Kind,
		Beneficiaries: p.Beneficiaries,
	})
	if err != nil {
		return res, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return res, nil
	}
	if err := c.config.Drafts.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear draft", "error", err)
	}
	c.draft = draft.New(c.config.Network)
	c.estimate = nil
	return res, nil
}

// Close stops pending timers and in-flight requests. No callback issued
// before Close changes the draft afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.feeGen.Next()
	c.resolveGen.Next()
	if c.timer != nil && c.timer.Stop() {
		c.wg.Done()
	}
	c.cancel()
	c.mu.Unlock()
	if c.config.Submitter != nil {
		c.config.Submitter.Cancel()
	}
	c.wg.Wait()
}

// Exit closes the wizard and discards the saved draft
func (c *Controller) Exit(ctx context.Context) error {
	c.Close()
	return c.config.Drafts.Clear(ctx)
}
