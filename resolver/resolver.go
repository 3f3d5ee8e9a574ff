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

// Package resolver looks up a previously noted preimage by hash and
// reconstructs the beneficiaries it pays.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/backend"
	"github.com/polkassembly/govproposer/beneficiary"
	"github.com/polkassembly/govproposer/event"
	"github.com/polkassembly/govproposer/preimage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrNotFound              = errors.New("preimage not found")
	ErrNotTreasuryCompatible = errors.New("preimage is not a treasury spend")
	ErrInvalidHash           = preimage.ErrInvalidHash
)

// Source names where a preimage was found
type Source string

const (
	SourceBackend Source = "backend"
	SourceChain   Source = "chain"
)

// Cache is the metadata backend's preimage index
type Cache interface {
	LatestPreimage(ctx context.Context, hash string) (*backend.PreimageRecord, error)
}

// ChainStorage reads raw storage values. A missing value is returned as nil
// with no error. key is the SCALE encoded map key.
type ChainStorage interface {
	Storage(ctx context.Context, pallet, item string, key []byte) ([]byte, error)
}

// Decoded is an existing preimage together with the spend it encodes
type Decoded struct {
	Preimage      preimage.Preimage
	Call          preimage.DecodedCall
	Beneficiaries beneficiary.Set
	Asset         asset.Asset
	Source        Source
}

type ResolverConfig struct {
	Cache        Cache
	Chain        ChainStorage
	Runtime      preimage.Runtime
	Assets       *asset.Registry
	Logger       *slog.Logger
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
}

type Resolver struct {
	config  ResolverConfig
	logger  *slog.Logger
	metrics struct {
		lookups *prometheus.CounterVec
	}
}

func NewResolver(config ResolverConfig) *Resolver {
	r := &Resolver{config: config}
	if config.Logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		r.logger = config.Logger
	}
	r.metrics.lookups = promauto.With(config.PromRegistry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "govproposer_preimage_lookups_total",
			Help: "existing preimage lookups by outcome",
		},
		[]string{"outcome"},
	)
	return r
}

var tracer = otel.Tracer("github.com/polkassembly/govproposer/resolver")

// Resolve finds the preimage noted under hashHex, trying the backend cache
// before chain storage, and decodes its beneficiaries
func (r *Resolver) Resolve(ctx context.Context, hashHex string) (*Decoded, error) {
	ctx, span := tracer.Start(ctx, "resolver.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("preimage.hash", hashHex))
	ret, err := r.resolve(ctx, hashHex)
	switch {
	case err == nil:
		r.metrics.lookups.WithLabelValues(string(ret.Source)).Inc()
		span.SetAttributes(attribute.String("preimage.source", string(ret.Source)))
	case errors.Is(err, ErrNotFound):
		r.metrics.lookups.WithLabelValues("not_found").Inc()
	case errors.Is(err, ErrNotTreasuryCompatible):
		r.metrics.lookups.WithLabelValues("incompatible").Inc()
	default:
		r.metrics.lookups.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return ret, err
}

func (r *Resolver) resolve(ctx context.Context, hashHex string) (*Decoded, error) {
	hash, err := preimage.ParseHash(hashHex)
	if err != nil {
		return nil, err
	}
	hashHex = preimage.HashToHex(hash)
	if r.config.Cache != nil {
		ret, err := r.fromCache(ctx, hash, hashHex)
		if err == nil || errors.Is(err, ErrNotTreasuryCompatible) {
			return ret, err
		}
		r.logger.Debug(
			"preimage cache miss",
			"component", "resolver",
			"hash", hashHex,
			"error", err,
		)
	}
	if r.config.Chain == nil {
		return nil, ErrNotFound
	}
	return r.fromChain(ctx, hash)
}

func (r *Resolver) fromCache(ctx context.Context, hash types.H256, hashHex string) (*Decoded, error) {
	rec, err := r.config.Cache.LatestPreimage(ctx, hashHex)
	if err != nil {
		return nil, err
	}
	p := preimage.Preimage{
		Hash:           hash,
		Length:         rec.Length,
		StorageDeposit: r.config.Runtime.Deposit.For(rec.Length),
	}
	var call preimage.DecodedCall
	switch {
	case rec.EncodedCall != "":
		data, err := preimage.DecodeHex(rec.EncodedCall)
		if err != nil {
			return nil, err
		}
		p = preimage.FromBytes(data, r.config.Runtime.Deposit)
		if p.Hash != hash {
			return nil, fmt.Errorf("%w: cached call does not match hash", preimage.ErrMalformedCall)
		}
		call, err = preimage.DecodeCall(data, r.config.Runtime)
		if err != nil {
			return nil, classify(err)
		}
	case len(rec.ProposedCall) > 0:
		call, err = preimage.DecodeProposedCallJSON(rec.Section, rec.Method, rec.ProposedCall)
		if err != nil {
			return nil, classify(err)
		}
	default:
		return nil, fmt.Errorf("%w: cached record has no call", preimage.ErrMalformedCall)
	}
	return r.finish(p, call, SourceBackend)
}

func (r *Resolver) fromChain(ctx context.Context, hash types.H256) (*Decoded, error) {
	length, err := r.chainLength(ctx, hash)
	if err != nil {
		return nil, err
	}
	raw, err := r.config.Chain.Storage(ctx, "Preimage", "PreimageFor", preimage.PreimageForKey(hash, length))
	if err != nil {
		return nil, fmt.Errorf("reading preimage: %w", err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	data, err := preimage.DecodeStoredPreimage(raw)
	if err != nil {
		return nil, err
	}
	p := preimage.FromBytes(data, r.config.Runtime.Deposit)
	if p.Hash != hash {
		return nil, fmt.Errorf("%w: stored preimage does not match hash", preimage.ErrMalformedCall)
	}
	call, err := preimage.DecodeCall(data, r.config.Runtime)
	if err != nil {
		return nil, classify(err)
	}
	return r.finish(p, call, SourceChain)
}

// chainLength reads the noted length of hash from RequestStatusFor, falling
// back to the legacy StatusFor item
func (r *Resolver) chainLength(ctx context.Context, hash types.H256) (uint32, error) {
	for _, item := range []string{"RequestStatusFor", "StatusFor"} {
		raw, err := r.config.Chain.Storage(ctx, "Preimage", item, hash[:])
		if err != nil {
			return 0, fmt.Errorf("reading preimage status: %w", err)
		}
		if raw == nil {
			continue
		}
		length, err := preimage.DecodeRequestStatus(raw)
		if errors.Is(err, preimage.ErrLengthUnknown) {
			return 0, ErrNotFound
		}
		return length, err
	}
	return 0, ErrNotFound
}

// Exists reports whether hash is noted on chain and returns its length. The
// backend cache is not consulted since it may lag behind the chain.
func (r *Resolver) Exists(ctx context.Context, hash types.H256) (bool, uint32, error) {
	if r.config.Chain == nil {
		return false, 0, errors.New("resolver: no chain storage configured")
	}
	length, err := r.chainLength(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, length, nil
}

func (r *Resolver) finish(p preimage.Preimage, call preimage.DecodedCall, source Source) (*Decoded, error) {
	set, a, err := preimage.Beneficiaries(call, r.config.Runtime, r.config.Assets)
	if err != nil {
		return nil, classify(err)
	}
	if r.config.EventBus != nil {
		r.config.EventBus.PublishAsync(
			event.PreimageResolvedEventType,
			event.NewEvent(event.PreimageResolvedEventType, event.PreimageResolvedEvent{
				Hash:   p.HashHex(),
				Length: p.Length,
				Source: string(source),
			}),
		)
	}
	return &Decoded{
		Preimage:      p,
		Call:          call,
		Beneficiaries: set,
		Asset:         a,
		Source:        source,
	}, nil
}

func classify(err error) error {
	if errors.Is(err, preimage.ErrUnsupportedCall) {
		return fmt.Errorf("%w: %w", ErrNotTreasuryCompatible, err)
	}
	return err
}
