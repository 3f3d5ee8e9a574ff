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

// Package fee estimates the cost of submitting a proposal and checks that
// the proposer can cover it.
package fee

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentQuerier returns the partial fee the chain charges payer for
// including call
type PaymentQuerier interface {
	PaymentInfo(ctx context.Context, call types.Call, payer string) (*big.Int, error)
}

// BalanceQuerier returns an account's transferable balance
type BalanceQuerier interface {
	FreeBalance(ctx context.Context, address string) (*big.Int, error)
}

var (
	ErrNoPayer       = errors.New("no payer address")
	ErrFeeQuery      = errors.New("fee query failed")
	ErrBalanceQuery  = errors.New("balance query failed")
	ErrNegativeValue = errors.New("negative fee component")
)

// InsufficientBalanceError is returned when the payer cannot cover the
// estimated total
type InsufficientBalanceError struct {
	Address   string
	Available *big.Int
	Required  *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf(
		"insufficient balance: %s has %s, requires %s",
		e.Address,
		e.Available,
		e.Required,
	)
}

// Request describes the transaction to be estimated. StorageDeposit is zero
// when the preimage already exists on chain.
type Request struct {
	Call              types.Call
	Payer             string
	StorageDeposit    *big.Int
	SubmissionDeposit *big.Int
}

// Estimate is the breakdown of what a submission will cost the payer
type Estimate struct {
	PartialFee        *big.Int
	StorageDeposit    *big.Int
	SubmissionDeposit *big.Int
	TotalRequired     *big.Int
}

type EstimatorConfig struct {
	Payments     PaymentQuerier
	Balances     BalanceQuerier
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// Estimator queries the chain for fees and balances. It keeps no cache so
// every call reflects the current chain state.
type Estimator struct {
	config  EstimatorConfig
	logger  *slog.Logger
	metrics struct {
		queries  *prometheus.CounterVec
		failures *prometheus.CounterVec
	}
}

func NewEstimator(config EstimatorConfig) *Estimator {
	e := &Estimator{config: config}
	if config.Logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		e.logger = config.Logger
	}
	factory := promauto.With(config.PromRegistry)
	e.metrics.queries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "govproposer_fee_queries_total",
			Help: "fee and balance queries issued to the chain",
		},
		[]string{"kind"},
	)
	e.metrics.failures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "govproposer_fee_query_failures_total",
			Help: "fee and balance queries that returned an error",
		},
		[]string{"kind"},
	)
	return e
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Estimate returns the fee breakdown for req.
// TotalRequired = PartialFee + StorageDeposit + SubmissionDeposit.
func (e *Estimator) Estimate(ctx context.Context, req Request) (Estimate, error) {
	if req.Payer == "" {
		return Estimate{}, ErrNoPayer
	}
	storage := nonNil(req.StorageDeposit)
	submission := nonNil(req.SubmissionDeposit)
	if storage.Sign() < 0 || submission.Sign() < 0 {
		return Estimate{}, ErrNegativeValue
	}
	e.metrics.queries.WithLabelValues("payment_info").Inc()
	partial, err := e.config.Payments.PaymentInfo(ctx, req.Call, req.Payer)
	if err != nil {
		e.metrics.failures.WithLabelValues("payment_info").Inc()
		e.logger.Debug(
			"payment info query failed",
			"component", "fee",
			"payer", req.Payer,
			"error", err,
		)
		return Estimate{}, fmt.Errorf("%w: %w", ErrFeeQuery, err)
	}
	partial = nonNil(partial)
	if partial.Sign() < 0 {
		return Estimate{}, ErrNegativeValue
	}
	total := new(big.Int).Add(partial, storage)
	total.Add(total, submission)
	e.logger.Debug(
		"estimated submission cost",
		"component", "fee",
		"payer", req.Payer,
		"partial_fee", partial.String(),
		"storage_deposit", storage.String(),
		"submission_deposit", submission.String(),
		"total", total.String(),
	)
	return Estimate{
		PartialFee:        partial,
		StorageDeposit:    storage,
		SubmissionDeposit: submission,
		TotalRequired:     total,
	}, nil
}

// CheckBalance fetches the payer's free balance and returns an
// *InsufficientBalanceError when it is below est.TotalRequired
func (e *Estimator) CheckBalance(ctx context.Context, payer string, est Estimate) error {
	if payer == "" {
		return ErrNoPayer
	}
	e.metrics.queries.WithLabelValues("balance").Inc()
	free, err := e.config.Balances.FreeBalance(ctx, payer)
	if err != nil {
		e.metrics.failures.WithLabelValues("balance").Inc()
		return fmt.Errorf("%w: %w", ErrBalanceQuery, err)
	}
	required := nonNil(est.TotalRequired)
	if free == nil || free.Cmp(required) < 0 {
		return &InsufficientBalanceError{
			Address:   payer,
			Available: nonNil(free),
			Required:  required,
		}
	}
	return nil
}
