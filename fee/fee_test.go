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

package fee

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChain struct {
	fee      *big.Int
	balance  *big.Int
	feeErr   error
	calls    atomic.Int32
	lastCall types.Call
}

func (m *mockChain) PaymentInfo(_ context.Context, call types.Call, _ string) (*big.Int, error) {
	m.calls.Add(1)
	m.lastCall = call
	if m.feeErr != nil {
		return nil, m.feeErr
	}
	return new(big.Int).Set(m.fee), nil
}

func (m *mockChain) FreeBalance(_ context.Context, _ string) (*big.Int, error) {
	if m.balance == nil {
		return nil, errors.New("account not found")
	}
	return m.balance, nil
}

func newTestEstimator(m *mockChain) *Estimator {
	return NewEstimator(EstimatorConfig{Payments: m, Balances: m})
}

func TestEstimateTotal(t *testing.T) {
	m := &mockChain{fee: big.NewInt(150_000_000)}
	e := newTestEstimator(m)
	call := types.Call{CallIndex: types.CallIndex{SectionIndex: 26, MethodIndex: 2}}
	est, err := e.Estimate(context.Background(), Request{
		Call:              call,
		Payer:             "payer",
		StorageDeposit:    big.NewInt(401_050_000_000),
		SubmissionDeposit: big.NewInt(10_000_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, "150000000", est.PartialFee.String())
	assert.Equal(t, "411200000000", est.TotalRequired.String())
	assert.Equal(t, call, m.lastCall)
}

func TestEstimateExistingPreimageHasNoStorageDeposit(t *testing.T) {
	m := &mockChain{fee: big.NewInt(10)}
	est, err := newTestEstimator(m).Estimate(context.Background(), Request{
		Payer:             "payer",
		SubmissionDeposit: big.NewInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "0", est.StorageDeposit.String())
	assert.Equal(t, "110", est.TotalRequired.String())
}

func TestEstimateIsIdempotentAndUncached(t *testing.T) {
	m := &mockChain{fee: big.NewInt(42)}
	e := newTestEstimator(m)
	req := Request{Payer: "payer", StorageDeposit: big.NewInt(1), SubmissionDeposit: big.NewInt(2)}
	first, err := e.Estimate(context.Background(), req)
	require.NoError(t, err)
	second, err := e.Estimate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), m.calls.Load())

	// chain state changed between queries
	m.fee = big.NewInt(43)
	third, err := e.Estimate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "46", third.TotalRequired.String())
}

func TestEstimateErrors(t *testing.T) {
	m := &mockChain{feeErr: errors.New("rpc down")}
	reg := prometheus.NewRegistry()
	e := NewEstimator(EstimatorConfig{Payments: m, Balances: m, PromRegistry: reg})
	_, err := e.Estimate(context.Background(), Request{Payer: "payer"})
	assert.ErrorIs(t, err, ErrFeeQuery)
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.failures.WithLabelValues("payment_info")))

	_, err = e.Estimate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoPayer)

	_, err = e.Estimate(context.Background(), Request{Payer: "payer", StorageDeposit: big.NewInt(-1)})
	assert.ErrorIs(t, err, ErrNegativeValue)
}

func TestCheckBalance(t *testing.T) {
	m := &mockChain{fee: big.NewInt(10), balance: big.NewInt(109)}
	e := newTestEstimator(m)
	est, err := e.Estimate(context.Background(), Request{Payer: "payer", SubmissionDeposit: big.NewInt(100)})
	require.NoError(t, err)

	err = e.CheckBalance(context.Background(), "payer", est)
	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "109", insufficient.Available.String())
	assert.Equal(t, "110", insufficient.Required.String())

	m.balance = big.NewInt(110)
	assert.NoError(t, e.CheckBalance(context.Background(), "payer", est))

	m.balance = nil
	assert.ErrorIs(t, e.CheckBalance(context.Background(), "payer", est), ErrBalanceQuery)
}
