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

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/chain"
	"github.com/polkassembly/govproposer/draft"
	"github.com/polkassembly/govproposer/event"
	"github.com/polkassembly/govproposer/fee"
	"github.com/polkassembly/govproposer/internal/config"
	"github.com/polkassembly/govproposer/preimage"
	"github.com/polkassembly/govproposer/submission"
	"github.com/polkassembly/govproposer/wizard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var proposeFlags = struct {
	file    string
	resume  bool
	discard bool
	dryRun  bool
}{}

func proposeRun(cmd *cobra.Command, cfg *config.Config) error {
	logger := commonRun()
	out := cmd.OutOrStdout()
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	stopTracing := setupTracing(ctx, cfg, logger)
	defer stopTracing()

	drafts, err := draft.NewBadgerRepository(
		draft.WithLogger(logger),
		draft.WithDataDir(draftDir(cfg)),
	)
	if err != nil {
		return fmt.Errorf("failed to open draft store: %w", err)
	}
	defer drafts.Close()
	if proposeFlags.discard {
		if err := drafts.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "saved draft discarded")
		return nil
	}
	var pf *proposalFile
	switch {
	case proposeFlags.file != "" && proposeFlags.resume:
		return errors.New("--file and --resume are mutually exclusive")
	case proposeFlags.file != "":
		if pf, err = loadProposalFile(proposeFlags.file); err != nil {
			return err
		}
		// A new proposal replaces whatever draft was saved
		if err := drafts.Clear(ctx); err != nil {
			return err
		}
	case !proposeFlags.resume:
		return errors.New("one of --file or --resume is required")
	}

	n, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer n.Close()
	tracks, err := cfg.TrackTable()
	if err != nil {
		return err
	}
	var wallet *chain.KeyringWallet
	if cfg.SigningKeyFile != "" {
		wallet, err = chain.NewKeyringWalletFromFile(cfg.SigningKeyFile, n.runtime.SS58Prefix)
	} else {
		wallet, err = chain.NewKeyringWallet(cfg.SigningKey, n.runtime.SS58Prefix)
	}
	if err != nil {
		return err
	}
	orchestrator, err := submission.NewOrchestrator(submission.OrchestratorConfig{
		Builder:        preimage.NewBuilder(n.runtime, n.assets),
		Wallet:         wallet,
		Chain:          n.adapter,
		Metadata:       n.backend,
		Preimages:      n.resolver,
		SigningTimeout: cfg.SigningTimeoutDuration(),
		Logger:         logger,
		EventBus:       n.eventBus,
		PromRegistry:   prometheus.DefaultRegisterer,
	})
	if err != nil {
		return err
	}
	w, err := wizard.Open(ctx, wizard.ControllerConfig{
		Network:   cfg.Network,
		Runtime:   n.runtime,
		Assets:    n.assets,
		Tracks:    tracks,
		Prices:    cfg.PriceTable(),
		Drafts:    drafts,
		Resolver:  n.resolver,
		Preimages: n.resolver,
		Estimator: fee.NewEstimator(fee.EstimatorConfig{
			Payments:     n.adapter,
			Balances:     n.adapter,
			Logger:       logger,
			PromRegistry: prometheus.DefaultRegisterer,
		}),
		Submitter:   orchestrator,
		Heights:     n.adapter,
		FeeDebounce: cfg.FeeDebounceDuration(),
		Logger:      logger,
		EventBus:    n.eventBus,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if pf != nil {
		if pf.Proposer == "" {
			pf.Proposer = wallet.Address()
		}
		if err := pf.apply(ctx, w, n.assets); err != nil {
			return err
		}
	} else if w.Draft().Step != draft.StepSubmit {
		return errors.New("no saved draft is ready to submit")
	}

	plan, err := w.Plan(ctx)
	if err != nil {
		return err
	}
	printPlan(out, plan)
	est, err := w.EstimateFee(ctx)
	if err != nil {
		return err
	}
	printEstimate(out, est, n.assets.Native())
	if proposeFlags.dryRun {
		fmt.Fprintln(out, "dry run: draft saved, nothing submitted")
		return nil
	}

	statusSub := n.eventBus.SubscribeFunc(event.SubmissionStatusEventType, func(evt event.Event) {
		if e, ok := evt.Data.(event.SubmissionStatusEvent); ok {
			logger.Info("submission "+e.State, "tx_hash", e.TxHash, "component", "propose")
		}
	})
	defer n.eventBus.Unsubscribe(event.SubmissionStatusEventType, statusSub)
	res, err := w.Submit(ctx)
	if err != nil {
		fmt.Fprintf(out, "submission failed: %s\n", submission.Message(err))
		if errors.Is(err, submission.ErrStatusLost) && res.TxHash != "" {
			fmt.Fprintf(out, "transaction %s may still be included, check it before retrying\n", res.TxHash)
		}
		fmt.Fprintln(out, "the draft was kept, retry with --resume")
		return err
	}
	printResult(out, res)
	return nil
}

func printPlan(out io.Writer, p wizard.Plan) {
	fmt.Fprintf(out, "track:       %s\n", p.Track)
	fmt.Fprintf(out, "total:       %s %s\n", asset.ToMajorUnits(p.Total, p.Asset.Decimals), p.Asset.Symbol)
	for _, b := range p.Beneficiaries {
		amount, err := asset.ParseMinor(b.Amount)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "  %s  %s\n", b.Address, asset.ToMajorUnits(amount, p.Asset.Decimals))
	}
	fmt.Fprintf(out, "preimage:    %s (%d bytes)\n", p.Preimage.HashHex(), p.Preimage.Length)
	if p.OnChain {
		fmt.Fprintln(out, "             already noted on chain")
	}
	fmt.Fprintf(out, "enactment:   %s %d\n", p.Enactment.Kind, p.Enactment.Value)
}

func printEstimate(out io.Writer, est fee.Estimate, native asset.Asset) {
	fmt.Fprintf(out, "fee:         %s %s\n", asset.ToMajorUnits(est.PartialFee, native.Decimals), native.Symbol)
	fmt.Fprintf(out, "deposits:    %s %s\n",
		asset.ToMajorUnits(new(big.Int).Add(est.StorageDeposit, est.SubmissionDeposit), native.Decimals),
		native.Symbol,
	)
	fmt.Fprintf(out, "required:    %s %s\n", asset.ToMajorUnits(est.TotalRequired, native.Decimals), native.Symbol)
}

func printResult(out io.Writer, res submission.Result) {
	fmt.Fprintf(out, "submitted:   %s\n", res.TxHash)
	if res.ReferendumIndex != nil {
		fmt.Fprintf(out, "referendum:  #%d\n", *res.ReferendumIndex)
	}
	if res.PersistErr != nil {
		fmt.Fprintf(out, "warning: proposal metadata was not saved: %s\n", res.PersistErr)
	} else if res.PostID != 0 {
		fmt.Fprintf(out, "post:        %d\n", res.PostID)
	}
}

func proposeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Create a treasury proposal from a YAML file",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustConfig(cmd)
			if err := proposeRun(cmd, cfg); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVarP(&proposeFlags.file, "file", "f", "", "proposal YAML file")
	cmd.Flags().BoolVar(&proposeFlags.resume, "resume", false, "submit the saved draft")
	cmd.Flags().BoolVar(&proposeFlags.discard, "discard", false, "discard the saved draft")
	cmd.Flags().BoolVar(&proposeFlags.dryRun, "dry-run", false, "estimate fees without submitting")
	return cmd
}
