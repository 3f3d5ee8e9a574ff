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
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/beneficiary"
	"github.com/polkassembly/govproposer/internal/config"
	"github.com/polkassembly/govproposer/preimage"
	"github.com/spf13/cobra"
)

var preimageBuildFlags = struct {
	file string
}{}

// buildPreimage encodes the spend described by pf with the network's
// built-in runtime constants
func buildPreimage(cfg *config.Config, pf *proposalFile) (preimage.Preimage, beneficiary.Set, asset.Asset, error) {
	rt, err := cfg.Runtime()
	if err != nil {
		return preimage.Preimage{}, nil, asset.Asset{}, err
	}
	assets, err := cfg.AssetRegistry()
	if err != nil {
		return preimage.Preimage{}, nil, asset.Asset{}, err
	}
	set, a, err := pf.beneficiaries(assets)
	if err != nil {
		return preimage.Preimage{}, nil, a, err
	}
	if err := beneficiary.Validate(set, rt.SS58Prefix, assets); err != nil {
		return preimage.Preimage{}, nil, a, err
	}
	call, err := preimage.NewBuilder(rt, assets).BuildSpendCall(set, a)
	if err != nil {
		return preimage.Preimage{}, nil, a, err
	}
	return preimage.FromCall(call, rt.Deposit), set, a, nil
}

func printPreimage(out io.Writer, p preimage.Preimage, set beneficiary.Set, a asset.Asset, native asset.Asset) {
	fmt.Fprintf(out, "hash:     %s\n", p.HashHex())
	fmt.Fprintf(out, "length:   %d\n", p.Length)
	if p.StorageDeposit != nil && p.StorageDeposit.Sign() > 0 {
		fmt.Fprintf(out, "deposit:  %s %s\n", asset.ToMajorUnits(p.StorageDeposit, native.Decimals), native.Symbol)
	}
	if len(p.EncodedCall) > 0 {
		fmt.Fprintf(out, "call:     %s\n", p.CallHex())
	}
	for _, b := range set {
		amount, err := asset.ParseMinor(b.Amount)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "  %s  %s %s\n", b.Address, asset.ToMajorUnits(amount, a.Decimals), a.Symbol)
	}
}

func preimageBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Encode the spend call of a proposal file",
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := mustConfig(cmd)
			pf, err := loadProposalFile(preimageBuildFlags.file)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			p, set, a, err := buildPreimage(cfg, pf)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			assets, _ := cfg.AssetRegistry()
			printPreimage(cmd.OutOrStdout(), p, set, a, assets.Native())
		},
	}
	cmd.Flags().StringVarP(&preimageBuildFlags.file, "file", "f", "", "proposal YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func preimageResolveRun(cmd *cobra.Command, cfg *config.Config, hash string) error {
	logger := commonRun()
	n, err := connect(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer n.Close()
	dec, err := n.resolver.Resolve(cmd.Context(), hash)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printPreimage(out, dec.Preimage, dec.Beneficiaries, dec.Asset, n.assets.Native())
	fmt.Fprintf(out, "source:   %s\n", dec.Source)
	return nil
}

func preimageResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <hash>",
		Short: "Look up and decode an existing preimage",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := preimageResolveRun(cmd, mustConfig(cmd), args[0]); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
}

func preimageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preimage",
		Short: "Build or inspect treasury spend preimages",
	}
	cmd.AddCommand(preimageBuildCommand())
	cmd.AddCommand(preimageResolveCommand())
	return cmd
}
