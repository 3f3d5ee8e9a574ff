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
	"github.com/polkassembly/govproposer/internal/config"
	"github.com/polkassembly/govproposer/track"
	"github.com/spf13/cobra"
)

var trackSelectFlags = struct {
	asset string
}{}

// selectTrack returns the track for amount (major units of kind) valued in
// the native token at the configured prices
func selectTrack(cfg *config.Config, amount string, kind asset.Kind) (track.Track, error) {
	assets, err := cfg.AssetRegistry()
	if err != nil {
		return track.Track{}, err
	}
	tbl, err := cfg.TrackTable()
	if err != nil {
		return track.Track{}, err
	}
	a, ok := assets.ByKind(kind)
	if !ok {
		return track.Track{}, fmt.Errorf("%w: %q", asset.ErrUnknownAsset, kind)
	}
	total, err := asset.ToMinorUnits(amount, a.Decimals)
	if err != nil {
		return track.Track{}, err
	}
	native := asset.ConvertToCommonValuation(total, a, assets.Native(), cfg.PriceTable())
	if total.Sign() > 0 && native.Sign() == 0 {
		return track.Track{}, fmt.Errorf("no price configured for %s", a.Symbol)
	}
	return track.Select(native, tbl)
}

func printTracks(out io.Writer, tbl track.Table) {
	for _, t := range tbl.Treasury() {
		fmt.Fprintln(out, t.String())
	}
}

func trackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Inspect treasury tracks",
	}
	selectCmd := &cobra.Command{
		Use:   "select <amount>",
		Short: "Show the smallest track that allows a spend",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustConfig(cmd)
			kind := asset.Kind(trackSelectFlags.asset)
			if trackSelectFlags.asset == "native" {
				kind = asset.KindNative
			}
			t, err := selectTrack(cfg, args[0], kind)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
		},
	}
	selectCmd.Flags().StringVarP(&trackSelectFlags.asset, "asset", "a", "native", "asset the amount is given in")
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List treasury tracks and their spend limits",
		Run: func(cmd *cobra.Command, _ []string) {
			tbl, err := mustConfig(cmd).TrackTable()
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			printTracks(cmd.OutOrStdout(), tbl)
		},
	}
	cmd.AddCommand(selectCmd)
	cmd.AddCommand(listCmd)
	return cmd
}
