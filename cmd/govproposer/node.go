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
	"context"
	"log/slog"
	"path/filepath"

	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/backend"
	"github.com/polkassembly/govproposer/chain"
	"github.com/polkassembly/govproposer/event"
	"github.com/polkassembly/govproposer/internal/config"
	"github.com/polkassembly/govproposer/preimage"
	"github.com/polkassembly/govproposer/resolver"
	"github.com/prometheus/client_golang/prometheus"
)

// node holds the components that talk to the chain and the metadata backend
type node struct {
	logger   *slog.Logger
	adapter  *chain.Adapter
	runtime  preimage.Runtime
	assets   *asset.Registry
	eventBus *event.EventBus
	backend  *backend.Client
	resolver *resolver.Resolver
}

func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*node, error) {
	base, err := cfg.Runtime()
	if err != nil {
		return nil, err
	}
	assets, err := cfg.AssetRegistry()
	if err != nil {
		return nil, err
	}
	adapter, err := chain.Dial(cfg.NodeURL, chain.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	rt, err := adapter.Runtime(ctx, base)
	if err != nil {
		adapter.Close()
		return nil, err
	}
	n := &node{
		logger:   logger,
		adapter:  adapter,
		runtime:  rt,
		assets:   assets,
		eventBus: event.NewEventBus(prometheus.DefaultRegisterer, logger),
		backend: backend.NewClient(
			cfg.BackendURL,
			backend.WithAPIKey(cfg.BackendAPIKey),
			backend.WithLogger(logger),
		),
	}
	n.resolver = resolver.NewResolver(resolver.ResolverConfig{
		Cache:        n.backend,
		Chain:        adapter,
		Runtime:      rt,
		Assets:       assets,
		Logger:       logger,
		EventBus:     n.eventBus,
		PromRegistry: prometheus.DefaultRegisterer,
	})
	return n, nil
}

func (n *node) Close() {
	n.eventBus.Stop()
	n.adapter.Close()
}

func draftDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "drafts", cfg.Network)
}
