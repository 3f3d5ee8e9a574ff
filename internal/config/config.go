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

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/polkassembly/govproposer/asset"
	"github.com/polkassembly/govproposer/preimage"
	"github.com/polkassembly/govproposer/track"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "govproposer.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultSigningTimeout  = "60s"
	DefaultFeeDebounce     = "500ms"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// TrackConfig overrides the spend limit of a built-in track. MaxSpend is in
// minor units of the native token, or "unbounded".
type TrackConfig struct {
	ID       uint16 `yaml:"id"`
	MaxSpend string `yaml:"maxSpend"`
}

type tempConfig struct {
	Config *yaml.Node `yaml:"config,omitempty"`
}

type Config struct {
	Network         string            `yaml:"network"`
	NodeURL         string            `yaml:"nodeUrl"         envconfig:"NODE_URL"`
	BackendURL      string            `yaml:"backendUrl"      envconfig:"BACKEND_URL"`
	BackendAPIKey   string            `yaml:"backendApiKey"   envconfig:"BACKEND_API_KEY"`
	DataDir         string            `yaml:"dataDir"                                 split_words:"true"`
	BindAddr        string            `yaml:"bindAddr"                                split_words:"true"`
	Port            uint              `yaml:"port"`
	MetricsPort     uint              `yaml:"metricsPort"                             split_words:"true"`
	APIKey          string            `yaml:"apiKey"          envconfig:"API_KEY"`
	SigningKey      string            `yaml:"signingKey"                              split_words:"true"`
	SigningKeyFile  string            `yaml:"signingKeyFile"                          split_words:"true"`
	SigningTimeout  string            `yaml:"signingTimeout"                          split_words:"true"`
	FeeDebounce     string            `yaml:"feeDebounce"                             split_words:"true"`
	ShutdownTimeout string            `yaml:"shutdownTimeout"                         split_words:"true"`
	Tracing         bool              `yaml:"tracing"`
	TracingStdout   bool              `yaml:"tracingStdout"                           split_words:"true"`
	Prices          map[string]string `yaml:"prices"`
	Tracks          []TrackConfig     `yaml:"tracks"          ignored:"true"`
}

var globalConfig = defaultConfig()

func defaultConfig() *Config {
	return &Config{
		Network:         "polkadot",
		NodeURL:         "wss://rpc.polkadot.io",
		BackendURL:      "http://127.0.0.1:8080",
		DataDir:         ".govproposer",
		BindAddr:        "0.0.0.0",
		Port:            8080,
		MetricsPort:     12799,
		SigningTimeout:  DefaultSigningTimeout,
		FeeDebounce:     DefaultFeeDebounce,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// DotEnvFile is read into the environment, when it exists, before the
// environment overlay. Variables that are already set win.
var DotEnvFile = ".env"

func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		// Check for config file in this path: ~/.govproposer/govproposer.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".govproposer", "govproposer.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/govproposer/govproposer.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if tempCfg.Config != nil {
			// Decode the config section over the defaults
			if err := tempCfg.Config.Decode(globalConfig); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}
	if err := envconfig.Process("govproposer", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Validate checks the values that are parsed lazily by the commands
func (c *Config) Validate() error {
	if c.Network == "" {
		return errors.New("network is required")
	}
	if c.SigningKey != "" && c.SigningKeyFile != "" {
		return errors.New("signingKey and signingKeyFile are mutually exclusive")
	}
	for name, s := range map[string]string{
		"signingTimeout":  c.SigningTimeout,
		"feeDebounce":     c.FeeDebounce,
		"shutdownTimeout": c.ShutdownTimeout,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if _, err := c.TrackTable(); err != nil {
		return err
	}
	if _, err := c.AssetRegistry(); err != nil {
		return err
	}
	return nil
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if s == "" || err != nil {
		return def
	}
	return d
}

func (c *Config) SigningTimeoutDuration() time.Duration {
	return duration(c.SigningTimeout, 60*time.Second)
}

func (c *Config) FeeDebounceDuration() time.Duration {
	return duration(c.FeeDebounce, 0)
}

func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout, 30*time.Second)
}

// AssetRegistry returns the built-in asset registry for the network
func (c *Config) AssetRegistry() (*asset.Registry, error) {
	return asset.RegistryForNetwork(c.Network)
}

// Runtime returns the built-in runtime constants for the network
func (c *Config) Runtime() (preimage.Runtime, error) {
	return preimage.RuntimeForNetwork(c.Network)
}

// TrackTable returns the network's track table with any configured spend
// limit overrides applied
func (c *Config) TrackTable() (track.Table, error) {
	tbl, err := track.TableForNetwork(c.Network)
	if err != nil {
		return nil, err
	}
	for _, override := range c.Tracks {
		maxSpend, err := track.ParseMaxSpend(override.MaxSpend)
		if err != nil {
			return nil, fmt.Errorf("invalid maxSpend for track %d: %w", override.ID, err)
		}
		found := false
		for i := range tbl {
			if tbl[i].ID == override.ID {
				tbl[i].MaxSpend = maxSpend
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown track %d", override.ID)
		}
	}
	return tbl, nil
}

// PriceTable converts the configured prices. The key "native" names the
// network's native token.
func (c *Config) PriceTable() asset.PriceTable {
	prices := make(map[asset.Kind]string, len(c.Prices))
	for k, v := range c.Prices {
		kind := asset.Kind(k)
		if k == "native" {
			kind = asset.KindNative
		}
		prices[kind] = v
	}
	return asset.NewPriceTable(prices)
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}
