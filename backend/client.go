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

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseBytes bounds JSON responses read from the backend
const maxResponseBytes = 4 << 20

// Client talks to the metadata API over HTTP
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption is a functional option for configuring a Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom *http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithAPIKey sends key in the x-api-key header of every request
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithLogger sets the client logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestPreimage returns the most recent preimage noted under hash.
// Corresponds to POST /preimages/latest?hash=...
func (c *Client) LatestPreimage(ctx context.Context, hash string) (*PreimageRecord, error) {
	reqURL := c.baseURL + PathLatestPreimage + "?hash=" + url.QueryEscape(hash)
	var ret PreimageRecord
	if err := c.doPost(ctx, reqURL, nil, &ret); err != nil {
		return nil, fmt.Errorf("getting preimage %s: %w", hash, err)
	}
	return &ret, nil
}

// USDValues returns the USD valuation of an amount.
// Corresponds to POST /treasuryProposalUSDValues.
func (c *Client) USDValues(ctx context.Context, req USDValuesRequest) (*USDValuesResponse, error) {
	var ret USDValuesResponse
	if err := c.doPost(ctx, c.baseURL+PathUSDValues, req, &ret); err != nil {
		return nil, fmt.Errorf("getting usd values: %w", err)
	}
	return &ret, nil
}

// CreateProposal records proposal metadata and returns the post ID.
// Corresponds to POST /auth/actions/createTreasuryProposal.
func (c *Client) CreateProposal(ctx context.Context, req CreateProposalRequest) (int64, error) {
	var ret CreateProposalResponse
	if err := c.doPost(ctx, c.baseURL+PathCreateProposal, req, &ret); err != nil {
		return 0, fmt.Errorf("creating proposal %d: %w", req.ReferendumIndex, err)
	}
	return ret.PostID, nil
}

func (c *Client) doPost(ctx context.Context, reqURL string, body any, out any) error {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()
	limited := io.LimitReader(resp.Body, maxResponseBytes)
	c.logger.Debug(
		"backend request",
		"component", "backend",
		"url", reqURL,
		"status", resp.StatusCode,
	)
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		var apiErr Error
		data, _ := io.ReadAll(io.LimitReader(limited, 1024))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return &apiErr
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty response body")
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
