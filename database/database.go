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

// Package database stores indexed preimages and treasury proposal metadata
// for the reference metadata API.
package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/polkassembly/govproposer/database/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Database is a SQLite backed store
type Database struct {
	db      *gorm.DB
	logger  *slog.Logger
	dataDir string
	metrics struct {
		preimagesIndexed prometheus.Counter
		proposalsCreated prometheus.Counter
	}
}

// New opens the store under dataDir. An empty dataDir opens a private
// in-memory database, which is what tests use.
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*Database, error) {
	var dsn string
	if dataDir == "" {
		// Each in-memory store gets its own name so that stores opened by
		// different tests do not share tables
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	} else {
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
			filepath.Join(dataDir, "govproposer.sqlite"),
		)
	}
	gdb, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, err
	}
	if dataDir == "" {
		// A shared-cache memory database lives as long as one connection
		// stays open
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	d := &Database{
		db:      gdb,
		logger:  logger,
		dataDir: dataDir,
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if err := d.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	for _, model := range models.MigrateModels {
		d.logger.Debug(fmt.Sprintf("creating table: %T", model), "component", "database")
		if err := d.db.AutoMigrate(model); err != nil {
			return nil, err
		}
	}
	factory := promauto.With(promRegistry)
	d.metrics.preimagesIndexed = factory.NewCounter(prometheus.CounterOpts{
		Name: "govproposer_db_preimages_indexed_total",
		Help: "preimages written to the index",
	})
	d.metrics.proposalsCreated = factory.NewCounter(prometheus.CounterOpts{
		Name: "govproposer_db_proposals_created_total",
		Help: "treasury proposals recorded",
	})
	return d, nil
}

// DB returns the underlying gorm handle
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AddPreimage indexes a noted preimage
func (d *Database) AddPreimage(p *models.Preimage) error {
	if result := d.db.Create(p); result.Error != nil {
		return result.Error
	}
	d.metrics.preimagesIndexed.Inc()
	return nil
}

// LatestPreimage returns the most recently indexed preimage with hash
func (d *Database) LatestPreimage(network, hash string) (*models.Preimage, error) {
	var ret models.Preimage
	result := d.db.Where("network = ? AND hash = ?", network, hash).
		Order("id DESC").
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrPreimageNotFound
		}
		return nil, result.Error
	}
	return &ret, nil
}

// CreateProposal records proposal metadata. When preimage is not nil it is
// indexed in the same transaction so later lookups by hash find it.
func (d *Database) CreateProposal(
	proposal *models.TreasuryProposal,
	preimage *models.Preimage,
) error {
	err := d.db.Transaction(func(txn *gorm.DB) error {
		var count int64
		result := txn.Model(&models.TreasuryProposal{}).
			Where("network = ? AND referendum_index = ?", proposal.Network, proposal.ReferendumIndex).
			Count(&count)
		if result.Error != nil {
			return result.Error
		}
		if count > 0 {
			return models.ErrProposalAlreadyExist
		}
		if result := txn.Create(proposal); result.Error != nil {
			return result.Error
		}
		if preimage != nil {
			if result := txn.Create(preimage); result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	d.metrics.proposalsCreated.Inc()
	if preimage != nil {
		d.metrics.preimagesIndexed.Inc()
	}
	d.logger.Debug(
		"recorded treasury proposal",
		"component", "database",
		"network", proposal.Network,
		"referendum", proposal.ReferendumIndex,
	)
	return nil
}

// Proposal returns the metadata of a referendum
func (d *Database) Proposal(network string, index uint32) (*models.TreasuryProposal, error) {
	var ret models.TreasuryProposal
	result := d.db.Where("network = ? AND referendum_index = ?", network, index).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrProposalNotFound
		}
		return nil, result.Error
	}
	return &ret, nil
}

// CloseProposal stores the USD value at the time the proposal closed
func (d *Database) CloseProposal(network string, index uint32, usdValue string) error {
	result := d.db.Model(&models.TreasuryProposal{}).
		Where("network = ? AND referendum_index = ?", network, index).
		Update("usd_value_on_closed", usdValue)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrProposalNotFound
	}
	return nil
}
