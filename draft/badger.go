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

package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerRepository stores the draft in a badger database
type BadgerRepository struct {
	db      *badger.DB
	logger  *slog.Logger
	dataDir string
}

type BadgerOptionFunc func(*BadgerRepository)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) BadgerOptionFunc {
	return func(b *BadgerRepository) {
		b.logger = logger
	}
}

// WithDataDir specifies the data directory. Without one the database is
// kept in memory.
func WithDataDir(dataDir string) BadgerOptionFunc {
	return func(b *BadgerRepository) {
		b.dataDir = dataDir
	}
}

func NewBadgerRepository(opts ...BadgerOptionFunc) (*BadgerRepository, error) {
	b := &BadgerRepository{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var badgerOpts badger.Options
	if b.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(b.dataDir, fs.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		badgerOpts = badger.DefaultOptions(b.dataDir)
	}
	badgerOpts = badgerOpts.
		WithLogger(newBadgerLogger(b.logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	b.db = db
	return b, nil
}

func (b *BadgerRepository) Load(_ context.Context) (*Draft, error) {
	var d Draft
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(StorageKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &d)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNoDraft
		}
		return nil, err
	}
	return &d, nil
}

func (b *BadgerRepository) Save(_ context.Context, d *Draft) error {
	d.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(StorageKey), data)
	}); err != nil {
		return err
	}
	b.logger.Debug(
		"saved draft",
		"component", "draft",
		"id", d.ID,
		"step", d.Step,
	)
	return nil
}

func (b *BadgerRepository) Clear(_ context.Context) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(StorageKey))
	})
}

func (b *BadgerRepository) Close() error {
	return b.db.Close()
}

// badgerLogger routes badger's printf style logging through slog
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{logger: logger.With("component", "badger")}
}

func (l *badgerLogger) Errorf(msg string, args ...any) {
	l.logger.Error(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Warningf(msg string, args ...any) {
	l.logger.Warn(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Infof(msg string, args ...any) {
	l.logger.Info(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Debugf(msg string, args ...any) {
	l.logger.Debug(fmt.Sprintf(msg, args...))
}
