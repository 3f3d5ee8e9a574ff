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

package chain

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrInsecureFileMode is returned for key files other users can access
	ErrInsecureFileMode = errors.New("insecure file permissions")
	ErrNotRegularFile   = errors.New("not a regular file")
)

// key files hold one secret URI and are never large
const maxKeyFileSize = 4096

// LoadSecretFile reads a signing secret (seed, mnemonic or dev URI) from
// path. Blank lines and lines starting with '#' are skipped. The file must
// not be accessible to other users.
func LoadSecretFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open key file %q: %w", path, err)
	}
	defer f.Close()
	// Checks run on the open handle so the file cannot be swapped between
	// the check and the read
	fi, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat key file %q: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("key file %q: %w", path, ErrNotRegularFile)
	}
	if err := checkSecretFileAccess(f, fi); err != nil {
		return "", err
	}
	data, err := io.ReadAll(io.LimitReader(f, maxKeyFileSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read key file %q: %w", path, err)
	}
	if len(data) > maxKeyFileSize {
		return "", fmt.Errorf("key file %q is larger than %d bytes", path, maxKeyFileSize)
	}
	return parseSecret(data)
}

func parseSecret(data []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", errors.New("key file contains no secret")
}

// NewKeyringWalletFromFile is NewKeyringWallet with the secret read by
// LoadSecretFile
func NewKeyringWalletFromFile(path string, prefix uint16) (*KeyringWallet, error) {
	secret, err := LoadSecretFile(path)
	if err != nil {
		return nil, err
	}
	return NewKeyringWallet(secret, prefix)
}
