// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	"github.com/conneskills/cs-agent-registry-api/pkg/config"
)

// Open creates the backend selected by cfg.Backend. Backend names and
// aliases are those accepted by config.BackendName.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	name, ok := config.BackendName(cfg.Backend)
	if !ok {
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if name == config.BackendMemory {
		return NewMemoryBackend(), nil
	}
	dialect, err := DialectByName(name)
	if err != nil {
		return nil, err
	}
	return OpenSQLTable(ctx, dialect, cfg.DSN, cfg.Table)
}
