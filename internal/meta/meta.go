// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package meta

import (
	"context"
	"errors"

	"github.com/staranto/splitctl/internal/cache"
	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/config"
)

var ErrNotConnected = errors.New("no Split API connection configured")

// Connector builds the catalog on first use. Commands that never talk to the
// API, such as cache path or completion, work without credentials.
type Connector func() (*catalog.Catalog, error)

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args    []string
	Config  config.Type
	Context context.Context
	Store   *cache.Store
	Connect Connector
}

// Catalog returns the catalog for the current account.
func (m Meta) Catalog() (*catalog.Catalog, error) {
	if m.Connect == nil {
		return nil, ErrNotConnected
	}
	return m.Connect()
}
