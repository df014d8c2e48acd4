// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package split is a small client for the Split Admin REST API. It covers the
// listing, lookup and delete calls the admin tooling needs, drains paginated
// collections, and retries rate-limited requests at the transport.
package split
