// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/joho/godotenv"

	"github.com/staranto/splitctl/internal/cache"
	"github.com/staranto/splitctl/internal/cacheutil"
	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/command"
	"github.com/staranto/splitctl/internal/config"
	mylog "github.com/staranto/splitctl/internal/log"
	"github.com/staranto/splitctl/internal/split"
	"github.com/staranto/splitctl/internal/version"
)

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	// The admin API key traditionally lives in a .env next to the tool.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("failed to load .env")
	}

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		args = mangleArguments(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return 0
		}
	}

	// Best-effort: pre-create cache directory when caching is enabled.
	if _, ok, err := cacheutil.EnsureBaseDir(); err != nil && ok {
		// Non-fatal: print to stderr and continue.
		fmt.Fprintln(os.Stderr, err)
	}

	if hours, _ := config.GetInt("cache.clean", 0); hours > 0 {
		if err := cacheutil.Purge(hours); err != nil {
			log.WithError(err).Warn("cache clean failed")
		}
	}

	apiKey := split.APIKeyFromEnv()
	path, _ := cacheutil.StorePath(apiKey)
	store := cache.New(path)
	store.Load()

	app, err := command.InitApp(ctx, args, store, connector(apiKey, store))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// connector builds the Split client and catalog the first time a command
// asks for them.
func connector(apiKey string, store *cache.Store) func() (*catalog.Catalog, error) {
	var c *catalog.Catalog
	return func() (*catalog.Catalog, error) {
		if c != nil {
			return c, nil
		}

		opts := []split.Option{}
		if u, _ := config.GetString("api.url", ""); u != "" {
			opts = append(opts, split.WithBaseURL(u))
		}
		if n, _ := config.GetInt("api.retries", 0); n > 0 {
			opts = append(opts, split.WithRetryMax(n))
		}
		if n, _ := config.GetInt("api.pagesize", 0); n > 0 {
			opts = append(opts, split.WithPageSize(n))
		}

		client, err := split.NewClient(apiKey, opts...)
		if err != nil {
			return nil, err
		}
		log.Debugf("split api: %s", client.BaseURL())

		concurrency, _ := config.GetInt("concurrency", 4)
		c = catalog.New(store, client, catalog.WithConcurrency(concurrency))
		return c, nil
	}
}

// mangleArguments expands an @set from the config file into arguments. A
// set is a list of argument strings under <command>.<set>; @defaults is used
// when no set is named.
func mangleArguments(args []string) []string {
	// We know the first two args are going to be the executable and command.
	preamble := make([]string, 2)
	copy(preamble, args[:2])

	// Short-circuit for --help/-h. If help is requested, just keep the preamble
	// and add --help flag.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return append(preamble, "--help")
		}
	}

	idx := 2
	set := "defaults"
	rest := append([]string(nil), args[2:]...)
	// See if there is a @set specified. If so, it is removed from args and
	// its entries take its place.
	for i, a := range rest {
		if strings.HasPrefix(a, "@") {
			set = a[1:]
			idx += i
			rest = append(rest[:i], rest[i+1:]...)
			break
		}
	}
	args = append(preamble, rest...)

	setArgs, _ := config.GetStringSlice(args[1] + "." + set)
	for _, arg := range setArgs {
		parts := strings.Fields(arg)
		args = append(args[:idx], append(parts, args[idx:]...)...)
		idx += len(parts)
	}

	log.Debugf("idx=%d, set=%s, args=%v", idx, set, args)
	return args
}
