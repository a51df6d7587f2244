// Copyright 2026 Christoph Steiner
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
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	checker "github.com/chsteiner/gams-console-error-checker"
	"github.com/chsteiner/gams-console-error-checker/internal/report"
	"github.com/chsteiner/gams-console-error-checker/internal/store"
)

// stringSlice collects repeated flag values.
type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func runCrawl(args []string) error {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)

	var (
		timeout     time.Duration
		settle      time.Duration
		parallelism int
		maxPages    int
		excludes    stringSlice
		outputDir   string
		format      string
		noSave      bool
		dbPath      string
		quiet       bool
	)
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "Per-page navigation timeout")
	fs.DurationVar(&settle, "settle", time.Second, "Wait after page load for delayed script errors")
	fs.IntVar(&parallelism, "parallelism", 1, "Number of concurrent browser tabs")
	fs.IntVar(&maxPages, "max-pages", 0, "Stop after checking this many pages (0 = unlimited)")
	fs.Var(&excludes, "exclude", "Glob pattern to exclude from the check (repeatable)")
	fs.StringVar(&outputDir, "o", ".", "Directory for the report file")
	fs.StringVar(&format, "format", report.FormatText, "Report format: text, json or csv")
	fs.BoolVar(&noSave, "no-save", false, "Do not persist the result in the local database")
	fs.StringVar(&dbPath, "db", "", "Database file (default ~/.gams-checker/checker.db)")
	fs.BoolVar(&quiet, "quiet", false, "Log errors only")

	fs.Usage = func() {
		fmt.Println(`Usage: gams-checker crawl [flags] <seed-url>

Check every page of the project identified by the seed URL's
context token and report unreachable pages, failing resources and
JavaScript errors.

Flags:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one seed URL required")
	}
	seedURL := fs.Arg(0)

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if quiet {
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	config := checker.NewDefaultConfig(seedURL)
	config.PageTimeout = timeout
	config.SettleDelay = settle
	config.Parallelism = parallelism
	config.MaxPages = maxPages
	config.ExcludePatterns = excludes
	config.Logger = logger

	crawler, err := checker.New(config)
	if err != nil {
		return err
	}

	// An interrupt stops the crawl gracefully; the partial report is
	// still written and saved.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := crawler.Run(ctx)
	if err != nil {
		return err
	}

	path, err := report.WriteFile(outputDir, format, result)
	if err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", path)

	if !noSave {
		st, err := openStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %v", err)
		}
		defer st.Close()

		crawl, err := st.SaveReport(result)
		if err != nil {
			return err
		}
		fmt.Printf("Saved as crawl %d\n", crawl.ID)
	}

	if len(result.BrokenLinks)+len(result.ConsoleErrors)+len(result.ResourceErrors) > 0 {
		fmt.Printf("Found %d broken links, %d console errors, %d resource errors on %d pages\n",
			len(result.BrokenLinks), len(result.ConsoleErrors), len(result.ResourceErrors),
			result.PagesChecked)
		os.Exit(2)
	}

	fmt.Printf("No issues found on %d pages\n", result.PagesChecked)
	return nil
}

// openStore opens the default database or, when path is set, a specific
// database file.
func openStore(path string) (*store.Store, error) {
	if path == "" {
		return store.NewStore()
	}
	return store.NewStoreAtPath(path)
}
