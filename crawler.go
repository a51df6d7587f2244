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

// Package checker crawls all pages of one project on a site and reports
// its structural health: unreachable pages, sub-resources that fail to
// load, and JavaScript errors observed while each page executes. The
// project is identified by a "context:<token>" segment embedded in the
// seed URL; pages containing "context:<token>" or "o:<token>" on the same
// origin are considered part of the project.
package checker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrCrawlAlreadyStarted is returned by Run when the crawler has already
// been started. A Crawler performs exactly one crawl.
var ErrCrawlAlreadyStarted = errors.New("crawl already started")

// State describes where a crawl is in its lifecycle.
type State int32

const (
	// StateIdle: Run has not been called yet.
	StateIdle State = iota
	// StateRunning: the frontier is being processed.
	StateRunning
	// StateDone: the frontier drained or the crawl was stopped; the
	// report snapshot is final.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Config contains all options for a crawl.
type Config struct {
	// SeedURL is the page the crawl starts from. Its origin and embedded
	// project token define the crawl scope.
	SeedURL string
	// PageTimeout bounds a single navigation including the wait for
	// network idle. Default: 30s.
	PageTimeout time.Duration
	// SettleDelay is the pause after a successful load before moving on,
	// giving delayed asynchronous errors a chance to surface. Default: 1s.
	SettleDelay time.Duration
	// Parallelism is the number of concurrent browser sessions.
	// Default: 1.
	Parallelism int
	// MaxPages stops the crawl after this many processed visits as a
	// safety valve on very large sites. 0 means unlimited.
	MaxPages int
	// ExcludePatterns are glob patterns removed from scope even when they
	// pass the origin and token checks.
	ExcludePatterns []string
	// Browser is the rendering substrate. When nil, Run launches headless
	// Chrome and closes it when the crawl ends.
	Browser Browser
	// Logger receives crawl progress. Default: no-op.
	Logger *zap.Logger
}

// NewDefaultConfig returns a Config for seedURL with the default timing
// parameters.
func NewDefaultConfig(seedURL string) *Config {
	return &Config{
		SeedURL:     seedURL,
		PageTimeout: 30 * time.Second,
		SettleDelay: time.Second,
		Parallelism: 1,
	}
}

// Crawler is the top-level crawl aggregate: scope policy, frontier, visit
// ledger and the collected error records. Create one with New, run it
// once with Run, and hand the returned Report to a report writer.
type Crawler struct {
	config   *Config
	policy   *ScopePolicy
	ledger   *VisitLedger
	frontier *Frontier
	recorder *Recorder
	logger   *zap.Logger

	seed         string
	state        atomic.Int32
	pagesChecked atomic.Int64
	stopped      atomic.Bool
}

// New validates the configuration and builds a crawler. The scope policy
// is derived from the seed URL here and never changes afterwards.
func New(config *Config) (*Crawler, error) {
	if config == nil {
		return nil, errors.New("config is nil")
	}
	if config.SeedURL == "" {
		return nil, errors.New("seed URL is empty")
	}
	policy, err := DeriveScope(config.SeedURL, config.ExcludePatterns...)
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ledger := NewVisitLedger()
	return &Crawler{
		config:   config,
		policy:   policy,
		ledger:   ledger,
		frontier: NewFrontier(ledger),
		recorder: NewRecorder(),
		logger:   logger,
		seed:     normalizeURL(config.SeedURL),
	}, nil
}

// State returns the crawl's lifecycle state.
func (c *Crawler) State() State {
	return State(c.state.Load())
}

// Scope returns the policy derived from the seed URL.
func (c *Crawler) Scope() *ScopePolicy {
	return c.policy
}

// PagesChecked returns the number of visits processed so far.
func (c *Crawler) PagesChecked() int {
	return int(c.pagesChecked.Load())
}

// Run performs the crawl and returns the final report. It blocks until
// the frontier is drained, the MaxPages valve triggers, or ctx is
// cancelled; a cancelled crawl still returns the partial report. The only
// error conditions are a substrate that cannot be launched and a crawler
// that was already run.
func (c *Crawler) Run(ctx context.Context) (*Report, error) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrCrawlAlreadyStarted
	}
	started := time.Now()

	browser := c.config.Browser
	if browser == nil {
		chrome, err := NewChromeBrowser(ctx, c.logger)
		if err != nil {
			c.state.Store(int32(StateDone))
			return nil, err
		}
		defer chrome.Close()
		browser = chrome
	}

	parallelism := c.config.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	// One session and one correlator per worker slot, created up front so
	// substrate failures surface before any page is visited.
	visitors := make(chan *pageVisitor, parallelism)
	for i := 0; i < parallelism; i++ {
		correlator := NewCorrelator(c.policy, c.recorder, c.logger)
		session, err := browser.NewSession(ctx, correlator.Handlers())
		if err != nil {
			close(visitors)
			for v := range visitors {
				v.session.Close()
			}
			c.state.Store(int32(StateDone))
			return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
		}
		visitors <- &pageVisitor{
			session:    session,
			correlator: correlator,
			timeout:    c.config.PageTimeout,
			settle:     c.config.SettleDelay,
			logger:     c.logger,
		}
	}
	defer func() {
		close(visitors)
		for v := range visitors {
			v.session.Close()
		}
	}()

	c.logger.Info("crawl started",
		zap.String("seed", c.seed),
		zap.String("origin", c.policy.Origin()),
		zap.String("token", c.policy.Token()),
		zap.Int("parallelism", parallelism))

	// pending counts frontier entries that have been pushed but not yet
	// fully processed. It reaches zero only when no worker can discover
	// more work, at which point the frontier is closed and the dispatch
	// loop below ends. The counter is incremented before the entry
	// becomes visible in the queue: once queued, an entry can be popped
	// and Done'd by a worker at any moment, and Add must happen-before
	// that Done or the counter could touch zero with work still pending.
	var pending sync.WaitGroup
	push := func(e Entry) {
		pending.Add(1)
		if !c.frontier.Push(e) {
			pending.Done()
		}
	}

	// The seed is pushed before the closer goroutine starts so that Wait
	// cannot observe the counter at zero and close the frontier first.
	push(Entry{URL: c.seed, FoundOn: FoundOnStart})
	go func() {
		pending.Wait()
		c.frontier.Close()
	}()

	// The pool deliberately runs on a background context: cancellation is
	// handled per entry, so every queued job still executes, the pending
	// count stays exact, and the frontier drains without deadlocking.
	pool := NewWorkerPool(context.Background(), parallelism, parallelism*4)
	for {
		entry, ok := c.frontier.PopNext()
		if !ok {
			break
		}
		e := entry
		err := pool.Submit(func() {
			defer pending.Done()
			v := <-visitors
			defer func() { visitors <- v }()
			c.processEntry(ctx, v, e, push)
		})
		if err != nil {
			// Unreachable while the pool runs on a background context,
			// but a rejected job must still be accounted for.
			pending.Done()
		}
	}
	pool.Close()

	report := c.snapshot(started)
	c.state.Store(int32(StateDone))
	c.logger.Info("crawl finished",
		zap.Int("pagesChecked", report.PagesChecked),
		zap.Int("brokenLinks", len(report.BrokenLinks)),
		zap.Int("consoleErrors", len(report.ConsoleErrors)),
		zap.Int("resourceErrors", len(report.ResourceErrors)),
		zap.Bool("wasStopped", report.WasStopped))
	return report, nil
}

// processEntry handles one popped frontier entry: re-validate, mark
// visited, visit, record the outcome and enqueue newly discovered links.
func (c *Crawler) processEntry(ctx context.Context, v *pageVisitor, e Entry, push func(Entry)) {
	if ctx.Err() != nil {
		if c.stopped.CompareAndSwap(false, true) {
			c.logger.Warn("crawl cancelled, draining frontier")
		}
		return
	}
	// Scope and visited state are re-checked at pop time: both can have
	// changed since the entry was pushed.
	if !c.policy.Contains(e.URL) {
		return
	}
	// The limit check and the increment below are not atomic together, so
	// concurrent workers can overshoot MaxPages by up to Parallelism-1
	// pages. That is accepted for a safety valve against runaway crawls.
	if c.config.MaxPages > 0 && int(c.pagesChecked.Load()) >= c.config.MaxPages {
		if c.stopped.CompareAndSwap(false, true) {
			c.logger.Warn("page limit reached, draining frontier",
				zap.Int("maxPages", c.config.MaxPages))
		}
		return
	}
	if !c.ledger.MarkVisited(e.URL, e.FoundOn) {
		return
	}

	n := c.pagesChecked.Add(1)
	c.logger.Info("visiting page",
		zap.Int64("page", n),
		zap.String("url", e.URL),
		zap.String("foundOn", e.FoundOn))

	outcome := v.visit(ctx, e.URL)
	if outcome.Broken() {
		c.recorder.AddBrokenLink(BrokenLinkRecord{
			URL:     e.URL,
			FoundOn: e.FoundOn,
			Status:  outcome.StatusLabel(),
			Error:   outcome.Err,
		})
	}

	if ctx.Err() != nil {
		return
	}
	for _, link := range outcome.Links {
		link = normalizeURL(link)
		if !c.policy.Contains(link) {
			continue
		}
		if c.ledger.Visited(link) {
			continue
		}
		push(Entry{URL: link, FoundOn: e.URL})
	}
}

// snapshot builds the final read-only report from the aggregate state.
func (c *Crawler) snapshot(started time.Time) *Report {
	urls, sources := c.ledger.Snapshot()
	pages := make([]VisitedPage, 0, len(urls))
	for _, u := range urls {
		pages = append(pages, VisitedPage{URL: u, FoundOn: sources[u]})
	}
	return &Report{
		Seed:           c.seed,
		Origin:         c.policy.Origin(),
		Token:          c.policy.Token(),
		StartedAt:      started,
		FinishedAt:     time.Now(),
		WasStopped:     c.stopped.Load(),
		PagesChecked:   len(urls),
		Pages:          pages,
		BrokenLinks:    c.recorder.BrokenLinks(),
		ConsoleErrors:  c.recorder.ConsoleErrors(),
		ResourceErrors: c.recorder.ResourceErrors(),
	}
}
