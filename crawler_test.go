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

package checker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

const testSeed = "https://app.example.com/env/context:tok/start"

func newTestCrawler(t *testing.T, browser *MockBrowser, mutate ...func(*Config)) *Crawler {
	t.Helper()
	config := NewDefaultConfig(testSeed)
	config.Browser = browser
	config.SettleDelay = 0
	config.PageTimeout = time.Second
	for _, m := range mutate {
		m(config)
	}
	c, err := New(config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func runCrawl(t *testing.T, c *Crawler) *Report {
	t.Helper()
	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return report
}

func pageByURL(report *Report, url string) (VisitedPage, bool) {
	for _, p := range report.Pages {
		if p.URL == url {
			return p, true
		}
	}
	return VisitedPage{}, false
}

func TestCrawlerVisitsOnlyProjectPages(t *testing.T) {
	b := NewMockBrowser()
	b.RegisterPage(testSeed, &MockPage{Links: []string{
		"https://app.example.com/env/context:tok/detail",
		"https://app.example.com/env/o:tok/item/1",
		"https://app.example.com/env/context:other/foreign",
		"https://app.example.com/env/plain",
		"https://cdn.example.net/env/context:tok/offsite",
	}})
	b.RegisterPage("https://app.example.com/env/context:tok/detail", &MockPage{})
	b.RegisterPage("https://app.example.com/env/o:tok/item/1", &MockPage{})

	report := runCrawl(t, newTestCrawler(t, b))

	if report.PagesChecked != 3 {
		t.Errorf("PagesChecked = %d, want 3", report.PagesChecked)
	}
	scope, err := DeriveScope(testSeed)
	if err != nil {
		t.Fatalf("DeriveScope failed: %v", err)
	}
	for _, p := range report.Pages {
		if !scope.Contains(p.URL) {
			t.Errorf("visited out-of-scope URL %q", p.URL)
		}
	}
	if _, ok := pageByURL(report, normalizeURL("https://app.example.com/env/plain")); ok {
		t.Error("same-origin page without project token should not be visited")
	}
	if report.Token != "tok" {
		t.Errorf("Token = %q, want %q", report.Token, "tok")
	}
	if report.WasStopped {
		t.Error("drained crawl should not be marked stopped")
	}
	if got := newTestCrawler(t, b); got.State() != StateIdle {
		t.Errorf("fresh crawler state = %v, want idle", got.State())
	}
}

func TestCrawlerVisitsEachPageOnce(t *testing.T) {
	// start <-> a <-> b form a cycle; every page also links back to start.
	b := NewMockBrowser()
	b.RegisterPage(testSeed, &MockPage{Links: []string{
		"https://app.example.com/env/context:tok/a",
	}})
	b.RegisterPage("https://app.example.com/env/context:tok/a", &MockPage{Links: []string{
		"https://app.example.com/env/context:tok/b",
		testSeed,
	}})
	b.RegisterPage("https://app.example.com/env/context:tok/b", &MockPage{Links: []string{
		"https://app.example.com/env/context:tok/a",
		testSeed,
	}})

	report := runCrawl(t, newTestCrawler(t, b))

	if report.PagesChecked != 3 {
		t.Errorf("PagesChecked = %d, want 3", report.PagesChecked)
	}
	seen := make(map[string]int)
	for _, p := range report.Pages {
		seen[p.URL]++
	}
	for url, n := range seen {
		if n != 1 {
			t.Errorf("page %q appears %d times, want 1", url, n)
		}
	}
}

func TestCrawlerProvenance(t *testing.T) {
	t.Run("seed carries the start sentinel", func(t *testing.T) {
		b := NewMockBrowser()
		b.RegisterPage(testSeed, &MockPage{})
		report := runCrawl(t, newTestCrawler(t, b))

		p, ok := pageByURL(report, normalizeURL(testSeed))
		if !ok {
			t.Fatal("seed missing from visited pages")
		}
		if p.FoundOn != FoundOnStart {
			t.Errorf("seed FoundOn = %q, want %q", p.FoundOn, FoundOnStart)
		}
	})

	t.Run("first discovery wins when two parents link the same page", func(t *testing.T) {
		childA := "https://app.example.com/env/context:tok/a"
		childB := "https://app.example.com/env/context:tok/b"
		shared := "https://app.example.com/env/context:tok/shared"

		b := NewMockBrowser()
		b.RegisterPage(testSeed, &MockPage{Links: []string{childA, childB}})
		b.RegisterPage(childA, &MockPage{Links: []string{shared}})
		b.RegisterPage(childB, &MockPage{Links: []string{shared}})
		b.RegisterPage(shared, &MockPage{})

		report := runCrawl(t, newTestCrawler(t, b))

		p, ok := pageByURL(report, normalizeURL(shared))
		if !ok {
			t.Fatal("shared page missing from visited pages")
		}
		if p.FoundOn != normalizeURL(childA) {
			t.Errorf("shared FoundOn = %q, want first parent %q", p.FoundOn, normalizeURL(childA))
		}
		if report.PagesChecked != 4 {
			t.Errorf("PagesChecked = %d, want 4", report.PagesChecked)
		}
	})

	t.Run("every visited page has a provenance", func(t *testing.T) {
		b := NewMockBrowser()
		b.RegisterPage(testSeed, &MockPage{Links: []string{
			"https://app.example.com/env/context:tok/a",
		}})
		b.RegisterPage("https://app.example.com/env/context:tok/a", &MockPage{})

		report := runCrawl(t, newTestCrawler(t, b))
		for _, p := range report.Pages {
			if p.FoundOn == "" {
				t.Errorf("page %q has no provenance", p.URL)
			}
		}
	})
}

func TestCrawlerBreadthFirstOrder(t *testing.T) {
	depth1a := "https://app.example.com/env/context:tok/d1a"
	depth1b := "https://app.example.com/env/context:tok/d1b"
	depth2 := "https://app.example.com/env/context:tok/d2"

	b := NewMockBrowser()
	b.RegisterPage(testSeed, &MockPage{Links: []string{depth1a, depth1b}})
	b.RegisterPage(depth1a, &MockPage{Links: []string{depth2}})
	b.RegisterPage(depth1b, &MockPage{})
	b.RegisterPage(depth2, &MockPage{})

	report := runCrawl(t, newTestCrawler(t, b))

	want := []string{
		normalizeURL(testSeed),
		normalizeURL(depth1a),
		normalizeURL(depth1b),
		normalizeURL(depth2),
	}
	if len(report.Pages) != len(want) {
		t.Fatalf("visited %d pages, want %d", len(report.Pages), len(want))
	}
	for i, w := range want {
		if report.Pages[i].URL != w {
			t.Errorf("visit %d = %q, want %q", i, report.Pages[i].URL, w)
		}
	}
}

func TestCrawlerBrokenLinks(t *testing.T) {
	t.Run("unreachable seed is reported with start provenance", func(t *testing.T) {
		b := NewMockBrowser()
		b.RegisterPage(testSeed, &MockPage{Status: 404})

		report := runCrawl(t, newTestCrawler(t, b))

		if len(report.BrokenLinks) != 1 {
			t.Fatalf("got %d broken links, want 1", len(report.BrokenLinks))
		}
		bl := report.BrokenLinks[0]
		if bl.URL != normalizeURL(testSeed) {
			t.Errorf("URL = %q, want seed", bl.URL)
		}
		if bl.FoundOn != FoundOnStart {
			t.Errorf("FoundOn = %q, want %q", bl.FoundOn, FoundOnStart)
		}
		if bl.Status != "404" {
			t.Errorf("Status = %q, want %q", bl.Status, "404")
		}
		if report.PagesChecked != 1 {
			t.Errorf("PagesChecked = %d, want 1 (the crawl ends at the seed)", report.PagesChecked)
		}
	})

	t.Run("transport failure uses the error status", func(t *testing.T) {
		dead := "https://app.example.com/env/context:tok/dead"
		b := NewMockBrowser()
		b.RegisterPage(testSeed, &MockPage{Links: []string{dead}})

		report := runCrawl(t, newTestCrawler(t, b))

		if len(report.BrokenLinks) != 1 {
			t.Fatalf("got %d broken links, want 1", len(report.BrokenLinks))
		}
		bl := report.BrokenLinks[0]
		if bl.Status != BrokenStatusError {
			t.Errorf("Status = %q, want %q", bl.Status, BrokenStatusError)
		}
		if bl.Error == "" {
			t.Error("transport failure should carry an error message")
		}
		if bl.FoundOn != normalizeURL(testSeed) {
			t.Errorf("FoundOn = %q, want the linking page", bl.FoundOn)
		}
	})
}

func TestCrawlerResourceAndConsoleErrors(t *testing.T) {
	pageP := "https://app.example.com/env/context:tok/p"
	missing := "https://app.example.com/assets/context:tok/app.css"

	b := NewMockBrowser()
	b.RegisterPage(testSeed, &MockPage{Links: []string{pageP}})
	b.RegisterPage(pageP, &MockPage{
		Responses:       []ResponseEvent{{URL: missing, Status: 404}},
		ConsoleMessages: []ConsoleMessage{{Level: "error", Text: "Failed to init widget"}},
	})

	report := runCrawl(t, newTestCrawler(t, b))

	if len(report.ResourceErrors) != 1 {
		t.Fatalf("got %d resource errors, want 1", len(report.ResourceErrors))
	}
	re := report.ResourceErrors[0]
	if re.ResourceURL != missing {
		t.Errorf("ResourceURL = %q, want %q", re.ResourceURL, missing)
	}
	if re.PageURL != normalizeURL(pageP) {
		t.Errorf("PageURL = %q, want %q", re.PageURL, normalizeURL(pageP))
	}
	if re.Status != 404 {
		t.Errorf("Status = %d, want 404", re.Status)
	}

	if len(report.ConsoleErrors) != 1 {
		t.Fatalf("got %d console errors, want 1", len(report.ConsoleErrors))
	}
	ce := report.ConsoleErrors[0]
	if ce.Error != "Failed to init widget" {
		t.Errorf("console Error = %q, want verbatim message", ce.Error)
	}
	if ce.URL != normalizeURL(pageP) {
		t.Errorf("console URL = %q, want %q", ce.URL, normalizeURL(pageP))
	}

	// The page itself loaded fine.
	if len(report.BrokenLinks) != 0 {
		t.Errorf("got %d broken links, want 0", len(report.BrokenLinks))
	}
}

func TestCrawlerMaxPages(t *testing.T) {
	b := NewMockBrowser()
	b.RegisterPage(testSeed, &MockPage{Links: []string{
		"https://app.example.com/env/context:tok/a",
		"https://app.example.com/env/context:tok/b",
	}})
	b.RegisterPage("https://app.example.com/env/context:tok/a", &MockPage{})
	b.RegisterPage("https://app.example.com/env/context:tok/b", &MockPage{})

	report := runCrawl(t, newTestCrawler(t, b, func(c *Config) {
		c.MaxPages = 1
	}))

	if report.PagesChecked != 1 {
		t.Errorf("PagesChecked = %d, want 1", report.PagesChecked)
	}
	if !report.WasStopped {
		t.Error("crawl stopped by the page limit should be marked stopped")
	}
}

func TestCrawlerSeedNeverDropped(t *testing.T) {
	// The seed push, the frontier-closing waiter and the workers'
	// fast-reject path (page limit hit before the visit) race on the
	// in-flight accounting. Repeated runs with a tiny page limit and
	// several workers exercise that window; a dropped seed shows up as an
	// empty report for a valid seed.
	links := make([]string, 12)
	for i := range links {
		links[i] = fmt.Sprintf("https://app.example.com/env/context:tok/p%d", i)
	}

	for i := 0; i < 200; i++ {
		b := NewMockBrowser()
		b.RegisterPage(testSeed, &MockPage{Links: links})
		for _, l := range links {
			b.RegisterPage(l, &MockPage{Links: links})
		}

		c := newTestCrawler(t, b, func(cfg *Config) {
			cfg.Parallelism = 4
			cfg.MaxPages = 1
		})
		report := runCrawl(t, c)
		if report.PagesChecked == 0 {
			t.Fatalf("run %d: valid seed yielded an empty report", i)
		}
	}
}

func TestCrawlerMaxPagesOvershootBound(t *testing.T) {
	links := make([]string, 20)
	for i := range links {
		links[i] = fmt.Sprintf("https://app.example.com/env/context:tok/q%d", i)
	}

	b := NewMockBrowser()
	b.RegisterPage(testSeed, &MockPage{Links: links})
	for _, l := range links {
		b.RegisterPage(l, &MockPage{Links: links})
	}

	const maxPages, parallelism = 2, 4
	report := runCrawl(t, newTestCrawler(t, b, func(cfg *Config) {
		cfg.Parallelism = parallelism
		cfg.MaxPages = maxPages
	}))

	if !report.WasStopped {
		t.Error("crawl stopped by the page limit should be marked stopped")
	}
	if report.PagesChecked < 1 {
		t.Errorf("PagesChecked = %d, want at least the seed", report.PagesChecked)
	}
	// The limit check is not atomic with the counter increment; each
	// worker already past the check can add one page.
	if report.PagesChecked > maxPages+parallelism-1 {
		t.Errorf("PagesChecked = %d, exceeds the limit's overshoot bound %d",
			report.PagesChecked, maxPages+parallelism-1)
	}
}

func TestCrawlerCancellation(t *testing.T) {
	b := NewMockBrowser()
	b.RegisterPage(testSeed, &MockPage{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestCrawler(t, b)
	report, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("cancelled Run should still return a report, got %v", err)
	}
	if !report.WasStopped {
		t.Error("cancelled crawl should be marked stopped")
	}
	if report.PagesChecked != 0 {
		t.Errorf("PagesChecked = %d, want 0", report.PagesChecked)
	}
	if c.State() != StateDone {
		t.Errorf("State() = %v, want done", c.State())
	}
}

func TestCrawlerRunsOnce(t *testing.T) {
	b := NewMockBrowser()
	b.RegisterPage(testSeed, &MockPage{})

	c := newTestCrawler(t, b)
	runCrawl(t, c)

	if _, err := c.Run(context.Background()); !errors.Is(err, ErrCrawlAlreadyStarted) {
		t.Errorf("second Run error = %v, want ErrCrawlAlreadyStarted", err)
	}
}

func TestCrawlerParallel(t *testing.T) {
	b := NewMockBrowser()
	links := []string{
		"https://app.example.com/env/context:tok/a",
		"https://app.example.com/env/context:tok/b",
		"https://app.example.com/env/context:tok/c",
		"https://app.example.com/env/context:tok/d",
	}
	b.RegisterPage(testSeed, &MockPage{Links: links})
	for _, l := range links {
		b.RegisterPage(l, &MockPage{Delay: 5 * time.Millisecond})
	}

	c := newTestCrawler(t, b, func(cfg *Config) {
		cfg.Parallelism = 3
	})
	report := runCrawl(t, c)

	if report.PagesChecked != 5 {
		t.Errorf("PagesChecked = %d, want 5", report.PagesChecked)
	}
	if b.SessionCount() != 3 {
		t.Errorf("opened %d sessions, want one per worker (3)", b.SessionCount())
	}
}

func TestCrawlerExcludePatterns(t *testing.T) {
	excluded := "https://app.example.com/env/context:tok/logout"
	b := NewMockBrowser()
	b.RegisterPage(testSeed, &MockPage{Links: []string{excluded}})
	b.RegisterPage(excluded, &MockPage{})

	report := runCrawl(t, newTestCrawler(t, b, func(c *Config) {
		c.ExcludePatterns = []string{"*logout*"}
	}))

	if report.PagesChecked != 1 {
		t.Errorf("PagesChecked = %d, want 1", report.PagesChecked)
	}
	if _, ok := pageByURL(report, normalizeURL(excluded)); ok {
		t.Error("excluded URL should not be visited")
	}
}

func TestNewValidation(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		if _, err := New(nil); err == nil {
			t.Error("expected error for nil config")
		}
	})
	t.Run("empty seed", func(t *testing.T) {
		if _, err := New(&Config{}); err == nil {
			t.Error("expected error for empty seed URL")
		}
	})
	t.Run("malformed seed", func(t *testing.T) {
		if _, err := New(&Config{SeedURL: "not a url"}); err == nil {
			t.Error("expected error for malformed seed URL")
		}
	})
}
