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
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// PageOutcome is the result of visiting one URL.
type PageOutcome struct {
	// Status is the HTTP status of the navigation, or 0 on transport
	// failure or timeout.
	Status int
	// Links are the absolute outbound links extracted from the rendered
	// document. Only populated for successful navigations; duplicates are
	// possible here; deduplication happens at frontier-insertion time.
	Links []string
	// Err is the transport/timeout message when Status is 0.
	Err string
}

// Failed reports whether the navigation failed at the transport level.
func (o PageOutcome) Failed() bool {
	return o.Status == 0
}

// Broken reports whether the visit should produce a broken link record.
func (o PageOutcome) Broken() bool {
	return o.Status == 0 || o.Status >= 400
}

// StatusLabel returns the status as recorded in reports: the numeric HTTP
// code, or BrokenStatusError for transport failures.
func (o PageOutcome) StatusLabel() string {
	if o.Status == 0 {
		return BrokenStatusError
	}
	return strconv.Itoa(o.Status)
}

// pageVisitor drives one browser session through the per-page protocol:
// attribute, navigate, settle, extract.
type pageVisitor struct {
	session    Session
	correlator *Correlator
	timeout    time.Duration
	settle     time.Duration
	logger     *zap.Logger
}

// visit navigates to url and returns the outcome. Navigation failures are
// folded into the outcome, never returned as errors: a failed page yields
// zero outbound links and the crawl moves on.
func (v *pageVisitor) visit(ctx context.Context, url string) PageOutcome {
	// Attribution must be in place before any event for this page can
	// arrive.
	v.correlator.SetActivePage(url)

	nav, err := v.session.Navigate(ctx, url, v.timeout)
	if err != nil {
		v.logger.Warn("navigation failed",
			zap.String("url", url),
			zap.Error(err))
		return PageOutcome{Err: err.Error()}
	}

	switch {
	case nav.Status == http.StatusNotFound:
		v.logger.Warn("page not found", zap.String("url", url))
		return PageOutcome{Status: nav.Status}
	case nav.Status >= 400:
		v.logger.Warn("page returned HTTP error",
			zap.String("url", url),
			zap.Int("status", nav.Status))
		return PageOutcome{Status: nav.Status}
	}

	// Let delayed asynchronous errors surface before moving on. Trades
	// crawl speed for error-capture completeness.
	if v.settle > 0 {
		select {
		case <-time.After(v.settle):
		case <-ctx.Done():
			return PageOutcome{Status: nav.Status}
		}
	}

	links, err := v.session.ExtractLinks(ctx)
	if err != nil {
		v.logger.Warn("link extraction failed",
			zap.String("url", url),
			zap.Error(err))
		return PageOutcome{Status: nav.Status}
	}

	return PageOutcome{Status: nav.Status, Links: links}
}
