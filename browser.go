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
	"time"
)

// ErrNavigationTimeout is returned by Session.Navigate when the page did
// not reach network idle within the configured timeout.
var ErrNavigationTimeout = errors.New("navigation timed out")

// ErrBrowserLaunch is returned when the rendering substrate itself cannot
// be started. This is the only failure that aborts a whole crawl.
var ErrBrowserLaunch = errors.New("browser launch failed")

// ConsoleMessage is one console API call observed while a page executes.
type ConsoleMessage struct {
	// Level is the console severity: "error", "warning", "log", ...
	Level string
	// Text is the formatted message.
	Text string
}

// ExceptionEvent is an uncaught script exception observed in a page.
type ExceptionEvent struct {
	Message string
}

// ResponseEvent is one HTTP response observed by the substrate, covering
// both top-level navigations and sub-resource loads.
type ResponseEvent struct {
	URL    string
	Status int
}

// EventHandlers receives the substrate's asynchronous event streams.
// Handlers are registered once per session and may be invoked from the
// substrate's own goroutines at any point between session creation and
// Close, including after a Navigate call has already returned.
type EventHandlers struct {
	OnConsoleMessage func(ConsoleMessage)
	OnException      func(ExceptionEvent)
	OnResponse       func(ResponseEvent)
}

// Navigation is the outcome of a successful top-level navigation.
type Navigation struct {
	// Status is the HTTP status of the navigation's own response.
	Status int
	// FinalURL is the document URL after redirects.
	FinalURL string
}

// Session is one page-rendering context. A session renders one page at a
// time; Navigate replaces the current document.
type Session interface {
	// Navigate loads url and waits until network activity is idle,
	// bounded by timeout. Transport failures and timeouts are returned
	// as errors; HTTP error statuses are returned in the Navigation.
	Navigate(ctx context.Context, url string, timeout time.Duration) (*Navigation, error)
	// ExtractLinks returns the absolute hyperlink targets of the current
	// rendered document, with fragment-only and javascript: links removed.
	ExtractLinks(ctx context.Context) ([]string, error)
	// Close releases the session's resources.
	Close() error
}

// Browser is the rendering substrate the crawl engine drives. The core
// treats it as an opaque asynchronous black box; ChromeBrowser is the
// production implementation and MockBrowser the test one.
type Browser interface {
	// NewSession opens a rendering context whose event streams are
	// delivered to the given handlers for the session's lifetime.
	NewSession(ctx context.Context, handlers EventHandlers) (Session, error)
	// Close shuts down the substrate and all of its sessions.
	Close() error
}
