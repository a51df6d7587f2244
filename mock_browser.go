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
	"fmt"
	"sync"
	"time"
)

// MockPage describes the simulated substrate behavior for one URL.
type MockPage struct {
	// Status is the HTTP status of the navigation (default 200).
	Status int
	// FinalURL overrides the document URL after navigation (default: the
	// requested URL).
	FinalURL string
	// Links are returned by ExtractLinks for this page.
	Links []string
	// ConsoleMessages are delivered to OnConsoleMessage during navigation.
	ConsoleMessages []ConsoleMessage
	// Exceptions are delivered to OnException during navigation.
	Exceptions []string
	// Responses are sub-resource responses delivered to OnResponse during
	// navigation, after the page's own response.
	Responses []ResponseEvent
	// NavigateErr simulates a transport failure.
	NavigateErr error
	// Delay simulates load time; a delay beyond the navigation timeout
	// produces ErrNavigationTimeout.
	Delay time.Duration
}

// MockBrowser is an in-memory rendering substrate for tests. Pages are
// registered by URL; navigating to an unregistered URL fails like a
// transport error.
type MockBrowser struct {
	mu       sync.RWMutex
	pages    map[string]*MockPage
	sessions int
	closed   bool
}

// NewMockBrowser creates an empty mock substrate.
func NewMockBrowser() *MockBrowser {
	return &MockBrowser{pages: make(map[string]*MockPage)}
}

// RegisterPage registers the simulated behavior for url. The URL is
// normalized the same way the crawler normalizes discovered links.
func (b *MockBrowser) RegisterPage(url string, page *MockPage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if page.Status == 0 {
		page.Status = 200
	}
	b.pages[normalizeURL(url)] = page
}

// SessionCount returns how many sessions have been opened.
func (b *MockBrowser) SessionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sessions
}

// NewSession opens a mock session delivering events to handlers.
func (b *MockBrowser) NewSession(_ context.Context, handlers EventHandlers) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("mock browser is closed")
	}
	b.sessions++
	return &mockSession{browser: b, handlers: handlers}, nil
}

// Close marks the substrate closed.
func (b *MockBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type mockSession struct {
	browser  *MockBrowser
	handlers EventHandlers

	mu      sync.Mutex
	current *MockPage
}

func (s *mockSession) Navigate(ctx context.Context, url string, timeout time.Duration) (*Navigation, error) {
	s.browser.mu.RLock()
	page, ok := s.browser.pages[normalizeURL(url)]
	s.browser.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("navigation failed: no route to %s", url)
	}
	if page.NavigateErr != nil {
		return nil, page.NavigateErr
	}
	if page.Delay > 0 {
		if page.Delay >= timeout {
			return nil, fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
		}
		select {
		case <-time.After(page.Delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("navigation aborted: %w", ctx.Err())
		}
	}

	finalURL := page.FinalURL
	if finalURL == "" {
		finalURL = normalizeURL(url)
	}

	// Deliver events in the order a browser would: the document response
	// first, then sub-resources, then script activity.
	if s.handlers.OnResponse != nil {
		s.handlers.OnResponse(ResponseEvent{URL: finalURL, Status: page.Status})
		for _, resp := range page.Responses {
			s.handlers.OnResponse(resp)
		}
	}
	if s.handlers.OnConsoleMessage != nil {
		for _, msg := range page.ConsoleMessages {
			s.handlers.OnConsoleMessage(msg)
		}
	}
	if s.handlers.OnException != nil {
		for _, msg := range page.Exceptions {
			s.handlers.OnException(ExceptionEvent{Message: msg})
		}
	}

	s.mu.Lock()
	s.current = page
	s.mu.Unlock()

	return &Navigation{Status: page.Status, FinalURL: finalURL}, nil
}

func (s *mockSession) ExtractLinks(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	links := make([]string, len(s.current.Links))
	copy(links, s.current.Links)
	return links, nil
}

func (s *mockSession) Close() error {
	return nil
}
