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
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// exceptionPrefix tags uncaught exceptions so reports can tell them apart
// from console-logged errors.
const exceptionPrefix = "Uncaught exception: "

// Correlator attributes the substrate's asynchronous event streams to the
// page currently being visited. Each crawl worker owns one correlator
// wired to its own browser session, so events cannot leak across workers.
//
// Within a session the attribution is still best-effort: the active-page
// pointer advances per visit, and an event arriving with network-induced
// delay after the pointer moved (e.g. a slow sub-resource) is attributed
// to the wrong page. That is accepted for aggregate error discovery.
type Correlator struct {
	policy   *ScopePolicy
	recorder *Recorder
	logger   *zap.Logger

	mu         sync.RWMutex
	activePage string
}

// NewCorrelator creates a correlator feeding records into recorder.
func NewCorrelator(policy *ScopePolicy, recorder *Recorder, logger *zap.Logger) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{policy: policy, recorder: recorder, logger: logger}
}

// SetActivePage marks url as the page events should be attributed to.
// Callers must set it before initiating the navigation for url.
func (c *Correlator) SetActivePage(url string) {
	c.mu.Lock()
	c.activePage = url
	c.mu.Unlock()
}

// ActivePage returns the URL events are currently attributed to.
func (c *Correlator) ActivePage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activePage
}

// Handlers returns the event handler set to register with a browser
// session.
func (c *Correlator) Handlers() EventHandlers {
	return EventHandlers{
		OnConsoleMessage: c.onConsoleMessage,
		OnException:      c.onException,
		OnResponse:       c.onResponse,
	}
}

func (c *Correlator) onConsoleMessage(msg ConsoleMessage) {
	if msg.Level != "error" {
		return
	}
	page := c.ActivePage()
	c.logger.Debug("console error", zap.String("page", page), zap.String("text", msg.Text))
	c.recorder.AddConsoleError(ConsoleErrorRecord{
		URL:       page,
		Error:     msg.Text,
		Timestamp: time.Now(),
	})
}

func (c *Correlator) onException(ev ExceptionEvent) {
	page := c.ActivePage()
	c.logger.Debug("uncaught exception", zap.String("page", page), zap.String("message", ev.Message))
	c.recorder.AddConsoleError(ConsoleErrorRecord{
		URL:       page,
		Error:     exceptionPrefix + ev.Message,
		Timestamp: time.Now(),
	})
}

func (c *Correlator) onResponse(ev ResponseEvent) {
	if ev.Status != http.StatusNotFound {
		return
	}
	page := c.ActivePage()
	// The top-level navigation's own response is classified by the visit
	// driver as a broken link; counting it here as well would report the
	// same failure in two sections.
	if normalizeURL(ev.URL) == normalizeURL(page) {
		return
	}
	if !strings.HasPrefix(ev.URL, c.policy.Origin()) {
		return
	}
	if !c.policy.Contains(ev.URL) {
		return
	}
	c.logger.Debug("resource not found", zap.String("page", page), zap.String("resource", ev.URL))
	c.recorder.AddResourceError(ResourceErrorRecord{
		ResourceURL: ev.URL,
		PageURL:     page,
		Status:      ev.Status,
		Timestamp:   time.Now(),
	})
}
