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
	"sync"
	"time"
)

// BrokenStatusError is the status recorded for pages whose navigation
// failed at the transport level (timeout, DNS, connection reset) rather
// than with an HTTP error code.
const BrokenStatusError = "ERROR"

// ConsoleErrorRecord is one JavaScript console error or uncaught exception
// observed while URL was the active page.
type ConsoleErrorRecord struct {
	URL       string    `json:"url"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// ResourceErrorRecord is one in-scope sub-resource (image, script,
// stylesheet, ...) that answered 404 while PageURL was the active page.
type ResourceErrorRecord struct {
	ResourceURL string    `json:"resourceUrl"`
	PageURL     string    `json:"pageUrl"`
	Status      int       `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// BrokenLinkRecord is one visited URL whose own navigation failed, either
// with an HTTP status >= 400 or with a transport error (Status
// BrokenStatusError, Error carrying the message).
type BrokenLinkRecord struct {
	URL     string `json:"url"`
	FoundOn string `json:"foundOn"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// VisitedPage pairs a visited URL with the page it was first discovered on.
type VisitedPage struct {
	URL     string `json:"url"`
	FoundOn string `json:"foundOn"`
}

// Report is the read-only snapshot of a finished crawl, handed to the
// report writers and the store once the frontier has drained.
type Report struct {
	Seed       string    `json:"seed"`
	Origin     string    `json:"origin"`
	Token      string    `json:"token,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	// WasStopped is true when the crawl ended early, via cancellation or
	// the MaxPages safety valve, rather than by draining the frontier.
	WasStopped bool `json:"wasStopped"`

	PagesChecked   int                   `json:"pagesChecked"`
	Pages          []VisitedPage         `json:"pages"`
	BrokenLinks    []BrokenLinkRecord    `json:"brokenLinks"`
	ConsoleErrors  []ConsoleErrorRecord  `json:"consoleErrors"`
	ResourceErrors []ResourceErrorRecord `json:"resourceErrors"`
}

// Recorder accumulates error records from all workers during a crawl.
// All methods are safe for concurrent use.
type Recorder struct {
	mu             sync.Mutex
	consoleErrors  []ConsoleErrorRecord
	resourceErrors []ResourceErrorRecord
	brokenLinks    []BrokenLinkRecord
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// AddConsoleError appends a console error record.
func (r *Recorder) AddConsoleError(rec ConsoleErrorRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consoleErrors = append(r.consoleErrors, rec)
}

// AddResourceError appends a resource error record.
func (r *Recorder) AddResourceError(rec ResourceErrorRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resourceErrors = append(r.resourceErrors, rec)
}

// AddBrokenLink appends a broken link record.
func (r *Recorder) AddBrokenLink(rec BrokenLinkRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brokenLinks = append(r.brokenLinks, rec)
}

// ConsoleErrors returns a copy of the recorded console errors.
func (r *Recorder) ConsoleErrors() []ConsoleErrorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ConsoleErrorRecord, len(r.consoleErrors))
	copy(out, r.consoleErrors)
	return out
}

// ResourceErrors returns a copy of the recorded resource errors.
func (r *Recorder) ResourceErrors() []ResourceErrorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ResourceErrorRecord, len(r.resourceErrors))
	copy(out, r.resourceErrors)
	return out
}

// BrokenLinks returns a copy of the recorded broken links.
func (r *Recorder) BrokenLinks() []BrokenLinkRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]BrokenLinkRecord, len(r.brokenLinks))
	copy(out, r.brokenLinks)
	return out
}
