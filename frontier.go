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

import "sync"

// FoundOnStart is the provenance sentinel recorded for the seed URL.
const FoundOnStart = "START"

// Entry is one frontier element: a URL awaiting a visit and the page it
// was discovered on.
type Entry struct {
	URL     string
	FoundOn string
}

// VisitLedger tracks which URLs have been dequeued for visiting and the
// provenance of each visit. A URL enters the ledger exactly once, at the
// moment its frontier entry is accepted for processing, so a URL
// discovered on several pages keeps the provenance of whichever discovery
// reached the head of the queue first.
type VisitLedger struct {
	mu      sync.RWMutex
	order   []string
	sources map[string]string
}

// NewVisitLedger creates an empty ledger.
func NewVisitLedger() *VisitLedger {
	return &VisitLedger{sources: make(map[string]string)}
}

// MarkVisited records url as visited with the given provenance. It returns
// true on the first call for a URL and false on every subsequent call, in
// which case the original provenance is kept.
func (l *VisitLedger) MarkVisited(url, foundOn string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sources[url]; ok {
		return false
	}
	l.sources[url] = foundOn
	l.order = append(l.order, url)
	return true
}

// Visited reports whether url has already been dequeued for visiting.
func (l *VisitLedger) Visited(url string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.sources[url]
	return ok
}

// Source returns the provenance recorded for url.
func (l *VisitLedger) Source(url string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	foundOn, ok := l.sources[url]
	return foundOn, ok
}

// Len returns the number of visited URLs.
func (l *VisitLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Snapshot returns the visited URLs in visit order together with their
// provenance map. Both are copies.
func (l *VisitLedger) Snapshot() ([]string, map[string]string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	urls := make([]string, len(l.order))
	copy(urls, l.order)
	sources := make(map[string]string, len(l.sources))
	for k, v := range l.sources {
		sources[k] = v
	}
	return urls, sources
}

// Frontier is the FIFO queue of discovered URLs awaiting a visit. Pages
// discovered earlier are popped before pages discovered later, so the
// crawl proceeds breadth-first. Push drops entries whose URL is already in
// the visit ledger; this is an optimization, not the authoritative check,
// because the ledger can gain members between push and pop. Consumers must
// re-validate after PopNext.
type Frontier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries []Entry
	closed  bool
	ledger  *VisitLedger
}

// NewFrontier creates an empty frontier backed by the given ledger.
func NewFrontier(ledger *VisitLedger) *Frontier {
	f := &Frontier{ledger: ledger}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Push appends an entry to the tail of the queue. It returns false without
// queueing when the entry's URL was already visited or the frontier is
// closed.
func (f *Frontier) Push(e Entry) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.ledger.Visited(e.URL) {
		return false
	}
	f.entries = append(f.entries, e)
	f.cond.Signal()
	return true
}

// PopNext removes and returns the head entry, blocking while the queue is
// empty. It returns ok=false once the frontier is closed and drained.
func (f *Frontier) PopNext() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.entries) == 0 && !f.closed {
		f.cond.Wait()
	}
	if len(f.entries) == 0 {
		return Entry{}, false
	}
	e := f.entries[0]
	f.entries = f.entries[1:]
	return e, true
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// Close marks the frontier as closed and wakes all blocked consumers.
// Queued entries can still be popped; new pushes are dropped.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}
