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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeBrowser drives headless Chrome over the DevTools protocol. One
// browser process is shared by all sessions; each session is its own tab
// context, so event streams never cross between sessions.
type ChromeBrowser struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *zap.Logger
}

// NewChromeBrowser launches a headless Chrome process. Launch failure is
// fatal to the crawl and wrapped in ErrBrowserLaunch.
func NewChromeBrowser(ctx context.Context, logger *zap.Logger) (*ChromeBrowser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the process eagerly so a missing or broken Chrome surfaces
	// here instead of on the first visit.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	return &ChromeBrowser{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

// Close shuts down the browser process and all open tabs.
func (b *ChromeBrowser) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}

// NewSession opens a new tab and wires its DevTools event streams to the
// given handlers. Each session costs roughly a tab's worth of memory;
// parallelism beyond ~10 sessions gets expensive.
func (b *ChromeBrowser) NewSession(_ context.Context, handlers EventHandlers) (Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)

	s := &chromeSession{
		ctx:    tabCtx,
		cancel: tabCancel,
		logger: b.logger,
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *cdpruntime.EventConsoleAPICalled:
			if handlers.OnConsoleMessage == nil {
				return
			}
			text := formatConsoleArgs(ev.Args)
			if text == "" {
				return
			}
			handlers.OnConsoleMessage(ConsoleMessage{
				Level: consoleLevel(ev.Type),
				Text:  text,
			})

		case *cdpruntime.EventExceptionThrown:
			if handlers.OnException == nil {
				return
			}
			handlers.OnException(ExceptionEvent{Message: exceptionText(ev.ExceptionDetails)})

		case *network.EventResponseReceived:
			s.noteResponse(ev)
			if handlers.OnResponse != nil {
				handlers.OnResponse(ResponseEvent{
					URL:    ev.Response.URL,
					Status: int(ev.Response.Status),
				})
			}

		case *page.EventLifecycleEvent:
			s.noteLifecycle(ev)
		}
	})

	// Network and lifecycle events are off by default; enabling them also
	// forces the tab into existence.
	err := chromedp.Run(tabCtx,
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("enabling tab event domains: %w", err)
	}

	return s, nil
}

// chromeSession is one tab. Navigation state (document status, final URL,
// idle signal) is reset per Navigate call and filled in by the event
// listener registered in NewSession.
type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu       sync.Mutex
	navURL   string
	frameID  string
	loaderID string
	status   int
	finalURL string
	idleOnce *sync.Once
	idleCh   chan struct{}
}

func (s *chromeSession) beginNavigation(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navURL = url
	s.frameID = ""
	s.loaderID = ""
	s.status = 0
	s.finalURL = ""
	s.idleOnce = new(sync.Once)
	s.idleCh = make(chan struct{})
}

func (s *chromeSession) setNavigationTarget(frameID, loaderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameID = frameID
	s.loaderID = loaderID
}

// noteResponse captures the status and final URL of the navigation's own
// document response. Sub-resource responses are ignored here; they reach
// the OnResponse handler separately.
func (s *chromeSession) noteResponse(ev *network.EventResponseReceived) {
	if ev.Type != network.ResourceTypeDocument {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.navURL == "" || s.status != 0 {
		return
	}
	s.status = int(ev.Response.Status)
	s.finalURL = ev.Response.URL
}

// noteLifecycle signals network idle for the navigation in flight,
// matching both frame and loader ID so a previous document's events
// cannot satisfy the current wait.
func (s *chromeSession) noteLifecycle(ev *page.EventLifecycleEvent) {
	if ev.Name != "networkIdle" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameID == "" || string(ev.FrameID) != s.frameID || string(ev.LoaderID) != s.loaderID {
		return
	}
	if s.idleOnce != nil {
		ch := s.idleCh
		s.idleOnce.Do(func() { close(ch) })
	}
}

// Navigate loads url and waits for the page's network activity to go
// idle, bounded by timeout.
func (s *chromeSession) Navigate(ctx context.Context, url string, timeout time.Duration) (*Navigation, error) {
	navCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	s.beginNavigation(url)

	err := chromedp.Run(navCtx, chromedp.ActionFunc(func(cctx context.Context) error {
		frameID, loaderID, _, err := page.Navigate(url).Do(cctx)
		if err != nil {
			return err
		}
		s.setNavigationTarget(string(frameID), string(loaderID))
		return nil
	}))
	if err != nil {
		return nil, s.classifyNavError(navCtx, ctx, url, err)
	}

	s.mu.Lock()
	idleCh := s.idleCh
	s.mu.Unlock()

	select {
	case <-idleCh:
	case <-navCtx.Done():
		return nil, s.classifyNavError(navCtx, ctx, url, navCtx.Err())
	}

	s.mu.Lock()
	status := s.status
	finalURL := s.finalURL
	s.mu.Unlock()

	if finalURL == "" {
		finalURL = url
	}
	if status == 0 {
		// Cached or scheme-less documents can reach idle without a
		// captured document response; treat them as loaded.
		s.logger.Debug("no document response captured, assuming 200",
			zap.String("url", url))
		status = 200
	}

	return &Navigation{Status: status, FinalURL: finalURL}, nil
}

func (s *chromeSession) classifyNavError(navCtx, callerCtx context.Context, url string, err error) error {
	if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrNavigationTimeout, url)
	}
	if callerCtx.Err() != nil {
		return fmt.Errorf("navigation aborted: %w", callerCtx.Err())
	}
	return fmt.Errorf("navigation failed: %w", err)
}

// ExtractLinks captures the rendered DOM and returns the absolute targets
// of its hyperlink elements. Fragment-only anchors and javascript:
// pseudo-URLs are discarded; everything else is resolved against the
// document's final URL.
func (s *chromeSession) ExtractLinks(ctx context.Context) ([]string, error) {
	extractCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	if err := chromedp.Run(extractCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("capturing rendered DOM: %w", err)
	}

	s.mu.Lock()
	base := s.finalURL
	if base == "" {
		base = s.navURL
	}
	s.mu.Unlock()

	return extractLinksFromHTML(html, base)
}

// Close releases the tab.
func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}

// extractLinksFromHTML parses rendered HTML and resolves its anchor hrefs
// against baseURL.
func extractLinksFromHTML(html, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing rendered DOM: %w", err)
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		if strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}
		resolved, err := urlParser.ParseRef(baseURL, href)
		if err != nil {
			return
		}
		links = append(links, resolved.Href(true))
	})
	return links, nil
}

// consoleLevel maps a CDP console API type to the ConsoleMessage level.
func consoleLevel(t cdpruntime.APIType) string {
	switch t {
	case cdpruntime.APITypeError, cdpruntime.APITypeAssert:
		return "error"
	case cdpruntime.APITypeWarning:
		return "warning"
	default:
		return string(t)
	}
}

// formatConsoleArgs renders console call arguments the way they would
// appear in the browser console, joined with spaces.
func formatConsoleArgs(args []*cdpruntime.RemoteObject) string {
	var parts []string
	for _, arg := range args {
		if part := formatConsoleArg(arg); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

func formatConsoleArg(arg *cdpruntime.RemoteObject) string {
	if arg == nil {
		return ""
	}
	if len(arg.Value) > 0 {
		var v interface{}
		if err := json.Unmarshal(arg.Value, &v); err == nil {
			return fmt.Sprintf("%v", v)
		}
		return string(arg.Value)
	}
	return arg.Description
}

// exceptionText extracts a one-line message from CDP exception details.
func exceptionText(d *cdpruntime.ExceptionDetails) string {
	if d == nil {
		return "unknown exception"
	}
	if d.Exception != nil && d.Exception.Description != "" {
		return d.Exception.Description
	}
	if d.Text != "" {
		return d.Text
	}
	return "unknown exception"
}
