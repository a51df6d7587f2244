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
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestVisitor(t *testing.T, browser *MockBrowser) (*pageVisitor, *Recorder) {
	t.Helper()
	policy, err := DeriveScope("https://app.example.com/context:tok/start")
	if err != nil {
		t.Fatalf("DeriveScope failed: %v", err)
	}
	recorder := NewRecorder()
	correlator := NewCorrelator(policy, recorder, nil)
	session, err := browser.NewSession(context.Background(), correlator.Handlers())
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return &pageVisitor{
		session:    session,
		correlator: correlator,
		timeout:    time.Second,
		settle:     0,
		logger:     zap.NewNop(),
	}, recorder
}

func TestPageVisitorVisit(t *testing.T) {
	ctx := context.Background()

	t.Run("successful load returns status and links", func(t *testing.T) {
		b := NewMockBrowser()
		b.RegisterPage("https://app.example.com/context:tok/start", &MockPage{
			Links: []string{"https://app.example.com/context:tok/a"},
		})
		v, _ := newTestVisitor(t, b)

		out := v.visit(ctx, "https://app.example.com/context:tok/start")
		if out.Status != 200 {
			t.Errorf("Status = %d, want 200", out.Status)
		}
		if out.Broken() {
			t.Error("successful visit should not be broken")
		}
		if len(out.Links) != 1 {
			t.Errorf("got %d links, want 1", len(out.Links))
		}
	})

	t.Run("404 yields broken outcome without links", func(t *testing.T) {
		b := NewMockBrowser()
		b.RegisterPage("https://app.example.com/context:tok/gone", &MockPage{
			Status: 404,
			Links:  []string{"https://app.example.com/context:tok/ignored"},
		})
		v, _ := newTestVisitor(t, b)

		out := v.visit(ctx, "https://app.example.com/context:tok/gone")
		if !out.Broken() {
			t.Error("404 visit should be broken")
		}
		if got, want := out.StatusLabel(), "404"; got != want {
			t.Errorf("StatusLabel() = %q, want %q", got, want)
		}
		if len(out.Links) != 0 {
			t.Errorf("broken page should yield no links, got %d", len(out.Links))
		}
	})

	t.Run("server error yields broken outcome", func(t *testing.T) {
		b := NewMockBrowser()
		b.RegisterPage("https://app.example.com/context:tok/boom", &MockPage{Status: 503})
		v, _ := newTestVisitor(t, b)

		out := v.visit(ctx, "https://app.example.com/context:tok/boom")
		if !out.Broken() {
			t.Error("503 visit should be broken")
		}
		if got, want := out.StatusLabel(), "503"; got != want {
			t.Errorf("StatusLabel() = %q, want %q", got, want)
		}
	})

	t.Run("transport failure folds into outcome", func(t *testing.T) {
		b := NewMockBrowser()
		v, _ := newTestVisitor(t, b)

		out := v.visit(ctx, "https://app.example.com/context:tok/unroutable")
		if !out.Failed() {
			t.Error("unregistered URL should fail at the transport level")
		}
		if got, want := out.StatusLabel(), BrokenStatusError; got != want {
			t.Errorf("StatusLabel() = %q, want %q", got, want)
		}
		if out.Err == "" {
			t.Error("transport failure should carry an error message")
		}
	})

	t.Run("timeout folds into outcome", func(t *testing.T) {
		b := NewMockBrowser()
		b.RegisterPage("https://app.example.com/context:tok/slow", &MockPage{
			Delay: 2 * time.Second,
		})
		v, _ := newTestVisitor(t, b)

		out := v.visit(ctx, "https://app.example.com/context:tok/slow")
		if !out.Failed() {
			t.Error("timed-out navigation should fail")
		}
	})

	t.Run("page events land in the recorder", func(t *testing.T) {
		b := NewMockBrowser()
		b.RegisterPage("https://app.example.com/context:tok/noisy", &MockPage{
			ConsoleMessages: []ConsoleMessage{{Level: "error", Text: "broken widget"}},
			Exceptions:      []string{"TypeError: boom"},
			Responses: []ResponseEvent{
				{URL: "https://app.example.com/assets/context:tok/missing.png", Status: 404},
			},
		})
		v, rec := newTestVisitor(t, b)

		out := v.visit(ctx, "https://app.example.com/context:tok/noisy")
		if out.Broken() {
			t.Fatalf("visit unexpectedly broken: %+v", out)
		}
		if got := rec.ConsoleErrors(); len(got) != 2 {
			t.Errorf("got %d console errors, want 2 (console + exception)", len(got))
		}
		if got := rec.ResourceErrors(); len(got) != 1 {
			t.Errorf("got %d resource errors, want 1", len(got))
		}
	})
}
