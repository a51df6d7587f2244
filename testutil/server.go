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

// Package testutil provides a test HTTP server simulating a project site:
// pages under a context token, object pages, a missing stylesheet, a page
// with a scripted error and some out-of-scope neighbors. Intended for
// integration tests that run a real browser against a known site shape.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
)

// ProjectToken is the context token the test site is built around.
const ProjectToken = "t4u9"

// NewProjectTestServer creates a started HTTP test server. The crawl seed
// for it is SeedURL(server).
func NewProjectTestServer() *httptest.Server {
	mux := http.NewServeMux()

	page := func(title, body string) string {
		return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>%s</body>
</html>`, title, body)
	}

	mux.HandleFunc("/env/context:"+ProjectToken+"/start", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page("Start", `
<a href="/env/context:`+ProjectToken+`/detail">Detail</a>
<a href="/env/o:`+ProjectToken+`/item/1">Item 1</a>
<a href="/env/context:`+ProjectToken+`/missing">Missing page</a>
<a href="/env/context:other/foreign">Foreign project</a>
<a href="/env/plain">Plain page</a>
`)))
	})

	mux.HandleFunc("/env/context:"+ProjectToken+"/detail", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page("Detail", `
<link rel="stylesheet" href="/assets/context:`+ProjectToken+`/gone.css">
<a href="/env/context:`+ProjectToken+`/start">Back</a>
`)))
	})

	mux.HandleFunc("/env/o:"+ProjectToken+"/item/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page("Item 1", `
<script>throw new Error("item widget failed to mount");</script>
<a href="/env/context:`+ProjectToken+`/start">Back</a>
`)))
	})

	mux.HandleFunc("/env/context:other/foreign", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page("Foreign", "other project")))
	})

	mux.HandleFunc("/env/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page("Plain", "no project token here")))
	})

	// /env/context:<tok>/missing and /assets/context:<tok>/gone.css fall
	// through to the default handler.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return httptest.NewServer(mux)
}

// SeedURL returns the crawl seed for a server created by
// NewProjectTestServer.
func SeedURL(srv *httptest.Server) string {
	return srv.URL + "/env/context:" + ProjectToken + "/start"
}
