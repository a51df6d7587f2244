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
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// contextTokenPattern matches the project identifier embedded in a seed URL.
// The token is a maximal run of characters up to the next path, query or
// fragment delimiter.
var contextTokenPattern = regexp.MustCompile(`context:([^/?#]+)`)

// ScopePolicy decides whether a URL belongs to the crawled project.
// A URL is in scope when its origin equals the seed's origin and, if the
// seed carried a project token, the URL contains one of the path
// conventions that mark project membership ("context:<token>" for context
// pages, "o:<token>" for object pages). The policy is derived once from
// the seed URL and never changes during a crawl.
type ScopePolicy struct {
	origin             string
	token              string
	requiredSubstrings []string
	excludes           []glob.Glob
}

// DeriveScope builds the scope policy for a seed URL. Optional exclude
// patterns (glob syntax) remove matching URLs from scope even when they
// pass the origin and token checks.
func DeriveScope(seedURL string, excludePatterns ...string) (*ScopePolicy, error) {
	origin, err := urlOrigin(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL %q: %w", seedURL, err)
	}

	p := &ScopePolicy{origin: origin}

	if m := contextTokenPattern.FindStringSubmatch(seedURL); m != nil {
		p.token = m[1]
		p.requiredSubstrings = []string{"context:" + m[1], "o:" + m[1]}
	}

	for _, pattern := range excludePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		p.excludes = append(p.excludes, g)
	}

	return p, nil
}

// Origin returns the scheme://host[:port] prefix all in-scope URLs share.
func (p *ScopePolicy) Origin() string {
	return p.origin
}

// Token returns the project token extracted from the seed URL, or "" when
// the seed carried none and the policy degraded to same-origin-only.
func (p *ScopePolicy) Token() string {
	return p.token
}

// Contains reports whether rawURL belongs to the crawl's project.
// Malformed URLs are out of scope rather than an error.
func (p *ScopePolicy) Contains(rawURL string) bool {
	origin, err := urlOrigin(rawURL)
	if err != nil {
		return false
	}
	if origin != p.origin {
		return false
	}
	for _, g := range p.excludes {
		if g.Match(rawURL) {
			return false
		}
	}
	if len(p.requiredSubstrings) == 0 {
		return true
	}
	for _, s := range p.requiredSubstrings {
		if strings.Contains(rawURL, s) {
			return true
		}
	}
	return false
}

// urlOrigin extracts the scheme://host[:port] origin of a URL. The URL is
// normalized through the WHATWG parser first so that default ports and
// percent-encoding ambiguities do not split one origin into several.
func urlOrigin(rawURL string) (string, error) {
	parsed, err := urlParser.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(parsed.Href(true))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("URL has no scheme or host")
	}
	return u.Scheme + "://" + u.Host, nil
}

// normalizeURL reparses a URL to fix ambiguities such as
// "http://example.com" vs "http://example.com/". Unparseable input is
// returned unchanged; scope checks reject it later.
func normalizeURL(rawURL string) string {
	parsed, err := urlParser.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.String()
}
