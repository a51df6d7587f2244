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

package main

import (
	"flag"
	"fmt"
	"time"

	checker "github.com/chsteiner/gams-console-error-checker"
	"github.com/chsteiner/gams-console-error-checker/internal/report"
	"github.com/chsteiner/gams-console-error-checker/internal/store"
)

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	var (
		crawlID   uint
		outputDir string
		format    string
	)
	fs.UintVar(&crawlID, "crawl-id", 0, "ID of the saved check to export (required)")
	fs.StringVar(&outputDir, "o", ".", "Directory for the report file")
	fs.StringVar(&format, "format", report.FormatJSON, "Report format: text, json or csv")

	fs.Usage = func() {
		fmt.Println(`Usage: gams-checker export -crawl-id <id> [flags]

Export a saved check result as a report file.

Flags:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if crawlID == 0 {
		fs.Usage()
		return fmt.Errorf("-crawl-id is required")
	}

	st, err := store.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}
	defer st.Close()

	crawl, err := st.GetCrawl(crawlID)
	if err != nil {
		return err
	}

	path, err := report.WriteFile(outputDir, format, reportFromCrawl(crawl))
	if err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", path)
	return nil
}

// reportFromCrawl rebuilds the report structure from its persisted form.
// The per-page visit list is not persisted, only the findings.
func reportFromCrawl(c *store.Crawl) *checker.Report {
	r := &checker.Report{
		Seed:         c.Seed,
		StartedAt:    time.Unix(c.StartedAt, 0),
		FinishedAt:   time.Unix(c.FinishedAt, 0),
		WasStopped:   c.WasStopped,
		PagesChecked: c.PagesChecked,
	}
	if c.Project != nil {
		r.Origin = c.Project.Origin
		r.Token = c.Project.Token
	}
	for _, bl := range c.BrokenLinks {
		r.BrokenLinks = append(r.BrokenLinks, checker.BrokenLinkRecord{
			URL:     bl.URL,
			FoundOn: bl.FoundOn,
			Status:  bl.Status,
			Error:   bl.Error,
		})
	}
	for _, ce := range c.ConsoleErrors {
		r.ConsoleErrors = append(r.ConsoleErrors, checker.ConsoleErrorRecord{
			URL:       ce.URL,
			Error:     ce.Error,
			Timestamp: time.Unix(ce.Timestamp, 0),
		})
	}
	for _, re := range c.ResourceErrors {
		r.ResourceErrors = append(r.ResourceErrors, checker.ResourceErrorRecord{
			ResourceURL: re.ResourceURL,
			PageURL:     re.PageURL,
			Status:      re.Status,
			Timestamp:   time.Unix(re.Timestamp, 0),
		})
	}
	return r
}
