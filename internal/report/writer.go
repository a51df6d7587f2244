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

// Package report renders a finished crawl report as JSON, plain text or
// CSV.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/kennygrant/sanitize"
	"github.com/rodaine/table"

	checker "github.com/chsteiner/gams-console-error-checker"
)

// Formats accepted by WriteFile.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatCSV  = "csv"
)

// Filename returns the disk-safe report filename for a crawl:
// check-<host>-<timestamp>.<ext>
func Filename(r *checker.Report, ext string) string {
	host := r.Origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	return fmt.Sprintf("check-%s-%s.%s",
		sanitize.BaseName(host),
		r.FinishedAt.Format("20060102-150405"),
		ext)
}

// WriteFile renders the report in the given format into dir and returns
// the path of the created file.
func WriteFile(dir string, format string, r *checker.Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %v", err)
	}

	var ext string
	var write func(io.Writer, *checker.Report) error
	switch format {
	case FormatJSON:
		ext, write = "json", WriteJSON
	case FormatText:
		ext, write = "txt", WriteText
	case FormatCSV:
		ext, write = "csv", WriteCSV
	default:
		return "", fmt.Errorf("unknown report format: %q", format)
	}

	path := filepath.Join(dir, Filename(r, ext))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %v", err)
	}
	defer f.Close()

	if err := write(f, r); err != nil {
		return "", err
	}
	return path, nil
}

// WriteJSON renders the full report as indented JSON.
func WriteJSON(w io.Writer, r *checker.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %v", err)
	}
	return nil
}

// WriteText renders a human-readable summary followed by one table per
// error category. Empty categories are omitted.
func WriteText(w io.Writer, r *checker.Report) error {
	fmt.Fprintf(w, "Check of %s\n", r.Seed)
	fmt.Fprintf(w, "Origin:          %s\n", r.Origin)
	if r.Token != "" {
		fmt.Fprintf(w, "Project token:   %s\n", r.Token)
	}
	fmt.Fprintf(w, "Started:         %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Finished:        %s\n", r.FinishedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Pages checked:   %d\n", r.PagesChecked)
	fmt.Fprintf(w, "Broken links:    %d\n", len(r.BrokenLinks))
	fmt.Fprintf(w, "Console errors:  %d\n", len(r.ConsoleErrors))
	fmt.Fprintf(w, "Resource errors: %d\n", len(r.ResourceErrors))
	if r.WasStopped {
		fmt.Fprintln(w, "Note: the crawl was stopped before all pages were checked.")
	}

	if len(r.BrokenLinks)+len(r.ConsoleErrors)+len(r.ResourceErrors) == 0 {
		fmt.Fprintln(w, "\nNo issues found.")
		return nil
	}

	if len(r.BrokenLinks) > 0 {
		fmt.Fprintln(w, "\nBroken links:")
		tbl := table.New("URL", "Found On", "Status", "Error").WithWriter(w)
		for _, bl := range r.BrokenLinks {
			tbl.AddRow(bl.URL, bl.FoundOn, bl.Status, bl.Error)
		}
		tbl.Print()
	}

	if len(r.ConsoleErrors) > 0 {
		fmt.Fprintln(w, "\nConsole errors:")
		tbl := table.New("Page", "Error").WithWriter(w)
		for _, ce := range r.ConsoleErrors {
			tbl.AddRow(ce.URL, ce.Error)
		}
		tbl.Print()
	}

	if len(r.ResourceErrors) > 0 {
		fmt.Fprintln(w, "\nFailing resources:")
		tbl := table.New("Resource", "Page", "Status").WithWriter(w)
		for _, re := range r.ResourceErrors {
			tbl.AddRow(re.ResourceURL, re.PageURL, re.Status)
		}
		tbl.Print()
	}

	return nil
}

// issueRow is the flat CSV representation of one finding, across all
// three categories.
type issueRow struct {
	Type      string `csv:"Type"`
	URL       string `csv:"URL"`
	FoundOn   string `csv:"Found On / Page"`
	Status    string `csv:"Status"`
	Detail    string `csv:"Detail"`
	Timestamp string `csv:"Timestamp,omitempty"`
}

// WriteCSV renders all findings as one flat CSV, one row per issue.
func WriteCSV(w io.Writer, r *checker.Report) error {
	rows := make([]issueRow, 0, len(r.BrokenLinks)+len(r.ConsoleErrors)+len(r.ResourceErrors))
	for _, bl := range r.BrokenLinks {
		rows = append(rows, issueRow{
			Type:    "broken-link",
			URL:     bl.URL,
			FoundOn: bl.FoundOn,
			Status:  bl.Status,
			Detail:  bl.Error,
		})
	}
	for _, ce := range r.ConsoleErrors {
		rows = append(rows, issueRow{
			Type:      "console-error",
			URL:       ce.URL,
			FoundOn:   ce.URL,
			Detail:    ce.Error,
			Timestamp: ce.Timestamp.Format(time.RFC3339),
		})
	}
	for _, re := range r.ResourceErrors {
		rows = append(rows, issueRow{
			Type:      "resource-error",
			URL:       re.ResourceURL,
			FoundOn:   re.PageURL,
			Status:    fmt.Sprintf("%d", re.Status),
			Timestamp: re.Timestamp.Format(time.RFC3339),
		})
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write CSV: %v", err)
	}
	return nil
}
