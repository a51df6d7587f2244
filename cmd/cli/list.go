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

	"github.com/rodaine/table"

	"github.com/chsteiner/gams-console-error-checker/internal/store"
)

func runList(args []string) error {
	if len(args) < 1 {
		printListUsage()
		return fmt.Errorf("subcommand required: projects or crawls")
	}

	switch args[0] {
	case "projects":
		return runListProjects(args[1:])
	case "crawls":
		return runListCrawls(args[1:])
	case "help", "-h", "--help":
		printListUsage()
		return nil
	default:
		printListUsage()
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func printListUsage() {
	fmt.Println(`Usage: gams-checker list <subcommand> [flags]

Subcommands:
  projects    List all checked projects
  crawls      List saved checks for a project

Examples:
  # List all projects
  gams-checker list projects

  # List checks for a project
  gams-checker list crawls -project-id 1`)
}

func runListProjects(args []string) error {
	fs := flag.NewFlagSet("list projects", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Println(`Usage: gams-checker list projects

List all checked projects.`)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := store.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}
	defer st.Close()

	projects, err := st.ListProjects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects yet. Run 'gams-checker crawl <seed-url>' first.")
		return nil
	}

	tbl := table.New("ID", "Origin", "Token")
	for _, p := range projects {
		token := p.Token
		if token == "" {
			token = "-"
		}
		tbl.AddRow(p.ID, p.Origin, token)
	}
	tbl.Print()
	return nil
}

func runListCrawls(args []string) error {
	fs := flag.NewFlagSet("list crawls", flag.ExitOnError)

	var projectID uint
	fs.UintVar(&projectID, "project-id", 0, "Project ID (required)")

	fs.Usage = func() {
		fmt.Println(`Usage: gams-checker list crawls -project-id <id>

List saved checks for a project, newest first.

Flags:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if projectID == 0 {
		fs.Usage()
		return fmt.Errorf("-project-id is required")
	}

	st, err := store.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}
	defer st.Close()

	crawls, err := st.GetProjectCrawls(projectID)
	if err != nil {
		return err
	}
	if len(crawls) == 0 {
		fmt.Println("No checks saved for this project yet.")
		return nil
	}

	tbl := table.New("ID", "Finished", "Pages", "Broken", "Console", "Resources", "Stopped")
	for _, c := range crawls {
		tbl.AddRow(c.ID,
			time.Unix(c.FinishedAt, 0).Format("2006-01-02 15:04:05"),
			c.PagesChecked,
			c.BrokenLinkCount,
			c.ConsoleErrorCount,
			c.ResourceErrorCount,
			c.WasStopped)
	}
	tbl.Print()
	return nil
}
