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

// gams-checker CLI
//
// Command-line interface for checking the structural health of one
// project on a website: unreachable pages, failing sub-resources and
// JavaScript errors.
//
// Usage:
//
//	gams-checker <command> [flags]
//
// Commands:
//
//	crawl     Check a project starting from a seed URL
//	export    Export a saved check result
//	list      List projects or saved checks
//	version   Show version information
package main

import (
	"fmt"
	"os"

	"github.com/chsteiner/gams-console-error-checker/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "crawl":
		if err := runCrawl(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "export":
		if err := runExport(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "list":
		if err := runList(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "-v", "--version":
		fmt.Printf("gams-checker %s\n", version.CurrentVersion)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gams-checker - structural health checks for one website project

Usage:
  gams-checker <command> [flags]

Commands:
  crawl     Check a project starting from a seed URL
  export    Export a saved check result to JSON, text or CSV
  list      List projects or saved checks
  version   Show version information
  help      Show this help message

Examples:
  # Check the project identified by the context token in the seed URL
  gams-checker crawl https://app.example.com/env/context:f9a3b2/portal.start

  # Check with four parallel browser tabs and a page limit
  gams-checker crawl -parallelism 4 -max-pages 200 https://app.example.com/context:tok/start

  # List saved checks for a project
  gams-checker list crawls -project-id 1

  # Export a saved check as CSV
  gams-checker export -crawl-id 3 -format csv`)
}
