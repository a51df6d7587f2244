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

package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	checker "github.com/chsteiner/gams-console-error-checker"
)

// GetOrCreateProject finds the project for an origin/token pair, creating
// it on first use
func (s *Store) GetOrCreateProject(origin, token string) (*Project, error) {
	var project Project
	result := s.db.Where("origin = ? AND token = ?", origin, token).First(&project)
	if result.Error == nil {
		return &project, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up project: %v", result.Error)
	}

	project = Project{Origin: origin, Token: token}
	if err := s.db.Create(&project).Error; err != nil {
		return nil, fmt.Errorf("failed to create project: %v", err)
	}
	return &project, nil
}

// SaveReport persists a finished crawl report with all its error records
// in one transaction and returns the created crawl row
func (s *Store) SaveReport(report *checker.Report) (*Crawl, error) {
	project, err := s.GetOrCreateProject(report.Origin, report.Token)
	if err != nil {
		return nil, err
	}

	crawl := Crawl{
		ProjectID:          project.ID,
		Seed:               report.Seed,
		StartedAt:          report.StartedAt.Unix(),
		FinishedAt:         report.FinishedAt.Unix(),
		WasStopped:         report.WasStopped,
		PagesChecked:       report.PagesChecked,
		BrokenLinkCount:    len(report.BrokenLinks),
		ConsoleErrorCount:  len(report.ConsoleErrors),
		ResourceErrorCount: len(report.ResourceErrors),
	}

	for _, bl := range report.BrokenLinks {
		crawl.BrokenLinks = append(crawl.BrokenLinks, BrokenLink{
			URL:     bl.URL,
			FoundOn: bl.FoundOn,
			Status:  bl.Status,
			Error:   bl.Error,
		})
	}
	for _, ce := range report.ConsoleErrors {
		crawl.ConsoleErrors = append(crawl.ConsoleErrors, ConsoleError{
			URL:       ce.URL,
			Error:     ce.Error,
			Timestamp: ce.Timestamp.Unix(),
		})
	}
	for _, re := range report.ResourceErrors {
		crawl.ResourceErrors = append(crawl.ResourceErrors, ResourceError{
			ResourceURL: re.ResourceURL,
			PageURL:     re.PageURL,
			Status:      re.Status,
			Timestamp:   re.Timestamp.Unix(),
		})
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&crawl).Error
	}); err != nil {
		return nil, fmt.Errorf("failed to save crawl report: %v", err)
	}

	return &crawl, nil
}

// GetCrawl gets a crawl by ID with all its error records loaded
func (s *Store) GetCrawl(id uint) (*Crawl, error) {
	var crawl Crawl
	result := s.db.
		Preload("Project").
		Preload("BrokenLinks").
		Preload("ConsoleErrors").
		Preload("ResourceErrors").
		First(&crawl, id)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get crawl: %v", result.Error)
	}
	return &crawl, nil
}

// GetProjectCrawls returns all crawls for a project, newest first
func (s *Store) GetProjectCrawls(projectID uint) ([]Crawl, error) {
	var crawls []Crawl
	result := s.db.Where("project_id = ?", projectID).Order("finished_at DESC").Find(&crawls)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get crawls: %v", result.Error)
	}
	return crawls, nil
}

// GetLatestCrawl gets the most recent crawl for a project, or nil when the
// project has no crawls yet
func (s *Store) GetLatestCrawl(projectID uint) (*Crawl, error) {
	var crawl Crawl
	result := s.db.Where("project_id = ?", projectID).Order("finished_at DESC").First(&crawl)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest crawl: %v", result.Error)
	}
	return &crawl, nil
}

// ListProjects returns all known projects ordered by creation time
func (s *Store) ListProjects() ([]Project, error) {
	var projects []Project
	result := s.db.Order("created_at ASC").Find(&projects)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list projects: %v", result.Error)
	}
	return projects, nil
}

// DeleteCrawl removes a crawl and its error records
func (s *Store) DeleteCrawl(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("crawl_id = ?", id).Delete(&BrokenLink{}).Error; err != nil {
			return fmt.Errorf("failed to delete broken links: %v", err)
		}
		if err := tx.Where("crawl_id = ?", id).Delete(&ConsoleError{}).Error; err != nil {
			return fmt.Errorf("failed to delete console errors: %v", err)
		}
		if err := tx.Where("crawl_id = ?", id).Delete(&ResourceError{}).Error; err != nil {
			return fmt.Errorf("failed to delete resource errors: %v", err)
		}
		if err := tx.Delete(&Crawl{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete crawl: %v", err)
		}
		return nil
	})
}
