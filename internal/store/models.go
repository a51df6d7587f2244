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

// Project represents one checked project: an origin plus the token that
// identifies the project on that origin. Token is empty for plain
// same-origin checks.
type Project struct {
	ID        uint   `gorm:"primaryKey"`
	Origin    string `gorm:"not null"`
	Token     string `gorm:"not null;default:''"`
	CreatedAt int64  `gorm:"autoCreateTime"`
	UpdatedAt int64  `gorm:"autoUpdateTime"`
}

// Crawl represents one finished check run for a project
type Crawl struct {
	ID        uint   `gorm:"primaryKey"`
	ProjectID uint   `gorm:"index;not null"`
	Seed      string `gorm:"not null"`
	// StartedAt/FinishedAt are unix timestamps in seconds
	StartedAt  int64 `gorm:"not null"`
	FinishedAt int64 `gorm:"not null"`
	WasStopped bool  `gorm:"default:false"`

	PagesChecked       int `gorm:"default:0"`
	BrokenLinkCount    int `gorm:"default:0"`
	ConsoleErrorCount  int `gorm:"default:0"`
	ResourceErrorCount int `gorm:"default:0"`

	Project        *Project        `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	BrokenLinks    []BrokenLink    `gorm:"foreignKey:CrawlID;constraint:OnDelete:CASCADE"`
	ConsoleErrors  []ConsoleError  `gorm:"foreignKey:CrawlID;constraint:OnDelete:CASCADE"`
	ResourceErrors []ResourceError `gorm:"foreignKey:CrawlID;constraint:OnDelete:CASCADE"`

	CreatedAt int64 `gorm:"autoCreateTime"`
}

// BrokenLink represents one page whose own navigation failed
type BrokenLink struct {
	ID      uint   `gorm:"primaryKey"`
	CrawlID uint   `gorm:"index;not null"`
	URL     string `gorm:"not null"`
	FoundOn string `gorm:"not null"`
	// Status is the HTTP status code as text, or "ERROR" for transport
	// failures
	Status string `gorm:"not null"`
	Error  string `gorm:"type:text"`
}

// ConsoleError represents one JavaScript console error or uncaught
// exception observed on a page
type ConsoleError struct {
	ID      uint   `gorm:"primaryKey"`
	CrawlID uint   `gorm:"index;not null"`
	URL     string `gorm:"not null"`
	Error   string `gorm:"type:text;not null"`
	// Timestamp is a unix timestamp in seconds
	Timestamp int64 `gorm:"not null"`
}

// ResourceError represents one sub-resource that answered 404 while its
// page was being checked
type ResourceError struct {
	ID          uint   `gorm:"primaryKey"`
	CrawlID     uint   `gorm:"index;not null"`
	ResourceURL string `gorm:"not null"`
	PageURL     string `gorm:"not null"`
	Status      int    `gorm:"not null"`
	// Timestamp is a unix timestamp in seconds
	Timestamp int64 `gorm:"not null"`
}
