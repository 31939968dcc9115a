package models

import "strings"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 1000
)

// SortKey names a sortable FileRecord attribute.
type SortKey string

const (
	SortCreatedAt      SortKey = "createdAt"
	SortUpdatedAt      SortKey = "updatedAt"
	SortName           SortKey = "name"
	SortSize           SortKey = "size"
	SortMimeType       SortKey = "mimeType"
	SortDownloads      SortKey = "downloads"
	SortLastAccessedAt SortKey = "lastAccessedAt"
)

var sortKeys = map[SortKey]struct{}{
	SortCreatedAt: {}, SortUpdatedAt: {}, SortName: {}, SortSize: {},
	SortMimeType: {}, SortDownloads: {}, SortLastAccessedAt: {},
}

// ListFilter narrows a user's active files.
//
// FolderID "" applies no folder filter, "root" selects files without a
// folder and any other value selects that folder only. Search and MimeType
// are case-insensitive substring matches.
type ListFilter struct {
	FolderID string
	Search   string
	MimeType string
	SortBy   SortKey
	Desc     bool
	Page     int
	Limit    int
}

// ParseOrder maps "asc"/"desc" to the Desc flag; anything else is descending.
func ParseOrder(order string) bool {
	return !strings.EqualFold(strings.TrimSpace(order), "asc")
}

// Normalize fills defaults and clamps paging.
func (f ListFilter) Normalize() ListFilter {
	if _, ok := sortKeys[f.SortBy]; !ok {
		f.SortBy = SortCreatedAt
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}

// Offset is the number of rows skipped before the page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// FilePage is one page of a listing.
type FilePage struct {
	Files      []*FileRecord `json:"data"`
	Total      int64         `json:"total"`
	Page       int           `json:"currentPage"`
	TotalPages int           `json:"totalPages"`
}

// NewFilePage computes the page count for total rows at limit rows per page.
func NewFilePage(files []*FileRecord, total int64, page, limit int) *FilePage {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	if files == nil {
		files = []*FileRecord{}
	}
	return &FilePage{Files: files, Total: total, Page: page, TotalPages: pages}
}

// MimeUsage is the per-MIME-type slice of a usage summary.
type MimeUsage struct {
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Count    int64  `json:"count"`
}

// UsageSummary reports a user's active storage consumption.
type UsageSummary struct {
	TotalSize  int64       `json:"totalSize"`
	TotalFiles int64       `json:"totalFiles"`
	Quota      int64       `json:"quota"`
	ByType     []MimeUsage `json:"byType"`
}
