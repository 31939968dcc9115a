package files

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// MemoryRepository is a process-local Repository. Stored records are copied
// on the way in and out, so callers never alias its state.
type MemoryRepository struct {
	mu    sync.RWMutex
	files map[string]*models.FileRecord
	links map[string]*models.ShareLink
	order []string
	// linkOrder preserves share-link insertion order.
	linkOrder []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		files: make(map[string]*models.FileRecord),
		links: make(map[string]*models.ShareLink),
	}
}

func (r *MemoryRepository) Create(_ context.Context, f *models.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[f.ID]; ok {
		return common.ErrInvalidArgument
	}
	c := f.Clone()
	c.ShareLinks = nil
	c.SharedWith = nil
	r.files[f.ID] = c
	r.order = append(r.order, f.ID)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := f.Clone()
	if c.Versions == nil {
		c.Versions = []models.FileVersion{}
	}
	c.ShareLinks = []models.ShareLink{}
	for _, token := range r.linkOrder {
		if l := r.links[token]; l.FileID == id {
			c.ShareLinks = append(c.ShareLinks, l.Clone())
		}
	}
	if c.SharedWith == nil {
		c.SharedWith = []string{}
	}
	return c, nil
}

// summary strips the nested collections the way a list row does.
func summary(f *models.FileRecord) *models.FileRecord {
	c := f.Clone()
	c.Versions = nil
	c.ShareLinks = nil
	c.SharedWith = nil
	return c
}

func (r *MemoryRepository) List(_ context.Context, userID string, filter models.ListFilter) ([]*models.FileRecord, int64, error) {
	filter = filter.Normalize()

	r.mu.RLock()
	var matched []*models.FileRecord
	for _, id := range r.order {
		f := r.files[id]
		if f.UserID != userID || f.IsDeleted() || !matchFolder(f, filter.FolderID) {
			continue
		}
		if filter.Search != "" && !containsFold(f.Name, filter.Search) {
			continue
		}
		if filter.MimeType != "" && !containsFold(f.MimeType, filter.MimeType) {
			continue
		}
		matched = append(matched, summary(f))
	}
	r.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b *models.FileRecord) int {
		c := compareBy(a, b, filter.SortBy, filter.Desc)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
			if filter.Desc {
				c = -c
			}
		}
		return c
	})
	return paginate(matched, filter), int64(len(matched)), nil
}

func (r *MemoryRepository) ListDeleted(_ context.Context, userID string, page, limit int) ([]*models.FileRecord, int64, error) {
	p := models.ListFilter{Page: page, Limit: limit}.Normalize()

	r.mu.RLock()
	var matched []*models.FileRecord
	for _, id := range r.order {
		f := r.files[id]
		if f.UserID == userID && f.IsDeleted() {
			matched = append(matched, summary(f))
		}
	}
	r.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b *models.FileRecord) int {
		if c := b.DeletedAt.Compare(*a.DeletedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return paginate(matched, p), int64(len(matched)), nil
}

func (r *MemoryRepository) RecordAccess(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(f *models.FileRecord) {
		f.Downloads++
		f.LastAccessedAt = &at
	})
}

func (r *MemoryRepository) SetDeleted(_ context.Context, id string, deletedAt *time.Time, deletedBy *string) error {
	return r.update(id, func(f *models.FileRecord) {
		f.DeletedAt = clonePtr(deletedAt)
		f.DeletedBy = clonePtr(deletedBy)
	})
}

func (r *MemoryRepository) LatestVersion(_ context.Context, id string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return latestVersion(f), nil
}

func (r *MemoryRepository) AddVersion(_ context.Context, id string, v models.FileVersion, iv, checksum string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	if latest := latestVersion(f); v.Version <= latest {
		return fmt.Errorf("%w: %d after %d", ErrVersionConflict, v.Version, latest)
	}
	f.Versions = append(f.Versions, v)
	f.BlobKey = v.BlobKey
	f.Size = v.Size
	f.EncryptionIV = iv
	f.Checksum = checksum
	f.UpdatedAt = now
	return nil
}

func latestVersion(f *models.FileRecord) int {
	if v := f.LatestVersion(); v != nil {
		return v.Version
	}
	return 0
}

func (r *MemoryRepository) AddShareLink(_ context.Context, l *models.ShareLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[l.FileID]; !ok {
		return common.ErrorNotFound
	}
	if _, ok := r.links[l.Token]; ok {
		return common.ErrInvalidArgument
	}
	c := l.Clone()
	r.links[l.Token] = &c
	r.linkOrder = append(r.linkOrder, l.Token)
	return nil
}

func (r *MemoryRepository) GetShareLink(_ context.Context, token string) (*models.ShareLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.links[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := l.Clone()
	return &c, nil
}

func (r *MemoryRepository) AddRecipient(_ context.Context, fileID, userID string, _ time.Time) error {
	return r.update(fileID, func(f *models.FileRecord) {
		if !slices.Contains(f.SharedWith, userID) {
			f.SharedWith = append(f.SharedWith, userID)
		}
	})
}

func (r *MemoryRepository) RemoveRecipient(_ context.Context, fileID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.files[fileID]; ok {
		f.SharedWith = slices.DeleteFunc(f.SharedWith, func(u string) bool { return u == userID })
	}
	return nil
}

func (r *MemoryRepository) SumActiveSize(_ context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, f := range r.files {
		if f.UserID == userID && !f.IsDeleted() {
			total += f.Size
		}
	}
	return total, nil
}

func (r *MemoryRepository) UsageByMimeType(_ context.Context, userID string) ([]models.MimeUsage, error) {
	r.mu.RLock()
	byType := make(map[string]*models.MimeUsage)
	for _, f := range r.files {
		if f.UserID != userID || f.IsDeleted() {
			continue
		}
		u, ok := byType[f.MimeType]
		if !ok {
			u = &models.MimeUsage{MimeType: f.MimeType}
			byType[f.MimeType] = u
		}
		u.Size += f.Size
		u.Count++
	}
	r.mu.RUnlock()

	result := make([]models.MimeUsage, 0, len(byType))
	for _, u := range byType {
		result = append(result, *u)
	}
	slices.SortFunc(result, func(a, b models.MimeUsage) int {
		return strings.Compare(a.MimeType, b.MimeType)
	})
	return result, nil
}

func (r *MemoryRepository) update(id string, fn func(f *models.FileRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(f)
	return nil
}

func matchFolder(f *models.FileRecord, folderID string) bool {
	switch folderID {
	case "":
		return true
	case common.RootFolder:
		return f.FolderID == nil
	default:
		return f.FolderID != nil && *f.FolderID == folderID
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// compareBy orders missing LastAccessedAt values last in both directions.
func compareBy(a, b *models.FileRecord, key models.SortKey, desc bool) int {
	var c int
	switch key {
	case models.SortUpdatedAt:
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	case models.SortName:
		c = strings.Compare(a.Name, b.Name)
	case models.SortSize:
		c = cmp.Compare(a.Size, b.Size)
	case models.SortMimeType:
		c = strings.Compare(a.MimeType, b.MimeType)
	case models.SortDownloads:
		c = cmp.Compare(a.Downloads, b.Downloads)
	case models.SortLastAccessedAt:
		switch {
		case a.LastAccessedAt == nil && b.LastAccessedAt == nil:
			return 0
		case a.LastAccessedAt == nil:
			return 1
		case b.LastAccessedAt == nil:
			return -1
		}
		c = a.LastAccessedAt.Compare(*b.LastAccessedAt)
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if desc {
		return -c
	}
	return c
}

func paginate(files []*models.FileRecord, f models.ListFilter) []*models.FileRecord {
	start := f.Offset()
	if start >= len(files) {
		return []*models.FileRecord{}
	}
	end := min(start+f.Limit, len(files))
	return files[start:end]
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
