// Package files persists FileRecord documents together with their version
// history, share links and direct-share recipients.
package files

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// ErrVersionConflict is returned by AddVersion when the version number does
// not follow the latest stored one.
var ErrVersionConflict = errors.New("version number conflict")

// Repository is the record store used by the file lifecycle.
//
// Methods returning a single record report common.ErrorNotFound when it
// does not exist. Create and AddVersion issue several statements and are
// expected to run inside a transaction.
type Repository interface {
	Create(ctx context.Context, file *models.FileRecord) error
	// GetByID returns the full record including versions, share links and recipients.
	GetByID(ctx context.Context, id string) (*models.FileRecord, error)
	// List returns one page of the user's active files without versions,
	// share links or recipients, plus the total match count.
	List(ctx context.Context, userID string, filter models.ListFilter) ([]*models.FileRecord, int64, error)
	// ListDeleted returns the user's trashed files, latest deletion first.
	ListDeleted(ctx context.Context, userID string, page, limit int) ([]*models.FileRecord, int64, error)

	RecordAccess(ctx context.Context, id string, at time.Time) error
	// SetDeleted sets or clears (nil, nil) the trash markers. updated_at is left alone.
	SetDeleted(ctx context.Context, id string, deletedAt *time.Time, deletedBy *string) error
	// LatestVersion returns the highest stored version number. Inside a
	// transaction it also locks the record until commit.
	LatestVersion(ctx context.Context, id string) (int, error)
	// AddVersion appends v and moves the record's current pointer to it.
	// v.Version must be greater than LatestVersion.
	AddVersion(ctx context.Context, id string, v models.FileVersion, iv, checksum string, now time.Time) error

	AddShareLink(ctx context.Context, link *models.ShareLink) error
	GetShareLink(ctx context.Context, token string) (*models.ShareLink, error)

	AddRecipient(ctx context.Context, fileID, userID string, at time.Time) error
	RemoveRecipient(ctx context.Context, fileID, userID string) error

	// SumActiveSize sums size over the user's non-deleted files.
	SumActiveSize(ctx context.Context, userID string) (int64, error)
	// UsageByMimeType groups the user's non-deleted files by MIME type.
	UsageByMimeType(ctx context.Context, userID string) ([]models.MimeUsage, error)
}
