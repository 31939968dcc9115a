// Package services contains server-side business logic: the quota ledger,
// the file record lifecycle and the share-link authorizer.
package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/metrics"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/notify"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const defaultMimeType = "application/octet-stream"

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,16}$`)

// UploadInput describes a new file. Data is the whole plaintext.
type UploadInput struct {
	Data         []byte
	OriginalName string
	MimeType     string
	FolderID     *string
	Tags         []string
}

// Download is a decrypted file together with its record.
type Download struct {
	File *models.FileRecord
	Data []byte
}

// FileService owns the versioned, shareable, soft-deletable file records.
type FileService struct {
	store    repomanager.Store
	blobs    blobstore.Store
	envelope *cryptox.Envelope
	quota    *QuotaLedger
	events   notify.Publisher
	log      logging.Logger
	now      func() time.Time

	maxFileSize int64
}

func NewFileService(store repomanager.Store, blobs blobstore.Store, envelope *cryptox.Envelope,
	quota *QuotaLedger, events notify.Publisher, log logging.Logger) *FileService {
	return &FileService{
		store:    store,
		blobs:    blobs,
		envelope: envelope,
		quota:    quota,
		events:   events,
		log:      log.With("module", "files"),
		now:      func() time.Time { return time.Now().UTC() },

		maxFileSize: common.DefaultMaxFileSize,
	}
}

// SetMaxFileSize changes the largest accepted upload. n <= 0 keeps the default.
func (s *FileService) SetMaxFileSize(n int64) {
	if n > 0 {
		s.maxFileSize = n
	}
}

// MaxFileSize returns the largest accepted upload in bytes.
func (s *FileService) MaxFileSize() int64 {
	return s.maxFileSize
}

func (s *FileService) checkSize(size int64) error {
	if size > s.maxFileSize {
		return fmt.Errorf("%w: file exceeds maximum size of %d bytes", common.ErrInvalidArgument, s.maxFileSize)
	}
	return nil
}

// Upload admits, encrypts and stores a new file, then creates its record
// with version 1. The blob is always written before the record; a failure
// in between leaves an orphaned blob and no record.
func (s *FileService) Upload(ctx context.Context, id models.Identity, in UploadInput) (rec *models.FileRecord, err error) {
	defer func() { metrics.UploadsTotal.WithLabelValues(result(err)).Inc() }()

	if id.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", common.ErrInvalidArgument)
	}
	name := strings.TrimSpace(in.OriginalName)
	if name == "" {
		return nil, fmt.Errorf("%w: file name is required", common.ErrInvalidArgument)
	}
	mimeType := strings.TrimSpace(in.MimeType)
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	size := int64(len(in.Data))
	if err := s.checkSize(size); err != nil {
		return nil, err
	}

	if err := s.quota.Admit(ctx, id.UserID, size, id.EffectiveQuota()); err != nil {
		return nil, err
	}

	checksum := cryptox.Checksum(in.Data)
	sealed, err := s.envelope.Encrypt(in.Data)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key, err := newBlobKey(id.UserID, name, now)
	if err != nil {
		return nil, err
	}
	if err := s.blobs.Put(ctx, key, sealed.Ciphertext, blobstore.ContentType,
		blobstore.NewMetadata(id.UserID, name, sealed.IVHex())); err != nil {
		return nil, err
	}

	rec = &models.FileRecord{
		ID:           uuid.NewString(),
		UserID:       id.UserID,
		Name:         name,
		OriginalName: name,
		MimeType:     mimeType,
		Size:         size,
		Tags:         normalizeTags(in.Tags),
		BlobKey:      key,
		EncryptionIV: sealed.IVHex(),
		Checksum:     checksum,
		Versions: []models.FileVersion{
			{Version: 1, BlobKey: key, Size: size, CreatedAt: now, CreatedBy: id.UserID},
		},
		ShareLinks: []models.ShareLink{},
		SharedWith: []string{},
		FolderID:   normalizeFolder(in.FolderID),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.WithinTx(ctx, func(ctx context.Context, repo files.Repository) error {
		return repo.Create(ctx, rec)
	}); err != nil {
		s.log.Error(ctx, "create record after blob write", "blob_key", key, "error", err)
		return nil, fmt.Errorf("create file record: %w", err)
	}

	metrics.BytesUploadedTotal.Add(float64(size))
	s.log.Info(ctx, "file uploaded", "file_id", rec.ID, "user_id", id.UserID, "size", size)
	s.events.Publish(ctx, id.UserID, notify.EventFileUploaded, rec)
	return rec, nil
}

// UploadVersion replaces the content of an active file owned by the caller
// and appends the next version entry. Admission uses the size delta. The
// version number is assigned inside the transaction, after the blob write.
func (s *FileService) UploadVersion(ctx context.Context, id models.Identity, fileID string, data []byte) (rec *models.FileRecord, err error) {
	defer func() { metrics.UploadsTotal.WithLabelValues(result(err)).Inc() }()

	size := int64(len(data))
	if err := s.checkSize(size); err != nil {
		return nil, err
	}

	rec, err = s.load(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !rec.IsOwner(id.UserID) {
		return nil, common.ErrAccessDenied
	}
	if rec.IsDeleted() {
		return nil, common.ErrorNotFound
	}

	if err := s.quota.Admit(ctx, id.UserID, size-rec.Size, id.EffectiveQuota()); err != nil {
		return nil, err
	}

	checksum := cryptox.Checksum(data)
	sealed, err := s.envelope.Encrypt(data)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key, err := newBlobKey(id.UserID, rec.OriginalName, now)
	if err != nil {
		return nil, err
	}
	if err := s.blobs.Put(ctx, key, sealed.Ciphertext, blobstore.ContentType,
		blobstore.NewMetadata(id.UserID, rec.OriginalName, sealed.IVHex())); err != nil {
		return nil, err
	}

	v := models.FileVersion{BlobKey: key, Size: size, CreatedAt: now, CreatedBy: id.UserID}

	if err := s.store.WithinTx(ctx, func(ctx context.Context, repo files.Repository) error {
		latest, err := repo.LatestVersion(ctx, fileID)
		if err != nil {
			return err
		}
		v.Version = latest + 1
		if err := repo.AddVersion(ctx, fileID, v, sealed.IVHex(), checksum, now); err != nil {
			return err
		}
		rec, err = repo.GetByID(ctx, fileID)
		return err
	}); err != nil {
		s.log.Error(ctx, "add version after blob write", "blob_key", key, "error", err)
		return nil, fmt.Errorf("add version: %w", err)
	}

	metrics.BytesUploadedTotal.Add(float64(size))
	s.log.Info(ctx, "file version uploaded", "file_id", rec.ID, "version", v.Version, "size", size)
	s.events.Publish(ctx, id.UserID, notify.EventFileVersion, rec)
	return rec, nil
}

// Download returns the decrypted content to the owner or a direct-share
// recipient. The download counter is bumped best-effort.
func (s *FileService) Download(ctx context.Context, fileID, userID string) (d *Download, err error) {
	defer func() { metrics.DownloadsTotal.WithLabelValues(result(err)).Inc() }()

	rec, err := s.load(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !rec.CanRead(userID) {
		return nil, common.ErrAccessDenied
	}
	return s.fetch(ctx, rec)
}

// fetch reads, decrypts and verifies the current blob of rec.
func (s *FileService) fetch(ctx context.Context, rec *models.FileRecord) (*Download, error) {
	ciphertext, err := s.blobs.Get(ctx, rec.BlobKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: blob %s is missing", common.ErrStorage, rec.BlobKey)
		}
		return nil, err
	}

	plaintext, err := s.envelope.DecryptHexIV(ciphertext, rec.EncryptionIV)
	if err != nil {
		s.log.Error(ctx, "decrypt blob", "file_id", rec.ID, "error", err)
		return nil, err
	}
	if !cryptox.VerifyChecksum(plaintext, rec.Checksum) {
		s.log.Error(ctx, "checksum mismatch", "file_id", rec.ID)
		return nil, fmt.Errorf("%w: checksum mismatch", common.ErrIntegrityOrKey)
	}

	now := s.now()
	if err := s.store.Files().RecordAccess(ctx, rec.ID, now); err != nil {
		s.log.Warn(ctx, "record access", "file_id", rec.ID, "error", err)
	} else {
		rec.Downloads++
		rec.LastAccessedAt = &now
	}
	return &Download{File: rec, Data: plaintext}, nil
}

// GetMetadata applies the Download access rule without side effects.
func (s *FileService) GetMetadata(ctx context.Context, fileID, userID string) (*models.FileRecord, error) {
	rec, err := s.load(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !rec.CanRead(userID) {
		return nil, common.ErrAccessDenied
	}
	return rec, nil
}

// List pages through the user's active files.
func (s *FileService) List(ctx context.Context, userID string, filter models.ListFilter) (*models.FilePage, error) {
	filter = filter.Normalize()
	recs, total, err := s.store.Files().List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return models.NewFilePage(recs, total, filter.Page, filter.Limit), nil
}

// ListTrash pages through the user's soft-deleted files, latest first.
func (s *FileService) ListTrash(ctx context.Context, userID string, page, limit int) (*models.FilePage, error) {
	p := models.ListFilter{Page: page, Limit: limit}.Normalize()
	recs, total, err := s.store.Files().ListDeleted(ctx, userID, p.Page, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	return models.NewFilePage(recs, total, p.Page, p.Limit), nil
}

// SoftDelete moves an owned file to the trash. The blob is kept; the quota
// charge is released at once. Deleting a trashed file is a no-op.
func (s *FileService) SoftDelete(ctx context.Context, fileID, userID string) error {
	rec, err := s.load(ctx, fileID)
	if err != nil {
		return err
	}
	if !rec.IsOwner(userID) {
		return common.ErrAccessDenied
	}
	if rec.IsDeleted() {
		return nil
	}

	now := s.now()
	if err := s.store.Files().SetDeleted(ctx, rec.ID, &now, &userID); err != nil {
		return fmt.Errorf("soft delete: %w", err)
	}

	s.log.Info(ctx, "file moved to trash", "file_id", rec.ID)
	s.events.Publish(ctx, userID, notify.EventFileDeleted, map[string]string{"fileId": rec.ID})
	return nil
}

// Restore clears the trash markers of an owned file. Quota is not
// re-checked. Restoring an active file returns it unchanged.
func (s *FileService) Restore(ctx context.Context, fileID, userID string) (*models.FileRecord, error) {
	rec, err := s.load(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !rec.IsOwner(userID) {
		return nil, common.ErrAccessDenied
	}
	if !rec.IsDeleted() {
		return rec, nil
	}

	if err := s.store.Files().SetDeleted(ctx, rec.ID, nil, nil); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	rec.DeletedAt, rec.DeletedBy = nil, nil

	s.log.Info(ctx, "file restored", "file_id", rec.ID)
	s.events.Publish(ctx, userID, notify.EventFileRestored, rec)
	return rec, nil
}

// StorageUsageSummary reports active usage against the caller's quota.
func (s *FileService) StorageUsageSummary(ctx context.Context, id models.Identity) (*models.UsageSummary, error) {
	byType, err := s.store.Files().UsageByMimeType(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("usage by type: %w", err)
	}

	summary := &models.UsageSummary{Quota: id.EffectiveQuota(), ByType: byType}
	for _, u := range byType {
		summary.TotalSize += u.Size
		summary.TotalFiles += u.Count
	}
	return summary, nil
}

// GrantAccess adds userID to the direct-share recipients of an owned file.
func (s *FileService) GrantAccess(ctx context.Context, fileID, ownerID, userID string) error {
	rec, err := s.ownedRecipientChange(ctx, fileID, ownerID, userID)
	if err != nil {
		return err
	}
	if err := s.store.Files().AddRecipient(ctx, rec.ID, userID, s.now()); err != nil {
		return fmt.Errorf("grant access: %w", err)
	}
	return nil
}

// RevokeAccess removes userID from the direct-share recipients.
func (s *FileService) RevokeAccess(ctx context.Context, fileID, ownerID, userID string) error {
	rec, err := s.ownedRecipientChange(ctx, fileID, ownerID, userID)
	if err != nil {
		return err
	}
	if err := s.store.Files().RemoveRecipient(ctx, rec.ID, userID); err != nil {
		return fmt.Errorf("revoke access: %w", err)
	}
	return nil
}

func (s *FileService) ownedRecipientChange(ctx context.Context, fileID, ownerID, userID string) (*models.FileRecord, error) {
	rec, err := s.load(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !rec.IsOwner(ownerID) {
		return nil, common.ErrAccessDenied
	}
	userID = strings.TrimSpace(userID)
	if userID == "" || userID == ownerID {
		return nil, fmt.Errorf("%w: recipient must be another user", common.ErrInvalidArgument)
	}
	return rec, nil
}

// load fetches a full record. Malformed IDs cannot exist and are reported
// as not found.
func (s *FileService) load(ctx context.Context, fileID string) (*models.FileRecord, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, common.ErrorNotFound
	}
	rec, err := s.store.Files().GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("load file: %w", err)
	}
	return rec, nil
}

// newBlobKey returns {userId}/{unixMillis}_{16 hex}{ext}. The extension of
// name is kept only when it is short and alphanumeric.
func newBlobKey(userID, name string, now time.Time) (string, error) {
	suffix, err := common.MakeRandHexString(8)
	if err != nil {
		return "", fmt.Errorf("blob key: %w", err)
	}
	ext := path.Ext(name)
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return userID + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix + ext, nil
}

func normalizeTags(tags []string) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// normalizeFolder maps "" and the root sentinel to no folder.
func normalizeFolder(folderID *string) *string {
	if folderID == nil {
		return nil
	}
	f := strings.TrimSpace(*folderID)
	if f == "" || f == common.RootFolder {
		return nil
	}
	return &f
}

func result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, common.ErrQuotaExceeded), errors.Is(err, common.ErrAccessDenied),
		errors.Is(err, common.ErrShareLinkExpired), errors.Is(err, common.ErrWrongPassword),
		errors.Is(err, common.ErrEmailNotAllowed):
		return metrics.ResultDenied
	default:
		return metrics.ResultError
	}
}
