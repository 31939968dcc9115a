package files

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/dbx"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

const fileColumns = `id, user_id, name, original_name, mime_type, size, tags, blob_key, encryption_iv, checksum,
	folder_id, downloads, last_accessed_at, deleted_at, deleted_by, created_at, updated_at`

var sortColumns = map[models.SortKey]string{
	models.SortCreatedAt:      "created_at",
	models.SortUpdatedAt:      "updated_at",
	models.SortName:           "name",
	models.SortSize:           "size",
	models.SortMimeType:       "mime_type",
	models.SortDownloads:      "downloads",
	models.SortLastAccessedAt: "last_accessed_at",
}

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the file row and its version history.
func (r *PostgresRepository) Create(ctx context.Context, f *models.FileRecord) error {
	tags, err := marshalList(f.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO files (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = r.db.ExecContext(ctx, query,
		f.ID, f.UserID, f.Name, f.OriginalName, f.MimeType, f.Size, tags, f.BlobKey, f.EncryptionIV, f.Checksum,
		nullString(f.FolderID), f.Downloads, nullTime(f.LastAccessedAt), nullTime(f.DeletedAt), nullString(f.DeletedBy),
		f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for _, v := range f.Versions {
		if err := r.insertVersion(ctx, f.ID, v); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) insertVersion(ctx context.Context, fileID string, v models.FileVersion) error {
	query := `
		INSERT INTO file_versions (file_id, version, blob_key, size, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query, fileID, v.Version, v.BlobKey, v.Size, v.CreatedAt, v.CreatedBy); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID loads the file row, then its versions, share links and recipients.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if f.Versions, err = r.selectVersions(ctx, id); err != nil {
		return nil, err
	}
	if f.ShareLinks, err = r.selectShareLinks(ctx, id); err != nil {
		return nil, err
	}
	if f.SharedWith, err = r.selectRecipients(ctx, id); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PostgresRepository) selectVersions(ctx context.Context, fileID string) ([]models.FileVersion, error) {
	query := `
		SELECT version, blob_key, size, created_at, created_by FROM file_versions
		WHERE file_id = $1 ORDER BY version
	`
	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to select versions: %w", err)
	}
	defer rows.Close()

	result := []models.FileVersion{}
	for rows.Next() {
		var v models.FileVersion
		if err := rows.Scan(&v.Version, &v.BlobKey, &v.Size, &v.CreatedAt, &v.CreatedBy); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) selectShareLinks(ctx context.Context, fileID string) ([]models.ShareLink, error) {
	query := `
		SELECT token, file_id, created_by, permission, expires_at, password_hash, emails, created_at FROM share_links
		WHERE file_id = $1 ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to select share links: %w", err)
	}
	defer rows.Close()

	result := []models.ShareLink{}
	for rows.Next() {
		l, err := scanShareLink(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) selectRecipients(ctx context.Context, fileID string) ([]string, error) {
	query := `SELECT user_id FROM file_recipients WHERE file_id = $1 ORDER BY created_at, user_id`

	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to select recipients: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		result = append(result, userID)
	}
	return result, rows.Err()
}

// List builds the filtered count and page queries for the user's active files.
func (r *PostgresRepository) List(ctx context.Context, userID string, filter models.ListFilter) ([]*models.FileRecord, int64, error) {
	filter = filter.Normalize()

	where := []string{"user_id = $1", "deleted_at IS NULL"}
	args := []any{userID}

	switch filter.FolderID {
	case "":
	case common.RootFolder:
		where = append(where, "folder_id IS NULL")
	default:
		args = append(args, filter.FolderID)
		where = append(where, fmt.Sprintf("folder_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		where = append(where, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, len(args)))
	}
	if filter.MimeType != "" {
		args = append(args, likePattern(filter.MimeType))
		where = append(where, fmt.Sprintf(`mime_type ILIKE $%d ESCAPE '\'`, len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count files: %w", err)
	}

	dir := "ASC"
	if filter.Desc {
		dir = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM files WHERE %s ORDER BY %s %s NULLS LAST, id %s LIMIT $%d OFFSET $%d`,
		fileColumns, cond, sortColumns[filter.SortBy], dir, dir, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset())

	files, err := r.selectFiles(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// ListDeleted pages through the user's trash.
func (r *PostgresRepository) ListDeleted(ctx context.Context, userID string, page, limit int) ([]*models.FileRecord, int64, error) {
	p := models.ListFilter{Page: page, Limit: limit}.Normalize()

	var total int64
	countQuery := `SELECT COUNT(*) FROM files WHERE user_id = $1 AND deleted_at IS NOT NULL`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count files: %w", err)
	}

	query := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id = $1 AND deleted_at IS NOT NULL
		ORDER BY deleted_at DESC, id DESC LIMIT $2 OFFSET $3`
	files, err := r.selectFiles(ctx, query, userID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

func (r *PostgresRepository) selectFiles(ctx context.Context, query string, args ...any) ([]*models.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// RecordAccess bumps the download counter and last-access time.
func (r *PostgresRepository) RecordAccess(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE files SET downloads = downloads + 1, last_accessed_at = $2 WHERE id = $1`
	return r.execOne(ctx, "record access", query, id, at)
}

// SetDeleted writes the trash markers. Exactly one row must be affected.
func (r *PostgresRepository) SetDeleted(ctx context.Context, id string, deletedAt *time.Time, deletedBy *string) error {
	query := `UPDATE files SET deleted_at = $2, deleted_by = $3 WHERE id = $1`
	return r.execOne(ctx, "set deleted", query, id, nullTime(deletedAt), nullString(deletedBy))
}

// LatestVersion locks the file row and returns its highest version number.
// Concurrent version uploads queue on the lock until the holder commits.
func (r *PostgresRepository) LatestVersion(ctx context.Context, id string) (int, error) {
	var locked string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM files WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	var latest int
	query := `SELECT COALESCE(MAX(version), 0) FROM file_versions WHERE file_id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&latest); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return latest, nil
}

// AddVersion inserts the version row and repoints the file at it.
func (r *PostgresRepository) AddVersion(ctx context.Context, id string, v models.FileVersion, iv, checksum string, now time.Time) error {
	if err := r.insertVersion(ctx, id, v); err != nil {
		return err
	}
	query := `
		UPDATE files SET blob_key = $2, size = $3, encryption_iv = $4, checksum = $5, updated_at = $6
		WHERE id = $1
	`
	return r.execOne(ctx, "add version", query, id, v.BlobKey, v.Size, iv, checksum, now)
}

func (r *PostgresRepository) AddShareLink(ctx context.Context, l *models.ShareLink) error {
	emails, err := marshalList(l.Emails)
	if err != nil {
		return err
	}

	var hash *string
	if l.PasswordHash != "" {
		hash = &l.PasswordHash
	}

	query := `
		INSERT INTO share_links (token, file_id, created_by, permission, expires_at, password_hash, emails, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		l.Token, l.FileID, l.CreatedBy, string(l.Permission), nullTime(l.ExpiresAt), nullString(hash), emails, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetShareLink(ctx context.Context, token string) (*models.ShareLink, error) {
	query := `
		SELECT token, file_id, created_by, permission, expires_at, password_hash, emails, created_at FROM share_links
		WHERE token = $1
	`
	l, err := scanShareLink(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

// AddRecipient is idempotent.
func (r *PostgresRepository) AddRecipient(ctx context.Context, fileID, userID string, at time.Time) error {
	query := `
		INSERT INTO file_recipients (file_id, user_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (file_id, user_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, fileID, userID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RemoveRecipient is idempotent.
func (r *PostgresRepository) RemoveRecipient(ctx context.Context, fileID, userID string) error {
	query := `DELETE FROM file_recipients WHERE file_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, fileID, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SumActiveSize(ctx context.Context, userID string) (int64, error) {
	query := `SELECT COALESCE(SUM(size), 0) FROM files WHERE user_id = $1 AND deleted_at IS NULL`

	var total int64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}

func (r *PostgresRepository) UsageByMimeType(ctx context.Context, userID string) ([]models.MimeUsage, error) {
	query := `
		SELECT mime_type, COALESCE(SUM(size), 0), COUNT(*) FROM files
		WHERE user_id = $1 AND deleted_at IS NULL
		GROUP BY mime_type ORDER BY mime_type
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	defer rows.Close()

	result := []models.MimeUsage{}
	for rows.Next() {
		var u models.MimeUsage
		if err := rows.Scan(&u.MimeType, &u.Size, &u.Count); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.FileRecord, error) {
	var (
		f            models.FileRecord
		tags         []byte
		folderID     sql.NullString
		lastAccessed sql.NullTime
		deletedAt    sql.NullTime
		deletedBy    sql.NullString
	)
	err := s.Scan(&f.ID, &f.UserID, &f.Name, &f.OriginalName, &f.MimeType, &f.Size, &tags, &f.BlobKey,
		&f.EncryptionIV, &f.Checksum, &folderID, &f.Downloads, &lastAccessed, &deletedAt, &deletedBy,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if f.Tags, err = unmarshalList(tags); err != nil {
		return nil, err
	}
	f.FolderID = stringPtr(folderID)
	f.LastAccessedAt = timePtr(lastAccessed)
	f.DeletedAt = timePtr(deletedAt)
	f.DeletedBy = stringPtr(deletedBy)
	return &f, nil
}

func scanShareLink(s scanner) (*models.ShareLink, error) {
	var (
		l          models.ShareLink
		permission string
		expiresAt  sql.NullTime
		hash       sql.NullString
		emails     []byte
	)
	if err := s.Scan(&l.Token, &l.FileID, &l.CreatedBy, &permission, &expiresAt, &hash, &emails, &l.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if l.Emails, err = unmarshalList(emails); err != nil {
		return nil, err
	}
	l.Permission = models.Permission(permission)
	l.ExpiresAt = timePtr(expiresAt)
	l.PasswordHash = hash.String
	return &l, nil
}

// likePattern escapes LIKE metacharacters so s matches as a plain substring.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func marshalList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(b), nil
}

func unmarshalList(b []byte) ([]string, error) {
	out := []string{}
	if len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return out, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
