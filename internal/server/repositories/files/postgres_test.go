package files

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

var fileRowColumns = []string{
	"id", "user_id", "name", "original_name", "mime_type", "size", "tags", "blob_key", "encryption_iv", "checksum",
	"folder_id", "downloads", "last_accessed_at", "deleted_at", "deleted_by", "created_at", "updated_at",
}

var shareLinkColumns = []string{
	"token", "file_id", "created_by", "permission", "expires_at", "password_hash", "emails", "created_at",
}

func sampleFile(now time.Time) *models.FileRecord {
	return &models.FileRecord{
		ID:           "11111111-1111-1111-1111-111111111111",
		UserID:       "u1",
		Name:         "report.pdf",
		OriginalName: "report.pdf",
		MimeType:     "application/pdf",
		Size:         42,
		Tags:         []string{"work"},
		BlobKey:      "u1/1_abc.pdf",
		EncryptionIV: "00112233445566778899aabb",
		Checksum:     "deadbeef",
		Versions: []models.FileVersion{
			{Version: 1, BlobKey: "u1/1_abc.pdf", Size: 42, CreatedAt: now, CreatedBy: "u1"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func fileRow(f *models.FileRecord) []driver.Value {
	return []driver.Value{
		f.ID, f.UserID, f.Name, f.OriginalName, f.MimeType, f.Size, []byte(`["work"]`), f.BlobKey,
		f.EncryptionIV, f.Checksum, nil, f.Downloads, nil, nil, nil, f.CreatedAt, f.UpdatedAt,
	}
}

func TestPostgresRepository_Create_InsertsFileAndVersions(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f := sampleFile(now)

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+files\s*\(.+\)\s*VALUES\s*\(\$1,.+\$17\)\s*$`).
		WithArgs(f.ID, f.UserID, f.Name, f.OriginalName, f.MimeType, f.Size, `["work"]`, f.BlobKey,
			f.EncryptionIV, f.Checksum, nil, int64(0), nil, nil, nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+file_versions\b`).
		WithArgs(f.ID, 1, f.BlobKey, int64(42), now, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), f))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Create_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	f := sampleFile(time.Now())

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+files\b`).WillReturnError(errors.New("boom"))

	err := repo.Create(context.Background(), f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByID_LoadsNestedCollections(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f := sampleFile(now)
	exp := now.Add(time.Hour)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.+FROM\s+files\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(f.ID).
		WillReturnRows(sqlmock.NewRows(fileRowColumns).AddRow(fileRow(f)...))
	mock.ExpectQuery(`(?s)FROM\s+file_versions\s+WHERE\s+file_id\s*=\s*\$1\s+ORDER\s+BY\s+version`).
		WithArgs(f.ID).
		WillReturnRows(sqlmock.NewRows([]string{"version", "blob_key", "size", "created_at", "created_by"}).
			AddRow(1, "u1/1_abc.pdf", int64(42), now, "u1").
			AddRow(2, "u1/2_def.pdf", int64(50), now, "u1"))
	mock.ExpectQuery(`(?s)FROM\s+share_links\s+WHERE\s+file_id\s*=\s*\$1`).
		WithArgs(f.ID).
		WillReturnRows(sqlmock.NewRows(shareLinkColumns).
			AddRow("tok", f.ID, "u1", "view", exp, "hash", []byte(`["a@b.c"]`), now))
	mock.ExpectQuery(`(?s)FROM\s+file_recipients\s+WHERE\s+file_id\s*=\s*\$1`).
		WithArgs(f.ID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u2"))

	got, err := repo.GetByID(context.Background(), f.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"work"}, got.Tags)
	assert.Nil(t, got.FolderID)
	assert.Nil(t, got.DeletedAt)
	require.Len(t, got.Versions, 2)
	assert.Equal(t, 2, got.LatestVersion().Version)
	require.Len(t, got.ShareLinks, 1)
	assert.Equal(t, models.PermissionView, got.ShareLinks[0].Permission)
	assert.Equal(t, "hash", got.ShareLinks[0].PasswordHash)
	assert.Equal(t, []string{"a@b.c"}, got.ShareLinks[0].Emails)
	require.NotNil(t, got.ShareLinks[0].ExpiresAt)
	assert.True(t, exp.Equal(*got.ShareLinks[0].ExpiresAt))
	assert.Equal(t, []string{"u2"}, got.SharedWith)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByID_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)FROM\s+files\s+WHERE\s+id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByID_NullableColumns(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f := sampleFile(now)

	row := fileRow(f)
	row[10] = "folder-1"
	row[12] = now
	row[13] = now
	row[14] = "u1"

	mock.ExpectQuery(`(?s)FROM\s+files\s+WHERE\s+id`).WithArgs(f.ID).
		WillReturnRows(sqlmock.NewRows(fileRowColumns).AddRow(row...))
	mock.ExpectQuery(`file_versions`).WithArgs(f.ID).
		WillReturnRows(sqlmock.NewRows([]string{"version", "blob_key", "size", "created_at", "created_by"}))
	mock.ExpectQuery(`share_links`).WithArgs(f.ID).
		WillReturnRows(sqlmock.NewRows(shareLinkColumns))
	mock.ExpectQuery(`file_recipients`).WithArgs(f.ID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	got, err := repo.GetByID(context.Background(), f.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FolderID)
	assert.Equal(t, "folder-1", *got.FolderID)
	require.NotNil(t, got.LastAccessedAt)
	require.NotNil(t, got.DeletedAt)
	require.NotNil(t, got.DeletedBy)
	assert.True(t, got.IsDeleted())
	assert.Empty(t, got.Versions)
	assert.NotNil(t, got.ShareLinks)
	assert.NotNil(t, got.SharedWith)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_List_BuildsFilters(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now().UTC()
	f := sampleFile(now)

	filter := models.ListFilter{
		FolderID: common.RootFolder,
		Search:   "50%_off",
		MimeType: "PDF",
		SortBy:   models.SortName,
		Desc:     false,
		Page:     2,
		Limit:    10,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM files WHERE user_id = $1 AND deleted_at IS NULL AND folder_id IS NULL AND name ILIKE $2 ESCAPE '\' AND mime_type ILIKE $3 ESCAPE '\'`)).
		WithArgs("u1", `%50\%\_off%`, "%PDF%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(11)))
	mock.ExpectQuery(`(?s)ORDER BY name ASC NULLS LAST, id ASC LIMIT \$4 OFFSET \$5$`).
		WithArgs("u1", `%50\%\_off%`, "%PDF%", 10, 10).
		WillReturnRows(sqlmock.NewRows(fileRowColumns).AddRow(fileRow(f)...))

	got, total, err := repo.List(context.Background(), "u1", filter)
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
	require.Len(t, got, 1)
	assert.Equal(t, f.ID, got[0].ID)
	assert.Nil(t, got[0].Versions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_List_DefaultsAndFolder(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM files WHERE user_id = $1 AND deleted_at IS NULL AND folder_id = $2`)).
		WithArgs("u1", "f1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`(?s)ORDER BY created_at DESC NULLS LAST, id DESC LIMIT \$3 OFFSET \$4$`).
		WithArgs("u1", "f1", models.DefaultPageLimit, 0).
		WillReturnRows(sqlmock.NewRows(fileRowColumns))

	got, total, err := repo.List(context.Background(), "u1", models.ListFilter{FolderID: "f1", SortBy: "bogus", Desc: true})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListDeleted(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now().UTC()
	f := sampleFile(now)
	row := fileRow(f)
	row[13] = now
	row[14] = "u1"

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM files WHERE user_id = \$1 AND deleted_at IS NOT NULL`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`(?s)deleted_at IS NOT NULL\s+ORDER BY deleted_at DESC, id DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("u1", 5, 5).
		WillReturnRows(sqlmock.NewRows(fileRowColumns).AddRow(row...))

	got, total, err := repo.ListDeleted(context.Background(), "u1", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsDeleted())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_RecordAccess(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	at := time.Now().UTC()

	mock.ExpectExec(`(?s)^UPDATE\s+files\s+SET\s+downloads\s*=\s*downloads\s*\+\s*1`).
		WithArgs("id1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordAccess(context.Background(), "id1", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SetDeleted(t *testing.T) {
	now := time.Now().UTC()
	by := "u1"

	tests := []struct {
		name     string
		affected int64
		execErr  error
		wantErr  error
		wantText string
	}{
		{name: "ok", affected: 1},
		{name: "not found", affected: 0, wantErr: common.ErrorNotFound},
		{name: "too many", affected: 2, wantText: "unexpected rows affected"},
		{name: "exec error", execErr: errors.New("boom"), wantText: "failed to set deleted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := newRepoWithMock(t)
			exp := mock.ExpectExec(`(?s)^UPDATE\s+files\s+SET\s+deleted_at\s*=\s*\$2`).
				WithArgs("id1", now, by)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			err := repo.SetDeleted(context.Background(), "id1", &now, &by)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantText)
			default:
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_SetDeleted_ClearsMarkers(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE\s+files\s+SET\s+deleted_at`).
		WithArgs("id1", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetDeleted(context.Background(), "id1", nil, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_AddVersion(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now().UTC()
	v := models.FileVersion{Version: 2, BlobKey: "k2", Size: 7, CreatedAt: now, CreatedBy: "u1"}

	mock.ExpectExec(`INSERT\s+INTO\s+file_versions`).
		WithArgs("id1", 2, "k2", int64(7), now, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)UPDATE\s+files\s+SET\s+blob_key\s*=\s*\$2`).
		WithArgs("id1", "k2", int64(7), "iv2", "sum2", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddVersion(context.Background(), "id1", v, "iv2", "sum2", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_AddShareLink(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now().UTC()
	l := &models.ShareLink{
		Token: "tok", FileID: "id1", CreatedBy: "u1", Permission: models.PermissionEdit,
		CreatedAt: now,
	}

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+share_links\b`).
		WithArgs("tok", "id1", "u1", "edit", nil, nil, `[]`, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddShareLink(context.Background(), l))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetShareLink(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`(?s)FROM\s+share_links\s+WHERE\s+token\s*=\s*\$1`).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows(shareLinkColumns).
			AddRow("tok", "id1", "u1", "view", nil, nil, []byte(`[]`), now))

	l, err := repo.GetShareLink(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "id1", l.FileID)
	assert.False(t, l.HasPassword())
	assert.Nil(t, l.ExpiresAt)
	assert.Empty(t, l.Emails)

	mock.ExpectQuery(`share_links`).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetShareLink(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Recipients(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+file_recipients.+ON\s+CONFLICT`).
		WithArgs("id1", "u2", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE\s+FROM\s+file_recipients`).
		WithArgs("id1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddRecipient(context.Background(), "id1", "u2", now))
	require.NoError(t, repo.RemoveRecipient(context.Background(), "id1", "u2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SumActiveSize(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)SELECT\s+COALESCE\(SUM\(size\),\s*0\)\s+FROM\s+files\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+deleted_at\s+IS\s+NULL`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(1234)))

	total, err := repo.SumActiveSize(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UsageByMimeType(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)GROUP\s+BY\s+mime_type`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"mime_type", "sum", "count"}).
			AddRow("image/png", int64(10), int64(2)).
			AddRow("text/plain", int64(3), int64(1)))

	got, err := repo.UsageByMimeType(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.MimeUsage{
		{MimeType: "image/png", Size: 10, Count: 2},
		{MimeType: "text/plain", Size: 3, Count: 1},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
	assert.Equal(t, `%100\%%`, likePattern(`100%`))
	assert.Equal(t, `%x\_y%`, likePattern(`x_y`))
}

func TestPostgresRepository_LatestVersion(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT\s+id\s+FROM\s+files\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE`).
		WithArgs("id1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("id1"))
	mock.ExpectQuery(`SELECT\s+COALESCE\(MAX\(version\),\s*0\)\s+FROM\s+file_versions`).
		WithArgs("id1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(3))

	latest, err := repo.LatestVersion(context.Background(), "id1")
	require.NoError(t, err)
	assert.Equal(t, 3, latest)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_LatestVersion_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FOR\s+UPDATE`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.LatestVersion(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
