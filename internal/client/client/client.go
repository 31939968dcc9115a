package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filevault/internal/server/models"

	gs "github.com/dmitrijs2005/filevault/internal/server/grpc"
)

// UploadOptions are the optional attributes of a new file.
type UploadOptions struct {
	MimeType string
	FolderID *string
	Tags     []string
}

// ShareOptions configure a new share link.
type ShareOptions struct {
	Permission string
	ExpiresAt  *time.Time
	Password   string
	Emails     []string
}

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Upload(ctx context.Context, name string, data []byte, opts UploadOptions) (*models.FileRecord, error)
	UploadVersion(ctx context.Context, fileID string, data []byte) (*models.FileRecord, error)
	Download(ctx context.Context, fileID string) (*models.FileRecord, []byte, error)
	GetMetadata(ctx context.Context, fileID string) (*models.FileRecord, error)
	List(ctx context.Context, req gs.ListRequest) (*models.FilePage, error)
	ListTrash(ctx context.Context, page, limit int) (*models.FilePage, error)
	Delete(ctx context.Context, fileID string) error
	Restore(ctx context.Context, fileID string) (*models.FileRecord, error)
	StorageUsage(ctx context.Context) (*models.UsageSummary, error)
	CreateShareLink(ctx context.Context, fileID string, opts ShareOptions) (*gs.CreateShareLinkResponse, error)
	OpenShareLink(ctx context.Context, token, password, email string) (*gs.OpenShareLinkResponse, error)
	GrantAccess(ctx context.Context, fileID, userID string) error
	RevokeAccess(ctx context.Context, fileID, userID string) error
}
