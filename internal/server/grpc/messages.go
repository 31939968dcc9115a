package grpc

import (
	"time"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type UploadRequest struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	FolderID *string  `json:"folderId,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Data     []byte   `json:"data"`
}

type UploadVersionRequest struct {
	FileID string `json:"fileId"`
	Data   []byte `json:"data"`
}

// FileRequest addresses a single file by id.
type FileRequest struct {
	FileID string `json:"fileId"`
}

type FileResponse struct {
	File *models.FileRecord `json:"file"`
}

type DownloadResponse struct {
	File *models.FileRecord `json:"file"`
	Data []byte             `json:"data"`
}

type ListRequest struct {
	FolderID string `json:"folderId,omitempty"`
	Search   string `json:"search,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	SortBy   string `json:"sortBy,omitempty"`
	Order    string `json:"order,omitempty"`
	Page     int    `json:"page,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type ListTrashRequest struct {
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

type ListResponse struct {
	*models.FilePage
}

type StorageUsageRequest struct{}

type StorageUsageResponse struct {
	*models.UsageSummary
}

type CreateShareLinkRequest struct {
	FileID     string     `json:"fileId"`
	Permission string     `json:"permissions,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Password   string     `json:"password,omitempty"`
	Emails     []string   `json:"emails,omitempty"`
}

type CreateShareLinkResponse struct {
	Token    string `json:"token"`
	ShareURL string `json:"shareUrl"`
}

type OpenShareLinkRequest struct {
	Token    string `json:"token"`
	Password string `json:"password,omitempty"`
	Email    string `json:"email,omitempty"`
}

// SharedFile is the part of a record a share-link visitor may see.
type SharedFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
}

type OpenShareLinkResponse struct {
	File       SharedFile `json:"file"`
	Permission string     `json:"permissions"`
	Data       []byte     `json:"data"`
}

type AccessRequest struct {
	FileID string `json:"fileId"`
	UserID string `json:"userId"`
}

type Empty struct{}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
