package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// caller returns the authenticated identity or an Unauthenticated status.
func caller(ctx context.Context) (models.Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return models.Identity{}, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return id, nil
}

// fail logs unexpected failures and converts err to a gRPC status.
func (s *GRPCServer) fail(ctx context.Context, method string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal || errors.Is(err, common.ErrStorage) || errors.Is(err, common.ErrIntegrityOrKey) {
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
	} else {
		s.logger.Debug(ctx, "request rejected", "method", method, "error", err)
	}
	return st
}

// visible hides the share links of a record from everyone but its owner.
func visible(rec *models.FileRecord, userID string) *models.FileRecord {
	if rec == nil || rec.IsOwner(userID) {
		return rec
	}
	c := rec.Clone()
	c.ShareLinks = []models.ShareLink{}
	return c
}

func (s *GRPCServer) Upload(ctx context.Context, req *UploadRequest) (*FileResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.files.Upload(ctx, id, services.UploadInput{
		Data:         req.Data,
		OriginalName: req.Name,
		MimeType:     req.MimeType,
		FolderID:     req.FolderID,
		Tags:         req.Tags,
	})
	if err != nil {
		return nil, s.fail(ctx, "Upload", err)
	}

	s.logger.Info(ctx, "File uploaded", "file_id", rec.ID, "size", rec.Size)
	return &FileResponse{File: rec}, nil
}

func (s *GRPCServer) UploadVersion(ctx context.Context, req *UploadVersionRequest) (*FileResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.files.UploadVersion(ctx, id, req.FileID, req.Data)
	if err != nil {
		return nil, s.fail(ctx, "UploadVersion", err)
	}

	return &FileResponse{File: rec}, nil
}

func (s *GRPCServer) Download(ctx context.Context, req *FileRequest) (*DownloadResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	d, err := s.files.Download(ctx, req.FileID, id.UserID)
	if err != nil {
		return nil, s.fail(ctx, "Download", err)
	}

	return &DownloadResponse{File: visible(d.File, id.UserID), Data: d.Data}, nil
}

func (s *GRPCServer) GetMetadata(ctx context.Context, req *FileRequest) (*FileResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.files.GetMetadata(ctx, req.FileID, id.UserID)
	if err != nil {
		return nil, s.fail(ctx, "GetMetadata", err)
	}

	return &FileResponse{File: visible(rec, id.UserID)}, nil
}

func (s *GRPCServer) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.files.List(ctx, id.UserID, models.ListFilter{
		FolderID: req.FolderID,
		Search:   req.Search,
		MimeType: req.MimeType,
		SortBy:   models.SortKey(req.SortBy),
		Desc:     models.ParseOrder(req.Order),
		Page:     req.Page,
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, s.fail(ctx, "List", err)
	}

	return &ListResponse{FilePage: page}, nil
}

func (s *GRPCServer) ListTrash(ctx context.Context, req *ListTrashRequest) (*ListResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.files.ListTrash(ctx, id.UserID, req.Page, req.Limit)
	if err != nil {
		return nil, s.fail(ctx, "ListTrash", err)
	}

	return &ListResponse{FilePage: page}, nil
}

func (s *GRPCServer) Delete(ctx context.Context, req *FileRequest) (*Empty, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.files.SoftDelete(ctx, req.FileID, id.UserID); err != nil {
		return nil, s.fail(ctx, "Delete", err)
	}

	return &Empty{}, nil
}

func (s *GRPCServer) Restore(ctx context.Context, req *FileRequest) (*FileResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.files.Restore(ctx, req.FileID, id.UserID)
	if err != nil {
		return nil, s.fail(ctx, "Restore", err)
	}

	return &FileResponse{File: rec}, nil
}

func (s *GRPCServer) StorageUsage(ctx context.Context, _ *StorageUsageRequest) (*StorageUsageResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	usage, err := s.files.StorageUsageSummary(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "StorageUsage", err)
	}

	return &StorageUsageResponse{UsageSummary: usage}, nil
}

func (s *GRPCServer) CreateShareLink(ctx context.Context, req *CreateShareLinkRequest) (*CreateShareLinkResponse, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.share.CreateShareLink(ctx, id, req.FileID, services.ShareLinkInput{
		Permission: models.Permission(req.Permission),
		ExpiresAt:  req.ExpiresAt,
		Password:   req.Password,
		Emails:     req.Emails,
	})
	if err != nil {
		return nil, s.fail(ctx, "CreateShareLink", err)
	}

	return &CreateShareLinkResponse{Token: res.Token, ShareURL: res.ShareURL}, nil
}

func (s *GRPCServer) OpenShareLink(ctx context.Context, req *OpenShareLinkRequest) (*OpenShareLinkResponse, error) {
	d, err := s.share.OpenShareLink(ctx, req.Token, req.Password, req.Email)
	if err != nil {
		return nil, s.fail(ctx, "OpenShareLink", err)
	}

	return &OpenShareLinkResponse{
		File:       NewSharedFile(d.File),
		Permission: string(d.Permission),
		Data:       d.Data,
	}, nil
}

func (s *GRPCServer) GrantAccess(ctx context.Context, req *AccessRequest) (*Empty, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.files.GrantAccess(ctx, req.FileID, id.UserID, req.UserID); err != nil {
		return nil, s.fail(ctx, "GrantAccess", err)
	}

	return &Empty{}, nil
}

func (s *GRPCServer) RevokeAccess(ctx context.Context, req *AccessRequest) (*Empty, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.files.RevokeAccess(ctx, req.FileID, id.UserID, req.UserID); err != nil {
		return nil, s.fail(ctx, "RevokeAccess", err)
	}

	return &Empty{}, nil
}

func (s *GRPCServer) Ping(_ context.Context, _ *PingRequest) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

// NewSharedFile projects rec onto the fields a link visitor may see.
func NewSharedFile(rec *models.FileRecord) SharedFile {
	return SharedFile{
		ID:           rec.ID,
		Name:         rec.Name,
		OriginalName: rec.OriginalName,
		MimeType:     rec.MimeType,
		Size:         rec.Size,
	}
}
