package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	gs "github.com/dmitrijs2005/filevault/internal/server/grpc"
)

const defaultTimeout = 30 * time.Second

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	accessToken string
	timeout     time.Duration
	dialOpts    []grpc.DialOption
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewFileVaultClient connects to endpointURL. accessToken may be empty for
// the public methods. Extra dial options are appended after the defaults.
func NewFileVaultClient(endpointURL, accessToken string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken, timeout: timeout, dialOpts: opts}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// WithMaxFileSize sizes the per-call message limits for files up to n bytes.
// It should match the server's limit. n <= 0 selects the default.
func WithMaxFileSize(n int64) grpc.DialOption {
	if n <= 0 {
		n = common.DefaultMaxFileSize
	}
	limit := gs.MessageLimit(n)
	return grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(limit), grpc.MaxCallSendMsgSize(limit))
}

func (s *GRPCClient) InitGRPCClient() error {

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(gs.Codec{})),
		WithMaxFileSize(common.DefaultMaxFileSize),
	}, s.dialOpts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) invoke(ctx context.Context, method string, req, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.conn.Invoke(ctx, gs.FullMethod(method), req, resp); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	resp := &gs.PingResponse{}
	if err := s.invoke(ctx, "Ping", &gs.PingRequest{}, resp); err != nil {
		return err
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil

}

func (s *GRPCClient) Upload(ctx context.Context, name string, data []byte, opts UploadOptions) (*models.FileRecord, error) {
	req := &gs.UploadRequest{Name: name, MimeType: opts.MimeType, FolderID: opts.FolderID, Tags: opts.Tags, Data: data}

	resp := &gs.FileResponse{}
	if err := s.invoke(ctx, "Upload", req, resp); err != nil {
		return nil, err
	}
	return resp.File, nil
}

func (s *GRPCClient) UploadVersion(ctx context.Context, fileID string, data []byte) (*models.FileRecord, error) {
	resp := &gs.FileResponse{}
	if err := s.invoke(ctx, "UploadVersion", &gs.UploadVersionRequest{FileID: fileID, Data: data}, resp); err != nil {
		return nil, err
	}
	return resp.File, nil
}

func (s *GRPCClient) Download(ctx context.Context, fileID string) (*models.FileRecord, []byte, error) {
	resp := &gs.DownloadResponse{}
	if err := s.invoke(ctx, "Download", &gs.FileRequest{FileID: fileID}, resp); err != nil {
		return nil, nil, err
	}
	return resp.File, resp.Data, nil
}

func (s *GRPCClient) GetMetadata(ctx context.Context, fileID string) (*models.FileRecord, error) {
	resp := &gs.FileResponse{}
	if err := s.invoke(ctx, "GetMetadata", &gs.FileRequest{FileID: fileID}, resp); err != nil {
		return nil, err
	}
	return resp.File, nil
}

func (s *GRPCClient) List(ctx context.Context, req gs.ListRequest) (*models.FilePage, error) {
	resp := &gs.ListResponse{}
	if err := s.invoke(ctx, "List", &req, resp); err != nil {
		return nil, err
	}
	return resp.FilePage, nil
}

func (s *GRPCClient) ListTrash(ctx context.Context, page, limit int) (*models.FilePage, error) {
	resp := &gs.ListResponse{}
	if err := s.invoke(ctx, "ListTrash", &gs.ListTrashRequest{Page: page, Limit: limit}, resp); err != nil {
		return nil, err
	}
	return resp.FilePage, nil
}

func (s *GRPCClient) Delete(ctx context.Context, fileID string) error {
	return s.invoke(ctx, "Delete", &gs.FileRequest{FileID: fileID}, &gs.Empty{})
}

func (s *GRPCClient) Restore(ctx context.Context, fileID string) (*models.FileRecord, error) {
	resp := &gs.FileResponse{}
	if err := s.invoke(ctx, "Restore", &gs.FileRequest{FileID: fileID}, resp); err != nil {
		return nil, err
	}
	return resp.File, nil
}

func (s *GRPCClient) StorageUsage(ctx context.Context) (*models.UsageSummary, error) {
	resp := &gs.StorageUsageResponse{}
	if err := s.invoke(ctx, "StorageUsage", &gs.StorageUsageRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.UsageSummary, nil
}

func (s *GRPCClient) CreateShareLink(ctx context.Context, fileID string, opts ShareOptions) (*gs.CreateShareLinkResponse, error) {
	req := &gs.CreateShareLinkRequest{
		FileID:     fileID,
		Permission: opts.Permission,
		ExpiresAt:  opts.ExpiresAt,
		Password:   opts.Password,
		Emails:     opts.Emails,
	}

	resp := &gs.CreateShareLinkResponse{}
	if err := s.invoke(ctx, "CreateShareLink", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) OpenShareLink(ctx context.Context, token, password, email string) (*gs.OpenShareLinkResponse, error) {
	resp := &gs.OpenShareLinkResponse{}
	if err := s.invoke(ctx, "OpenShareLink", &gs.OpenShareLinkRequest{Token: token, Password: password, Email: email}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) GrantAccess(ctx context.Context, fileID, userID string) error {
	return s.invoke(ctx, "GrantAccess", &gs.AccessRequest{FileID: fileID, UserID: userID}, &gs.Empty{})
}

func (s *GRPCClient) RevokeAccess(ctx context.Context, fileID, userID string) error {
	return s.invoke(ctx, "RevokeAccess", &gs.AccessRequest{FileID: fileID, UserID: userID}, &gs.Empty{})
}

// mapError turns a gRPC status back into the sentinel the server started from.
func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	var sentinel error
	switch st.Code() {
	case codes.Unauthenticated:
		if st.Message() == common.ErrWrongPassword.Error() {
			sentinel = common.ErrWrongPassword
		} else {
			sentinel = ErrUnauthorized
		}
	case codes.PermissionDenied:
		if st.Message() == common.ErrEmailNotAllowed.Error() {
			sentinel = common.ErrEmailNotAllowed
		} else {
			sentinel = common.ErrAccessDenied
		}
	case codes.NotFound:
		sentinel = common.ErrorNotFound
	case codes.ResourceExhausted:
		sentinel = common.ErrQuotaExceeded
	case codes.DataLoss:
		sentinel = common.ErrIntegrityOrKey
	case codes.FailedPrecondition:
		sentinel = common.ErrShareLinkExpired
	case codes.InvalidArgument:
		sentinel = common.ErrInvalidArgument
	case codes.Unavailable, codes.DeadlineExceeded:
		sentinel = ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
	return fmt.Errorf("%w: %s", sentinel, st.Message())
}
