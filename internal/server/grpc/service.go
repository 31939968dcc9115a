package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "filevault.FileService"

// FileServiceServer is the server API of filevault.FileService.
type FileServiceServer interface {
	Upload(context.Context, *UploadRequest) (*FileResponse, error)
	UploadVersion(context.Context, *UploadVersionRequest) (*FileResponse, error)
	Download(context.Context, *FileRequest) (*DownloadResponse, error)
	GetMetadata(context.Context, *FileRequest) (*FileResponse, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	ListTrash(context.Context, *ListTrashRequest) (*ListResponse, error)
	Delete(context.Context, *FileRequest) (*Empty, error)
	Restore(context.Context, *FileRequest) (*FileResponse, error)
	StorageUsage(context.Context, *StorageUsageRequest) (*StorageUsageResponse, error)
	CreateShareLink(context.Context, *CreateShareLinkRequest) (*CreateShareLinkResponse, error)
	OpenShareLink(context.Context, *OpenShareLinkRequest) (*OpenShareLinkResponse, error)
	GrantAccess(context.Context, *AccessRequest) (*Empty, error)
	RevokeAccess(context.Context, *AccessRequest) (*Empty, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// FullMethod returns the "/service/method" path used on the wire.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](name string, call func(FileServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(FileServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FileServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Upload", FileServiceServer.Upload),
		unary("UploadVersion", FileServiceServer.UploadVersion),
		unary("Download", FileServiceServer.Download),
		unary("GetMetadata", FileServiceServer.GetMetadata),
		unary("List", FileServiceServer.List),
		unary("ListTrash", FileServiceServer.ListTrash),
		unary("Delete", FileServiceServer.Delete),
		unary("Restore", FileServiceServer.Restore),
		unary("StorageUsage", FileServiceServer.StorageUsage),
		unary("CreateShareLink", FileServiceServer.CreateShareLink),
		unary("OpenShareLink", FileServiceServer.OpenShareLink),
		unary("GrantAccess", FileServiceServer.GrantAccess),
		unary("RevokeAccess", FileServiceServer.RevokeAccess),
		unary("Ping", FileServiceServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "filevault/file_service",
}

// RegisterFileServiceServer registers srv on s.
func RegisterFileServiceServer(s grpc.ServiceRegistrar, srv FileServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
