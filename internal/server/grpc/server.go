package grpc

import (
	"context"
	"math"
	"net"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/services"
	"google.golang.org/grpc"
)

// GRPCServer serves filevault.FileService. defaultQuota replaces a
// missing quota claim.
type GRPCServer struct {
	address      string
	files        *services.FileService
	share        *services.ShareService
	logger       logging.Logger
	jwtSecret    []byte
	defaultQuota int64
}

var _ FileServiceServer = (*GRPCServer)(nil)

// envelopeOverhead covers the JSON fields around the file bytes.
const envelopeOverhead = 1 << 20

// MessageLimit returns the gRPC message size needed to carry a file of
// maxFileSize bytes, which travels base64-encoded inside JSON.
func MessageLimit(maxFileSize int64) int {
	n := (maxFileSize+2)/3*4 + envelopeOverhead
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

func NewGRPCServer(a string, l logging.Logger, fs *services.FileService, ss *services.ShareService, secretKey string, defaultQuota int64) *GRPCServer {
	return &GRPCServer{
		address:      a,
		logger:       l.With("module", "grpc_server"),
		files:        fs,
		share:        ss,
		jwtSecret:    []byte(secretKey),
		defaultQuota: defaultQuota,
	}
}

// newServer builds the gRPC server with the service and interceptors registered.
func (s *GRPCServer) newServer() *grpc.Server {
	limit := MessageLimit(s.files.MaxFileSize())
	srv := grpc.NewServer(
		grpc.ForceServerCodec(Codec{}),
		grpc.MaxRecvMsgSize(limit),
		grpc.MaxSendMsgSize(limit),
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
	)
	RegisterFileServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on l until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, l net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", l.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(l); err != nil {
		return err
	}

	return nil
}
