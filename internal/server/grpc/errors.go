package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/filevault/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{common.ErrQuotaExceeded, codes.ResourceExhausted},
	{common.ErrorNotFound, codes.NotFound},
	{common.ErrAccessDenied, codes.PermissionDenied},
	{common.ErrEmailNotAllowed, codes.PermissionDenied},
	{common.ErrIntegrityOrKey, codes.DataLoss},
	{common.ErrStorage, codes.Unavailable},
	{common.ErrShareLinkExpired, codes.FailedPrecondition},
	{common.ErrWrongPassword, codes.Unauthenticated},
	{common.ErrorUnauthorized, codes.Unauthenticated},
	{common.ErrInvalidToken, codes.Unauthenticated},
	{common.ErrTokenExpired, codes.Unauthenticated},
	{common.ErrInvalidArgument, codes.InvalidArgument},
	{context.Canceled, codes.Canceled},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
}

// toStatus maps a service error to a gRPC status. Only the sentinel text
// leaves the server; wrapped details are logged by the caller.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return status.Error(e.code, e.err.Error())
		}
	}
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}
