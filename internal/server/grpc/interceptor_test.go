package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func interceptorServer() *GRPCServer {
	return &GRPCServer{jwtSecret: []byte(testSecret), defaultQuota: 500}
}

func withToken(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, token))
}

func TestInterceptor_PublicMethodsSkipToken(t *testing.T) {
	s := interceptorServer()

	for _, m := range []string{"Ping", "OpenShareLink"} {
		called := false
		_, err := s.accessTokenInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: FullMethod(m)},
			func(ctx context.Context, req any) (any, error) {
				called = true
				_, ok := IdentityFromContext(ctx)
				assert.False(t, ok)
				return "ok", nil
			})
		require.NoError(t, err, m)
		assert.True(t, called, m)
	}
}

func TestInterceptor_MissingToken(t *testing.T) {
	s := interceptorServer()

	_, err := s.accessTokenInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: FullMethod("List")},
		func(context.Context, any) (any, error) {
			t.Fatal("handler should not be called when token missing")
			return nil, nil
		})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestInterceptor_InvalidToken(t *testing.T) {
	s := interceptorServer()

	other, err := auth.GenerateToken(models.Identity{UserID: "u1"}, []byte("other"), time.Hour)
	require.NoError(t, err)

	for _, token := range []string{"garbage", other} {
		_, err := s.accessTokenInterceptor(withToken(token), nil, &grpc.UnaryServerInfo{FullMethod: FullMethod("List")},
			func(context.Context, any) (any, error) {
				t.Fatal("handler should not be called with invalid token")
				return nil, nil
			})
		st, _ := status.FromError(err)
		assert.Equal(t, codes.Unauthenticated, st.Code())
		assert.Equal(t, "invalid token", st.Message())
	}
}

func TestInterceptor_ValidTokenSetsIdentity(t *testing.T) {
	s := interceptorServer()
	want := models.Identity{UserID: "u1", StorageQuota: 42, FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"}

	token, err := auth.GenerateToken(want, []byte(testSecret), time.Minute)
	require.NoError(t, err)

	resp, err := s.accessTokenInterceptor(withToken(token), "req", &grpc.UnaryServerInfo{FullMethod: FullMethod("Upload")},
		func(ctx context.Context, req any) (any, error) {
			got, ok := IdentityFromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, want, got)
			assert.Equal(t, "req", req)
			return "ok", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestInterceptor_MissingQuotaGetsDefault(t *testing.T) {
	s := interceptorServer()

	token, err := auth.GenerateToken(models.Identity{UserID: "u1"}, []byte(testSecret), time.Minute)
	require.NoError(t, err)

	_, err = s.accessTokenInterceptor(withToken(token), nil, &grpc.UnaryServerInfo{FullMethod: FullMethod("Upload")},
		func(ctx context.Context, _ any) (any, error) {
			got, _ := IdentityFromContext(ctx)
			assert.Equal(t, int64(500), got.StorageQuota)
			return nil, nil
		})
	require.NoError(t, err)
}
