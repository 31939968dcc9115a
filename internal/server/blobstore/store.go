// Package blobstore persists opaque encrypted payloads by key.
//
// Get reports common.ErrorNotFound for a missing key; every other backend
// failure wraps common.ErrStorage. Calls are not retried.
package blobstore

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/filevault/internal/common"
)

// Metadata keys attached to every blob.
const (
	MetaUserID       = "user-id"
	MetaOriginalName = "original-name"
	MetaEncryptionIV = "encryption-iv"
)

// ContentType is the content type of stored ciphertext.
const ContentType = "application/octet-stream"

type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// NewMetadata builds the blob metadata. The original name is URL-escaped
// since object-store headers are restricted to ASCII.
func NewMetadata(userID, originalName, iv string) map[string]string {
	return map[string]string{
		MetaUserID:       userID,
		MetaOriginalName: url.QueryEscape(originalName),
		MetaEncryptionIV: iv,
	}
}

func storageError(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", common.ErrStorage, op, key, err)
}
