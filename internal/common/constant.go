// Package common contains shared constants, sentinel errors and small helpers
// used across FileVault components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultStorageQuota applies when the verified identity carries no quota (10 GiB).
const DefaultStorageQuota int64 = 10 * 1024 * 1024 * 1024

// DefaultMaxFileSize is the largest accepted upload when none is configured (256 MiB).
const DefaultMaxFileSize int64 = 256 * 1024 * 1024

// RootFolder is the folder filter sentinel selecting files with no folder.
const RootFolder = "root"
