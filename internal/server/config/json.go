package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filevault/internal/flagx"
	"github.com/dmitrijs2005/filevault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. Fields left out of the file keep their current value.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 *string        `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	EncryptionKeyHex            string         `json:"encryption_key"`
	DefaultStorageQuota         int64          `json:"default_storage_quota"`
	MaxFileSize                 int64          `json:"max_file_size"`
	AppURL                      string         `json:"app_url"`
	BlobBackend                 string         `json:"blob_backend"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	MinioEndpoint               string         `json:"minio_endpoint"`
	MinioUseSSL                 *bool          `json:"minio_use_ssl"`
	RedisAddr                   string         `json:"redis_addr"`
	RedisPassword               string         `json:"redis_password"`
	MailAPIKey                  string         `json:"mail_api_key"`
	MailAPIURL                  string         `json:"mail_api_url"`
	MailFrom                    string         `json:"mail_from"`
	LogLevel                    string         `json:"log_level"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; without
// them no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
//
// database_dsn is a pointer so that an explicit "" can select the
// in-memory store.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	overlay(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	overlay(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration.Duration)
	overlay(&config.EncryptionKeyHex, c.EncryptionKeyHex)
	overlay(&config.DefaultStorageQuota, c.DefaultStorageQuota)
	overlay(&config.MaxFileSize, c.MaxFileSize)
	overlay(&config.AppURL, c.AppURL)
	overlay(&config.BlobBackend, c.BlobBackend)
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.MinioEndpoint, c.MinioEndpoint)
	if c.MinioUseSSL != nil {
		config.MinioUseSSL = *c.MinioUseSSL
	}
	overlay(&config.RedisAddr, c.RedisAddr)
	overlay(&config.RedisPassword, c.RedisPassword)
	overlay(&config.MailAPIKey, c.MailAPIKey)
	overlay(&config.MailAPIURL, c.MailAPIURL)
	overlay(&config.MailFrom, c.MailFrom)
	overlay(&config.LogLevel, c.LogLevel)
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
