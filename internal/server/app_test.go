package server

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.DatabaseDSN = ""
	c.BlobBackend = config.BlobBackendMemory
	c.EncryptionKeyHex = strings.Repeat("0f", 32)
	return c
}

func TestNewApp_MemoryBackends(t *testing.T) {
	app, err := newApp(context.Background(), memoryConfig(), logging.Nop{})
	require.NoError(t, err)
	assert.NotNil(t, app.fileService)
	assert.NotNil(t, app.shareService)
	assert.Empty(t, app.closers)
}

func TestNewApp_RejectsBadEncryptionKey(t *testing.T) {
	c := memoryConfig()
	c.EncryptionKeyHex = "deadbeef"

	_, err := newApp(context.Background(), c, logging.Nop{})
	assert.ErrorContains(t, err, "encryption key")
}

func TestNewApp_UnknownBlobBackend(t *testing.T) {
	c := memoryConfig()
	c.BlobBackend = "floppy"

	_, err := newApp(context.Background(), c, logging.Nop{})
	assert.ErrorContains(t, err, `unknown blob backend "floppy"`)
}

func TestNewBlobStore_Memory(t *testing.T) {
	c := memoryConfig()
	c.BlobBackend = "MEMORY"

	s, err := newBlobStore(context.Background(), c)
	require.NoError(t, err)
	assert.IsType(t, &blobstore.MemoryStore{}, s)
}

func TestNewApp_RedisPublisherRegistersClosers(t *testing.T) {
	c := memoryConfig()
	c.RedisAddr = "127.0.0.1:1"

	app, err := newApp(context.Background(), c, logging.Nop{})
	require.NoError(t, err)
	assert.Len(t, app.closers, 2)

	app.Close()
	assert.Empty(t, app.closers)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	app, err := newApp(context.Background(), memoryConfig(), logging.Nop{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
}
