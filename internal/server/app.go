// Package server initializes and runs the file vault server.
// It wires the record store, blob store, event bus and mailer into the
// file and share services, and starts the gRPC and HTTP endpoints.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/config"
	"github.com/dmitrijs2005/filevault/internal/server/httpapi"
	"github.com/dmitrijs2005/filevault/internal/server/mailer"
	"github.com/dmitrijs2005/filevault/internal/server/notify"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filevault/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/filevault/internal/server/grpc"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	fileService  *services.FileService
	shareService *services.ShareService
	closers      []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, logging.NewJSONLogger(os.Stdout, c.LogLevel))
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger}

	key, err := c.EncryptionKey()
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	envelope, err := cryptox.NewEnvelope(key)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	store, err := app.openStore(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	events := app.newPublisher()

	var mail mailer.Sender = mailer.NewLogSender(logger)
	if c.MailAPIKey != "" {
		mail = mailer.NewResendSender(mailer.ResendConfig{
			APIKey: c.MailAPIKey,
			APIURL: c.MailAPIURL,
			From:   c.MailFrom,
		}, &http.Client{Timeout: 10 * time.Second})
	}

	app.fileService = services.NewFileService(store, blobs, envelope, services.NewQuotaLedger(store), events, logger)
	app.fileService.SetMaxFileSize(c.MaxFileSize)
	app.shareService = services.NewShareService(app.fileService, mail, c.AppURL, logger)

	return app, nil
}

// openStore connects to Postgres and migrates it, or falls back to the
// in-memory store when no DSN is configured.
func (app *App) openStore(ctx context.Context) (repomanager.Store, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "No database DSN, using in-memory record store")
		return repomanager.NewInMemoryStore(), nil
	}

	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, db.Close)

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	return repomanager.NewPostgresStore(db, rm), nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	switch strings.ToLower(c.BlobBackend) {
	case config.BlobBackendS3:
		return blobstore.NewS3StoreFromConfig(ctx, blobstore.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	case config.BlobBackendMinio:
		return blobstore.NewMinioStoreFromConfig(ctx, blobstore.MinioConfig{
			Endpoint:  c.MinioEndpoint,
			AccessKey: c.S3RootUser,
			SecretKey: c.S3RootPassword,
			UseSSL:    c.MinioUseSSL,
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
		})
	case config.BlobBackendMemory:
		return blobstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

func (app *App) newPublisher() notify.Publisher {
	if app.config.RedisAddr == "" {
		return notify.NewLogPublisher(app.logger)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     app.config.RedisAddr,
		Password: app.config.RedisPassword,
	})
	p := notify.NewRedisPublisher(client, app.logger)
	// publisher first so in-flight events drain before the client closes
	app.closers = append(app.closers, client.Close, func() error { p.Close(); return nil })
	return p
}

// Close releases connections in reverse order of acquisition.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(context.Background(), "close", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.fileService, app.shareService,
		app.config.SecretKey, app.config.DefaultStorageQuota)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.shareService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a termination signal arrives or one
// of the servers fails, then releases resources.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.Close()
	app.logger.Info(ctx, "App stopped")
}
