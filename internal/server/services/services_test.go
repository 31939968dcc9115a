package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/cryptox"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/mailer"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type event struct {
	userID, name string
	payload      any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event
}

func (p *recordingPublisher) Publish(_ context.Context, userID, name string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event{userID: userID, name: name, payload: payload})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.name
	}
	return out
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

type failingBlobs struct {
	blobstore.Store
	putErr error
}

func (f failingBlobs) Put(context.Context, string, []byte, string, map[string]string) error {
	return f.putErr
}

type failingTxStore struct {
	*repomanager.InMemoryStore
	err error
}

func (s failingTxStore) WithinTx(context.Context, func(context.Context, files.Repository) error) error {
	return s.err
}

type fixture struct {
	store  repomanager.Store
	blobs  *blobstore.MemoryStore
	events *recordingPublisher
	mail   *recordingMailer
	files  *FileService
	share  *ShareService
}

func newEnvelope(t *testing.T) *cryptox.Envelope {
	t.Helper()
	env, err := cryptox.NewEnvelope(common.GenerateRandByteArray(cryptox.KeySize))
	require.NoError(t, err)
	return env
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, repomanager.NewInMemoryStore(), nil)
}

func newFixtureWith(t *testing.T, store repomanager.Store, blobs blobstore.Store) *fixture {
	t.Helper()
	mem := blobstore.NewMemoryStore()
	if blobs == nil {
		blobs = mem
	}
	f := &fixture{store: store, blobs: mem, events: &recordingPublisher{}, mail: &recordingMailer{}}
	f.files = NewFileService(store, blobs, newEnvelope(t), NewQuotaLedger(store), f.events, logging.Nop{})
	f.files.now = func() time.Time { return fixedNow }
	f.share = NewShareService(f.files, f.mail, "https://vault.example.com/", logging.Nop{})
	return f
}

func (f *fixture) upload(t *testing.T, id models.Identity, name string, data []byte) *models.FileRecord {
	t.Helper()
	rec, err := f.files.Upload(context.Background(), id, UploadInput{Data: data, OriginalName: name, MimeType: "text/plain"})
	require.NoError(t, err)
	return rec
}

var (
	owner    = models.Identity{UserID: "owner", StorageQuota: 100, FirstName: "Olga", Email: "olga@example.com"}
	stranger = models.Identity{UserID: "stranger", StorageQuota: 100}
	friend   = models.Identity{UserID: "friend", StorageQuota: 100}
)

var errBoom = errors.New("boom")
