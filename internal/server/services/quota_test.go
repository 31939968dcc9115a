package services

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/blobstore"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaLedger_AdmitsUpToLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := NewQuotaLedger(f.store)

	f.upload(t, owner, "a.txt", bytes.Repeat([]byte("a"), 90))

	usage, err := q.CurrentUsage(ctx, owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), usage)

	ok, err := q.CanAdmit(ctx, owner.UserID, 20, 100)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.files.Upload(ctx, owner, UploadInput{Data: bytes.Repeat([]byte("b"), 20), OriginalName: "b.txt"})
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
	assert.Equal(t, 1, f.blobs.Len())

	f.upload(t, owner, "c.txt", bytes.Repeat([]byte("c"), 10))
	usage, err = q.CurrentUsage(ctx, owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), usage)
}

func TestQuotaLedger_DefaultQuotaWhenUnset(t *testing.T) {
	f := newFixture(t)
	id := owner
	id.StorageQuota = 0

	summary, err := f.files.StorageUsageSummary(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, common.DefaultStorageQuota, summary.Quota)
}

func TestQuotaLedger_DeletedFilesAreFree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.upload(t, owner, "a.txt", bytes.Repeat([]byte("a"), 90))
	require.NoError(t, f.files.SoftDelete(ctx, rec.ID, owner.UserID))

	usage, err := f.files.quota.CurrentUsage(ctx, owner.UserID)
	require.NoError(t, err)
	assert.Zero(t, usage)

	f.upload(t, owner, "b.txt", bytes.Repeat([]byte("b"), 100))
}

// barrierBlobs holds every Put until n of them have arrived.
type barrierBlobs struct {
	*blobstore.MemoryStore
	arrived sync.WaitGroup
}

func (b *barrierBlobs) Put(ctx context.Context, key string, data []byte, ct string, meta map[string]string) error {
	b.arrived.Done()
	b.arrived.Wait()
	return b.MemoryStore.Put(ctx, key, data, ct, meta)
}

// Admission is best-effort: uploads that pass the check before either
// record exists can jointly overshoot the quota.
func TestQuotaLedger_ConcurrentAdmissionCanOvershoot(t *testing.T) {
	store := repomanager.NewInMemoryStore()
	blobs := &barrierBlobs{MemoryStore: blobstore.NewMemoryStore()}
	f := newFixtureWith(t, store, blobs)
	ctx := context.Background()

	blobs.arrived.Add(1)
	f.upload(t, owner, "base.txt", bytes.Repeat([]byte("x"), 90))

	blobs.arrived.Add(2)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.files.Upload(ctx, owner, UploadInput{Data: bytes.Repeat([]byte("y"), 10), OriginalName: "y.txt"})
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	usage, err := f.files.quota.CurrentUsage(ctx, owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(110), usage)
}
