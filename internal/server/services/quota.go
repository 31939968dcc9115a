package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/metrics"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/repomanager"
)

// QuotaLedger admits writes against a per-user byte limit computed from
// active records.
//
// The check is read-then-decide without a lock: two concurrent writes by
// the same user can both pass admission and together exceed the limit.
type QuotaLedger struct {
	store repomanager.Store
}

func NewQuotaLedger(store repomanager.Store) *QuotaLedger {
	return &QuotaLedger{store: store}
}

// CurrentUsage sums size over the user's non-deleted files.
func (q *QuotaLedger) CurrentUsage(ctx context.Context, userID string) (int64, error) {
	usage, err := q.store.Files().SumActiveSize(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("current usage: %w", err)
	}
	return usage, nil
}

// CanAdmit reports whether usage + additional <= limit. additional may be
// negative when a write shrinks a file.
func (q *QuotaLedger) CanAdmit(ctx context.Context, userID string, additional, limit int64) (bool, error) {
	usage, err := q.CurrentUsage(ctx, userID)
	if err != nil {
		return false, err
	}
	return usage+additional <= limit, nil
}

// Admit is CanAdmit returning common.ErrQuotaExceeded on denial.
func (q *QuotaLedger) Admit(ctx context.Context, userID string, additional, limit int64) error {
	ok, err := q.CanAdmit(ctx, userID, additional, limit)
	if err != nil {
		return err
	}
	if !ok {
		metrics.QuotaDenialsTotal.Inc()
		return common.ErrQuotaExceeded
	}
	return nil
}
