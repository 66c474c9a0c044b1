package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/Kosench/go-url-tracker/internal/errors"
	"github.com/Kosench/go-url-tracker/internal/expiry"
	"github.com/Kosench/go-url-tracker/internal/model"
	"github.com/Kosench/go-url-tracker/internal/repository"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo repository.RecordRepository, clock expiry.Clock, opts ...Option) *RecordService {
	t.Helper()

	calc, err := expiry.NewCalculator(expiry.ModeShort, time.Minute, 0)
	require.NoError(t, err)
	return NewRecordService(repo, calc, clock, zap.NewNop(), opts...)
}

func saveRequest(url string) *model.SaveRecordRequest {
	return &model.SaveRecordRequest{
		URL:            url,
		InputDateTime:  model.NewTimestamp(baseTime),
		ExpireDateTime: model.NewTimestamp(baseTime.Add(time.Minute)),
		ActiveStatus:   model.StatusActive,
	}
}

// conflictingRepo reports an ID conflict for the first n inserts.
type conflictingRepo struct {
	*repository.MemoryRecordRepository
	idConflicts int
	inserts     int
}

func (r *conflictingRepo) Insert(ctx context.Context, record *model.URLRecord) error {
	r.inserts++
	if r.idConflicts > 0 {
		r.idConflicts--
		return apperrors.ErrIDConflict
	}
	return r.MemoryRecordRepository.Insert(ctx, record)
}

var errStoreDown = errors.New("connection refused")

// brokenRepo fails every read and write.
type brokenRepo struct {
	*repository.MemoryRecordRepository
}

func (r *brokenRepo) GetByURL(ctx context.Context, url string) (*model.URLRecord, error) {
	return nil, apperrors.NewStoreError("failed to get record by URL", errStoreDown)
}

func (r *brokenRepo) ListAll(ctx context.Context) ([]model.URLRecord, error) {
	return nil, apperrors.NewStoreError("failed to list records", errStoreDown)
}

func (r *brokenRepo) Update(ctx context.Context, record *model.URLRecord) error {
	return apperrors.NewStoreError("failed to update record", errStoreDown)
}

func (r *brokenRepo) BatchUpdateStatus(ctx context.Context, updates []model.StatusUpdate) (int64, error) {
	return 0, apperrors.NewStoreError("failed to update status", errStoreDown)
}

// racingRepo flips a record's status right before the reconciler's
// compare-and-set, as a concurrent manual update would.
type racingRepo struct {
	*repository.MemoryRecordRepository
	raceOn int64
}

func (r *racingRepo) UpdateStatusIf(ctx context.Context, id int64, expected, status model.ActiveStatus) (bool, error) {
	if id == r.raceOn {
		_, _ = r.MemoryRecordRepository.BatchUpdateStatus(ctx, []model.StatusUpdate{{ID: id, ActiveStatus: status}})
	}
	return r.MemoryRecordRepository.UpdateStatusIf(ctx, id, expected, status)
}

type recordingNotifier struct {
	mu   sync.Mutex
	ids  []int64
	err  error
	wait time.Duration
}

func (n *recordingNotifier) NotifyExpired(ctx context.Context, record *model.URLRecord) error {
	if n.wait > 0 {
		select {
		case <-time.After(n.wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, record.ID)
	return n.err
}

func (n *recordingNotifier) calls() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.ids...)
}
