package repository

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/Kosench/go-url-tracker/internal/errors"
	"github.com/Kosench/go-url-tracker/internal/model"
)

// MemoryRecordRepository хранит записи в памяти процесса с теми же
// ограничениями уникальности, что и таблица url_records. Для локального запуска и тестов.
type MemoryRecordRepository struct {
	mu    sync.RWMutex
	byID  map[int64]*model.URLRecord
	byURL map[string]int64
}

func NewMemoryRecordRepository() *MemoryRecordRepository {
	return &MemoryRecordRepository{
		byID:  make(map[int64]*model.URLRecord),
		byURL: make(map[string]int64),
	}
}

func (r *MemoryRecordRepository) Insert(ctx context.Context, record *model.URLRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[record.ID]; exists {
		return apperrors.ErrIDConflict
	}
	if _, exists := r.byURL[record.URL]; exists {
		return apperrors.ErrURLAlreadyExists
	}

	r.byID[record.ID] = record.Clone()
	r.byURL[record.URL] = record.ID
	return nil
}

func (r *MemoryRecordRepository) GetByID(ctx context.Context, id int64) (*model.URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.byID[id]
	if !exists {
		return nil, fmt.Errorf("record with ID %d: %w", id, apperrors.ErrRecordNotFound)
	}
	return record.Clone(), nil
}

func (r *MemoryRecordRepository) GetByURL(ctx context.Context, url string) (*model.URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byURL[url]
	if !exists {
		return nil, apperrors.ErrRecordNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *MemoryRecordRepository) ListIDs(ctx context.Context) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *MemoryRecordRepository) ListAll(ctx context.Context) ([]model.URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]model.URLRecord, 0, len(r.byID))
	for _, record := range r.byID {
		records = append(records, *record)
	}
	return records, nil
}

func (r *MemoryRecordRepository) Update(ctx context.Context, record *model.URLRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.byID[record.ID]
	if !exists {
		return fmt.Errorf("record with ID %d: %w", record.ID, apperrors.ErrRecordNotFound)
	}
	if owner, taken := r.byURL[record.URL]; taken && owner != record.ID {
		return apperrors.ErrURLAlreadyExists
	}

	delete(r.byURL, current.URL)
	r.byID[record.ID] = record.Clone()
	r.byURL[record.URL] = record.ID
	return nil
}

func (r *MemoryRecordRepository) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.byID[id]
	if !exists {
		return fmt.Errorf("record with ID %d: %w", id, apperrors.ErrRecordNotFound)
	}

	delete(r.byURL, record.URL)
	delete(r.byID, id)
	return nil
}

func (r *MemoryRecordRepository) BatchUpdateStatus(ctx context.Context, updates []model.StatusUpdate) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var changed int64
	for _, update := range updates {
		if record, exists := r.byID[update.ID]; exists {
			record.ActiveStatus = update.ActiveStatus
			changed++
		}
	}
	return changed, nil
}

func (r *MemoryRecordRepository) UpdateStatusIf(ctx context.Context, id int64, expected, status model.ActiveStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.byID[id]
	if !exists || record.ActiveStatus != expected {
		return false, nil
	}

	record.ActiveStatus = status
	return true, nil
}
