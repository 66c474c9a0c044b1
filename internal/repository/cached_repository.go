package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Kosench/go-url-tracker/internal/cache"
	"github.com/Kosench/go-url-tracker/internal/model"
)

// CachedRecordRepository - репозиторий с кэшированием поверх основного хранилища.
//
// В кэше лежат записи по id и индекс url -> id для дедупликации при регистрации.
// Полные выборки и список id всегда идут в хранилище: аллокация и сверка
// статусов не должны работать с устаревшими данными.
type CachedRecordRepository struct {
	store RecordRepository
	cache cache.RecordCache
	log   *zap.Logger
}

func NewCachedRecordRepository(store RecordRepository, c cache.RecordCache, log *zap.Logger) *CachedRecordRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedRecordRepository{
		store: store,
		cache: c,
		log:   log,
	}
}

func (r *CachedRecordRepository) Insert(ctx context.Context, record *model.URLRecord) error {
	if err := r.store.Insert(ctx, record); err != nil {
		return err
	}

	r.remember(ctx, record)
	return nil
}

func (r *CachedRecordRepository) GetByID(ctx context.Context, id int64) (*model.URLRecord, error) {
	if cached := r.cached(ctx, id); cached != nil {
		return cached, nil
	}

	record, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.remember(ctx, record)
	return record, nil
}

// GetByURL ищет запись по URL, сначала через индекс в кэше.
// Найденный в индексе id сверяется с хранилищем: закэшированная запись
// может быть записана обратно гонкой чтения с обновлением.
func (r *CachedRecordRepository) GetByURL(ctx context.Context, url string) (*model.URLRecord, error) {
	id, err := r.cache.LookupURL(ctx, url)
	switch {
	case err == nil:
		record, getErr := r.store.GetByID(ctx, id)
		if getErr == nil && record.URL == url {
			r.remember(ctx, record)
			return record, nil
		}
		// индекс устарел
		r.forget(ctx, []int64{id}, []string{url})
	case !errors.Is(err, cache.ErrCacheMiss):
		r.log.Warn("Cache lookup failed", zap.String("url", url), zap.Error(err))
	}

	record, err := r.store.GetByURL(ctx, url)
	if err != nil {
		return nil, err
	}

	r.remember(ctx, record)
	return record, nil
}

func (r *CachedRecordRepository) ListIDs(ctx context.Context) ([]int64, error) {
	return r.store.ListIDs(ctx)
}

func (r *CachedRecordRepository) ListAll(ctx context.Context) ([]model.URLRecord, error) {
	return r.store.ListAll(ctx)
}

func (r *CachedRecordRepository) Update(ctx context.Context, record *model.URLRecord) error {
	previous := r.cached(ctx, record.ID)

	if err := r.store.Update(ctx, record); err != nil {
		return err
	}

	var urls []string
	if previous != nil && previous.URL != record.URL {
		urls = append(urls, previous.URL)
	}
	r.forget(ctx, []int64{record.ID}, urls)
	return nil
}

func (r *CachedRecordRepository) Delete(ctx context.Context, id int64) error {
	previous := r.cached(ctx, id)

	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}

	var urls []string
	if previous != nil {
		urls = append(urls, previous.URL)
	}
	r.forget(ctx, []int64{id}, urls)
	return nil
}

func (r *CachedRecordRepository) BatchUpdateStatus(ctx context.Context, updates []model.StatusUpdate) (int64, error) {
	changed, err := r.store.BatchUpdateStatus(ctx, updates)

	// инвалидируем даже при ошибке: часть строк могла обновиться
	ids := make([]int64, 0, len(updates))
	for _, update := range updates {
		ids = append(ids, update.ID)
	}
	r.forget(ctx, ids, nil)

	return changed, err
}

func (r *CachedRecordRepository) UpdateStatusIf(ctx context.Context, id int64, expected, status model.ActiveStatus) (bool, error) {
	ok, err := r.store.UpdateStatusIf(ctx, id, expected, status)
	if ok {
		r.forget(ctx, []int64{id}, nil)
	}
	return ok, err
}

// cached возвращает nil при промахе и при любой ошибке кэша
func (r *CachedRecordRepository) cached(ctx context.Context, id int64) *model.URLRecord {
	record, err := r.cache.GetRecord(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.log.Warn("Cache read failed", zap.Int64("id", id), zap.Error(err))
		}
		return nil
	}
	return record
}

func (r *CachedRecordRepository) remember(ctx context.Context, record *model.URLRecord) {
	if err := r.cache.SetRecord(ctx, record); err != nil {
		// Логируем ошибку кэша, но не прерываем операцию
		r.log.Warn("Failed to cache record", zap.Int64("id", record.ID), zap.Error(err))
	}
}

func (r *CachedRecordRepository) forget(ctx context.Context, ids []int64, urls []string) {
	if err := r.cache.Invalidate(ctx, ids, urls); err != nil {
		r.log.Warn("Failed to invalidate cache",
			zap.Int64s("ids", ids),
			zap.Strings("urls", urls),
			zap.Error(err))
	}
}
