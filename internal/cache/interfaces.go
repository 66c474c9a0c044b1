package cache

import (
	"context"
	"time"

	"github.com/Kosench/go-url-tracker/internal/model"
)

// RecordCache хранит записи по id и индекс url -> id,
// чтобы отвечать на повторную регистрацию без запроса к хранилищу.
type RecordCache interface {
	// GetRecord возвращает ErrCacheMiss, если id нет в кэше
	GetRecord(ctx context.Context, id int64) (*model.URLRecord, error)
	// SetRecord кэширует запись вместе с её записью в индексе
	SetRecord(ctx context.Context, record *model.URLRecord) error
	// LookupURL возвращает ErrCacheMiss, если url нет в индексе
	LookupURL(ctx context.Context, url string) (int64, error)
	// Invalidate удаляет указанные записи и ключи индекса
	Invalidate(ctx context.Context, ids []int64, urls []string) error

	HealthCheck(ctx context.Context) error
	Close() error
}

// RateLimiter считает запросы с одного IP в пределах окна
type RateLimiter interface {
	IncrementRateLimit(ctx context.Context, clientIP string, window time.Duration) (int64, error)
}

// NullCache - заглушка для работы без кэша (Null Object Pattern)
type NullCache struct{}

func NewNullCache() *NullCache {
	return &NullCache{}
}

func (NullCache) GetRecord(ctx context.Context, id int64) (*model.URLRecord, error) {
	return nil, ErrCacheMiss
}

func (NullCache) SetRecord(ctx context.Context, record *model.URLRecord) error {
	return nil
}

func (NullCache) LookupURL(ctx context.Context, url string) (int64, error) {
	return 0, ErrCacheMiss
}

func (NullCache) Invalidate(ctx context.Context, ids []int64, urls []string) error {
	return nil
}

func (NullCache) HealthCheck(ctx context.Context) error {
	return nil
}

func (NullCache) Close() error {
	return nil
}
