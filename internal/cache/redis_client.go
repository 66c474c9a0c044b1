package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kosench/go-url-tracker/internal/model"
)

var (
	_ RecordCache = (*RedisClient)(nil)
	_ RateLimiter = (*RedisClient)(nil)
	_ RecordCache = NullCache{}
)

// RedisClient кэширует записи и индекс url -> id в Redis
type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
	keys   *KeyBuilder
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	CacheTTL     int    // секунды
	Namespace    string // общий префикс всех ключей
}

func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, newCacheError("connect", "", fmt.Errorf("failed to connect to Redis: %w", err))
	}

	ttl := time.Duration(cfg.CacheTTL) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisClient{
		client: client,
		ttl:    ttl,
		keys:   NewKeyBuilder(cfg.Namespace),
	}, nil
}

func (r *RedisClient) Keys() *KeyBuilder {
	return r.keys
}

func (r *RedisClient) GetRecord(ctx context.Context, id int64) (*model.URLRecord, error) {
	key := r.keys.Record(id)

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, newCacheError("get", key, err)
	}

	var record model.URLRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, newCacheError("get", key, fmt.Errorf("%w: %v", ErrCorruptEntry, err))
	}
	return &record, nil
}

func (r *RedisClient) SetRecord(ctx context.Context, record *model.URLRecord) error {
	key := r.keys.Record(record.ID)

	data, err := json.Marshal(record)
	if err != nil {
		return newCacheError("set", key, fmt.Errorf("failed to marshal record: %w", err))
	}

	// Запись и индекс пишутся одной транзакцией
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, r.ttl)
	pipe.Set(ctx, r.keys.URL(record.URL), strconv.FormatInt(record.ID, 10), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return newCacheError("set", key, err)
	}
	return nil
}

func (r *RedisClient) LookupURL(ctx context.Context, url string) (int64, error) {
	key := r.keys.URL(url)

	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, newCacheError("get", key, err)
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, newCacheError("get", key, fmt.Errorf("%w: %q is not an id", ErrCorruptEntry, value))
	}
	return id, nil
}

func (r *RedisClient) Invalidate(ctx context.Context, ids []int64, urls []string) error {
	keys := make([]string, 0, len(ids)+len(urls))
	for _, id := range ids {
		keys = append(keys, r.keys.Record(id))
	}
	for _, url := range urls {
		keys = append(keys, r.keys.URL(url))
	}

	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return newCacheError("delete", "", err)
	}
	return nil
}

func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return newCacheError("ping", "", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	if err := r.client.Close(); err != nil {
		return newCacheError("close", "", err)
	}
	return nil
}

// IncrementRateLimit увеличивает счётчик клиента.
// Каждый запрос продлевает срок жизни счётчика на window.
func (r *RedisClient) IncrementRateLimit(ctx context.Context, clientIP string, window time.Duration) (int64, error) {
	key := r.keys.RateLimit(clientIP)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, newCacheError("increment", key, err)
	}

	return incr.Val(), nil
}
