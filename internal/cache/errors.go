package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss означает, что записи нет в кэше
	ErrCacheMiss = errors.New("cache miss")

	// ErrCorruptEntry - значение в кэше не удалось разобрать
	ErrCorruptEntry = errors.New("corrupt cache entry")
)

// CacheError - ошибка операции с кэшем вместе с ключом
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

func newCacheError(op, key string, err error) error {
	return &CacheError{Op: op, Key: key, Err: err}
}
