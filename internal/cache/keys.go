package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

type KeyPrefix string

const (
	PrefixRecord    KeyPrefix = "record" // record:<id> -> запись в JSON
	PrefixURL       KeyPrefix = "url"    // url:<sha256(url)[:16]> -> id
	PrefixRateLimit KeyPrefix = "rate"   // rate:<ip клиента> -> счётчик
)

// KeyBuilder формирует ключи кэша с опциональным namespace
type KeyBuilder struct {
	namespace string
}

func NewKeyBuilder(namespace string) *KeyBuilder {
	return &KeyBuilder{namespace: namespace}
}

func (k *KeyBuilder) Build(prefix KeyPrefix, parts ...string) string {
	segments := make([]string, 0, len(parts)+2)
	if k.namespace != "" {
		segments = append(segments, k.namespace)
	}
	segments = append(segments, string(prefix))
	segments = append(segments, parts...)
	return strings.Join(segments, ":")
}

func (k *KeyBuilder) Record(id int64) string {
	return k.Build(PrefixRecord, strconv.FormatInt(id, 10))
}

// URL хэширует адрес, чтобы ключ имел фиксированную длину
func (k *KeyBuilder) URL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return k.Build(PrefixURL, hex.EncodeToString(sum[:16]))
}

func (k *KeyBuilder) RateLimit(clientIP string) string {
	return k.Build(PrefixRateLimit, clientIP)
}
