// Package cache はMLS物件情報のキャッシュを提供する。
// キャッシュの障害はリクエストを失敗させず、MLSへの問い合わせにフォールバックする。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/estatecart/internal/metrics"
	"github.com/hitoshi/estatecart/internal/model"
)

// keyPrefix はキャッシュキーの接頭辞。保存形式を変更した場合はバージョンを上げる。
const keyPrefix = "estatecart:property:v1:"

// ErrCacheMiss はキーがキャッシュに存在しないことを表す。
var ErrCacheMiss = errors.New("cache: miss")

// Store はキャッシュの保存先のインターフェース。
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Source は物件情報の取得元のインターフェース。
// 物件が存在しない場合は (nil, nil) を返す。
type Source interface {
	LookupProperty(ctx context.Context, id string) (*model.Property, error)
}

// PropertyCache はSourceをキャッシュで包むデコレーター。
// 存在しない物件の結果（nil）はキャッシュしない。
type PropertyCache struct {
	source  Source
	store   Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewPropertyCache はPropertyCacheを生成する。
func NewPropertyCache(source Source, store Store, ttl time.Duration, logger *slog.Logger, m metrics.MetricsCollector) *PropertyCache {
	if m == nil {
		m = metrics.Nop{}
	}
	return &PropertyCache{
		source:  source,
		store:   store,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

// LookupProperty はキャッシュを参照し、無ければ取得元から取得してキャッシュに保存する。
func (c *PropertyCache) LookupProperty(ctx context.Context, id string) (*model.Property, error) {
	key := keyPrefix + id

	cached, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var p model.Property
		jsonErr := json.Unmarshal([]byte(cached), &p)
		if jsonErr == nil {
			c.metrics.RecordCacheResult("hit")
			return &p, nil
		}
		c.logger.Warn("キャッシュされた物件情報のデコードに失敗しました",
			slog.String("property_id", id),
			slog.String("error", jsonErr.Error()),
		)
		c.metrics.RecordCacheResult("error")
	case errors.Is(err, ErrCacheMiss):
		c.metrics.RecordCacheResult("miss")
	default:
		c.logger.Warn("物件キャッシュの参照に失敗しました",
			slog.String("property_id", id),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordCacheResult("error")
	}

	p, err := c.source.LookupProperty(ctx, id)
	if err != nil || p == nil {
		return p, err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return p, nil
	}
	if err := c.store.Set(ctx, key, string(data), c.ttl); err != nil {
		c.logger.Warn("物件キャッシュの保存に失敗しました",
			slog.String("property_id", id),
			slog.String("error", err.Error()),
		)
	}
	return p, nil
}

// compile-time interface check
var _ Source = (*PropertyCache)(nil)
