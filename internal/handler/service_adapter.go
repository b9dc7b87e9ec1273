package handler

import (
	"context"

	"github.com/hitoshi/estatecart/internal/collection"
	"github.com/hitoshi/estatecart/internal/property"
)

// HealthChecker は依存先の疎通確認のインターフェース。
// repository.CollectionRepository が実装する。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckFunc は関数をHealthCheckerとして扱うためのアダプター。
// Redisクライアントなど、Pingがerror以外を返す依存先に使用する。
type HealthCheckFunc func(ctx context.Context) error

// Ping はf(ctx)を呼び出す。
func (f HealthCheckFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// compile-time interface check
var (
	_ PropertyServiceInterface   = (*property.Service)(nil)
	_ CollectionServiceInterface = (*collection.Manager)(nil)
	_ HealthChecker              = HealthCheckFunc(nil)
)
