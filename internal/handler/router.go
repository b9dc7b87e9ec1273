package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/estatecart/internal/auth"
	"github.com/hitoshi/estatecart/internal/metrics"
	"github.com/hitoshi/estatecart/internal/middleware"
	"github.com/hitoshi/estatecart/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	UserResolver       auth.UserResolver
	CORSAllowedOrigins []string
	TrustProxyHeaders  bool // 信頼できるリバースプロキシの背後でのみtrueにする
	RateLimiter        *middleware.RateLimiter
	Metrics            metrics.MetricsCollector
	MetricsGatherer    prometheus.Gatherer // nilの場合は/metricsを公開しない

	// ヘルスチェック対象（名前 → 依存先）
	HealthChecks map[string]HealthChecker

	// 物件
	PropertyService PropertyServiceInterface

	// カート・ウィッシュリスト
	CollectionService CollectionServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP(TrustProxyHeaders時のみ) → Logging → Metrics → Recovery → SecurityHeaders → CORS
//	  /api/properties: RateLimit(General, クライアントIP単位)
//	  /api/page_load/home: RateLimit(General, クライアントIP単位) → OptionalAuth
//	  /api/cart, /api/wishlist: Auth → RateLimit(General, ユーザー単位) → RateLimit(Mutation)
//
// /health と /metrics はレート制限と認証の対象外とする。
func NewRouter(deps *RouterDeps) http.Handler {
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(m))
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "NOT_FOUND",
			Message:  "指定されたエンドポイントは存在しません。",
			Category: "system",
			Action:   "URLを確認してください。",
		})
	})

	propertyHandler := NewPropertyHandler(deps.PropertyService, deps.Logger)
	cartHandler := NewCollectionHandler(deps.CollectionService, model.CollectionCart, deps.Logger)
	wishlistHandler := NewCollectionHandler(deps.CollectionService, model.CollectionWishlist, deps.Logger)

	// --- 運用系ルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecks, deps.Logger))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証不要のルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/properties", func(r chi.Router) {
			r.Get("/", propertyHandler.Search)
			r.Get("/{property_id}", propertyHandler.GetProperty)
			r.Get("/{property_id}/media", propertyHandler.GetMedia)
		})
		r.With(middleware.NewOptionalAuthMiddleware(deps.UserResolver, deps.Logger)).
			Get("/api/page_load/home", propertyHandler.Home)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General) → RateLimit(Mutation)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.UserResolver, deps.Logger))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(deps.RateLimiter.MutationMiddleware())

		r.Route("/api/cart", cartHandler.Routes)
		r.Route("/api/wishlist", func(r chi.Router) {
			wishlistHandler.Routes(r)
			r.Post("/{property_id}/move-to-cart", wishlistHandler.MoveTo(model.CollectionCart))
		})
	})

	return r
}
