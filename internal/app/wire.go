package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/estatecart/internal/auth"
	"github.com/hitoshi/estatecart/internal/cache"
	"github.com/hitoshi/estatecart/internal/collection"
	"github.com/hitoshi/estatecart/internal/config"
	"github.com/hitoshi/estatecart/internal/database"
	"github.com/hitoshi/estatecart/internal/handler"
	"github.com/hitoshi/estatecart/internal/metrics"
	"github.com/hitoshi/estatecart/internal/middleware"
	"github.com/hitoshi/estatecart/internal/mls"
	"github.com/hitoshi/estatecart/internal/property"
	"github.com/hitoshi/estatecart/internal/repository"
	"github.com/hitoshi/estatecart/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// server は起動済みの依存関係とHTTPサーバーをまとめたもの。
type server struct {
	http    *http.Server
	closers []func()
}

// Close は依存関係を生成と逆順に解放する。
func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newServer は全依存関係をワイヤリングし、起動前のHTTPサーバーを返す。
// 途中で失敗した場合は生成済みのリソースを解放してエラーを返す。
func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *server, err error) {
	srv := &server{}
	defer func() {
		if err != nil {
			srv.Close()
		}
	}()

	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 2. ストレージ
	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	srv.closers = append(srv.closers, closeStore)
	healthChecks := map[string]handler.HealthChecker{"database": repo}

	// 3. MLSクライアントと物件サービス
	guard := security.NewEgressGuard()
	mlsClient := mls.NewClient(newMLSHTTPClient(cfg, guard), mls.Config{
		BaseURL:    cfg.MLSAPIURL,
		Token:      cfg.MLSAuthToken,
		BaseFilter: cfg.MLSBaseFilter,
	}, logger, collector)

	props := property.NewService(mlsClient, security.NewDescriptionSanitizer(), guard, property.Config{
		DefaultLimit:      cfg.MLSDefaultLimit,
		MaxLimit:          cfg.MLSMaxLimit,
		EnrichConcurrency: cfg.MLSEnrichConcurrency,
	}, logger)

	// 4. 物件キャッシュ（REDIS_URLが設定されている場合のみ）
	var lookup collection.PropertyLookup = props
	if cfg.RedisURL != "" {
		rc, err := cache.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		srv.closers = append(srv.closers, func() { _ = rc.Close() })
		lookup = cache.NewPropertyCache(props, cache.NewRedisStore(rc), cfg.PropertyCacheTTL, logger, collector)
		healthChecks["redis"] = handler.HealthCheckFunc(func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		})
		logger.Info("property cache enabled", slog.Duration("ttl", cfg.PropertyCacheTTL))
	}

	// 5. カート・ウィッシュリスト
	manager := collection.NewManager(repo, lookup, cfg.MLSEnrichConcurrency, logger, collector)

	// 6. 認証とレート制限
	resolver, err := newUserResolver(cfg, logger)
	if err != nil {
		return nil, err
	}
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitMutation), logger)
	srv.closers = append(srv.closers, rl.Stop)

	// 7. ルーター
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:             logger,
		UserResolver:       resolver,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		RateLimiter:        rl,
		Metrics:            collector,
		MetricsGatherer:    reg,
		HealthChecks:       healthChecks,
		PropertyService:    props,
		CollectionService:  manager,
	})

	// 書き込みタイムアウトはMLSのタイムアウトより長くする
	srv.http = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.MLSTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

// openStore はSTORE_BACKENDに応じたCollectionRepositoryを生成する。
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.CollectionRepository, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMongo:
		client, err := database.OpenMongo(ctx, cfg.MongoURL)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoCollectionRepo(client, cfg.MongoDatabase)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("failed to ensure mongodb indexes: %w", err)
		}
		logger.Info("mongodb connection established", slog.String("database", cfg.MongoDatabase))
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("database connection established")
		return repository.NewPostgresCollectionRepo(db), func() { db.Close() }, nil
	}
}

// newMLSHTTPClient はMLS用のHTTPクライアントを生成する。
// MLS_EGRESS_GUARDが有効な場合は、接続先IPを検証するクライアントを使用する。
func newMLSHTTPClient(cfg *config.Config, guard *security.EgressGuard) *http.Client {
	if cfg.MLSEgressGuard {
		return guard.NewSafeClient(cfg.MLSTimeout)
	}
	return &http.Client{Timeout: cfg.MLSTimeout}
}

// newUserResolver はIdentity Providerの設定に応じたUserResolverを生成する。
// 署名鍵が設定されている場合はJWTをローカルで検証し、それ以外はIdentity Providerに問い合わせる。
func newUserResolver(cfg *config.Config, logger *slog.Logger) (auth.UserResolver, error) {
	if cfg.UseJWT() {
		r, err := auth.NewJWTResolver(cfg.IdentityJWTSecret, cfg.IdentityAudience)
		if err != nil {
			return nil, fmt.Errorf("failed to create jwt resolver: %w", err)
		}
		return r, nil
	}
	return auth.NewRemoteResolver(
		&http.Client{Timeout: cfg.IdentityTimeout},
		cfg.IdentityProviderURL,
		cfg.IdentityAPIKey,
		logger,
	), nil
}

// runMigrate はストレージのスキーマを適用する。
// PostgreSQLでは未適用のマイグレーションを順番に適用し、MongoDBではインデックスを作成する。
func runMigrate(ctx context.Context, cfg *config.Config) error {
	if cfg.StoreBackend == config.StoreBackendMongo {
		slog.Info("ensuring mongodb indexes", slog.String("mongo_url", maskURL(cfg.MongoURL)))
		_, closeStore, err := openStore(ctx, cfg, slog.Default())
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		closeStore()
		slog.Info("mongodb indexes are up to date")
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskURL(cfg.DatabaseURL)),
	)

	status, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(status.Version)),
		slog.Bool("applied", status.Applied),
	)
	return nil
}

// maskURL は接続URLの認証情報をマスクする。
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
