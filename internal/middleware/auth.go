// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/estatecart/internal/auth"
	"github.com/hitoshi/estatecart/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

var userIDHolderContextKey = contextKey("user_id_holder")

// userIDHolder は外側のミドルウェア（ログ出力）へ解決済みユーザーIDを渡すための箱。
type userIDHolder struct {
	userID string
}

func contextWithUserIDHolder(ctx context.Context, h *userIDHolder) context.Context {
	return context.WithValue(ctx, userIDHolderContextKey, h)
}

// NewAuthMiddleware はAuthorizationヘッダーのBearerトークンをユーザーIDに解決し、
// リクエストコンテキストに注入するミドルウェアを返す。
// トークンが無い、または無効な場合は401、Identity Providerに接続できない場合は503を返す。
// いずれの場合も後続のハンドラーは呼び出さない。
func NewAuthMiddleware(resolver auth.UserResolver, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			userID, err := resolver.ResolveUserID(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrUnavailable) {
					logger.Error("Identity Providerに接続できません",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
					WriteAPIError(w, model.NewUpstreamUnavailableError("identity"))
					return
				}
				logger.Debug("認証情報が無効です", slog.String("error", err.Error()))
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}
			if userID == "" {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// NewOptionalAuthMiddleware はBearerトークンがあればユーザーIDに解決してコンテキストに注入する。
// トークンが無い、無効、またはIdentity Providerに接続できない場合は匿名のまま後続へ渡す。
func NewOptionalAuthMiddleware(resolver auth.UserResolver, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := resolver.ResolveUserID(r.Context(), token)
			if err != nil || userID == "" {
				if errors.Is(err, auth.ErrUnavailable) {
					logger.Warn("Identity Providerに接続できないため匿名として処理します",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if h, ok := ctx.Value(userIDHolderContextKey).(*userIDHolder); ok {
		h.userID = userID
	}
	return context.WithValue(ctx, userIDContextKey, userID)
}
