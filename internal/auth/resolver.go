// Package auth はリクエストの認証情報をユーザーIDに解決する機能を提供する。
// トークンの発行は外部のIdentity Providerが行い、このパッケージは検証のみを行う。
package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInvalidCredential は認証情報が欠落している、または無効であることを表す。
	ErrInvalidCredential = errors.New("auth: invalid credential")
	// ErrUnavailable はIdentity Providerに接続できないことを表す。
	ErrUnavailable = errors.New("auth: identity provider unavailable")
)

// UserResolver は認証情報（Bearerトークン）を安定したユーザーIDに解決する。
// 解決結果はリクエストコンテキストに格納され、プロセス全体で共有される状態は持たない。
type UserResolver interface {
	ResolveUserID(ctx context.Context, credential string) (string, error)
}

// ResolverFunc は関数をUserResolverとして扱うためのアダプター。
type ResolverFunc func(ctx context.Context, credential string) (string, error)

// ResolveUserID はf(ctx, credential)を呼び出す。
func (f ResolverFunc) ResolveUserID(ctx context.Context, credential string) (string, error) {
	return f(ctx, credential)
}

// BearerToken はAuthorizationヘッダーの値からBearerトークンを取り出す。
// スキームの大文字小文字は区別しない。トークンが無い場合は空文字列を返す。
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// compile-time interface check
var _ UserResolver = ResolverFunc(nil)
