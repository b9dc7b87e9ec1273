// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, property, collection, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInvalidProperty       = "INVALID_PROPERTY"
	ErrCodePropertyNotFound      = "PROPERTY_NOT_FOUND"
	ErrCodeUpstreamUnavailable   = "UPSTREAM_UNAVAILABLE"
	ErrCodeInvalidQuery          = "INVALID_QUERY"
	ErrCodeInvalidCollectionKind = "INVALID_COLLECTION_KIND"
	ErrCodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// NewUnauthorizedError は認証情報が無い、または無効な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "有効なアクセストークンをAuthorizationヘッダーに指定してください。",
	}
}

// NewInvalidPropertyError はカート・ウィッシュリストへの追加対象の物件が存在しない場合のエラーを生成する。
func NewInvalidPropertyError(propertyID string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProperty,
		Message:  fmt.Sprintf("指定された物件は存在しません: %s", propertyID),
		Category: "collection",
		Action:   "物件IDを確認してください。掲載が終了している可能性があります。",
	}
}

// NewPropertyNotFoundError は物件詳細が見つからない場合のエラーを生成する。
func NewPropertyNotFoundError(propertyID string) *APIError {
	return &APIError{
		Code:     ErrCodePropertyNotFound,
		Message:  fmt.Sprintf("指定された物件が見つかりません: %s", propertyID),
		Category: "property",
		Action:   "物件IDを確認してください。",
	}
}

// NewUpstreamUnavailableError はMLSまたはIdentity Providerが利用できない場合のエラーを生成する。
// serviceには "mls" または "identity" を指定する。
func NewUpstreamUnavailableError(service string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  fmt.Sprintf("外部サービスに接続できません: %s", service),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidQueryError は検索条件などのクエリパラメータが不正な場合のエラーを生成する。
func NewInvalidQueryError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  fmt.Sprintf("無効なクエリパラメータです: %s", reason),
		Category: "validation",
		Action:   "検索条件の値を確認してください。",
	}
}

// NewInvalidCollectionKindError はコレクション種別が不正な場合のエラーを生成する。
func NewInvalidCollectionKindError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCollectionKind,
		Message:  fmt.Sprintf("無効なコレクション種別です: %s", kind),
		Category: "validation",
		Action:   "コレクション種別には cart または wishlist を指定してください。",
	}
}

// NewRateLimitExceededError はレート制限を超過した場合のエラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
