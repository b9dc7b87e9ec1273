package mls

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound は指定したListingKeyの物件がMLSに存在しないことを表す。
	// 検索結果のvalueが空の場合にのみ返す。
	ErrNotFound = errors.New("mls: listing not found")
	// ErrUnavailable はMLSへの接続失敗、または利用不可のステータスを表す。
	ErrUnavailable = errors.New("mls: service unavailable")
)

// Outcome はMLSレスポンスの分類。
type Outcome int

const (
	// OutcomeOK は成功（200）。
	OutcomeOK Outcome = iota
	// OutcomeNotFound はエンドポイントが存在しない（404/410）。
	// ODataのコレクション問い合わせでは物件の有無と無関係なため、呼び出し元には利用不可として返す。
	OutcomeNotFound
	// OutcomeUnavailable は認証エラー、レート制限、サーバーエラー（401/403/429/5xx）。
	OutcomeUnavailable
	// OutcomeRejected はリクエスト内容が受け付けられなかった（その他の4xx）。
	OutcomeRejected
)

// String はメトリクスのラベルに使用する文字列を返す。
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "rejected"
	}
}

// ClassifyStatus はHTTPステータスコードをMLSレスポンスの分類に変換する。
func ClassifyStatus(statusCode int) Outcome {
	switch {
	case statusCode == http.StatusOK:
		return OutcomeOK
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return OutcomeNotFound
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return OutcomeUnavailable
	case statusCode == http.StatusTooManyRequests:
		return OutcomeUnavailable
	case statusCode >= 500:
		return OutcomeUnavailable
	default:
		return OutcomeRejected
	}
}

// StatusError はMLSが200以外のステータスを返したことを表す。
// errors.Is により ErrUnavailable と比較できる。
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mls: %s returned status %d", e.Endpoint, e.StatusCode)
}

// Unwrap は ErrUnavailable を返す。
// 物件の不在はステータスではなく空のvalueで判定するため、404/410も利用不可として扱う。
func (e *StatusError) Unwrap() error {
	return ErrUnavailable
}
