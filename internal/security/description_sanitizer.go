// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizer はMLSから取得した物件説明（PublicRemarks）をサニタイズする。
// MLSの入力は掲載者が自由に記述できるため、表示用の最小限のタグのみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizer は物件説明のサニタイズ機能を提供する。
// bluemondayのポリシーはスレッドセーフであり、複数のリクエストから共有できる。
type DescriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, strong, em
//   - リンク、画像、スクリプト、スタイルおよび全ての属性は除去する
func NewDescriptionSanitizer() *DescriptionSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "ul", "ol", "li", "strong", "em")

	return &DescriptionSanitizer{policy: p}
}

// Sanitize は物件説明をサニタイズし、前後の空白を取り除いて返す。
// 空文字列の入力には空文字列を返す。同一入力に対して常に同一出力を返す。
func (s *DescriptionSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
