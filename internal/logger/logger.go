// Package logger はアプリケーション共通のslog.Loggerを構築する。
//
// 既定はJSON形式で標準出力に書き込む。開発時はtintによるカラー表示のテキスト形式を選択できる。
// Fluent Bitの接続先が設定された場合は、同じレコードをFluent Bitにも転送する。
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
)

// 出力形式
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options はロガーの構築オプション。
type Options struct {
	Format string     // json（既定）または text
	Level  slog.Level // 最小出力レベル
	Fluent Poster     // nilの場合はFluent Bitへ転送しない
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
func Setup(w io.Writer) *slog.Logger {
	return New(w, Options{Format: FormatJSON, Level: slog.LevelInfo})
}

// New はオプションに従ってslog.Loggerを生成する。
// wがnilの場合はos.Stdoutに出力する。
func New(w io.Writer, opts Options) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	var handler slog.Handler
	switch opts.Format {
	case FormatText:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.DateTime,
		})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	}

	if opts.Fluent != nil {
		handler = slogmulti.Fanout(handler, NewFluentHandler(opts.Fluent, opts.Level))
	}
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// 本番ではos.Stdoutを渡すことを想定している。
func SetupDefault(w io.Writer) {
	slog.SetDefault(Setup(w))
}

// ParseLevel はLOG_LEVELの値をslog.Levelに変換する。空文字列はinfoとする。
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("不正なログレベルです: %q", s)
	}
}

// ValidFormat はLOG_FORMATの値が定義済みかを返す。
func ValidFormat(format string) bool {
	return format == FormatJSON || format == FormatText
}
