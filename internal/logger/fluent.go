package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
)

// Poster はFluent Bitへのレコード送信を抽象化するインターフェース。
// *fluent.Fluent が実装する。
type Poster interface {
	Post(tag string, message interface{}) error
}

var _ Poster = (*fluent.Fluent)(nil)

// FluentConfig はFluent Bitへの接続設定。
type FluentConfig struct {
	Host      string
	Port      int
	TagPrefix string // 全てのタグの先頭に付与する。通常はアプリケーション名
}

// NewFluentClient はFluent Bitのクライアントを生成する。
// 非同期モードで生成するため、Fluent Bitが停止していてもアプリケーションの起動は妨げない。
func NewFluentClient(cfg FluentConfig) (*fluent.Fluent, error) {
	if cfg.TagPrefix == "" {
		return nil, errors.New("fluentのタグプレフィックスが空です")
	}
	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.Host,
		FluentPort: cfg.Port,
		TagPrefix:  cfg.TagPrefix,
		Async:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("fluentクライアントの生成に失敗しました: %w", err)
	}
	return client, nil
}

// FluentHandler はslogのレコードをFluent Bitへ転送するslog.Handler。
// タグはレベル名の小文字（info, warn など）とする。
type FluentHandler struct {
	poster Poster
	level  slog.Leveler
	attrs  []slog.Attr
	group  string
}

// NewFluentHandler はFluentHandlerを生成する。
func NewFluentHandler(poster Poster, level slog.Leveler) *FluentHandler {
	return &FluentHandler{poster: poster, level: level}
}

// Enabled はlevelが最小出力レベル以上かを返す。
func (h *FluentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle はレコードをmapに変換して送信する。
// 送信の失敗はログ出力を妨げないよう無視する。
func (h *FluentHandler) Handle(_ context.Context, r slog.Record) error {
	data := make(map[string]interface{}, len(h.attrs)+r.NumAttrs()+3)
	for _, a := range h.attrs {
		addAttr(data, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(data, h.group, a)
		return true
	})
	data["level"] = r.Level.String()
	data["message"] = r.Message
	data["timestamp"] = r.Time.UTC().Format(time.RFC3339Nano)

	_ = h.poster.Post(strings.ToLower(r.Level.String()), data)
	return nil
}

// WithAttrs は属性を追加したハンドラーを返す。
func (h *FluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup は以降の属性キーにグループ名を前置するハンドラーを返す。
func (h *FluentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return &next
}

func addAttr(data map[string]interface{}, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(data, key, ga)
		}
		return
	}
	switch a.Value.Kind() {
	case slog.KindTime:
		data[key] = a.Value.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindDuration:
		data[key] = a.Value.Duration().String()
	default:
		data[key] = a.Value.Any()
	}
}
