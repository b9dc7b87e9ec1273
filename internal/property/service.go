// Package property は物件の検索・詳細取得のドメインロジックを提供する。
// 物件データはMLSが所有しており、このパッケージは読み取りのみを行う。
package property

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hitoshi/estatecart/internal/mls"
	"github.com/hitoshi/estatecart/internal/model"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLimit             = 24
	defaultMaxLimit          = 50
	defaultEnrichConcurrency = 4
)

// MLSClient はMLSへの問い合わせを抽象化するインターフェース。
// *mls.Client が実装する。
type MLSClient interface {
	Search(ctx context.Context, f model.SearchFilter) ([]mls.Record, bool, error)
	GetByID(ctx context.Context, listingKey string) (*mls.Record, error)
	Media(ctx context.Context, listingKey string) ([]string, error)
}

// Sanitizer は物件説明のサニタイズを行うインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// URLFilter は安全でない写真URLを除外するインターフェース。
type URLFilter interface {
	FilterURLs(urls []string) []string
}

// Config はServiceの設定。ゼロ値のフィールドには既定値を使用する。
type Config struct {
	DefaultLimit      int
	MaxLimit          int
	EnrichConcurrency int
}

// Service は物件検索・詳細取得のサービス層。
type Service struct {
	client    MLSClient
	sanitizer Sanitizer
	urlFilter URLFilter
	cfg       Config
	logger    *slog.Logger
}

// NewService はServiceを生成する。
// urlFilterがnilの場合、写真URLは除外せずにそのまま返す。
func NewService(client MLSClient, sanitizer Sanitizer, urlFilter URLFilter, cfg Config, logger *slog.Logger) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = defaultMaxLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	if cfg.EnrichConcurrency <= 0 {
		cfg.EnrichConcurrency = defaultEnrichConcurrency
	}
	return &Service{
		client:    client,
		sanitizer: sanitizer,
		urlFilter: urlFilter,
		cfg:       cfg,
		logger:    logger,
	}
}

// Search は条件に一致する物件を1ページ分返す。
// cursorは前ページのNextCursorで、空文字列の場合は先頭から取得する。
// 各物件の写真は並行して取得し、取得に失敗した物件の写真は空とする。
func (s *Service) Search(ctx context.Context, filter model.SearchFilter, cursor string) (*model.SearchPage, error) {
	offset, err := DecodeCursor(cursor)
	if err != nil {
		return nil, model.NewInvalidQueryError("cursor")
	}
	filter.Offset = offset
	filter.Limit = s.clampLimit(filter.Limit)

	records, hasMore, err := s.client.Search(ctx, filter)
	if err != nil {
		return nil, upstreamError(err)
	}

	props := make([]model.Property, len(records))
	for i, r := range records {
		props[i] = s.toProperty(r)
	}
	s.enrichMedia(ctx, props)

	page := &model.SearchPage{
		Properties: props,
		HasMore:    hasMore,
	}
	if hasMore {
		page.NextCursor = EncodeCursor(offset + len(records))
	}
	return page, nil
}

// GetProperty は物件詳細を写真付きで返す。
// 物件が存在しない場合はPROPERTY_NOT_FOUNDを返す。
func (s *Service) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	if id == "" {
		return nil, model.NewPropertyNotFoundError(id)
	}

	record, err := s.client.GetByID(ctx, id)
	if err != nil {
		if mls.IsNotFound(err) {
			return nil, model.NewPropertyNotFoundError(id)
		}
		return nil, upstreamError(err)
	}

	p := s.toProperty(*record)
	media, err := s.client.Media(ctx, id)
	if err != nil {
		s.logger.Warn("物件写真の取得に失敗しました",
			slog.String("property_id", id),
			slog.String("error", err.Error()),
		)
	} else {
		p.Media = s.filterMedia(media)
	}
	return &p, nil
}

// GetMedia は物件の写真URLを表示順で返す。
func (s *Service) GetMedia(ctx context.Context, id string) ([]string, error) {
	media, err := s.client.Media(ctx, id)
	if err != nil {
		return nil, upstreamError(err)
	}
	return s.filterMedia(media), nil
}

// LookupProperty は物件の存在確認と基本情報の取得を行う。写真は取得しない。
// 物件が存在しない場合は (nil, nil) を返す。
func (s *Service) LookupProperty(ctx context.Context, id string) (*model.Property, error) {
	if id == "" {
		return nil, nil
	}

	record, err := s.client.GetByID(ctx, id)
	if err != nil {
		if mls.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("物件の取得に失敗しました: %w", err)
	}

	p := s.toProperty(*record)
	return &p, nil
}

// enrichMedia は物件の写真を並行数を制限して取得する。
func (s *Service) enrichMedia(ctx context.Context, props []model.Property) {
	var g errgroup.Group
	g.SetLimit(s.cfg.EnrichConcurrency)

	for i := range props {
		g.Go(func() error {
			media, err := s.client.Media(ctx, props[i].ID)
			if err != nil {
				s.logger.Warn("物件写真の取得に失敗しました",
					slog.String("property_id", props[i].ID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			props[i].Media = s.filterMedia(media)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) toProperty(r mls.Record) model.Property {
	p := r.ToProperty()
	if s.sanitizer != nil {
		p.Description = s.sanitizer.Sanitize(p.Description)
	}
	return p
}

func (s *Service) filterMedia(media []string) []string {
	if media == nil {
		return []string{}
	}
	if s.urlFilter == nil {
		return media
	}
	return s.urlFilter.FilterURLs(media)
}

func (s *Service) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.cfg.DefaultLimit
	case limit > s.cfg.MaxLimit:
		return s.cfg.MaxLimit
	default:
		return limit
	}
}

// MaxLimit は1ページあたりの最大件数を返す。
func (s *Service) MaxLimit() int {
	return s.cfg.MaxLimit
}

// upstreamError はMLSのエラーをAPIErrorに変換する。
func upstreamError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return model.NewUpstreamUnavailableError("mls")
}

// EncodeCursor はオフセットを不透明なカーソル文字列に変換する。
func EncodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// DecodeCursor はカーソル文字列をオフセットに戻す。空文字列は0とする。
func DecodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("カーソルのデコードに失敗しました: %w", err)
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("無効なカーソル値です: %q", cursor)
	}
	return offset, nil
}
