package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/estatecart/internal/middleware"
	"github.com/hitoshi/estatecart/internal/model"
)

// homePropertyLimit はトップページに表示する物件数。
const homePropertyLimit = 10

// PropertyServiceInterface は物件ハンドラーが必要とするサービスインターフェース。
// *property.Service が実装する。
type PropertyServiceInterface interface {
	// Search は条件に一致する物件を1ページ分返す。
	Search(ctx context.Context, filter model.SearchFilter, cursor string) (*model.SearchPage, error)
	// GetProperty は物件詳細を写真付きで返す。
	GetProperty(ctx context.Context, id string) (*model.Property, error)
	// GetMedia は物件の写真URLを返す。
	GetMedia(ctx context.Context, id string) ([]string, error)
	// MaxLimit は1ページあたりの最大件数を返す。
	MaxLimit() int
}

// PropertyHandler は物件検索・詳細のHTTPハンドラー。
type PropertyHandler struct {
	service PropertyServiceInterface
	logger  *slog.Logger
}

// NewPropertyHandler はPropertyHandlerを生成する。
func NewPropertyHandler(service PropertyServiceInterface, logger *slog.Logger) *PropertyHandler {
	return &PropertyHandler{service: service, logger: logger}
}

// Search は物件検索を処理する。
// GET /api/properties?city&property_type&min_price&max_price&bedrooms&bathrooms&limit&cursor
func (h *PropertyHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearchQuery(r.URL.Query(), h.service.MaxLimit())
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	page, err := h.service.Search(r.Context(), q.toFilter(), q.Cursor)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	items := make([]propertyResponse, len(page.Properties))
	for i, p := range page.Properties {
		items[i] = toPropertyResponse(p)
	}
	hasMore := page.HasMore
	writeJSON(w, http.StatusOK, listResponse[propertyResponse]{
		Items:      items,
		Count:      len(items),
		NextCursor: page.NextCursor,
		HasMore:    &hasMore,
	})
}

// GetProperty は物件詳細を返す。
// GET /api/properties/{property_id}
func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "property_id")

	p, err := h.service.GetProperty(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toPropertyResponse(*p))
}

// GetMedia は物件の写真URLを返す。
// GET /api/properties/{property_id}/media
func (h *PropertyHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "property_id")

	media, err := h.service.GetMedia(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[string]{
		Items: media,
		Count: len(media),
	})
}

// Home はトップページ初期表示用に、先頭ページの物件と認証済みユーザーをまとめて返す。
// GET /api/page_load/home
func (h *PropertyHandler) Home(w http.ResponseWriter, r *http.Request) {
	limit := min(homePropertyLimit, h.service.MaxLimit())
	page, err := h.service.Search(r.Context(), model.SearchFilter{Limit: limit}, "")
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	resp := homeResponse{
		Properties:      make([]propertyResponse, len(page.Properties)),
		TotalProperties: len(page.Properties),
	}
	for i, p := range page.Properties {
		resp.Properties[i] = toPropertyResponse(p)
	}
	if userID, err := middleware.UserIDFromContext(r.Context()); err == nil {
		resp.User = &homeUser{ID: userID}
	}
	writeJSON(w, http.StatusOK, resp)
}
