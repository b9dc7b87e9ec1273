package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/estatecart/internal/middleware"
	"github.com/hitoshi/estatecart/internal/model"
)

// CollectionServiceInterface はカート・ウィッシュリストのハンドラーが必要とするサービスインターフェース。
// *collection.Manager が実装する。
type CollectionServiceInterface interface {
	List(ctx context.Context, userID string, kind model.CollectionKind) ([]model.PropertyRef, error)
	Add(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) (bool, error)
	Remove(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) error
	Clear(ctx context.Context, userID string, kind model.CollectionKind) (int64, error)
	Move(ctx context.Context, userID string, from, to model.CollectionKind, propertyID string) (bool, error)
}

// CollectionHandler は1種類のコレクション（カートまたはウィッシュリスト）のHTTPハンドラー。
// カートとウィッシュリストは種別以外同一の処理を行う。
type CollectionHandler struct {
	service CollectionServiceInterface
	kind    model.CollectionKind
	logger  *slog.Logger
}

// NewCollectionHandler はCollectionHandlerを生成する。
func NewCollectionHandler(service CollectionServiceInterface, kind model.CollectionKind, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{service: service, kind: kind, logger: logger}
}

// List はコレクションの一覧を返す。
// GET /api/{kind}
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	refs, err := h.service.List(r.Context(), userID, h.kind)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	items := make([]propertyRefResponse, len(refs))
	for i, ref := range refs {
		items[i] = toPropertyRefResponse(ref)
	}
	writeJSON(w, http.StatusOK, listResponse[propertyRefResponse]{
		Items: items,
		Count: len(items),
	})
}

// Add は物件をコレクションに追加する。追加済みの場合も200を返す。
// POST /api/{kind}/{property_id}
func (h *CollectionHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	created, err := h.service.Add(r.Context(), userID, h.kind, chi.URLParam(r, "property_id"))
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, addResponse{OK: true, Created: created})
}

// Remove は物件をコレクションから削除する。存在しない場合も204を返す。
// DELETE /api/{kind}/{property_id}
func (h *CollectionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), userID, h.kind, chi.URLParam(r, "property_id")); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear はコレクションを空にする。
// DELETE /api/{kind}
func (h *CollectionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Clear(r.Context(), userID, h.kind); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MoveTo は物件をこのコレクションからtoのコレクションへ移動するハンドラーを返す。
// POST /api/wishlist/{property_id}/move-to-cart
func (h *CollectionHandler) MoveTo(to model.CollectionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.userID(w, r)
		if !ok {
			return
		}

		created, err := h.service.Move(r.Context(), userID, h.kind, to, chi.URLParam(r, "property_id"))
		if err != nil {
			middleware.WriteError(w, h.logger, err)
			return
		}

		writeJSON(w, http.StatusOK, addResponse{OK: true, Created: created})
	}
}

// Routes はこのコレクションのルーティングを設定する。
func (h *CollectionHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Delete("/", h.Clear)
	r.Post("/{property_id}", h.Add)
	r.Delete("/{property_id}", h.Remove)
}

// userID は認証ミドルウェアが注入したユーザーIDを取得する。
// 取得できない場合は401を書き込んでfalseを返す。
func (h *CollectionHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}
