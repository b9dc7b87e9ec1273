package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/estatecart/internal/auth"
	"github.com/hitoshi/estatecart/internal/middleware"
	"github.com/hitoshi/estatecart/internal/model"
)

// --- モック定義 ---

type mockPropertyService struct {
	searchFn      func(ctx context.Context, filter model.SearchFilter, cursor string) (*model.SearchPage, error)
	getPropertyFn func(ctx context.Context, id string) (*model.Property, error)
	getMediaFn    func(ctx context.Context, id string) ([]string, error)
	maxLimit      int
}

func (m *mockPropertyService) Search(ctx context.Context, filter model.SearchFilter, cursor string) (*model.SearchPage, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, filter, cursor)
	}
	return &model.SearchPage{Properties: []model.Property{}}, nil
}

func (m *mockPropertyService) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	if m.getPropertyFn != nil {
		return m.getPropertyFn(ctx, id)
	}
	return nil, model.NewPropertyNotFoundError(id)
}

func (m *mockPropertyService) GetMedia(ctx context.Context, id string) ([]string, error) {
	if m.getMediaFn != nil {
		return m.getMediaFn(ctx, id)
	}
	return []string{}, nil
}

func (m *mockPropertyService) MaxLimit() int {
	if m.maxLimit == 0 {
		return 50
	}
	return m.maxLimit
}

type mockCollectionService struct {
	listFn   func(ctx context.Context, userID string, kind model.CollectionKind) ([]model.PropertyRef, error)
	addFn    func(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) (bool, error)
	removeFn func(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) error
	clearFn  func(ctx context.Context, userID string, kind model.CollectionKind) (int64, error)
	moveFn   func(ctx context.Context, userID string, from, to model.CollectionKind, propertyID string) (bool, error)
}

func (m *mockCollectionService) List(ctx context.Context, userID string, kind model.CollectionKind) ([]model.PropertyRef, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, kind)
	}
	return []model.PropertyRef{}, nil
}

func (m *mockCollectionService) Add(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) (bool, error) {
	if m.addFn != nil {
		return m.addFn(ctx, userID, kind, propertyID)
	}
	return true, nil
}

func (m *mockCollectionService) Remove(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, userID, kind, propertyID)
	}
	return nil
}

func (m *mockCollectionService) Clear(ctx context.Context, userID string, kind model.CollectionKind) (int64, error) {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID, kind)
	}
	return 0, nil
}

func (m *mockCollectionService) Move(ctx context.Context, userID string, from, to model.CollectionKind, propertyID string) (bool, error) {
	if m.moveFn != nil {
		return m.moveFn(ctx, userID, from, to, propertyID)
	}
	return true, nil
}

// --- ルーター構築ヘルパー ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testResolver は "token-<user>" 形式のトークンを<user>に解決する。
func testResolver() auth.UserResolver {
	return auth.ResolverFunc(func(ctx context.Context, credential string) (string, error) {
		const prefix = "token-"
		if len(credential) > len(prefix) && credential[:len(prefix)] == prefix {
			return credential[len(prefix):], nil
		}
		return "", auth.ErrInvalidCredential
	})
}

// newTestRouter はテスト用のルーターを構築する。
// レート制限はテストに影響しない大きな値とする。
func newTestRouter(t *testing.T, props PropertyServiceInterface, coll CollectionServiceInterface) http.Handler {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(100000, 100000), testLogger())
	t.Cleanup(rl.Stop)

	if props == nil {
		props = &mockPropertyService{}
	}
	if coll == nil {
		coll = &mockCollectionService{}
	}

	return NewRouter(&RouterDeps{
		Logger:             testLogger(),
		UserResolver:       testResolver(),
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		RateLimiter:        rl,
		PropertyService:    props,
		CollectionService:  coll,
	})
}

func doRequest(handler http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("status = %d, want %d (body: %s)", w.Code, status, w.Body.String())
	}
	var body middleware.ErrorResponseBody
	decodeJSON(t, w, &body)
	if body.Code != code {
		t.Errorf("code = %q, want %q", body.Code, code)
	}
}
