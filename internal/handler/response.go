package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/estatecart/internal/model"
)

// propertyResponse は物件情報のAPIレスポンス。
type propertyResponse struct {
	ID            string   `json:"id"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	CityRegion    string   `json:"city_region,omitempty"`
	PropertyType  string   `json:"property_type"`
	ListPrice     *float64 `json:"list_price"`
	Bedrooms      *int     `json:"bedrooms"`
	Bathrooms     *int     `json:"bathrooms"`
	ParkingSpaces *int     `json:"parking_spaces"`
	LivingArea    string   `json:"living_area,omitempty"`
	Description   string   `json:"description"`
	ListedAt      string   `json:"listed_at,omitempty"`
	Media         []string `json:"media"`
}

// propertyRefResponse はコレクション一覧の1件のAPIレスポンス。
type propertyRefResponse struct {
	propertyResponse
	AddedAt time.Time `json:"added_at"`
}

// listResponse は一覧系エンドポイントの共通レスポンス。
type listResponse[T any] struct {
	Items      []T    `json:"items"`
	Count      int    `json:"count"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    *bool  `json:"has_more,omitempty"`
}

// homeResponse はトップページ初期表示のAPIレスポンス。
// 匿名アクセスの場合、userはnullとなる。
type homeResponse struct {
	Properties      []propertyResponse `json:"properties"`
	User            *homeUser          `json:"user"`
	TotalProperties int                `json:"total_properties"`
}

type homeUser struct {
	ID string `json:"id"`
}

// addResponse はコレクションへの追加のAPIレスポンス。
type addResponse struct {
	OK      bool `json:"ok"`
	Created bool `json:"created"`
}

func toPropertyResponse(p model.Property) propertyResponse {
	media := p.Media
	if media == nil {
		media = []string{}
	}
	return propertyResponse{
		ID:            p.ID,
		Address:       p.Address,
		City:          p.City,
		CityRegion:    p.CityRegion,
		PropertyType:  p.PropertyType,
		ListPrice:     p.ListPrice,
		Bedrooms:      p.Bedrooms,
		Bathrooms:     p.Bathrooms,
		ParkingSpaces: p.ParkingSpaces,
		LivingArea:    p.LivingArea,
		Description:   p.Description,
		ListedAt:      p.ListedAt,
		Media:         media,
	}
}

func toPropertyRefResponse(ref model.PropertyRef) propertyRefResponse {
	return propertyRefResponse{
		propertyResponse: toPropertyResponse(ref.Property),
		AddedAt:          ref.AddedAt.UTC(),
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
