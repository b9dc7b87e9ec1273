package handler

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/estatecart/internal/model"
)

// maxQueryValueLength はテキスト系クエリパラメータの最大長。
const maxQueryValueLength = 100

// searchQuery は物件検索のクエリパラメータ。
// 値はparseSearchQueryで検証済みであり、サービス層にはそのまま渡す。
type searchQuery struct {
	City         string
	PropertyType string
	MinPrice     *float64
	MaxPrice     *float64
	Bedrooms     *int
	Bathrooms    *int
	Limit        int
	Cursor       string
}

// parseSearchQuery はクエリパラメータを検証してsearchQueryに変換する。
// 数値でない値、負の値、min_price > max_price、範囲外のlimitはINVALID_QUERYとする。
// 未知のパラメータは無視する。
func parseSearchQuery(values url.Values, maxLimit int) (*searchQuery, error) {
	q := &searchQuery{}
	var err error

	if q.City, err = textParam(values, "city"); err != nil {
		return nil, err
	}
	if q.PropertyType, err = textParam(values, "property_type"); err != nil {
		return nil, err
	}
	if q.MinPrice, err = priceParam(values, "min_price"); err != nil {
		return nil, err
	}
	if q.MaxPrice, err = priceParam(values, "max_price"); err != nil {
		return nil, err
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return nil, model.NewInvalidQueryError("min_price は max_price 以下である必要があります")
	}
	if q.Bedrooms, err = countParam(values, "bedrooms"); err != nil {
		return nil, err
	}
	if q.Bathrooms, err = countParam(values, "bathrooms"); err != nil {
		return nil, err
	}

	limit, err := countParam(values, "limit")
	if err != nil {
		return nil, err
	}
	if limit != nil {
		if *limit < 1 || *limit > maxLimit {
			return nil, model.NewInvalidQueryError("limit は 1 から " + strconv.Itoa(maxLimit) + " の範囲で指定してください")
		}
		q.Limit = *limit
	}

	q.Cursor = strings.TrimSpace(values.Get("cursor"))
	return q, nil
}

// toFilter は検証済みのクエリを検索条件に変換する。
func (q *searchQuery) toFilter() model.SearchFilter {
	return model.SearchFilter{
		City:         q.City,
		PropertyType: q.PropertyType,
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
		MinBedrooms:  q.Bedrooms,
		MinBathrooms: q.Bathrooms,
		Limit:        q.Limit,
	}
}

func textParam(values url.Values, name string) (string, error) {
	v := strings.TrimSpace(values.Get(name))
	if len(v) > maxQueryValueLength {
		return "", model.NewInvalidQueryError(name + " が長すぎます")
	}
	return v, nil
}

func priceParam(values url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil, model.NewInvalidQueryError(name + " には0以上の数値を指定してください")
	}
	return &v, nil
}

func countParam(values url.Values, name string) (*int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil, model.NewInvalidQueryError(name + " には0以上の整数を指定してください")
	}
	return &v, nil
}
