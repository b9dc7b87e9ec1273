package mls

import (
	"strconv"
	"strings"

	"github.com/hitoshi/estatecart/internal/model"
)

// DefaultBaseFilter は全ての検索に付与する既定の絞り込み条件。
const DefaultBaseFilter = "PropertyType eq 'Residential Freehold' and RentalApplicationYN eq true and OriginatingSystemName eq 'Toronto Regional Real Estate Board'"

// QuoteString は値をODataの文字列リテラルに変換する。
// シングルクォートは2つ重ねてエスケープする。
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// BuildFilter は基本条件と検索条件から$filter式を組み立てる。
// 条件が1つも無い場合は空文字列を返す。
func BuildFilter(base string, f model.SearchFilter) string {
	var clauses []string
	if base = strings.TrimSpace(base); base != "" {
		clauses = append(clauses, base)
	}

	if f.City != "" {
		clauses = append(clauses, "contains(City,"+QuoteString(f.City)+")")
	}
	if f.PropertyType != "" {
		clauses = append(clauses, "PropertySubType eq "+QuoteString(f.PropertyType))
	}
	if f.MinPrice != nil {
		clauses = append(clauses, "ListPrice ge "+formatNumber(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		clauses = append(clauses, "ListPrice le "+formatNumber(*f.MaxPrice))
	}
	if f.MinBedrooms != nil {
		clauses = append(clauses, "BedroomsTotal ge "+strconv.Itoa(*f.MinBedrooms))
	}
	if f.MinBathrooms != nil {
		clauses = append(clauses, "BathroomsTotalInteger ge "+strconv.Itoa(*f.MinBathrooms))
	}

	return strings.Join(clauses, " and ")
}

// ListingKeyFilter は単一物件を取得する$filter式を返す。
func ListingKeyFilter(listingKey string) string {
	return "ListingKey eq " + QuoteString(listingKey)
}

// MediaFilter は物件の大きい写真を取得する$filter式を返す。
func MediaFilter(listingKey string) string {
	return "ResourceRecordKey eq " + QuoteString(listingKey) + " and LargePhotoExists eq true"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
