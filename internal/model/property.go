package model

import "time"

// Property はMLSから取得する物件情報を表す。
// データの所有者はMLSであり、このサービスが更新することはない。
type Property struct {
	ID            string // MLSのListingKey
	Address       string // 表示用に整形した住所
	City          string
	CityRegion    string
	PropertyType  string
	ListPrice     *float64 // 未掲載の場合はnil
	Bedrooms      *int
	Bathrooms     *int
	ParkingSpaces *int
	LivingArea    string
	Description   string // サニタイズ済みの物件説明
	ListedAt      string // MLSのListingContractDate（書式はMLS依存のため文字列のまま保持）
	Media         []string
}

// PropertyRef はコレクション一覧の1件を表す。
// 物件情報と、コレクションに追加された日時を保持する。
type PropertyRef struct {
	Property
	AddedAt time.Time
}

// SearchFilter は物件検索条件を表す。
// nilのフィールドは条件として使用しない。
type SearchFilter struct {
	City         string
	PropertyType string
	MinPrice     *float64
	MaxPrice     *float64
	MinBedrooms  *int
	MinBathrooms *int
	Limit        int
	Offset       int
}

// SearchPage は物件検索結果の1ページを表す。
type SearchPage struct {
	Properties []Property
	NextCursor string // 次ページが無い場合は空文字列
	HasMore    bool
}
