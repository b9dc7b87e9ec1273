package model

import "time"

// CollectionKind はユーザーコレクションの種別を表す。
// カートとウィッシュリストは同一の仕組みで管理される。
type CollectionKind string

const (
	// CollectionCart はカートを表す。
	CollectionCart CollectionKind = "cart"
	// CollectionWishlist はウィッシュリストを表す。
	CollectionWishlist CollectionKind = "wishlist"
)

// Valid はコレクション種別が定義済みの値かを返す。
func (k CollectionKind) Valid() bool {
	return k == CollectionCart || k == CollectionWishlist
}

// ParseCollectionKind は文字列をCollectionKindに変換する。
// 未定義の値の場合はAPIErrorを返す。
func ParseCollectionKind(s string) (CollectionKind, error) {
	k := CollectionKind(s)
	if !k.Valid() {
		return "", NewInvalidCollectionKindError(s)
	}
	return k, nil
}

// CollectionEntry はユーザーのコレクションに含まれる1件の物件を表す。
// (UserID, Kind, PropertyID) の組は一意であり、集合として扱う。
type CollectionEntry struct {
	ID         string
	UserID     string
	Kind       CollectionKind
	PropertyID string
	CreatedAt  time.Time
}
