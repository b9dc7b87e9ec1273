// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/estatecart/internal/model"
)

// CollectionRepository はユーザーコレクション（カート・ウィッシュリスト）の永続化インターフェース。
// (user_id, kind, property_id) の一意性はストレージ側の一意制約で保証する。
// アプリケーション側ではロックを取らない。
type CollectionRepository interface {
	// Insert はエントリを冪等に追加する。
	// 既に同じ (user_id, kind, property_id) が存在する場合は何もせず created=false を返す。
	Insert(ctx context.Context, entry *model.CollectionEntry) (created bool, err error)

	// Delete は指定エントリを冪等に削除する。
	// 存在しない場合もエラーにはせず deleted=false を返す。
	Delete(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) (deleted bool, err error)

	// DeleteAll はユーザーの指定種別のエントリを全て削除し、削除件数を返す。
	DeleteAll(ctx context.Context, userID string, kind model.CollectionKind) (int64, error)

	// ListByUser はユーザーの指定種別のエントリを追加順（created_at昇順、同時刻はproperty_id昇順）で返す。
	ListByUser(ctx context.Context, userID string, kind model.CollectionKind) ([]model.CollectionEntry, error)

	// Exists は指定エントリが存在するかを返す。
	Exists(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) (bool, error)

	// Ping はストレージへの接続を確認する。ヘルスチェックで使用する。
	Ping(ctx context.Context) error
}
