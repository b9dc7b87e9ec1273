package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/estatecart/internal/model"
)

// PostgresCollectionRepo はPostgreSQLを使用したコレクションリポジトリ。
type PostgresCollectionRepo struct {
	db *sql.DB
}

// NewPostgresCollectionRepo はPostgresCollectionRepoを生成する。
func NewPostgresCollectionRepo(db *sql.DB) *PostgresCollectionRepo {
	return &PostgresCollectionRepo{db: db}
}

// Insert はエントリを冪等に追加する。
// UNIQUE(user_id, kind, property_id)制約を利用したINSERT ON CONFLICT DO NOTHINGで実装する。
// 同時に同じエントリが追加された場合も、1行だけが作成される。
func (r *PostgresCollectionRepo) Insert(ctx context.Context, entry *model.CollectionEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO collection_entries (id, user_id, kind, property_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, kind, property_id) DO NOTHING`,
		entry.ID, entry.UserID, string(entry.Kind), entry.PropertyID, entry.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("コレクションへの追加に失敗しました: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("追加件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// Delete は指定エントリを冪等に削除する。
func (r *PostgresCollectionRepo) Delete(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM collection_entries
		 WHERE user_id = $1 AND kind = $2 AND property_id = $3`,
		userID, string(kind), propertyID,
	)
	if err != nil {
		return false, fmt.Errorf("コレクションからの削除に失敗しました: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// DeleteAll はユーザーの指定種別のエントリを全て削除する。
func (r *PostgresCollectionRepo) DeleteAll(ctx context.Context, userID string, kind model.CollectionKind) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM collection_entries WHERE user_id = $1 AND kind = $2`,
		userID, string(kind),
	)
	if err != nil {
		return 0, fmt.Errorf("コレクションの全削除に失敗しました: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// ListByUser はユーザーの指定種別のエントリを追加順で返す。
func (r *PostgresCollectionRepo) ListByUser(ctx context.Context, userID string, kind model.CollectionKind) ([]model.CollectionEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, kind, property_id, created_at
		 FROM collection_entries
		 WHERE user_id = $1 AND kind = $2
		 ORDER BY created_at ASC, property_id ASC`,
		userID, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("コレクション一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	entries := make([]model.CollectionEntry, 0)
	for rows.Next() {
		var e model.CollectionEntry
		var k string
		if err := rows.Scan(&e.ID, &e.UserID, &k, &e.PropertyID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("コレクション行の読み取りに失敗しました: %w", err)
		}
		e.Kind = model.CollectionKind(k)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コレクション一覧の走査に失敗しました: %w", err)
	}

	return entries, nil
}

// Exists は指定エントリが存在するかを返す。
func (r *PostgresCollectionRepo) Exists(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM collection_entries
		     WHERE user_id = $1 AND kind = $2 AND property_id = $3
		 )`,
		userID, string(kind), propertyID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("コレクションの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Ping はデータベースへの接続を確認する。
func (r *PostgresCollectionRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// compile-time interface check
var _ CollectionRepository = (*PostgresCollectionRepo)(nil)
