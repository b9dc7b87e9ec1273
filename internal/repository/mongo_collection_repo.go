package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/estatecart/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoCollectionName はコレクションエントリを格納するMongoDBコレクション名。
const MongoCollectionName = "collection_entries"

// mongoCollectionEntry はMongoDB上のドキュメント表現。
type mongoCollectionEntry struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	Kind       string    `bson:"kind"`
	PropertyID string    `bson:"property_id"`
	CreatedAt  time.Time `bson:"created_at"`
}

// MongoCollectionRepo はMongoDBを使用したコレクションリポジトリ。
type MongoCollectionRepo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoCollectionRepo はMongoCollectionRepoを生成する。
func NewMongoCollectionRepo(client *mongo.Client, database string) *MongoCollectionRepo {
	return &MongoCollectionRepo{
		client: client,
		coll:   client.Database(database).Collection(MongoCollectionName),
	}
}

// EnsureIndexes は一意制約と一覧用のインデックスを作成する。
// 既に存在する場合は何もしない。migrateサブコマンドおよび起動時に呼び出す。
func (r *MongoCollectionRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "kind", Value: 1}, {Key: "property_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_collection_entries_user_kind_property"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "kind", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_collection_entries_user_kind_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("インデックスの作成に失敗しました: %w", err)
	}
	return nil
}

// Insert はエントリを冪等に追加する。
// 一意インデックス上で$setOnInsertによるupsertを行うため、既存エントリは変更されない。
func (r *MongoCollectionRepo) Insert(ctx context.Context, entry *model.CollectionEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	filter := entryFilter(entry.UserID, entry.Kind, entry.PropertyID)
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        entry.ID,
		"created_at": entry.CreatedAt,
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// 同時upsertが一意インデックスに衝突した場合は、他方が作成済みとみなす
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("コレクションへの追加に失敗しました: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

// Delete は指定エントリを冪等に削除する。
func (r *MongoCollectionRepo) Delete(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, entryFilter(userID, kind, propertyID))
	if err != nil {
		return false, fmt.Errorf("コレクションからの削除に失敗しました: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// DeleteAll はユーザーの指定種別のエントリを全て削除する。
func (r *MongoCollectionRepo) DeleteAll(ctx context.Context, userID string, kind model.CollectionKind) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID, "kind": string(kind)})
	if err != nil {
		return 0, fmt.Errorf("コレクションの全削除に失敗しました: %w", err)
	}
	return res.DeletedCount, nil
}

// ListByUser はユーザーの指定種別のエントリを追加順で返す。
func (r *MongoCollectionRepo) ListByUser(ctx context.Context, userID string, kind model.CollectionKind) ([]model.CollectionEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "property_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID, "kind": string(kind)}, opts)
	if err != nil {
		return nil, fmt.Errorf("コレクション一覧の取得に失敗しました: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoCollectionEntry
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("コレクション一覧のデコードに失敗しました: %w", err)
	}

	entries := make([]model.CollectionEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, d.toModel())
	}
	return entries, nil
}

// Exists は指定エントリが存在するかを返す。
func (r *MongoCollectionRepo) Exists(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, entryFilter(userID, kind, propertyID), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("コレクションの存在確認に失敗しました: %w", err)
	}
	return n > 0, nil
}

// Ping はMongoDBへの接続を確認する。
func (r *MongoCollectionRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func entryFilter(userID string, kind model.CollectionKind, propertyID string) bson.M {
	return bson.M{
		"user_id":     userID,
		"kind":        string(kind),
		"property_id": propertyID,
	}
}

func (d mongoCollectionEntry) toModel() model.CollectionEntry {
	return model.CollectionEntry{
		ID:         d.ID,
		UserID:     d.UserID,
		Kind:       model.CollectionKind(d.Kind),
		PropertyID: d.PropertyID,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

// compile-time interface check
var _ CollectionRepository = (*MongoCollectionRepo)(nil)
