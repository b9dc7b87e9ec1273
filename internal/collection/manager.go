// Package collection はユーザーのカートとウィッシュリストを管理する。
//
// カートとウィッシュリストは同一の仕組みで、(user_id, kind, property_id) の集合として扱う。
// 追加と削除は冪等であり、同時実行時の一意性はリポジトリの一意制約に委ねる。
// 一覧取得では、物件情報を解決できないエントリを結果から除外する。
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/estatecart/internal/metrics"
	"github.com/hitoshi/estatecart/internal/model"
	"github.com/hitoshi/estatecart/internal/repository"
	"golang.org/x/sync/errgroup"
)

const defaultLookupConcurrency = 4

// 操作名（メトリクスのopラベル）
const (
	opList   = "list"
	opAdd    = "add"
	opRemove = "remove"
	opClear  = "clear"
	opMove   = "move"
)

// 操作結果（メトリクスのresultラベル）
const (
	resultOK       = "ok"
	resultCreated  = "created"
	resultNoop     = "noop"
	resultInvalid  = "invalid"
	resultUpstream = "upstream_error"
	resultError    = "error"
)

// PropertyLookup は物件の存在確認と表示用データの取得を行うインターフェース。
// 物件が存在しない場合は (nil, nil) を返す。
type PropertyLookup interface {
	LookupProperty(ctx context.Context, id string) (*model.Property, error)
}

// Manager はカート・ウィッシュリストの操作を提供する。
// プロセス内でのロックは行わない。
type Manager struct {
	repo        repository.CollectionRepository
	lookup      PropertyLookup
	concurrency int
	logger      *slog.Logger
	metrics     metrics.MetricsCollector
}

// NewManager はManagerを生成する。
// concurrencyは一覧取得時の物件解決の並行数で、0以下の場合は既定値を使用する。
func NewManager(
	repo repository.CollectionRepository,
	lookup PropertyLookup,
	concurrency int,
	logger *slog.Logger,
	m metrics.MetricsCollector,
) *Manager {
	if concurrency <= 0 {
		concurrency = defaultLookupConcurrency
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Manager{
		repo:        repo,
		lookup:      lookup,
		concurrency: concurrency,
		logger:      logger,
		metrics:     m,
	}
}

// List はユーザーのコレクションを追加順で返す。
// 物件情報を解決できないエントリ（掲載終了、MLS障害）は結果から除外する。
func (m *Manager) List(ctx context.Context, userID string, kind model.CollectionKind) ([]model.PropertyRef, error) {
	if !kind.Valid() {
		return nil, model.NewInvalidCollectionKindError(string(kind))
	}

	entries, err := m.repo.ListByUser(ctx, userID, kind)
	if err != nil {
		m.metrics.RecordCollectionOp(string(kind), opList, resultError)
		return nil, fmt.Errorf("コレクション一覧の取得に失敗しました: %w", err)
	}

	resolved := make([]*model.PropertyRef, len(entries))
	var g errgroup.Group
	g.SetLimit(m.concurrency)

	for i, entry := range entries {
		g.Go(func() error {
			p, err := m.lookup.LookupProperty(ctx, entry.PropertyID)
			if err != nil {
				m.logger.Warn("コレクションの物件情報の取得に失敗しました",
					slog.String("kind", string(kind)),
					slog.String("property_id", entry.PropertyID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if p == nil {
				m.logger.Info("コレクションに存在しない物件が含まれています",
					slog.String("kind", string(kind)),
					slog.String("property_id", entry.PropertyID),
				)
				return nil
			}
			resolved[i] = &model.PropertyRef{Property: *p, AddedAt: entry.CreatedAt}
			return nil
		})
	}
	_ = g.Wait()

	refs := make([]model.PropertyRef, 0, len(entries))
	for _, r := range resolved {
		if r != nil {
			refs = append(refs, *r)
		}
	}

	m.metrics.RecordUnresolvedEntries(string(kind), len(entries)-len(refs))
	m.metrics.RecordCollectionOp(string(kind), opList, resultOK)
	return refs, nil
}

// Add は物件をコレクションに追加する。
// 物件が存在しない場合はINVALID_PROPERTY、MLSに接続できない場合はUPSTREAM_UNAVAILABLEを返す。
// 既に追加済みの場合もエラーにはせず created=false を返す。
func (m *Manager) Add(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) (bool, error) {
	if !kind.Valid() {
		return false, model.NewInvalidCollectionKindError(string(kind))
	}

	created, err := m.add(ctx, userID, kind, propertyID)
	m.metrics.RecordCollectionOp(string(kind), opAdd, resultOf(created, true, err))
	return created, err
}

func (m *Manager) add(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) (bool, error) {
	if propertyID == "" {
		return false, model.NewInvalidPropertyError(propertyID)
	}

	p, err := m.lookup.LookupProperty(ctx, propertyID)
	if err != nil {
		m.logger.Error("物件の存在確認に失敗しました",
			slog.String("property_id", propertyID),
			slog.String("error", err.Error()),
		)
		return false, model.NewUpstreamUnavailableError("mls")
	}
	if p == nil {
		return false, model.NewInvalidPropertyError(propertyID)
	}

	created, err := m.repo.Insert(ctx, &model.CollectionEntry{
		UserID:     userID,
		Kind:       kind,
		PropertyID: propertyID,
	})
	if err != nil {
		return false, fmt.Errorf("コレクションへの追加に失敗しました: %w", err)
	}
	return created, nil
}

// Remove は物件をコレクションから削除する。
// 物件の存在確認は行わないため、掲載終了した物件も削除できる。存在しない場合も成功とする。
func (m *Manager) Remove(ctx context.Context, userID string, kind model.CollectionKind, propertyID string) error {
	if !kind.Valid() {
		return model.NewInvalidCollectionKindError(string(kind))
	}

	deleted, err := m.repo.Delete(ctx, userID, kind, propertyID)
	if err != nil {
		m.metrics.RecordCollectionOp(string(kind), opRemove, resultError)
		return fmt.Errorf("コレクションからの削除に失敗しました: %w", err)
	}
	m.metrics.RecordCollectionOp(string(kind), opRemove, resultOf(deleted, false, nil))
	return nil
}

// Clear はユーザーのコレクションを空にし、削除件数を返す。
func (m *Manager) Clear(ctx context.Context, userID string, kind model.CollectionKind) (int64, error) {
	if !kind.Valid() {
		return 0, model.NewInvalidCollectionKindError(string(kind))
	}

	n, err := m.repo.DeleteAll(ctx, userID, kind)
	if err != nil {
		m.metrics.RecordCollectionOp(string(kind), opClear, resultError)
		return 0, fmt.Errorf("コレクションの全削除に失敗しました: %w", err)
	}
	m.metrics.RecordCollectionOp(string(kind), opClear, resultOf(n > 0, false, nil))
	return n, nil
}

// Move は物件をfromのコレクションからtoのコレクションへ移動する。
// 移動先への追加（物件の存在確認を含む）が成功した後に移動元から削除するため、
// 途中で失敗しても物件が両方から消えることはない。再実行しても同じ結果になる。
// 移動元に無く移動先に既にある場合は移動済みとみなし、MLSへ問い合わせずに created=false を返す。
func (m *Manager) Move(ctx context.Context, userID string, from, to model.CollectionKind, propertyID string) (bool, error) {
	if !from.Valid() {
		return false, model.NewInvalidCollectionKindError(string(from))
	}
	if !to.Valid() || to == from {
		return false, model.NewInvalidCollectionKindError(string(to))
	}

	moved, err := m.alreadyMoved(ctx, userID, from, to, propertyID)
	if err != nil {
		m.metrics.RecordCollectionOp(string(to), opMove, resultError)
		return false, err
	}
	if moved {
		m.metrics.RecordCollectionOp(string(to), opMove, resultNoop)
		return false, nil
	}

	created, err := m.add(ctx, userID, to, propertyID)
	if err != nil {
		m.metrics.RecordCollectionOp(string(to), opMove, resultOf(false, true, err))
		return false, err
	}

	if _, err := m.repo.Delete(ctx, userID, from, propertyID); err != nil {
		m.metrics.RecordCollectionOp(string(to), opMove, resultError)
		return false, fmt.Errorf("移動元コレクションからの削除に失敗しました: %w", err)
	}

	m.metrics.RecordCollectionOp(string(to), opMove, resultOf(created, true, nil))
	return created, nil
}

func (m *Manager) alreadyMoved(ctx context.Context, userID string, from, to model.CollectionKind, propertyID string) (bool, error) {
	inSource, err := m.repo.Exists(ctx, userID, from, propertyID)
	if err != nil {
		return false, fmt.Errorf("移動元コレクションの確認に失敗しました: %w", err)
	}
	if inSource {
		return false, nil
	}
	inTarget, err := m.repo.Exists(ctx, userID, to, propertyID)
	if err != nil {
		return false, fmt.Errorf("移動先コレクションの確認に失敗しました: %w", err)
	}
	return inTarget, nil
}

// resultOf は操作結果をメトリクスのラベル値に変換する。
func resultOf(changed, isAdd bool, err error) string {
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case model.ErrCodeInvalidProperty:
				return resultInvalid
			case model.ErrCodeUpstreamUnavailable:
				return resultUpstream
			}
		}
		return resultError
	}
	if !changed {
		return resultNoop
	}
	if isAdd {
		return resultCreated
	}
	return resultOK
}
