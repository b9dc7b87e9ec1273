// Package mls はMLS（Multiple Listing Service）のOData APIクライアントを提供する。
// 物件の検索、ListingKeyによる単一物件の取得、物件写真の取得を行う。
// リトライは行わず、失敗は呼び出し元へ即座に返す。
package mls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/estatecart/internal/metrics"
	"github.com/hitoshi/estatecart/internal/model"
)

const (
	// maxResponseSize はMLSレスポンスボディの読み取り上限（10MB）。
	maxResponseSize = 10 * 1024 * 1024

	endpointSearch = "property_search"
	endpointGet    = "property_get"
	endpointMedia  = "media"
)

// Config はMLSクライアントの設定。
type Config struct {
	BaseURL    string // 例: https://query.ampre.ca/odata
	Token      string // Bearerトークン
	BaseFilter string // 全ての検索に付与する$filter条件。空の場合は付与しない
}

// Client はMLS OData APIのクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	baseFilter string
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
}

// NewClient はClientを生成する。
// httpClientのタイムアウトがリクエストごとのタイムアウトとなる。
func NewClient(httpClient *http.Client, cfg Config, logger *slog.Logger, m metrics.MetricsCollector) *Client {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		baseFilter: cfg.BaseFilter,
		logger:     logger,
		metrics:    m,
	}
}

// Search は条件に一致する物件を検索する。
// 次ページの有無を判定するため、limit+1件を要求して超過分は切り捨てる。
func (c *Client) Search(ctx context.Context, f model.SearchFilter) ([]Record, bool, error) {
	params := url.Values{}
	params.Set("$top", strconv.Itoa(f.Limit+1))
	if f.Offset > 0 {
		params.Set("$skip", strconv.Itoa(f.Offset))
	}
	if filter := BuildFilter(c.baseFilter, f); filter != "" {
		params.Set("$filter", filter)
	}
	params.Set("$select", selectFields)

	var resp collection[Record]
	if err := c.get(ctx, endpointSearch, "Property", params, &resp); err != nil {
		return nil, false, err
	}

	records := resp.Value
	hasMore := len(records) > f.Limit
	if hasMore {
		records = records[:f.Limit]
	}
	return records, hasMore, nil
}

// GetByID はListingKeyで単一物件を取得する。
// 該当する物件が無い場合はErrNotFoundを返す。
func (c *Client) GetByID(ctx context.Context, listingKey string) (*Record, error) {
	params := url.Values{}
	params.Set("$filter", ListingKeyFilter(listingKey))
	params.Set("$select", selectFields)
	params.Set("$top", "1")

	var resp collection[Record]
	if err := c.get(ctx, endpointGet, "Property", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Value) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Value[0], nil
}

// Media は物件の写真URLを表示順で取得する。
func (c *Client) Media(ctx context.Context, listingKey string) ([]string, error) {
	params := url.Values{}
	params.Set("$filter", MediaFilter(listingKey))
	params.Set("$orderby", "Order")

	var resp collection[mediaRecord]
	if err := c.get(ctx, endpointMedia, "Media", params, &resp); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(resp.Value))
	for _, m := range resp.Value {
		if m.MediaURL != "" {
			urls = append(urls, m.MediaURL)
		}
	}
	return urls, nil
}

// get はMLSへGETリクエストを送信し、レスポンスをoutにデコードする。
// 結果は分類ごとにメトリクスへ記録する。
func (c *Client) get(ctx context.Context, endpoint, resource string, params url.Values, out any) (err error) {
	start := time.Now()
	outcome := OutcomeOK
	defer func() {
		if err != nil && outcome == OutcomeOK {
			outcome = OutcomeUnavailable
		}
		c.metrics.RecordMLSRequest(endpoint, outcome.String(), time.Since(start))
	}()

	reqURL := c.baseURL + "/" + resource + "?" + encodeQuery(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("MLSリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("MLS APIの呼び出しに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	outcome = ClassifyStatus(resp.StatusCode)
	if outcome != OutcomeOK {
		// 接続を再利用できるようにボディを読み捨てる
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		c.logger.Warn("MLS APIがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		c.logger.Error("MLS APIのレスポンスのパースに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		outcome = OutcomeUnavailable
		return fmt.Errorf("%w: %s: レスポンスJSONのパースに失敗しました: %v", ErrUnavailable, endpoint, err)
	}

	return nil
}

// encodeQuery はクエリパラメータをエンコードする。
// ODataサーバーによっては '+' を空白として扱わないため、空白は %20 で表現する。
func encodeQuery(params url.Values) string {
	return strings.ReplaceAll(params.Encode(), "+", "%20")
}

// IsNotFound はerrがMLS上に物件が存在しないことを表すかを返す。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
