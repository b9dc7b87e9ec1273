package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// userInfoPath はIdentity Providerのユーザー情報エンドポイントのパス。
const userInfoPath = "/auth/v1/user"

// RemoteResolver はIdentity Providerのユーザー情報エンドポイントに問い合わせてトークンを検証する。
// 署名鍵を共有できない構成で使用する。
type RemoteResolver struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// NewRemoteResolver はRemoteResolverを生成する。
// apiKeyはIdentity Providerが要求する場合にapikeyヘッダーとして送信する。
func NewRemoteResolver(httpClient *http.Client, baseURL, apiKey string, logger *slog.Logger) *RemoteResolver {
	return &RemoteResolver{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}
}

// remoteUser はユーザー情報エンドポイントのレスポンス。
type remoteUser struct {
	ID string `json:"id"`
}

// ResolveUserID はトークンでユーザー情報を取得し、ユーザーIDを返す。
// 401/403はErrInvalidCredential、それ以外の失敗はErrUnavailableとして返す。
func (r *RemoteResolver) ResolveUserID(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ErrInvalidCredential
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+userInfoPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("apikey", r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Error("Identity Providerへの問い合わせに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrInvalidCredential
	case resp.StatusCode != http.StatusOK:
		r.logger.Warn("Identity Providerがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read user info response: %v", ErrUnavailable, err)
	}

	var user remoteUser
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("%w: failed to parse user info response: %v", ErrUnavailable, err)
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: empty id in user info response", ErrInvalidCredential)
	}

	return user.ID, nil
}

// compile-time interface check
var _ UserResolver = (*RemoteResolver)(nil)
