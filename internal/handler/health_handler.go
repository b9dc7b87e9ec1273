package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// healthCheckTimeout は依存先ごとの疎通確認のタイムアウト。
const healthCheckTimeout = 3 * time.Second

// healthResponse はヘルスチェックのAPIレスポンス。
type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// NewHealthHandler は全ての依存先の疎通を確認するハンドラーを返す。
// いずれかが失敗した場合は503を返す。エラーの詳細はログにのみ記録する。
func NewHealthHandler(checks map[string]HealthChecker, logger *slog.Logger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Components: make(map[string]string, len(names))}
		statusCode := http.StatusOK

		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := checks[name].Ping(ctx)
			cancel()

			if err != nil {
				logger.Error("health check failed",
					slog.String("component", name),
					slog.String("error", err.Error()),
				)
				resp.Components[name] = "unavailable"
				resp.Status = "unavailable"
				statusCode = http.StatusServiceUnavailable
				continue
			}
			resp.Components[name] = "ok"
		}

		writeJSON(w, statusCode, resp)
	}
}
