// Package server 是 HTTP 接入层：内部接口，供后端服务调用。
//
// 路由：
//   GET  /health        服务与模型状态（无鉴权）
//   POST /ai/recommend  推荐列表
//   POST /ai/explain    单物品解释
//
// /ai/* 需要 X-Internal-Token 内部令牌。
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rushteam/movierec/engine"
)

// Options 是路由组装参数。
type Options struct {
	Engine        *engine.Engine
	InternalToken string // 为空时 /ai/* 不做鉴权（仅限本地开发）
	Logger        *slog.Logger
}

// NewRouter 组装路由与中间件。
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(logger))
	r.Use(loggingMiddleware(logger))

	h := NewHandler(opts.Engine)

	r.Get("/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(opts.InternalToken))
		r.Post("/ai/recommend", h.recommend)
		r.Post("/ai/explain", h.explain)
	})

	return r
}
