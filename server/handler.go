package server

import (
	"encoding/json"
	"net/http"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/engine"
)

// Handler 是 HTTP 适配层：只做编解码与错误映射，业务语义全部在 engine。
type Handler struct {
	Engine *engine.Engine
}

func NewHandler(e *engine.Engine) *Handler {
	return &Handler{Engine: e}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	health := h.Engine.Healthz()
	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (h *Handler) recommend(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "malformed request body")
		return
	}
	if req.RequestID == "" {
		req.RequestID = requestIDFromContext(r.Context())
	}

	resp, err := h.Engine.Recommend(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) explain(w http.ResponseWriter, r *http.Request) {
	var req engine.ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, core.ErrorCodeInvalidInput, "malformed request body")
		return
	}
	if req.RequestID == "" {
		req.RequestID = requestIDFromContext(r.Context())
	}

	resp, err := h.Engine.Explain(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
