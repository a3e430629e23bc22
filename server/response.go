package server

import (
	"encoding/json"
	"net/http"

	"github.com/rushteam/movierec/core"
)

// errorBody 是错误响应信封：{"error": {"code", "message", "details"}}。
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeDomainError 按领域错误码映射 HTTP 状态。
func writeDomainError(w http.ResponseWriter, err error) {
	domainErr := core.GetDomainError(err)
	if domainErr == nil {
		writeError(w, http.StatusInternalServerError, core.ErrorCodeInternalError, "internal server error")
		return
	}
	status := http.StatusInternalServerError
	switch domainErr.Code {
	case core.ErrorCodeInvalidInput:
		status = http.StatusBadRequest
	case core.ErrorCodeNotFound:
		status = http.StatusNotFound
	case core.ErrorCodeModelNotReady, core.ErrorCodeUnavailable:
		status = http.StatusServiceUnavailable
	case core.ErrorCodeUpstreamTimeout:
		status = http.StatusGatewayTimeout
	}
	writeError(w, status, domainErr.Code, domainErr.Message)
}
