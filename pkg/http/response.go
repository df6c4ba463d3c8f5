package http

import (
	"encoding/json"
	"net/http"

	apperrors "hallbook/pkg/errors"
)

type ErrorResponse struct {
	Success bool           `json:"success"`
	Code    string         `json:"code"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type PaginatedResponse struct {
	Success    bool  `json:"success"`
	Data       any   `json:"data"`
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, err error) {
	appErr := apperrors.AsAppError(err)

	var statusCode int
	switch appErr.Code {
	case apperrors.CodeInvalidInput, apperrors.CodeBadRequest:
		statusCode = http.StatusBadRequest
	case apperrors.CodeUnauthorized:
		statusCode = http.StatusUnauthorized
	case apperrors.CodeForbidden:
		statusCode = http.StatusForbidden
	case apperrors.CodeNotFound:
		statusCode = http.StatusNotFound
	case apperrors.CodeConflict:
		statusCode = http.StatusConflict
	case apperrors.CodeValidation:
		statusCode = http.StatusUnprocessableEntity
	case apperrors.CodeTimeout:
		statusCode = http.StatusGatewayTimeout
	case apperrors.CodeUnavailable:
		statusCode = http.StatusServiceUnavailable
	default:
		statusCode = http.StatusInternalServerError
	}

	WriteJSON(w, statusCode, ErrorResponse{
		Success: false,
		Code:    appErr.Code,
		Error:   appErr.Message,
		Details: appErr.Details,
	})
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data})
}

func WriteMessage(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: message, Data: data})
}

func WriteCreated(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusCreated, SuccessResponse{Success: true, Message: message, Data: data})
}

func WriteAccepted(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusAccepted, SuccessResponse{Success: true, Message: message, Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func WritePaginated(w http.ResponseWriter, data any, totalCount int64, limit int, offset int) {
	WriteJSON(w, http.StatusOK, PaginatedResponse{
		Success:    true,
		Data:       data,
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	})
}
