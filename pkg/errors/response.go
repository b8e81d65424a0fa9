package errors

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Fallback messages used when the API gives no usable detail
const (
	MessageBadRequest   = "Bad request"
	MessageUnauthorized = "Unauthorized access. Please log in."
	MessageForbidden    = "You do not have permission to access this resource."
	MessageNotFound     = "Resource not found."
	MessageConflict     = "Conflict"
	MessageUnavailable  = "Service temporarily unavailable"
	MessageGeneric      = "An error occurred!"
)

// FromResponse classifies a non-2xx response. The API reports human readable
// detail under inconsistent keys ("detail", "message", "error"); whichever is
// present is normalized into Detail, and Message falls back to a per-status
// default when none is.
func FromResponse(status int, body []byte) *AppError {
	detail := ExtractDetail(body)

	appErr := &AppError{
		Type:       typeForStatus(status),
		Detail:     detail,
		HTTPStatus: status,
	}

	if detail != "" {
		appErr.Message = detail
	} else {
		appErr.Message = defaultMessage(status)
	}

	return appErr
}

// ExtractDetail returns the server supplied message from an error body, or ""
func ExtractDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	for _, key := range []string{"detail", "message", "error"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		if msg := flattenDetail(raw); msg != "" {
			return msg
		}
	}

	return ""
}

// flattenDetail handles the three shapes seen in practice: a plain string, a
// list of {"msg": ...} validation entries, and an object with a message field.
func flattenDetail(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var entries []struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &entries); err == nil {
		parts := make([]string, 0, len(entries))
		for _, entry := range entries {
			switch {
			case entry.Msg != "":
				parts = append(parts, entry.Msg)
			case entry.Message != "":
				parts = append(parts, entry.Message)
			}
		}
		return strings.Join(parts, "; ")
	}

	var object struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &object); err == nil {
		if object.Message != "" {
			return object.Message
		}
		return object.Detail
	}

	return ""
}

func typeForStatus(status int) ErrorType {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrorTypeValidation
	case http.StatusUnauthorized:
		return ErrorTypeUnauthorized
	case http.StatusForbidden:
		return ErrorTypeForbidden
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusConflict:
		return ErrorTypeConflict
	case http.StatusServiceUnavailable:
		return ErrorTypeUnavailable
	default:
		return ErrorTypeUnknown
	}
}

func defaultMessage(status int) string {
	switch typeForStatus(status) {
	case ErrorTypeValidation:
		return MessageBadRequest
	case ErrorTypeUnauthorized:
		return MessageUnauthorized
	case ErrorTypeForbidden:
		return MessageForbidden
	case ErrorTypeNotFound:
		return MessageNotFound
	case ErrorTypeConflict:
		return MessageConflict
	case ErrorTypeUnavailable:
		return MessageUnavailable
	default:
		return MessageGeneric
	}
}

// UserMessage picks the text to show a user for err. Server detail wins for
// API errors, then the caller's fallback, then the per-status default.
// Network and unknown failures never surface raw text.
func UserMessage(err error, fallback string) string {
	appErr := GetAppError(err)
	if appErr == nil {
		return orGeneric(fallback)
	}

	switch appErr.Type {
	case ErrorTypeNetwork, ErrorTypeUnknown:
		return orGeneric(fallback)
	}

	if appErr.Detail != "" {
		return appErr.Detail
	}
	if fallback != "" {
		return fallback
	}
	return orGeneric(appErr.Message)
}

func orGeneric(message string) string {
	if message == "" {
		return MessageGeneric
	}
	return message
}
