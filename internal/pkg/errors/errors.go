package errors

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeDuplicateAccount   = "DUPLICATE_ACCOUNT"
	ErrCodeWeakCredential     = "WEAK_CREDENTIAL"
	ErrCodeMismatch           = "CONFIRMATION_MISMATCH"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeCredentialExpired  = "CREDENTIAL_EXPIRED"
	ErrCodeInvalidCredential  = "INVALID_CREDENTIAL"
	ErrCodeInvalidOrg         = "INVALID_ORGANIZATION"
	ErrCodeUserInactive       = "USER_INACTIVE"
	ErrCodeRoleNotAssigned    = "ROLE_NOT_ASSIGNED"
	ErrCodeInvalidResetToken  = "INVALID_RESET_TOKEN"
	ErrCodeNotificationFailed = "NOTIFICATION_FAILED"
	ErrCodeDependencyFailed   = "DEPENDENCY_WRITE_FAILED"
)

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// WriteJSON writes v with the given status. Auth responses carry tokens, so
// they are never cacheable.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
