package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/hlog"
	apiContext "releaseguard/internal/api/context"
	"releaseguard/internal/accounts"
	"releaseguard/internal/pkg/errors"
)

type errorMapping struct {
	err    error
	status int
	code   string
	// detail surfaces the wrapped message, e.g. which field failed.
	detail bool
}

var errorMappings = []errorMapping{
	{accounts.ErrInvalidInput, http.StatusBadRequest, errors.ErrCodeInvalidInput, true},
	{accounts.ErrWeakCredential, http.StatusBadRequest, errors.ErrCodeWeakCredential, true},
	{accounts.ErrConfirmationMismatch, http.StatusBadRequest, errors.ErrCodeMismatch, false},
	{accounts.ErrDuplicateAccount, http.StatusConflict, errors.ErrCodeDuplicateAccount, false},
	{accounts.ErrSessionExpired, http.StatusUnauthorized, errors.ErrCodeSessionExpired, false},
	{accounts.ErrAccountNotFound, http.StatusNotFound, errors.ErrCodeNotFound, false},
	{accounts.ErrUserNotFound, http.StatusNotFound, errors.ErrCodeNotFound, false},
	{accounts.ErrInvalidOrganization, http.StatusUnauthorized, errors.ErrCodeInvalidOrg, false},
	{accounts.ErrUserInactive, http.StatusForbidden, errors.ErrCodeUserInactive, false},
	{accounts.ErrInvalidTemporaryCredential, http.StatusUnauthorized, errors.ErrCodeInvalidCredential, false},
	{accounts.ErrInvalidCredential, http.StatusUnauthorized, errors.ErrCodeInvalidCredential, false},
	{accounts.ErrCredentialExpired, http.StatusForbidden, errors.ErrCodeCredentialExpired, false},
	{accounts.ErrRoleNotAssigned, http.StatusForbidden, errors.ErrCodeRoleNotAssigned, false},
	{accounts.ErrInvalidResetToken, http.StatusBadRequest, errors.ErrCodeInvalidResetToken, false},
	{accounts.ErrResetTokenExpired, http.StatusBadRequest, errors.ErrCodeInvalidResetToken, false},
	{accounts.ErrForbidden, http.StatusForbidden, errors.ErrCodeForbidden, false},
	{accounts.ErrNotificationFailed, http.StatusInternalServerError, errors.ErrCodeNotificationFailed, false},
	{accounts.ErrDependencyWriteFailed, http.StatusInternalServerError, errors.ErrCodeDependencyFailed, false},
}

// writeServiceError turns an accounts error into a response. Anything not in
// the table is logged and reported as an internal error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if !stderrors.Is(err, m.err) {
			continue
		}
		msg := m.err.Error()
		if m.detail {
			msg = err.Error()
		}
		if m.status >= http.StatusInternalServerError {
			hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		}
		errors.WriteError(w, m.status, m.code, msg, nil)
		return
	}

	hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal server error", nil)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return false
	}
	return true
}

func param(r *http.Request, name string) string {
	ps, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return ps.ByName(name)
}

type MessageResponse struct {
	Message string `json:"message"`
}
