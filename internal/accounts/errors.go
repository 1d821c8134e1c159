package accounts

import "errors"

var (
	ErrDuplicateAccount           = errors.New("an account with this email already exists")
	ErrDependencyWriteFailed      = errors.New("failed to save account data")
	ErrWeakCredential             = errors.New("password does not meet the policy")
	ErrConfirmationMismatch       = errors.New("passwords do not match")
	ErrSessionExpired             = errors.New("session expired")
	ErrAccountNotFound            = errors.New("user not found")
	ErrNotificationFailed         = errors.New("failed to send email")
	ErrInvalidOrganization        = errors.New("invalid organization code")
	ErrUserNotFound               = errors.New("user not found")
	ErrUserInactive               = errors.New("user inactive")
	ErrInvalidTemporaryCredential = errors.New("invalid temporary password")
	ErrInvalidCredential          = errors.New("invalid password")
	ErrCredentialExpired          = errors.New("password expired")
	ErrRoleNotAssigned            = errors.New("no role assigned")
	ErrInvalidInput               = errors.New("invalid input")
	ErrInvalidResetToken          = errors.New("invalid or already used reset link")
	ErrResetTokenExpired          = errors.New("reset link expired")
	ErrForbidden                  = errors.New("forbidden")
)

var outcomes = []struct {
	err  error
	code string
}{
	{ErrDuplicateAccount, "duplicate_account"},
	{ErrDependencyWriteFailed, "dependency_write_failed"},
	{ErrWeakCredential, "weak_credential"},
	{ErrConfirmationMismatch, "confirmation_mismatch"},
	{ErrSessionExpired, "session_expired"},
	{ErrAccountNotFound, "account_not_found"},
	{ErrNotificationFailed, "notification_failed"},
	{ErrInvalidOrganization, "invalid_organization"},
	{ErrUserNotFound, "user_not_found"},
	{ErrUserInactive, "user_inactive"},
	{ErrInvalidTemporaryCredential, "invalid_temporary_credential"},
	{ErrInvalidCredential, "invalid_credential"},
	{ErrCredentialExpired, "credential_expired"},
	{ErrRoleNotAssigned, "role_not_assigned"},
	{ErrInvalidInput, "invalid_input"},
	{ErrInvalidResetToken, "invalid_reset_token"},
	{ErrResetTokenExpired, "reset_token_expired"},
	{ErrForbidden, "forbidden"},
}

// Outcome names the result of a flow for metrics and audit rows.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return o.code
		}
	}
	return "internal_error"
}
