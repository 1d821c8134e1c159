package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"

	"releaseguard/internal/accounts"
	"releaseguard/internal/api/middleware"
	"releaseguard/internal/pkg/errors"
)

type AuthHandler struct {
	accounts *accounts.Service
	// concealAccounts answers forgot-password requests for unknown
	// addresses the same way as for known ones.
	concealAccounts bool
}

func NewAuthHandler(svc *accounts.Service, concealAccounts bool) *AuthHandler {
	return &AuthHandler{accounts: svc, concealAccounts: concealAccounts}
}

type SignupRequest struct {
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	OrganizationName string `json:"organization_name"`
	OrganizationCode string `json:"organization_code"`
	Role             string `json:"role"`
}

type SignupResponse struct {
	UserID          string `json:"user_id"`
	OrganizationID  string `json:"organization_id"`
	Destination     string `json:"destination"`
	BootstrapTicket string `json:"bootstrap_ticket"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.accounts.Register(r.Context(), accounts.RegistrationInput{
		FullName:         req.FullName,
		Email:            req.Email,
		OrganizationName: req.OrganizationName,
		OrganizationCode: req.OrganizationCode,
		RoleName:         req.Role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	errors.WriteJSON(w, http.StatusCreated, SignupResponse{
		UserID:          res.UserID,
		OrganizationID:  res.OrganizationID,
		Destination:     res.Destination,
		BootstrapTicket: res.BootstrapTicket,
	})
}

type SetPasswordRequest struct {
	UserID          string `json:"user_id"`
	Ticket          string `json:"bootstrap_ticket"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type DirectiveResponse struct {
	Message     string `json:"message,omitempty"`
	Destination string `json:"destination"`
	UserID      string `json:"user_id,omitempty"`
}

func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	d, err := h.accounts.SetPassword(r.Context(), accounts.SetPasswordInput{
		UserID:       req.UserID,
		Ticket:       req.Ticket,
		Password:     req.Password,
		Confirmation: req.ConfirmPassword,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	errors.WriteJSON(w, http.StatusOK, DirectiveResponse{
		Message:     "Password set successfully",
		Destination: d.Destination,
		UserID:      d.UserID,
	})
}

type VerifyResetResponse struct {
	Valid bool   `json:"valid"`
	Email string `json:"email"`
}

// VerifyReset checks a reset link before the new-password form is shown.
func (h *AuthHandler) VerifyReset(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.VerifyResetToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, VerifyResetResponse{Valid: true, Email: user.Email})
}

type ResetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	d, err := h.accounts.ResetPassword(r.Context(), accounts.ResetPasswordInput{
		Token:        req.Token,
		Password:     req.Password,
		Confirmation: req.ConfirmPassword,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	errors.WriteJSON(w, http.StatusOK, DirectiveResponse{
		Message:     "Password reset successfully",
		Destination: d.Destination,
	})
}

type ForgetPasswordRequest struct {
	Email string `json:"email"`
}

const forgetPasswordSent = "Password reset link sent to your email"

// ForgetPassword answers 200 on success, 400 without an email, 404 for an
// unknown account and 500 when the store or the mail provider fails.
func (h *AuthHandler) ForgetPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Email is required", nil)
		return
	}

	err := h.accounts.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		if !(h.concealAccounts && stderrors.Is(err, accounts.ErrAccountNotFound)) {
			writeServiceError(w, r, err)
			return
		}
	}

	errors.WriteJSON(w, http.StatusOK, MessageResponse{Message: forgetPasswordSent})
}

type LoginRequest struct {
	OrganizationCode string `json:"organization_code"`
	Email            string `json:"email"`
	Password         string `json:"password"`
}

// LoginResponse carries either a session or, when a temporary password was
// used, the set-password directive with its bootstrap ticket.
type LoginResponse struct {
	Destination     string                `json:"destination"`
	UserID          string                `json:"user_id,omitempty"`
	BootstrapTicket string                `json:"bootstrap_ticket,omitempty"`
	AccessToken     string                `json:"access_token,omitempty"`
	ExpiresAt       int64                 `json:"expires_at,omitempty"`
	Session         *accounts.SessionInfo `json:"session,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.accounts.SignIn(r.Context(), accounts.SignInInput{
		OrganizationCode: req.OrganizationCode,
		Email:            req.Email,
		Password:         req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := LoginResponse{
		Destination:     res.Destination,
		UserID:          res.UserID,
		BootstrapTicket: res.BootstrapTicket,
		AccessToken:     res.AccessToken,
		Session:         res.Session,
	}
	if res.AccessToken != "" {
		resp.ExpiresAt = res.ExpiresAt.UnixMilli()
	}
	errors.WriteJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	if err := h.accounts.SignOut(r.Context(), actor); err != nil {
		writeServiceError(w, r, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, DirectiveResponse{
		Message:     "Signed out",
		Destination: accounts.DestinationLogin,
	})
}

// Me re-derives the caller's role and destination from stored state.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	profile, err := h.accounts.Profile(r.Context(), actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, profile)
}
