package handlers

import (
	"net/http"

	"releaseguard/internal/accounts"
	"releaseguard/internal/api/middleware"
	"releaseguard/internal/pkg/errors"
	"releaseguard/internal/platform/models"
)

type UserHandler struct {
	accounts *accounts.Service
}

func NewUserHandler(svc *accounts.Service) *UserHandler {
	return &UserHandler{accounts: svc}
}

type ListUsersResponse struct {
	Users []*models.User `json:"users"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	users, err := h.accounts.ListUsers(r.Context(), actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	errors.WriteJSON(w, http.StatusOK, ListUsersResponse{Users: users})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	user, err := h.accounts.GetUser(r.Context(), actor, param(r, "user_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, user)
}

// IssueTemporaryPassword emails the member a one-time password. The password
// itself is never part of the response.
func (h *UserHandler) IssueTemporaryPassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	if err := h.accounts.IssueTemporaryPassword(r.Context(), actor, param(r, "user_id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	errors.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Temporary password sent"})
}
