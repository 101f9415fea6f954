package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"zujuan/internal/auth"
	"zujuan/internal/i18n"
	"zujuan/internal/model"
)

type registerRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	InviteCode    string `json:"inviteCode"`
	CaptchaID     string `json:"captchaId"`
	CaptchaAnswer string `json:"captchaAnswer"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string      `json:"accessToken"`
	TokenType   string      `json:"tokenType"`
	User        *model.User `json:"user"`
}

func (h *Handler) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.captcha.Create())
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || len(req.Password) < 6 {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	if !h.captcha.Verify(req.CaptchaID, req.CaptchaAnswer) {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidCaptcha")
		return
	}

	role := model.UserRole(req.Role)
	if role == "" {
		role = model.UserRoleTeacher
	}
	if role != model.UserRoleTeacher && role != model.UserRoleStudent {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}
	// Teachers need the invite code; student self-registration is open.
	if role == model.UserRoleTeacher && h.config.InviteCode != "" && req.InviteCode != h.config.InviteCode {
		respondError(w, r, http.StatusForbidden, "ErrInvalidInvite")
		return
	}

	existing, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if existing != nil {
		respondError(w, r, http.StatusConflict, "ErrUsernameTaken")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	user := model.User{
		Username:     req.Username,
		Email:        req.Email,
		Role:         role,
		PasswordHash: hash,
	}
	id, err := h.store.CreateUser(user)
	if err != nil {
		slog.Error("create user", "username", req.Username, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	user.ID = id
	user.PasswordHash = ""
	respondJSON(w, http.StatusCreated, map[string]any{
		"message": i18n.Td(r.Context(), "MsgRegistered", map[string]any{"Username": user.Username}),
		"user":    user,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidRequest")
		return
	}

	user, err := h.store.GetUserByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		slog.Error("issue token", "username", user.Username, "error", err)
		respondError(w, r, http.StatusInternalServerError, "ErrInternal")
		return
	}
	user.PasswordHash = ""
	respondJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}
