package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jaume768/splashmy/internal/middleware"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetConfirmRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	user, err := a.Auth.Register(r.Context(), req.Email, req.Username, req.Password, locale)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
		"message":  "verification code sent",
	})
}

func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	user, err := a.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	token, err := middleware.SignJWT(a.JWTSecret, user.ID, user.IsPremium, locale, a.JWTTTL)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":         user.ID,
			"email":      user.Email,
			"username":   user.Username,
			"is_premium": user.IsPremium,
		},
	})
}

func (a *App) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Auth.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"message": "email verified"})
}

func (a *App) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	if err := a.Auth.ResendVerification(r.Context(), req.Email, locale); err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"message": "verification code sent"})
}

func (a *App) PasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	if err := a.Auth.RequestPasswordReset(r.Context(), req.Email, locale); err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"message": "reset code sent if the account exists"})
}

func (a *App) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Auth.ConfirmPasswordReset(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"message": "password updated"})
}

// ChangePassword rotates the password of the authenticated account and
// returns a fresh token so stale ones can be discarded client-side.
func (a *App) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Auth.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		a.writeErr(w, err)
		return
	}
	user, err := a.UserRepo.GetByID(r.Context(), userID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	token, err := middleware.SignJWT(a.JWTSecret, user.ID, user.IsPremium, locale, a.JWTTTL)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"message": "password changed",
		"token":   token,
	})
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	user, err := a.UserRepo.GetByID(r.Context(), userID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":             user.ID,
		"email":          user.Email,
		"username":       user.Username,
		"avatar_url":     user.AvatarURL,
		"is_premium":     user.IsPremium,
		"email_verified": user.EmailVerified,
		"created_at":     user.CreatedAt,
	})
}
