package httpapi

import (
	"net/http"

	"centra.io/internal/audit"
	"centra.io/internal/auth"
	"centra.io/internal/obs"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string  `json:"refresh_token"`
	CenterID     *string `json:"center_id"`
}

type setCenterRequest struct {
	CenterID string `json:"center_id"`
}

type passwordResetRequest struct {
	Username string `json:"username"`
}

type passwordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	obs.TokenPairIssued("login")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"username":  session.User.Username,
		"center_id": session.User.CenterID,
	})
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.sessions.Refresh(r.Context(), req.RefreshToken, req.CenterID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	obs.TokenPairIssued("refresh")
	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"username":  session.User.Username,
		"center_id": session.User.CenterID,
	})
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleSetCenter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req setCenterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.sessions.SetCenter(r.Context(), principal, req.CenterID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	obs.TokenPairIssued("set_center")
	_ = audit.LogEvent(r.Context(), "auth.set_center", map[string]any{
		"username":  session.User.Username,
		"center_id": req.CenterID,
	})
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	summary, err := a.sessions.CurrentUser(r.Context(), principal)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeJSON(w, http.StatusOK, messageResponse{Message: a.sessions.Logout()})
}

func (a *API) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req passwordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// Always acknowledge; never reveal whether the account exists.
	msg := a.sessions.RequestPasswordReset(r.Context(), req.Username)
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (a *API) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req passwordResetConfirm
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	msg := a.sessions.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword)
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}
