package httpapi

import (
	"net/http"

	"smartlotto.org/internal/auth"
)

type registerRequest struct {
	Name     string `json:"user_name"`
	Email    string `json:"user_email"`
	Password string `json:"password"`
}

func (req registerRequest) registration() auth.Registration {
	return auth.Registration{Name: req.Name, Email: req.Email, Password: req.Password}
}

type loginRequest struct {
	Email    string `json:"user_email"`
	Password string `json:"password"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.auth.Register(r.Context(), req.registration())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// handleAddMember creates a user bound to the caller's enterprise.
func (a *API) handleAddMember(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeAppError(w, r, errMissingPrincipal)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.auth.AddMember(r.Context(), p, req.registration())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeAppError(w, r, errMissingPrincipal)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
