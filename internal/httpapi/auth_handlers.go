package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"nurseconnect.org/internal/audit"
	"nurseconnect.org/internal/auth"
	"nurseconnect.org/internal/facilities"
)

func (a *API) handleWorkerLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	user, token, err := a.auth.LoginWorker(r.Context(), creds)
	if err != nil {
		writeAuthError(w, r, err, false)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.worker.login", map[string]any{"user_id": user.ID})
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "token": token})
}

func (a *API) handleFacilityLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	fac, token, err := a.auth.LoginFacility(r.Context(), creds)
	if err != nil {
		writeAuthError(w, r, err, false)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.facility.login", map[string]any{"facility_id": fac.ID})
	writeJSON(w, http.StatusOK, map[string]any{"facility": fac, "token": token})
}

func (a *API) handleFacilityRegister(w http.ResponseWriter, r *http.Request) {
	var reg facilities.Registration
	if err := decodeJSON(r, &reg); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	fac, token, err := a.auth.RegisterFacility(r.Context(), reg)
	if err != nil {
		writeAuthError(w, r, err, true)
		return
	}
	_ = audit.LogEvent(r.Context(), "facility.registered", map[string]any{
		"facility_id":   fac.ID,
		"contact_email": fac.ContactEmail,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"facility": fac, "token": token})
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error, details bool) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), auth.ErrInvalidInput.Error()+": ")
		writeErrorDetails(w, r, http.StatusBadRequest, "Invalid request", msg)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, facilities.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case details:
		writeErrorDetails(w, r, http.StatusInternalServerError, serverError, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, serverError)
	}
}
