package httpapi

import (
	"errors"
	"net/http"

	"nurseconnect.org/internal/audit"
	"nurseconnect.org/internal/shifts"
)

const shiftNotFound = "Shift not found"

func (a *API) createShift(w http.ResponseWriter, r *http.Request) {
	var d shifts.Draft
	if err := decodeJSON(r, &d); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	sh, err := a.shifts.Create(r.Context(), d)
	if err != nil {
		writeShiftWriteError(w, r, err)
		return
	}
	a.auditShift(r, shifts.EventCreated, sh)
	writeJSON(w, http.StatusCreated, sh)
}

func (a *API) listShifts(w http.ResponseWriter, r *http.Request) {
	f, err := shifts.ParseFilter(r.URL.Query())
	if err != nil {
		writeShiftValidation(w, r, err)
		return
	}
	items, err := a.shifts.List(r.Context(), f)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, serverError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) getShift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusNotFound, shiftNotFound)
		return
	}
	sh, err := a.shifts.Get(r.Context(), id)
	switch {
	case errors.Is(err, shifts.ErrNotFound):
		writeError(w, r, http.StatusNotFound, shiftNotFound)
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, serverError)
	default:
		writeJSON(w, http.StatusOK, sh)
	}
}

// editShift replaces a shift. A missing target wins over a bad body.
func (a *API) editShift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusNotFound, shiftNotFound)
		return
	}
	var d shifts.Draft
	if err := decodeJSON(r, &d); err != nil {
		if _, getErr := a.shifts.Get(r.Context(), id); errors.Is(getErr, shifts.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, shiftNotFound)
			return
		}
		writeDecodeError(w, r, err)
		return
	}
	sh, err := a.shifts.Edit(r.Context(), id, d)
	if err != nil {
		writeShiftWriteError(w, r, err)
		return
	}
	a.auditShift(r, shifts.EventUpdated, sh)
	writeJSON(w, http.StatusOK, sh)
}

func (a *API) deleteShift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusNotFound, shiftNotFound)
		return
	}
	sh, err := a.shifts.Delete(r.Context(), id)
	if err != nil {
		writeShiftWriteError(w, r, err)
		return
	}
	a.auditShift(r, shifts.EventDeleted, sh)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Shift deleted successfully",
	})
}

func (a *API) auditShift(r *http.Request, event string, sh shifts.Shift) {
	_ = audit.LogEvent(r.Context(), event, map[string]any{
		"shift_id":    sh.ID,
		"facility_id": sh.FacilityID,
		"status":      string(sh.Status),
	})
}

func writeShiftWriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shifts.IsValidation(err):
		writeShiftValidation(w, r, err)
	case errors.Is(err, shifts.ErrNotFound):
		writeError(w, r, http.StatusNotFound, shiftNotFound)
	case errors.Is(err, shifts.ErrFacilityNotFound):
		writeErrorBody(w, r, http.StatusBadRequest, map[string]any{
			"error":  err.Error(),
			"fields": []string{"facility_id"},
		})
	default:
		writeErrorDetails(w, r, http.StatusInternalServerError, serverError, err.Error())
	}
}

func writeShiftValidation(w http.ResponseWriter, r *http.Request, err error) {
	var verr *shifts.ValidationError
	if !errors.As(err, &verr) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	payload := map[string]any{"details": verr.Error()}
	if verr.MissingFields() {
		payload["error"] = "Missing required fields"
		payload["fields"] = verr.Missing
	} else {
		payload["error"] = "Invalid fields"
		payload["fields"] = verr.Invalid
	}
	writeErrorBody(w, r, http.StatusBadRequest, payload)
}
