package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"nurseconnect.org/internal/applications"
	"nurseconnect.org/internal/audit"
	"nurseconnect.org/internal/shifts"
)

type applyRequest struct {
	ShiftID int64  `json:"shift_id"`
	Note    string `json:"note"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (a *API) createApplication(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if !p.IsWorker() {
		writeError(w, r, http.StatusForbidden, applications.ErrWorkerRequired.Error())
		return
	}
	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	if req.ShiftID <= 0 {
		writeErrorBody(w, r, http.StatusBadRequest, map[string]any{
			"error":  "Missing required fields",
			"fields": []string{"shift_id"},
		})
		return
	}
	app, err := a.applications.Apply(r.Context(), p.ID, req.ShiftID, req.Note)
	if err != nil {
		writeApplicationError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "application.created", map[string]any{
		"application_id": app.ID,
		"shift_id":       app.ShiftID,
	})
	writeJSON(w, http.StatusCreated, app)
}

func (a *API) listApplications(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var (
		f   applications.Filter
		err error
	)
	if f.ShiftID, err = queryID(r, "shift_id"); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if f.UserID, err = queryID(r, "user_id"); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	f.Status = applications.Status(strings.TrimSpace(r.URL.Query().Get("status")))

	var items []applications.Application
	if p.IsFacility() {
		items, err = a.applications.ListForFacility(r.Context(), p.ID, f)
	} else {
		items, err = a.applications.ListForWorker(r.Context(), p.ID, f)
	}
	if err != nil {
		writeApplicationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// updateApplicationStatus lets the owning facility accept or reject, and the
// applicant withdraw.
func (a *API) updateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusNotFound, applications.ErrNotFound.Error())
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	status := applications.Status(strings.TrimSpace(req.Status))

	var (
		app applications.Application
		err error
	)
	switch {
	case p.IsFacility():
		app, err = a.applications.Decide(r.Context(), p.ID, id, status)
	case status == applications.StatusWithdrawn:
		app, err = a.applications.Withdraw(r.Context(), p.ID, id)
	case status.Valid():
		err = applications.ErrFacilityRequired
	default:
		err = applications.ErrInvalidStatus
	}
	if err != nil {
		writeApplicationError(w, r, err)
		return
	}
	if app.Status == applications.StatusAccepted && a.stream != nil {
		a.stream.Publish(shifts.Event{
			Type:       shifts.EventUpdated,
			ShiftID:    app.ShiftID,
			FacilityID: p.ID,
			Status:     shifts.StatusFilled,
			Timestamp:  time.Now().UTC(),
		})
	}
	_ = audit.LogEvent(r.Context(), "application."+string(app.Status), map[string]any{
		"application_id": app.ID,
		"shift_id":       app.ShiftID,
	})
	writeJSON(w, http.StatusOK, app)
}

func writeApplicationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, applications.ErrInvalidStatus), errors.Is(err, applications.ErrShiftRequired):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, applications.ErrForbidden),
		errors.Is(err, applications.ErrWorkerRequired),
		errors.Is(err, applications.ErrFacilityRequired):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, applications.ErrNotFound), errors.Is(err, applications.ErrShiftNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, applications.ErrShiftNotOpen),
		errors.Is(err, applications.ErrAlreadyApplied),
		errors.Is(err, applications.ErrAlreadyDecided):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, serverError)
	}
}
