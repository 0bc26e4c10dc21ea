package httpapi

import (
	"errors"
	"net/http"

	"nurseconnect.org/internal/facilities"
)

func (a *API) listFacilities(w http.ResponseWriter, r *http.Request) {
	items, err := a.facilities.ListFacilities(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, serverError)
		return
	}
	if items == nil {
		items = []facilities.Facility{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) getFacility(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusNotFound, "Facility not found")
		return
	}
	fac, err := a.facilities.GetFacility(r.Context(), id)
	switch {
	case errors.Is(err, facilities.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Facility not found")
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, serverError)
	default:
		writeJSON(w, http.StatusOK, fac)
	}
}
