package httpapi

import (
	"net/http"
	"strings"

	"smartlotto.org/internal/audit"
)

// handleChangeLogs lists the caller's change log, newest first, optionally
// narrowed by ?entity= and ?entity_id=.
func (a *API) handleChangeLogs(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	var f audit.Filter
	if raw := strings.TrimSpace(r.URL.Query().Get("entity")); raw != "" {
		if f.Entity, err = audit.ParseEntity(raw); err != nil {
			writeAppError(w, r, err)
			return
		}
	}
	if f.EntityID, err = queryInt(r, "entity_id"); err != nil {
		writeAppError(w, r, err)
		return
	}
	if f.Page, err = pageFrom(r); err != nil {
		writeAppError(w, r, err)
		return
	}
	out, err := a.office.ChangeLog(r.Context(), actor, f)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
