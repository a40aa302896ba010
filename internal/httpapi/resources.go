package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/mutation"
	"smartlotto.org/internal/paging"
)

// mountResource registers the list/get/create/update/delete routes of one entity.
func mountResource[T mutation.Record, C any, P mutation.Patch](r chi.Router, res *mutation.Resource[T, C, P]) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		page, err := pageFrom(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		out, err := res.List(r.Context(), actor, page)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		var in C
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := res.Create(r.Context(), actor, in)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		w.Header().Set("Location", r.URL.Path+"/"+strconv.FormatInt(rec.RecordID(), 10))
		writeJSON(w, http.StatusCreated, rec)
	})

	r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
		actor, id, err := actorAndID(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		rec, err := res.Get(r.Context(), actor, id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	update := func(w http.ResponseWriter, r *http.Request) {
		actor, id, err := actorAndID(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		var p P
		if err := decodeJSON(w, r, &p); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := res.Update(r.Context(), actor, id, p)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
	r.Patch("/{id}", update)
	r.Put("/{id}", update)

	r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
		actor, id, err := actorAndID(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if err := res.Delete(r.Context(), actor, id); err != nil {
			writeAppError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// createMany handles a batch insert that commits all rows or none.
func createMany[T mutation.Record, C any, P mutation.Patch](res *mutation.Resource[T, C, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		var ins []C
		if err := decodeJSON(w, r, &ins); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		recs, err := res.CreateMany(r.Context(), actor, ins)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"items": recs})
	}
}

func actorAndID(r *http.Request) (actor audit.Actor, id int64, err error) {
	actor, err = actorFrom(r)
	if err != nil {
		return actor, 0, err
	}
	id, err = strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return actor, 0, apperr.BadRequest("httpapi.path", "id must be a positive integer")
	}
	return actor, id, nil
}

func pageFrom(r *http.Request) (paging.Request, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return paging.Request{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return paging.Request{}, err
	}
	if page > paging.MaxPage {
		page = paging.MaxPage
	}
	if limit > paging.MaxLimit {
		limit = paging.MaxLimit
	}
	return paging.Request{Page: int(page), Limit: int(limit)}.Normalize(), nil
}
