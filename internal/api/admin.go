package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	commonerrors "swedana-forms/internal/common/errors"
	"swedana-forms/internal/formstore"
	"swedana-forms/internal/models"

	"github.com/gorilla/mux"
)

func (r *Router) listSubmissions(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	var query formstore.Query
	if v := q.Get("type"); v != "" && v != "all" {
		t, err := models.ParseSubmissionType(v)
		if err != nil {
			respondStandardError(w, commonerrors.NewInvalidSubmissionTypeError(v))
			return
		}
		query.Type = t
	}
	if v := q.Get("status"); v != "" && v != "all" {
		st, err := models.ParseSubmissionStatus(v)
		if err != nil {
			respondStandardError(w, commonerrors.NewInvalidStatusError(v))
			return
		}
		query.Status = st
	}
	query.Search = q.Get("q")

	matches := r.opts.Store.Filter(req.Context(), query)
	if query.Search != "" && r.opts.Search != nil {
		matches = r.rankWithMirror(req, query, matches)
	}
	respondJSON(w, http.StatusOK, matches)
}

// rankWithMirror puts the store's substring matches in the mirror's
// relevance order. Matches the mirror did not return keep their store order
// after the ranked ones, and mirror hits outside matches are dropped.
func (r *Router) rankWithMirror(req *http.Request, query formstore.Query, matches []models.Submission) []models.Submission {
	if len(matches) < 2 {
		return matches
	}
	ids, err := r.opts.Search.Search(req.Context(), query.Search, query.Type, query.Status)
	if err != nil {
		r.logger.Warn("search mirror unavailable, using store order", map[string]interface{}{"error": err})
		return matches
	}

	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	ranked := make([]models.Submission, 0, len(matches))
	var rest []models.Submission
	for _, sub := range matches {
		if _, ok := rank[sub.ID]; ok {
			ranked = append(ranked, sub)
		} else {
			rest = append(rest, sub)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return rank[ranked[i].ID] < rank[ranked[j].ID] })
	if len(rest) > 0 {
		r.logger.Debug("search mirror missed matching submissions", map[string]interface{}{"missing": len(rest), "matches": len(matches)})
	}
	return append(ranked, rest...)
}

// getSubmission returns one submission and marks it viewed if it was new.
func (r *Router) getSubmission(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	sub, ok := r.opts.Store.Get(req.Context(), id)
	if !ok {
		respondStandardError(w, commonerrors.NewSubmissionNotFoundError(id))
		return
	}
	if sub.Status == models.StatusNew && r.opts.Store.MarkViewed(req.Context(), id) {
		sub.Status = models.StatusViewed
	}
	respondJSON(w, http.StatusOK, sub)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (r *Router) updateStatus(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)

	var body statusRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondStandardError(w, commonerrors.NewParseError(err))
		return
	}
	status, err := models.ParseSubmissionStatus(body.Status)
	if err != nil {
		respondStandardError(w, commonerrors.NewInvalidStatusError(body.Status))
		return
	}

	sub, ok := r.opts.Store.Get(req.Context(), id)
	if !ok {
		respondStandardError(w, commonerrors.NewSubmissionNotFoundError(id))
		return
	}
	if !r.opts.Store.UpdateStatus(req.Context(), id, status) {
		respondStandardError(w, commonerrors.NewStorageWriteFailedError(fmt.Errorf("status of %s was not updated", id)))
		return
	}

	sub.Status = status
	respondJSON(w, http.StatusOK, sub)
}

func (r *Router) deleteSubmission(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	deleted := r.opts.Store.Delete(req.Context(), id)
	status := http.StatusOK
	if !deleted {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]bool{"deleted": deleted})
}

func (r *Router) clearSubmissions(w http.ResponseWriter, req *http.Request) {
	r.opts.Store.ClearAll(req.Context())
	r.logger.Warn("submissions cleared through admin API", map[string]interface{}{"remoteAddr": req.RemoteAddr})
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) getStats(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.opts.Store.Stats(req.Context()))
}

func (r *Router) exportCSV(w http.ResponseWriter, req *http.Request) {
	filename := formstore.ExportFilename(r.opts.Now().In(r.opts.ExportLocation))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, r.opts.Store.ExportCSV(req.Context()))
}
