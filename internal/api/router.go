// Package api serves the public form intake and the admin endpoints over
// the submission store.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	commonerrors "swedana-forms/internal/common/errors"
	"swedana-forms/internal/common/logger"
	"swedana-forms/internal/common/observability"
	"swedana-forms/internal/common/validation"
	"swedana-forms/internal/formstore"
	"swedana-forms/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 64 << 10

// Searcher ranks admin free-text queries, answering with submission ids.
type Searcher interface {
	Search(ctx context.Context, text string, t models.SubmissionType, status models.SubmissionStatus) ([]string, error)
}

// Notifier alerts the shop operator about a new submission.
type Notifier interface {
	Notify(ctx context.Context, sub models.Submission)
}

// WorkflowStarter starts a process instance for a new submission.
type WorkflowStarter interface {
	StartSubmissionProcess(ctx context.Context, processID string, sub models.Submission) (int64, error)
}

type Options struct {
	Store     *formstore.Store
	Validator *validation.Validator
	Logger    logger.Logger

	// Optional collaborators; nil disables the feature.
	Search        Searcher
	Notifier      Notifier
	Workflow      WorkflowStarter
	ProcessID     string
	Observability *observability.Observability

	Now            func() time.Time
	ExportLocation *time.Location
}

// Router wraps the mux router and the services behind it.
type Router struct {
	*mux.Router
	opts   Options
	logger logger.Logger
}

func NewRouter(opts Options) *Router {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExportLocation == nil {
		opts.ExportLocation = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}

	r := &Router{
		Router: mux.NewRouter(),
		opts:   opts,
		logger: opts.Logger.Named("api"),
	}
	r.Use(r.instrument)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/submissions", r.createSubmission).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/submissions", r.listSubmissions).Methods("GET")
	admin.HandleFunc("/submissions", r.clearSubmissions).Methods("DELETE")
	admin.HandleFunc("/submissions/{id}", r.getSubmission).Methods("GET")
	admin.HandleFunc("/submissions/{id}", r.deleteSubmission).Methods("DELETE")
	admin.HandleFunc("/submissions/{id}/status", r.updateStatus).Methods("PUT")
	admin.HandleFunc("/stats", r.getStats).Methods("GET")
	admin.HandleFunc("/export.csv", r.exportCSV).Methods("GET")

	return r
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   r.opts.Now().UTC().Format(time.RFC3339),
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

type errorBody struct {
	Error   string                 `json:"error"`
	Code    commonerrors.ErrorCode `json:"code"`
	Details string                 `json:"details,omitempty"`
	Fields  interface{}            `json:"fields,omitempty"`
}

// respondStandardError maps err to its HTTP status and a coded body.
func respondStandardError(w http.ResponseWriter, err *commonerrors.StandardError) {
	body := errorBody{Error: err.Message, Code: err.Code, Details: err.Details}
	if f, ok := err.Metadata["fields"]; ok {
		body.Fields = f
	}
	respondJSON(w, commonerrors.HTTPStatus(err.Code), body)
}
