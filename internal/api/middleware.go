package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request metrics under the matched route template.
func (r *Router) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)

		route := "unmatched"
		if cur := mux.CurrentRoute(req); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		if r.opts.Observability != nil {
			r.opts.Observability.RecordRequest(req.Context(), req.Method, route, rec.status, elapsed)
		}
		r.logger.Debug("request served", map[string]interface{}{
			"method":   req.Method,
			"route":    route,
			"status":   rec.status,
			"duration": elapsed.String(),
		})
	})
}
