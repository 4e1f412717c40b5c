package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter builds the REST surface, wrapping every route with request metrics.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/health", s.metrics.WrapHandler("health", http.HandlerFunc(s.health))).Methods("GET")
	r.Handle("/api/criteria", s.metrics.WrapHandler("criteria", http.HandlerFunc(s.listCriteria))).Methods("GET")
	r.Handle("/api/reduce", s.metrics.WrapHandler("reduce", http.HandlerFunc(s.runReduction))).Methods("POST")
	r.Handle("/api/weeks", s.metrics.WrapHandler("weeks", http.HandlerFunc(s.weeklyMetrics))).Methods("GET")
	r.Handle("/api/traces", s.metrics.WrapHandler("traces", http.HandlerFunc(s.listTraces))).Methods("GET")
	r.Handle("/api/traces/{name:.+}", s.metrics.WrapHandler("trace", http.HandlerFunc(s.getTrace))).Methods("GET")

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	return r
}
