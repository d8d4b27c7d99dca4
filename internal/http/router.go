package http

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qrtrace-backend/internal/auth"
	"qrtrace-backend/internal/handlers"
	"qrtrace-backend/internal/health"
	"qrtrace-backend/internal/middleware"
)

type RouterDeps struct {
	JWTManager       *auth.JWTManager
	AuthHandler      *handlers.AuthHandler
	ReconcileHandler *handlers.ReconcileHandler
	JobHandler       *handlers.JobHandler
	BatchHandler     *handlers.BatchHandler
	HealthChecker    *health.Checker
}

func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics)

	// Public routes
	r.HandleFunc("/health", deps.HealthChecker.Handler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/auth/signup", deps.AuthHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", deps.AuthHandler.Login).Methods("POST")

	// Authenticated API
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Authenticate(deps.JWTManager))

	api.HandleFunc("/reconcile/analyze", deps.ReconcileHandler.Analyze).Methods("POST")
	api.HandleFunc("/reconcile/jobs", deps.ReconcileHandler.CreateJobs).Methods("POST")

	api.HandleFunc("/jobs", deps.JobHandler.List).Methods("GET")
	api.HandleFunc("/jobs/{id}", deps.JobHandler.Get).Methods("GET")
	api.HandleFunc("/jobs/{id}", deps.JobHandler.Delete).Methods("DELETE")

	api.HandleFunc("/batches", deps.BatchHandler.Create).Methods("POST")
	api.HandleFunc("/batches", deps.BatchHandler.List).Methods("GET")
	api.HandleFunc("/batches/{id}", deps.BatchHandler.Get).Methods("GET")
	api.HandleFunc("/batches/{id}/codes", deps.BatchHandler.ListCodes).Methods("GET")

	return r
}
