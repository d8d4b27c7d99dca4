package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"qrtrace-backend/internal/repositories"
	"qrtrace-backend/pkg/utils"
)

type JobHandler struct {
	jobRepo *repositories.JobRepository
}

func NewJobHandler(jobRepo *repositories.JobRepository) *JobHandler {
	return &JobHandler{jobRepo: jobRepo}
}

// List returns the jobs for a batch in case order
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	batchID := r.URL.Query().Get("batch_id")
	if batchID == "" {
		utils.Error(w, http.StatusBadRequest, "INVALID_INPUT", "batch_id query parameter is required")
		return
	}

	jobs, err := h.jobRepo.ListJobsByBatch(r.Context(), batchID)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list jobs")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// Get returns one job with its replacement items
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.jobRepo.GetJob(r.Context(), id)
	if err != nil {
		utils.Error(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}

	utils.JSON(w, http.StatusOK, job)
}

// Delete cancels a queued job. Jobs the worker has already picked up stay.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.jobRepo.DeleteJob(r.Context(), id); err != nil {
		utils.Error(w, http.StatusConflict, "CONFLICT", err.Error())
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
