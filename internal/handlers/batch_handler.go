package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"qrtrace-backend/internal/models"
	"qrtrace-backend/internal/repositories"
	"qrtrace-backend/internal/services"
	"qrtrace-backend/pkg/utils"
)

type BatchHandler struct {
	batchService *services.BatchService
	batchRepo    *repositories.BatchRepository
	codeRepo     *repositories.CodeRepository
}

func NewBatchHandler(batchService *services.BatchService, batchRepo *repositories.BatchRepository, codeRepo *repositories.CodeRepository) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		batchRepo:    batchRepo,
		codeRepo:     codeRepo,
	}
}

// Create generates a batch and its full code registry
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		return
	}

	batch, err := h.batchService.CreateBatch(r.Context(), &req)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	utils.JSON(w, http.StatusCreated, batch)
}

// List returns all batches, newest first
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	batches, err := h.batchRepo.ListBatches(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list batches")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"batches": batches,
		"count":   len(batches),
	})
}

// Get returns one batch with per-status code counts
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	batch, err := h.codeRepo.GetBatch(r.Context(), id)
	if err != nil {
		utils.Error(w, http.StatusNotFound, "NOT_FOUND", "batch not found")
		return
	}

	counts, err := h.codeRepo.CountCodesByStatus(r.Context(), id)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to count codes")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"batch":       batch,
		"code_counts": counts,
	})
}

// ListCodes returns the codes of one case (?case=N) in sequence order
func (h *BatchHandler) ListCodes(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	caseNo, err := strconv.Atoi(r.URL.Query().Get("case"))
	if err != nil || caseNo < 1 {
		utils.Error(w, http.StatusBadRequest, "INVALID_INPUT", "case query parameter must be a positive integer")
		return
	}

	codes, err := h.codeRepo.ListCodesByCase(r.Context(), id, caseNo)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list codes")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"codes": codes,
		"count": len(codes),
	})
}
