package handlers

import (
	"encoding/json"
	"net/http"

	"qrtrace-backend/internal/middleware"
	"qrtrace-backend/internal/models"
	"qrtrace-backend/internal/reconcile"
	"qrtrace-backend/internal/services"
	"qrtrace-backend/pkg/utils"
)

type ReconcileHandler struct {
	reconcileService *services.ReconcileService
}

func NewReconcileHandler(reconcileService *services.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{reconcileService: reconcileService}
}

func decodeReconcileRequest(w http.ResponseWriter, r *http.Request) (*models.ReconcileRequest, bool) {
	var req models.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, reconcile.CodeInvalidInput, "invalid request body")
		return nil, false
	}
	if req.BatchID == "" {
		utils.Error(w, http.StatusBadRequest, reconcile.CodeInvalidInput, "batch_id is required")
		return nil, false
	}
	if req.SpoiledInput == "" {
		utils.Error(w, http.StatusBadRequest, reconcile.CodeNoValidCodes, "spoiled_input is required")
		return nil, false
	}
	return &req, true
}

// writeEngineError maps engine errors onto the HTTP surface. All engine
// errors are client errors; anything else is a 500.
func writeEngineError(w http.ResponseWriter, err error) {
	if engineErr, ok := reconcile.AsEngineError(err); ok {
		utils.Error(w, http.StatusBadRequest, engineErr.Code, engineErr.Message)
		return
	}
	utils.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
}

// Analyze previews a reconciliation request without creating anything
func (h *ReconcileHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeReconcileRequest(w, r)
	if !ok {
		return
	}

	analysis, err := h.reconcileService.Analyze(r.Context(), req)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, analysis)
}

// CreateJobs materializes replacement jobs, one per case. Cases succeed or
// fail independently; the request only carries an error status when nothing
// succeeded at all.
func (h *ReconcileHandler) CreateJobs(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeReconcileRequest(w, r)
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())

	result, err := h.reconcileService.CreateJobs(r.Context(), req, userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	status := http.StatusOK
	created, failed, bufferUsed := 0, 0, false
	for _, j := range result.Jobs {
		switch j.Status {
		case reconcile.CaseCreated:
			created++
		case reconcile.CaseFailed:
			failed++
			if j.ErrorCode == reconcile.CodeBufferAlreadyUsed {
				bufferUsed = true
			}
		}
	}
	switch {
	case created > 0:
		status = http.StatusCreated
	case failed == len(result.Jobs) && bufferUsed:
		status = http.StatusConflict
	}

	utils.JSON(w, status, result)
}
