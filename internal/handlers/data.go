package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/osa623/arxadmin/internal/storage"
	"github.com/osa623/arxadmin/internal/structure"
)

var recordTypes = map[string]bool{
	"investor_relations":   true,
	"financial_statements": true,
	"subsidiary_chart":     true,
	"other":                true,
}

type saveDataRequest struct {
	Sector  string          `json:"sector"`
	Company string          `json:"company"`
	Year    string          `json:"year"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	PDFID   *string         `json:"pdfId"`
}

type updateDataRequest struct {
	Data json.RawMessage `json:"data"`
}

type recordResponse struct {
	ID        uuid.UUID       `json:"id"`
	Sector    string          `json:"sector"`
	Company   string          `json:"company"`
	Year      string          `json:"year"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	PDFID     *string         `json:"pdfId,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type mutationResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Result  *recordResponse `json:"result,omitempty"`
}

// SaveData creates or replaces the record matching the composite
// (sector, company, year, type) key. The store's single-statement upsert
// is what keeps concurrent saves for the same key from duplicating it.
func (h *Handler) SaveData(c *gin.Context) {
	var req saveDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
		return
	}

	sector := strings.TrimSpace(req.Sector)
	company := strings.TrimSpace(req.Company)
	year := strings.TrimSpace(req.Year)
	recordType := strings.TrimSpace(req.Type)

	if sector == "" || company == "" || year == "" || recordType == "" || len(req.Data) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "missing required fields: sector, company, year, type, data"})
		return
	}
	if !recordTypes[recordType] {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "unknown record type"})
		return
	}
	if !json.Valid(req.Data) {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "data must be valid JSON"})
		return
	}

	rec, err := h.Store.UpsertExtracted(c.Request.Context(), sector, company, year, recordType, req.Data, req.PDFID)
	if err != nil {
		h.Logger.Error("data upsert failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "failed to save data"})
		return
	}

	h.Metrics.DataWrites.WithLabelValues("save").Inc()
	h.audit(c.Request.Context(), c, principalFromContext(c), "data.save", "extracted_record", strPtr(rec.ID.String()))

	c.JSON(http.StatusOK, mutationResponse{Success: true, Message: "Data saved successfully", Result: toRecordResponse(rec)})
}

func (h *Handler) GetStructure(c *gin.Context) {
	rows, err := h.Store.ListStructureRows(c.Request.Context())
	if err != nil {
		h.Logger.Error("structure query failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "failed to fetch structure"})
		return
	}

	c.JSON(http.StatusOK, structure.BuildTree(rows))
}

func (h *Handler) GetData(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid record id"})
		return
	}

	rec, err := h.Store.GetExtracted(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "record not found"})
			return
		}
		h.Logger.Error("data lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "failed to fetch data"})
		return
	}

	c.JSON(http.StatusOK, toRecordResponse(rec))
}

// UpdateData replaces the payload only; the composite key is immutable.
func (h *Handler) UpdateData(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid record id"})
		return
	}

	var req updateDataRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Data) == 0 || !json.Valid(req.Data) {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "data must be valid JSON"})
		return
	}

	rec, err := h.Store.UpdateExtractedData(c.Request.Context(), id, req.Data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "record not found"})
			return
		}
		h.Logger.Error("data update failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "failed to update data"})
		return
	}

	h.Metrics.DataWrites.WithLabelValues("update").Inc()
	h.audit(c.Request.Context(), c, principalFromContext(c), "data.update", "extracted_record", strPtr(rec.ID.String()))

	c.JSON(http.StatusOK, mutationResponse{Success: true, Message: "Data updated", Result: toRecordResponse(rec)})
}

func (h *Handler) DeleteData(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid record id"})
		return
	}

	if err := h.Store.DeleteExtracted(c.Request.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "record not found"})
			return
		}
		h.Logger.Error("data delete failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "failed to delete data"})
		return
	}

	h.Metrics.DataWrites.WithLabelValues("delete").Inc()
	h.audit(c.Request.Context(), c, principalFromContext(c), "data.delete", "extracted_record", strPtr(id.String()))

	c.JSON(http.StatusOK, mutationResponse{Success: true, Message: "Record deleted"})
}

func toRecordResponse(rec *storage.ExtractedRecord) *recordResponse {
	return &recordResponse{
		ID:        rec.ID,
		Sector:    rec.Sector,
		Company:   rec.Company,
		Year:      rec.Year,
		Type:      rec.Type,
		Data:      rec.Data,
		PDFID:     rec.PDFID,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
