package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/dealerscore/backend/internal/db"
	"github.com/dealerscore/backend/internal/grid"
	"github.com/dealerscore/backend/internal/importer"
	"github.com/dealerscore/backend/internal/models"
)

type Handler struct {
	Store     *db.Store
	Scorer    importer.Scorer
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List roster users
// @Tags roster
// @Produce json
// @Param store_id query string false "store scope"
// @Param department query string false "department scope"
// @Success 200 {array} models.RosterUser
// @Router /api/users [get]
func (h *Handler) UsersList(c *gin.Context) {
	users, err := h.Store.ListUsers(c.Request.Context(), c.Query("store_id"), c.Query("department"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list users", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// @Summary List KPI definitions
// @Tags kpis
// @Produce json
// @Param store_id query string true "store scope"
// @Param user_id query string false "owner scope"
// @Success 200 {array} models.KPIDefinition
// @Router /api/kpis [get]
func (h *Handler) KPIsList(c *gin.Context) {
	storeID := c.Query("store_id")
	if storeID == "" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "store_id is required", nil)
		return
	}
	kpis, err := h.Store.ListKPIs(c.Request.Context(), storeID, c.Query("user_id"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list KPIs", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"kpis": kpis})
}

// @Summary List column mappings for an import profile
// @Tags mappings
// @Produce json
// @Param profile_id query string true "import profile"
// @Success 200 {object} map[string]any
// @Router /api/mappings [get]
func (h *Handler) MappingsList(c *gin.Context) {
	profileID := c.Query("profile_id")
	if profileID == "" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "profile_id is required", nil)
		return
	}
	ctx := c.Request.Context()
	abs, err := h.Store.ListAbsoluteMappings(ctx, profileID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list absolute mappings", err.Error())
		return
	}
	rel, err := h.Store.ListRelativeMappings(ctx, profileID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list relative mappings", err.Error())
		return
	}
	templates, err := h.Store.ListTemplates(ctx, profileID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list templates", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"absolute":  abs,
		"relative":  rel,
		"templates": templates,
	})
}

// @Summary Latest import log
// @Tags imports
// @Produce json
// @Param store_id query string true "store scope"
// @Success 200 {object} models.ImportLog
// @Router /api/imports/latest [get]
func (h *Handler) ImportsLatest(c *gin.Context) {
	storeID := c.Query("store_id")
	if storeID == "" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "store_id is required", nil)
		return
	}
	l, err := h.Store.GetLatestImportLog(c.Request.Context(), storeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "No imports for this store", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load import log", err.Error())
		return
	}
	c.JSON(http.StatusOK, l)
}

// @Summary Analyze a productivity report upload
// @Description Classifies the spreadsheet, matches entities and resolves columns. Persists nothing.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "report (.xlsx/.xls)"
// @Param profile_id formData string true "import profile"
// @Param period formData string true "period identifier, e.g. 2025-03"
// @Success 200 {object} importer.Result
// @Failure 422 {object} map[string]any
// @Router /api/import/analyze [post]
func (h *Handler) ImportAnalyze(c *gin.Context) {
	res, _, _, ok := h.reconcileUpload(c, nil)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Commit a reviewed import
// @Description Re-runs reconciliation with the reviewer's overrides, then applies the upsert plan.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "report (.xlsx/.xls)"
// @Param profile_id formData string true "import profile"
// @Param period formData string true "period identifier"
// @Param overrides formData string false "JSON array of {name, user_id, skip}"
// @Success 200 {object} map[string]any
// @Router /api/import/commit [post]
func (h *Handler) ImportCommit(c *gin.Context) {
	overrides, err := parseOverrides(c.PostForm("overrides"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid overrides payload", err.Error())
		return
	}

	res, rctx, upload, ok := h.reconcileUpload(c, overrides)
	if !ok {
		return
	}

	plan := importer.BuildPlan(res, rctx, upload.name, upload.data, upload.period)
	commit, err := h.Store.ApplyPlan(c.Request.Context(), plan)
	if err != nil {
		h.Logger.Error().Err(err).Msg("import commit failed")
		writeError(c, http.StatusInternalServerError, "COMMIT_ERROR", "Failed to apply import plan", err.Error())
		return
	}
	if len(commit.Errors) > 0 {
		h.Logger.Warn().Int("failed_records", len(commit.Errors)).Msg("import committed with record errors")
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":   res.Summary,
		"committed": commit,
		"log_id":    plan.Log.ID,
	})
}

type relativeMappingRequest struct {
	ProfileID   string `json:"profile_id" validate:"required"`
	OwnerUserID string `json:"owner_user_id" validate:"required"`
	ColumnIndex int    `json:"column_index" validate:"gte=1"`
	KPIID       string `json:"kpi_id" validate:"required"`
}

// @Summary Create or update a relative column mapping
// @Description Saves the (owner, column) → KPI binding, proposes a column template, then pre-populates the owner's other columns from existing templates.
// @Tags mappings
// @Accept json
// @Produce json
// @Param body body relativeMappingRequest true "mapping"
// @Success 200 {object} map[string]any
// @Router /api/mappings/relative [post]
func (h *Handler) RelativeMappingCreate(c *gin.Context) {
	var req relativeMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "validation failed", err.Error())
		return
	}

	ctx := c.Request.Context()
	kpi, err := h.Store.GetKPI(ctx, req.KPIID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "KPI not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load KPI", err.Error())
		return
	}

	mapping := models.RelativeMapping{
		ID:          uuid.NewString(),
		ProfileID:   req.ProfileID,
		OwnerUserID: req.OwnerUserID,
		ColumnIndex: req.ColumnIndex,
		KPIID:       kpi.ID,
		KPIName:     kpi.Name,
	}
	if err := h.Store.UpsertRelativeMapping(ctx, mapping); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save mapping", err.Error())
		return
	}

	template := models.ColumnTemplate{
		ID:          uuid.NewString(),
		ProfileID:   req.ProfileID,
		ColumnIndex: req.ColumnIndex,
		KPIName:     kpi.Name,
	}
	if err := h.Store.UpsertTemplate(ctx, template); err != nil {
		// Template memory is secondary; the mapping itself is saved.
		h.Logger.Warn().Err(err).Int("column", req.ColumnIndex).Msg("template proposal failed")
	}

	applied, templateErrs := h.Store.ApplyTemplatesForOwner(ctx, req.ProfileID, kpi.StoreID, req.OwnerUserID)
	for _, e := range templateErrs {
		h.Logger.Warn().Str("error", e).Msg("template auto-apply failed")
	}

	c.JSON(http.StatusOK, gin.H{
		"mapping":           mapping,
		"templates_applied": applied,
		"template_errors":   templateErrs,
	})
}

type upload struct {
	name   string
	period string
	data   []byte
}

// reconcileUpload parses the multipart request, decodes the spreadsheet
// and runs a reconciliation pass. It writes the HTTP error response itself
// and reports ok=false when the caller should stop. The error envelope
// distinguishes "could not read this file at all" from "read it but rows
// or columns need review".
func (h *Handler) reconcileUpload(c *gin.Context, overrides map[string]importer.Override) (importer.Result, *importer.Context, upload, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file is required", nil)
		return importer.Result{}, nil, upload{}, false
	}
	profileID := c.PostForm("profile_id")
	period := c.PostForm("period")
	if profileID == "" || period == "" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "profile_id and period are required", nil)
		return importer.Result{}, nil, upload{}, false
	}
	if !validateExt(fileHeader.Filename) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file must be .xlsx or .xls", nil)
		return importer.Result{}, nil, upload{}, false
	}

	data, err := readUpload(fileHeader)
	if err != nil {
		writeError(c, http.StatusBadRequest, "FILE_ERROR", "Could not read uploaded file", err.Error())
		return importer.Result{}, nil, upload{}, false
	}

	g, err := grid.Decode(fileHeader.Filename, bytes.NewReader(data))
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, "FILE_UNREADABLE", "Could not read this file at all", err.Error())
		return importer.Result{}, nil, upload{}, false
	}

	ctx := c.Request.Context()
	snap, err := h.Store.LoadSnapshot(ctx, profileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Import profile not found", nil)
			return importer.Result{}, nil, upload{}, false
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load reconciliation snapshot", err.Error())
		return importer.Result{}, nil, upload{}, false
	}

	rctx := importer.NewContext(snap, h.Scorer)
	res, err := importer.Reconcile(rctx, g, period, overrides)
	if err != nil {
		if errors.Is(err, importer.ErrHeaderNotFound) {
			writeError(c, http.StatusUnprocessableEntity, "HEADER_NOT_FOUND",
				"Could not locate the column header row in this file", nil)
			return importer.Result{}, nil, upload{}, false
		}
		writeError(c, http.StatusInternalServerError, "RECONCILE_ERROR", "Reconciliation failed", err.Error())
		return importer.Result{}, nil, upload{}, false
	}

	return res, rctx, upload{name: fileHeader.Filename, period: period, data: data}, true
}

type overridePayload struct {
	Name   string `json:"name"`
	UserID string `json:"user_id"`
	Skip   bool   `json:"skip"`
}

func parseOverrides(raw string) (map[string]importer.Override, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var payload []overridePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}
	out := make(map[string]importer.Override, len(payload))
	for _, p := range payload {
		if p.Name == "" {
			return nil, errors.New("override name is required")
		}
		if !p.Skip && p.UserID == "" {
			return nil, errors.New("override must set user_id or skip")
		}
		out[importer.NormalizeName(p.Name)] = importer.Override{UserID: p.UserID, Skip: p.Skip}
	}
	return out, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func validateExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls":
		return true
	default:
		return false
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
