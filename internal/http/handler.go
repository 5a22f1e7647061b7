package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fabos/estimation-service/internal/formula"
	"github.com/fabos/estimation-service/internal/http/middleware"
	"github.com/fabos/estimation-service/internal/model"
	"github.com/fabos/estimation-service/internal/service"
)

type Calculator interface {
	RecalculateWorksheet(ctx context.Context, id uuid.UUID) (*model.Worksheet, error)
	RecalculatePackage(ctx context.Context, id uuid.UUID) (*model.Package, error)
	RecalculateRevision(ctx context.Context, id uuid.UUID) (*model.Revision, error)
	RecalculateEstimation(ctx context.Context, id uuid.UUID) (*model.Estimation, error)
	ColumnTotals(ctx context.Context, worksheetID uuid.UUID) ([]model.ColumnTotal, error)
	WorksheetSummary(ctx context.Context, id uuid.UUID) (*model.WorksheetSummary, error)
	PackageSummary(ctx context.Context, id uuid.UUID) (*model.PackageSummary, error)
	RevisionSummary(ctx context.Context, id uuid.UUID) (*model.RevisionSummary, error)
	ValidateFormula(ctx context.Context, input service.ValidateFormulaInput) (formula.ValidationResult, error)
}

type Importer interface {
	ImportRows(ctx context.Context, input service.ImportRowsInput) (*service.ImportRowsResult, error)
}

type Exporter interface {
	ExportWorkbook(ctx context.Context, input service.ExportRevisionInput) (*service.ExportResult, error)
	ExportPDF(ctx context.Context, input service.ExportRevisionInput) (*service.ExportResult, error)
}

type Handler struct {
	calc    Calculator
	imports Importer
	exports Exporter
	log     zerolog.Logger
}

func NewHandler(calc Calculator, imports Importer, exports Exporter, log zerolog.Logger) *Handler {
	return &Handler{calc: calc, imports: imports, exports: exports, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/worksheets/:id/recalculate", h.recalculateWorksheet)
	protected.GET("/worksheets/:id/column-totals", h.columnTotals)
	protected.GET("/worksheets/:id/summary", h.worksheetSummary)
	protected.POST("/worksheets/:id/formulas/validate", h.validateFormula)
	protected.POST("/worksheets/:id/rows/import", h.importRows)

	protected.POST("/packages/:id/recalculate", h.recalculatePackage)
	protected.GET("/packages/:id/summary", h.packageSummary)

	protected.POST("/revisions/:id/recalculate", h.recalculateRevision)
	protected.GET("/revisions/:id/summary", h.revisionSummary)
	protected.GET("/revisions/:id/export", h.exportRevision)
	protected.GET("/revisions/:id/export/pdf", h.exportRevisionPDF)

	protected.POST("/estimations/:id/recalculate", h.recalculateEstimation)
	protected.POST("/cost-breakdown", h.costBreakdown)
}

// principalFor resolves the caller and checks it may edit or read. It writes
// the error response itself and reports whether the handler should go on.
func principalFor(c *gin.Context, edit bool) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return model.Principal{}, false
	}
	allowed := principal.CanRead()
	if edit {
		allowed = principal.CanEdit()
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": service.ErrPermissionDenied.Error()})
		return model.Principal{}, false
	}
	return principal, true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) recalculateWorksheet(c *gin.Context) {
	if _, ok := principalFor(c, true); !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	ws, err := h.calc.RecalculateWorksheet(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if ws == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "worksheet not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toWorksheet(ws)})
}

func (h *Handler) recalculatePackage(c *gin.Context) {
	if _, ok := principalFor(c, true); !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	pkg, err := h.calc.RecalculatePackage(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if pkg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "package not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toPackage(pkg)})
}

func (h *Handler) recalculateRevision(c *gin.Context) {
	if _, ok := principalFor(c, true); !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	rev, err := h.calc.RecalculateRevision(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if rev == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "revision not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toRevision(rev)})
}

func (h *Handler) recalculateEstimation(c *gin.Context) {
	if _, ok := principalFor(c, true); !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	est, err := h.calc.RecalculateEstimation(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if est == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "estimation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toEstimation(est)})
}

func (h *Handler) columnTotals(c *gin.Context) {
	if _, ok := principalFor(c, false); !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	totals, err := h.calc.ColumnTotals(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toColumnTotals(totals)})
}

func (h *Handler) worksheetSummary(c *gin.Context) {
	if _, ok := principalFor(c, false); !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	summary, err := h.calc.WorksheetSummary(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toWorksheetSummary(*summary)})
}

func (h *Handler) packageSummary(c *gin.Context) {
	if _, ok := principalFor(c, false); !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	summary, err := h.calc.PackageSummary(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toPackageSummary(*summary)})
}

func (h *Handler) revisionSummary(c *gin.Context) {
	if _, ok := principalFor(c, false); !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	summary, err := h.calc.RevisionSummary(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toRevisionSummary(summary)})
}

type validateFormulaRequest struct {
	Formula   string `json:"formula"`
	TargetKey string `json:"target_key"`
}

func (h *Handler) validateFormula(c *gin.Context) {
	if _, ok := principalFor(c, false); !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req validateFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.calc.ValidateFormula(c.Request.Context(), service.ValidateFormulaInput{
		WorksheetID: id,
		Formula:     req.Formula,
		TargetKey:   req.TargetKey,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toValidation(result)})
}

type importRowRequest struct {
	RowNumber       int           `json:"row_number"`
	IsGroupHeader   bool          `json:"is_group_header"`
	Data            model.RowData `json:"data"`
	CatalogueItemID string        `json:"catalogue_item_id"`
	MatchStatus     string        `json:"match_status"`
}

type importRowsRequest struct {
	Rows []importRowRequest `json:"rows" binding:"required"`
}

func (h *Handler) importRows(c *gin.Context) {
	principal, ok := principalFor(c, true)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req importRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows := make([]service.ImportRow, 0, len(req.Rows))
	for _, r := range req.Rows {
		row := service.ImportRow{
			RowNumber:     r.RowNumber,
			IsGroupHeader: r.IsGroupHeader,
			Data:          r.Data,
			MatchStatus:   r.MatchStatus,
		}
		if raw := strings.TrimSpace(r.CatalogueItemID); raw != "" {
			itemID, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid catalogue_item_id"})
				return
			}
			row.CatalogueItemID = &itemID
		}
		rows = append(rows, row)
	}

	result, err := h.imports.ImportRows(c.Request.Context(), service.ImportRowsInput{
		WorksheetID: id,
		Rows:        rows,
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := importResponse{Inserted: result.Inserted, Populated: result.Populated}
	if result.Worksheet != nil {
		summary := toWorksheetSummary(*result.Worksheet)
		resp.Worksheet = &summary
	}
	if result.Revision != nil {
		rev := toRevision(result.Revision)
		resp.Revision = &rev
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (h *Handler) exportRevision(c *gin.Context) {
	h.export(c, h.exports.ExportWorkbook, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (h *Handler) exportRevisionPDF(c *gin.Context) {
	h.export(c, h.exports.ExportPDF, "application/pdf")
}

func (h *Handler) export(
	c *gin.Context,
	render func(context.Context, service.ExportRevisionInput) (*service.ExportResult, error),
	contentType string,
) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	recalculate := false
	if raw := c.Query("recalculate"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recalculate"})
			return
		}
		recalculate = parsed
	}

	result, err := render(c.Request.Context(), service.ExportRevisionInput{
		RevisionID:  id,
		Recalculate: recalculate,
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentType, result.Content)
}

type costBreakdownRequest struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	OverheadPercentage decimal.Decimal `json:"overhead_percentage"`
	MarginPercentage   decimal.Decimal `json:"margin_percentage"`
}

func (h *Handler) costBreakdown(c *gin.Context) {
	if _, ok := principalFor(c, false); !ok {
		return
	}

	var req costBreakdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OverheadPercentage.IsNegative() || req.MarginPercentage.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "percentages must not be negative"})
		return
	}

	breakdown := service.CostBreakdown(req.Subtotal, req.OverheadPercentage, req.MarginPercentage)
	c.JSON(http.StatusOK, gin.H{"data": toCostBreakdown(breakdown)})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled):
		c.JSON(499, gin.H{"error": "request cancelled"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
