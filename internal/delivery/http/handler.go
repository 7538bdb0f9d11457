package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unicatalog/backend/internal/domain"
	"github.com/unicatalog/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog  *usecase.CatalogService
	compare  *usecase.CompareService
	pageSize int
}

// NewHandler creates a new HTTP handler
func NewHandler(catalog *usecase.CatalogService, compare *usecase.CompareService, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = usecase.DefaultPageSize
	}
	return &Handler{
		catalog:  catalog,
		compare:  compare,
		pageSize: pageSize,
	}
}

// idRequest is the body of selection mutations
type idRequest struct {
	ID int `json:"id" binding:"required"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "unicatalog-backend",
		"version": "1.0.0",
	})
}

// ListPrograms filters, sorts and paginates the catalog
func (h *Handler) ListPrograms(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		respondError(c, err)
		return
	}
	size, err := intQuery(c, "size", h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	criteria := usecase.Criteria{
		Faculty: c.Query("faculty"),
		Code:    c.Query("code"),
		Query:   c.Query("q"),
		Level:   domain.Level(c.Query("level")),
	}

	result, err := h.catalog.Query(criteria, usecase.SortKey(c.Query("sort")), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetProgram returns one catalog program
func (h *Handler) GetProgram(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	program, err := h.catalog.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, program)
}

// ListFaculties returns the faculty filter options
func (h *Handler) ListFaculties(c *gin.Context) {
	faculties := h.catalog.Faculties()
	if faculties == nil {
		faculties = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"faculties": faculties})
}

// ReloadCatalog refetches both sources, bypassing the payload cache
func (h *Handler) ReloadCatalog(c *gin.Context) {
	status, err := h.catalog.Reload(c.Request.Context(), true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetSelection returns the session's comparison selection
func (h *Handler) GetSelection(c *gin.Context) {
	sel, err := h.compare.Selection(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, selectionBody(sel))
}

// AddToSelection adds a catalog program to the selection
func (h *Handler) AddToSelection(c *gin.Context) {
	var req idRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}

	sel, err := h.compare.AddByID(c.Request.Context(), sessionID(c), req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, selectionBody(sel))
}

// RemoveFromSelection drops a program from the selection. Removing an absent id is not an error.
func (h *Handler) RemoveFromSelection(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	sel, err := h.compare.Selection(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	_, removed, err := sel.Remove(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	body := selectionBody(sel)
	body["removed"] = removed
	c.JSON(http.StatusOK, body)
}

// ClearSelection empties the selection
func (h *Handler) ClearSelection(c *gin.Context) {
	sel, err := h.compare.Selection(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := sel.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, selectionBody(sel))
}

// ToggleSelection adds the program if absent, otherwise removes it
func (h *Handler) ToggleSelection(c *gin.Context) {
	var req idRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}

	result, sel, err := h.compare.ToggleByID(c.Request.Context(), sessionID(c), req.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	body := selectionBody(sel)
	body["result"] = result
	c.JSON(http.StatusOK, body)
}

// GetQueue returns the session's handoff queue
func (h *Handler) GetQueue(c *gin.Context) {
	q, err := h.compare.Handoff(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, queueBody(q, h.compare.Capacity()))
}

// ToggleQueue flips a program in the handoff queue
func (h *Handler) ToggleQueue(c *gin.Context) {
	var req idRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}

	result, q, err := h.compare.ToggleQueued(c.Request.Context(), sessionID(c), req.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	body := queueBody(q, h.compare.Capacity())
	body["result"] = result
	c.JSON(http.StatusOK, body)
}

// DrainQueue moves the handoff queue into the selection
func (h *Handler) DrainQueue(c *gin.Context) {
	report, sel, err := h.compare.Drain(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	body := selectionBody(sel)
	body["report"] = report
	c.JSON(http.StatusOK, body)
}

// RankSelection reports the best program for one attribute
func (h *Handler) RankSelection(c *gin.Context) {
	programs, ok := h.selectionPrograms(c)
	if !ok {
		return
	}

	result, err := usecase.Rank(programs, c.Query("attribute"), usecase.Direction(c.DefaultQuery("direction", string(usecase.DirectionMax))))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompareTable returns the side-by-side comparison table
func (h *Handler) CompareTable(c *gin.Context) {
	programs, ok := h.selectionPrograms(c)
	if !ok {
		return
	}

	sections, err := usecase.CompareTable(programs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"programs": programs,
		"sections": sections,
	})
}

// CompareSummary returns the category winners and recommendations
func (h *Handler) CompareSummary(c *gin.Context) {
	programs, ok := h.selectionPrograms(c)
	if !ok {
		return
	}

	summary, err := usecase.Summarize(programs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) selectionPrograms(c *gin.Context) ([]domain.Program, bool) {
	sel, err := h.compare.Selection(c.Request.Context(), sessionID(c))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return sel.Programs(), true
}

func selectionBody(sel *usecase.Selection) gin.H {
	return gin.H{
		"programs": sel.Programs(),
		"count":    sel.Len(),
		"capacity": sel.Capacity(),
	}
}

func queueBody(q *usecase.HandoffQueue, capacity int) gin.H {
	return gin.H{
		"slots":    q.Slots(),
		"count":    q.Len(),
		"capacity": capacity,
	}
}

func idParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, badRequest(err)
	}
	return id, nil
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(err)
	}
	return n, nil
}

func badRequest(err error) error {
	return errors.Join(domain.ErrInvalidRequest, err)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProgramNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCapacityExceeded), errors.Is(err, domain.ErrAlreadyPresent):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientSelection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrEmptyCatalog), errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
