package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/transport/http/middleware"
	"github.com/arklim/residency-registry/internal/usecase"
)

// RecordHandler exposes residency record CRUD.
type RecordHandler struct {
	records *usecase.RecordService
}

// NewRecordHandler constructs RecordHandler.
func NewRecordHandler(records *usecase.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

// RegisterRoutes binds record routes. The group must require authentication; writes
// other than create are additionally restricted to admins.
func (h *RecordHandler) RegisterRoutes(r *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	r.POST("", h.create)
	r.GET("", h.list)
	r.GET("/:id", h.get)
	r.PUT("/:id", adminOnly, h.update)
	r.DELETE("/:id", adminOnly, h.delete)
}

var recordErrorCases = []ErrorCase{
	{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "record is invalid or incomplete"},
	{Err: usecase.ErrRecordExists, Status: http.StatusConflict, Message: "record already exists"},
	{Err: usecase.ErrRecordNotFound, Status: http.StatusNotFound, Message: "record not found"},
}

func (h *RecordHandler) create(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var rec domain.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid record payload"))
		return
	}

	created, err := h.records.Create(c.Request.Context(), identity.Username, rec)
	if err != nil {
		RespondWithMappedError(c, err, recordErrorCases, http.StatusInternalServerError, "failed to create record")
		return
	}
	c.JSON(http.StatusCreated, RecordResponse{Message: "record created", Record: created})
}

func (h *RecordHandler) list(c *gin.Context) {
	records, err := h.records.List(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to fetch records")
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *RecordHandler) get(c *gin.Context) {
	rec, err := h.records.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, recordErrorCases, http.StatusInternalServerError, "failed to fetch record")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *RecordHandler) update(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var patch domain.RecordPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid record payload"))
		return
	}

	updated, err := h.records.Update(c.Request.Context(), identity.Username, c.Param("id"), patch)
	if err != nil {
		RespondWithMappedError(c, err, recordErrorCases, http.StatusInternalServerError, "failed to update record")
		return
	}
	c.JSON(http.StatusOK, RecordResponse{Message: "record updated", Record: updated})
}

func (h *RecordHandler) delete(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.records.Delete(c.Request.Context(), identity.Username, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, recordErrorCases, http.StatusInternalServerError, "failed to delete record")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "record deleted"})
}
