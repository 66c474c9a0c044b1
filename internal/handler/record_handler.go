package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/Kosench/go-url-tracker/internal/errors"
	"github.com/Kosench/go-url-tracker/internal/model"
)

const (
	msgURLExists      = "URL exists"
	msgSaved          = "Data saved successfully"
	msgUpdated        = "Data updated successfully"
	msgDeleted        = "Data deleted successfully"
	msgNotFound       = "Data not found"
	msgStatusUpdated  = "Active status updated"
	msgErrSaving      = "Error saving data"
	msgErrUpdating    = "Error updating data"
	msgErrDeleting    = "Error deleting data"
	msgErrStatus      = "Error updating active status"
	msgErrSubmitting  = "Error submitting embed code"
	msgErrReconciling = "Error running reconciliation"
)

type RecordService interface {
	Register(ctx context.Context, req *model.SaveRecordRequest) (*model.RegisterResult, error)
	Update(ctx context.Context, id int64, req *model.UpdateRecordRequest) error
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) []model.URLRecord
	ListExpired(ctx context.Context) []model.URLRecord
	BulkUpdateStatus(ctx context.Context, updates []model.StatusUpdate) error
	SubmitEmbed(ctx context.Context, embedCode string) (*model.SubmitResult, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (*model.SweepResult, error)
}

type RecordHandler struct {
	records RecordService
	sweeper Sweeper
	log     *zap.Logger
}

func NewRecordHandler(records RecordService, sweeper Sweeper, log *zap.Logger) *RecordHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordHandler{
		records: records,
		sweeper: sweeper,
		log:     log,
	}
}

func (h *RecordHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.POST("/save-data", h.SaveData)
	r.POST("/update-data/:id", h.UpdateData)
	r.DELETE("/delete-data/:id", h.DeleteData)
	r.GET("/get-data", h.GetData)
	r.GET("/get-expired", h.GetExpired)
	r.POST("/update-active-status", h.UpdateActiveStatus)
	r.POST("/submit-embed", h.SubmitEmbed)
	if h.sweeper != nil {
		r.POST("/reconcile", h.Reconcile)
	}
}

func (h *RecordHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.MessageResponse{Message: "URL Tracker is running"})
}

func (h *RecordHandler) SaveData(c *gin.Context) {
	var req model.SaveRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	result, err := h.records.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err, msgErrSaving)
		return
	}

	message := msgSaved
	if result.Exists {
		message = msgURLExists
	}
	c.JSON(http.StatusOK, model.MessageResponse{Message: message, ID: &result.ID})
}

func (h *RecordHandler) UpdateData(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	if err := h.records.Update(c.Request.Context(), id, &req); err != nil {
		h.handleError(c, err, msgErrUpdating)
		return
	}

	c.JSON(http.StatusOK, model.MessageResponse{Message: msgUpdated})
}

func (h *RecordHandler) DeleteData(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.records.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err, msgErrDeleting)
		return
	}

	c.JSON(http.StatusOK, model.MessageResponse{Message: msgDeleted})
}

// GetData always answers 200; an unreachable store yields [].
func (h *RecordHandler) GetData(c *gin.Context) {
	c.JSON(http.StatusOK, h.records.ListAll(c.Request.Context()))
}

func (h *RecordHandler) GetExpired(c *gin.Context) {
	c.JSON(http.StatusOK, h.records.ListExpired(c.Request.Context()))
}

func (h *RecordHandler) UpdateActiveStatus(c *gin.Context) {
	var updates []model.StatusUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		invalidBody(c)
		return
	}

	if err := h.records.BulkUpdateStatus(c.Request.Context(), updates); err != nil {
		h.handleError(c, err, msgErrStatus)
		return
	}

	c.JSON(http.StatusOK, model.MessageResponse{Message: msgStatusUpdated})
}

func (h *RecordHandler) SubmitEmbed(c *gin.Context) {
	var req model.SubmitEmbedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	result, err := h.records.SubmitEmbed(c.Request.Context(), req.EmbedCode)
	if err != nil {
		h.handleError(c, err, msgErrSubmitting)
		return
	}

	message := msgSaved
	if result.Exists {
		message = msgURLExists
	}
	c.JSON(http.StatusOK, model.SubmitResponse{
		Message: message,
		ID:      result.ID,
		Record:  result.Record,
	})
}

func (h *RecordHandler) Reconcile(c *gin.Context) {
	result, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		h.handleError(c, err, msgErrReconciling)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_id",
			"message": "ID must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func invalidBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": "Invalid JSON format",
	})
}

// handleError maps service errors to status codes. failMessage is the
// endpoint's generic message for 5xx responses.
func (h *RecordHandler) handleError(c *gin.Context, err error, failMessage string) {
	if validationErr := apperrors.GetValidationError(err); validationErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": validationErr.Message,
			"field":   validationErr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrInvalidEmbedCode):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_embed_code",
			"message": "No iframe src URL found in embed code",
		})
		return
	case errors.Is(err, apperrors.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": msgNotFound})
		return
	case errors.Is(err, apperrors.ErrURLAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "url_exists",
			"message": "URL is already tracked by another record",
		})
		return
	}

	_ = c.Error(err)
	h.log.Error(failMessage, zap.String("path", c.FullPath()), zap.Error(err))

	if businessErr := apperrors.GetBusinessError(err); businessErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   businessErr.Code,
			"message": failMessage,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": failMessage,
	})
}
