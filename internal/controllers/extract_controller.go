package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/specscan/backend/internal/extract"
	"github.com/specscan/backend/internal/logger"
	"github.com/specscan/backend/internal/models"
	"github.com/specscan/backend/internal/services"
)

// ExtractRequest carries raw log text for offline extraction.
type ExtractRequest struct {
	Log  *string           `json:"log" binding:"required"`
	Mode string            `json:"mode"`
	Job  models.JobContext `json:"job"`
}

type ExtractController struct {
	extractor *services.ExtractionService
}

func NewExtractController(extractor *services.ExtractionService) *ExtractController {
	return &ExtractController{extractor: extractor}
}

// Extract runs the requested extraction mode over posted log text
func (ec *ExtractController) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WithError(err, "extract_controller").Warn("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "log is required"})
		return
	}

	result, err := ec.extractor.Extract(*req.Log, req.Mode, req.Job)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Strategies describes the cascade order and the coarse catalog
func (ec *ExtractController) Strategies(c *gin.Context) {
	labels := make([]models.FrameworkLabel, 0)
	for _, entry := range extract.Catalog() {
		labels = append(labels, entry.Label)
	}
	c.JSON(http.StatusOK, gin.H{
		"cascade": ec.extractor.Strategies(),
		"catalog": labels,
	})
}
