package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/specscan/backend/internal/extract"
	"github.com/specscan/backend/internal/logger"
	"github.com/specscan/backend/internal/models"
	"github.com/specscan/backend/internal/services"
)

type FingerprintRuleController struct {
	ruleService *services.FingerprintRuleService
}

func NewFingerprintRuleController(ruleService *services.FingerprintRuleService) *FingerprintRuleController {
	return &FingerprintRuleController{
		ruleService: ruleService,
	}
}

type fingerprintView struct {
	Name    string   `json:"name"`
	Markers []string `json:"markers"`
	Spec    string   `json:"spec"`
	BuiltIn bool     `json:"built_in"`
}

// GetFingerprints returns the built-in fingerprints followed by custom rules
func (frc *FingerprintRuleController) GetFingerprints(c *gin.Context) {
	views := make([]fingerprintView, 0)
	for _, fp := range extract.PinnedFingerprints() {
		views = append(views, fingerprintView{Name: fp.Name, Markers: fp.Markers, Spec: fp.Spec, BuiltIn: true})
	}

	c.JSON(http.StatusOK, gin.H{
		"fingerprints": views,
		"rules":        frc.ruleService.Rules(),
	})
}

// TestFingerprintRule tests a candidate rule against sample logs
func (frc *FingerprintRuleController) TestFingerprintRule(c *gin.Context) {
	var request struct {
		Rule       models.FingerprintRule `json:"rule"`
		SampleLogs []string               `json:"sample_logs" binding:"required,min=1"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		logger.WithError(err, "fingerprint_rule_controller").Warn("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := frc.ruleService.TestFingerprintRule(&request.Rule, request.SampleLogs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.Info("Fingerprint rule test completed", map[string]interface{}{
		"rule_name":   request.Rule.Name,
		"match_count": result.MatchCount,
		"total_logs":  result.TotalLogs,
	})

	c.JSON(http.StatusOK, gin.H{
		"result": result,
	})
}
