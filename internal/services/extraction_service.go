package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/specscan/backend/internal/extract"
	"github.com/specscan/backend/internal/logger"
	"github.com/specscan/backend/internal/metrics"
	"github.com/specscan/backend/internal/models"
)

// Extraction modes accepted by ExtractionService.Extract.
const (
	ModeAll           = metrics.ModeAll
	ModeAuthoritative = metrics.ModeAuthoritative
)

// ExtractionResult is the response shape of an offline extraction.
type ExtractionResult struct {
	Mode     string                 `json:"mode" yaml:"mode"`
	Strategy string                 `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Count    int                    `json:"count" yaml:"count"`
	Failures []models.FailureRecord `json:"failures" yaml:"failures"`
}

// ExtractionService wraps the extraction engine with logging and metrics.
type ExtractionService struct {
	engine *extract.Engine
}

// NewExtractionService creates a service over engine, or the default engine
// when engine is nil.
func NewExtractionService(engine *extract.Engine) *ExtractionService {
	if engine == nil {
		engine = extract.DefaultEngine()
	}
	return &ExtractionService{engine: engine}
}

// Strategies returns the cascade strategy names in priority order.
func (s *ExtractionService) Strategies() []string {
	return s.engine.Strategies()
}

// ParseMode normalises a mode name. Empty selects the authoritative cascade.
func ParseMode(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeAuthoritative:
		return ModeAuthoritative, nil
	case ModeAll:
		return ModeAll, nil
	default:
		return "", fmt.Errorf("unknown extraction mode %q (expected %q or %q)", mode, ModeAll, ModeAuthoritative)
	}
}

// All runs the coarse catalog sweep.
func (s *ExtractionService) All(log string) []models.FailureRecord {
	start := time.Now()
	records := s.engine.All(log)
	metrics.ObserveExtraction(ModeAll, "", recordTypes(records), time.Since(start))
	return records
}

// Authoritative runs the strategy cascade and reports the winning strategy.
func (s *ExtractionService) Authoritative(log string, job models.JobContext) extract.Result {
	start := time.Now()
	result := s.engine.Run(log, job)
	elapsed := time.Since(start)
	metrics.ObserveExtraction(ModeAuthoritative, result.Strategy, recordTypes(result.Failures), elapsed)

	logger.Debug("Cascade extraction finished", map[string]interface{}{
		"job_id":   job.ID,
		"strategy": result.Strategy,
		"records":  len(result.Failures),
		"bytes":    len(log),
		"duration": elapsed.String(),
	})
	return result
}

// Extract runs the requested mode. job is ignored by the coarse sweep.
func (s *ExtractionService) Extract(log, mode string, job models.JobContext) (*ExtractionResult, error) {
	parsed, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	if parsed == ModeAll {
		records := s.All(log)
		return &ExtractionResult{Mode: parsed, Count: len(records), Failures: records}, nil
	}

	result := s.Authoritative(log, job)
	return &ExtractionResult{
		Mode:     parsed,
		Strategy: result.Strategy,
		Count:    len(result.Failures),
		Failures: result.Failures,
	}, nil
}

func recordTypes(records []models.FailureRecord) []string {
	types := make([]string, len(records))
	for i, r := range records {
		types[i] = string(r.Type)
	}
	return types
}
