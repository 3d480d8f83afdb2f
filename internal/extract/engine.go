// Package extract turns CI build logs into structured test failure records.
//
// Two modes are offered. ExtractAll sweeps a coarse per-framework catalog and
// keeps every match. ExtractAuthoritative runs a priority cascade of
// strategies and returns the result of the first one that finds anything.
// Both are pure functions of their input and safe for concurrent use.
package extract

import (
	"github.com/specscan/backend/internal/models"
)

// DefaultStrategies returns the authoritative cascade in priority order.
func DefaultStrategies() []Strategy {
	return StrategiesWithFingerprints()
}

// StrategiesWithFingerprints returns the default cascade with extra
// fingerprints tried after the built-in ones.
func StrategiesWithFingerprints(extra ...Fingerprint) []Strategy {
	fingerprints := append(PinnedFingerprints(), extra...)
	return []Strategy{
		failedExamplesStrategy{},
		NewFingerprintStrategy(fingerprints...),
		exampleSummaryStrategy{},
		newFailureBlockStrategy(),
		newFailBannerStrategy(),
		testPathStrategy{},
		failureCountStrategy{},
	}
}

// Result is the outcome of a cascade run. Strategy is empty when no
// strategy produced a record.
type Result struct {
	Strategy string
	Failures []models.FailureRecord
}

// Engine runs an ordered list of strategies.
type Engine struct {
	strategies []Strategy
	catalog    []CatalogEntry
}

// NewEngine creates an engine over the given cascade and the default coarse
// catalog.
func NewEngine(strategies ...Strategy) *Engine {
	return &Engine{
		strategies: strategies,
		catalog:    coarseCatalog,
	}
}

// DefaultEngine creates an engine with the standard cascade.
func DefaultEngine() *Engine {
	return NewEngine(DefaultStrategies()...)
}

// Strategies returns the names of the cascade entries in order.
func (e *Engine) Strategies() []string {
	names := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Run applies the cascade to log and stops at the first strategy that
// yields a non-empty record. Every returned record carries job.
func (e *Engine) Run(log string, job models.JobContext) Result {
	text := Normalize(log)
	for _, s := range e.strategies {
		records := finalize(s.Extract(text), job)
		if len(records) > 0 {
			return Result{Strategy: s.Name(), Failures: records}
		}
	}
	return Result{Failures: []models.FailureRecord{}}
}

// All applies every coarse catalog entry to log and returns all matches.
func (e *Engine) All(log string) []models.FailureRecord {
	return scanCatalog(e.catalog, Normalize(log))
}

// finalize drops records with neither spec nor message and stamps job
// metadata on the rest, preserving order.
func finalize(records []models.FailureRecord, job models.JobContext) []models.FailureRecord {
	out := make([]models.FailureRecord, 0, len(records))
	for _, r := range records {
		if r.IsEmpty() {
			continue
		}
		out = append(out, job.Apply(r))
	}
	return out
}

var defaultEngine = DefaultEngine()

// ExtractAll runs the coarse catalog sweep with the default engine.
func ExtractAll(log string) []models.FailureRecord {
	return defaultEngine.All(log)
}

// ExtractAuthoritative runs the priority cascade with the default engine.
func ExtractAuthoritative(log string, job models.JobContext) []models.FailureRecord {
	return defaultEngine.Run(log, job).Failures
}
