package services

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/specscan/backend/internal/extract"
	"github.com/specscan/backend/internal/logger"
	"github.com/specscan/backend/internal/models"
)

// FingerprintRuleService holds the custom fingerprint rules in effect.
type FingerprintRuleService struct {
	rules []models.FingerprintRule
}

// NewFingerprintRuleService validates rules and orders them by descending
// priority. Disabled rules are kept but never compiled into the cascade.
func NewFingerprintRuleService(rules []models.FingerprintRule) (*FingerprintRuleService, error) {
	sorted := make([]models.FingerprintRule, len(rules))
	copy(sorted, rules)
	for i := range sorted {
		if err := sorted[i].Validate(); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &FingerprintRuleService{rules: sorted}, nil
}

// LoadFingerprintRules reads a rules file. Files ending in .toml are decoded
// as TOML, anything else as YAML. An empty path yields no rules.
func LoadFingerprintRules(path string) ([]models.FingerprintRule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fingerprint rules: %w", err)
	}

	var set models.FingerprintRuleSet
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &set)
	} else {
		err = yaml.Unmarshal(data, &set)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse fingerprint rules %s: %w", path, err)
	}

	logger.Info("Fingerprint rules loaded", map[string]interface{}{
		"path":  path,
		"count": len(set.Fingerprints),
	})
	return set.Fingerprints, nil
}

// Rules returns all rules in priority order.
func (s *FingerprintRuleService) Rules() []models.FingerprintRule {
	out := make([]models.FingerprintRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// ActiveRules returns the enabled rules in priority order.
func (s *FingerprintRuleService) ActiveRules() []models.FingerprintRule {
	active := make([]models.FingerprintRule, 0, len(s.rules))
	for _, r := range s.rules {
		if !r.Disabled {
			active = append(active, r)
		}
	}
	return active
}

// Fingerprints compiles the active rules for the extraction cascade.
func (s *FingerprintRuleService) Fingerprints() []extract.Fingerprint {
	active := s.ActiveRules()
	out := make([]extract.Fingerprint, 0, len(active))
	for _, r := range active {
		out = append(out, toFingerprint(r))
	}
	return out
}

// Engine returns an extraction engine whose cascade includes the active rules.
func (s *FingerprintRuleService) Engine() *extract.Engine {
	return extract.NewEngine(extract.StrategiesWithFingerprints(s.Fingerprints()...)...)
}

// toFingerprint assumes r has been validated.
func toFingerprint(r models.FingerprintRule) extract.Fingerprint {
	fp := extract.Fingerprint{
		Name:     r.Name,
		Markers:  r.Markers,
		Spec:     r.Spec,
		Format:   r.Format,
		Fallback: r.Fallback,
		Type:     r.Type,
	}
	if r.Pattern != "" {
		fp.Pattern = regexp.MustCompile(r.Pattern)
	}
	return fp
}

// FingerprintRuleTestResult represents the result of testing a rule
type FingerprintRuleTestResult struct {
	RuleName     string          `json:"rule_name"`
	TotalLogs    int             `json:"total_logs"`
	MatchCount   int             `json:"match_count"`
	NoMatchCount int             `json:"no_match_count"`
	Details      []LogTestDetail `json:"details"`
}

// LogTestDetail represents the result of testing a single sample log
type LogTestDetail struct {
	LogIndex int                   `json:"log_index"`
	Matched  bool                  `json:"matched"`
	Record   *models.FailureRecord `json:"record,omitempty"`
}

// TestFingerprintRule tests a rule against sample logs. Samples are
// normalised the same way the cascade normalises job logs.
func (s *FingerprintRuleService) TestFingerprintRule(rule *models.FingerprintRule, sampleLogs []string) (*FingerprintRuleTestResult, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	fp := toFingerprint(*rule)

	result := &FingerprintRuleTestResult{
		RuleName:  rule.Name,
		TotalLogs: len(sampleLogs),
		Details:   make([]LogTestDetail, 0, len(sampleLogs)),
	}

	for i, sample := range sampleLogs {
		detail := LogTestDetail{LogIndex: i}
		text := extract.Normalize(sample)
		if fp.Matches(text) {
			record := fp.Record(text)
			detail.Matched = true
			detail.Record = &record
			result.MatchCount++
		} else {
			result.NoMatchCount++
		}
		result.Details = append(result.Details, detail)
	}

	return result, nil
}
