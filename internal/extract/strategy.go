package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/specscan/backend/internal/models"
)

// Strategy is one entry of the authoritative cascade. Extract receives a
// normalized log and must be pure: no state survives between calls.
type Strategy interface {
	Name() string
	Extract(log string) []models.FailureRecord
}

// Strategy names, in cascade order.
const (
	StrategyFailedExamples    = "failed-examples"
	StrategyPinnedFingerprint = "pinned-fingerprint"
	StrategyExampleSummary    = "example-summary"
	StrategyFailureBlock      = "failure-block"
	StrategyFailBanner        = "fail-banner"
	StrategyTestPaths         = "test-paths"
	StrategyFailureCount      = "failure-count"
)

// UnknownSpecLocation is the placeholder spec for count-only failures.
const UnknownSpecLocation = "Unknown spec location"

var (
	// Failed examples:
	//
	// rspec ./spec/models/user_spec.rb:12 # User validates email
	// bundle exec rspec ./spec/models/user_spec.rb:12 # User validates email
	failedExamplesSectionPattern = mustCompileGroups(`(?i)failed examples?:\s*\n((?s:.+?))(?:\n[ \t]*\n|\z)`, 1)
	failedExampleLinePattern     = mustCompileGroups(`^[ \t]*(?:.*?\brspec[ \t]+)?['"]?((?:\./|/)?[\w/.\-]+(?::\d+)?(?:\[[\d:,]+\])?)['"]?(?:[ \t]+#[ \t]*(.*?))?[ \t]*$`, 2)
	failedExampleLineFilter      = regexp.MustCompile(`rspec|\./spec|\./components`)

	// 12 examples, 2 failures
	exampleSummaryPattern = mustCompileGroups(`(\d+)\s+examples?,\s+(\d+)\s+failures?`, 2)

	// rspec ./spec/foo_spec.rb:10 | # ./spec/foo_spec.rb:10:in `block' | ./spec/foo_spec.rb
	specReferencePattern = mustCompileGroups(`(?im)(?:^|[^\w/.\-])((?:\./)?spec/[\w/.\-]*?\.rb\b(?::\d+)?)`, 1)

	// Failure/Error: spec/foo_spec.rb:10 # Foo does bar
	//   expected 1, got 2
	failureBlockPattern = mustCompileGroups(`(?i)(?:Failure|Error):[ \t]*([^\n#]*?)[ \t]*#[ \t]*([^\n]*?)[ \t]*\n[ \t]+((?s:.*?))(?:\n[ \t]*\n|\z)`, 3)

	// FAIL src/components/Button.test.js
	//   ● Button › renders
	failBannerPattern = mustCompileGroups(`\bFAIL[ \t]+(\S+)(?:[ \t]{2,}|[^\n]*\n)((?s:.*?))(?:\n[ \t]*at\b|\n[ \t]*\n|\z)`, 2)

	// ./spec/foo_spec.rb:10, src/__tests__/a.test.tsx:4
	testPathPattern = mustCompileGroups(`(?im)(?:^|[^\w.\-/])((?:\.?/)?(?:[\w.\-]+/)*(?:spec|specs|test|tests|__tests__)/[\w./\-]*?\.(?:rb|js|jsx|ts|tsx):\d+)`, 1)
)

// failedExamplesStrategy reads RSpec's "Failed examples:" block, one
// runnable reference per line with an optional "# description".
type failedExamplesStrategy struct{}

func (failedExamplesStrategy) Name() string { return StrategyFailedExamples }

func (failedExamplesStrategy) Extract(log string) []models.FailureRecord {
	section := failedExamplesSectionPattern.FindStringSubmatch(log)
	if section == nil {
		return nil
	}

	var records []models.FailureRecord
	for _, line := range strings.Split(section[1], "\n") {
		if strings.TrimSpace(line) == "" || !failedExampleLineFilter.MatchString(line) {
			continue
		}
		m := failedExampleLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		records = append(records, models.FailureRecord{
			Type:    models.FrameworkRSpecSummary,
			Spec:    cleanSpec(m[1]),
			Message: cleanMessage(m[2]),
		})
	}
	return records
}

// exampleSummaryStrategy pairs a nonzero "N examples, M failures" counter
// with the first spec file reference in the log.
type exampleSummaryStrategy struct{}

func (exampleSummaryStrategy) Name() string { return StrategyExampleSummary }

func (exampleSummaryStrategy) Extract(log string) []models.FailureRecord {
	examples, failures, ok := firstFailingSummary(log)
	if !ok {
		return nil
	}
	ref := specReferencePattern.FindStringSubmatch(log)
	if ref == nil {
		return nil
	}
	return []models.FailureRecord{{
		Type:    models.FrameworkRSpec,
		Spec:    cleanSpec(ref[1]),
		Message: strconv.Itoa(failures) + " of " + strconv.Itoa(examples) + " examples failed",
	}}
}

// blockStrategy applies a single pattern globally and builds one record per
// match.
type blockStrategy struct {
	name    string
	pattern *regexp.Regexp
	build   func(m []string) models.FailureRecord
}

func (s blockStrategy) Name() string { return s.name }

func (s blockStrategy) Extract(log string) []models.FailureRecord {
	var records []models.FailureRecord
	for _, m := range s.pattern.FindAllStringSubmatch(log, -1) {
		records = append(records, s.build(m))
	}
	return records
}

func newFailureBlockStrategy() Strategy {
	return blockStrategy{
		name:    StrategyFailureBlock,
		pattern: failureBlockPattern,
		build: func(m []string) models.FailureRecord {
			return models.FailureRecord{
				Type:    models.FrameworkRSpec,
				Spec:    cleanSpec(m[1]),
				Message: joinNonEmpty(": ", cleanMessage(m[2]), cleanMessage(m[3])),
			}
		},
	}
}

func newFailBannerStrategy() Strategy {
	return blockStrategy{
		name:    StrategyFailBanner,
		pattern: failBannerPattern,
		build: func(m []string) models.FailureRecord {
			return models.FailureRecord{
				Type:    models.FrameworkJest,
				Spec:    cleanSpec(m[1]),
				Message: cleanMessage(m[2]),
			}
		},
	}
}

// testPathStrategy collects unique test file references with line numbers.
type testPathStrategy struct{}

func (testPathStrategy) Name() string { return StrategyTestPaths }

func (testPathStrategy) Extract(log string) []models.FailureRecord {
	var records []models.FailureRecord
	seen := make(map[string]bool)
	for _, m := range testPathPattern.FindAllStringSubmatch(log, -1) {
		path := cleanSpec(m[1])
		if seen[path] {
			continue
		}
		seen[path] = true
		records = append(records, models.FailureRecord{
			Type: models.FrameworkUnstructured,
			Spec: path,
		})
	}
	return records
}

// failureCountStrategy reports a bare nonzero failure counter when nothing
// else in the log identifies a spec.
type failureCountStrategy struct{}

func (failureCountStrategy) Name() string { return StrategyFailureCount }

func (failureCountStrategy) Extract(log string) []models.FailureRecord {
	examples, failures, ok := firstFailingSummary(log)
	if !ok {
		return nil
	}
	return []models.FailureRecord{{
		Type:    models.FrameworkUnstructured,
		Spec:    UnknownSpecLocation,
		Message: strconv.Itoa(failures) + " failures out of " + strconv.Itoa(examples) + " examples",
	}}
}

// firstFailingSummary finds the first example counter reporting at least
// one failure. Parallel runners print one counter per worker, so zero
// counters are skipped rather than ending the search.
func firstFailingSummary(log string) (examples, failures int, ok bool) {
	for _, m := range exampleSummaryPattern.FindAllStringSubmatch(log, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		f, err := strconv.Atoi(m[2])
		if err != nil || f == 0 {
			continue
		}
		return n, f, true
	}
	return 0, 0, false
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
