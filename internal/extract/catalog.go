package extract

import (
	"fmt"
	"regexp"

	"github.com/specscan/backend/internal/models"
)

// CatalogEntry binds a framework label to a failure pattern. SpecGroup and
// MessageGroup are capture group indexes; zero means the pattern does not
// capture that field.
type CatalogEntry struct {
	Label        models.FrameworkLabel
	Pattern      *regexp.Regexp
	SpecGroup    int
	MessageGroup int
}

// coarseCatalog is scanned in full by ExtractAll. Order is significant only
// for the order of the returned records.
var coarseCatalog = []CatalogEntry{
	newCatalogEntry(models.FrameworkRSpec,
		`(?i)(?:Failure|Error):[ \t]*([\w \t:'"/.\-\[\]]+?)[ \t]*\n[ \t]+((?s:.*?))(?:\b(?:Expected|Received|Got)\b|\n[ \t]*\n|\z)`,
		1, 2),
	newCatalogEntry(models.FrameworkRSpecSummary,
		`rspec[ \t]+((?:\./)?[\w/.\-:\[\],]+)[ \t]+#[ \t]*([^\n]+)`,
		1, 2),
	newCatalogEntry(models.FrameworkJest,
		`(?s)\bFAIL[ \t]+([\w/.\-]+)[ \t]*\n.*?(?:expect\(.*?\).*?|Error:)(.*?)(?:\n\s*at\b|\n\s*\z)`,
		1, 2),
	newCatalogEntry(models.FrameworkKarma,
		`(?s)\bFAILED[ \t]+([\w/.\-]+)[ \t]*\n.*?(?:expected|actual|Error:)(.*?)(?:\n\s*at\b|\n\s*\z)`,
		1, 2),
	newCatalogEntry(models.FrameworkCypress,
		`(?s)(?:AssertionError|CypressError).*?(?:expected|actual|Error:)(.*?)(?:\n\s*at\b|\n\s*\z)`,
		0, 1),
}

// newCatalogEntry compiles a pattern and checks its capture group contract.
// A broken contract is a programming error and panics at package init.
func newCatalogEntry(label models.FrameworkLabel, pattern string, specGroup, messageGroup int) CatalogEntry {
	re := mustCompileGroups(pattern, max(specGroup, messageGroup))
	return CatalogEntry{
		Label:        label,
		Pattern:      re,
		SpecGroup:    specGroup,
		MessageGroup: messageGroup,
	}
}

func mustCompileGroups(pattern string, groups int) *regexp.Regexp {
	re := regexp.MustCompile(pattern)
	if re.NumSubexp() < groups {
		panic(fmt.Sprintf("extract: pattern %q has %d capture groups, need %d", pattern, re.NumSubexp(), groups))
	}
	return re
}

// Catalog returns a copy of the coarse catalog.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(coarseCatalog))
	copy(out, coarseCatalog)
	return out
}

// Scan returns every non-overlapping match of the entry in log, top to bottom.
func (e CatalogEntry) Scan(log string) []models.FailureRecord {
	var records []models.FailureRecord
	for _, m := range e.Pattern.FindAllStringSubmatch(log, -1) {
		rec := models.FailureRecord{Type: e.Label}
		if e.SpecGroup > 0 {
			rec.Spec = cleanSpec(m[e.SpecGroup])
		}
		if e.MessageGroup > 0 {
			rec.Message = cleanMessage(m[e.MessageGroup])
		}
		if rec.IsEmpty() {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// scanCatalog applies every entry to an already normalized log and
// accumulates all matches without short-circuiting.
func scanCatalog(entries []CatalogEntry, log string) []models.FailureRecord {
	records := []models.FailureRecord{}
	for _, entry := range entries {
		records = append(records, entry.Scan(log)...)
	}
	return records
}
