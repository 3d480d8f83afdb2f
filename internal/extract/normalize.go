package extract

import (
	"regexp"
	"strings"
)

var (
	// ansiPattern matches ANSI CSI escape sequences (colors, cursor movement).
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

	// buildkiteTimestampPattern matches Buildkite's inline timestamp markers.
	// Format: ESC _bk;t=1700000000000 BEL
	buildkiteTimestampPattern = regexp.MustCompile(`\x1b_bk;t=\d+\x07`)

	// newlineRunPattern matches any whitespace run that spans a line break.
	newlineRunPattern = regexp.MustCompile(`[ \t]*(?:\r?\n[ \t]*)+`)
)

// StripANSI removes ANSI escape codes from the log.
// Input:  "\x1b[31mFAIL\x1b[0m src/a.test.js"
// Output: "FAIL src/a.test.js"
func StripANSI(log string) string {
	return ansiPattern.ReplaceAllString(log, "")
}

// StripBuildkiteTimestamps removes Buildkite timestamp markers.
func StripBuildkiteTimestamps(log string) string {
	return buildkiteTimestampPattern.ReplaceAllString(log, "")
}

// Normalize returns a cleaned copy of the log: Buildkite markers and ANSI
// codes removed, CRLF line endings folded to LF.
func Normalize(log string) string {
	log = StripBuildkiteTimestamps(log)
	log = StripANSI(log)
	return strings.ReplaceAll(log, "\r\n", "\n")
}

// cleanSpec trims a captured spec identifier.
func cleanSpec(s string) string {
	return strings.TrimSpace(s)
}

// cleanMessage trims a captured message and collapses line breaks (with
// their surrounding indentation) to single spaces.
func cleanMessage(s string) string {
	return strings.TrimSpace(newlineRunPattern.ReplaceAllString(s, " "))
}
