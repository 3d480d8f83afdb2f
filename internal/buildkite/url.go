package buildkite

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var buildURLPattern = regexp.MustCompile(`buildkite\.com/([^/]+)/([^/]+)/builds/(\d+)`)

// ErrInvalidBuildURL is returned by ParseBuildURL for unrecognised input.
var ErrInvalidBuildURL = errors.New("invalid Buildkite URL, expected https://buildkite.com/org/pipeline/builds/number")

// ParseBuildURL extracts the organization, pipeline and build number from a
// build link such as https://buildkite.com/acme/web/builds/42. Trailing path
// segments and fragments are ignored.
func ParseBuildURL(raw string) (org, pipeline string, number int, err error) {
	m := buildURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", "", 0, ErrInvalidBuildURL
	}
	number, err = strconv.Atoi(m[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid build number %q: %w", m[3], err)
	}
	return m[1], m[2], number, nil
}
