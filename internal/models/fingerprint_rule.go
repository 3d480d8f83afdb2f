package models

import (
	"fmt"
	"regexp"
	"strings"
)

// FingerprintRule is a user-supplied pinned failure signature, loaded from a
// YAML or TOML rules file and appended to the built-in fingerprints.
type FingerprintRule struct {
	Name        string         `json:"name" yaml:"name" toml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Markers     []string       `json:"markers" yaml:"markers" toml:"markers"`
	Spec        string         `json:"spec" yaml:"spec" toml:"spec"`
	Pattern     string         `json:"pattern,omitempty" yaml:"pattern,omitempty" toml:"pattern,omitempty"`
	Format      string         `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty"`
	Fallback    string         `json:"fallback,omitempty" yaml:"fallback,omitempty" toml:"fallback,omitempty"`
	Type        FrameworkLabel `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty"`
	Priority    int            `json:"priority,omitempty" yaml:"priority,omitempty" toml:"priority,omitempty"` // Higher priority rules are tried first
	Disabled    bool           `json:"disabled,omitempty" yaml:"disabled,omitempty" toml:"disabled,omitempty"`
}

// FingerprintRuleSet is the top-level shape of a rules file.
type FingerprintRuleSet struct {
	Fingerprints []FingerprintRule `json:"fingerprints" yaml:"fingerprints" toml:"fingerprints"`
}

func (r *FingerprintRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("fingerprint name is required")
	}
	if len(r.Markers) == 0 {
		return fmt.Errorf("fingerprint %q: at least one marker is required", r.Name)
	}
	for i, m := range r.Markers {
		if m == "" {
			return fmt.Errorf("fingerprint %q: marker %d is empty", r.Name, i)
		}
	}
	if strings.TrimSpace(r.Spec) == "" && strings.TrimSpace(r.Fallback) == "" {
		return fmt.Errorf("fingerprint %q: spec or fallback is required", r.Name)
	}
	if r.Pattern != "" {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("fingerprint %q: invalid regex pattern: %w", r.Name, err)
		}
		if r.Format == "" {
			return fmt.Errorf("fingerprint %q: format is required with a pattern", r.Name)
		}
		verbs, err := countStringVerbs(r.Format)
		if err != nil {
			return fmt.Errorf("fingerprint %q: %w", r.Name, err)
		}
		if verbs != re.NumSubexp() {
			return fmt.Errorf("fingerprint %q: format uses %d values but pattern has %d groups", r.Name, verbs, re.NumSubexp())
		}
	}
	return nil
}

// countStringVerbs counts %s verbs in format. Only %s and %% are allowed
// since captures are always strings.
func countStringVerbs(format string) (int, error) {
	count := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 == len(format) {
			return 0, fmt.Errorf("format ends with a bare %%")
		}
		i++
		switch format[i] {
		case 's':
			count++
		case '%':
		default:
			return 0, fmt.Errorf("format verb %%%c is not supported, use %%s", format[i])
		}
	}
	return count, nil
}
