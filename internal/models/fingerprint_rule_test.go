package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintRule_Validate(t *testing.T) {
	valid := func() FingerprintRule {
		return FingerprintRule{
			Name:    "timeout",
			Markers: []string{"Net::ReadTimeout"},
			Spec:    "./spec/http_spec.rb:3",
			Pattern: `after (\d+) seconds`,
			Format:  "timed out after %s seconds",
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *FingerprintRule)
		wantErr string
	}{
		{"valid", func(r *FingerprintRule) {}, ""},
		{"no pattern", func(r *FingerprintRule) { r.Pattern, r.Format = "", "" }, ""},
		{"fallback only", func(r *FingerprintRule) { r.Spec, r.Fallback = "", "timeout" }, ""},
		{"missing name", func(r *FingerprintRule) { r.Name = " " }, "name is required"},
		{"no markers", func(r *FingerprintRule) { r.Markers = nil }, "at least one marker"},
		{"empty marker", func(r *FingerprintRule) { r.Markers = []string{"a", ""} }, "marker 1 is empty"},
		{"no spec or fallback", func(r *FingerprintRule) { r.Spec = "" }, "spec or fallback"},
		{"bad regex", func(r *FingerprintRule) { r.Pattern = `(` }, "invalid regex"},
		{"missing format", func(r *FingerprintRule) { r.Format = "" }, "format is required"},
		{"verb mismatch", func(r *FingerprintRule) { r.Format = "%s %s" }, "format uses 2 values"},
		{"literal percent", func(r *FingerprintRule) { r.Format = "%s seconds (100%%)" }, ""},
		{"non-string verb", func(r *FingerprintRule) { r.Format = "%s at %d" }, "%d is not supported"},
		{"bare percent", func(r *FingerprintRule) { r.Format = "after %s seconds %" }, "bare %"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
