// Package forms models the dynamically-shaped clinical form sections that
// travel with a submission. Each section is a loose field bag; a missing
// section is always the explicit empty variant, never a nil map.
package forms

import (
	"strconv"
	"strings"
)

// Section discriminates the form variants carried by a submission.
type Section string

const (
	SectionPatient      Section = "patient"
	SectionEKG          Section = "ekg"
	SectionEcho         Section = "echo"
	SectionAttachements Section = "attachements"
)

// Fields is one form section's data.
type Fields map[string]interface{}

// EmptyFields is the explicit empty variant for a missing section.
func EmptyFields() Fields {
	return Fields{}
}

// Bundle is the set of form sections the rule engine evaluates.
type Bundle struct {
	Protocol string
	Patient  Fields
	EKG      Fields
	Echo     Fields
}

// Section returns the requested section, empty when absent.
func (b Bundle) Section(section Section) Fields {
	var f Fields
	switch section {
	case SectionPatient:
		f = b.Patient
	case SectionEKG:
		f = b.EKG
	case SectionEcho:
		f = b.Echo
	}
	if f == nil {
		return EmptyFields()
	}
	return f
}

// Str returns the named field coerced to a string. Missing or non-string
// fields yield "".
func (f Fields) Str(name string) string {
	if f == nil {
		return ""
	}
	switch v := f[name].(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return ""
	}
}

// Float returns the named field coerced to a float64. JSON decoding delivers
// numbers as float64, but form payloads sometimes carry numeric strings.
func (f Fields) Float(name string) (float64, bool) {
	if f == nil {
		return 0, false
	}
	switch v := f[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// List returns the named field coerced to a string slice.
func (f Fields) List(name string) []string {
	if f == nil {
		return nil
	}
	switch v := f[name].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// Has reports whether the named field is present and non-empty.
func (f Fields) Has(name string) bool {
	if f == nil {
		return false
	}
	v, ok := f[name]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}
