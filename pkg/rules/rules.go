// Package rules evaluates the acceptance criteria gating automatic approval
// of a migrated examination. The predicate battery encodes real clinical
// thresholds; the literal sets must stay exactly as reviewed by the CMO.
package rules

import (
	"fmt"
	"strconv"

	"github.com/sparrowhealth/clinic-platform/pkg/forms"
)

// FullProtocol is the protocol name that routes to the complete rule set.
// Any other non-empty protocol is evaluated with the abbreviated (SAP) set.
const FullProtocol = "Complete Protocol"

// Test selects how a rule compares the inspected field.
type Test int

const (
	// Equals violates when the field equals the single expected literal.
	Equals Test = iota
	// OneOf violates when the field is a member of the expected set.
	OneOf
	// NumericAtMost violates when the field parses numerically and is
	// <= Threshold. A recorded zero counts; only an absent field passes.
	NumericAtMost
	// IntersectsNonEmpty violates when the field list shares at least one
	// element with the expected set.
	IntersectsNonEmpty
)

// Rule is one declarative acceptance predicate. A violated rule renders its
// Message template with the offending value.
type Rule struct {
	Section   forms.Section
	Field     string
	Test      Test
	Expected  []string
	Threshold float64
	Message   string
}

// Apply evaluates the rule against a bundle. It returns the formatted
// violation and true when the rule fires.
func (r Rule) Apply(bundle forms.Bundle) (string, bool) {
	section := bundle.Section(r.Section)

	switch r.Test {
	case Equals:
		value := section.Str(r.Field)
		if value != "" && value == r.Expected[0] {
			return fmt.Sprintf(r.Message, value), true
		}

	case OneOf:
		value := section.Str(r.Field)
		if value == "" {
			return "", false
		}
		for _, expected := range r.Expected {
			if value == expected {
				return fmt.Sprintf(r.Message, value), true
			}
		}

	case NumericAtMost:
		if !section.Has(r.Field) {
			return "", false
		}
		value, ok := section.Float(r.Field)
		if ok && value <= r.Threshold {
			return fmt.Sprintf(r.Message, strconv.FormatFloat(value, 'f', -1, 64)), true
		}

	case IntersectsNonEmpty:
		values := section.List(r.Field)
		if len(values) == 0 {
			return "", false
		}
		matches := intersect(r.Expected, values)
		if len(matches) > 0 {
			return fmt.Sprintf(r.Message, join(matches)), true
		}
	}

	return "", false
}

// Evaluate runs the rule set selected by the bundle's protocol and returns
// the ordered violation list. An empty result means the examination is clean
// for automatic acceptance.
func Evaluate(bundle forms.Bundle) []string {
	if bundle.Protocol == "" || bundle.Protocol == FullProtocol {
		return run(fullProtocolRules(), bundle)
	}
	return run(sapRules(), bundle)
}

func run(set []Rule, bundle forms.Bundle) []string {
	var violations []string
	for _, rule := range set {
		if message, violated := rule.Apply(bundle); violated {
			violations = append(violations, message)
		}
	}
	return violations
}

// intersect keeps the expected-set order so violation messages are
// deterministic regardless of how the form listed the values.
func intersect(expected, values []string) []string {
	present := make(map[string]struct{}, len(values))
	for _, v := range values {
		present[v] = struct{}{}
	}
	var matches []string
	for _, e := range expected {
		if _, ok := present[e]; ok {
			matches = append(matches, e)
		}
	}
	return matches
}

func join(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		out += v
	}
	return out
}
