package model

import (
	"fmt"
	"slices"
)

// RuleKind is the kind of a declared validation
type RuleKind string

const (
	RulePresence   RuleKind = "presence"
	RuleUniqueness RuleKind = "uniqueness"
	RuleInclusion  RuleKind = "inclusion"
)

// Rule is a validation declared on an entity
type Rule struct {
	Kind       RuleKind
	Attributes []string
	// Scope lists the additional columns of a uniqueness rule
	Scope []string
	// CaseSensitive applies to uniqueness rules only
	CaseSensitive bool
	// Values is the allowed value set of an inclusion rule, rendered as strings
	Values []string
}

// Presence declares that the attributes must be non-empty
func Presence(attrs ...string) Rule {
	return Rule{Kind: RulePresence, Attributes: attrs}
}

// Uniqueness declares a case-sensitive uniqueness rule over the attributes
func Uniqueness(attrs ...string) Rule {
	return Rule{Kind: RuleUniqueness, Attributes: attrs, CaseSensitive: true}
}

// Inclusion declares that the attributes must take one of the given values
func Inclusion(values []string, attrs ...string) Rule {
	return Rule{Kind: RuleInclusion, Attributes: attrs, Values: values}
}

// BooleanInclusion declares inclusion in {true, false}
func BooleanInclusion(attrs ...string) Rule {
	return Inclusion([]string{"true", "false"}, attrs...)
}

// WithScope returns a copy of a uniqueness rule with the given scope columns
func (r Rule) WithScope(scope ...string) Rule {
	r.Scope = scope
	return r
}

// CaseInsensitive returns a copy of a uniqueness rule that ignores case
func (r Rule) CaseInsensitive() Rule {
	r.CaseSensitive = false
	return r
}

// IsBooleanInclusion reports whether the rule restricts its attributes to exactly {true, false}
func (r Rule) IsBooleanInclusion() bool {
	if r.Kind != RuleInclusion || len(r.Values) == 0 {
		return false
	}
	for _, v := range r.Values {
		if v != "true" && v != "false" {
			return false
		}
	}
	return slices.Contains(r.Values, "true") && slices.Contains(r.Values, "false")
}

// Covers reports whether the rule names the attribute
func (r Rule) Covers(attr string) bool {
	return slices.Contains(r.Attributes, attr)
}

// Association is a belongs-to relation whose foreign key lives on the entity's table
type Association struct {
	Name       string
	ForeignKey string
	Optional   bool
}

// Column returns the foreign key column, deriving it from the name when unset
func (a Association) Column(suffix string) string {
	if a.ForeignKey != "" {
		return a.ForeignKey
	}
	return a.Name + suffix
}

// Entity is an application model backed by one table
type Entity struct {
	Name         string
	Table        string
	Rules        []Rule
	Associations []Association
}

// HasPresence reports whether a presence rule covers the attribute
func (e Entity) HasPresence(attr string) bool {
	for _, r := range e.Rules {
		if r.Kind == RulePresence && r.Covers(attr) {
			return true
		}
	}
	return false
}

// HasBooleanInclusion reports whether an inclusion rule restricts the attribute to {true, false}
func (e Entity) HasBooleanInclusion(attr string) bool {
	for _, r := range e.Rules {
		if r.IsBooleanInclusion() && r.Covers(attr) {
			return true
		}
	}
	return false
}

// RequiresAssociation reports whether a non-optional belongs-to uses the column as its foreign key
func (e Entity) RequiresAssociation(column, suffix string) bool {
	for _, a := range e.Associations {
		if !a.Optional && a.Column(suffix) == column {
			return true
		}
	}
	return false
}

// UniquenessRules returns the uniqueness rules of the entity
func (e Entity) UniquenessRules() []Rule {
	var out []Rule
	for _, r := range e.Rules {
		if r.Kind == RuleUniqueness {
			out = append(out, r)
		}
	}
	return out
}

// Validate checks that the entity can be audited
func (e Entity) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("entity has no name")
	}
	if e.Table == "" {
		return fmt.Errorf("entity %s has no table", e.Name)
	}
	for i, r := range e.Rules {
		switch r.Kind {
		case RulePresence, RuleUniqueness:
		case RuleInclusion:
			if len(r.Values) == 0 {
				return fmt.Errorf("entity %s: rule %d: inclusion without values", e.Name, i)
			}
		default:
			return fmt.Errorf("entity %s: rule %d: unknown kind %q", e.Name, i, r.Kind)
		}
		if len(r.Attributes) == 0 {
			return fmt.Errorf("entity %s: rule %d: %s without attributes", e.Name, i, r.Kind)
		}
	}
	for _, a := range e.Associations {
		if a.Name == "" && a.ForeignKey == "" {
			return fmt.Errorf("entity %s: association without name or foreign key", e.Name)
		}
	}
	return nil
}
