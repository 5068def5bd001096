// Package detection holds the pattern registry and the detector that applies it
// to extracted text. Everything here is pure: no I/O, no state between calls.
package detection

import (
	"errors"
	"fmt"

	regexp "github.com/wasilibs/go-re2"
)

// Rule is a named regular expression. The name doubles as the category key in a
// MatchSet and in the persisted findings log.
type Rule struct {
	name string
	re   *regexp.Regexp
}

// NewRule compiles pattern into a Rule. Case-insensitive rules are expressed with
// an inline (?i) flag so the stored pattern reads the same as in a rules file.
func NewRule(name, pattern string, caseInsensitive bool) (Rule, error) {
	if name == "" {
		return Rule{}, errors.New("rule name is required")
	}
	if caseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compile rule %q: %w", name, err)
	}
	return Rule{name: name, re: re}, nil
}

func mustRule(name, pattern string, caseInsensitive bool) Rule {
	r, err := NewRule(name, pattern, caseInsensitive)
	if err != nil {
		panic(err)
	}
	return r
}

// Name returns the category name.
func (r Rule) Name() string { return r.name }

// Pattern returns the compiled expression source.
func (r Rule) Pattern() string { return r.re.String() }

// FindAll returns every non-overlapping match in text, in order of occurrence.
func (r Rule) FindAll(text string) []string { return r.re.FindAllString(text, -1) }

// Registry is an ordered, immutable set of rules. Order only affects iteration
// (and therefore log output); rules never influence one another.
type Registry struct {
	rules []Rule
	index map[string]struct{}
}

// NewRegistry builds a registry from rules, rejecting duplicate names.
func NewRegistry(rules ...Rule) (*Registry, error) {
	reg := &Registry{index: make(map[string]struct{}, len(rules))}
	for _, r := range rules {
		if _, dup := reg.index[r.name]; dup {
			return nil, fmt.Errorf("duplicate rule %q", r.name)
		}
		reg.index[r.name] = struct{}{}
		reg.rules = append(reg.rules, r)
	}
	return reg, nil
}

// Extend returns a new registry holding the receiver's rules followed by extra.
// A name already present is an error: built-in categories cannot be redefined.
func (reg *Registry) Extend(extra ...Rule) (*Registry, error) {
	all := make([]Rule, 0, len(reg.rules)+len(extra))
	all = append(all, reg.rules...)
	all = append(all, extra...)
	return NewRegistry(all...)
}

// Rules returns the rules in registration order.
func (reg *Registry) Rules() []Rule {
	out := make([]Rule, len(reg.rules))
	copy(out, reg.rules)
	return out
}

// Has reports whether a category with the given name exists.
func (reg *Registry) Has(name string) bool {
	_, ok := reg.index[name]
	return ok
}

// Len returns the number of rules.
func (reg *Registry) Len() int { return len(reg.rules) }

// Built-in category names.
const (
	CategoryEmail          = "email"
	CategoryCreditCard     = "creditCard"
	CategoryPhoneNumber    = "phoneNumber"
	CategoryAPIKey         = "apiKey"
	CategoryPassword       = "password"
	CategoryAWSKey         = "awsKey"
	CategoryJWT            = "jwtToken"
	CategoryDriverLicense  = "driverLicense"
	CategoryPassport       = "passport"
	CategoryIDNumber       = "idNumber"
	CategoryDateOfBirth    = "dateOfBirth"
	CategoryDocumentNumber = "documentNumber"
	CategoryRegistration   = "registration"
	CategoryNursing        = "nursing"
	CategoryExpiration     = "expiration"
	CategoryFacilities     = "facilities"
	CategoryDepartment     = "department"
	CategoryHealh          = "healh"
)

// space is the class body of a Unicode-aware \s. RE2's \s is ASCII only, and
// extracted PDF and OCR text often separates words with NBSP.
const space = `\s\v\p{Z}\x{FEFF}`

const (
	// ws is an optional whitespace run.
	ws = `[` + space + `]*`
	// labelSep is an optional run of colons and whitespace after a label.
	labelSep = `[:` + space + `]*`
)

// DefaultRegistry returns the built-in rule set. The bare keyword categories at
// the end are deliberately broad and will match ordinary prose.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(
		mustRule(CategoryEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, false),
		mustRule(CategoryCreditCard, `\b(?:\d[ -]*?){13,16}\b`, false),
		mustRule(CategoryPhoneNumber, `\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`, false),
		mustRule(CategoryAPIKey, `(?:api|key|token|secret)_?[a-zA-Z0-9]{16,}`, true),
		mustRule(CategoryPassword, `(?:password|pwd|pass|secret)[=:"'`+space+`][a-zA-Z0-9!@#$%^&*()_+\-=\[\]{}|;:,.<>?]{8,}`, true),
		mustRule(CategoryAWSKey, `AKIA[0-9A-Z]{16}`, false),
		mustRule(CategoryJWT, `eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`, false),
		mustRule(CategoryDriverLicense, `(?:driver'?s`+ws+`license|dl`+ws+`number)`+ws+labelSep+`[A-Za-z0-9-]{6,}`, true),
		mustRule(CategoryPassport, `(?:passport`+ws+`number|passport`+ws+`no)`+ws+labelSep+`[A-Za-z0-9]{6,}`, true),
		mustRule(CategoryIDNumber, `(?:id`+ws+`number|id`+ws+`no|national`+ws+`id)`+ws+labelSep+`[A-Za-z0-9-]{6,}`, true),
		mustRule(CategoryDateOfBirth, `(?:dob|date`+ws+`of`+ws+`birth)`+ws+labelSep+`\d{2}[-/]\d{2}[-/]\d{4}`, true),
		mustRule(CategoryDocumentNumber, `[A-Z]{2}\d{6,9}`, false),
		mustRule(CategoryRegistration, `\bregistration\b`, true),
		mustRule(CategoryNursing, `\bnursing\b`, true),
		mustRule(CategoryExpiration, `\bexpiration\b`, true),
		mustRule(CategoryFacilities, `\bfacilities\b`, true),
		mustRule(CategoryDepartment, `\bdepartment\b`, true),
		// Matches the literal token as configured; see DESIGN.md.
		mustRule(CategoryHealh, `\bhealh\b`, true),
	)
	if err != nil {
		panic(err)
	}
	return reg
}
