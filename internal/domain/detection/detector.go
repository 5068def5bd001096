package detection

// MatchSet maps a category name to the substrings it matched, in order of
// occurrence. Duplicates are kept. A category is present only when it matched
// at least once, so an empty MatchSet means the text is clean.
type MatchSet map[string][]string

// Categories returns the number of categories with matches.
func (m MatchSet) Categories() int { return len(m) }

// Total returns the number of matched substrings across all categories.
func (m MatchSet) Total() int {
	n := 0
	for _, v := range m {
		n += len(v)
	}
	return n
}

// Matcher is an additional source of matches evaluated next to the registry,
// such as an external secrets ruleset. Implementations must be safe to call
// repeatedly and must not retain text.
type Matcher interface {
	Match(text string) MatchSet
}

// Detector applies a Registry, plus any extra matchers, to text.
type Detector struct {
	registry *Registry
	matchers []Matcher
}

// NewDetector creates a Detector over the given registry.
func NewDetector(registry *Registry, matchers ...Matcher) *Detector {
	return &Detector{registry: registry, matchers: matchers}
}

// Detect evaluates every rule independently against text and returns the
// non-empty results keyed by category.
func (d *Detector) Detect(text string) MatchSet {
	matches := make(MatchSet)
	for _, rule := range d.registry.rules {
		if found := rule.FindAll(text); len(found) > 0 {
			matches[rule.name] = found
		}
	}

	for _, m := range d.matchers {
		for category, found := range m.Match(text) {
			if len(found) == 0 {
				continue
			}
			matches[category] = append(matches[category], found...)
		}
	}

	return matches
}
