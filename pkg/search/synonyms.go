package search

import (
	"strings"

	"github.com/code-100-precent/LingSearch/pkg/schema"
)

// SynonymLookup resolves a synonym map by name at query time.
type SynonymLookup func(name string) (schema.SynonymMap, bool)

// expandSynonyms appends the synonyms of every rule that matches text.
// Equivalence rules ("a, b, c") add the whole group; explicit mappings
// ("a, b => c") add the right-hand side.
func expandSynonyms(text string, maps []schema.SynonymMap) string {
	lower := " " + strings.Join(strings.Fields(strings.ToLower(text)), " ") + " "
	seen := map[string]bool{}
	var extra []string
	add := func(terms []string) {
		for _, t := range terms {
			if !seen[t] && !strings.Contains(lower, " "+t+" ") {
				seen[t] = true
				extra = append(extra, t)
			}
		}
	}
	matches := func(terms []string) bool {
		for _, t := range terms {
			if strings.Contains(lower, " "+t+" ") {
				return true
			}
		}
		return false
	}

	for _, m := range maps {
		for _, rule := range m.Rules() {
			if lhs, rhs, ok := strings.Cut(rule, "=>"); ok {
				if matches(ruleTerms(lhs)) {
					add(ruleTerms(rhs))
				}
				continue
			}
			group := ruleTerms(rule)
			if matches(group) {
				add(group)
			}
		}
	}
	if len(extra) == 0 {
		return text
	}
	return text + " " + strings.Join(extra, " ")
}

func ruleTerms(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.Join(strings.Fields(strings.ToLower(part)), " "); t != "" {
			out = append(out, t)
		}
	}
	return out
}
