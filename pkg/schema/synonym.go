package schema

import "strings"

// SynonymMapFormatSolr is the only supported synonym map format.
const SynonymMapFormatSolr = "solr"

// SynonymMap is a named list of solr-format synonym rules.
type SynonymMap struct {
	Name     string `json:"name"`
	Format   string `json:"format"`
	Synonyms string `json:"synonyms"`
	ETag     string `json:"@odata.etag,omitempty"`
}

// NewSynonymMap creates a solr synonym map from rule lines.
func NewSynonymMap(name string, rules ...string) SynonymMap {
	return SynonymMap{Name: name, Format: SynonymMapFormatSolr, Synonyms: strings.Join(rules, "\n")}
}

// Rules returns the non-empty rule lines.
func (m SynonymMap) Rules() []string {
	var rules []string
	for _, line := range strings.Split(m.Synonyms, "\n") {
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
			rules = append(rules, line)
		}
	}
	return rules
}

func (m SynonymMap) Validate() error {
	if !validName(m.Name) {
		return invalidIndex("synonym map name %q is invalid", m.Name)
	}
	if m.Format != "" && m.Format != SynonymMapFormatSolr {
		return invalidIndex("synonym map format %q is not supported", m.Format)
	}
	if len(m.Rules()) == 0 {
		return invalidIndex("synonym map %q has no rules", m.Name)
	}
	return nil
}
