package ham

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// maxKeywords bounds the frequency-filtered keyword list.
const maxKeywords = 5

// stopwords excluded from keyword extraction. Case-folded before lookup.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"a an the is are was were be been being have has had do does did " +
			"will would should can could may might must of to in on at for " +
			"with about against between into through during before after " +
			"above below from up down out off over under again further then " +
			"once here there when where why how all any both each few more " +
			"most other some such no nor not only own same so than too very " +
			"s t just don now i me my myself we our ours ourselves you your " +
			"yours yourself yourselves he him his himself she her hers " +
			"herself it its itself they them their theirs themselves what " +
			"which who whom this that these those am") {
		stopwords[w] = struct{}{}
	}
}

// Gist is the deterministic structured abstraction of raw content. It is only
// materialized transiently during encode/decode; at rest it lives inside the
// record ciphertext. For non-text data kinds the gist degenerates to Raw.
type Gist struct {
	Summary           string             `json:"summary,omitempty"`
	Keywords          []string           `json:"keywords,omitempty"`
	OriginalLength    int                `json:"original_length,omitempty"`
	RelationalContext *RelationalContext `json:"relational_context,omitempty"`
	ScriptHint        string             `json:"script_hint,omitempty"`
	Raw               string             `json:"raw,omitempty"`
}

// RelationalContext is the entity/relationship placeholder structure carried
// by text gists. Entities are derived from the top keywords; a future deep
// mapping stage can replace this with real extraction.
type RelationalContext struct {
	Entities      []string       `json:"entities"`
	Relationships []Relationship `json:"relationships,omitempty"`
}

// Relationship links two entities.
type Relationship struct {
	Subject string `json:"subject"`
	Verb    string `json:"verb"`
	Object  string `json:"object"`
}

// abstractText reduces raw text to a gist: first-sentence summary plus a
// bounded, stopword-filtered keyword frequency list. The transform is pure
// and deterministic for a given input.
func abstractText(text string) *Gist {
	keywords := extractKeywords(text)

	summary := text
	if idx := strings.Index(text, "."); idx >= 0 {
		summary = text[:idx]
	}
	summary = strings.TrimSpace(summary) + "."

	g := &Gist{
		Summary:        summary,
		Keywords:       keywords,
		OriginalLength: len(text),
		ScriptHint:     detectScript(text),
	}

	if len(keywords) > 0 {
		rc := &RelationalContext{Entities: keywords[:min(2, len(keywords))]}
		if len(keywords) >= 2 {
			rc.Relationships = []Relationship{
				{Subject: keywords[0], Verb: "related_to", Object: keywords[1]},
			}
		}
		g.RelationalContext = rc
	}
	return g
}

// extractKeywords returns up to maxKeywords case-folded words ordered by
// descending frequency, ties broken by first occurrence.
func extractKeywords(text string) []string {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	pos := 0
	for _, raw := range strings.Fields(text) {
		w := strings.ToLower(strings.Trim(raw, ".,!?;:'\"()"))
		if w == "" {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		if _, ok := firstSeen[w]; !ok {
			firstSeen[w] = pos
		}
		counts[w]++
		pos++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return firstSeen[words[i]] < firstSeen[words[j]]
	})
	if len(words) > maxKeywords {
		words = words[:maxKeywords]
	}
	return words
}

// detectScript is a rudimentary hint for downstream language handling.
func detectScript(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return "han"
		}
	}
	return "latin"
}

// Rehydrate renders a gist back to human-readable text. It is used only at
// the recall boundary; query ranking works from keywords and metadata.
func Rehydrate(g *Gist) string {
	if g == nil {
		return ""
	}
	if g.Raw != "" && g.Summary == "" {
		return g.Raw
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Summary: %s\nKeywords: %s", g.Summary, strings.Join(g.Keywords, ", "))
	if rc := g.RelationalContext; rc != nil && len(rc.Relationships) > 0 {
		sb.WriteString("\nRelational Context:")
		for _, rel := range rc.Relationships {
			fmt.Fprintf(&sb, "\n  - %s -> %s -> %s", rel.Subject, rel.Verb, rel.Object)
		}
	}
	return sb.String()
}

// tokens returns the lowercase token set of the gist used by fallback
// query scoring. Tokens shorter than 3 runes are dropped.
func (g *Gist) tokens() map[string]struct{} {
	out := map[string]struct{}{}
	add := func(text string) {
		for _, raw := range strings.Fields(strings.ToLower(text)) {
			w := strings.Trim(raw, ".,!?")
			if len([]rune(w)) > 2 {
				out[w] = struct{}{}
			}
		}
	}
	add(g.Summary)
	add(g.Raw)
	for _, kw := range g.Keywords {
		if len([]rune(kw)) > 2 {
			out[kw] = struct{}{}
		}
	}
	return out
}
