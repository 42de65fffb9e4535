package ham

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"
)

// defaultQueryLimit caps result sets when the caller does not set one.
const defaultQueryLimit = 5

// semanticOverFetch is how many extra candidates the semantic index is asked
// for relative to the limit, so post-filtering still fills the result set.
const semanticOverFetch = 2

// DateRange bounds a query by record creation time. Zero bounds are open;
// both bounds are inclusive and compared in UTC.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// QueryOptions describes one hybrid query. All filters are conjunctive.
type QueryOptions struct {
	// Keywords must all appear as substrings of the record's stringified
	// metadata (which includes the mirrored gist keywords).
	Keywords []string

	// DateRange filters on creation time.
	DateRange DateRange

	// DataKindPrefix matches records whose data kind starts with the prefix.
	DataKindPrefix string

	// MetadataEquals requires exact value matches on metadata fields.
	MetadataEquals map[string]Value

	// SemanticQuery is free text ranked through the semantic index when one
	// is configured. With no index the engine falls back to token-overlap
	// scoring against the same text.
	SemanticQuery string

	// Limit caps the result set. 0 means defaultQueryLimit; it is ignored
	// when ReturnMultipleCandidates is set.
	Limit int

	// SortByConfidence orders results by the confidence metadata field,
	// highest first. Used for fact-style records.
	SortByConfidence bool

	// ReturnMultipleCandidates disables the limit and returns every match.
	ReturnMultipleCandidates bool
}

// scored pairs a decoded candidate with its fallback score.
type scored struct {
	result RecallResult
	score  int
}

// Query runs one hybrid query: semantic candidates first (when an index is
// configured and answers), then a metadata scan over the remaining records in
// recency order. Records that fail to decode are skipped with a logged
// diagnostic rather than failing the whole query. Only malformed filters
// produce an error; runtime trouble degrades to a smaller (possibly empty)
// result set.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]RecallResult, error) {
	if opts.Limit < 0 {
		return nil, &QueryError{Reason: "negative limit"}
	}
	if !opts.DateRange.Start.IsZero() && !opts.DateRange.End.IsZero() &&
		opts.DateRange.End.Before(opts.DateRange.Start) {
		return nil, &QueryError{Reason: "date range end precedes start"}
	}

	limit := opts.Limit
	if limit == 0 {
		limit = defaultQueryLimit
	}

	fallback := false
	var semanticIDs []string
	if opts.SemanticQuery != "" {
		if s.index == nil {
			fallback = true
		} else {
			ids, err := s.index.SimilarityQuery(ctx, opts.SemanticQuery, semanticOverFetch*limit)
			if err != nil {
				log.Printf("[HAM] semantic query failed, falling back to keyword scoring: %v", err)
				fallback = true
			} else {
				semanticIDs = ids
			}
		}
	}

	s.mu.RLock()
	// Semantic candidates keep their similarity order; the scan pass appends
	// everything else newest-first. Ids are zero-padded, so reverse
	// lexicographic order is reverse creation order.
	candidates := make([]string, 0, len(s.records))
	seen := make(map[string]struct{}, len(semanticIDs))
	for _, id := range semanticIDs {
		if _, ok := s.records[id]; !ok {
			continue
		}
		candidates = append(candidates, id)
		seen[id] = struct{}{}
	}
	scanIDs := make([]string, 0, len(s.records))
	for id := range s.records {
		if _, ok := seen[id]; !ok {
			scanIDs = append(scanIDs, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(scanIDs)))
	candidates = append(candidates, scanIDs...)

	var queryTokens map[string]struct{}
	if fallback {
		queryTokens = tokenizeQuery(opts.SemanticQuery)
	}

	matches := make([]scored, 0, limit)
	for _, id := range candidates {
		rec := s.records[id]
		if !s.matchesLocked(rec, opts) {
			continue
		}

		gist, err := s.decodeRecord(rec)
		if err != nil {
			log.Printf("[HAM] skipping %s in query results: %v", id, err)
			continue
		}

		score := 0
		if fallback {
			score = overlap(queryTokens, gist.tokens())
			if score == 0 && len(queryTokens) > 0 {
				continue
			}
		}

		matches = append(matches, scored{
			result: RecallResult{
				ID:         rec.ID,
				CreatedAt:  rec.CreatedAt,
				DataKind:   rec.DataKind,
				Rehydrated: Rehydrate(gist),
				Metadata:   rec.Metadata.Clone(),
			},
			score: score,
		})
	}
	s.mu.RUnlock()

	if fallback {
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].score != matches[j].score {
				return matches[i].score > matches[j].score
			}
			return matches[i].result.CreatedAt.After(matches[j].result.CreatedAt)
		})
	}
	if opts.SortByConfidence {
		sort.SliceStable(matches, func(i, j int) bool {
			ci, _ := matches[i].result.Metadata.NumberAt(MetaConfidence)
			cj, _ := matches[j].result.Metadata.NumberAt(MetaConfidence)
			return ci > cj
		})
	}

	if !opts.ReturnMultipleCandidates && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]RecallResult, len(matches))
	for i, m := range matches {
		out[i] = m.result
	}
	return out, nil
}

// QueryByDateRange returns every record created within [start, end] that also
// passes the extra filters, unbounded by the default limit.
func (s *Store) QueryByDateRange(ctx context.Context, start, end time.Time, extra QueryOptions) ([]RecallResult, error) {
	extra.DateRange = DateRange{Start: start, End: end}
	extra.ReturnMultipleCandidates = true
	return s.Query(ctx, extra)
}

// matchesLocked applies the conjunctive cheap filters. Held under the read
// lock; decode happens only after a record survives this gate.
func (s *Store) matchesLocked(rec *Record, opts QueryOptions) bool {
	if opts.DataKindPrefix != "" && !strings.HasPrefix(rec.DataKind, opts.DataKindPrefix) {
		return false
	}

	created := rec.CreatedAt.UTC()
	if !opts.DateRange.Start.IsZero() && created.Before(opts.DateRange.Start.UTC()) {
		return false
	}
	if !opts.DateRange.End.IsZero() && created.After(opts.DateRange.End.UTC()) {
		return false
	}

	for field, want := range opts.MetadataEquals {
		got, ok := rec.Metadata[field]
		if !ok || !got.Equal(want) {
			return false
		}
	}

	if len(opts.Keywords) > 0 {
		haystack := rec.Metadata.flatten()
		for _, kw := range opts.Keywords {
			if !strings.Contains(haystack, strings.ToLower(kw)) {
				return false
			}
		}
	}
	return true
}

// tokenizeQuery mirrors the gist tokenizer for fallback scoring.
func tokenizeQuery(text string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		w := strings.Trim(raw, ".,!?")
		if len([]rune(w)) > 2 {
			out[w] = struct{}{}
		}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}
