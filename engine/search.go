package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// SearchBuilder accumulates search parameters before running the
// query against one or all registered sources.
type SearchBuilder struct {
	sources *Sources
	params  SearchParams
}

func (b *SearchBuilder) Limit(n int) *SearchBuilder {
	b.params.Limit = n
	return b
}

func (b *SearchBuilder) Offset(n int) *SearchBuilder {
	b.params.Offset = n
	return b
}

func (b *SearchBuilder) IncludeTags(tags ...string) *SearchBuilder {
	b.params.IncludeTags = append(b.params.IncludeTags, tags...)
	return b
}

func (b *SearchBuilder) ExcludeTags(tags ...string) *SearchBuilder {
	b.params.ExcludeTags = append(b.params.ExcludeTags, tags...)
	return b
}

func (b *SearchBuilder) SortBy(order SortOrder) *SearchBuilder {
	b.params.SortBy = order
	return b
}

// Build returns the accumulated parameters without executing.
func (b *SearchBuilder) Build() SearchParams {
	return b.params.Clone()
}

// Flatten searches every registered source and concatenates the
// successful results in registration order. Failing sources are
// dropped unless every source failed, in which case a single error
// naming each failure is returned.
func (b *SearchBuilder) Flatten(ctx context.Context) (MangaList, error) {
	grouped := b.sources.searchGrouped(ctx, b.params)

	var all MangaList
	var failures []string
	succeeded := false
	for _, res := range grouped {
		if res.Err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", res.SourceID, res.Err))
			continue
		}
		succeeded = true
		all = append(all, res.Mangas...)
	}
	if !succeeded && len(failures) > 0 {
		return nil, Otherf("All sources failed: %s", strings.Join(failures, ", "))
	}
	return all, nil
}

// Group searches every registered source and returns each outcome
// tagged with its source ID, in registration order. Group never fails
// as a whole.
func (b *SearchBuilder) Group(ctx context.Context) []SourceResult {
	return b.sources.searchGrouped(ctx, b.params)
}

// FromSource searches a single source by ID.
func (b *SearchBuilder) FromSource(ctx context.Context, id string) (MangaList, error) {
	src, ok := b.sources.Get(id)
	if !ok {
		return nil, NotFoundf("source %q is not registered", id)
	}
	mangas, err := src.Search(ctx, b.params.Clone())
	if err != nil {
		return nil, err
	}
	for i := range mangas {
		mangas[i].SourceID = id
	}
	return mangas, nil
}

// MangaList is a result sequence with chainable post-processing
// helpers. All helpers return new slices and leave the receiver
// untouched.
type MangaList []Manga

// DedupeByTitle drops case-insensitive title duplicates, keeping the
// first occurrence and preserving order.
func (l MangaList) DedupeByTitle() MangaList {
	seen := make(map[string]struct{}, len(l))
	out := make(MangaList, 0, len(l))
	for _, m := range l {
		key := strings.ToLower(m.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// FilterPopular keeps entries whose metadata completeness score is at
// least minScore.
func (l MangaList) FilterPopular(minScore int) MangaList {
	out := make(MangaList, 0, len(l))
	for _, m := range l {
		if popularityScore(&m) >= minScore {
			out = append(out, m)
		}
	}
	return out
}

// SortByRelevance orders by metadata quality, best first. Ties break
// toward the shorter title.
func (l MangaList) SortByRelevance() MangaList {
	out := append(MangaList(nil), l...)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := relevanceScore(&out[i]), relevanceScore(&out[j])
		if si != sj {
			return si > sj
		}
		return len(out[i].Title) < len(out[j].Title)
	})
	return out
}

// SortByQueryRelevance orders by how well each entry matches query,
// best first. Ties break toward the shorter title.
func (l MangaList) SortByQueryRelevance(query string) MangaList {
	out := append(MangaList(nil), l...)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := queryRelevanceScore(&out[i], query), queryRelevanceScore(&out[j], query)
		if si != sj {
			return si > sj
		}
		return len(out[i].Title) < len(out[j].Title)
	})
	return out
}

func popularityScore(m *Manga) int {
	score := 0
	if m.Description != "" {
		score += 2
	}
	if len(m.Authors) > 0 {
		score++
	}
	if m.CoverURL != "" {
		score++
	}
	if len(m.Tags) >= 3 {
		score++
	}
	if len(m.Tags) >= 5 {
		score++
	}
	return score
}

func relevanceScore(m *Manga) int {
	score := 0
	if m.Description != "" {
		score += 10
	}
	if len(m.Authors) > 0 {
		score += 5
	}
	if len(m.Tags) >= 3 {
		score += 5
	}
	if len(m.Tags) >= 5 {
		score += 5
	}
	switch n := len(m.Title); {
	case n <= 20:
		score += 15
	case n <= 40:
		score += 10
	default:
		score += 5
	}
	if strings.Contains(m.Title, "Official") || strings.Contains(m.Title, "Colored") {
		score += 8
	}
	if isASCII(m.Title) {
		score += 3
	}
	return score
}

func queryRelevanceScore(m *Manga, query string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	title := strings.ToLower(m.Title)

	score := 0
	switch {
	case title == q:
		score += 100
	case strings.Contains(title, q):
		score += 50
	default:
		qWords := strings.Fields(q)
		titleWords := strings.Fields(title)
		matches := 0
		for _, qw := range qWords {
			for _, tw := range titleWords {
				if strings.Contains(tw, qw) || strings.Contains(qw, tw) {
					matches++
					break
				}
			}
		}
		if len(qWords) > 0 {
			score += matches * 25 / len(qWords)
		}
	}

	if m.Description != "" && strings.Contains(strings.ToLower(m.Description), q) {
		score += 15
	}
	for _, tag := range m.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			score += 10
		}
	}
	for _, author := range m.Authors {
		if strings.Contains(strings.ToLower(author), q) {
			score += 20
		}
	}

	return score + relevanceScore(m)/3
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}
