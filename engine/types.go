package engine

// Manga is the normalized series representation shared by every source.
// SourceID is stamped by the search engine so results from different
// sources can be mixed in a single list without losing provenance.
type Manga struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	CoverURL    string   `json:"cover_url,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	SourceID    string   `json:"source_id"`
}

// Chapter is a single chapter of a manga. Number is fractional so
// special releases like 10.5 keep their position when sorting. Pages
// is usually empty until resolved through GetPages.
type Chapter struct {
	ID       string   `json:"id"`
	Number   float64  `json:"number"`
	Title    string   `json:"title"`
	Pages    []string `json:"pages,omitempty"`
	MangaID  string   `json:"manga_id"`
	SourceID string   `json:"source_id"`
}

// SortOrder selects how a source orders its search results.
type SortOrder int

const (
	// SortRelevance is the default and lets the source rank by match quality.
	SortRelevance SortOrder = iota
	SortUpdatedAt
	SortCreatedAt
	SortTitle
)

// ParseSortOrder maps a user facing name to a SortOrder. Unknown
// names fall back to relevance.
func ParseSortOrder(s string) SortOrder {
	switch s {
	case "updated", "latest":
		return SortUpdatedAt
	case "created", "new":
		return SortCreatedAt
	case "title":
		return SortTitle
	default:
		return SortRelevance
	}
}

func (o SortOrder) String() string {
	switch o {
	case SortUpdatedAt:
		return "updated"
	case SortCreatedAt:
		return "created"
	case SortTitle:
		return "title"
	default:
		return "relevance"
	}
}

// SearchParams carries a search request to a source. Limit and Offset
// are zero when unset and sources apply their own defaults.
type SearchParams struct {
	Query       string    `json:"query"`
	Limit       int       `json:"limit,omitempty"`
	Offset      int       `json:"offset,omitempty"`
	IncludeTags []string  `json:"include_tags,omitempty"`
	ExcludeTags []string  `json:"exclude_tags,omitempty"`
	SortBy      SortOrder `json:"sort_by,omitempty"`
}

// Clone returns a deep copy so concurrent source calls cannot share
// tag slices.
func (p SearchParams) Clone() SearchParams {
	c := p
	if p.IncludeTags != nil {
		c.IncludeTags = append([]string(nil), p.IncludeTags...)
	}
	if p.ExcludeTags != nil {
		c.ExcludeTags = append([]string(nil), p.ExcludeTags...)
	}
	return c
}

// DownloadProgress is reported while a chapter downloads, once per
// page and a final event with Completed set.
type DownloadProgress struct {
	ChapterID string `json:"chapter_id"`
	Title     string `json:"title,omitempty"`
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	Completed bool   `json:"completed"`
}
