package engine

import (
	"context"
	"sync"
)

// Source is a manga provider. Implementations live in their own
// packages under sources/ and are registered on a Sources registry,
// so builds only carry the providers they import.
type Source interface {
	// ID is the short stable identifier used in chapter paths and
	// CLI flags, e.g. "mgd".
	ID() string
	Name() string
	BaseURL() string

	Search(ctx context.Context, params SearchParams) ([]Manga, error)
	GetChapters(ctx context.Context, mangaID string) ([]Chapter, error)
	GetPages(ctx context.Context, chapterID string) ([]string, error)

	// DownloadChapter downloads every page of a chapter into a
	// directory under outputDir and returns that directory.
	DownloadChapter(ctx context.Context, chapterID, outputDir string) (string, error)
}

// ProgressReporter is implemented by sources that can report per page
// download progress. Callers type assert for it.
type ProgressReporter interface {
	DownloadChapterWithProgress(ctx context.Context, chapterID, outputDir string, observer func(DownloadProgress)) (string, error)
}

// MangaDetailer is implemented by sources that can fetch full manga
// metadata for a single ID, beyond what search results carry.
type MangaDetailer interface {
	GetManga(ctx context.Context, mangaID string) (Manga, error)
}

// LoggerAware is implemented by sources that accept a logger after
// construction, so one created late (e.g. from CLI flags) still
// reaches sources registered earlier.
type LoggerAware interface {
	SetLogger(*LoggerService)
}

// SourceResult pairs one source's search outcome with its identity.
// Exactly one of Mangas and Err is meaningful.
type SourceResult struct {
	SourceID string  `json:"source_id"`
	Mangas   []Manga `json:"mangas,omitempty"`
	Err      error   `json:"-"`
}

// Sources is an ordered source registry. Registration order is
// preserved so aggregated results are deterministic.
type Sources struct {
	mu      sync.RWMutex
	ordered []Source
	byID    map[string]Source
	Logger  *LoggerService
}

func NewSources() *Sources {
	return &Sources{byID: make(map[string]Source)}
}

// Add registers a source. A source with a duplicate ID replaces the
// earlier registration in place.
func (s *Sources) Add(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[src.ID()]; ok {
		for i, existing := range s.ordered {
			if existing.ID() == src.ID() {
				s.ordered[i] = src
				break
			}
		}
	} else {
		s.ordered = append(s.ordered, src)
	}
	s.byID[src.ID()] = src
	if s.Logger != nil {
		if aware, ok := src.(LoggerAware); ok {
			aware.SetLogger(s.Logger)
		}
	}
}

// UseLogger sets the registry logger and hands it to every registered
// source that accepts one.
func (s *Sources) UseLogger(l *LoggerService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Logger = l
	for _, src := range s.ordered {
		if aware, ok := src.(LoggerAware); ok {
			aware.SetLogger(l)
		}
	}
}

// Get returns the source registered under id.
func (s *Sources) Get(id string) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.byID[id]
	return src, ok
}

// All returns the sources in registration order.
func (s *Sources) All() []Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Source(nil), s.ordered...)
}

// IDs returns the registered source IDs in registration order.
func (s *Sources) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.ordered))
	for i, src := range s.ordered {
		ids[i] = src.ID()
	}
	return ids
}

// Search starts a fluent search across the registry.
func (s *Sources) Search(query string) *SearchBuilder {
	return &SearchBuilder{
		sources: s,
		params:  SearchParams{Query: query},
	}
}

// searchGrouped fans the query out to every source concurrently and
// collects per source results in registration order. Individual
// source failures are recorded, never propagated.
func (s *Sources) searchGrouped(ctx context.Context, params SearchParams) []SourceResult {
	srcs := s.All()
	results := make([]SourceResult, len(srcs))

	var wg sync.WaitGroup
	for i, src := range srcs {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			mangas, err := src.Search(ctx, params.Clone())
			if err != nil {
				s.Logger.Warn("[%s] search failed: %v", src.ID(), err)
				results[i] = SourceResult{SourceID: src.ID(), Err: err}
				return
			}
			for j := range mangas {
				mangas[j].SourceID = src.ID()
			}
			results[i] = SourceResult{SourceID: src.ID(), Mangas: mangas}
		}(i, src)
	}
	wg.Wait()
	return results
}
